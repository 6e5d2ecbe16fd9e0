// Package shared holds list plumbing common to the master data resources.
package shared

import (
	"net/http"

	"github.com/mini-erp/telecrm/internal/platform/httpx"
	core "github.com/mini-erp/telecrm/internal/shared"
)

// ListFilters represents standard master data list filters.
type ListFilters struct {
	core.ListParams
	IsActive  *bool
	CompanyID *int64
}

// ScopeFunc resolves the company a caller may list.
type ScopeFunc func(*http.Request) (*int64, error)

// ParseFilters reads paging, search, sort, isActive and the company scope.
func ParseFilters(r *http.Request, scope ScopeFunc) (ListFilters, error) {
	params, err := httpx.ParseListParams(r)
	if err != nil {
		return ListFilters{}, err
	}
	f := ListFilters{ListParams: params, IsActive: httpx.BoolQuery(r, "isActive")}
	if scope != nil {
		if f.CompanyID, err = scope(r); err != nil {
			return ListFilters{}, err
		}
	}
	return f, nil
}

// StatusInput toggles the active flag.
type StatusInput struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

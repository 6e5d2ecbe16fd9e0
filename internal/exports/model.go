// Package exports tracks asynchronous export files and serves their downloads.
package exports

import (
	"fmt"
	"time"

	"github.com/mini-erp/telecrm/internal/platform/httpx"
)

// Export statuses.
const (
	StatusPending = "pending"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Record is one row of export history.
type Record struct {
	ID         int64      `json:"id"`
	CompanyID  int64      `json:"companyId"`
	Kind       string     `json:"kind"`
	FileName   string     `json:"fileName"`
	FilePath   string     `json:"-"`
	RowCount   int        `json:"rowCount"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	CreatedBy  *int64     `json:"createdBy"`
	CreatedAt  time.Time  `json:"createdAt"`
	FinishedAt *time.Time `json:"finishedAt"`
}

// Filters narrows the history list.
type Filters struct {
	CompanyID *int64
	Kind      string
	Status    string
}

// ErrNotReady is returned when downloading an export that has not finished.
var ErrNotReady = fmt.Errorf("%w: export is not ready", httpx.ErrConflict)

package activities

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/mini-erp/telecrm/internal/rbac"
	"github.com/mini-erp/telecrm/internal/shared"
)

type fakeLister struct {
	params shared.ListParams
	f      Filters
}

func (l *fakeLister) List(_ context.Context, params shared.ListParams, f Filters) ([]Activity, int, error) {
	l.params, l.f = params, f
	return []Activity{{ID: 1, CustomerID: 5, Type: TypeCallLogged, ActorName: "System", CreatedAt: time.Unix(0, 0)}}, 1, nil
}

type allow []string

func (a allow) EffectivePermissions(context.Context, int64) ([]string, error) { return a, nil }

func withPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := &shared.Session{}
		sess.SetPrincipal(shared.Principal{UserID: 1, CompanyID: 1})
		next.ServeHTTP(w, r.WithContext(shared.ContextWithSession(r.Context(), sess)))
	})
}

func TestListFilters(t *testing.T) {
	lister := &fakeLister{}
	h := NewHandler(nil, NewService(lister), rbac.Middleware{Service: allow{shared.PermCustomersView}})
	r := chi.NewRouter()
	r.Use(withPrincipal)
	r.Route("/activities", h.MountRoutes)
	r.Get("/customers/{id}/activities", h.ListForCustomer)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/activities?customerId=5&type=call_logged&from=2025-01-01&to=2025-01-31", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int64(5), *lister.f.CustomerID)
	require.Equal(t, "call_logged", lister.f.Type)
	require.Equal(t, 1, lister.params.To.Day())
	require.Equal(t, time.February, lister.params.To.Month())

	var page shared.Page[Activity]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Items, 1)
	require.Equal(t, 1, page.Pagination.EndIndex)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/customers/9/activities", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int64(9), *lister.f.CustomerID)
}

func TestActor(t *testing.T) {
	require.Nil(t, Actor(0))
	require.Equal(t, int64(3), *Actor(3))
}

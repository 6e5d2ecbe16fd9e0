package rbac

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mini-erp/telecrm/internal/shared"
)

type stubSource map[int64][]string

func (s stubSource) EffectivePermissions(_ context.Context, userID int64) ([]string, error) {
	if userID == 99 {
		return nil, errors.New("db down")
	}
	return s[userID], nil
}

func requestAs(userID int64) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if userID == 0 {
		return req
	}
	sess := &shared.Session{}
	sess.SetPrincipal(shared.Principal{UserID: userID, CompanyID: 1})
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func TestRequireAnyAndAll(t *testing.T) {
	m := Middleware{Service: stubSource{
		1: {"orders.view"},
		2: {"Orders.View", "orders.edit"},
	}}
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	cases := []struct {
		name   string
		mw     func(http.Handler) http.Handler
		user   int64
		status int
	}{
		{"anonymous", m.RequireAny("orders.view"), 0, http.StatusUnauthorized},
		{"any granted", m.RequireAny("orders.edit", "orders.view"), 1, http.StatusNoContent},
		{"any denied", m.RequireAny("orders.edit"), 1, http.StatusForbidden},
		{"all granted case-insensitive", m.RequireAll("orders.view", "orders.edit"), 2, http.StatusNoContent},
		{"all partially granted", m.RequireAll("orders.view", "orders.edit"), 1, http.StatusForbidden},
		{"source failure", m.RequireAny("orders.view"), 99, http.StatusInternalServerError},
		{"no requirement still needs login", m.RequireAny(), 0, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tc.mw(ok).ServeHTTP(rec, requestAs(tc.user))
			require.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestHas(t *testing.T) {
	m := Middleware{Service: stubSource{1: {"companies.all"}}}
	require.True(t, m.Has(requestAs(1), "companies.all"))
	require.False(t, m.Has(requestAs(2), "companies.all"))
	require.False(t, m.Has(requestAs(0), "companies.all"))
}

func TestDescribe(t *testing.T) {
	require.Equal(t, "View orders", describe("orders.view"))
	require.Equal(t, "plain", describe("plain"))
}

func TestCompanyScope(t *testing.T) {
	m := Middleware{Service: stubSource{1: {"companies.all"}, 2: {"orders.view"}}}

	req := requestAs(1)
	req.URL.RawQuery = "companyId=5"
	scope, err := m.CompanyScope(req)
	require.NoError(t, err)
	require.Equal(t, int64(5), *scope)

	scope, err = m.CompanyScope(requestAs(1))
	require.NoError(t, err)
	require.Nil(t, scope)

	req = requestAs(2)
	req.URL.RawQuery = "companyId=5"
	scope, err = m.CompanyScope(req)
	require.NoError(t, err)
	require.Equal(t, int64(1), *scope)

	_, err = m.CompanyScope(requestAs(0))
	require.Error(t, err)
}

package customers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/mini-erp/telecrm/internal/csvio"
	"github.com/mini-erp/telecrm/internal/rbac"
	"github.com/mini-erp/telecrm/internal/shared"
)

type grants map[int64][]string

func (g grants) EffectivePermissions(_ context.Context, userID int64) ([]string, error) {
	return g[userID], nil
}

type importCounter struct{ created, updated, failed int }

func (c *importCounter) ObserveImport(_ string, created, updated, failed int) {
	c.created, c.updated, c.failed = created, updated, failed
}

const (
	supervisorID int64 = 1
	telesaleID   int64 = 7
)

func newTestRouter(t *testing.T) (http.Handler, *memoryRepo, *importCounter) {
	t.Helper()
	svc, repo := newTestService()
	counter := &importCounter{}
	m := rbac.Middleware{Service: grants{
		supervisorID: {shared.PermCustomersView, shared.PermCustomersEdit, shared.PermCustomersAssign, shared.PermCustomersImport, shared.PermCustomersExport},
		telesaleID:   {shared.PermCustomersView},
	}}
	h := NewHandler(nil, svc, m, HandlerOptions{Metrics: counter})
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			var id int64 = supervisorID
			if req.Header.Get("X-Test-User") == "telesale" {
				id = telesaleID
			}
			sess := &shared.Session{}
			sess.SetPrincipal(shared.Principal{UserID: id, CompanyID: 1})
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
		})
	})
	r.Route("/customers", h.MountRoutes)
	return r, repo, counter
}

func seedCustomers(repo *memoryRepo) {
	owner := telesaleID
	repo.rows[1] = Customer{ID: 1, CompanyID: 1, FirstName: "Mine", Phone: "0811111111", AssignedTo: &owner, Tags: []TagRef{}}
	repo.rows[2] = Customer{ID: 2, CompanyID: 1, FirstName: "Pool", Phone: "0822222222", Tags: []TagRef{}}
	repo.lastID = 2
}

func TestListScopesTelesalesToOwnBook(t *testing.T) {
	router, repo, _ := newTestRouter(t)
	seedCustomers(repo)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/customers?assignedTo=0", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var page shared.Page[Customer]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Items, 1)
	require.Equal(t, "Pool", page.Items[0].FirstName)

	req := httptest.NewRequest(http.MethodGet, "/customers?assignedTo=0", nil)
	req.Header.Set("X-Test-User", "telesale")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Items, 1)
	require.Equal(t, "Mine", page.Items[0].FirstName)
	require.Equal(t, 1, page.Pagination.StartIndex)
}

func TestTelesaleCannotAssignOrEdit(t *testing.T) {
	router, repo, _ := newTestRouter(t)
	seedCustomers(repo)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/customers/2/assign"},
		{http.MethodDelete, "/customers/2"},
		{http.MethodGet, "/customers/export.csv"},
	} {
		req := httptest.NewRequest(tc.method, tc.path, bytes.NewBufferString(`{"userId":7}`))
		req.Header.Set("X-Test-User", "telesale")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code, tc.path)
	}
}

func TestCreateAndAssignOverHTTP(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/customers", bytes.NewBufferString(`{"firstName":"Malee","phone":"081-999-9999"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created Customer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, int64(1), created.CompanyID)
	require.Equal(t, "0819999999", created.Phone)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/customers/1/assign", bytes.NewBufferString(`{"userId":7}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/customers", bytes.NewBufferString(`{"firstName":"","phone":"1"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestImportOverHTTP(t *testing.T) {
	router, _, counter := newTestRouter(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "customers.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("firstName,phone\nMalee,0811111111\nSomsri,bad\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/customers/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var result csvio.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, 1, result.Created)
	require.Equal(t, 1, result.Skipped)
	require.Equal(t, 1, counter.created)
	require.Equal(t, 1, counter.failed)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/customers/import", bytes.NewBufferString("x")))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportOverHTTP(t *testing.T) {
	router, repo, _ := newTestRouter(t)
	seedCustomers(repo)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/customers/export.csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Body.String(), "0822222222")
}

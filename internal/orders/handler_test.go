package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/mini-erp/telecrm/internal/rbac"
	"github.com/mini-erp/telecrm/internal/shared"
)

type grants map[int64][]string

func (g grants) EffectivePermissions(_ context.Context, userID int64) ([]string, error) {
	return g[userID], nil
}

type fakeQueue struct{ got *ExportRequest }

func (q *fakeQueue) EnqueueOrderExport(_ context.Context, req ExportRequest) (string, error) {
	q.got = &req
	return "task-1", nil
}

const (
	adminID    int64 = 1
	telesaleID int64 = 7
)

func newTestRouter(t *testing.T) (http.Handler, *memoryRepo, *fakeQueue) {
	t.Helper()
	svc, repo, _ := newTestService()
	queue := &fakeQueue{}
	m := rbac.Middleware{Service: grants{
		adminID: {shared.PermOrdersView, shared.PermOrdersCreate, shared.PermOrdersEdit, shared.PermOrdersTracking,
			shared.PermOrdersExport, shared.PermOrdersImport},
		telesaleID: {shared.PermOrdersView, shared.PermOrdersCreate},
	}}
	h := NewHandler(nil, svc, m, HandlerOptions{Queue: queue, Renderer: &captureRenderer{}})
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			id := adminID
			if req.Header.Get("X-Test-User") == "telesale" {
				id = telesaleID
			}
			sess := &shared.Session{}
			sess.SetPrincipal(shared.Principal{UserID: id, CompanyID: 1})
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
		})
	})
	r.Route("/orders", h.MountRoutes)
	return r, repo, queue
}

func do(router http.Handler, method, target, user string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateAndListScopedToCreator(t *testing.T) {
	router, _, _ := newTestRouter(t)

	in := sampleInput()
	in.ID = "T-1"
	rec := do(router, http.MethodPost, "/orders", "telesale", in)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	in.ID = "A-1"
	rec = do(router, http.MethodPost, "/orders", "", in)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(router, http.MethodGet, "/orders", "telesale", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page shared.Page[Order]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Items, 1)
	require.Equal(t, "T-1", page.Items[0].ID)

	rec = do(router, http.MethodGet, "/orders", "", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Items, 2)
}

func TestCreateProblemResponses(t *testing.T) {
	router, _, _ := newTestRouter(t)

	in := sampleInput()
	in.Items = nil
	rec := do(router, http.MethodPost, "/orders", "", in)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	rec = do(router, http.MethodPatch, "/orders/missing", "", PatchInput{OrderStatus: StatusPicking})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(router, http.MethodPatch, "/orders/missing", "telesale", PatchInput{OrderStatus: StatusPicking})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestIdempotencyKeyHeader(t *testing.T) {
	router, repo, _ := newTestRouter(t)
	send := func() int {
		var buf bytes.Buffer
		require.NoError(t, json.NewEncoder(&buf).Encode(sampleInput()))
		req := httptest.NewRequest(http.MethodPost, "/orders", &buf)
		req.Header.Set(shared.IdempotencyHeader, "abc")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}
	require.Equal(t, http.StatusCreated, send())
	require.Equal(t, http.StatusConflict, send())
	require.Len(t, repo.orders, 1)
}

func TestTrackingEndpoints(t *testing.T) {
	router, repo, _ := newTestRouter(t)
	in := sampleInput()
	in.ID = "T-1"
	require.Equal(t, http.StatusCreated, do(router, http.MethodPost, "/orders", "", in).Code)

	rec := do(router, http.MethodPost, "/orders/tracking/validate", "", map[string]string{"paste": "t-1\tNEW1\nT-1,TH01\n"})
	require.Equal(t, http.StatusOK, rec.Code)
	var result TrackingResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, TrackingCounts{Valid: 1, Duplicate: 1}, result.Counts)

	rec = do(router, http.MethodPost, "/orders/tracking/apply", "", map[string]any{"rows": []TrackingRow{{OrderID: "t-1", TrackingNumber: "NEW1"}}})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"TH01", "NEW1"}, repo.orders["T-1"].TrackingNumbers)

	rec = do(router, http.MethodPost, "/orders/tracking/apply", "telesale", map[string]any{"rows": []TrackingRow{}})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestExportEndpoints(t *testing.T) {
	router, _, queue := newTestRouter(t)
	in := sampleInput()
	in.ID = "E-1"
	require.Equal(t, http.StatusCreated, do(router, http.MethodPost, "/orders", "", in).Code)

	rec := do(router, http.MethodGet, "/orders/export.csv?status=Pending", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Disposition"), "orders-")
	require.Equal(t, 2, strings.Count(rec.Body.String(), "\n"))

	rec = do(router, http.MethodPost, "/orders/export?status=Pending", "", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.NotNil(t, queue.got)
	require.Equal(t, "Pending", queue.got.Filters.Status)
	require.Equal(t, adminID, queue.got.RequestedBy)
	require.Equal(t, "csv", queue.got.Format)

	rec = do(router, http.MethodPost, "/orders/export?format=pdf", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, http.MethodGet, "/orders/E-1/label.pdf", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))

	rec = do(router, http.MethodGet, "/orders/export.csv", "telesale", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

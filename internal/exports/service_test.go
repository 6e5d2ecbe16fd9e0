package exports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/rbac"
	"github.com/mini-erp/telecrm/internal/shared"
)

type memoryRepo struct {
	records []Record
}

func (r *memoryRepo) Create(_ context.Context, rec Record) (Record, error) {
	rec.ID = int64(len(r.records) + 1)
	rec.Status = StatusPending
	rec.CreatedAt = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	r.records = append(r.records, rec)
	return rec, nil
}

func (r *memoryRepo) update(id int64, fn func(*Record)) error {
	for i := range r.records {
		if r.records[i].ID == id {
			fn(&r.records[i])
			return nil
		}
	}
	return httpx.ErrNotFound
}

func (r *memoryRepo) Finish(_ context.Context, id int64, path string, rows int, at time.Time) error {
	return r.update(id, func(rec *Record) {
		rec.Status, rec.FilePath, rec.RowCount, rec.FinishedAt = StatusDone, path, rows, &at
	})
}

func (r *memoryRepo) Fail(_ context.Context, id int64, message string, at time.Time) error {
	return r.update(id, func(rec *Record) {
		rec.Status, rec.Error, rec.FinishedAt = StatusFailed, message, &at
	})
}

func (r *memoryRepo) Get(_ context.Context, id int64) (Record, error) {
	for _, rec := range r.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return Record{}, httpx.ErrNotFound
}

func (r *memoryRepo) List(_ context.Context, params shared.ListParams, f Filters) ([]Record, int, error) {
	out := []Record{}
	for _, rec := range r.records {
		if f.CompanyID != nil && rec.CompanyID != *f.CompanyID {
			continue
		}
		if f.Status != "" && rec.Status != f.Status {
			continue
		}
		out = append(out, rec)
	}
	total := len(out)
	start := min(params.Offset(), total)
	end := min(start+params.Limit(), total)
	return out[start:end], total, nil
}

func newTestService(t *testing.T) (*Service, *memoryRepo, string) {
	t.Helper()
	dir := t.TempDir()
	repo := &memoryRepo{}
	return NewService(repo, NewStore(dir)), repo, dir
}

func writeLines(n int) func(io.Writer) (int, error) {
	return func(w io.Writer) (int, error) {
		for i := 0; i < n; i++ {
			if _, err := fmt.Fprintf(w, "row-%d\n", i); err != nil {
				return i, err
			}
		}
		return n, nil
	}
}

func TestRunRecordsFinishedExport(t *testing.T) {
	svc, repo, dir := newTestService(t)
	user := int64(3)

	rec, err := svc.Run(context.Background(), Record{CompanyID: 1, Kind: "orders", FileName: "orders.csv", CreatedBy: &user}, "csv", writeLines(3))
	require.NoError(t, err)
	require.Equal(t, StatusDone, rec.Status)
	require.Equal(t, 3, rec.RowCount)
	require.Equal(t, StatusDone, repo.records[0].Status)

	data, err := os.ReadFile(filepath.Join(dir, rec.FilePath))
	require.NoError(t, err)
	require.Equal(t, "row-0\nrow-1\nrow-2\n", string(data))
}

func TestRunMarksFailure(t *testing.T) {
	svc, repo, dir := newTestService(t)

	rec, err := svc.Run(context.Background(), Record{CompanyID: 1, Kind: "orders", FileName: "orders.csv"}, "csv",
		func(io.Writer) (int, error) { return 0, errors.New("query timeout") })
	require.EqualError(t, err, "query timeout")
	require.Equal(t, StatusFailed, rec.Status)
	require.Equal(t, "query timeout", repo.records[0].Error)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestOpen(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	done, err := svc.Run(ctx, Record{CompanyID: 1, Kind: "orders", FileName: "orders.csv"}, "csv", writeLines(1))
	require.NoError(t, err)
	pending, err := repo.Create(ctx, Record{CompanyID: 1, Kind: "orders", FileName: "later.csv"})
	require.NoError(t, err)

	own := int64(1)
	_, body, err := svc.Open(ctx, done.ID, &own)
	require.NoError(t, err)
	data, _ := io.ReadAll(body)
	_ = body.Close()
	require.Equal(t, "row-0\n", string(data))

	other := int64(2)
	_, _, err = svc.Open(ctx, done.ID, &other)
	require.ErrorIs(t, err, httpx.ErrNotFound)

	_, _, err = svc.Open(ctx, pending.ID, nil)
	require.ErrorIs(t, err, ErrNotReady)
}

func TestStoreRejectsTraversal(t *testing.T) {
	store := NewStore(t.TempDir())
	for _, path := range []string{"../etc/passwd", "..", ".", "/", "sub/file.csv", ""} {
		_, err := store.Open(path)
		require.Error(t, err, path)
		require.Error(t, store.Remove(path), path)
	}
	require.NoError(t, store.Remove("gone.csv"))
}

type grants map[int64][]string

func (g grants) EffectivePermissions(_ context.Context, userID int64) ([]string, error) {
	return g[userID], nil
}

func TestHandlerListAndDownload(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	rec, err := svc.Run(ctx, Record{CompanyID: 1, Kind: "orders", FileName: "orders-20250310.csv"}, "csv", writeLines(2))
	require.NoError(t, err)
	_, err = svc.Run(ctx, Record{CompanyID: 2, Kind: "orders", FileName: "other.csv"}, "csv", writeLines(1))
	require.NoError(t, err)

	m := rbac.Middleware{Service: grants{1: {shared.PermOrdersExport}}}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess := &shared.Session{}
			sess.SetPrincipal(shared.Principal{UserID: 1, CompanyID: 1})
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
		})
	})
	r.Route("/exports", NewHandler(nil, svc, m).MountRoutes)

	res := httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/exports", nil))
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), `"orders-20250310.csv"`)
	require.NotContains(t, res.Body.String(), `"other.csv"`)

	res = httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/exports/%d/download", rec.ID), nil))
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Header().Get("Content-Disposition"), "orders-20250310.csv")
	require.Equal(t, "row-0\nrow-1\n", res.Body.String())

	res = httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/exports/2/download", nil))
	require.Equal(t, http.StatusNotFound, res.Code)
}

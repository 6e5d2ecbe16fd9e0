package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/mini-erp/telecrm/internal/exports"
	jobmetrics "github.com/mini-erp/telecrm/internal/jobs"
	"github.com/mini-erp/telecrm/internal/orders"
	"github.com/mini-erp/telecrm/internal/shared"
)

type stubLots struct{ calls int }

func (s *stubLots) ExpireLots(context.Context) (int64, int64, error) {
	s.calls++
	return 2, 1, nil
}

type stubCustomers struct {
	released, regraded int
	fail               error
}

func (s *stubCustomers) ReleaseExpired(context.Context) (int64, error) {
	s.released++
	return 4, s.fail
}

func (s *stubCustomers) RefreshGrades(context.Context) (int64, error) {
	s.regraded++
	return 1, nil
}

type stubKeys struct{ olderThan time.Duration }

func (s *stubKeys) Cleanup(_ context.Context, olderThan time.Duration) (int64, error) {
	s.olderThan = olderThan
	return 5, nil
}

func testMetrics() *jobmetrics.Metrics {
	return jobmetrics.NewMetrics(prometheus.NewRegistry())
}

func TestMaintenanceHandlers(t *testing.T) {
	lots, customers, keys := &stubLots{}, &stubCustomers{}, &stubKeys{}
	j := &MaintenanceJobs{Lots: lots, Customers: customers, Idempotency: keys, Metrics: testMetrics()}
	ctx := context.Background()

	require.Len(t, j.Handlers(), 3)
	require.NoError(t, j.HandleLotsExpire(ctx, NewLotsExpireTask()))
	require.Equal(t, 1, lots.calls)

	require.NoError(t, j.HandleOwnershipSweep(ctx, NewOwnershipSweepTask()))
	require.Equal(t, 1, customers.released)
	require.Equal(t, 1, customers.regraded)

	task, err := NewIdempotencyCleanupTask(48 * time.Hour)
	require.NoError(t, err)
	require.NoError(t, j.HandleIdempotencyCleanup(ctx, task))
	require.Equal(t, 48*time.Hour, keys.olderThan)

	require.NoError(t, j.HandleIdempotencyCleanup(ctx, asynq.NewTask(TaskIdempotencyCleanup, nil)))
	require.Equal(t, 24*time.Hour, keys.olderThan)
}

func TestOwnershipSweepStopsOnError(t *testing.T) {
	customers := &stubCustomers{fail: errors.New("db down")}
	j := &MaintenanceJobs{Customers: customers, Metrics: testMetrics()}
	require.EqualError(t, j.HandleOwnershipSweep(context.Background(), NewOwnershipSweepTask()), "db down")
	require.Zero(t, customers.regraded)
}

type stubOrders struct{ format string }

func (s *stubOrders) ExportCSV(_ context.Context, _ shared.ListParams, f orders.Filters, out io.Writer) (int, error) {
	s.format = "csv"
	_, err := io.WriteString(out, "id\n"+f.Status+"\n")
	return 1, err
}

func (s *stubOrders) ExportXLSX(context.Context, shared.ListParams, orders.Filters, io.Writer) (int, error) {
	s.format = "xlsx"
	return 0, nil
}

type stubHistory struct {
	rec  exports.Record
	ext  string
	body bytes.Buffer
}

func (s *stubHistory) Run(_ context.Context, rec exports.Record, ext string, write func(io.Writer) (int, error)) (exports.Record, error) {
	n, err := write(&s.body)
	rec.ID, rec.RowCount, rec.Status = 9, n, exports.StatusDone
	s.rec, s.ext = rec, ext
	return rec, err
}

func TestOrderExportJob(t *testing.T) {
	exporter, history := &stubOrders{}, &stubHistory{}
	job := NewOrderExportJob(exporter, history, nil, testMetrics())
	job.clock = func() time.Time { return time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC) }

	task, err := NewOrderExportTask(orders.ExportRequest{
		Filters:     orders.Filters{Status: "Pending"},
		CompanyID:   1,
		RequestedBy: 3,
	})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	require.Equal(t, "csv", exporter.format)
	require.Equal(t, "csv", history.ext)
	require.Equal(t, "orders-20250310-143000.csv", history.rec.FileName)
	require.Equal(t, int64(3), *history.rec.CreatedBy)
	require.Equal(t, "id\nPending\n", history.body.String())

	body, _ := json.Marshal(orders.ExportRequest{Format: "xlsx", CompanyID: 1})
	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskOrderExport, body)))
	require.Equal(t, "xlsx", exporter.format)
}

func TestOrderExportRejectsBadPayload(t *testing.T) {
	job := NewOrderExportJob(&stubOrders{}, &stubHistory{}, nil, testMetrics())
	err := job.Handle(context.Background(), asynq.NewTask(TaskOrderExport, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	body, _ := json.Marshal(orders.ExportRequest{})
	err = job.Handle(context.Background(), asynq.NewTask(TaskOrderExport, body))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

type stubInspector struct {
	queues []string
	err    error
}

func (s stubInspector) Queues() ([]string, error) { return s.queues, s.err }

func (s stubInspector) GetQueueInfo(name string) (*asynq.QueueInfo, error) {
	return &asynq.QueueInfo{Queue: name, Pending: 3}, nil
}

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(stubInspector{queues: []string{QueueDefault}}, nil).health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"queues":[{"queue":"default","pending":3,"active":0,"failed":0}]}`, rec.Body.String())

	rec = httptest.NewRecorder()
	NewHandler(stubInspector{err: errors.New("redis down")}, nil).health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

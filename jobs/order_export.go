package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mini-erp/telecrm/internal/exports"
	jobmetrics "github.com/mini-erp/telecrm/internal/jobs"
	"github.com/mini-erp/telecrm/internal/orders"
	"github.com/mini-erp/telecrm/internal/shared"
)

// OrderExporter writes order rows to a file.
type OrderExporter interface {
	ExportCSV(ctx context.Context, params shared.ListParams, f orders.Filters, out io.Writer) (int, error)
	ExportXLSX(ctx context.Context, params shared.ListParams, f orders.Filters, out io.Writer) (int, error)
}

// ExportRecorder records an export run in history.
type ExportRecorder interface {
	Run(ctx context.Context, rec exports.Record, ext string, write func(io.Writer) (int, error)) (exports.Record, error)
}

// OrderExportJob handles TaskOrderExport.
type OrderExportJob struct {
	Orders  OrderExporter
	History ExportRecorder
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewOrderExportJob wires the export job.
func NewOrderExportJob(orders OrderExporter, history ExportRecorder, logger *slog.Logger, metrics *jobmetrics.Metrics) *OrderExportJob {
	return &OrderExportJob{Orders: orders, History: history, Logger: logger, Metrics: metrics, clock: time.Now}
}

// Handle runs one export request.
func (j *OrderExportJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Orders == nil || j.History == nil {
		return errors.New("order export: not configured")
	}
	var req orders.ExportRequest
	if err := json.Unmarshal(t.Payload(), &req); err != nil {
		return fmt.Errorf("order export payload: %v: %w", err, asynq.SkipRetry)
	}
	if req.CompanyID == 0 {
		return fmt.Errorf("order export: company required: %w", asynq.SkipRetry)
	}
	ext := req.Format
	if ext != "xlsx" {
		ext = "csv"
	}

	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskOrderExport)
	defer func() { err = tracker.End(err) }()

	write := func(out io.Writer) (int, error) {
		if ext == "xlsx" {
			return j.Orders.ExportXLSX(ctx, req.Params, req.Filters, out)
		}
		return j.Orders.ExportCSV(ctx, req.Params, req.Filters, out)
	}
	rec := exports.Record{
		CompanyID: req.CompanyID,
		Kind:      "orders",
		FileName:  fmt.Sprintf("orders-%s.%s", j.now().Format("20060102-150405"), ext),
	}
	if req.RequestedBy > 0 {
		rec.CreatedBy = &req.RequestedBy
	}
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("job", TaskOrderExport), slog.Int64("company_id", req.CompanyID))

	rec, err = j.History.Run(ctx, rec, ext, write)
	if err != nil {
		logger.Error("order export failed", slog.Int64("export_id", rec.ID), slog.Any("error", err))
		return err
	}
	metrics.AddAffected(TaskOrderExport, "orders", int64(rec.RowCount))
	logger.Info("order export done", slog.Int64("export_id", rec.ID), slog.Int("rows", rec.RowCount))
	return nil
}

func (j *OrderExportJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now()
}

package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/mini-erp/telecrm/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// LotExpirer persists derived lot statuses.
type LotExpirer interface {
	ExpireLots(ctx context.Context) (expired, depleted int64, err error)
}

// OwnershipSweeper releases lapsed customer ownership and recomputes grades.
type OwnershipSweeper interface {
	ReleaseExpired(ctx context.Context) (int64, error)
	RefreshGrades(ctx context.Context) (int64, error)
}

// KeyCleaner drops idempotency keys older than a retention window.
type KeyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// MaintenanceJobs handles the scheduled housekeeping tasks.
type MaintenanceJobs struct {
	Lots        LotExpirer
	Customers   OwnershipSweeper
	Idempotency KeyCleaner
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
}

// Handlers lists the task handlers for the worker.
func (j *MaintenanceJobs) Handlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskLotsExpire, Handler: j.HandleLotsExpire},
		{Type: TaskOwnershipSweep, Handler: j.HandleOwnershipSweep},
		{Type: TaskIdempotencyCleanup, Handler: j.HandleIdempotencyCleanup},
	}
}

// HandleLotsExpire marks expired and depleted lots.
func (j *MaintenanceJobs) HandleLotsExpire(ctx context.Context, _ *asynq.Task) (err error) {
	if j.Lots == nil {
		return errors.New("lots expire: not configured")
	}
	tracker := j.metrics().Track(TaskLotsExpire)
	defer func() { err = tracker.End(err) }()

	expired, depleted, err := j.Lots.ExpireLots(ctx)
	if err != nil {
		j.logger(TaskLotsExpire).Error("expire lots", slog.Any("error", err))
		return err
	}
	j.metrics().AddAffected(TaskLotsExpire, "lots_expired", expired)
	j.metrics().AddAffected(TaskLotsExpire, "lots_depleted", depleted)
	j.logger(TaskLotsExpire).Info("lots updated", slog.Int64("expired", expired), slog.Int64("depleted", depleted))
	return nil
}

// HandleOwnershipSweep returns lapsed customers to the pool and refreshes grades.
func (j *MaintenanceJobs) HandleOwnershipSweep(ctx context.Context, _ *asynq.Task) (err error) {
	if j.Customers == nil {
		return errors.New("ownership sweep: not configured")
	}
	tracker := j.metrics().Track(TaskOwnershipSweep)
	defer func() { err = tracker.End(err) }()

	logger := j.logger(TaskOwnershipSweep)
	released, err := j.Customers.ReleaseExpired(ctx)
	if err != nil {
		logger.Error("release expired ownership", slog.Any("error", err))
		return err
	}
	regraded, err := j.Customers.RefreshGrades(ctx)
	if err != nil {
		logger.Error("refresh grades", slog.Any("error", err))
		return err
	}
	j.metrics().AddAffected(TaskOwnershipSweep, "customers_released", released)
	j.metrics().AddAffected(TaskOwnershipSweep, "customers_regraded", regraded)
	logger.Info("ownership sweep done", slog.Int64("released", released), slog.Int64("regraded", regraded))
	return nil
}

// HandleIdempotencyCleanup removes stale idempotency keys.
func (j *MaintenanceJobs) HandleIdempotencyCleanup(ctx context.Context, t *asynq.Task) (err error) {
	if j.Idempotency == nil {
		return errors.New("idempotency cleanup: not configured")
	}
	var payload IdempotencyCleanupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	tracker := j.metrics().Track(TaskIdempotencyCleanup)
	defer func() { err = tracker.End(err) }()

	removed, err := j.Idempotency.Cleanup(ctx, payload.retention())
	if err != nil {
		j.logger(TaskIdempotencyCleanup).Error("cleanup idempotency keys", slog.Any("error", err))
		return err
	}
	j.metrics().AddAffected(TaskIdempotencyCleanup, "idempotency_keys", removed)
	return nil
}

func (j *MaintenanceJobs) logger(job string) *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", job))
	}
	return slog.Default().With(slog.String("job", job))
}

func (j *MaintenanceJobs) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

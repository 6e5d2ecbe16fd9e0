package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mini-erp/telecrm/internal/orders"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueExports runs user-requested exports.
	QueueExports = "exports"

	// TaskLotsExpire flags expired and depleted lots.
	TaskLotsExpire = "lots:expire"
	// TaskOwnershipSweep returns lapsed customers to the pool and refreshes grades.
	TaskOwnershipSweep = "customers:ownership-sweep"
	// TaskIdempotencyCleanup drops stale idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
	// TaskOrderExport writes an order export file.
	TaskOrderExport = "export:orders"
)

// IdempotencyCleanupPayload configures the retention window.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

func (p IdempotencyCleanupPayload) retention() time.Duration {
	if p.RetentionHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(p.RetentionHours) * time.Hour
}

// NewLotsExpireTask constructs the nightly lot expiry task.
func NewLotsExpireTask() *asynq.Task {
	return asynq.NewTask(TaskLotsExpire, nil, asynq.Queue(QueueDefault))
}

// NewOwnershipSweepTask constructs the nightly ownership sweep task.
func NewOwnershipSweepTask() *asynq.Task {
	return asynq.NewTask(TaskOwnershipSweep, nil, asynq.Queue(QueueDefault))
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(IdempotencyCleanupPayload{RetentionHours: int(retention / time.Hour)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}

// NewOrderExportTask constructs an on-demand order export.
func NewOrderExportTask(req orders.ExportRequest) (*asynq.Task, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderExport, body, asynq.Queue(QueueExports), asynq.MaxRetry(2), asynq.Timeout(10*time.Minute)), nil
}

package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReorderScan walks the low-stock view and reports items below
	// their reorder point.
	TaskReorderScan = "inventory:reorder_scan"
	// TaskIdempotencyCleanup prunes aged idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// ReorderScanPayload scopes a reorder scan. LocationID zero scans everywhere.
type ReorderScanPayload struct {
	LocationID int64 `json:"location_id"`
}

// NewReorderScanTask constructs an Asynq task.
func NewReorderScanTask(locationID int64) (*asynq.Task, error) {
	data, err := json.Marshal(ReorderScanPayload{LocationID: locationID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReorderScan, data), nil
}

// IdempotencyCleanupPayload carries the retention window.
type IdempotencyCleanupPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewIdempotencyCleanupTask constructs an Asynq task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyCleanupPayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}

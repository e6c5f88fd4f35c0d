package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/stockroom-app/stockroom/internal/ledger"
)

// LowStockLister reads the derived low-stock view.
type LowStockLister interface {
	LowStock(ctx context.Context, locationID int64) ([]ledger.BalanceView, error)
}

// ReorderScanJob reports balances at or below their reorder point so buyers
// can raise purchase orders. It reads the same projection the API serves.
type ReorderScanJob struct {
	Ledger LowStockLister
	Logger *slog.Logger
}

// NewReorderScanJob initialises the reorder scan handler.
func NewReorderScanJob(ledgerService LowStockLister, logger *slog.Logger) *ReorderScanJob {
	return &ReorderScanJob{Ledger: ledgerService, Logger: logger}
}

// Handle executes the reorder scan.
func (j *ReorderScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Ledger == nil {
		return errors.New("reorder scan: handler not configured")
	}
	var payload ReorderScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	start := time.Now()
	logger := j.logger().With(slog.Int64("location_id", payload.LocationID))
	logger.Info("starting reorder scan")

	low, err := j.Ledger.LowStock(ctx, payload.LocationID)
	if err != nil {
		logger.Error("reorder scan failed", slog.Any("error", err))
		return err
	}

	for _, view := range low {
		logger.Warn("item below reorder point",
			slog.Int64("item_id", view.ItemID),
			slog.Int64("location_id", view.LocationID),
			slog.Int64("quantity", view.Quantity),
		)
	}

	logger.Info("completed reorder scan",
		slog.Int("below_reorder", len(low)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (j *ReorderScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

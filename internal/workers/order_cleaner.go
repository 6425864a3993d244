package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/fincubator/booker/internal/core/ports"
)

// OrderCleaner periodically purges settled orders past the retention window,
// removing each order row before its two transaction rows.
type OrderCleaner struct {
	logger       *slog.Logger
	orderService ports.OrderService

	// Settled orders older than this are removed.
	retention time.Duration

	// How often to run the cleanup process.
	cleanupInterval time.Duration
}

// NewOrderCleaner creates a new order cleaner worker.
func NewOrderCleaner(
	logger *slog.Logger,
	orderService ports.OrderService,
	retention time.Duration,
	cleanupInterval time.Duration,
) *OrderCleaner {
	return &OrderCleaner{
		logger:          logger,
		orderService:    orderService,
		retention:       retention,
		cleanupInterval: cleanupInterval,
	}
}

// Start begins the periodic cleanup of settled orders.
func (oc *OrderCleaner) Start(ctx context.Context) {
	oc.logger.Info("Starting order cleaner worker",
		"retention", oc.retention.String(),
		"cleanup_interval", oc.cleanupInterval.String())

	// Run an initial cleanup immediately
	if err := oc.cleanupSettledOrders(ctx); err != nil {
		oc.logger.Error("Initial order cleanup failed", "error", err)
	}

	ticker := time.NewTicker(oc.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			oc.logger.Info("Order cleaner worker stopped")
			return
		case <-ticker.C:
			if err := oc.cleanupSettledOrders(ctx); err != nil {
				oc.logger.Error("Order cleanup failed", "error", err)
			}
		}
	}
}

func (oc *OrderCleaner) cleanupSettledOrders(ctx context.Context) error {
	oc.logger.Debug("Starting cleanup of settled orders", "older_than", oc.retention.String())

	count, err := oc.orderService.PurgeSettledOrders(ctx, oc.retention)
	if err != nil {
		return err
	}

	if count > 0 {
		oc.logger.Info("Removed settled orders", "count", count, "older_than", oc.retention.String())
	} else {
		oc.logger.Debug("No settled orders to remove")
	}

	return nil
}

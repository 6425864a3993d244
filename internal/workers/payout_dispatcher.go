package workers

import (
	"context"
	"log/slog"
	"time"

	"go.openly.dev/pointy"

	"github.com/fincubator/booker/internal/core/ports"
	"github.com/fincubator/booker/internal/entities"
)

// PayoutDispatcher polls the settlement selection and dispatches payouts for
// ready orders. Rows are claimed with skip-locked selection, so any number of
// dispatcher instances can run side by side without double-dispatch.
type PayoutDispatcher struct {
	logger   *slog.Logger
	orders   ports.OrderService
	sender   ports.PayoutSender
	notifier ports.OrderNotifier

	pollInterval time.Duration
	batchSize    int
}

func NewPayoutDispatcher(
	logger *slog.Logger,
	orders ports.OrderService,
	sender ports.PayoutSender,
	notifier ports.OrderNotifier,
	pollInterval time.Duration,
	batchSize int,
) *PayoutDispatcher {
	if batchSize <= 0 {
		batchSize = ports.DefaultPayoutBatchSize
	}

	return &PayoutDispatcher{
		logger:       logger,
		orders:       orders,
		sender:       sender,
		notifier:     notifier,
		pollInterval: pollInterval,
		batchSize:    batchSize,
	}
}

// Start runs the dispatch loop until the context is cancelled.
func (d *PayoutDispatcher) Start(ctx context.Context) {
	d.logger.Info("Starting payout dispatcher",
		"poll_interval", d.pollInterval.String(),
		"batch_size", d.batchSize)

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Payout dispatcher stopped")
			return
		case <-ticker.C:
			if err := d.dispatchReadyOrders(ctx); err != nil {
				d.logger.Error("Payout dispatch tick failed", "error", err)
			}
		}
	}
}

// dispatchReadyOrders claims a batch of ready orders and, while the claim is
// held, broadcasts each payout and records its tx_id. A committed claim
// leaves every dispatched order outside the ready set; a sender failure
// leaves that order unchanged for the next tick.
func (d *PayoutDispatcher) dispatchReadyOrders(ctx context.Context) error {
	return d.orders.ClaimReadyOrders(ctx, d.batchSize, func(ctx context.Context, views []entities.OrderView) error {
		for _, view := range views {
			txHash, err := d.sender.SendPayout(ctx, view)
			if err != nil {
				d.logger.Error("Failed to send payout", "order_id", view.OrderID, "error", err)
				continue
			}

			patch := entities.OrderPatch{
				OrderID: view.OrderID,
				OutTx:   &entities.TransactionPatch{TxHash: pointy.String(txHash)},
			}
			if err = d.orders.UpdateOrder(ctx, patch); err != nil {
				// The payout is on chain but the hash is not recorded; abort
				// the claim so nothing else in the batch commits half-done.
				return err
			}

			d.logger.Info("Payout dispatched", "order_id", view.OrderID, "tx_hash", txHash)

			if d.notifier != nil {
				d.notifier.NotifyOrderSettled(view, txHash)
			}
		}

		return nil
	})
}

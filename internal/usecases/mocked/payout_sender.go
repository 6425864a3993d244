package mocked

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/fincubator/booker/internal/entities"
)

// PayoutSender is a dry-run stand-in for a blockchain gateway. It never
// touches a chain: it logs the would-be payout and fabricates a hash, so the
// dispatch pipeline can run end to end in dev environments.
type PayoutSender struct {
	logger *slog.Logger
}

func NewPayoutSender(logger *slog.Logger) *PayoutSender {
	return &PayoutSender{logger: logger}
}

func (s *PayoutSender) SendPayout(_ context.Context, order entities.OrderView) (string, error) {
	txHash := fmt.Sprintf("dry-run-%s", uuid.New())

	s.logger.Info("dry-run payout",
		"order_id", order.OrderID,
		"coin", order.OutTxCoin,
		"to", order.OutTxToAddress,
		"amount", order.OutTxAmount.String(),
		"tx_hash", txHash)

	return txHash, nil
}

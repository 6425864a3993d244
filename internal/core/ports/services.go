package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fincubator/booker/internal/entities"
)

// OrderService defines the order operations consumed by workers.
type OrderService interface {
	CreateOrder(ctx context.Context, inTx, outTx entities.Transaction, orderType entities.OrderType) (*entities.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*entities.OrderView, error)
	ListOrders(ctx context.Context) ([]entities.OrderView, error)
	OrdersReadyForPayout(ctx context.Context) ([]entities.OrderView, error)
	ClaimReadyOrders(ctx context.Context, limit int, fn func(context.Context, []entities.OrderView) error) error
	UpdateOrder(ctx context.Context, patch entities.OrderPatch) error
	DeleteOrder(ctx context.Context, id uuid.UUID) error
	PurgeSettledOrders(ctx context.Context, olderThan time.Duration) (int64, error)
}

// TransactionService defines the transaction-leg operations consumed by the
// blockchain watcher and workers.
type TransactionService interface {
	RecordTransaction(ctx context.Context, t entities.Transaction) error
	UpdateTransaction(ctx context.Context, t entities.Transaction) error
	GetTransactionByHash(ctx context.Context, txHash string) (*entities.Transaction, error)
	RemoveTransaction(ctx context.Context, id uuid.UUID) error
}

// PayoutSender broadcasts a payout for a claimed order and returns the chain
// transaction hash. Real implementations talk to a blockchain gateway; this
// core only defines the boundary.
type PayoutSender interface {
	SendPayout(ctx context.Context, order entities.OrderView) (string, error)
}

// OrderNotifier pushes order lifecycle events to connected consumers.
type OrderNotifier interface {
	NotifyOrderSettled(order entities.OrderView, txHash string)
}

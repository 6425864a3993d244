package usecases

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fincubator/booker/internal/entities"
)

type OrdersRepository interface {
	InsertOrder(ctx context.Context, o entities.Order) error
	DeleteOrder(ctx context.Context, id uuid.UUID) error
	FindOrderByID(ctx context.Context, id uuid.UUID) (*entities.OrderView, error)
	FindAllOrders(ctx context.Context) ([]entities.OrderView, error)
	SelectOrdersToProcess(ctx context.Context) ([]entities.OrderView, error)
	ClaimOrdersToProcess(ctx context.Context, limit int, fn func(context.Context, []entities.OrderView) error) error
	SafeInsertOrder(ctx context.Context, inTx, outTx entities.Transaction, o entities.Order) error
	SafeUpdateOrder(ctx context.Context, patch entities.OrderPatch) error
	RemoveSettledOrdersBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type OrderService struct {
	repo OrdersRepository
}

func NewOrderService(repo OrdersRepository) *OrderService {
	return &OrderService{repo: repo}
}

// CreateOrder assigns ids where missing and writes both legs and the order
// all-or-nothing.
func (s *OrderService) CreateOrder(ctx context.Context, inTx, outTx entities.Transaction, orderType entities.OrderType) (*entities.Order, error) {
	now := time.Now().UTC()

	if inTx.ID == uuid.Nil {
		inTx.ID = uuid.New()
	}
	if outTx.ID == uuid.Nil {
		outTx.ID = uuid.New()
	}
	if inTx.CreatedAt.IsZero() {
		inTx.CreatedAt = now
	}
	if outTx.CreatedAt.IsZero() {
		outTx.CreatedAt = now
	}

	order := entities.Order{
		ID:        uuid.New(),
		InTxID:    inTx.ID,
		OutTxID:   outTx.ID,
		OrderType: orderType,
	}

	if err := s.repo.SafeInsertOrder(ctx, inTx, outTx, order); err != nil {
		return nil, err
	}

	return &order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*entities.OrderView, error) {
	return s.repo.FindOrderByID(ctx, id)
}

func (s *OrderService) ListOrders(ctx context.Context) ([]entities.OrderView, error) {
	return s.repo.FindAllOrders(ctx)
}

func (s *OrderService) OrdersReadyForPayout(ctx context.Context) ([]entities.OrderView, error) {
	return s.repo.SelectOrdersToProcess(ctx)
}

func (s *OrderService) ClaimReadyOrders(ctx context.Context, limit int, fn func(context.Context, []entities.OrderView) error) error {
	return s.repo.ClaimOrdersToProcess(ctx, limit, fn)
}

func (s *OrderService) UpdateOrder(ctx context.Context, patch entities.OrderPatch) error {
	return s.repo.SafeUpdateOrder(ctx, patch)
}

func (s *OrderService) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteOrder(ctx, id)
}

func (s *OrderService) PurgeSettledOrders(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.repo.RemoveSettledOrdersBefore(ctx, time.Now().UTC().Add(-olderThan))
}

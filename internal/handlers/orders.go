package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fincubator/booker/internal/entities"
)

type OrderService interface {
	CreateOrder(ctx context.Context, inTx, outTx entities.Transaction, orderType entities.OrderType) (*entities.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*entities.OrderView, error)
	ListOrders(ctx context.Context) ([]entities.OrderView, error)
	OrdersReadyForPayout(ctx context.Context) ([]entities.OrderView, error)
	UpdateOrder(ctx context.Context, patch entities.OrderPatch) error
	DeleteOrder(ctx context.Context, id uuid.UUID) error
}

// createOrderRequest carries both legs of a new order across the wire.
type createOrderRequest struct {
	OrderType string         `json:"order_type"`
	InTx      TransactionDTO `json:"in_tx"`
	OutTx     TransactionDTO `json:"out_tx"`
}

// orderViewResponse is the flattened projection plus its derived state.
type orderViewResponse struct {
	entities.OrderView
	State entities.OrderState `json:"state"`
}

func orderViewToResponse(v entities.OrderView) orderViewResponse {
	return orderViewResponse{OrderView: v, State: v.State()}
}

func orderViewsToResponse(views []entities.OrderView) []orderViewResponse {
	out := make([]orderViewResponse, 0, len(views))
	for _, v := range views {
		out = append(out, orderViewToResponse(v))
	}
	return out
}

// transactionPatchDTO mirrors entities.TransactionPatch on the wire; absent
// fields stay absent.
type transactionPatchDTO struct {
	Coin             *string    `json:"coin,omitempty"`
	TxHash           *string    `json:"tx_id,omitempty"`
	FromAddress      *string    `json:"from_address,omitempty"`
	ToAddress        *string    `json:"to_address,omitempty"`
	Amount           *string    `json:"amount,omitempty"`
	CreatedAt        *time.Time `json:"created_at,omitempty"`
	Error            *string    `json:"error,omitempty"`
	Confirmations    *int64     `json:"confirmations,omitempty"`
	MaxConfirmations *int64     `json:"max_confirmations,omitempty"`
}

type orderPatchRequest struct {
	InTx  *transactionPatchDTO `json:"in_tx,omitempty"`
	OutTx *transactionPatchDTO `json:"out_tx,omitempty"`
}

func (d *transactionPatchDTO) toEntity() (*entities.TransactionPatch, error) {
	if d == nil {
		return nil, nil
	}

	p := &entities.TransactionPatch{
		Coin:             d.Coin,
		TxHash:           d.TxHash,
		FromAddress:      d.FromAddress,
		ToAddress:        d.ToAddress,
		CreatedAt:        d.CreatedAt,
		Confirmations:    d.Confirmations,
		MaxConfirmations: d.MaxConfirmations,
	}

	if d.Amount != nil {
		amount, err := decimal.NewFromString(*d.Amount)
		if err != nil {
			return nil, fmt.Errorf("invalid amount %q: %w", *d.Amount, err)
		}
		p.Amount = &amount
	}
	if d.Error != nil {
		txError, err := entities.ParseTxError(*d.Error)
		if err != nil {
			return nil, err
		}
		p.Error = &txError
	}

	return p, nil
}

func (r orderPatchRequest) toEntity(orderID uuid.UUID) (entities.OrderPatch, error) {
	inTx, err := r.InTx.toEntity()
	if err != nil {
		return entities.OrderPatch{}, err
	}
	outTx, err := r.OutTx.toEntity()
	if err != nil {
		return entities.OrderPatch{}, err
	}

	return entities.OrderPatch{OrderID: orderID, InTx: inTx, OutTx: outTx}, nil
}

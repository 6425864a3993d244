package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderType distinguishes the flow an order belongs to.
type OrderType string

const (
	OrderTypeDeposit    OrderType = "DEPOSIT"
	OrderTypeWithdrawal OrderType = "WITHDRAWAL"
	OrderTypeTransfer   OrderType = "TRANSFER"
)

// ParseOrderType converts a wire/storage value into an OrderType.
func ParseOrderType(s string) (OrderType, error) {
	switch t := OrderType(s); t {
	case OrderTypeDeposit, OrderTypeWithdrawal, OrderTypeTransfer:
		return t, nil
	}
	return "", fmt.Errorf("unknown order type value %q", s)
}

func (t OrderType) String() string { return string(t) }

// Order links exactly one deposit transaction to exactly one payout
// transaction. Its lifecycle state is not stored: it is derived from the
// fields of the two legs, see OrderView.State.
type Order struct {
	ID        uuid.UUID `db:"id" json:"id"`
	InTxID    uuid.UUID `db:"in_tx" json:"in_tx"`
	OutTxID   uuid.UUID `db:"out_tx" json:"out_tx"`
	OrderType OrderType `db:"order_type" json:"order_type"`
}

// OrderState is the derived lifecycle state of an order.
type OrderState string

const (
	OrderStatePendingDeposit OrderState = "PENDING_DEPOSIT"
	OrderStatePendingPayout  OrderState = "PENDING_PAYOUT"
	OrderStateSettled        OrderState = "SETTLED"
	OrderStateFailed         OrderState = "FAILED"
)

// OrderView is the denormalized projection of an order joined with both of
// its transactions, flat so consumers avoid a second round of lookups.
type OrderView struct {
	OrderID   uuid.UUID `db:"order_id" json:"order_id"`
	OrderType OrderType `db:"order_type" json:"order_type"`

	InTxID              uuid.UUID       `db:"in_tx_id" json:"in_tx_id"`
	InTxCoin            string          `db:"in_tx_coin" json:"in_tx_coin"`
	InTxHash            *string         `db:"in_tx_hash" json:"in_tx_hash"`
	InTxFromAddress     string          `db:"in_tx_from_address" json:"in_tx_from_address"`
	InTxToAddress       string          `db:"in_tx_to_address" json:"in_tx_to_address"`
	InTxAmount          decimal.Decimal `db:"in_tx_amount" json:"in_tx_amount"`
	InTxCreatedAt       time.Time       `db:"in_tx_created_at" json:"in_tx_created_at"`
	InTxError           TxError         `db:"in_tx_error" json:"in_tx_error"`
	InTxConfirmations   int64           `db:"in_tx_confirmations" json:"in_tx_confirmations"`
	InTxMaxConfirmations int64           `db:"in_tx_max_confirmations" json:"in_tx_max_confirmations"`

	OutTxID              uuid.UUID       `db:"out_tx_id" json:"out_tx_id"`
	OutTxCoin            string          `db:"out_tx_coin" json:"out_tx_coin"`
	OutTxHash            *string         `db:"out_tx_hash" json:"out_tx_hash"`
	OutTxFromAddress     string          `db:"out_tx_from_address" json:"out_tx_from_address"`
	OutTxToAddress       string          `db:"out_tx_to_address" json:"out_tx_to_address"`
	OutTxAmount          decimal.Decimal `db:"out_tx_amount" json:"out_tx_amount"`
	OutTxCreatedAt       time.Time       `db:"out_tx_created_at" json:"out_tx_created_at"`
	OutTxError           TxError         `db:"out_tx_error" json:"out_tx_error"`
	OutTxConfirmations   int64           `db:"out_tx_confirmations" json:"out_tx_confirmations"`
	OutTxMaxConfirmations int64           `db:"out_tx_max_confirmations" json:"out_tx_max_confirmations"`
}

// State derives the lifecycle state of the order from its two legs.
// A deposit error is an absolute veto: it wins over any confirmation state.
func (v OrderView) State() OrderState {
	switch {
	case v.InTxError != TxErrorNoError:
		return OrderStateFailed
	case v.InTxConfirmations < v.InTxMaxConfirmations:
		return OrderStatePendingDeposit
	case v.OutTxHash != nil:
		return OrderStateSettled
	default:
		return OrderStatePendingPayout
	}
}

// ReadyForPayout reports whether the order would be returned by the
// settlement selection query: deposit confirmed, error-free, payout not yet
// dispatched.
func (v OrderView) ReadyForPayout() bool {
	return v.State() == OrderStatePendingPayout
}

package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionPatch is a merge-patch over a single transaction row. Nil fields
// are left unchanged; set fields replace the stored value.
type TransactionPatch struct {
	Coin             *string          `json:"coin,omitempty"`
	TxHash           *string          `json:"tx_id,omitempty"`
	FromAddress      *string          `json:"from_address,omitempty"`
	ToAddress        *string          `json:"to_address,omitempty"`
	Amount           *decimal.Decimal `json:"amount,omitempty"`
	CreatedAt        *time.Time       `json:"created_at,omitempty"`
	Error            *TxError         `json:"error,omitempty"`
	Confirmations    *int64           `json:"confirmations,omitempty"`
	MaxConfirmations *int64           `json:"max_confirmations,omitempty"`
}

// IsZero reports whether the patch carries no fields at all.
func (p *TransactionPatch) IsZero() bool {
	if p == nil {
		return true
	}
	return p.Coin == nil && p.TxHash == nil && p.FromAddress == nil &&
		p.ToAddress == nil && p.Amount == nil && p.CreatedAt == nil &&
		p.Error == nil && p.Confirmations == nil && p.MaxConfirmations == nil
}

// OrderPatch addresses an order and describes partial updates for one or both
// of its legs. At least one side must carry fields.
type OrderPatch struct {
	OrderID uuid.UUID         `json:"order_id"`
	InTx    *TransactionPatch `json:"in_tx,omitempty"`
	OutTx   *TransactionPatch `json:"out_tx,omitempty"`
}

// IsZero reports whether neither side carries any fields.
func (p OrderPatch) IsZero() bool {
	return p.InTx.IsZero() && p.OutTx.IsZero()
}

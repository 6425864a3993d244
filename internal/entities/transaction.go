package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TxError classifies a failure detected on one leg of an order. It is stored
// as a PostgreSQL enum and always round-trips back into this type, so callers
// can switch on it without touching raw column values.
type TxError string

const (
	TxErrorNoError           TxError = "NO_ERROR"
	TxErrorUnknownError      TxError = "UNKNOWN_ERROR"
	TxErrorAmountMismatch    TxError = "AMOUNT_MISMATCH"
	TxErrorDoubleSpend       TxError = "DOUBLE_SPEND"
	TxErrorValidationFailure TxError = "VALIDATION_FAILURE"
)

// ParseTxError converts a wire/storage value into a TxError, rejecting
// anything outside the closed set.
func ParseTxError(s string) (TxError, error) {
	switch e := TxError(s); e {
	case TxErrorNoError, TxErrorUnknownError, TxErrorAmountMismatch,
		TxErrorDoubleSpend, TxErrorValidationFailure:
		return e, nil
	}
	return "", fmt.Errorf("unknown tx error value %q", s)
}

func (e TxError) String() string { return string(e) }

// Transaction represents a single on-chain movement, either the deposit or
// the payout leg of an order.
type Transaction struct {
	ID               uuid.UUID       `db:"id" json:"id"`
	Coin             string          `db:"coin" json:"coin"`
	TxHash           *string         `db:"tx_id" json:"tx_id"`
	FromAddress      string          `db:"from_address" json:"from_address"`
	ToAddress        string          `db:"to_address" json:"to_address"`
	Amount           decimal.Decimal `db:"amount" json:"amount"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	Error            TxError         `db:"error" json:"error"`
	Confirmations    int64           `db:"confirmations" json:"confirmations"`
	MaxConfirmations int64           `db:"max_confirmations" json:"max_confirmations"`
}

// Confirmed reports whether the transaction reached its confirmation
// threshold. A max_confirmations of zero means confirmed immediately, which
// is how zero-conf payout legs are modelled.
func (t Transaction) Confirmed() bool {
	return t.Confirmations >= t.MaxConfirmations
}

// Dispatched reports whether the transaction has been broadcast to the chain.
// Dispatch is determined purely by tx_id presence, independent of
// confirmation thresholds.
func (t Transaction) Dispatched() bool {
	return t.TxHash != nil
}

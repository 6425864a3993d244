package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fincubator/booker/internal/entities"
)

type TransactionService interface {
	RecordTransaction(ctx context.Context, t entities.Transaction) error
	UpdateTransaction(ctx context.Context, t entities.Transaction) error
	GetTransactionByHash(ctx context.Context, txHash string) (*entities.Transaction, error)
	RemoveTransaction(ctx context.Context, id uuid.UUID) error
}

// TransactionDTO is the wire shape of a transaction leg. Amounts travel as
// decimal strings; the core itself only ever sees entities.
type TransactionDTO struct {
	ID               string     `json:"id,omitempty"`
	Coin             string     `json:"coin"`
	TxHash           *string    `json:"tx_id"`
	FromAddress      string     `json:"from_address"`
	ToAddress        string     `json:"to_address"`
	Amount           string     `json:"amount"`
	CreatedAt        *time.Time `json:"created_at,omitempty"`
	Error            string     `json:"error,omitempty"`
	Confirmations    int64      `json:"confirmations"`
	MaxConfirmations int64      `json:"max_confirmations"`
}

func (d TransactionDTO) toEntity() (entities.Transaction, error) {
	t := entities.Transaction{
		Coin:             d.Coin,
		TxHash:           d.TxHash,
		FromAddress:      d.FromAddress,
		ToAddress:        d.ToAddress,
		Confirmations:    d.Confirmations,
		MaxConfirmations: d.MaxConfirmations,
		Error:            entities.TxErrorNoError,
	}

	if d.ID != "" {
		id, err := uuid.Parse(d.ID)
		if err != nil {
			return entities.Transaction{}, fmt.Errorf("invalid transaction id %q: %w", d.ID, err)
		}
		t.ID = id
	}

	amount, err := decimal.NewFromString(d.Amount)
	if err != nil {
		return entities.Transaction{}, fmt.Errorf("invalid amount %q: %w", d.Amount, err)
	}
	t.Amount = amount

	if d.CreatedAt != nil {
		t.CreatedAt = *d.CreatedAt
	}

	if d.Error != "" {
		txError, err := entities.ParseTxError(d.Error)
		if err != nil {
			return entities.Transaction{}, err
		}
		t.Error = txError
	}

	return t, nil
}

func transactionToDTO(t entities.Transaction) TransactionDTO {
	createdAt := t.CreatedAt
	return TransactionDTO{
		ID:               t.ID.String(),
		Coin:             t.Coin,
		TxHash:           t.TxHash,
		FromAddress:      t.FromAddress,
		ToAddress:        t.ToAddress,
		Amount:           t.Amount.String(),
		CreatedAt:        &createdAt,
		Error:            t.Error.String(),
		Confirmations:    t.Confirmations,
		MaxConfirmations: t.MaxConfirmations,
	}
}

package usecases

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fincubator/booker/internal/entities"
)

type TransactionsRepository interface {
	InsertTransaction(ctx context.Context, t entities.Transaction) error
	UpdateTransaction(ctx context.Context, t entities.Transaction) error
	DeleteTransaction(ctx context.Context, id uuid.UUID) error
	FindTransactionByHash(ctx context.Context, txHash string) (*entities.Transaction, error)
}

type TransactionService struct {
	repo TransactionsRepository
}

func NewTransactionService(repo TransactionsRepository) *TransactionService {
	return &TransactionService{repo: repo}
}

// RecordTransaction stores a standalone transaction leg, assigning id and
// creation time where missing. The deposit-detection path uses it before the
// matching order exists.
func (s *TransactionService) RecordTransaction(ctx context.Context, t entities.Transaction) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.Error == "" {
		t.Error = entities.TxErrorNoError
	}

	return s.repo.InsertTransaction(ctx, t)
}

// UpdateTransaction replaces the stored row; the blockchain watcher calls it
// as confirmations accrue.
func (s *TransactionService) UpdateTransaction(ctx context.Context, t entities.Transaction) error {
	return s.repo.UpdateTransaction(ctx, t)
}

func (s *TransactionService) GetTransactionByHash(ctx context.Context, txHash string) (*entities.Transaction, error) {
	return s.repo.FindTransactionByHash(ctx, txHash)
}

func (s *TransactionService) RemoveTransaction(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteTransaction(ctx, id)
}

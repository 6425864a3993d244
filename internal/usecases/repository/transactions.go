package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tx "github.com/Thiht/transactor/pgx"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fincubator/booker/internal/entities"
	"github.com/fincubator/booker/pkg/database"
)

// TransactionsRepository persists the individual legs of orders.
type TransactionsRepository struct {
	logger *slog.Logger

	db         tx.DBGetter
	transactor *tx.Transactor
}

// NewTransactionsRepository creates a new transactions repository.
func NewTransactionsRepository(logger *slog.Logger, pg *database.Postgres) *TransactionsRepository {
	return &TransactionsRepository{
		logger:     logger,
		db:         pg.DBGetter,
		transactor: pg.Transactor,
	}
}

// InsertTransaction stores a new transaction row.
func (r *TransactionsRepository) InsertTransaction(ctx context.Context, t entities.Transaction) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO tx (id, coin, tx_id, from_address, to_address, amount, created_at, error, confirmations, max_confirmations)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.Coin, t.TxHash, t.FromAddress, t.ToAddress, t.Amount,
		t.CreatedAt, t.Error, t.Confirmations, t.MaxConfirmations)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", mapPgError(err))
	}

	r.logger.Debug("transaction inserted", "id", t.ID, "coin", t.Coin)

	return nil
}

// UpdateTransaction replaces every mutable column of the row identified by
// the transaction id. The blockchain watcher uses it to bump confirmations
// and to flag errors as chain events arrive.
func (r *TransactionsRepository) UpdateTransaction(ctx context.Context, t entities.Transaction) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE tx
		    SET coin = $2, tx_id = $3, from_address = $4, to_address = $5,
		        amount = $6, created_at = $7, error = $8, confirmations = $9, max_confirmations = $10
		  WHERE id = $1`,
		t.ID, t.Coin, t.TxHash, t.FromAddress, t.ToAddress, t.Amount,
		t.CreatedAt, t.Error, t.Confirmations, t.MaxConfirmations)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", mapPgError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update transaction %s: %w", t.ID, ErrNotFound)
	}

	r.logger.Debug("transaction updated", "id", t.ID, "confirmations", t.Confirmations)

	return nil
}

// DeleteTransaction removes a transaction row. The owning order must have
// been deleted first, or the foreign key will veto the delete.
func (r *TransactionsRepository) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db(ctx).Exec(ctx, "DELETE FROM tx WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", mapPgError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete transaction %s: %w", id, ErrNotFound)
	}

	return nil
}

// FindTransactionByHash looks up the single transaction carrying the given
// external chain hash. tx_id is unique among non-null values, so at most one
// row can match.
func (r *TransactionsRepository) FindTransactionByHash(ctx context.Context, txHash string) (*entities.Transaction, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT id, coin, tx_id, from_address, to_address, amount, created_at, error, confirmations, max_confirmations
		   FROM tx
		  WHERE tx_id = $1`,
		txHash)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction by hash: %w", err)
	}

	t, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[entities.Transaction])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("transaction with hash %q: %w", txHash, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to collect transaction row: %w", err)
	}

	return t, nil
}

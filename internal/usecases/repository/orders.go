package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	tx "github.com/Thiht/transactor/pgx"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fincubator/booker/internal/entities"
	"github.com/fincubator/booker/pkg/database"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// OrdersRepository persists orders and runs the compound write and
// settlement-selection operations.
type OrdersRepository struct {
	logger *slog.Logger

	db         tx.DBGetter
	transactor *tx.Transactor

	transactions *TransactionsRepository
}

// NewOrdersRepository creates a new orders repository.
func NewOrdersRepository(logger *slog.Logger, pg *database.Postgres, transactions *TransactionsRepository) *OrdersRepository {
	return &OrdersRepository{
		logger:       logger,
		db:           pg.DBGetter,
		transactor:   pg.Transactor,
		transactions: transactions,
	}
}

// orderViewQuery joins an order with both of its legs into the flat
// projection consumed by callers. Aliases must match the OrderView db tags.
func orderViewQuery() sq.SelectBuilder {
	return psql.Select(
		"o.id AS order_id",
		"o.order_type",
		"it.id AS in_tx_id",
		"it.coin AS in_tx_coin",
		"it.tx_id AS in_tx_hash",
		"it.from_address AS in_tx_from_address",
		"it.to_address AS in_tx_to_address",
		"it.amount AS in_tx_amount",
		"it.created_at AS in_tx_created_at",
		"it.error AS in_tx_error",
		"it.confirmations AS in_tx_confirmations",
		"it.max_confirmations AS in_tx_max_confirmations",
		"ot.id AS out_tx_id",
		"ot.coin AS out_tx_coin",
		"ot.tx_id AS out_tx_hash",
		"ot.from_address AS out_tx_from_address",
		"ot.to_address AS out_tx_to_address",
		"ot.amount AS out_tx_amount",
		"ot.created_at AS out_tx_created_at",
		"ot.error AS out_tx_error",
		"ot.confirmations AS out_tx_confirmations",
		"ot.max_confirmations AS out_tx_max_confirmations",
	).
		From("orders o").
		Join("tx it ON it.id = o.in_tx").
		Join("tx ot ON ot.id = o.out_tx")
}

// ordersToProcessQuery filters the projection down to the settlement rule:
// deposit fully confirmed, deposit error-free, payout not yet dispatched.
func ordersToProcessQuery() sq.SelectBuilder {
	return orderViewQuery().
		Where("it.confirmations >= it.max_confirmations").
		Where(sq.Eq{"it.error": entities.TxErrorNoError}).
		Where("ot.tx_id IS NULL").
		OrderBy("it.created_at", "o.id")
}

// InsertOrder stores a new order row. Both referenced transactions must
// already exist.
func (r *OrdersRepository) InsertOrder(ctx context.Context, o entities.Order) error {
	_, err := r.db(ctx).Exec(ctx,
		"INSERT INTO orders (id, in_tx, out_tx, order_type) VALUES ($1, $2, $3, $4)",
		o.ID, o.InTxID, o.OutTxID, o.OrderType)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", mapPgError(err))
	}

	r.logger.Debug("order inserted", "id", o.ID, "order_type", o.OrderType)

	return nil
}

// DeleteOrder removes the order row only. Its transactions stay behind and
// must be deleted afterwards, never before.
func (r *OrdersRepository) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db(ctx).Exec(ctx, "DELETE FROM orders WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", mapPgError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete order %s: %w", id, ErrNotFound)
	}

	return nil
}

// FindOrderByID returns the flattened projection of a single order.
func (r *OrdersRepository) FindOrderByID(ctx context.Context, id uuid.UUID) (*entities.OrderView, error) {
	query, args, err := orderViewQuery().Where(sq.Eq{"o.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build order query: %w", err)
	}

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	view, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[entities.OrderView])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to collect order row: %w", err)
	}

	return view, nil
}

// FindAllOrders returns the projection of every order, oldest deposit first.
func (r *OrdersRepository) FindAllOrders(ctx context.Context) ([]entities.OrderView, error) {
	return r.selectViews(ctx, orderViewQuery().OrderBy("it.created_at", "o.id"))
}

// SelectOrdersToProcess returns every order whose deposit is fully confirmed
// and error-free and whose payout has not been dispatched. The read takes no
// locks and is idempotent: re-running it before any payout is recorded
// returns the same set.
func (r *OrdersRepository) SelectOrdersToProcess(ctx context.Context) ([]entities.OrderView, error) {
	return r.selectViews(ctx, ordersToProcessQuery())
}

// ClaimOrdersToProcess runs the settlement selection with the payout legs
// locked (FOR UPDATE SKIP LOCKED) inside one database transaction and invokes
// fn on the claimed batch. Rows claimed by a concurrent caller are skipped,
// not waited on, so two dispatchers can never pick up the same order. The
// claim holds until fn returns: record the payout tx_id through the callback
// context so the row leaves the ready set before the locks drop.
func (r *OrdersRepository) ClaimOrdersToProcess(ctx context.Context, limit int, fn func(context.Context, []entities.OrderView) error) error {
	err := r.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		q := ordersToProcessQuery().Suffix("FOR UPDATE OF ot SKIP LOCKED")
		if limit > 0 {
			q = q.Limit(uint64(limit))
		}

		views, err := r.selectViews(ctx, q)
		if err != nil {
			return err
		}
		if len(views) == 0 {
			return nil
		}

		return fn(ctx, views)
	})
	if err != nil {
		return fmt.Errorf("claim orders to process: %w: %w", ErrTransactionAborted, err)
	}

	return nil
}

// SafeInsertOrder inserts the deposit leg, the payout leg and the order
// linking them inside one database transaction. If any insert fails the whole
// write rolls back: no order ever references a missing transaction and no
// orphan transaction pair survives a failed attempt.
func (r *OrdersRepository) SafeInsertOrder(ctx context.Context, inTx, outTx entities.Transaction, o entities.Order) error {
	err := r.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := r.transactions.InsertTransaction(ctx, inTx); err != nil {
			return err
		}
		if err := r.transactions.InsertTransaction(ctx, outTx); err != nil {
			return err
		}
		return r.InsertOrder(ctx, o)
	})
	if err != nil {
		return fmt.Errorf("safe insert order %s: %w: %w", o.ID, ErrTransactionAborted, err)
	}

	r.logger.Info("order created", "id", o.ID, "in_tx", o.InTxID, "out_tx", o.OutTxID, "order_type", o.OrderType)

	return nil
}

// SafeUpdateOrder applies a merge-patch to one or both legs of an order
// inside one database transaction. Only the fields set on the patch change;
// in practice this attaches a freshly broadcast payout hash or bumps the
// payout confirmation count without disturbing the deposit side.
func (r *OrdersRepository) SafeUpdateOrder(ctx context.Context, patch entities.OrderPatch) error {
	if patch.IsZero() {
		return fmt.Errorf("safe update order %s: %w", patch.OrderID, ErrInvalidPatch)
	}

	err := r.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		var inTxID, outTxID uuid.UUID

		err := r.db(ctx).QueryRow(ctx,
			"SELECT in_tx, out_tx FROM orders WHERE id = $1", patch.OrderID).
			Scan(&inTxID, &outTxID)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("order %s: %w", patch.OrderID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to resolve order legs: %w", err)
		}

		if !patch.InTx.IsZero() {
			if err = r.applyTransactionPatch(ctx, inTxID, patch.InTx); err != nil {
				return err
			}
		}
		if !patch.OutTx.IsZero() {
			if err = r.applyTransactionPatch(ctx, outTxID, patch.OutTx); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("safe update order %s: %w: %w", patch.OrderID, ErrTransactionAborted, err)
	}

	r.logger.Debug("order patched", "id", patch.OrderID)

	return nil
}

// RemoveSettledOrdersBefore deletes settled orders whose deposit was created
// before the cutoff, together with both legs. Each order row goes before its
// transactions so the foreign keys hold at every point.
func (r *OrdersRepository) RemoveSettledOrdersBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64

	err := r.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		rows, err := r.db(ctx).Query(ctx,
			`SELECT o.id, o.in_tx, o.out_tx
			   FROM orders o
			   JOIN tx it ON it.id = o.in_tx
			   JOIN tx ot ON ot.id = o.out_tx
			  WHERE ot.tx_id IS NOT NULL
			    AND ot.confirmations >= ot.max_confirmations
			    AND it.created_at < $1`,
			cutoff)
		if err != nil {
			return fmt.Errorf("failed to query settled orders: %w", err)
		}
		defer rows.Close()

		var orderIDs, txIDs []uuid.UUID
		for rows.Next() {
			var orderID, inTxID, outTxID uuid.UUID
			if err = rows.Scan(&orderID, &inTxID, &outTxID); err != nil {
				return fmt.Errorf("failed to scan settled order: %w", err)
			}
			orderIDs = append(orderIDs, orderID)
			txIDs = append(txIDs, inTxID, outTxID)
		}
		rows.Close()

		if len(orderIDs) == 0 {
			return nil
		}

		if _, err = r.db(ctx).Exec(ctx, "DELETE FROM orders WHERE id = ANY($1)", orderIDs); err != nil {
			return fmt.Errorf("failed to delete settled orders: %w", mapPgError(err))
		}
		if _, err = r.db(ctx).Exec(ctx, "DELETE FROM tx WHERE id = ANY($1)", txIDs); err != nil {
			return fmt.Errorf("failed to delete settled order legs: %w", mapPgError(err))
		}

		removed = int64(len(orderIDs))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("remove settled orders: %w: %w", ErrTransactionAborted, err)
	}

	return removed, nil
}

func (r *OrdersRepository) selectViews(ctx context.Context, q sq.SelectBuilder) ([]entities.OrderView, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build orders query: %w", err)
	}

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}

	views, err := pgx.CollectRows(rows, pgx.RowToStructByName[entities.OrderView])
	if err != nil {
		return nil, fmt.Errorf("failed to collect order rows: %w", err)
	}

	return views, nil
}

func (r *OrdersRepository) applyTransactionPatch(ctx context.Context, id uuid.UUID, p *entities.TransactionPatch) error {
	q := psql.Update("tx").Where(sq.Eq{"id": id})

	if p.Coin != nil {
		q = q.Set("coin", *p.Coin)
	}
	if p.TxHash != nil {
		q = q.Set("tx_id", *p.TxHash)
	}
	if p.FromAddress != nil {
		q = q.Set("from_address", *p.FromAddress)
	}
	if p.ToAddress != nil {
		q = q.Set("to_address", *p.ToAddress)
	}
	if p.Amount != nil {
		q = q.Set("amount", *p.Amount)
	}
	if p.CreatedAt != nil {
		q = q.Set("created_at", *p.CreatedAt)
	}
	if p.Error != nil {
		q = q.Set("error", *p.Error)
	}
	if p.Confirmations != nil {
		q = q.Set("confirmations", *p.Confirmations)
	}
	if p.MaxConfirmations != nil {
		q = q.Set("max_confirmations", *p.MaxConfirmations)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build transaction patch: %w", err)
	}

	tag, err := r.db(ctx).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to patch transaction: %w", mapPgError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("patch transaction %s: %w", id, ErrNotFound)
	}

	return nil
}

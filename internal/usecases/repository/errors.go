package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Failure taxonomy of the store. Every repository method returns one of these
// (wrapped) or nil; nothing is swallowed and nothing retries internally.
var (
	// ErrNotFound means a lookup by id or tx hash matched no row. Distinct
	// from an empty-but-valid result set.
	ErrNotFound = errors.New("not found")

	// ErrConstraintViolation means a uniqueness or referential integrity
	// breach, surfaced on insert or patch.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrTransactionAborted means a compound operation failed partway and was
	// rolled back before returning.
	ErrTransactionAborted = errors.New("transaction aborted")

	// ErrInvalidPatch means an order patch carried no fields on either side.
	ErrInvalidPatch = errors.New("patch has no fields to apply")
)

// SQLSTATE classes raised by the tx/orders schema constraints.
const (
	pgCodeUniqueViolation     = "23505"
	pgCodeForeignKeyViolation = "23503"
	pgCodeNotNullViolation    = "23502"
	pgCodeCheckViolation      = "23514"
)

// mapPgError translates driver-level failures into the typed taxonomy while
// keeping the original error in the chain.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgCodeUniqueViolation, pgCodeForeignKeyViolation,
			pgCodeNotNullViolation, pgCodeCheckViolation:
			return fmt.Errorf("%w: %s", ErrConstraintViolation, pgErr.Message)
		}
	}
	return err
}

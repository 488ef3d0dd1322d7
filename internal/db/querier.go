package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"hrengine/internal/apperror"
)

// Querier is the subset of pgx shared by *pgxpool.Pool, pgx.Tx and the
// pgxmock pool. Stores accept it so transactional and non-transactional
// callers use the same code paths.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool adds transaction support on top of Querier.
type Pool interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

const (
	lockNotAvailable  = "55P03"
	deadlockDetected  = "40P01"
	uniqueViolation   = "23505"
	checkViolation    = "23514"
	fkViolation       = "23503"
	defaultLockWindow = "SET LOCAL lock_timeout = '3s'"
)

var lockWindow = defaultLockWindow

// SetLockTimeout adjusts the bounded lock wait applied to every
// transaction. Zero or negative durations keep the default.
func SetLockTimeout(d time.Duration) {
	if d > 0 {
		lockWindow = fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", d.Milliseconds())
	}
}

// InTx runs fn inside a transaction with a bounded lock wait. Any error from
// fn rolls the transaction back in full; lock waits that exceed the window
// surface as a retryable contention error.
func InTx(ctx context.Context, pool Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if _, err := tx.Exec(ctx, lockWindow); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("set lock timeout: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return TranslateError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return TranslateError(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// TranslateError maps driver-level failures onto the shared error kinds.
// Errors that already carry a kind pass through unchanged.
func TranslateError(err error) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case lockNotAvailable, deadlockDetected:
			return apperror.Contention("lock wait exceeded, retry the operation", err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperror.Contention("operation deadline exceeded, transaction rolled back", err)
	}
	return err
}

// IsUniqueViolation reports whether err is a unique-constraint failure,
// optionally on a specific constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// IsCheckViolation reports whether err violated a CHECK constraint.
func IsCheckViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != checkViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// IsForeignKeyViolation reports whether err is a foreign-key failure.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == fkViolation
}

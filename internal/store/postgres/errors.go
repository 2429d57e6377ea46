package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// isUniqueViolation returns true if err is a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// isForeignKeyViolation returns true if err is a PostgreSQL foreign key violation.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation
}

// mapPostgresError wraps PostgreSQL errors with a description of their class.
// Callers handle the violations they expect (unique, foreign key) before falling back to this.
// Returns the original error if it's not a PostgreSQL error.
func mapPostgresError(op string, err error) error {
	if err == nil {
		return nil
	}

	// Check if it's a PostgreSQL error
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return fmt.Errorf("failed to %s: unique constraint violation: %s: %w", op, pgErr.ConstraintName, err)

	case pgerrcode.ForeignKeyViolation:
		return fmt.Errorf("failed to %s: foreign key violation: %s: %w", op, pgErr.ConstraintName, err)

	case pgerrcode.CheckViolation:
		return fmt.Errorf("failed to %s: check constraint violation: %s: %w", op, pgErr.ConstraintName, err)

	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
		// Retryable transaction errors
		return fmt.Errorf("failed to %s: transaction conflict (retryable): %w", op, err)

	case pgerrcode.ConnectionException,
		pgerrcode.ConnectionDoesNotExist,
		pgerrcode.ConnectionFailure,
		pgerrcode.CannotConnectNow,
		pgerrcode.SQLClientUnableToEstablishSQLConnection:
		return fmt.Errorf("failed to %s: database connection error: %w", op, err)

	case pgerrcode.AdminShutdown,
		pgerrcode.CrashShutdown:
		return fmt.Errorf("failed to %s: database server unavailable: %w", op, err)

	case pgerrcode.QueryCanceled:
		// Context cancellation or timeout
		return fmt.Errorf("failed to %s: query canceled: %w", op, err)

	case pgerrcode.InsufficientResources,
		pgerrcode.DiskFull,
		pgerrcode.OutOfMemory,
		pgerrcode.TooManyConnections:
		return fmt.Errorf("failed to %s: database resource limit: %w", op, err)

	default:
		return fmt.Errorf("failed to %s: postgres error [%s]: %s (detail: %s, hint: %s): %w",
			op, pgErr.Code, pgErr.Message, pgErr.Detail, pgErr.Hint, err)
	}
}

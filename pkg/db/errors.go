package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres error codes the application branches on by policy.
const (
	pgCodeUniqueViolation = "23505"
	pgCodeUndefinedTable  = "42P01"
	pgCodeUndefinedColumn = "42703"
)

// IsUniqueViolation reports whether the provided error is a unique constraint
// violation. When constraintName is provided, the match is narrowed to that
// constraint.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgCodeUniqueViolation {
			return false
		}
		if constraintName != "" {
			return pgErr.ConstraintName == constraintName
		}
		return true
	}

	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	// sqlite phrases it differently; cover both drivers.
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// IsUndefinedTable reports whether the error means the target relation has not
// been provisioned. The audit recorder degrades to a setup-required state on
// this class of error instead of failing.
func IsUndefinedTable(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgCodeUndefinedTable
	}

	msg := err.Error()
	return strings.Contains(msg, "does not exist") && strings.Contains(msg, "relation") ||
		strings.Contains(msg, "no such table")
}

// IsUndefinedColumn reports whether the error references a missing column.
// Some deployments lack the assignments.returned_by column; writes fall back
// to a note-embedded payload when this fires.
func IsUndefinedColumn(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgCodeUndefinedColumn
	}

	msg := err.Error()
	return strings.Contains(msg, "does not exist") && strings.Contains(msg, "column") ||
		strings.Contains(msg, "no such column")
}

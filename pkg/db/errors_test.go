package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "idx_assets_serial_number"}

	if !IsUniqueViolation(pgErr, "") {
		t.Fatal("expected pg unique violation to match")
	}
	if !IsUniqueViolation(pgErr, "idx_assets_serial_number") {
		t.Fatal("expected constraint-scoped match")
	}
	if IsUniqueViolation(pgErr, "idx_assets_name") {
		t.Fatal("expected mismatch on a different constraint")
	}
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil error must not match")
	}
	if !IsUniqueViolation(errors.New("UNIQUE constraint failed: assets.name"), "") {
		t.Fatal("expected sqlite phrasing to match")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "42P01"}, "") {
		t.Fatal("non-unique pg error must not match")
	}
}

func TestIsUndefinedTable(t *testing.T) {
	if !IsUndefinedTable(&pgconn.PgError{Code: "42P01"}) {
		t.Fatal("expected pg undefined table to match")
	}
	if !IsUndefinedTable(fmt.Errorf(`pq: relation "audit_log" does not exist`)) {
		t.Fatal("expected message-based match")
	}
	if !IsUndefinedTable(errors.New("no such table: audit_log")) {
		t.Fatal("expected sqlite phrasing to match")
	}
	if IsUndefinedTable(errors.New("connection refused")) {
		t.Fatal("unrelated error must not match")
	}
}

func TestIsUndefinedColumn(t *testing.T) {
	if !IsUndefinedColumn(&pgconn.PgError{Code: "42703"}) {
		t.Fatal("expected pg undefined column to match")
	}
	if !IsUndefinedColumn(fmt.Errorf(`pq: column "returned_by" does not exist`)) {
		t.Fatal("expected message-based match")
	}
	if IsUndefinedColumn(&pgconn.PgError{Code: "23505"}) {
		t.Fatal("unique violation must not match")
	}
}

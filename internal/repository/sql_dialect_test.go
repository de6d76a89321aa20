package repository

import (
	"errors"
	"fmt"
	"testing"

	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{gorm.ErrDuplicatedKey, true},
		{errors.New("constraint failed: UNIQUE constraint failed: ledger_entries.beneficiary_id (2067)"), true},
		{errors.New(`ERROR: duplicate key value violates unique constraint "idx_ledger_idempotency" (SQLSTATE 23505)`), true},
		{fmt.Errorf("wrap: %w", gorm.ErrDuplicatedKey), true},
		{gorm.ErrRecordNotFound, false},
	}
	for idx, tc := range cases {
		if got := IsUniqueViolation(tc.err); got != tc.want {
			t.Fatalf("case %d: want %v got %v", idx, tc.want, got)
		}
	}
}

func TestIsTransientStoreError(t *testing.T) {
	if !IsTransientStoreError(errors.New("database is locked (5) (SQLITE_BUSY)")) {
		t.Fatalf("sqlite busy should be transient")
	}
	if !IsTransientStoreError(errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")) {
		t.Fatalf("connection refused should be transient")
	}
	if IsTransientStoreError(gorm.ErrRecordNotFound) {
		t.Fatalf("not found should not be transient")
	}
	if IsTransientStoreError(errors.New("UNIQUE constraint failed")) {
		t.Fatalf("unique violation should not be transient")
	}
}

func TestDbDialectNameDefaultsToSQLite(t *testing.T) {
	if got := dbDialectName(nil); got != "sqlite" {
		t.Fatalf("dialect want sqlite got %s", got)
	}
}

package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"hrengine/internal/apperror"
)

func TestTranslateErrorLockTimeout(t *testing.T) {
	err := TranslateError(&pgconn.PgError{Code: "55P03"})
	if !apperror.IsKind(err, apperror.KindContention) {
		t.Fatalf("expected contention, got %v", err)
	}
	if !apperror.IsRetryable(err) {
		t.Fatal("contention must be retryable")
	}
}

func TestTranslateErrorDeadline(t *testing.T) {
	err := TranslateError(fmt.Errorf("query: %w", context.DeadlineExceeded))
	if !apperror.IsKind(err, apperror.KindContention) {
		t.Fatalf("expected contention, got %v", err)
	}
}

func TestTranslateErrorPassesKindsThrough(t *testing.T) {
	original := apperror.NotFound("employee EMP00001 not found")
	if got := TranslateError(original); !errors.Is(got, original) {
		t.Fatalf("kinded error must pass through, got %v", got)
	}
}

func TestTranslateErrorPlain(t *testing.T) {
	plain := errors.New("boom")
	if got := TranslateError(plain); !errors.Is(got, plain) {
		t.Fatalf("plain error must pass through, got %v", got)
	}
}

func TestConstraintHelpers(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505", ConstraintName: "employees_email_key"}
	if !IsUniqueViolation(unique, "employees_email_key") {
		t.Fatal("expected unique violation match")
	}
	if IsUniqueViolation(unique, "departments_name_key") {
		t.Fatal("constraint name must be honored")
	}
	if !IsUniqueViolation(unique, "") {
		t.Fatal("empty constraint matches any unique violation")
	}

	check := &pgconn.PgError{Code: "23514", ConstraintName: "leave_balances_non_negative"}
	if !IsCheckViolation(check, "leave_balances_non_negative") {
		t.Fatal("expected check violation match")
	}
	if !IsForeignKeyViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatal("expected foreign key violation")
	}
	if IsForeignKeyViolation(unique) {
		t.Fatal("unique violation is not a foreign key violation")
	}
}

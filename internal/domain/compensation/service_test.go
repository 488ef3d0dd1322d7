package compensation

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"

	"hrengine/internal/apperror"
	"hrengine/internal/domain/audit"
)

func newTestService(t *testing.T) (*Service, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(mock, audit.New(mock, log, nil), log, nil), mock
}

func activeEmployeeRow() *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows([]string{
		"id", "name", "email", "phone", "department_id", "position_id", "manager_id",
		"hire_date", "status", "created_at", "updated_at",
	}).AddRow("EMP00001", "Ada Lovelace", "ada@example.com", "", "d1", "p1", "",
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "active", now, now)
}

func positionRow() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "title", "min_salary", "max_salary", "created_at"}).
		AddRow("p1", "Engineer", nil, nil, time.Now())
}

func TestUpdateSalary(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL lock_timeout").WillReturnResult(pgxmock.NewResult("SET", 0))
	mock.ExpectQuery("SELECT(.+)FROM employees(.+)FOR UPDATE").
		WithArgs("EMP00001").
		WillReturnRows(activeEmployeeRow())
	mock.ExpectQuery("SELECT MAX").
		WithArgs("EMP00001").
		WillReturnRows(pgxmock.NewRows([]string{"max"}).AddRow(nil))
	mock.ExpectQuery("SELECT(.+)FROM positions").
		WithArgs("p1").
		WillReturnRows(positionRow())
	mock.ExpectQuery("SELECT(.+)FROM salary_records").
		WithArgs("EMP00001", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO salary_records").
		WithArgs(pgxmock.AnyArg(), "EMP00001", decimal.NewFromInt(100000), DefaultCurrency,
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "hire").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO audit_log").
		WithArgs("cli", "update_salary", EntitySalary, "EMP00001",
			pgxmock.AnyArg(), pgxmock.AnyArg(), audit.ResultSuccess, "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	rec, err := svc.UpdateSalary(context.Background(), NewSalary{
		EmployeeID:    "EMP00001",
		Amount:        decimal.NewFromInt(100000),
		EffectiveDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Reason:        "hire",
	}, "cli")
	if err != nil {
		t.Fatalf("UpdateSalary: %v", err)
	}
	if rec.Currency != DefaultCurrency {
		t.Fatalf("expected default currency, got %s", rec.Currency)
	}
	if rec.ID == "" {
		t.Fatalf("record id not assigned")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateSalaryNonPositiveAmount(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectExec("INSERT INTO audit_log").
		WithArgs("cli", "update_salary", EntitySalary, "EMP00001",
			pgxmock.AnyArg(), pgxmock.AnyArg(), audit.ResultFailure, pgxmock.AnyArg(), "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	_, err := svc.UpdateSalary(context.Background(), NewSalary{
		EmployeeID:    "EMP00001",
		Amount:        decimal.Zero,
		EffectiveDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}, "cli")
	if !apperror.IsKind(err, apperror.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateSalaryRetroactive(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL lock_timeout").WillReturnResult(pgxmock.NewResult("SET", 0))
	mock.ExpectQuery("SELECT(.+)FROM employees(.+)FOR UPDATE").
		WithArgs("EMP00001").
		WillReturnRows(activeEmployeeRow())
	// The MAX scan target is a pointer, so the mocked column carries one.
	latest := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT MAX").
		WithArgs("EMP00001").
		WillReturnRows(pgxmock.NewRows([]string{"max"}).AddRow(&latest))
	mock.ExpectRollback()
	mock.ExpectExec("INSERT INTO audit_log").
		WithArgs("cli", "update_salary", EntitySalary, "EMP00001",
			pgxmock.AnyArg(), pgxmock.AnyArg(), audit.ResultFailure, pgxmock.AnyArg(), "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	_, err := svc.UpdateSalary(context.Background(), NewSalary{
		EmployeeID:    "EMP00001",
		Amount:        decimal.NewFromInt(90000),
		EffectiveDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Reason:        "backdated",
	}, "cli")
	if !apperror.IsKind(err, apperror.KindValidation) {
		t.Fatalf("expected validation error for retroactive record, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateSalaryTerminatedEmployee(t *testing.T) {
	svc, mock := newTestService(t)

	now := time.Now()
	terminated := pgxmock.NewRows([]string{
		"id", "name", "email", "phone", "department_id", "position_id", "manager_id",
		"hire_date", "status", "created_at", "updated_at",
	}).AddRow("EMP00001", "Ada Lovelace", "ada@example.com", "", "d1", "p1", "",
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "terminated", now, now)

	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL lock_timeout").WillReturnResult(pgxmock.NewResult("SET", 0))
	mock.ExpectQuery("SELECT(.+)FROM employees(.+)FOR UPDATE").
		WithArgs("EMP00001").
		WillReturnRows(terminated)
	mock.ExpectRollback()
	mock.ExpectExec("INSERT INTO audit_log").
		WithArgs("cli", "update_salary", EntitySalary, "EMP00001",
			pgxmock.AnyArg(), pgxmock.AnyArg(), audit.ResultFailure, pgxmock.AnyArg(), "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	_, err := svc.UpdateSalary(context.Background(), NewSalary{
		EmployeeID:    "EMP00001",
		Amount:        decimal.NewFromInt(90000),
		EffectiveDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}, "cli")
	if !apperror.IsKind(err, apperror.KindInvalidState) {
		t.Fatalf("expected invalid state for terminated employee, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSalaryAsOfNoHistory(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT(.+)FROM salary_records").
		WithArgs("EMP00001", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	_, err := svc.SalaryAsOf(context.Background(), "EMP00001", time.Now())
	if !apperror.IsKind(err, apperror.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

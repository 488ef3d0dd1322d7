package leave

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

const (
	testRequestID = "8b9b0a1e-2f53-4a80-9d5e-000000000001"
	testTypeID    = "8b9b0a1e-2f53-4a80-9d5e-000000000002"
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

func requestRow(status string, days int64) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows([]string{
		"id", "employee_id", "leave_type_id", "start_date", "end_date", "days",
		"reason", "status", "decided_by", "decided_at", "created_at",
	}).AddRow(testRequestID, "EMP00001", testTypeID,
		time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC),
		decimal.NewFromInt(days), "", status, "", nil, now)
}

func activeEmployeeRow() *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows([]string{
		"id", "name", "email", "phone", "department_id", "position_id", "manager_id",
		"hire_date", "status", "created_at", "updated_at",
	}).AddRow("EMP00001", "Ada Lovelace", "ada@example.com", "", "d1", "p1", "",
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "active", now, now)
}

func typeRow(entitlement int64) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "name", "annual_entitlement", "created_at"}).
		AddRow(testTypeID, "Annual Leave", decimal.NewFromInt(entitlement), time.Now())
}

func balanceRow(used, remaining int64) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"employee_id", "leave_type_id", "name", "year", "entitled", "used", "remaining",
	}).AddRow("EMP00001", testTypeID, "Annual Leave", 2025,
		decimal.NewFromInt(used+remaining), decimal.NewFromInt(used), decimal.NewFromInt(remaining))
}

func TestApprove(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL lock_timeout").WillReturnResult(pgxmock.NewResult("SET", 0))
	mock.ExpectQuery("SELECT(.+)FROM leave_requests(.+)FOR UPDATE").
		WithArgs(testRequestID).
		WillReturnRows(requestRow(StatusPending, 5))
	mock.ExpectQuery("SELECT(.+)FROM employees(.+)FOR UPDATE").
		WithArgs("EMP00001").
		WillReturnRows(activeEmployeeRow())
	mock.ExpectQuery("SELECT(.+)FROM leave_types WHERE id").
		WithArgs(testTypeID).
		WillReturnRows(typeRow(21))
	mock.ExpectExec("INSERT INTO leave_balances").
		WithArgs("EMP00001", testTypeID, 2025, decimal.NewFromInt(21)).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectQuery("SELECT(.+)FROM leave_balances").
		WithArgs("EMP00001", testTypeID, 2025).
		WillReturnRows(balanceRow(0, 21))
	mock.ExpectExec("UPDATE leave_balances").
		WithArgs("EMP00001", testTypeID, 2025, decimal.NewFromInt(5)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE leave_requests").
		WithArgs(testRequestID, StatusApproved, "manager", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO audit_log").
		WithArgs("manager", "approve", EntityRequest, testRequestID,
			pgxmock.AnyArg(), pgxmock.AnyArg(), audit.ResultSuccess, "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	req, err := svc.Approve(context.Background(), testRequestID, "manager")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if req.Status != StatusApproved {
		t.Fatalf("expected approved, got %s", req.Status)
	}
	if req.DecidedBy != "manager" || req.DecidedAt == nil {
		t.Fatalf("decision metadata missing: %+v", req)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestApproveNonPending(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL lock_timeout").WillReturnResult(pgxmock.NewResult("SET", 0))
	mock.ExpectQuery("SELECT(.+)FROM leave_requests(.+)FOR UPDATE").
		WithArgs(testRequestID).
		WillReturnRows(requestRow(StatusApproved, 5))
	mock.ExpectRollback()
	mock.ExpectExec("INSERT INTO audit_log").
		WithArgs("manager", "approve", EntityRequest, testRequestID,
			pgxmock.AnyArg(), pgxmock.AnyArg(), audit.ResultFailure, pgxmock.AnyArg(), "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	_, err := svc.Approve(context.Background(), testRequestID, "manager")
	if !apperror.IsKind(err, apperror.KindInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestApproveInsufficientBalance(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL lock_timeout").WillReturnResult(pgxmock.NewResult("SET", 0))
	mock.ExpectQuery("SELECT(.+)FROM leave_requests(.+)FOR UPDATE").
		WithArgs(testRequestID).
		WillReturnRows(requestRow(StatusPending, 5))
	mock.ExpectQuery("SELECT(.+)FROM employees(.+)FOR UPDATE").
		WithArgs("EMP00001").
		WillReturnRows(activeEmployeeRow())
	mock.ExpectQuery("SELECT(.+)FROM leave_types WHERE id").
		WithArgs(testTypeID).
		WillReturnRows(typeRow(21))
	mock.ExpectExec("INSERT INTO leave_balances").
		WithArgs("EMP00001", testTypeID, 2025, decimal.NewFromInt(21)).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectQuery("SELECT(.+)FROM leave_balances").
		WithArgs("EMP00001", testTypeID, 2025).
		WillReturnRows(balanceRow(19, 2))
	mock.ExpectRollback()
	mock.ExpectExec("INSERT INTO audit_log").
		WithArgs("manager", "approve", EntityRequest, testRequestID,
			pgxmock.AnyArg(), pgxmock.AnyArg(), audit.ResultFailure, pgxmock.AnyArg(), "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	_, err := svc.Approve(context.Background(), testRequestID, "manager")
	if !apperror.IsKind(err, apperror.KindInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRejectTerminalRequest(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL lock_timeout").WillReturnResult(pgxmock.NewResult("SET", 0))
	mock.ExpectQuery("SELECT(.+)FROM leave_requests(.+)FOR UPDATE").
		WithArgs(testRequestID).
		WillReturnRows(requestRow(StatusCancelled, 5))
	mock.ExpectRollback()
	mock.ExpectExec("INSERT INTO audit_log").
		WithArgs("manager", "reject", EntityRequest, testRequestID,
			pgxmock.AnyArg(), pgxmock.AnyArg(), audit.ResultFailure, pgxmock.AnyArg(), "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	_, err := svc.Reject(context.Background(), testRequestID, "manager")
	if !apperror.IsKind(err, apperror.KindInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSubmit(t *testing.T) {
	svc, mock := newTestService(t)

	startDate := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	endDate := time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL lock_timeout").WillReturnResult(pgxmock.NewResult("SET", 0))
	mock.ExpectQuery("SELECT(.+)FROM employees(.+)FOR UPDATE").
		WithArgs("EMP00001").
		WillReturnRows(activeEmployeeRow())
	mock.ExpectQuery("SELECT(.+)FROM leave_types WHERE id").
		WithArgs(testTypeID).
		WillReturnRows(typeRow(21))
	mock.ExpectExec("INSERT INTO leave_balances").
		WithArgs("EMP00001", testTypeID, 2025, decimal.NewFromInt(21)).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectQuery("SELECT(.+)FROM leave_balances").
		WithArgs("EMP00001", testTypeID, 2025).
		WillReturnRows(balanceRow(0, 21))
	// The pre-check passes and the request lands pending; no balance update
	// happens at submission.
	mock.ExpectExec("INSERT INTO leave_requests").
		WithArgs(pgxmock.AnyArg(), "EMP00001", testTypeID, startDate, endDate,
			decimal.NewFromInt(5), "", StatusPending).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO audit_log").
		WithArgs("cli", "submit", EntityRequest, pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), audit.ResultSuccess, "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	req, err := svc.Submit(context.Background(), NewRequest{
		EmployeeID:  "EMP00001",
		LeaveTypeID: testTypeID,
		StartDate:   startDate,
		EndDate:     endDate,
	}, "cli")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if req.Status != StatusPending {
		t.Fatalf("expected pending, got %s", req.Status)
	}
	if !req.Days.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected 5 days, got %s", req.Days)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSubmitInsufficientBalance(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL lock_timeout").WillReturnResult(pgxmock.NewResult("SET", 0))
	mock.ExpectQuery("SELECT(.+)FROM employees(.+)FOR UPDATE").
		WithArgs("EMP00001").
		WillReturnRows(activeEmployeeRow())
	mock.ExpectQuery("SELECT(.+)FROM leave_types WHERE id").
		WithArgs(testTypeID).
		WillReturnRows(typeRow(21))
	mock.ExpectExec("INSERT INTO leave_balances").
		WithArgs("EMP00001", testTypeID, 2025, decimal.NewFromInt(21)).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectQuery("SELECT(.+)FROM leave_balances").
		WithArgs("EMP00001", testTypeID, 2025).
		WillReturnRows(balanceRow(18, 3))
	mock.ExpectRollback()
	mock.ExpectExec("INSERT INTO audit_log").
		WithArgs("cli", "submit", EntityRequest, "EMP00001",
			pgxmock.AnyArg(), pgxmock.AnyArg(), audit.ResultFailure, pgxmock.AnyArg(), "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	_, err := svc.Submit(context.Background(), NewRequest{
		EmployeeID:  "EMP00001",
		LeaveTypeID: testTypeID,
		StartDate:   time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC),
	}, "cli")
	if !apperror.IsKind(err, apperror.KindInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSubmitInactiveEmployee(t *testing.T) {
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
		WithArgs("cli", "submit", EntityRequest, "EMP00001",
			pgxmock.AnyArg(), pgxmock.AnyArg(), audit.ResultFailure, pgxmock.AnyArg(), "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	_, err := svc.Submit(context.Background(), NewRequest{
		EmployeeID:  "EMP00001",
		LeaveTypeID: testTypeID,
		StartDate:   time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC),
	}, "cli")
	if !apperror.IsKind(err, apperror.KindInvalidState) {
		t.Fatalf("expected invalid state for terminated employee, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSubmitInvertedRange(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectExec("INSERT INTO audit_log").
		WithArgs("cli", "submit", EntityRequest, "EMP00001",
			pgxmock.AnyArg(), pgxmock.AnyArg(), audit.ResultFailure, pgxmock.AnyArg(), "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	_, err := svc.Submit(context.Background(), NewRequest{
		EmployeeID:  "EMP00001",
		LeaveTypeID: testTypeID,
		StartDate:   time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
	}, "cli")
	if !apperror.IsKind(err, apperror.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

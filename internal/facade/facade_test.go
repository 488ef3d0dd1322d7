package facade

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrengine/internal/apperror"
	"hrengine/internal/domain/compensation"
	"hrengine/internal/domain/directory"
	"hrengine/internal/domain/leave"
)

type stubDirectory struct {
	resolveID  string
	resolveErr error
	added      directory.NewEmployee
}

func (s *stubDirectory) ResolveByName(_ context.Context, _ string, _ directory.ResolveOptions) (string, error) {
	return s.resolveID, s.resolveErr
}

func (s *stubDirectory) AddEmployee(_ context.Context, input directory.NewEmployee, _ string) (directory.Employee, error) {
	s.added = input
	return directory.Employee{ID: "EMP00001", Name: input.Name, Email: input.Email}, nil
}

func (s *stubDirectory) EnsureDepartment(_ context.Context, name, _ string) (directory.Department, error) {
	return directory.Department{ID: "dep-" + name, Name: name}, nil
}

func (s *stubDirectory) EnsurePosition(_ context.Context, title, _ string) (directory.Position, error) {
	return directory.Position{ID: "pos-" + title, Title: title}, nil
}

type stubLeave struct {
	submitted leave.NewRequest
	balances  []leave.Balance
}

func (s *stubLeave) TypeByName(_ context.Context, name string) (leave.Type, error) {
	return leave.Type{ID: "lt-1", Name: name}, nil
}

func (s *stubLeave) Submit(_ context.Context, input leave.NewRequest, _ string) (leave.Request, error) {
	s.submitted = input
	return leave.Request{ID: "req-1", EmployeeID: input.EmployeeID, Status: leave.StatusPending}, nil
}

func (s *stubLeave) Balances(_ context.Context, employeeID string, _ int) ([]leave.Balance, error) {
	return s.balances, nil
}

type stubCompensation struct {
	updated compensation.NewSalary
}

func (s *stubCompensation) UpdateSalary(_ context.Context, input compensation.NewSalary, _ string) (compensation.SalaryRecord, error) {
	s.updated = input
	return compensation.SalaryRecord{ID: "rec-1", EmployeeID: input.EmployeeID, Amount: input.Amount}, nil
}

func TestResolutionErrorsPropagateVerbatim(t *testing.T) {
	ambiguous := apperror.Ambiguous("2 active employees match", []string{"EMP00001", "EMP00002"})
	dir := &stubDirectory{resolveErr: ambiguous}
	f := New(dir, &stubLeave{}, &stubCompensation{})

	_, err := f.CheckLeaveBalanceByName(context.Background(), "John Smith", 2025, directory.ResolveOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ambiguous) || err == ambiguous, "error must not be wrapped or replaced")
	assert.True(t, apperror.IsKind(err, apperror.KindAmbiguous))

	_, err = f.UpdateSalaryByName(context.Background(), "John Smith",
		decimal.NewFromInt(100000), time.Now(), "raise", directory.ResolveOptions{}, "cli")
	assert.True(t, apperror.IsKind(err, apperror.KindAmbiguous))

	_, err = f.SubmitLeaveRequestByName(context.Background(), "John Smith", "Annual Leave",
		time.Now(), time.Now(), "", directory.ResolveOptions{}, "cli")
	assert.True(t, apperror.IsKind(err, apperror.KindAmbiguous))
}

func TestSubmitLeaveRequestByName(t *testing.T) {
	dir := &stubDirectory{resolveID: "EMP00042"}
	lv := &stubLeave{}
	f := New(dir, lv, &stubCompensation{})

	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC)
	req, err := f.SubmitLeaveRequestByName(context.Background(), "Ada Lovelace", "Annual Leave",
		start, end, "holiday", directory.ResolveOptions{}, "cli")
	require.NoError(t, err)
	assert.Equal(t, "EMP00042", req.EmployeeID)
	assert.Equal(t, "EMP00042", lv.submitted.EmployeeID)
	assert.Equal(t, "lt-1", lv.submitted.LeaveTypeID)
	assert.Equal(t, start, lv.submitted.StartDate)
}

func TestUpdateSalaryByName(t *testing.T) {
	dir := &stubDirectory{resolveID: "EMP00042"}
	comp := &stubCompensation{}
	f := New(dir, &stubLeave{}, comp)

	amount := decimal.NewFromInt(120000)
	rec, err := f.UpdateSalaryByName(context.Background(), "Ada Lovelace",
		amount, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), "promotion",
		directory.ResolveOptions{}, "cli")
	require.NoError(t, err)
	assert.Equal(t, "EMP00042", rec.EmployeeID)
	assert.True(t, comp.updated.Amount.Equal(amount))
}

func TestAddEmployeeEnsuresReferences(t *testing.T) {
	dir := &stubDirectory{}
	f := New(dir, &stubLeave{}, &stubCompensation{})

	emp, err := f.AddEmployee(context.Background(), NewEmployeeByNames{
		Name:       "Ada Lovelace",
		Email:      "ada@example.com",
		Department: "Engineering",
		Position:   "Engineer",
	}, "cli")
	require.NoError(t, err)
	assert.Equal(t, "EMP00001", emp.ID)
	assert.Equal(t, "dep-Engineering", dir.added.DepartmentID)
	assert.Equal(t, "pos-Engineer", dir.added.PositionID)
}

func TestAddEmployeeMissingDepartment(t *testing.T) {
	f := New(&stubDirectory{}, &stubLeave{}, &stubCompensation{})

	_, err := f.AddEmployee(context.Background(), NewEmployeeByNames{
		Name:     "Ada Lovelace",
		Email:    "ada@example.com",
		Position: "Engineer",
	}, "cli")
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

// Package facade wraps the identifier-based operations with human-name
// resolution. It is a strict adapter: resolution failures propagate
// unchanged and no business rule lives here.
package facade

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"hrengine/internal/apperror"
	"hrengine/internal/domain/compensation"
	"hrengine/internal/domain/directory"
	"hrengine/internal/domain/leave"
)

// Directory is the slice of the directory service the facade needs.
type Directory interface {
	ResolveByName(ctx context.Context, name string, opts directory.ResolveOptions) (string, error)
	AddEmployee(ctx context.Context, input directory.NewEmployee, actor string) (directory.Employee, error)
	EnsureDepartment(ctx context.Context, name, actor string) (directory.Department, error)
	EnsurePosition(ctx context.Context, title, actor string) (directory.Position, error)
}

type Leave interface {
	TypeByName(ctx context.Context, name string) (leave.Type, error)
	Submit(ctx context.Context, input leave.NewRequest, actor string) (leave.Request, error)
	Balances(ctx context.Context, employeeID string, year int) ([]leave.Balance, error)
}

type Compensation interface {
	UpdateSalary(ctx context.Context, input compensation.NewSalary, actor string) (compensation.SalaryRecord, error)
}

type Facade struct {
	Directory    Directory
	Leave        Leave
	Compensation Compensation
}

func New(dir Directory, lv Leave, comp Compensation) *Facade {
	return &Facade{Directory: dir, Leave: lv, Compensation: comp}
}

// NewEmployeeByNames is the creation payload with department and position
// given by name rather than identifier.
type NewEmployeeByNames struct {
	Name       string
	Email      string
	Phone      string
	Department string
	Position   string
	HireDate   time.Time
}

// AddEmployee resolves department and position names, creating them when
// absent, then delegates to the directory. The email requirement is
// enforced by the directory itself.
func (f *Facade) AddEmployee(ctx context.Context, input NewEmployeeByNames, actor string) (directory.Employee, error) {
	if input.Department == "" {
		return directory.Employee{}, apperror.Validation("department is required")
	}
	if input.Position == "" {
		return directory.Employee{}, apperror.Validation("position is required")
	}

	dep, err := f.Directory.EnsureDepartment(ctx, input.Department, actor)
	if err != nil {
		return directory.Employee{}, err
	}
	pos, err := f.Directory.EnsurePosition(ctx, input.Position, actor)
	if err != nil {
		return directory.Employee{}, err
	}

	return f.Directory.AddEmployee(ctx, directory.NewEmployee{
		Name:         input.Name,
		Email:        input.Email,
		Phone:        input.Phone,
		DepartmentID: dep.ID,
		PositionID:   pos.ID,
		HireDate:     input.HireDate,
	}, actor)
}

// CheckLeaveBalanceByName resolves the name and returns the year's
// balances. Resolution errors propagate verbatim; a match is never picked
// silently.
func (f *Facade) CheckLeaveBalanceByName(ctx context.Context, name string, year int, opts directory.ResolveOptions) ([]leave.Balance, error) {
	id, err := f.Directory.ResolveByName(ctx, name, opts)
	if err != nil {
		return nil, err
	}
	return f.Leave.Balances(ctx, id, year)
}

// SubmitLeaveRequestByName resolves the employee and leave-type names and
// delegates the submission.
func (f *Facade) SubmitLeaveRequestByName(ctx context.Context, name, leaveType string, start, end time.Time, reason string, opts directory.ResolveOptions, actor string) (leave.Request, error) {
	id, err := f.Directory.ResolveByName(ctx, name, opts)
	if err != nil {
		return leave.Request{}, err
	}
	lt, err := f.Leave.TypeByName(ctx, leaveType)
	if err != nil {
		return leave.Request{}, err
	}
	return f.Leave.Submit(ctx, leave.NewRequest{
		EmployeeID:  id,
		LeaveTypeID: lt.ID,
		StartDate:   start,
		EndDate:     end,
		Reason:      reason,
	}, actor)
}

// UpdateSalaryByName resolves the name and delegates the salary update.
func (f *Facade) UpdateSalaryByName(ctx context.Context, name string, amount decimal.Decimal, effectiveDate time.Time, reason string, opts directory.ResolveOptions, actor string) (compensation.SalaryRecord, error) {
	id, err := f.Directory.ResolveByName(ctx, name, opts)
	if err != nil {
		return compensation.SalaryRecord{}, err
	}
	return f.Compensation.UpdateSalary(ctx, compensation.NewSalary{
		EmployeeID:    id,
		Amount:        amount,
		EffectiveDate: effectiveDate,
		Reason:        reason,
	}, actor)
}

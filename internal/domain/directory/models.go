package directory

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusActive     = "active"
	StatusOnLeave    = "on_leave"
	StatusTerminated = "terminated"
)

const EntityEmployee = "employee"

type Employee struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	DepartmentID string    `json:"departmentId,omitempty"`
	PositionID   string    `json:"positionId,omitempty"`
	ManagerID    string    `json:"managerId,omitempty"`
	HireDate     time.Time `json:"hireDate"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Department struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  string    `json:"parentId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Position struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	MinSalary *decimal.Decimal `json:"minSalary,omitempty"`
	MaxSalary *decimal.Decimal `json:"maxSalary,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}

// NewEmployee carries the fields accepted on creation. Name, Email,
// DepartmentID and PositionID are required.
type NewEmployee struct {
	Name         string
	Email        string
	Phone        string
	DepartmentID string
	PositionID   string
	ManagerID    string
	HireDate     time.Time
}

// EmployeeUpdate is a partial update; nil fields are left untouched.
type EmployeeUpdate struct {
	Name         *string
	Email        *string
	Phone        *string
	DepartmentID *string
	PositionID   *string
	ManagerID    *string
	HireDate     *time.Time
}

// DepartmentUpdate is a partial update; nil fields are left untouched. An
// empty ParentID detaches the department from its parent.
type DepartmentUpdate struct {
	Name     *string
	ParentID *string
}

type SearchFilter struct {
	DepartmentID string
	PositionID   string
	Status       string
	HiredFrom    time.Time
	HiredTo      time.Time
}

// ResolveOptions tunes name resolution. Exact case-insensitive matching is
// always applied; fuzzy matching is a deliberate opt-in.
type ResolveOptions struct {
	// Department narrows candidates to a department name when several active
	// employees share the resolved name.
	Department string
	// Fuzzy enables edit-distance matching when no exact match exists.
	Fuzzy bool
}

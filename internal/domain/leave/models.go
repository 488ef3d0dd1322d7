package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
)

const EntityRequest = "leave_request"

type Type struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	AnnualEntitlement decimal.Decimal `json:"annualEntitlement"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// Balance tracks one (employee, type, year) bucket. Remaining never drops
// below zero; a year starts at the full entitlement with no carry-over.
type Balance struct {
	EmployeeID  string          `json:"employeeId"`
	LeaveTypeID string          `json:"leaveTypeId"`
	TypeName    string          `json:"typeName"`
	Year        int             `json:"year"`
	Entitled    decimal.Decimal `json:"entitled"`
	Used        decimal.Decimal `json:"used"`
	Remaining   decimal.Decimal `json:"remaining"`
}

type Request struct {
	ID          string          `json:"id"`
	EmployeeID  string          `json:"employeeId"`
	LeaveTypeID string          `json:"leaveTypeId"`
	StartDate   time.Time       `json:"startDate"`
	EndDate     time.Time       `json:"endDate"`
	Days        decimal.Decimal `json:"days"`
	Reason      string          `json:"reason,omitempty"`
	Status      string          `json:"status"`
	DecidedBy   string          `json:"decidedBy,omitempty"`
	DecidedAt   *time.Time      `json:"decidedAt,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// NewRequest is the submission payload; Days is derived, never supplied.
type NewRequest struct {
	EmployeeID  string
	LeaveTypeID string
	StartDate   time.Time
	EndDate     time.Time
	Reason      string
}

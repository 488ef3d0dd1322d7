package compensation

import (
	"time"

	"github.com/shopspring/decimal"
)

const DefaultCurrency = "USD"

// SalaryRecord is one effective-dated entry in an employee's salary
// history. Records are append-only; the current salary is the record with
// the latest effective date not in the future.
type SalaryRecord struct {
	ID            string          `json:"id"`
	EmployeeID    string          `json:"employeeId"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	EffectiveDate time.Time       `json:"effectiveDate"`
	Reason        string          `json:"reason,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type NewSalary struct {
	EmployeeID    string
	Amount        decimal.Decimal
	Currency      string
	EffectiveDate time.Time
	Reason        string
}

// Stats aggregates current salaries over a group of active employees.
type Stats struct {
	Count int64           `json:"count"`
	Mean  decimal.Decimal `json:"mean"`
	Min   decimal.Decimal `json:"min"`
	Max   decimal.Decimal `json:"max"`
}

// ReportFilter selects the group a report aggregates over. Exactly one of
// the fields should be set; both empty aggregates over everyone.
type ReportFilter struct {
	DepartmentID string
	PositionID   string
}

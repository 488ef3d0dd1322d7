package performance

import "time"

type Review struct {
	ID          string    `json:"id"`
	EmployeeID  string    `json:"employeeId"`
	ReviewerID  string    `json:"reviewerId"`
	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"`
	Rating      *int      `json:"rating,omitempty"`
	Comments    string    `json:"comments,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewReview carries the fields accepted on creation. Rating is optional;
// when present it must be between 1 and 5.
type NewReview struct {
	EmployeeID  string
	ReviewerID  string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Rating      *int
	Comments    string
}

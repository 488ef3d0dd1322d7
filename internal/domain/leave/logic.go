package leave

import (
	"time"

	"github.com/shopspring/decimal"

	"hrengine/internal/apperror"
)

// CalculateDays counts calendar days in the inclusive [start, end] range.
// A single-day request is one day. Only the wall-clock date of each endpoint
// matters; the zone offset carried by the input does not shift the count.
func CalculateDays(start, end time.Time) decimal.Decimal {
	startDay := civilDay(start)
	endDay := civilDay(end)
	days := int64(endDay.Sub(startDay).Hours()/24) + 1
	return decimal.NewFromInt(days)
}

func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ValidateRequestDates enforces the submission date invariants.
func ValidateRequestDates(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return apperror.Validation("start and end dates are required")
	}
	if end.Before(start) {
		return apperror.Validation("end date %s is before start date %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	return nil
}

// CanTransition reports whether a request in the given status accepts a
// decision. Only pending requests do; every other status is terminal.
func CanTransition(status string) bool {
	return status == StatusPending
}

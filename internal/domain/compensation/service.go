package compensation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"hrengine/internal/apperror"
	"hrengine/internal/db"
	"hrengine/internal/domain/audit"
	"hrengine/internal/domain/directory"
	"hrengine/internal/platform/logger"
	"hrengine/internal/platform/metrics"
)

const EntitySalary = "salary_record"

// Service maintains the append-only salary history. Prior records are
// never mutated or deleted; every change is a new effective-dated record.
type Service struct {
	DB        db.Pool
	Store     *Store
	Directory *directory.Store
	Audit     *audit.Trail
	Log       *slog.Logger
	Metrics   *metrics.Metrics
}

func NewService(pool db.Pool, trail *audit.Trail, log *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		DB:        pool,
		Store:     &Store{},
		Directory: &directory.Store{},
		Audit:     trail,
		Log:       log,
		Metrics:   m,
	}
}

// UpdateSalary appends a new salary record. The employee must be active,
// the amount positive, and the effective date must not precede an already
// recorded one: history grows in non-decreasing effective-date order.
// An amount outside the position's salary range is logged, not rejected.
func (s *Service) UpdateSalary(ctx context.Context, input NewSalary, actor string) (SalaryRecord, error) {
	start := time.Now()
	var rec SalaryRecord
	err := s.updateSalary(ctx, input, actor, &rec)
	s.Metrics.ObserveOp("update_salary", start, err)
	if err != nil {
		s.Audit.RecordFailure(ctx, audit.Change{
			Actor: actor, Action: "update_salary", EntityType: EntitySalary,
			EntityID: input.EmployeeID, After: input,
		}, err)
		return SalaryRecord{}, err
	}
	return rec, nil
}

func (s *Service) updateSalary(ctx context.Context, input NewSalary, actor string, out *SalaryRecord) error {
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return apperror.Validation("salary amount must be positive, got %s", input.Amount)
	}
	if input.EffectiveDate.IsZero() {
		return apperror.Validation("effective date is required")
	}
	currency := input.Currency
	if currency == "" {
		currency = DefaultCurrency
	}

	return db.InTx(ctx, s.DB, func(tx pgx.Tx) error {
		emp, err := s.Directory.LockActive(ctx, tx, input.EmployeeID)
		if err != nil {
			return err
		}

		latest, err := s.Store.LatestEffectiveDate(ctx, tx, input.EmployeeID)
		if err != nil {
			return err
		}
		if !latest.IsZero() && input.EffectiveDate.Before(latest) {
			return apperror.Validation(
				"effective date %s precedes the latest recorded %s; salary history is append-only",
				input.EffectiveDate.Format("2006-01-02"), latest.Format("2006-01-02"))
		}

		s.warnOutOfRange(ctx, tx, emp, input.Amount)

		prev, err := s.Store.RecordAsOf(ctx, tx, input.EmployeeID, time.Now().UTC())
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		rec := SalaryRecord{
			ID:            uuid.NewString(),
			EmployeeID:    input.EmployeeID,
			Amount:        input.Amount,
			Currency:      currency,
			EffectiveDate: input.EffectiveDate,
			Reason:        input.Reason,
		}
		if err := s.Store.InsertRecord(ctx, tx, rec); err != nil {
			return fmt.Errorf("insert salary record: %w", err)
		}

		change := audit.Change{
			Actor: actor, Action: "update_salary", EntityType: EntitySalary,
			EntityID: input.EmployeeID, After: rec,
		}
		if prev.ID != "" {
			change.Before = prev
		}
		if err := s.Audit.Record(ctx, tx, change); err != nil {
			return err
		}
		*out = rec
		return nil
	})
}

// warnOutOfRange checks the amount against the position salary range when
// one is defined. Out-of-range is allowed but leaves a trace in the log.
func (s *Service) warnOutOfRange(ctx context.Context, q db.Querier, emp directory.Employee, amount decimal.Decimal) {
	if emp.PositionID == "" {
		return
	}
	pos, err := s.Directory.GetPosition(ctx, q, emp.PositionID)
	if err != nil {
		if s.Log != nil && !errors.Is(err, pgx.ErrNoRows) {
			s.Log.Warn("position lookup for salary range check failed",
				slog.String("employeeId", emp.ID), logger.Err(err))
		}
		return
	}
	below := pos.MinSalary != nil && amount.LessThan(*pos.MinSalary)
	above := pos.MaxSalary != nil && amount.GreaterThan(*pos.MaxSalary)
	if (below || above) && s.Log != nil {
		s.Log.Warn("salary outside position range",
			slog.String("employeeId", emp.ID),
			slog.String("position", pos.Title),
			slog.String("amount", amount.String()))
	}
}

// CurrentSalary returns the record governing the employee's salary now.
func (s *Service) CurrentSalary(ctx context.Context, employeeID string) (SalaryRecord, error) {
	return s.SalaryAsOf(ctx, employeeID, time.Now().UTC())
}

// SalaryAsOf returns the record with the latest effective date not after
// the given instant.
func (s *Service) SalaryAsOf(ctx context.Context, employeeID string, at time.Time) (SalaryRecord, error) {
	rec, err := s.Store.RecordAsOf(ctx, s.DB, employeeID, at)
	if errors.Is(err, pgx.ErrNoRows) {
		return SalaryRecord{}, apperror.NotFound("no salary recorded for employee %s", employeeID)
	}
	if err != nil {
		return SalaryRecord{}, fmt.Errorf("salary as of %s for %s: %w",
			at.Format("2006-01-02"), employeeID, err)
	}
	return rec, nil
}

// History returns the full salary history, oldest first.
func (s *Service) History(ctx context.Context, employeeID string) ([]SalaryRecord, error) {
	return s.Store.History(ctx, s.DB, employeeID)
}

// Report aggregates current salaries over active employees in a department
// or position. Read-only.
func (s *Service) Report(ctx context.Context, filter ReportFilter) (Stats, error) {
	return s.Store.Aggregate(ctx, s.DB, filter, time.Now().UTC())
}

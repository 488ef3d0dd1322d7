package leave

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
	"hrengine/internal/platform/metrics"
)

// Service runs the leave-request lifecycle. Balance state is only ever
// decremented at approval time, inside the same transaction that flips the
// request status; submission performs a non-binding pre-check.
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

// Submit validates the date range and the employee's current standing,
// pre-checks the balance and creates the request as pending. The balance is
// not decremented here.
func (s *Service) Submit(ctx context.Context, input NewRequest, actor string) (Request, error) {
	start := time.Now()
	var req Request
	err := s.submit(ctx, input, actor, &req)
	s.Metrics.ObserveOp("submit_leave_request", start, err)
	if err != nil {
		s.Audit.RecordFailure(ctx, audit.Change{
			Actor: actor, Action: "submit", EntityType: EntityRequest,
			EntityID: input.EmployeeID, After: input,
		}, err)
		return Request{}, err
	}
	return req, nil
}

func (s *Service) submit(ctx context.Context, input NewRequest, actor string, out *Request) error {
	if err := ValidateRequestDates(input.StartDate, input.EndDate); err != nil {
		return err
	}

	return db.InTx(ctx, s.DB, func(tx pgx.Tx) error {
		if _, err := s.Directory.LockActive(ctx, tx, input.EmployeeID); err != nil {
			return err
		}
		lt, err := s.Store.GetType(ctx, tx, input.LeaveTypeID)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.NotFound("leave type %s not found", input.LeaveTypeID)
		}
		if err != nil {
			return err
		}

		days := CalculateDays(input.StartDate, input.EndDate)
		year := input.StartDate.Year()
		balance, err := s.balanceFor(ctx, tx, input.EmployeeID, lt, year)
		if err != nil {
			return err
		}
		if days.GreaterThan(balance.Remaining) {
			return apperror.InsufficientBalance(
				"requested %s days exceeds remaining balance %s for %s",
				days, balance.Remaining, lt.Name)
		}

		req := Request{
			ID:          uuid.NewString(),
			EmployeeID:  input.EmployeeID,
			LeaveTypeID: lt.ID,
			StartDate:   input.StartDate,
			EndDate:     input.EndDate,
			Days:        days,
			Reason:      input.Reason,
			Status:      StatusPending,
		}
		if err := s.Store.InsertRequest(ctx, tx, req); err != nil {
			return fmt.Errorf("insert leave request: %w", err)
		}
		if err := s.Audit.Record(ctx, tx, audit.Change{
			Actor: actor, Action: "submit", EntityType: EntityRequest, EntityID: req.ID, After: req,
		}); err != nil {
			return err
		}
		*out = req
		return nil
	})
}

// Approve atomically re-checks the balance, decrements it and flips the
// request to approved. The re-check inside the transaction, not the
// submission pre-check, is what prevents concurrent over-approval.
func (s *Service) Approve(ctx context.Context, requestID, actor string) (Request, error) {
	start := time.Now()
	var req Request
	err := db.InTx(ctx, s.DB, func(tx pgx.Tx) error {
		current, err := s.lockPending(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if _, err := s.Directory.LockActive(ctx, tx, current.EmployeeID); err != nil {
			return err
		}
		lt, err := s.Store.GetType(ctx, tx, current.LeaveTypeID)
		if err != nil {
			return fmt.Errorf("load leave type: %w", err)
		}

		year := current.StartDate.Year()
		balance, err := s.balanceFor(ctx, tx, current.EmployeeID, lt, year)
		if err != nil {
			return err
		}
		if current.Days.GreaterThan(balance.Remaining) {
			return apperror.InsufficientBalance(
				"approving %s days would exceed remaining balance %s for %s",
				current.Days, balance.Remaining, lt.Name)
		}

		if err := s.Store.ApplyUsage(ctx, tx, current.EmployeeID, lt.ID, year, current.Days); err != nil {
			if db.IsCheckViolation(err, "leave_balances_non_negative") {
				return apperror.InsufficientBalance("leave balance for %s would go negative", lt.Name)
			}
			return fmt.Errorf("apply leave usage: %w", err)
		}

		now := time.Now().UTC()
		if err := s.Store.UpdateRequestDecision(ctx, tx, requestID, StatusApproved, actor, now); err != nil {
			return fmt.Errorf("approve leave request: %w", err)
		}

		decided := current
		decided.Status = StatusApproved
		decided.DecidedBy = actor
		decided.DecidedAt = &now
		if err := s.Audit.Record(ctx, tx, audit.Change{
			Actor: actor, Action: "approve", EntityType: EntityRequest, EntityID: requestID,
			Before: map[string]any{"status": StatusPending, "remaining": balance.Remaining},
			After:  map[string]any{"status": StatusApproved, "remaining": balance.Remaining.Sub(current.Days)},
		}); err != nil {
			return err
		}
		req = decided
		return nil
	})
	s.Metrics.ObserveOp("approve_leave_request", start, err)
	if err != nil {
		s.Audit.RecordFailure(ctx, audit.Change{
			Actor: actor, Action: "approve", EntityType: EntityRequest, EntityID: requestID,
		}, err)
		return Request{}, err
	}
	return req, nil
}

// Reject flips a pending request to rejected. No balance effect.
func (s *Service) Reject(ctx context.Context, requestID, actor string) (Request, error) {
	return s.decide(ctx, requestID, actor, StatusRejected, "reject")
}

// Cancel flips a pending request to cancelled. No balance effect.
func (s *Service) Cancel(ctx context.Context, requestID, actor string) (Request, error) {
	return s.decide(ctx, requestID, actor, StatusCancelled, "cancel")
}

func (s *Service) decide(ctx context.Context, requestID, actor, status, action string) (Request, error) {
	start := time.Now()
	var req Request
	err := db.InTx(ctx, s.DB, func(tx pgx.Tx) error {
		current, err := s.lockPending(ctx, tx, requestID)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		if err := s.Store.UpdateRequestDecision(ctx, tx, requestID, status, actor, now); err != nil {
			return fmt.Errorf("%s leave request: %w", action, err)
		}
		if err := s.Audit.Record(ctx, tx, audit.Change{
			Actor: actor, Action: action, EntityType: EntityRequest, EntityID: requestID,
			Before: map[string]any{"status": StatusPending},
			After:  map[string]any{"status": status},
		}); err != nil {
			return err
		}
		req = current
		req.Status = status
		req.DecidedBy = actor
		req.DecidedAt = &now
		return nil
	})
	s.Metrics.ObserveOp(action+"_leave_request", start, err)
	if err != nil {
		s.Audit.RecordFailure(ctx, audit.Change{
			Actor: actor, Action: action, EntityType: EntityRequest, EntityID: requestID,
		}, err)
		return Request{}, err
	}
	return req, nil
}

func (s *Service) lockPending(ctx context.Context, tx pgx.Tx, requestID string) (Request, error) {
	current, err := s.Store.GetRequestForUpdate(ctx, tx, requestID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, apperror.NotFound("leave request %s not found", requestID)
	}
	if err != nil {
		return Request{}, fmt.Errorf("lock leave request %s: %w", requestID, err)
	}
	if !CanTransition(current.Status) {
		return Request{}, apperror.InvalidState("leave request %s is already %s", requestID, current.Status)
	}
	return current, nil
}

// balanceFor returns the (employee, type, year) bucket, materializing it at
// full entitlement on first access.
func (s *Service) balanceFor(ctx context.Context, q db.Querier, employeeID string, lt Type, year int) (Balance, error) {
	if err := s.Store.EnsureBalance(ctx, q, employeeID, lt.ID, year, lt.AnnualEntitlement); err != nil {
		return Balance{}, err
	}
	balance, err := s.Store.GetBalance(ctx, q, employeeID, lt.ID, year)
	if err != nil {
		return Balance{}, fmt.Errorf("load leave balance: %w", err)
	}
	return balance, nil
}

// Balances returns every leave-type bucket for the employee and year,
// materializing missing buckets at full entitlement first.
func (s *Service) Balances(ctx context.Context, employeeID string, year int) ([]Balance, error) {
	if year == 0 {
		year = time.Now().Year()
	}
	var out []Balance
	err := db.InTx(ctx, s.DB, func(tx pgx.Tx) error {
		if _, err := s.Directory.GetEmployee(ctx, tx, employeeID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperror.NotFound("employee %s not found", employeeID)
			}
			return err
		}
		types, err := s.Store.ListTypes(ctx, tx)
		if err != nil {
			return err
		}
		for _, lt := range types {
			if err := s.Store.EnsureBalance(ctx, tx, employeeID, lt.ID, year, lt.AnnualEntitlement); err != nil {
				return err
			}
		}
		balances, err := s.Store.BalancesForYear(ctx, tx, employeeID, year)
		if err != nil {
			return err
		}
		out = balances
		return nil
	})
	return out, err
}

// Balance returns the single bucket for a leave type name.
func (s *Service) Balance(ctx context.Context, employeeID, typeName string, year int) (Balance, error) {
	if year == 0 {
		year = time.Now().Year()
	}
	var out Balance
	err := db.InTx(ctx, s.DB, func(tx pgx.Tx) error {
		lt, err := s.typeByName(ctx, tx, typeName)
		if err != nil {
			return err
		}
		balance, err := s.balanceFor(ctx, tx, employeeID, lt, year)
		if err != nil {
			return err
		}
		out = balance
		return nil
	})
	return out, err
}

// CreateType registers a leave type in the catalog.
func (s *Service) CreateType(ctx context.Context, name string, entitlement decimal.Decimal, actor string) (Type, error) {
	if name == "" {
		return Type{}, apperror.Validation("leave type name is required")
	}
	if entitlement.LessThanOrEqual(decimal.Zero) {
		return Type{}, apperror.Validation("annual entitlement must be positive")
	}
	var lt Type
	err := db.InTx(ctx, s.DB, func(tx pgx.Tx) error {
		created, err := s.Store.InsertType(ctx, tx, name, entitlement)
		if err != nil {
			if db.IsUniqueViolation(err, "leave_types_name_key") {
				return apperror.Validation("leave type %s already exists", name)
			}
			return fmt.Errorf("create leave type: %w", err)
		}
		lt = created
		return s.Audit.Record(ctx, tx, audit.Change{
			Actor: actor, Action: "create", EntityType: "leave_type", EntityID: lt.ID, After: lt,
		})
	})
	if err != nil {
		return Type{}, err
	}
	return lt, nil
}

func (s *Service) Types(ctx context.Context) ([]Type, error) {
	return s.Store.ListTypes(ctx, s.DB)
}

// TypeByName resolves a leave-type name case-insensitively.
func (s *Service) TypeByName(ctx context.Context, name string) (Type, error) {
	return s.typeByName(ctx, s.DB, name)
}

func (s *Service) typeByName(ctx context.Context, q db.Querier, name string) (Type, error) {
	lt, err := s.Store.GetTypeByName(ctx, q, name)
	if errors.Is(err, pgx.ErrNoRows) {
		return Type{}, apperror.NotFound("leave type %q not found", name)
	}
	if err != nil {
		return Type{}, fmt.Errorf("lookup leave type %q: %w", name, err)
	}
	return lt, nil
}

func (s *Service) Requests(ctx context.Context, employeeID, status string) ([]Request, error) {
	return s.Store.ListRequests(ctx, s.DB, employeeID, status)
}

func (s *Service) GetRequest(ctx context.Context, id string) (Request, error) {
	req, err := s.Store.GetRequest(ctx, s.DB, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, apperror.NotFound("leave request %s not found", id)
	}
	if err != nil {
		return Request{}, fmt.Errorf("get leave request %s: %w", id, err)
	}
	return req, nil
}

package directory

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"hrengine/internal/apperror"
	"hrengine/internal/db"
	"hrengine/internal/domain/audit"
	"hrengine/internal/platform/metrics"
)

// Service owns employee identity: identifier issuance, uniqueness, the
// reporting graph, and name resolution. The ledgers hold references into
// this directory but never duplicate it.
type Service struct {
	DB      db.Pool
	Store   *Store
	Audit   *audit.Trail
	Log     *slog.Logger
	Metrics *metrics.Metrics
}

func NewService(pool db.Pool, trail *audit.Trail, log *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{DB: pool, Store: &Store{}, Audit: trail, Log: log, Metrics: m}
}

// AddEmployee validates required fields, allocates the next sequential
// identifier and persists the record as active, all in one transaction with
// its audit entry.
func (s *Service) AddEmployee(ctx context.Context, input NewEmployee, actor string) (Employee, error) {
	start := time.Now()
	var emp Employee
	err := s.addEmployee(ctx, input, actor, &emp)
	s.Metrics.ObserveOp("add_employee", start, err)
	if err != nil {
		s.Audit.RecordFailure(ctx, audit.Change{
			Actor: actor, Action: "create", EntityType: EntityEmployee, After: input,
		}, err)
		return Employee{}, err
	}
	return emp, nil
}

func (s *Service) addEmployee(ctx context.Context, input NewEmployee, actor string, out *Employee) error {
	if err := ValidateNewEmployee(input); err != nil {
		return err
	}
	hireDate := input.HireDate
	if hireDate.IsZero() {
		hireDate = time.Now().UTC().Truncate(24 * time.Hour)
	}

	return db.InTx(ctx, s.DB, func(tx pgx.Tx) error {
		seq, err := s.Store.NextEmployeeSeq(ctx, tx)
		if err != nil {
			return err
		}
		emp := Employee{
			ID:           FormatEmployeeID(seq),
			Name:         input.Name,
			Email:        input.Email,
			Phone:        input.Phone,
			DepartmentID: input.DepartmentID,
			PositionID:   input.PositionID,
			ManagerID:    input.ManagerID,
			HireDate:     hireDate,
			Status:       StatusActive,
		}
		if emp.ManagerID != "" {
			if _, err := s.Store.GetEmployee(ctx, tx, emp.ManagerID); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return apperror.NotFound("manager %s not found", emp.ManagerID)
				}
				return err
			}
		}
		if err := s.Store.InsertEmployee(ctx, tx, emp); err != nil {
			if db.IsUniqueViolation(err, "employees_email_key") {
				return apperror.Validation("email %s is already registered", emp.Email)
			}
			if db.IsForeignKeyViolation(err) {
				return apperror.NotFound("department or position reference does not exist")
			}
			return fmt.Errorf("insert employee: %w", err)
		}
		if err := s.Audit.Record(ctx, tx, audit.Change{
			Actor: actor, Action: "create", EntityType: EntityEmployee, EntityID: emp.ID, After: emp,
		}); err != nil {
			return err
		}
		*out = emp
		return nil
	})
}

func (s *Service) GetEmployee(ctx context.Context, id string) (Employee, error) {
	emp, err := s.Store.GetEmployee(ctx, s.DB, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, apperror.NotFound("employee %s not found", id)
	}
	if err != nil {
		return Employee{}, fmt.Errorf("get employee %s: %w", id, err)
	}
	return emp, nil
}

// UpdateEmployee applies a partial update. Manager reassignment is checked
// against the reporting graph inside the transaction; the audit entry
// carries only the fields that changed.
func (s *Service) UpdateEmployee(ctx context.Context, id string, upd EmployeeUpdate, actor string) (Employee, error) {
	start := time.Now()
	var updated Employee
	err := db.InTx(ctx, s.DB, func(tx pgx.Tx) error {
		current, err := s.Store.GetEmployeeForUpdate(ctx, tx, id)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.NotFound("employee %s not found", id)
		}
		if err != nil {
			return err
		}

		next, before, after := applyUpdate(current, upd)
		if len(after) == 0 {
			updated = current
			return nil
		}

		if upd.HireDate != nil && upd.HireDate.IsZero() {
			return apperror.Validation("invalid hire date")
		}
		if changed(before, "managerId") && next.ManagerID != "" {
			managerOf, err := s.Store.ManagerMap(ctx, tx)
			if err != nil {
				return err
			}
			if _, ok := managerOf[next.ManagerID]; !ok {
				return apperror.NotFound("manager %s not found", next.ManagerID)
			}
			if WouldCreateCycle(managerOf, id, next.ManagerID) {
				return apperror.Validation("manager assignment would create a reporting cycle")
			}
		}

		if err := s.Store.UpdateEmployee(ctx, tx, next); err != nil {
			if db.IsUniqueViolation(err, "employees_email_key") {
				return apperror.Validation("email %s is already registered", next.Email)
			}
			if db.IsForeignKeyViolation(err) {
				return apperror.NotFound("department or position reference does not exist")
			}
			return fmt.Errorf("update employee %s: %w", id, err)
		}

		if err := s.Audit.Record(ctx, tx, audit.Change{
			Actor: actor, Action: "update", EntityType: EntityEmployee, EntityID: id,
			Before: before, After: after,
		}); err != nil {
			return err
		}
		updated = next
		return nil
	})
	s.Metrics.ObserveOp("update_employee", start, err)
	if err != nil {
		s.Audit.RecordFailure(ctx, audit.Change{
			Actor: actor, Action: "update", EntityType: EntityEmployee, EntityID: id,
		}, err)
		return Employee{}, err
	}
	return updated, nil
}

// TerminateEmployee soft-marks the employee. Terminating an already
// terminated employee is a no-op success and writes no audit entry.
func (s *Service) TerminateEmployee(ctx context.Context, id, actor string) error {
	return s.setStatus(ctx, id, actor, StatusTerminated, "terminate")
}

// ReactivateEmployee returns a terminated employee to active status.
func (s *Service) ReactivateEmployee(ctx context.Context, id, actor string) error {
	return s.setStatus(ctx, id, actor, StatusActive, "reactivate")
}

func (s *Service) setStatus(ctx context.Context, id, actor, status, action string) error {
	start := time.Now()
	err := db.InTx(ctx, s.DB, func(tx pgx.Tx) error {
		current, err := s.Store.GetEmployeeForUpdate(ctx, tx, id)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.NotFound("employee %s not found", id)
		}
		if err != nil {
			return err
		}
		if current.Status == status {
			return nil
		}
		if err := s.Store.UpdateEmployeeStatus(ctx, tx, id, status); err != nil {
			return fmt.Errorf("%s employee %s: %w", action, id, err)
		}
		return s.Audit.Record(ctx, tx, audit.Change{
			Actor: actor, Action: action, EntityType: EntityEmployee, EntityID: id,
			Before: map[string]any{"status": current.Status},
			After:  map[string]any{"status": status},
		})
	})
	s.Metrics.ObserveOp(action+"_employee", start, err)
	if err != nil {
		s.Audit.RecordFailure(ctx, audit.Change{
			Actor: actor, Action: action, EntityType: EntityEmployee, EntityID: id,
		}, err)
	}
	return err
}

// ResolveByName maps a human name to the single matching active employee
// identifier. Exact case-insensitive matching always runs first; fuzzy
// matching only participates when opts.Fuzzy is set. Ambiguity is an error,
// never a silent pick.
func (s *Service) ResolveByName(ctx context.Context, name string, opts ResolveOptions) (string, error) {
	matches, err := s.Store.FindActiveByName(ctx, s.DB, name, opts.Department)
	if err != nil {
		return "", fmt.Errorf("resolve name %q: %w", name, err)
	}

	if len(matches) == 0 && opts.Fuzzy {
		active, err := s.Store.ListActive(ctx, s.DB)
		if err != nil {
			return "", fmt.Errorf("resolve name %q: %w", name, err)
		}
		matches = fuzzyMatches(name, active)
	}

	switch len(matches) {
	case 0:
		return "", apperror.NotFound("no active employee named %q", name)
	case 1:
		return matches[0].ID, nil
	default:
		ids := make([]string, len(matches))
		for i, m := range matches {
			ids[i] = m.ID
		}
		return "", apperror.Ambiguous(
			fmt.Sprintf("%d active employees match %q, disambiguate by department or identifier", len(matches), name),
			ids)
	}
}

// Search returns a lazy sequence of employees matching the filter. The
// sequence is restartable; each range re-runs the query. No side effects.
func (s *Service) Search(ctx context.Context, filter SearchFilter) iter.Seq2[Employee, error] {
	return func(yield func(Employee, error) bool) {
		rows, err := s.Store.QuerySearch(ctx, s.DB, filter)
		if err != nil {
			yield(Employee{}, fmt.Errorf("search employees: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			emp, err := scanEmployee(rows)
			if err != nil {
				yield(Employee{}, err)
				return
			}
			if !yield(emp, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(Employee{}, err)
		}
	}
}

func (s *Service) CreateDepartment(ctx context.Context, name, parentID, actor string) (Department, error) {
	if name == "" {
		return Department{}, apperror.Validation("department name is required")
	}
	var dep Department
	err := db.InTx(ctx, s.DB, func(tx pgx.Tx) error {
		if parentID != "" {
			if _, err := s.Store.GetDepartment(ctx, tx, parentID); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return apperror.NotFound("parent department %s not found", parentID)
				}
				return err
			}
		}
		created, err := s.Store.InsertDepartment(ctx, tx, name, parentID)
		if err != nil {
			if db.IsUniqueViolation(err, "departments_name_key") {
				return apperror.Validation("department %s already exists", name)
			}
			return fmt.Errorf("create department: %w", err)
		}
		dep = created
		return s.Audit.Record(ctx, tx, audit.Change{
			Actor: actor, Action: "create", EntityType: "department", EntityID: dep.ID, After: dep,
		})
	})
	if err != nil {
		return Department{}, err
	}
	return dep, nil
}

// UpdateDepartment renames or reparents a department; fields absent from
// the update are left untouched. Reparenting that would close a hierarchy
// loop is rejected.
func (s *Service) UpdateDepartment(ctx context.Context, id string, upd DepartmentUpdate, actor string) (Department, error) {
	var dep Department
	err := db.InTx(ctx, s.DB, func(tx pgx.Tx) error {
		current, err := s.Store.GetDepartment(ctx, tx, id)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.NotFound("department %s not found", id)
		}
		if err != nil {
			return err
		}
		next := current
		if upd.Name != nil && *upd.Name != "" {
			next.Name = *upd.Name
		}
		if upd.ParentID != nil {
			next.ParentID = *upd.ParentID
		}
		if next.ParentID != "" && next.ParentID != current.ParentID {
			parentOf, err := s.Store.DepartmentParentMap(ctx, tx)
			if err != nil {
				return err
			}
			if _, ok := parentOf[next.ParentID]; !ok {
				return apperror.NotFound("parent department %s not found", next.ParentID)
			}
			if WouldCreateCycle(parentOf, id, next.ParentID) {
				return apperror.Validation("parent assignment would create a department cycle")
			}
		}
		if err := s.Store.UpdateDepartment(ctx, tx, next); err != nil {
			if db.IsUniqueViolation(err, "departments_name_key") {
				return apperror.Validation("department %s already exists", next.Name)
			}
			return err
		}
		dep = next
		return s.Audit.Record(ctx, tx, audit.Change{
			Actor: actor, Action: "update", EntityType: "department", EntityID: id,
			Before: current, After: next,
		})
	})
	if err != nil {
		return Department{}, err
	}
	return dep, nil
}

// MergeDepartments moves every employee of source into target and removes
// the source department.
func (s *Service) MergeDepartments(ctx context.Context, sourceID, targetID, actor string) error {
	if sourceID == targetID {
		return apperror.Validation("cannot merge a department into itself")
	}
	return db.InTx(ctx, s.DB, func(tx pgx.Tx) error {
		for _, id := range []string{sourceID, targetID} {
			if _, err := s.Store.GetDepartment(ctx, tx, id); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return apperror.NotFound("department %s not found", id)
				}
				return err
			}
		}
		moved, err := s.Store.MoveDepartmentMembers(ctx, tx, sourceID, targetID)
		if err != nil {
			return fmt.Errorf("move department members: %w", err)
		}
		if err := s.Store.DeleteDepartment(ctx, tx, sourceID); err != nil {
			return fmt.Errorf("delete merged department: %w", err)
		}
		return s.Audit.Record(ctx, tx, audit.Change{
			Actor: actor, Action: "merge", EntityType: "department", EntityID: sourceID,
			After: map[string]any{"target": targetID, "employeesMoved": moved},
		})
	})
}

// EnsureDepartment returns the department with the given name, creating it
// when absent.
func (s *Service) EnsureDepartment(ctx context.Context, name, actor string) (Department, error) {
	dep, err := s.Store.GetDepartmentByName(ctx, s.DB, name)
	if err == nil {
		return dep, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Department{}, fmt.Errorf("lookup department %q: %w", name, err)
	}
	created, err := s.CreateDepartment(ctx, name, "", actor)
	if apperror.IsKind(err, apperror.KindValidation) {
		// Lost the creation race; the department exists now.
		return s.Store.GetDepartmentByName(ctx, s.DB, name)
	}
	return created, err
}

func (s *Service) CreatePosition(ctx context.Context, title string, minSalary, maxSalary *decimal.Decimal, actor string) (Position, error) {
	if title == "" {
		return Position{}, apperror.Validation("position title is required")
	}
	if minSalary != nil && maxSalary != nil && minSalary.GreaterThan(*maxSalary) {
		return Position{}, apperror.Validation("salary range minimum exceeds maximum")
	}
	var pos Position
	err := db.InTx(ctx, s.DB, func(tx pgx.Tx) error {
		created, err := s.Store.InsertPosition(ctx, tx, Position{Title: title, MinSalary: minSalary, MaxSalary: maxSalary})
		if err != nil {
			return fmt.Errorf("create position: %w", err)
		}
		pos = created
		return s.Audit.Record(ctx, tx, audit.Change{
			Actor: actor, Action: "create", EntityType: "position", EntityID: pos.ID, After: pos,
		})
	})
	if err != nil {
		return Position{}, err
	}
	return pos, nil
}

// EnsurePosition returns the position with the given title, creating it
// without a salary range when absent.
func (s *Service) EnsurePosition(ctx context.Context, title, actor string) (Position, error) {
	pos, err := s.Store.GetPositionByTitle(ctx, s.DB, title)
	if err == nil {
		return pos, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Position{}, fmt.Errorf("lookup position %q: %w", title, err)
	}
	return s.CreatePosition(ctx, title, nil, nil, actor)
}

func applyUpdate(current Employee, upd EmployeeUpdate) (Employee, map[string]any, map[string]any) {
	next := current
	before := map[string]any{}
	after := map[string]any{}

	set := func(field string, oldVal, newVal any, apply func()) {
		if oldVal == newVal {
			return
		}
		before[field] = oldVal
		after[field] = newVal
		apply()
	}

	if upd.Name != nil {
		set("name", current.Name, *upd.Name, func() { next.Name = *upd.Name })
	}
	if upd.Email != nil {
		set("email", current.Email, *upd.Email, func() { next.Email = *upd.Email })
	}
	if upd.Phone != nil {
		set("phone", current.Phone, *upd.Phone, func() { next.Phone = *upd.Phone })
	}
	if upd.DepartmentID != nil {
		set("departmentId", current.DepartmentID, *upd.DepartmentID, func() { next.DepartmentID = *upd.DepartmentID })
	}
	if upd.PositionID != nil {
		set("positionId", current.PositionID, *upd.PositionID, func() { next.PositionID = *upd.PositionID })
	}
	if upd.ManagerID != nil {
		set("managerId", current.ManagerID, *upd.ManagerID, func() { next.ManagerID = *upd.ManagerID })
	}
	if upd.HireDate != nil && !upd.HireDate.Equal(current.HireDate) {
		before["hireDate"] = current.HireDate
		after["hireDate"] = *upd.HireDate
		next.HireDate = *upd.HireDate
	}
	return next, before, after
}

func changed(before map[string]any, field string) bool {
	_, ok := before[field]
	return ok
}

package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"hrengine/internal/apperror"
	"hrengine/internal/db"
)

// Store holds the directory SQL. Every method takes a Querier so the same
// code runs against the pool or inside an open transaction.
type Store struct{}

const employeeColumns = `
    id, name, email,
    COALESCE(phone, ''),
    COALESCE(department_id::text, ''),
    COALESCE(position_id::text, ''),
    COALESCE(manager_id, ''),
    hire_date, status, created_at, updated_at`

func scanEmployee(row pgx.Row) (Employee, error) {
	var emp Employee
	err := row.Scan(&emp.ID, &emp.Name, &emp.Email, &emp.Phone,
		&emp.DepartmentID, &emp.PositionID, &emp.ManagerID,
		&emp.HireDate, &emp.Status, &emp.CreatedAt, &emp.UpdatedAt)
	return emp, err
}

// NextEmployeeSeq atomically advances the employee counter and returns the
// new value. The single-row upsert serializes concurrent allocations.
func (s *Store) NextEmployeeSeq(ctx context.Context, q db.Querier) (int64, error) {
	var seq int64
	err := q.QueryRow(ctx, `
    INSERT INTO id_counters (name, last_value, updated_at)
    VALUES ('employee', 1, now())
    ON CONFLICT (name) DO UPDATE
    SET last_value = id_counters.last_value + 1, updated_at = now()
    RETURNING last_value
  `).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("allocate employee sequence: %w", err)
	}
	return seq, nil
}

func (s *Store) InsertEmployee(ctx context.Context, q db.Querier, emp Employee) error {
	_, err := q.Exec(ctx, `
    INSERT INTO employees (id, name, email, phone, department_id, position_id, manager_id, hire_date, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
  `, emp.ID, emp.Name, emp.Email, nullIfEmpty(emp.Phone),
		nullIfEmpty(emp.DepartmentID), nullIfEmpty(emp.PositionID), nullIfEmpty(emp.ManagerID),
		emp.HireDate, emp.Status)
	return err
}

func (s *Store) GetEmployee(ctx context.Context, q db.Querier, id string) (Employee, error) {
	return scanEmployee(q.QueryRow(ctx,
		"SELECT"+employeeColumns+" FROM employees WHERE id = $1", id))
}

// GetEmployeeForUpdate locks the employee row, serializing concurrent
// mutations of the same aggregate.
func (s *Store) GetEmployeeForUpdate(ctx context.Context, q db.Querier, id string) (Employee, error) {
	return scanEmployee(q.QueryRow(ctx,
		"SELECT"+employeeColumns+" FROM employees WHERE id = $1 FOR UPDATE", id))
}

// LockActive locks the employee aggregate for the duration of the caller's
// transaction and asserts the employee can be operated on. The ledgers call
// this before touching any dependent record.
func (s *Store) LockActive(ctx context.Context, q db.Querier, id string) (Employee, error) {
	emp, err := s.GetEmployeeForUpdate(ctx, q, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, apperror.NotFound("employee %s not found", id)
	}
	if err != nil {
		return Employee{}, fmt.Errorf("lock employee %s: %w", id, err)
	}
	if emp.Status != StatusActive {
		return Employee{}, apperror.InvalidState("employee %s is %s", id, emp.Status)
	}
	return emp, nil
}

func (s *Store) UpdateEmployee(ctx context.Context, q db.Querier, emp Employee) error {
	cmd, err := q.Exec(ctx, `
    UPDATE employees
    SET name = $2, email = $3, phone = $4, department_id = $5, position_id = $6,
        manager_id = $7, hire_date = $8, status = $9, updated_at = now()
    WHERE id = $1
  `, emp.ID, emp.Name, emp.Email, nullIfEmpty(emp.Phone),
		nullIfEmpty(emp.DepartmentID), nullIfEmpty(emp.PositionID), nullIfEmpty(emp.ManagerID),
		emp.HireDate, emp.Status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *Store) UpdateEmployeeStatus(ctx context.Context, q db.Querier, id, status string) error {
	_, err := q.Exec(ctx,
		"UPDATE employees SET status = $2, updated_at = now() WHERE id = $1", id, status)
	return err
}

// ManagerMap returns employee id -> manager id ("" for none) for cycle
// checks on manager reassignment.
func (s *Store) ManagerMap(ctx context.Context, q db.Querier) (map[string]string, error) {
	rows, err := q.Query(ctx, "SELECT id, COALESCE(manager_id, '') FROM employees")
	if err != nil {
		return nil, fmt.Errorf("load manager graph: %w", err)
	}
	defer rows.Close()

	managerOf := make(map[string]string)
	for rows.Next() {
		var id, managerID string
		if err := rows.Scan(&id, &managerID); err != nil {
			return nil, err
		}
		managerOf[id] = managerID
	}
	return managerOf, rows.Err()
}

// FindActiveByName returns active employees whose normalized full name
// matches exactly, optionally narrowed to a department name.
func (s *Store) FindActiveByName(ctx context.Context, q db.Querier, name, department string) ([]Employee, error) {
	query := `
    SELECT` + employeeColumns + `
    FROM employees e
    WHERE e.status = 'active' AND lower(e.name) = lower($1)`
	args := []any{name}
	if department != "" {
		query += ` AND e.department_id = (SELECT id FROM departments WHERE lower(name) = lower($2))`
		args = append(args, department)
	}
	query += " ORDER BY e.id"

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEmployees(rows)
}

// ListActive returns every active employee; used by fuzzy resolution.
func (s *Store) ListActive(ctx context.Context, q db.Querier) ([]Employee, error) {
	rows, err := q.Query(ctx,
		"SELECT"+employeeColumns+" FROM employees WHERE status = 'active' ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEmployees(rows)
}

// QuerySearch runs the filtered listing; the caller owns the rows.
func (s *Store) QuerySearch(ctx context.Context, q db.Querier, filter SearchFilter) (pgx.Rows, error) {
	query := "SELECT" + employeeColumns + " FROM employees WHERE 1=1"
	var args []any
	if filter.DepartmentID != "" {
		args = append(args, filter.DepartmentID)
		query += fmt.Sprintf(" AND department_id = $%d", len(args))
	}
	if filter.PositionID != "" {
		args = append(args, filter.PositionID)
		query += fmt.Sprintf(" AND position_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if !filter.HiredFrom.IsZero() {
		args = append(args, filter.HiredFrom)
		query += fmt.Sprintf(" AND hire_date >= $%d", len(args))
	}
	if !filter.HiredTo.IsZero() {
		args = append(args, filter.HiredTo)
		query += fmt.Sprintf(" AND hire_date <= $%d", len(args))
	}
	query += " ORDER BY id"
	return q.Query(ctx, query, args...)
}

func collectEmployees(rows pgx.Rows) ([]Employee, error) {
	var out []Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

func (s *Store) InsertDepartment(ctx context.Context, q db.Querier, name, parentID string) (Department, error) {
	dep := Department{Name: name, ParentID: parentID}
	err := q.QueryRow(ctx, `
    INSERT INTO departments (name, parent_id)
    VALUES ($1, $2)
    RETURNING id, created_at
  `, name, nullIfEmpty(parentID)).Scan(&dep.ID, &dep.CreatedAt)
	return dep, err
}

func (s *Store) GetDepartment(ctx context.Context, q db.Querier, id string) (Department, error) {
	var dep Department
	err := q.QueryRow(ctx, `
    SELECT id, name, COALESCE(parent_id::text, ''), created_at
    FROM departments WHERE id = $1
  `, id).Scan(&dep.ID, &dep.Name, &dep.ParentID, &dep.CreatedAt)
	return dep, err
}

func (s *Store) GetDepartmentByName(ctx context.Context, q db.Querier, name string) (Department, error) {
	var dep Department
	err := q.QueryRow(ctx, `
    SELECT id, name, COALESCE(parent_id::text, ''), created_at
    FROM departments WHERE lower(name) = lower($1)
  `, name).Scan(&dep.ID, &dep.Name, &dep.ParentID, &dep.CreatedAt)
	return dep, err
}

func (s *Store) UpdateDepartment(ctx context.Context, q db.Querier, dep Department) error {
	cmd, err := q.Exec(ctx, `
    UPDATE departments SET name = $2, parent_id = $3, updated_at = now() WHERE id = $1
  `, dep.ID, dep.Name, nullIfEmpty(dep.ParentID))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DepartmentParentMap returns department id -> parent id for acyclicity
// checks on reparenting.
func (s *Store) DepartmentParentMap(ctx context.Context, q db.Querier) (map[string]string, error) {
	rows, err := q.Query(ctx, "SELECT id, COALESCE(parent_id::text, '') FROM departments")
	if err != nil {
		return nil, fmt.Errorf("load department hierarchy: %w", err)
	}
	defer rows.Close()

	parentOf := make(map[string]string)
	for rows.Next() {
		var id, parentID string
		if err := rows.Scan(&id, &parentID); err != nil {
			return nil, err
		}
		parentOf[id] = parentID
	}
	return parentOf, rows.Err()
}

// MoveDepartmentMembers reassigns every employee of source to target.
func (s *Store) MoveDepartmentMembers(ctx context.Context, q db.Querier, sourceID, targetID string) (int64, error) {
	cmd, err := q.Exec(ctx,
		"UPDATE employees SET department_id = $2, updated_at = now() WHERE department_id = $1",
		sourceID, targetID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (s *Store) DeleteDepartment(ctx context.Context, q db.Querier, id string) error {
	_, err := q.Exec(ctx, "DELETE FROM departments WHERE id = $1", id)
	return err
}

func (s *Store) InsertPosition(ctx context.Context, q db.Querier, pos Position) (Position, error) {
	err := q.QueryRow(ctx, `
    INSERT INTO positions (title, min_salary, max_salary)
    VALUES ($1, $2, $3)
    RETURNING id, created_at
  `, pos.Title, pos.MinSalary, pos.MaxSalary).Scan(&pos.ID, &pos.CreatedAt)
	return pos, err
}

func (s *Store) GetPosition(ctx context.Context, q db.Querier, id string) (Position, error) {
	var pos Position
	err := q.QueryRow(ctx, `
    SELECT id, title, min_salary, max_salary, created_at
    FROM positions WHERE id = $1
  `, id).Scan(&pos.ID, &pos.Title, &pos.MinSalary, &pos.MaxSalary, &pos.CreatedAt)
	return pos, err
}

func (s *Store) GetPositionByTitle(ctx context.Context, q db.Querier, title string) (Position, error) {
	var pos Position
	err := q.QueryRow(ctx, `
    SELECT id, title, min_salary, max_salary, created_at
    FROM positions WHERE lower(title) = lower($1)
  `, title).Scan(&pos.ID, &pos.Title, &pos.MinSalary, &pos.MaxSalary, &pos.CreatedAt)
	return pos, err
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

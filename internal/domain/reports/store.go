package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"hrengine/internal/db"
)

type Store struct{}

func (s *Store) CountByStatus(ctx context.Context, q db.Querier) (map[string]int64, error) {
	rows, err := q.Query(ctx, "SELECT status, COUNT(*) FROM employees GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}

func (s *Store) ActiveByDepartment(ctx context.Context, q db.Querier) (map[string]int64, error) {
	rows, err := q.Query(ctx, `
    SELECT d.name, COUNT(*)
    FROM employees e
    JOIN departments d ON d.id = e.department_id
    WHERE e.status = 'active'
    GROUP BY d.name
  `)
	if err != nil {
		return nil, fmt.Errorf("count by department: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var name string
		var n int64
		if err := rows.Scan(&name, &n); err != nil {
			return nil, err
		}
		out[name] = n
	}
	return out, rows.Err()
}

func (s *Store) HiresSince(ctx context.Context, q db.Querier, since time.Time) (int64, error) {
	var n int64
	err := q.QueryRow(ctx,
		"SELECT COUNT(*) FROM employees WHERE hire_date >= $1", since).Scan(&n)
	return n, err
}

func (s *Store) PendingLeaveRequests(ctx context.Context, q db.Querier) (int64, error) {
	var n int64
	err := q.QueryRow(ctx,
		"SELECT COUNT(*) FROM leave_requests WHERE status = 'pending'").Scan(&n)
	return n, err
}

func (s *Store) ApprovedLeaveStarting(ctx context.Context, q db.Querier, from, to time.Time) (int64, error) {
	var n int64
	err := q.QueryRow(ctx, `
    SELECT COUNT(*) FROM leave_requests
    WHERE status = 'approved' AND start_date >= $1 AND start_date <= $2
  `, from, to).Scan(&n)
	return n, err
}

// MonthlyHires groups hires by calendar month within [from, to].
func (s *Store) MonthlyHires(ctx context.Context, q db.Querier, from, to time.Time) (map[string]int64, error) {
	rows, err := q.Query(ctx, `
    SELECT to_char(hire_date, 'YYYY-MM'), COUNT(*)
    FROM employees
    WHERE hire_date >= $1 AND hire_date <= $2
    GROUP BY 1
  `, from, to)
	if err != nil {
		return nil, fmt.Errorf("monthly hires: %w", err)
	}
	defer rows.Close()
	return collectMonthCounts(rows)
}

// MonthlyTerminations groups employee termination events recorded in the
// audit trail by calendar month within [from, to].
func (s *Store) MonthlyTerminations(ctx context.Context, q db.Querier, from, to time.Time) (map[string]int64, error) {
	rows, err := q.Query(ctx, `
    SELECT to_char(occurred_at, 'YYYY-MM'), COUNT(*)
    FROM audit_log
    WHERE action = 'terminate' AND entity_type = 'employee' AND result = 'success'
      AND occurred_at >= $1 AND occurred_at <= $2
    GROUP BY 1
  `, from, to)
	if err != nil {
		return nil, fmt.Errorf("monthly terminations: %w", err)
	}
	defer rows.Close()
	return collectMonthCounts(rows)
}

func collectMonthCounts(rows pgx.Rows) (map[string]int64, error) {
	out := make(map[string]int64)
	for rows.Next() {
		var month string
		var n int64
		if err := rows.Scan(&month, &n); err != nil {
			return nil, err
		}
		out[month] = n
	}
	return out, rows.Err()
}

// OrgRows returns id, name, title and manager id for every active
// employee, ordered for deterministic tree construction.
func (s *Store) OrgRows(ctx context.Context, q db.Querier) ([]orgRow, error) {
	rows, err := q.Query(ctx, `
    SELECT e.id, e.name, COALESCE(p.title, ''), COALESCE(e.manager_id, '')
    FROM employees e
    LEFT JOIN positions p ON p.id = e.position_id
    WHERE e.status = 'active'
    ORDER BY e.id
  `)
	if err != nil {
		return nil, fmt.Errorf("load org rows: %w", err)
	}
	defer rows.Close()

	var out []orgRow
	for rows.Next() {
		var r orgRow
		if err := rows.Scan(&r.id, &r.name, &r.title, &r.managerID); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type orgRow struct {
	id, name, title, managerID string
}

// DepartmentNames returns id -> name for every department.
func (s *Store) DepartmentNames(ctx context.Context, q db.Querier) (map[string]string, error) {
	rows, err := q.Query(ctx, "SELECT id, name FROM departments ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("load departments: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out[id] = name
	}
	return out, rows.Err()
}

package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"hrengine/internal/db"
)

type Store struct{}

const requestColumns = `
    id, employee_id, leave_type_id, start_date, end_date, days,
    reason, status, COALESCE(decided_by, ''), decided_at, created_at`

func scanRequest(row pgx.Row) (Request, error) {
	var req Request
	err := row.Scan(&req.ID, &req.EmployeeID, &req.LeaveTypeID, &req.StartDate, &req.EndDate,
		&req.Days, &req.Reason, &req.Status, &req.DecidedBy, &req.DecidedAt, &req.CreatedAt)
	return req, err
}

func (s *Store) InsertType(ctx context.Context, q db.Querier, name string, entitlement decimal.Decimal) (Type, error) {
	lt := Type{Name: name, AnnualEntitlement: entitlement}
	err := q.QueryRow(ctx, `
    INSERT INTO leave_types (name, annual_entitlement)
    VALUES ($1, $2)
    RETURNING id, created_at
  `, name, entitlement).Scan(&lt.ID, &lt.CreatedAt)
	return lt, err
}

func (s *Store) GetType(ctx context.Context, q db.Querier, id string) (Type, error) {
	var lt Type
	err := q.QueryRow(ctx, `
    SELECT id, name, annual_entitlement, created_at FROM leave_types WHERE id = $1
  `, id).Scan(&lt.ID, &lt.Name, &lt.AnnualEntitlement, &lt.CreatedAt)
	return lt, err
}

func (s *Store) GetTypeByName(ctx context.Context, q db.Querier, name string) (Type, error) {
	var lt Type
	err := q.QueryRow(ctx, `
    SELECT id, name, annual_entitlement, created_at FROM leave_types WHERE lower(name) = lower($1)
  `, name).Scan(&lt.ID, &lt.Name, &lt.AnnualEntitlement, &lt.CreatedAt)
	return lt, err
}

func (s *Store) ListTypes(ctx context.Context, q db.Querier) ([]Type, error) {
	rows, err := q.Query(ctx,
		"SELECT id, name, annual_entitlement, created_at FROM leave_types ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list leave types: %w", err)
	}
	defer rows.Close()

	var out []Type
	for rows.Next() {
		var lt Type
		if err := rows.Scan(&lt.ID, &lt.Name, &lt.AnnualEntitlement, &lt.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, lt)
	}
	return out, rows.Err()
}

// EnsureBalance materializes the (employee, type, year) bucket at full
// entitlement if it does not exist yet. Safe under concurrent first access.
func (s *Store) EnsureBalance(ctx context.Context, q db.Querier, employeeID, typeID string, year int, entitled decimal.Decimal) error {
	_, err := q.Exec(ctx, `
    INSERT INTO leave_balances (employee_id, leave_type_id, year, entitled, used, remaining)
    VALUES ($1, $2, $3, $4, 0, $4)
    ON CONFLICT (employee_id, leave_type_id, year) DO NOTHING
  `, employeeID, typeID, year, entitled)
	if err != nil {
		return fmt.Errorf("ensure leave balance: %w", err)
	}
	return nil
}

func (s *Store) GetBalance(ctx context.Context, q db.Querier, employeeID, typeID string, year int) (Balance, error) {
	var b Balance
	err := q.QueryRow(ctx, `
    SELECT b.employee_id, b.leave_type_id, t.name, b.year, b.entitled, b.used, b.remaining
    FROM leave_balances b
    JOIN leave_types t ON t.id = b.leave_type_id
    WHERE b.employee_id = $1 AND b.leave_type_id = $2 AND b.year = $3
  `, employeeID, typeID, year).
		Scan(&b.EmployeeID, &b.LeaveTypeID, &b.TypeName, &b.Year, &b.Entitled, &b.Used, &b.Remaining)
	return b, err
}

func (s *Store) BalancesForYear(ctx context.Context, q db.Querier, employeeID string, year int) ([]Balance, error) {
	rows, err := q.Query(ctx, `
    SELECT b.employee_id, b.leave_type_id, t.name, b.year, b.entitled, b.used, b.remaining
    FROM leave_balances b
    JOIN leave_types t ON t.id = b.leave_type_id
    WHERE b.employee_id = $1 AND b.year = $2
    ORDER BY t.name
  `, employeeID, year)
	if err != nil {
		return nil, fmt.Errorf("load leave balances: %w", err)
	}
	defer rows.Close()

	var out []Balance
	for rows.Next() {
		var b Balance
		if err := rows.Scan(&b.EmployeeID, &b.LeaveTypeID, &b.TypeName, &b.Year,
			&b.Entitled, &b.Used, &b.Remaining); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ApplyUsage moves days from remaining to used. The non-negative check
// constraint backstops the in-transaction balance re-check.
func (s *Store) ApplyUsage(ctx context.Context, q db.Querier, employeeID, typeID string, year int, days decimal.Decimal) error {
	cmd, err := q.Exec(ctx, `
    UPDATE leave_balances
    SET used = used + $4, remaining = remaining - $4, updated_at = now()
    WHERE employee_id = $1 AND leave_type_id = $2 AND year = $3
  `, employeeID, typeID, year, days)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *Store) InsertRequest(ctx context.Context, q db.Querier, req Request) error {
	_, err := q.Exec(ctx, `
    INSERT INTO leave_requests (id, employee_id, leave_type_id, start_date, end_date, days, reason, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
  `, req.ID, req.EmployeeID, req.LeaveTypeID, req.StartDate, req.EndDate, req.Days, req.Reason, req.Status)
	return err
}

func (s *Store) GetRequest(ctx context.Context, q db.Querier, id string) (Request, error) {
	return scanRequest(q.QueryRow(ctx,
		"SELECT"+requestColumns+" FROM leave_requests WHERE id = $1", id))
}

// GetRequestForUpdate locks the request row so concurrent decisions on the
// same request serialize.
func (s *Store) GetRequestForUpdate(ctx context.Context, q db.Querier, id string) (Request, error) {
	return scanRequest(q.QueryRow(ctx,
		"SELECT"+requestColumns+" FROM leave_requests WHERE id = $1 FOR UPDATE", id))
}

func (s *Store) UpdateRequestDecision(ctx context.Context, q db.Querier, id, status, decidedBy string, decidedAt time.Time) error {
	cmd, err := q.Exec(ctx, `
    UPDATE leave_requests SET status = $2, decided_by = $3, decided_at = $4 WHERE id = $1
  `, id, status, decidedBy, decidedAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *Store) ListRequests(ctx context.Context, q db.Querier, employeeID, status string) ([]Request, error) {
	query := "SELECT" + requestColumns + " FROM leave_requests WHERE 1=1"
	var args []any
	if employeeID != "" {
		args = append(args, employeeID)
		query += fmt.Sprintf(" AND employee_id = $%d", len(args))
	}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at, id"

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list leave requests: %w", err)
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

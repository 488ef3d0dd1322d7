package compensation

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"hrengine/internal/db"
)

type Store struct{}

const recordColumns = `
    id, employee_id, amount, currency, effective_date, reason, created_at`

func scanRecord(row pgx.Row) (SalaryRecord, error) {
	var rec SalaryRecord
	err := row.Scan(&rec.ID, &rec.EmployeeID, &rec.Amount, &rec.Currency,
		&rec.EffectiveDate, &rec.Reason, &rec.CreatedAt)
	return rec, err
}

func (s *Store) InsertRecord(ctx context.Context, q db.Querier, rec SalaryRecord) error {
	_, err := q.Exec(ctx, `
    INSERT INTO salary_records (id, employee_id, amount, currency, effective_date, reason)
    VALUES ($1,$2,$3,$4,$5,$6)
  `, rec.ID, rec.EmployeeID, rec.Amount, rec.Currency, rec.EffectiveDate, rec.Reason)
	return err
}

// LatestEffectiveDate returns the newest effective date already recorded
// for the employee, or the zero time when no history exists.
func (s *Store) LatestEffectiveDate(ctx context.Context, q db.Querier, employeeID string) (time.Time, error) {
	var latest *time.Time
	err := q.QueryRow(ctx, `
    SELECT MAX(effective_date) FROM salary_records WHERE employee_id = $1
  `, employeeID).Scan(&latest)
	if err != nil {
		return time.Time{}, fmt.Errorf("load latest effective date: %w", err)
	}
	if latest == nil {
		return time.Time{}, nil
	}
	return *latest, nil
}

// RecordAsOf returns the record governing the employee's salary at the
// given instant.
func (s *Store) RecordAsOf(ctx context.Context, q db.Querier, employeeID string, at time.Time) (SalaryRecord, error) {
	return scanRecord(q.QueryRow(ctx, `
    SELECT`+recordColumns+`
    FROM salary_records
    WHERE employee_id = $1 AND effective_date <= $2
    ORDER BY effective_date DESC, created_at DESC
    LIMIT 1
  `, employeeID, at))
}

func (s *Store) History(ctx context.Context, q db.Querier, employeeID string) ([]SalaryRecord, error) {
	rows, err := q.Query(ctx, `
    SELECT`+recordColumns+`
    FROM salary_records
    WHERE employee_id = $1
    ORDER BY effective_date, created_at
  `, employeeID)
	if err != nil {
		return nil, fmt.Errorf("load salary history: %w", err)
	}
	defer rows.Close()

	var out []SalaryRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Aggregate computes current-salary statistics over active employees
// matching the filter. Current salary is evaluated per employee at the
// given instant.
func (s *Store) Aggregate(ctx context.Context, q db.Querier, filter ReportFilter, at time.Time) (Stats, error) {
	query := `
    WITH current_salaries AS (
      SELECT DISTINCT ON (s.employee_id) s.employee_id, s.amount
      FROM salary_records s
      JOIN employees e ON e.id = s.employee_id
      WHERE e.status = 'active' AND s.effective_date <= $1`
	args := []any{at}
	if filter.DepartmentID != "" {
		args = append(args, filter.DepartmentID)
		query += fmt.Sprintf(" AND e.department_id = $%d", len(args))
	}
	if filter.PositionID != "" {
		args = append(args, filter.PositionID)
		query += fmt.Sprintf(" AND e.position_id = $%d", len(args))
	}
	query += `
      ORDER BY s.employee_id, s.effective_date DESC, s.created_at DESC
    )
    SELECT COUNT(*),
           COALESCE(AVG(amount), 0),
           COALESCE(MIN(amount), 0),
           COALESCE(MAX(amount), 0)
    FROM current_salaries`

	var stats Stats
	err := q.QueryRow(ctx, query, args...).Scan(&stats.Count, &stats.Mean, &stats.Min, &stats.Max)
	if err != nil {
		return Stats{}, fmt.Errorf("aggregate salaries: %w", err)
	}
	stats.Mean = stats.Mean.Round(2)
	return stats, nil
}

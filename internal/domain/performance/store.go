package performance

import (
	"context"
	"fmt"

	"hrengine/internal/db"
)

type Store struct{}

func (s *Store) InsertReview(ctx context.Context, q db.Querier, r Review) error {
	_, err := q.Exec(ctx, `
    INSERT INTO performance_reviews (id, employee_id, reviewer_id, period_start, period_end, rating, comments)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
  `, r.ID, r.EmployeeID, r.ReviewerID, r.PeriodStart, r.PeriodEnd, r.Rating, r.Comments)
	return err
}

func (s *Store) ListReviews(ctx context.Context, q db.Querier, employeeID string) ([]Review, error) {
	rows, err := q.Query(ctx, `
    SELECT id, employee_id, reviewer_id, period_start, period_end, rating, comments, created_at
    FROM performance_reviews
    WHERE employee_id = $1
    ORDER BY period_start, created_at
  `, employeeID)
	if err != nil {
		return nil, fmt.Errorf("list performance reviews: %w", err)
	}
	defer rows.Close()

	var out []Review
	for rows.Next() {
		var r Review
		if err := rows.Scan(&r.ID, &r.EmployeeID, &r.ReviewerID, &r.PeriodStart,
			&r.PeriodEnd, &r.Rating, &r.Comments, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

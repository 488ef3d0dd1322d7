package performance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"hrengine/internal/apperror"
	"hrengine/internal/db"
	"hrengine/internal/domain/audit"
	"hrengine/internal/domain/directory"
	"hrengine/internal/platform/metrics"
)

const EntityReview = "performance_review"

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

// CreateReview records a rated review for a period. Both the subject and
// the reviewer must exist; the subject must be active.
func (s *Service) CreateReview(ctx context.Context, input NewReview, actor string) (Review, error) {
	start := time.Now()
	var review Review
	err := s.createReview(ctx, input, actor, &review)
	s.Metrics.ObserveOp("create_review", start, err)
	if err != nil {
		s.Audit.RecordFailure(ctx, audit.Change{
			Actor: actor, Action: "create", EntityType: EntityReview,
			EntityID: input.EmployeeID, After: input,
		}, err)
		return Review{}, err
	}
	return review, nil
}

func (s *Service) createReview(ctx context.Context, input NewReview, actor string, out *Review) error {
	if input.Rating != nil && (*input.Rating < 1 || *input.Rating > 5) {
		return apperror.Validation("rating must be between 1 and 5, got %d", *input.Rating)
	}
	if input.PeriodStart.IsZero() || input.PeriodEnd.IsZero() {
		return apperror.Validation("review period is required")
	}
	if input.PeriodEnd.Before(input.PeriodStart) {
		return apperror.Validation("review period end precedes start")
	}

	return db.InTx(ctx, s.DB, func(tx pgx.Tx) error {
		if _, err := s.Directory.LockActive(ctx, tx, input.EmployeeID); err != nil {
			return err
		}
		if _, err := s.Directory.GetEmployee(ctx, tx, input.ReviewerID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperror.NotFound("reviewer %s not found", input.ReviewerID)
			}
			return err
		}

		review := Review{
			ID:          uuid.NewString(),
			EmployeeID:  input.EmployeeID,
			ReviewerID:  input.ReviewerID,
			PeriodStart: input.PeriodStart,
			PeriodEnd:   input.PeriodEnd,
			Rating:      input.Rating,
			Comments:    input.Comments,
		}
		if err := s.Store.InsertReview(ctx, tx, review); err != nil {
			return fmt.Errorf("insert performance review: %w", err)
		}
		if err := s.Audit.Record(ctx, tx, audit.Change{
			Actor: actor, Action: "create", EntityType: EntityReview, EntityID: review.ID, After: review,
		}); err != nil {
			return err
		}
		*out = review
		return nil
	})
}

// Reviews returns the employee's reviews ordered by period start.
func (s *Service) Reviews(ctx context.Context, employeeID string) ([]Review, error) {
	return s.Store.ListReviews(ctx, s.DB, employeeID)
}

// Package audit implements the append-only mutation trail. An entry is
// written inside the same transaction as the mutation it describes, so the
// two commit or roll back together.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"hrengine/internal/db"
	"hrengine/internal/platform/logger"
	"hrengine/internal/platform/metrics"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

type Entry struct {
	ID         int64           `json:"id"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      string          `json:"actor"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
	Result     string          `json:"result"`
	Reason     string          `json:"reason,omitempty"`
	RequestID  string          `json:"requestId,omitempty"`
}

// Change is what mutating operations hand to Record before it is marshaled.
type Change struct {
	Actor      string
	Action     string
	EntityType string
	EntityID   string
	Before     any
	After      any
	RequestID  string
}

type Filter struct {
	EntityType string
	EntityID   string
	From       time.Time
	To         time.Time
}

type Trail struct {
	DB      db.Pool
	Log     *slog.Logger
	Metrics *metrics.Metrics
}

func New(pool db.Pool, log *slog.Logger, m *metrics.Metrics) *Trail {
	return &Trail{DB: pool, Log: log, Metrics: m}
}

// Record appends one success entry using q, which is expected to be the
// open transaction of the mutation being described. A failed append fails
// the caller's transaction; the trail is never best-effort.
func (t *Trail) Record(ctx context.Context, q db.Querier, change Change) error {
	beforeJSON, afterJSON, err := marshalChange(change)
	if err != nil {
		return err
	}

	if _, err := q.Exec(ctx, `
    INSERT INTO audit_log (actor, action, entity_type, entity_id, before_json, after_json, result, request_id)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
  `, change.Actor, change.Action, change.EntityType, change.EntityID,
		beforeJSON, afterJSON, ResultSuccess, change.RequestID); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	t.Metrics.CountAudit(ResultSuccess)
	return nil
}

// RecordFailure appends a failed-attempt entry after the mutation's
// transaction rolled back. It runs outside any transaction; a failure here
// is logged and swallowed because the business error already carries the
// outcome.
func (t *Trail) RecordFailure(ctx context.Context, change Change, cause error) {
	beforeJSON, afterJSON, err := marshalChange(change)
	if err != nil {
		t.logFailure(change, err)
		return
	}
	if _, err := t.DB.Exec(ctx, `
    INSERT INTO audit_log (actor, action, entity_type, entity_id, before_json, after_json, result, reason, request_id)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
  `, change.Actor, change.Action, change.EntityType, change.EntityID,
		beforeJSON, afterJSON, ResultFailure, cause.Error(), change.RequestID); err != nil {
		t.logFailure(change, err)
		return
	}
	t.Metrics.CountAudit(ResultFailure)
}

func (t *Trail) logFailure(change Change, err error) {
	if t.Log != nil {
		t.Log.Error("audit failure entry not recorded",
			slog.String("action", change.Action),
			slog.String("entityId", change.EntityID),
			logger.Err(err))
	}
}

// Query returns a lazy sequence of entries ordered by occurrence time
// ascending. The sequence is restartable: each range re-runs the query.
func (t *Trail) Query(ctx context.Context, filter Filter) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		query, args := buildQuery(filter)
		rows, err := t.DB.Query(ctx, query, args...)
		if err != nil {
			yield(Entry{}, fmt.Errorf("query audit log: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var e Entry
			var reason *string
			if err := rows.Scan(&e.ID, &e.OccurredAt, &e.Actor, &e.Action, &e.EntityType,
				&e.EntityID, &e.Before, &e.After, &e.Result, &reason, &e.RequestID); err != nil {
				yield(Entry{}, fmt.Errorf("scan audit entry: %w", err))
				return
			}
			if reason != nil {
				e.Reason = *reason
			}
			if !yield(e, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(Entry{}, fmt.Errorf("iterate audit log: %w", err))
		}
	}
}

// List collects the filtered entries into a slice.
func (t *Trail) List(ctx context.Context, filter Filter) ([]Entry, error) {
	var out []Entry
	for entry, err := range t.Query(ctx, filter) {
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

func buildQuery(filter Filter) (string, []any) {
	query := `
    SELECT id, occurred_at, actor, action, entity_type, entity_id, before_json, after_json, result, reason, request_id
    FROM audit_log
    WHERE 1=1
  `
	var args []any
	if filter.EntityType != "" {
		args = append(args, filter.EntityType)
		query += fmt.Sprintf(" AND entity_type = $%d", len(args))
	}
	if filter.EntityID != "" {
		args = append(args, filter.EntityID)
		query += fmt.Sprintf(" AND entity_id = $%d", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += fmt.Sprintf(" AND occurred_at >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += fmt.Sprintf(" AND occurred_at <= $%d", len(args))
	}
	query += " ORDER BY occurred_at, id"
	return query, args
}

func marshalChange(change Change) ([]byte, []byte, error) {
	var beforeJSON, afterJSON []byte
	if change.Before != nil {
		payload, err := json.Marshal(change.Before)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal audit before state: %w", err)
		}
		beforeJSON = payload
	}
	if change.After != nil {
		payload, err := json.Marshal(change.After)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal audit after state: %w", err)
		}
		afterJSON = payload
	}
	return beforeJSON, afterJSON, nil
}

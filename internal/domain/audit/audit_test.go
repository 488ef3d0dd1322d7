package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
)

func newTestTrail(t *testing.T) (*Trail, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(mock, log, nil), mock
}

func TestRecord(t *testing.T) {
	trail, mock := newTestTrail(t)

	mock.ExpectExec("INSERT INTO audit_log").
		WithArgs("cli", "create", "employee", "EMP00001",
			pgxmock.AnyArg(), pgxmock.AnyArg(), ResultSuccess, "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := trail.Record(context.Background(), mock, Change{
		Actor: "cli", Action: "create", EntityType: "employee", EntityID: "EMP00001",
		After: map[string]any{"name": "Ada Lovelace"},
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRecordPropagatesWriteFailure(t *testing.T) {
	trail, mock := newTestTrail(t)

	mock.ExpectExec("INSERT INTO audit_log").
		WithArgs("cli", "create", "employee", "EMP00001",
			pgxmock.AnyArg(), pgxmock.AnyArg(), ResultSuccess, "").
		WillReturnError(errors.New("disk full"))

	err := trail.Record(context.Background(), mock, Change{
		Actor: "cli", Action: "create", EntityType: "employee", EntityID: "EMP00001",
	})
	if err == nil {
		t.Fatal("a failed audit write must fail the caller's transaction")
	}
}

func TestRecordFailureSwallowsErrors(t *testing.T) {
	trail, mock := newTestTrail(t)

	mock.ExpectExec("INSERT INTO audit_log").
		WithArgs("cli", "update", "employee", "EMP00001",
			pgxmock.AnyArg(), pgxmock.AnyArg(), ResultFailure, "validation failed", "").
		WillReturnError(errors.New("unavailable"))

	// Must not panic; the business error already carries the outcome.
	trail.RecordFailure(context.Background(), Change{
		Actor: "cli", Action: "update", EntityType: "employee", EntityID: "EMP00001",
	}, errors.New("validation failed"))
}

func TestQueryIsRestartable(t *testing.T) {
	trail, mock := newTestTrail(t)

	rowSet := func() *pgxmock.Rows {
		return pgxmock.NewRows([]string{
			"id", "occurred_at", "actor", "action", "entity_type", "entity_id",
			"before_json", "after_json", "result", "reason", "request_id",
		}).
			AddRow(int64(1), time.Now(), "cli", "create", "employee", "EMP00001",
				[]byte(nil), []byte(`{"name":"Ada"}`), ResultSuccess, nil, "").
			AddRow(int64(2), time.Now(), "cli", "update", "employee", "EMP00001",
				[]byte(`{"name":"Ada"}`), []byte(`{"name":"Ada L"}`), ResultSuccess, nil, "")
	}
	mock.ExpectQuery("SELECT(.+)FROM audit_log").
		WithArgs("employee").
		WillReturnRows(rowSet())
	mock.ExpectQuery("SELECT(.+)FROM audit_log").
		WithArgs("employee").
		WillReturnRows(rowSet())

	seq := trail.Query(context.Background(), Filter{EntityType: "employee"})

	// Each range over the sequence re-runs the query.
	for range 2 {
		var ids []int64
		for entry, err := range seq {
			if err != nil {
				t.Fatalf("query: %v", err)
			}
			ids = append(ids, entry.ID)
		}
		if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
			t.Fatalf("expected entries [1 2] in order, got %v", ids)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestQueryEarlyBreak(t *testing.T) {
	trail, mock := newTestTrail(t)

	mock.ExpectQuery("SELECT(.+)FROM audit_log").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "occurred_at", "actor", "action", "entity_type", "entity_id",
			"before_json", "after_json", "result", "reason", "request_id",
		}).
			AddRow(int64(1), time.Now(), "cli", "create", "employee", "EMP00001",
				[]byte(nil), []byte(nil), ResultSuccess, nil, "").
			AddRow(int64(2), time.Now(), "cli", "update", "employee", "EMP00001",
				[]byte(nil), []byte(nil), ResultSuccess, nil, ""))

	count := 0
	for _, err := range trail.Query(context.Background(), Filter{}) {
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		count++
		break
	}
	if count != 1 {
		t.Fatalf("expected early break after 1 entry, got %d", count)
	}
}

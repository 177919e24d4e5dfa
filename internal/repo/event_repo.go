package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Conductor/internal/domain"
)

// Вид архивной записи.
const (
	EventKindState = "state"
	EventKindLog   = "log"
)

// Event — одна архивная запись: переход состояния или запись лога job.
type Event struct {
	ID       int64
	JobID    string
	Kind     string
	State    string
	Seq      int64
	Severity string
	Text     string
	Time     time.Time
}

// EventRepo — репозиторий архива событий jobs.
type EventRepo struct {
	pool *pgxpool.Pool
}

// NewEventRepo создаёт новый EventRepo.
func NewEventRepo(pool *pgxpool.Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

// EnsureSchema создаёт таблицу архива, если её ещё нет.
// Сервис — единственный писатель, миграционный инструмент не требуется.
func (r *EventRepo) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS job_events (
			id        BIGSERIAL PRIMARY KEY,
			job_id    TEXT        NOT NULL,
			kind      TEXT        NOT NULL,
			state     TEXT        NOT NULL DEFAULT '',
			seq       BIGINT      NOT NULL DEFAULT 0,
			severity  TEXT        NOT NULL DEFAULT '',
			text      TEXT        NOT NULL DEFAULT '',
			time      TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS job_events_job_id_idx ON job_events (job_id, id);
	`
	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// RecordState архивирует переход состояния.
func (r *EventRepo) RecordState(ctx context.Context, jobID string, state domain.JobState) error {
	query := `
		INSERT INTO job_events (job_id, kind, state, time)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.pool.Exec(ctx, query, jobID, EventKindState, string(state), time.Now()); err != nil {
		return fmt.Errorf("insert state event: %w", err)
	}
	return nil
}

// RecordLog архивирует запись лога.
func (r *EventRepo) RecordLog(ctx context.Context, jobID string, ev domain.LogEvent) error {
	query := `
		INSERT INTO job_events (job_id, kind, seq, severity, text, time)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.pool.Exec(ctx, query, jobID, EventKindLog, ev.Seq, string(ev.Severity), ev.Text, ev.Time); err != nil {
		return fmt.Errorf("insert log event: %w", err)
	}
	return nil
}

// ListByJobID возвращает всю историю job в порядке записи.
func (r *EventRepo) ListByJobID(ctx context.Context, jobID string) ([]Event, error) {
	query := `
		SELECT id, job_id, kind, state, seq, severity, text, time
		FROM job_events
		WHERE job_id = $1
		ORDER BY id ASC
	`
	rows, err := r.pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("list events by job_id: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		err := rows.Scan(
			&ev.ID,
			&ev.JobID,
			&ev.Kind,
			&ev.State,
			&ev.Seq,
			&ev.Severity,
			&ev.Text,
			&ev.Time,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

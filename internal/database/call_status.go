package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dialaschedule/dialaschedule/internal/database/models"
	"github.com/dialaschedule/dialaschedule/internal/jambonz"
)

// callStatusRepo implements CallStatusRepository.
type callStatusRepo struct {
	db *DB
}

// NewCallStatusRepository creates a new CallStatusRepository.
func NewCallStatusRepository(db *DB) CallStatusRepository {
	return &callStatusRepo{db: db}
}

// Create inserts a call status event. An empty ID is filled with a new
// UUID and a zero ReceivedAt with the current time.
func (r *callStatusRepo) Create(ctx context.Context, ev *models.CallStatusEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = time.Now()
	}
	ev.ReceivedAt = ev.ReceivedAt.UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO call_status_events (id, call_id, call_sid, call_status,
		 termination_by, duration, caller, received_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.CallID, ev.CallSID, ev.CallStatus,
		ev.TerminationBy, ev.Duration, ev.From, ev.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting call status event: %w", err)
	}
	return nil
}

// CountByStatus returns the number of stored events per call status.
func (r *callStatusRepo) CountByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT call_status, COUNT(*) FROM call_status_events GROUP BY call_status`)
	if err != nil {
		return nil, fmt.Errorf("counting call status events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning call status count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// ListRecent returns the most recently received events, newest first.
func (r *callStatusRepo) ListRecent(ctx context.Context, limit int) ([]models.CallStatusEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, call_id, call_sid, call_status, termination_by, duration,
		 caller, received_at
		 FROM call_status_events ORDER BY received_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing recent call status events: %w", err)
	}
	defer rows.Close()

	var events []models.CallStatusEvent
	for rows.Next() {
		var ev models.CallStatusEvent
		var terminationBy sql.NullString
		var duration sql.NullInt64
		if err := rows.Scan(
			&ev.ID, &ev.CallID, &ev.CallSID, &ev.CallStatus,
			&terminationBy, &duration, &ev.From, &ev.ReceivedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning call status event: %w", err)
		}
		if terminationBy.Valid {
			ev.TerminationBy = &terminationBy.String
		}
		if duration.Valid {
			ev.Duration = &duration.Int64
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// CallLog records jambonz call status reports into a CallStatusRepository.
type CallLog struct {
	repo CallStatusRepository
	// nowFunc allows overriding the current time for testing.
	nowFunc func() time.Time
}

// NewCallLog creates a CallLog backed by repo.
func NewCallLog(repo CallStatusRepository) *CallLog {
	return &CallLog{repo: repo, nowFunc: time.Now}
}

// Record stores one call status report.
func (l *CallLog) Record(ctx context.Context, details jambonz.CallStatusDetails) error {
	ev := &models.CallStatusEvent{
		CallID:        details.CallID,
		CallSID:       details.CallSID,
		CallStatus:    string(details.CallStatus),
		TerminationBy: details.CallTerminationBy,
		Duration:      details.Duration,
		From:          details.From,
		ReceivedAt:    l.nowFunc(),
	}
	if err := l.repo.Create(ctx, ev); err != nil {
		return fmt.Errorf("recording call %s: %w", details.CallID, err)
	}
	return nil
}

package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-touch/internal/constants"
)

// TouchEvent is one recorded face touch.
type TouchEvent struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Confidence  float64   `json:"confidence"`
	SoundPlayed bool      `json:"sound_played"`
	CreatedAt   time.Time `json:"created_at"`
}

// SessionSummary aggregates the touches of one session.
type SessionSummary struct {
	SessionID string    `json:"session_id"`
	Touches   int       `json:"touches"`
	Alerts    int       `json:"alerts"`
	FirstAt   time.Time `json:"first_at"`
	LastAt    time.Time `json:"last_at"`
}

// Repository provides PostgreSQL-backed touch event storage.
type Repository struct {
	pool *Pool
}

// NewRepository creates a new touch event repository.
func NewRepository(pool *Pool) *Repository {
	return &Repository{pool: pool}
}

// RecordTouch stores a touch event for sessionID.
func (r *Repository) RecordTouch(ctx context.Context, sessionID string, confidence float64, soundPlayed bool) error {
	sid, err := uuid.Parse(sessionID)
	if err != nil {
		return fmt.Errorf("invalid session id %q: %w", sessionID, err)
	}

	query := `
		INSERT INTO touch_events (id, session_id, confidence, sound_played)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.pool.db.ExecContext(ctx, query, uuid.New(), sid, confidence, soundPlayed); err != nil {
		return fmt.Errorf("record touch: %w", err)
	}
	return nil
}

// ClampLimit bounds a requested listing size.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return constants.DefaultJournalLimit
	}
	return min(limit, constants.MaxJournalLimit)
}

// Recent returns the latest touch events, newest first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]TouchEvent, error) {
	query := `
		SELECT id, session_id, confidence, sound_played, created_at
		FROM touch_events
		ORDER BY created_at DESC, id
		LIMIT $1
	`

	rows, err := r.pool.db.QueryContext(ctx, query, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query touch events: %w", err)
	}
	defer rows.Close()

	events := make([]TouchEvent, 0)
	for rows.Next() {
		var e TouchEvent
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Confidence, &e.SoundPlayed, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan touch event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate touch events: %w", err)
	}
	return events, nil
}

// Summary returns touch and alert counts for one session.
func (r *Repository) Summary(ctx context.Context, sessionID string) (*SessionSummary, error) {
	sid, err := uuid.Parse(sessionID)
	if err != nil {
		return nil, fmt.Errorf("invalid session id %q: %w", sessionID, err)
	}

	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE sound_played),
		       COALESCE(MIN(created_at), 'epoch'),
		       COALESCE(MAX(created_at), 'epoch')
		FROM touch_events
		WHERE session_id = $1
	`

	s := SessionSummary{SessionID: sessionID}
	if err := r.pool.db.QueryRowContext(ctx, query, sid).Scan(&s.Touches, &s.Alerts, &s.FirstAt, &s.LastAt); err != nil {
		return nil, fmt.Errorf("summarize session: %w", err)
	}
	return &s, nil
}

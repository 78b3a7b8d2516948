// Package postgres implements the PostgreSQL persistence layer.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/studyseal/study-hub/internal/domain/calendar"
	"github.com/studyseal/study-hub/internal/domain/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// CALENDAR REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// CalendarRepository implements calendar.Repository for PostgreSQL.
type CalendarRepository struct {
	conn *Connection
}

// NewCalendarRepository creates a new CalendarRepository.
func NewCalendarRepository(conn *Connection) *CalendarRepository {
	return &CalendarRepository{conn: conn}
}

// Create inserts an event.
func (r *CalendarRepository) Create(ctx context.Context, e *calendar.Event) error {
	checklistJSON, err := json.Marshal(e.Checklist)
	if err != nil {
		return fmt.Errorf("failed to marshal checklist: %w", err)
	}
	if e.Checklist == nil {
		checklistJSON = []byte("[]")
	}

	query := `
		INSERT INTO calendar_events (
			id, user_id, title, start_time, end_time, subject_id,
			completed, checklist, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.conn.Exec(ctx, query,
		e.ID,
		e.UserID.String(),
		e.Title,
		e.Start,
		e.End,
		e.SubjectID.String(),
		e.Completed,
		checklistJSON,
		e.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("calendar", "Create", shared.ErrAlreadyExists, "calendar event already exists")
		}
		return fmt.Errorf("failed to create event: %w", err)
	}

	return nil
}

// FindByID returns an event by ID.
func (r *CalendarRepository) FindByID(ctx context.Context, id uuid.UUID) (*calendar.Event, error) {
	query := `
		SELECT id, user_id, title, start_time, end_time, subject_id,
			   completed, checklist, created_at
		FROM calendar_events
		WHERE id = $1
	`

	row := r.conn.QueryRow(ctx, query, id)
	return r.scanEvent(row)
}

// FindCandidates returns a user's open events overlapping the window.
func (r *CalendarRepository) FindCandidates(ctx context.Context, userID shared.UserID, window shared.TimeRange) ([]*calendar.Event, error) {
	query := `
		SELECT id, user_id, title, start_time, end_time, subject_id,
			   completed, checklist, created_at
		FROM calendar_events
		WHERE user_id = $1 AND NOT completed
		  AND start_time < $2 AND end_time > $3
		ORDER BY start_time ASC
	`

	rows, err := r.conn.Query(ctx, query, userID.String(), window.End, window.Start)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidate events: %w", err)
	}
	defer rows.Close()

	return r.scanEvents(rows)
}

// MarkCompleted flips the completed flag with a test-and-set, so a second
// writer sees zero affected rows and reports it did not perform the
// transition.
func (r *CalendarRepository) MarkCompleted(ctx context.Context, userID shared.UserID, eventID uuid.UUID) (bool, error) {
	query := `
		UPDATE calendar_events
		SET completed = TRUE
		WHERE id = $1 AND user_id = $2 AND NOT completed
	`

	result, err := r.conn.Exec(ctx, query, eventID, userID.String())
	if err != nil {
		return false, fmt.Errorf("failed to mark event completed: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// ListByUser returns a user's events inside a range, completed or not.
func (r *CalendarRepository) ListByUser(ctx context.Context, userID shared.UserID, window shared.TimeRange) ([]*calendar.Event, error) {
	query := `
		SELECT id, user_id, title, start_time, end_time, subject_id,
			   completed, checklist, created_at
		FROM calendar_events
		WHERE user_id = $1 AND start_time < $2 AND end_time > $3
		ORDER BY start_time ASC
	`

	rows, err := r.conn.Query(ctx, query, userID.String(), window.End, window.Start)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	return r.scanEvents(rows)
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER METHODS
// ══════════════════════════════════════════════════════════════════════════════

// scanEvent scans a single event from a row.
func (r *CalendarRepository) scanEvent(row pgx.Row) (*calendar.Event, error) {
	var e calendar.Event
	var userID, subjectID string
	var checklistJSON []byte

	err := row.Scan(
		&e.ID,
		&userID,
		&e.Title,
		&e.Start,
		&e.End,
		&subjectID,
		&e.Completed,
		&checklistJSON,
		&e.CreatedAt,
	)

	if IsNoRows(err) {
		return nil, shared.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}

	e.UserID = shared.UserID(userID)
	e.SubjectID = shared.SubjectID(subjectID)
	if len(checklistJSON) > 0 {
		if err := json.Unmarshal(checklistJSON, &e.Checklist); err != nil {
			return nil, fmt.Errorf("failed to unmarshal checklist: %w", err)
		}
	}

	return &e, nil
}

// scanEvents scans multiple events from rows.
func (r *CalendarRepository) scanEvents(rows pgx.Rows) ([]*calendar.Event, error) {
	var events []*calendar.Event

	for rows.Next() {
		var e calendar.Event
		var userID, subjectID string
		var checklistJSON []byte

		err := rows.Scan(
			&e.ID,
			&userID,
			&e.Title,
			&e.Start,
			&e.End,
			&subjectID,
			&e.Completed,
			&checklistJSON,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		e.UserID = shared.UserID(userID)
		e.SubjectID = shared.SubjectID(subjectID)
		if len(checklistJSON) > 0 {
			if err := json.Unmarshal(checklistJSON, &e.Checklist); err != nil {
				return nil, fmt.Errorf("failed to unmarshal checklist: %w", err)
			}
		}

		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return events, nil
}

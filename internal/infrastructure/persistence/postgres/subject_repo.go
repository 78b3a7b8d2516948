// Package postgres implements the PostgreSQL persistence layer.
package postgres

import (
	"context"
	"fmt"

	"github.com/studyseal/study-hub/internal/domain/shared"
	"github.com/studyseal/study-hub/internal/domain/subject"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBJECT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// SubjectRepository implements subject.Repository for PostgreSQL.
type SubjectRepository struct {
	conn *Connection
}

// NewSubjectRepository creates a new SubjectRepository.
func NewSubjectRepository(conn *Connection) *SubjectRepository {
	return &SubjectRepository{conn: conn}
}

// Create inserts a subject.
func (r *SubjectRepository) Create(ctx context.Context, s *subject.Subject) error {
	query := `
		INSERT INTO subjects (
			id, user_id, name, color, time_goal, time_spent, sessions_count, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.conn.Exec(ctx, query,
		s.ID.String(),
		s.UserID.String(),
		s.Name,
		s.Color,
		s.TimeGoal.Int(),
		s.TimeSpent.Int(),
		s.SessionsCount,
		s.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("subject", "Create", shared.ErrAlreadyExists, "subject already exists")
		}
		return fmt.Errorf("failed to create subject: %w", err)
	}

	return nil
}

// FindByID returns one of a user's subjects.
func (r *SubjectRepository) FindByID(ctx context.Context, userID shared.UserID, id shared.SubjectID) (*subject.Subject, error) {
	query := `
		SELECT id, user_id, name, color, time_goal, time_spent, sessions_count, created_at
		FROM subjects
		WHERE user_id = $1 AND id = $2
	`

	row := r.conn.QueryRow(ctx, query, userID.String(), id.String())
	return r.scanSubject(row)
}

// ListByUser returns all of a user's subjects.
func (r *SubjectRepository) ListByUser(ctx context.Context, userID shared.UserID) ([]*subject.Subject, error) {
	query := `
		SELECT id, user_id, name, color, time_goal, time_spent, sessions_count, created_at
		FROM subjects
		WHERE user_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.conn.Query(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}
	defer rows.Close()

	var subjects []*subject.Subject
	for rows.Next() {
		s, err := r.scanSubjectFromRows(rows)
		if err != nil {
			return nil, err
		}
		subjects = append(subjects, s)
	}

	return subjects, rows.Err()
}

// RecordSession adds a completed session to the lifetime counters. The
// increment happens in the statement, safe under concurrent session-ends.
func (r *SubjectRepository) RecordSession(ctx context.Context, userID shared.UserID, id shared.SubjectID, minutes shared.Minutes) error {
	query := `
		UPDATE subjects
		SET time_spent = time_spent + $3, sessions_count = sessions_count + 1
		WHERE user_id = $1 AND id = $2
	`

	result, err := r.conn.Exec(ctx, query, userID.String(), id.String(), minutes.Int())
	if err != nil {
		return fmt.Errorf("failed to record session: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrSubjectNotFound
	}

	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER METHODS
// ══════════════════════════════════════════════════════════════════════════════

// scanSubject scans a single subject from a row.
func (r *SubjectRepository) scanSubject(row pgx.Row) (*subject.Subject, error) {
	var s subject.Subject
	var id, userID string
	var timeGoal, timeSpent int

	err := row.Scan(
		&id,
		&userID,
		&s.Name,
		&s.Color,
		&timeGoal,
		&timeSpent,
		&s.SessionsCount,
		&s.CreatedAt,
	)

	if IsNoRows(err) {
		return nil, shared.ErrSubjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan subject: %w", err)
	}

	s.ID = shared.SubjectID(id)
	s.UserID = shared.UserID(userID)
	s.TimeGoal = shared.Minutes(timeGoal)
	s.TimeSpent = shared.Minutes(timeSpent)

	return &s, nil
}

// scanSubjectFromRows scans a subject from rows.
func (r *SubjectRepository) scanSubjectFromRows(rows pgx.Rows) (*subject.Subject, error) {
	var s subject.Subject
	var id, userID string
	var timeGoal, timeSpent int

	err := rows.Scan(
		&id,
		&userID,
		&s.Name,
		&s.Color,
		&timeGoal,
		&timeSpent,
		&s.SessionsCount,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan subject: %w", err)
	}

	s.ID = shared.SubjectID(id)
	s.UserID = shared.UserID(userID)
	s.TimeGoal = shared.Minutes(timeGoal)
	s.TimeSpent = shared.Minutes(timeSpent)

	return &s, nil
}

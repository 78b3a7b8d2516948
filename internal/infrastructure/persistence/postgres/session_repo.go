// Package postgres implements the PostgreSQL persistence layer.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/studyseal/study-hub/internal/domain/session"
	"github.com/studyseal/study-hub/internal/domain/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// SessionRepository implements session.Repository for PostgreSQL.
type SessionRepository struct {
	conn *Connection
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(conn *Connection) *SessionRepository {
	return &SessionRepository{conn: conn}
}

// Create inserts a session record at timer start.
func (r *SessionRepository) Create(ctx context.Context, s *session.StudySession) error {
	query := `
		INSERT INTO study_sessions (
			id, user_id, subject_id, start_time, end_time, duration_minutes,
			completed, skipped, coins_earned, xp_earned, finalized, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	var endTime *time.Time
	if !s.EndTime.IsZero() {
		endTime = &s.EndTime
	}

	_, err := r.conn.Exec(ctx, query,
		s.ID,
		s.UserID.String(),
		s.SubjectID.String(),
		s.StartTime,
		endTime,
		s.Duration.Int(),
		s.Completed,
		s.Skipped,
		s.CoinsEarned.Int(),
		s.XPEarned.Int(),
		s.Finalized,
		s.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("session", "Create", shared.ErrAlreadyExists, "study session already exists")
		}
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// Finalize writes the end-of-session fields with a test-and-set on the
// finalized flag, so a second end request for the same session affects zero
// rows and is rejected instead of double-counting.
func (r *SessionRepository) Finalize(ctx context.Context, s *session.StudySession) error {
	query := `
		UPDATE study_sessions SET
			end_time = $2,
			duration_minutes = $3,
			completed = $4,
			skipped = $5,
			coins_earned = $6,
			xp_earned = $7,
			finalized = TRUE
		WHERE id = $1 AND NOT finalized
	`

	result, err := r.conn.Exec(ctx, query,
		s.ID,
		s.EndTime,
		s.Duration.Int(),
		s.Completed,
		s.Skipped,
		s.CoinsEarned.Int(),
		s.XPEarned.Int(),
	)
	if err != nil {
		return fmt.Errorf("failed to finalize session: %w", err)
	}

	if result.RowsAffected() == 0 {
		// Either the row is missing or another request finalized it first.
		if _, findErr := r.FindByID(ctx, s.ID); findErr != nil {
			return findErr
		}
		return shared.ErrSessionAlreadyEnded
	}

	return nil
}

// FindByID returns a session by ID.
func (r *SessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*session.StudySession, error) {
	query := `
		SELECT id, user_id, subject_id, start_time, end_time, duration_minutes,
			   completed, skipped, coins_earned, xp_earned, finalized, created_at
		FROM study_sessions
		WHERE id = $1
	`

	row := r.conn.QueryRow(ctx, query, id)
	return r.scanSession(row)
}

// MinutesInRange sums completed session minutes whose end time falls in
// [from, to). Skipped sessions contribute nothing; the week total and the
// softcap count only minutes the user actually sat through.
func (r *SessionRepository) MinutesInRange(ctx context.Context, userID shared.UserID, from, to time.Time) (shared.Minutes, error) {
	query := `
		SELECT COALESCE(SUM(duration_minutes), 0)
		FROM study_sessions
		WHERE user_id = $1 AND finalized AND completed
		  AND end_time >= $2 AND end_time < $3
	`

	var total int
	err := r.conn.QueryRow(ctx, query, userID.String(), from, to).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum session minutes: %w", err)
	}

	return shared.Minutes(total), nil
}

// SubjectMinutesInRange sums completed session minutes of one subject whose
// end time falls in [from, to).
func (r *SessionRepository) SubjectMinutesInRange(ctx context.Context, userID shared.UserID, subjectID shared.SubjectID, from, to time.Time) (shared.Minutes, error) {
	query := `
		SELECT COALESCE(SUM(duration_minutes), 0)
		FROM study_sessions
		WHERE user_id = $1 AND subject_id = $2 AND finalized AND completed
		  AND end_time >= $3 AND end_time < $4
	`

	var total int
	err := r.conn.QueryRow(ctx, query, userID.String(), subjectID.String(), from, to).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum subject minutes: %w", err)
	}

	return shared.Minutes(total), nil
}

// ActiveUserIDs returns the distinct users with a finalized session in
// [from, to).
func (r *SessionRepository) ActiveUserIDs(ctx context.Context, from, to time.Time) ([]shared.UserID, error) {
	query := `
		SELECT DISTINCT user_id
		FROM study_sessions
		WHERE finalized AND end_time >= $1 AND end_time < $2
	`

	rows, err := r.conn.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query active users: %w", err)
	}
	defer rows.Close()

	var ids []shared.UserID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, shared.UserID(raw))
	}

	return ids, rows.Err()
}

// CompletedOverlapping returns finalized, completed sessions whose window
// intersects the given range, optionally filtered to a subject.
func (r *SessionRepository) CompletedOverlapping(ctx context.Context, userID shared.UserID, subjectID shared.SubjectID, window shared.TimeRange) ([]*session.StudySession, error) {
	query := `
		SELECT id, user_id, subject_id, start_time, end_time, duration_minutes,
			   completed, skipped, coins_earned, xp_earned, finalized, created_at
		FROM study_sessions
		WHERE user_id = $1 AND finalized AND completed
		  AND start_time < $2 AND end_time > $3
	`
	args := []interface{}{userID.String(), window.End, window.Start}

	if !subjectID.IsZero() {
		query += " AND subject_id = $4"
		args = append(args, subjectID.String())
	}
	query += " ORDER BY start_time ASC"

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query overlapping sessions: %w", err)
	}
	defer rows.Close()

	return r.scanSessions(rows)
}

// ══════════════════════════════════════════════════════════════════════════════
// SETTINGS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// SettingsRepository implements session.SettingsRepository for PostgreSQL.
type SettingsRepository struct {
	conn *Connection
}

// NewSettingsRepository creates a new SettingsRepository.
func NewSettingsRepository(conn *Connection) *SettingsRepository {
	return &SettingsRepository{conn: conn}
}

// Get returns the user's timer settings, or the defaults when the user
// never saved any.
func (r *SettingsRepository) Get(ctx context.Context, userID shared.UserID) (session.TimerSettings, error) {
	query := `
		SELECT study_minutes, break_minutes, long_break_minutes
		FROM user_settings
		WHERE user_id = $1
	`

	var settings session.TimerSettings
	err := r.conn.QueryRow(ctx, query, userID.String()).Scan(
		&settings.StudyMinutes,
		&settings.BreakMinutes,
		&settings.LongBreakMinutes,
	)

	if IsNoRows(err) {
		return session.DefaultTimerSettings(), nil
	}
	if err != nil {
		return session.TimerSettings{}, fmt.Errorf("failed to get settings: %w", err)
	}

	return settings.Normalize(), nil
}

// Put saves the user's timer settings.
func (r *SettingsRepository) Put(ctx context.Context, userID shared.UserID, settings session.TimerSettings) error {
	query := `
		INSERT INTO user_settings (user_id, study_minutes, break_minutes, long_break_minutes, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			study_minutes = EXCLUDED.study_minutes,
			break_minutes = EXCLUDED.break_minutes,
			long_break_minutes = EXCLUDED.long_break_minutes,
			updated_at = EXCLUDED.updated_at
	`

	normalized := settings.Normalize()
	_, err := r.conn.Exec(ctx, query,
		userID.String(),
		normalized.StudyMinutes,
		normalized.BreakMinutes,
		normalized.LongBreakMinutes,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER METHODS
// ══════════════════════════════════════════════════════════════════════════════

// scanSession scans a single session from a row.
func (r *SessionRepository) scanSession(row pgx.Row) (*session.StudySession, error) {
	var s session.StudySession
	var userID, subjectID string
	var endTime *time.Time
	var duration, coins, xp int

	err := row.Scan(
		&s.ID,
		&userID,
		&subjectID,
		&s.StartTime,
		&endTime,
		&duration,
		&s.Completed,
		&s.Skipped,
		&coins,
		&xp,
		&s.Finalized,
		&s.CreatedAt,
	)

	if IsNoRows(err) {
		return nil, shared.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	s.UserID = shared.UserID(userID)
	s.SubjectID = shared.SubjectID(subjectID)
	if endTime != nil {
		s.EndTime = *endTime
	}
	s.Duration = shared.Minutes(duration)
	s.CoinsEarned = shared.Coins(coins)
	s.XPEarned = shared.XP(xp)

	return &s, nil
}

// scanSessions scans multiple sessions from rows.
func (r *SessionRepository) scanSessions(rows pgx.Rows) ([]*session.StudySession, error) {
	var sessions []*session.StudySession

	for rows.Next() {
		var s session.StudySession
		var userID, subjectID string
		var endTime *time.Time
		var duration, coins, xp int

		err := rows.Scan(
			&s.ID,
			&userID,
			&subjectID,
			&s.StartTime,
			&endTime,
			&duration,
			&s.Completed,
			&s.Skipped,
			&coins,
			&xp,
			&s.Finalized,
			&s.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}

		s.UserID = shared.UserID(userID)
		s.SubjectID = shared.SubjectID(subjectID)
		if endTime != nil {
			s.EndTime = *endTime
		}
		s.Duration = shared.Minutes(duration)
		s.CoinsEarned = shared.Coins(coins)
		s.XPEarned = shared.XP(xp)

		sessions = append(sessions, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return sessions, nil
}

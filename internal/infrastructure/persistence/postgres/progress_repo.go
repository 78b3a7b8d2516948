// Package postgres implements the PostgreSQL persistence layer.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/studyseal/study-hub/internal/domain/progression"
	"github.com/studyseal/study-hub/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository implements progression.Repository for PostgreSQL.
type ProgressRepository struct {
	conn *Connection
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(conn *Connection) *ProgressRepository {
	return &ProgressRepository{conn: conn}
}

// FindByUserID returns a user's progress.
func (r *ProgressRepository) FindByUserID(ctx context.Context, userID shared.UserID) (*progression.UserProgress, error) {
	query := `
		SELECT user_id, coins, xp, level, streak_days, streak_last_date, updated_at
		FROM user_progress
		WHERE user_id = $1
	`

	row := r.conn.QueryRow(ctx, query, userID.String())
	return r.scanProgress(row)
}

// GetOrCreate returns the progress, inserting a fresh level-1 row when the
// user has none. ON CONFLICT DO NOTHING makes concurrent first calls
// converge on the row that won the insert.
func (r *ProgressRepository) GetOrCreate(ctx context.Context, userID shared.UserID) (*progression.UserProgress, error) {
	insert := `
		INSERT INTO user_progress (user_id, coins, xp, level, streak_days, updated_at)
		VALUES ($1, 0, 0, 1, 0, $2)
		ON CONFLICT (user_id) DO NOTHING
	`

	if _, err := r.conn.Exec(ctx, insert, userID.String(), time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to ensure progress row: %w", err)
	}

	return r.FindByUserID(ctx, userID)
}

// GrantReward persists a reward: the coin balance is incremented in the
// statement itself, never read-modify-written, while xp and level are set to
// the ledger's normalized result.
func (r *ProgressRepository) GrantReward(ctx context.Context, userID shared.UserID, coinsDelta shared.Coins, xp shared.XP, level shared.Level) error {
	query := `
		UPDATE user_progress
		SET coins = coins + $2, xp = $3, level = $4, updated_at = $5
		WHERE user_id = $1
	`

	result, err := r.conn.Exec(ctx, query,
		userID.String(),
		coinsDelta.Int(),
		xp.Int(),
		level.Int(),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to grant reward: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrProgressNotFound
	}

	return nil
}

// UpdateStreak persists the streak tracker's state.
func (r *ProgressRepository) UpdateStreak(ctx context.Context, userID shared.UserID, state progression.StreakState) error {
	query := `
		UPDATE user_progress
		SET streak_days = $2, streak_last_date = $3, updated_at = $4
		WHERE user_id = $1
	`

	var lastDate *time.Time
	if !state.LastDate.IsZero() {
		t := state.LastDate.Time()
		lastDate = &t
	}

	result, err := r.conn.Exec(ctx, query,
		userID.String(),
		state.Days,
		lastDate,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to update streak: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrProgressNotFound
	}

	return nil
}

// scanProgress scans a single progress row.
func (r *ProgressRepository) scanProgress(row pgx.Row) (*progression.UserProgress, error) {
	var p progression.UserProgress
	var userID string
	var coins, xp, level, streakDays int
	var lastDate *time.Time

	err := row.Scan(
		&userID,
		&coins,
		&xp,
		&level,
		&streakDays,
		&lastDate,
		&p.UpdatedAt,
	)

	if IsNoRows(err) {
		return nil, shared.ErrProgressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan progress: %w", err)
	}

	p.UserID = shared.UserID(userID)
	p.Coins = shared.Coins(coins)
	p.XP = shared.XP(xp)
	p.Level = shared.Level(level)
	p.Streak = progression.StreakState{Days: streakDays}
	if lastDate != nil {
		p.Streak.LastDate = shared.DateOf(*lastDate)
	}

	return &p, nil
}

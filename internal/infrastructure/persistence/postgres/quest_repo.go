// Package postgres implements the PostgreSQL persistence layer.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/studyseal/study-hub/internal/domain/quest"
	"github.com/studyseal/study-hub/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// QUEST REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// QuestRepository implements quest.Repository for PostgreSQL. The quest list
// is stored as JSONB; writes that must not race (progress updates, done
// flips) take the row lock first so the stored done flags stay authoritative.
type QuestRepository struct {
	conn *Connection
}

// NewQuestRepository creates a new QuestRepository.
func NewQuestRepository(conn *Connection) *QuestRepository {
	return &QuestRepository{conn: conn}
}

// FindByUserWeek returns the set for one (user, week).
func (r *QuestRepository) FindByUserWeek(ctx context.Context, userID shared.UserID, weekID shared.WeekID) (*quest.WeeklyQuestSet, error) {
	query := `
		SELECT user_id, week_id, quests, quest_keys, created_at
		FROM weekly_quests
		WHERE user_id = $1 AND week_id = $2
	`

	row := r.conn.QueryRow(ctx, query, userID.String(), weekID.String())
	return r.scanSet(row)
}

// CreateIfAbsent inserts a freshly generated set unless one already exists,
// and returns the stored set either way. Concurrent first reads of the same
// week all converge on the row that won the insert.
func (r *QuestRepository) CreateIfAbsent(ctx context.Context, set *quest.WeeklyQuestSet) (*quest.WeeklyQuestSet, error) {
	questsJSON, err := json.Marshal(set.Quests)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal quests: %w", err)
	}

	insert := `
		INSERT INTO weekly_quests (user_id, week_id, quests, quest_keys, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, week_id) DO NOTHING
	`

	_, err = r.conn.Exec(ctx, insert,
		set.UserID.String(),
		set.WeekID.String(),
		questsJSON,
		set.QuestKeys,
		set.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert quest set: %w", err)
	}

	return r.FindByUserWeek(ctx, set.UserID, set.WeekID)
}

// UpdateProgress persists the progress counters of the set's quests by
// max-merging them into the stored row under the row lock. Two racing
// session-ends each computed counters from their own snapshot; keeping the
// larger value per quest means neither write loses the other's update. The
// stored done flags are kept as-is, so a concurrent MarkDone is never
// overwritten by a stale in-memory copy.
func (r *QuestRepository) UpdateProgress(ctx context.Context, set *quest.WeeklyQuestSet) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		stored, err := r.lockSet(ctx, tx, set.UserID, set.WeekID)
		if err != nil {
			return err
		}

		stored.MergeProgressFrom(set)

		return r.writeQuests(ctx, tx, set.UserID, set.WeekID, stored.Quests)
	})
}

// MarkDone flips one quest's done flag with a test-and-set under the row
// lock. Returns true only for the call that performed the transition.
func (r *QuestRepository) MarkDone(ctx context.Context, userID shared.UserID, weekID shared.WeekID, questID string) (bool, error) {
	won := false

	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		stored, err := r.lockSet(ctx, tx, userID, weekID)
		if err != nil {
			return err
		}

		q := stored.Find(questID)
		if q == nil {
			return shared.ErrQuestSetNotFound
		}
		if q.Done {
			return nil
		}

		q.Done = true
		won = true
		return r.writeQuests(ctx, tx, userID, weekID, stored.Quests)
	})
	if err != nil {
		return false, err
	}

	return won, nil
}

// LatestKeysBefore returns the quest keys of the user's most recent set
// strictly before the given week. Week IDs sort lexically, so the comparison
// stays a plain string inequality.
func (r *QuestRepository) LatestKeysBefore(ctx context.Context, userID shared.UserID, weekID shared.WeekID) ([]string, error) {
	query := `
		SELECT quest_keys
		FROM weekly_quests
		WHERE user_id = $1 AND week_id < $2
		ORDER BY week_id DESC
		LIMIT 1
	`

	var keys []string
	err := r.conn.QueryRow(ctx, query, userID.String(), weekID.String()).Scan(&keys)
	if IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query previous quest keys: %w", err)
	}

	return keys, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER METHODS
// ══════════════════════════════════════════════════════════════════════════════

// lockSet loads a set inside a transaction with FOR UPDATE.
func (r *QuestRepository) lockSet(ctx context.Context, tx pgx.Tx, userID shared.UserID, weekID shared.WeekID) (*quest.WeeklyQuestSet, error) {
	query := `
		SELECT user_id, week_id, quests, quest_keys, created_at
		FROM weekly_quests
		WHERE user_id = $1 AND week_id = $2
		FOR UPDATE
	`

	row := tx.QueryRow(ctx, query, userID.String(), weekID.String())
	return r.scanSet(row)
}

// writeQuests persists the quest list of a locked row.
func (r *QuestRepository) writeQuests(ctx context.Context, tx pgx.Tx, userID shared.UserID, weekID shared.WeekID, quests []quest.Quest) error {
	questsJSON, err := json.Marshal(quests)
	if err != nil {
		return fmt.Errorf("failed to marshal quests: %w", err)
	}

	_, err = tx.Exec(ctx,
		"UPDATE weekly_quests SET quests = $3 WHERE user_id = $1 AND week_id = $2",
		userID.String(), weekID.String(), questsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to update quests: %w", err)
	}

	return nil
}

// scanSet scans a single quest set.
func (r *QuestRepository) scanSet(row pgx.Row) (*quest.WeeklyQuestSet, error) {
	var set quest.WeeklyQuestSet
	var userID, weekID string
	var questsJSON []byte

	err := row.Scan(
		&userID,
		&weekID,
		&questsJSON,
		&set.QuestKeys,
		&set.CreatedAt,
	)

	if IsNoRows(err) {
		return nil, shared.ErrQuestSetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan quest set: %w", err)
	}

	if err := json.Unmarshal(questsJSON, &set.Quests); err != nil {
		return nil, fmt.Errorf("failed to unmarshal quests: %w", err)
	}

	set.UserID = shared.UserID(userID)
	set.WeekID = shared.WeekID(weekID)

	return &set, nil
}

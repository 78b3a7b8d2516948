// Package postgres implements the PostgreSQL persistence layer.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create user progress, subjects, and timer settings
-- Version: 001

-- Per-user economic aggregate. Coins are only ever written as
-- "coins = coins + delta" so concurrent session-ends never lose a grant.
CREATE TABLE IF NOT EXISTS user_progress (
    user_id VARCHAR(64) PRIMARY KEY,
    coins INTEGER NOT NULL DEFAULT 0,
    xp INTEGER NOT NULL DEFAULT 0,
    level INTEGER NOT NULL DEFAULT 1,
    streak_days INTEGER NOT NULL DEFAULT 0,
    streak_last_date DATE,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_coins CHECK (coins >= 0),
    CONSTRAINT valid_xp CHECK (xp >= 0),
    CONSTRAINT valid_level CHECK (level >= 1),
    CONSTRAINT valid_streak CHECK (streak_days >= 0)
);

-- Study subjects with weekly goals and lifetime counters.
CREATE TABLE IF NOT EXISTS subjects (
    id VARCHAR(64) NOT NULL,
    user_id VARCHAR(64) NOT NULL,
    name VARCHAR(100) NOT NULL,
    color VARCHAR(16) NOT NULL DEFAULT '',
    time_goal INTEGER NOT NULL DEFAULT 0,
    time_spent INTEGER NOT NULL DEFAULT 0,
    sessions_count INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (user_id, id),
    CONSTRAINT valid_time_goal CHECK (time_goal >= 0),
    CONSTRAINT valid_time_spent CHECK (time_spent >= 0)
);

CREATE INDEX IF NOT EXISTS idx_subjects_user_id ON subjects(user_id);

-- Focus-cycle settings, one row per user who changed the defaults.
CREATE TABLE IF NOT EXISTS user_settings (
    user_id VARCHAR(64) PRIMARY KEY,
    study_minutes INTEGER NOT NULL DEFAULT 50,
    break_minutes INTEGER NOT NULL DEFAULT 10,
    long_break_minutes INTEGER NOT NULL DEFAULT 30,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
`

const migration001Down = `
DROP TABLE IF EXISTS user_settings;
DROP TABLE IF EXISTS subjects;
DROP TABLE IF EXISTS user_progress;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE SESSIONS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create study sessions
-- Version: 002

-- One row per timer run. Finalized rows are immutable; week totals and
-- calendar auto-completion are recomputed from this history.
CREATE TABLE IF NOT EXISTS study_sessions (
    id UUID PRIMARY KEY,
    user_id VARCHAR(64) NOT NULL,
    subject_id VARCHAR(64) NOT NULL DEFAULT '',
    start_time TIMESTAMP WITH TIME ZONE NOT NULL,
    end_time TIMESTAMP WITH TIME ZONE,
    duration_minutes INTEGER NOT NULL DEFAULT 0,
    completed BOOLEAN NOT NULL DEFAULT FALSE,
    skipped BOOLEAN NOT NULL DEFAULT FALSE,
    coins_earned INTEGER NOT NULL DEFAULT 0,
    xp_earned INTEGER NOT NULL DEFAULT 0,
    finalized BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_duration CHECK (duration_minutes >= 0)
);

-- Week-total recomputation scans finalized rows by user and end time.
CREATE INDEX IF NOT EXISTS idx_sessions_user_end ON study_sessions(user_id, end_time) WHERE finalized;
CREATE INDEX IF NOT EXISTS idx_sessions_user_subject_end ON study_sessions(user_id, subject_id, end_time) WHERE finalized AND completed;
CREATE INDEX IF NOT EXISTS idx_sessions_user_start ON study_sessions(user_id, start_time);
`

const migration002Down = `
DROP TABLE IF EXISTS study_sessions;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE QUESTS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create weekly quest sets
-- Version: 003

-- Exactly one set per (user, ISO week). The quests column holds the full
-- quest list as JSONB; quest_keys is denormalized for next week's
-- anti-repeat lookup without unpacking the JSON.
CREATE TABLE IF NOT EXISTS weekly_quests (
    user_id VARCHAR(64) NOT NULL,
    week_id CHAR(8) NOT NULL,
    quests JSONB NOT NULL,
    quest_keys TEXT[] NOT NULL DEFAULT '{}',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (user_id, week_id)
);

-- Anti-repeat reads the latest earlier week per user.
CREATE INDEX IF NOT EXISTS idx_weekly_quests_user_week ON weekly_quests(user_id, week_id DESC);
`

const migration003Down = `
DROP TABLE IF EXISTS weekly_quests;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: CREATE CALENDAR
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
-- Migration: Create calendar events
-- Version: 004

CREATE TABLE IF NOT EXISTS calendar_events (
    id UUID PRIMARY KEY,
    user_id VARCHAR(64) NOT NULL,
    title VARCHAR(200) NOT NULL,
    start_time TIMESTAMP WITH TIME ZONE NOT NULL,
    end_time TIMESTAMP WITH TIME ZONE NOT NULL,
    subject_id VARCHAR(64) NOT NULL DEFAULT '',
    completed BOOLEAN NOT NULL DEFAULT FALSE,
    checklist JSONB NOT NULL DEFAULT '[]',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_event_window CHECK (end_time > start_time)
);

-- Candidate lookup: a user's open events overlapping a session window.
CREATE INDEX IF NOT EXISTS idx_events_user_start ON calendar_events(user_id, start_time) WHERE NOT completed;
CREATE INDEX IF NOT EXISTS idx_events_user_range ON calendar_events(user_id, start_time, end_time);
`

const migration004Down = `
DROP TABLE IF EXISTS calendar_events;
`

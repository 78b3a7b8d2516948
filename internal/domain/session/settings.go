package session

import (
	"context"

	"github.com/studyseal/study-hub/internal/domain/shared"
)

// TimerSettings is the user's focus-cycle configuration. BlockMinutes feeds
// the reward calculator and the active-session estimate; break minutes feed
// the calendar engine's effective-minute scaling.
type TimerSettings struct {
	StudyMinutes     int
	BreakMinutes     int
	LongBreakMinutes int
}

// DefaultTimerSettings returns the production defaults: 50-minute blocks
// with 10-minute breaks.
func DefaultTimerSettings() TimerSettings {
	return TimerSettings{
		StudyMinutes:     50,
		BreakMinutes:     10,
		LongBreakMinutes: 30,
	}
}

// Normalize clamps nonsense values back to the defaults.
func (t TimerSettings) Normalize() TimerSettings {
	defaults := DefaultTimerSettings()
	if t.StudyMinutes < 1 {
		t.StudyMinutes = defaults.StudyMinutes
	}
	if t.BreakMinutes < 0 {
		t.BreakMinutes = defaults.BreakMinutes
	}
	if t.LongBreakMinutes < 0 {
		t.LongBreakMinutes = defaults.LongBreakMinutes
	}
	return t
}

// SettingsRepository stores per-user timer settings.
type SettingsRepository interface {
	// Get returns the user's settings, falling back to defaults when the
	// user never saved any.
	Get(ctx context.Context, userID shared.UserID) (TimerSettings, error)

	// Put saves the user's settings.
	Put(ctx context.Context, userID shared.UserID, settings TimerSettings) error
}

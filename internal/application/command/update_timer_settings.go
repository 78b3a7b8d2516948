package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/studyseal/study-hub/internal/domain/session"
	"github.com/studyseal/study-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE TIMER SETTINGS COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// UpdateTimerSettingsCommand changes a user's focus-cycle configuration.
// Running sessions keep the settings they started with; the new values apply
// from the next session.
type UpdateTimerSettingsCommand struct {
	UserID string

	StudyMinutes     int
	BreakMinutes     int
	LongBreakMinutes int
}

// Validate validates the command.
func (c UpdateTimerSettingsCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("update_timer_settings: user_id is required")
	}
	if c.StudyMinutes < 1 {
		return errors.New("update_timer_settings: study_minutes must be at least 1")
	}
	if c.StudyMinutes > 24*60 {
		return errors.New("update_timer_settings: study_minutes cannot exceed a day")
	}
	if c.BreakMinutes < 0 || c.LongBreakMinutes < 0 {
		return errors.New("update_timer_settings: break minutes cannot be negative")
	}
	return nil
}

// UpdateTimerSettingsResult carries the stored settings.
type UpdateTimerSettingsResult struct {
	Settings session.TimerSettings
}

// UpdateTimerSettingsHandler handles the command.
type UpdateTimerSettingsHandler struct {
	settingsRepo session.SettingsRepository
}

// NewUpdateTimerSettingsHandler creates the handler.
func NewUpdateTimerSettingsHandler(settingsRepo session.SettingsRepository) *UpdateTimerSettingsHandler {
	return &UpdateTimerSettingsHandler{settingsRepo: settingsRepo}
}

// Handle executes the command.
func (h *UpdateTimerSettingsHandler) Handle(ctx context.Context, cmd UpdateTimerSettingsCommand) (*UpdateTimerSettingsResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("update_timer_settings: validation failed: %w", err)
	}

	userID, err := shared.NewUserID(cmd.UserID)
	if err != nil {
		return nil, err
	}

	settings := session.TimerSettings{
		StudyMinutes:     cmd.StudyMinutes,
		BreakMinutes:     cmd.BreakMinutes,
		LongBreakMinutes: cmd.LongBreakMinutes,
	}.Normalize()

	if err := h.settingsRepo.Put(ctx, userID, settings); err != nil {
		return nil, fmt.Errorf("update_timer_settings: failed to store settings: %w", err)
	}

	return &UpdateTimerSettingsResult{Settings: settings}, nil
}

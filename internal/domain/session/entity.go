// Package session defines the study session aggregate and its persistence
// contracts. A record is created when the timer starts and finalized exactly
// once when it ends; finalized records are immutable and form the history
// that week-minute recomputation and calendar auto-completion read.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/studyseal/study-hub/internal/domain/shared"
)

// StudySession is one timer run.
type StudySession struct {
	ID          uuid.UUID
	UserID      shared.UserID
	SubjectID   shared.SubjectID // zero for free study
	StartTime   time.Time
	EndTime     time.Time      // zero until finalized
	Duration    shared.Minutes // zero until finalized
	Completed   bool
	Skipped     bool
	CoinsEarned shared.Coins
	XPEarned    shared.XP
	Finalized   bool
	CreatedAt   time.Time
}

// NewStudySession starts a new session record.
func NewStudySession(userID shared.UserID, subjectID shared.SubjectID, start time.Time) (*StudySession, error) {
	if !userID.IsValid() {
		return nil, shared.NewDomainError("session", "NewStudySession", shared.ErrInvalidID, "user id cannot be empty")
	}
	return &StudySession{
		ID:        uuid.New(),
		UserID:    userID,
		SubjectID: subjectID,
		StartTime: start.UTC(),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Finalize closes the session. Duration is reported by the caller (the timer
// runs client-side); skipped sessions count their elapsed minutes for quest
// progress but not for streaks or subject accounting.
func (s *StudySession) Finalize(end time.Time, duration shared.Minutes, skipped bool, reward shared.Coins, xp shared.XP) error {
	if s.Finalized {
		return shared.ErrSessionAlreadyEnded
	}
	if duration < 0 {
		return shared.ErrNegativeDuration
	}
	s.EndTime = end.UTC()
	s.Duration = duration
	s.Skipped = skipped
	s.Completed = !skipped
	s.CoinsEarned = reward
	s.XPEarned = xp
	s.Finalized = true
	return nil
}

// Window returns the session's time range. Valid only after finalization.
func (s *StudySession) Window() shared.TimeRange {
	return shared.TimeRange{Start: s.StartTime, End: s.EndTime}
}

// StreakMinutes returns the minutes the streak tracker should see:
// skipped sessions contribute nothing.
func (s *StudySession) StreakMinutes() shared.Minutes {
	if s.Skipped {
		return 0
	}
	return s.Duration
}

// ActiveSession is the snapshot other users' presence queries read while a
// timer is running. It is cleared when the session ends.
type ActiveSession struct {
	SessionID    uuid.UUID        `json:"session_id"`
	SubjectID    shared.SubjectID `json:"subject_id,omitempty"`
	StartTime    time.Time        `json:"start_time"`
	EstimatedEnd time.Time        `json:"estimated_end"`
}

// NewActiveSession builds the snapshot for a just-started session, estimating
// the end from the user's configured block length.
func NewActiveSession(s *StudySession, blockMinutes int) ActiveSession {
	return ActiveSession{
		SessionID:    s.ID,
		SubjectID:    s.SubjectID,
		StartTime:    s.StartTime,
		EstimatedEnd: s.StartTime.Add(time.Duration(blockMinutes) * time.Minute),
	}
}

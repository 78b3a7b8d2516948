// Package calendar implements agenda events and the auto-completion engine
// that marks them done from finished study sessions.
package calendar

import (
	"time"

	"github.com/google/uuid"

	"github.com/studyseal/study-hub/internal/domain/shared"
)

// ChecklistItem is one manual sub-task of an event. The engine never touches
// checklists; they belong to the user.
type ChecklistItem struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// Event is one agenda entry. Completed only transitions false to true; the
// engine never reverts a completion.
type Event struct {
	ID        uuid.UUID
	UserID    shared.UserID
	Title     string
	Start     time.Time
	End       time.Time
	SubjectID shared.SubjectID // zero when the event is not tied to a subject
	Completed bool
	Checklist []ChecklistItem
	CreatedAt time.Time
}

// NewEvent creates an agenda event.
func NewEvent(userID shared.UserID, title string, start, end time.Time, subjectID shared.SubjectID) (*Event, error) {
	if !userID.IsValid() {
		return nil, shared.NewDomainError("calendar", "NewEvent", shared.ErrInvalidID, "user id cannot be empty")
	}
	if !end.After(start) {
		return nil, shared.ErrInvalidWindow
	}
	return &Event{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		Start:     start.UTC(),
		End:       end.UTC(),
		SubjectID: subjectID,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Window returns the event's scheduled time range.
func (e *Event) Window() shared.TimeRange {
	return shared.TimeRange{Start: e.Start, End: e.End}
}

// DurationMinutes returns the scheduled length in whole minutes.
func (e *Event) DurationMinutes() int {
	return e.Window().Minutes().Int()
}

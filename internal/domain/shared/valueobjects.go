// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UserID represents a unique user identifier.
type UserID string

// IsValid checks if the user ID is non-empty after trimming.
func (u UserID) IsValid() bool {
	return strings.TrimSpace(string(u)) != ""
}

// String returns the string representation.
func (u UserID) String() string {
	return string(u)
}

// NewUserID creates a new UserID with validation.
func NewUserID(id string) (UserID, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", NewDomainError("shared", "NewUserID", ErrInvalidID, "user id cannot be empty")
	}
	return UserID(id), nil
}

// SubjectID represents a unique subject identifier.
type SubjectID string

// IsValid checks if the subject ID is non-empty.
func (s SubjectID) IsValid() bool {
	return strings.TrimSpace(string(s)) != ""
}

// IsZero reports whether the subject ID is absent. Sessions without a
// subject (free study) carry a zero SubjectID.
func (s SubjectID) IsZero() bool {
	return s == ""
}

// String returns the string representation.
func (s SubjectID) String() string {
	return string(s)
}

// NewSubjectID creates a new SubjectID with validation.
func NewSubjectID(id string) (SubjectID, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", NewDomainError("shared", "NewSubjectID", ErrInvalidID, "subject id cannot be empty")
	}
	return SubjectID(id), nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Week Identity
// ═══════════════════════════════════════════════════════════════════════════

// WeekID identifies an ISO-8601 week as "YYYY-Www" (e.g., "2026-W35").
// Week boundaries are Monday 00:00 UTC.
type WeekID string

var weekIDRegex = regexp.MustCompile(`^\d{4}-W\d{2}$`)

// IsValid checks if the week ID matches the "YYYY-Www" format.
func (w WeekID) IsValid() bool {
	return weekIDRegex.MatchString(string(w))
}

// String returns the string representation.
func (w WeekID) String() string {
	return string(w)
}

// NewWeekID creates a WeekID with format validation.
func NewWeekID(id string) (WeekID, error) {
	if !weekIDRegex.MatchString(id) {
		return "", ErrInvalidWeekID
	}
	return WeekID(id), nil
}

// WeekIDOf returns the WeekID for the given instant, in UTC.
func WeekIDOf(t time.Time) WeekID {
	year, week := t.UTC().ISOWeek()
	return WeekID(fmt.Sprintf("%04d-W%02d", year, week))
}

// ═══════════════════════════════════════════════════════════════════════════
// Economy Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// Coins represents an amount of the soft currency.
type Coins int

// IsValid checks that the amount is non-negative.
func (c Coins) IsValid() bool {
	return c >= 0
}

// Int returns the underlying int value.
func (c Coins) Int() int {
	return int(c)
}

// Add returns the sum of two coin amounts.
func (c Coins) Add(other Coins) Coins {
	return c + other
}

// NewCoins creates a Coins value with validation.
func NewCoins(amount int) (Coins, error) {
	if amount < 0 {
		return 0, NewDomainError("shared", "NewCoins", ErrNegativeValue, "coins cannot be negative")
	}
	return Coins(amount), nil
}

// XP represents experience points within the current level.
type XP int

// IsValid checks that the value is non-negative.
func (x XP) IsValid() bool {
	return x >= 0
}

// Int returns the underlying int value.
func (x XP) Int() int {
	return int(x)
}

// Add returns the sum of two XP amounts.
func (x XP) Add(other XP) XP {
	return x + other
}

// NewXP creates an XP value with validation.
func NewXP(amount int) (XP, error) {
	if amount < 0 {
		return 0, NewDomainError("shared", "NewXP", ErrNegativeValue, "xp cannot be negative")
	}
	return XP(amount), nil
}

// Level represents a user's level, starting at 1.
type Level int

// IsValid checks that the level is at least 1.
func (l Level) IsValid() bool {
	return l >= 1
}

// Int returns the underlying int value.
func (l Level) Int() int {
	return int(l)
}

// Next returns the following level.
func (l Level) Next() Level {
	return l + 1
}

// NewLevel creates a Level with validation.
func NewLevel(level int) (Level, error) {
	if level < 1 {
		return 0, ErrInvalidLevel
	}
	return Level(level), nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Time Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// Minutes represents a whole-minute duration.
type Minutes int

// IsValid checks that the duration is non-negative.
func (m Minutes) IsValid() bool {
	return m >= 0
}

// Int returns the underlying int value.
func (m Minutes) Int() int {
	return int(m)
}

// Duration converts to a time.Duration.
func (m Minutes) Duration() time.Duration {
	return time.Duration(m) * time.Minute
}

// NewMinutes creates a Minutes value with validation.
func NewMinutes(m int) (Minutes, error) {
	if m < 0 {
		return 0, ErrNegativeDuration
	}
	return Minutes(m), nil
}

// TimeRange represents a half-open time interval [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// IsValid checks that End is after Start.
func (r TimeRange) IsValid() bool {
	return r.End.After(r.Start)
}

// Minutes returns the whole-minute length of the range.
func (r TimeRange) Minutes() Minutes {
	if !r.IsValid() {
		return 0
	}
	return Minutes(int(r.End.Sub(r.Start).Minutes()))
}

// Contains reports whether t lies within the range.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Overlaps reports whether two ranges intersect.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// Expand widens the range symmetrically by d on each side.
func (r TimeRange) Expand(d time.Duration) TimeRange {
	return TimeRange{Start: r.Start.Add(-d), End: r.End.Add(d)}
}

// NewTimeRange creates a TimeRange with validation.
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if !end.After(start) {
		return TimeRange{}, ErrInvalidWindow
	}
	return TimeRange{Start: start, End: end}, nil
}

// Date represents a calendar day at UTC midnight. Streak arithmetic
// operates on Dates, never on raw timestamps.
type Date struct {
	t time.Time
}

// DateOf truncates an instant to its UTC day.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return Date{t: time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)}
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d.t.IsZero()
}

// Time returns the UTC midnight instant of the day.
func (d Date) Time() time.Time {
	return d.t
}

// DaysUntil returns the whole-day difference from d to other.
// Positive when other is later.
func (d Date) DaysUntil(other Date) int {
	return int(other.t.Sub(d.t).Hours() / 24)
}

// Equal reports whether two dates are the same day.
func (d Date) Equal(other Date) bool {
	return d.t.Equal(other.t)
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.t.IsZero() {
		return ""
	}
	return d.t.Format("2006-01-02")
}

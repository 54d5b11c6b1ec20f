package draw

import (
	"time"

	"github.com/abrezinsky/moherun/internal/models"
	"github.com/abrezinsky/moherun/internal/scoring"
)

// Window is a weekly time slot in the challenge time zone. An EndHour of 24 runs to midnight.
type Window struct {
	Day       time.Weekday
	StartHour int
	EndHour   int
}

// Contains reports whether local, already in the challenge time zone, falls in w.
func (w Window) Contains(local time.Time) bool {
	if local.Weekday() != w.Day {
		return false
	}
	h := local.Hour()
	return h >= w.StartHour && h < w.EndHour
}

// NextOpen returns the next instant at or after from when w opens.
func (w Window) NextOpen(from time.Time) time.Time {
	for i := 0; i <= 7; i++ {
		d := from.AddDate(0, 0, i)
		open := time.Date(d.Year(), d.Month(), d.Day(), w.StartHour, 0, 0, 0, from.Location())
		if open.Weekday() == w.Day && !open.Before(from) {
			return open
		}
	}
	return from
}

// WeekContext is everything the state machine needs besides the clock.
type WeekContext struct {
	Location *time.Location
	Start    time.Time
	Normal   Window
	Makeup   Window
	// MakeupWeekID is the single prior week the make-up window serves. Empty disables it.
	MakeupWeekID string
	// CurrentWeekID is the latest ingested week, the target of normal draws.
	CurrentWeekID string
	CurrentDrawn  bool
	MakeupDrawn   bool
}

// CurrentState decides the draw control state at now.
//
// The make-up window opens only on the configured day of the calendar week right after
// the make-up week, and only while that week has no result. Otherwise the normal window
// is open for the current week until a result exists.
func CurrentState(now time.Time, wc WeekContext) models.DrawState {
	loc := wc.Location
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)

	if makeupNum, ok := scoring.WeekNumber(wc.MakeupWeekID); ok && !wc.MakeupDrawn && wc.Makeup.Contains(local) {
		if CalendarWeek(now, wc.Start, loc) == makeupNum+1 {
			return models.DrawOpenMakeup
		}
	}

	if wc.CurrentDrawn {
		return models.DrawLockedCompleted
	}
	if wc.CurrentWeekID != "" && wc.Normal.Contains(local) {
		return models.DrawOpenNormal
	}
	return models.DrawLockedWaiting
}

// TargetWeek returns the week a draw in state s is for.
func TargetWeek(s models.DrawState, wc WeekContext) string {
	if s == models.DrawOpenMakeup {
		return wc.MakeupWeekID
	}
	return wc.CurrentWeekID
}

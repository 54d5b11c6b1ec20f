package draw

import (
	"fmt"
	"time"

	"github.com/abrezinsky/moherun/internal/scoring"
)

// CalendarWeek returns the challenge week number that now falls in, counting from
// start in loc. It is 0 before the challenge starts.
func CalendarWeek(now, start time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	n := now.In(loc)
	s := start.In(loc)
	today := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
	first := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, time.UTC)

	days := int(today.Sub(first).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days/7 + 1
}

// CalendarWeekID is CalendarWeek as a "W<n>" id, or "" before the start.
func CalendarWeekID(now, start time.Time, loc *time.Location) string {
	n := CalendarWeek(now, start, loc)
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("W%d", n)
}

// SameWeek reports whether two week ids name the same week ("W3" and "3" do).
func SameWeek(a, b string) bool {
	na, okA := scoring.WeekNumber(a)
	nb, okB := scoring.WeekNumber(b)
	return okA && okB && na == nb
}

// PreviousWeekID returns the id of the week before id. ok is false for W1.
func PreviousWeekID(id string) (string, bool) {
	n, ok := scoring.WeekNumber(id)
	if !ok || n <= 1 {
		return "", false
	}
	return fmt.Sprintf("W%d", n-1), true
}

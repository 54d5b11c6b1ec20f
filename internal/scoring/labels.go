package scoring

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TotalLabel is the label of the aggregate period.
const TotalLabel = "Total Distance"

// WeekNumber parses "W3" (or "w3", or a bare "3") into 3.
func WeekNumber(id string) (int, bool) {
	s := strings.TrimSpace(id)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "W"), "w")
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// WeekRange returns the first and last day of week n for a challenge starting at start.
func WeekRange(n int, start time.Time) (time.Time, time.Time) {
	first := start.AddDate(0, 0, 7*(n-1))
	return first, first.AddDate(0, 0, 6)
}

// WeekLabel renders "W1 (12/15-12/21)". Without a start date the label is the id itself.
func WeekLabel(id string, start time.Time) string {
	n, ok := WeekNumber(id)
	if !ok || start.IsZero() {
		return id
	}
	first, last := WeekRange(n, start)
	return fmt.Sprintf("%s (%d/%d-%d/%d)", id, int(first.Month()), first.Day(), int(last.Month()), last.Day())
}

// Package scoring turns ingested weekly tabs into ranked periods. It runs two passes:
// a chronological pass that finds the supply-station trigger, and a reverse
// chronological pass that applies bonuses and builds the periods in display order.
package scoring

import (
	"sort"
	"time"

	"github.com/abrezinsky/moherun/internal/columns"
	"github.com/abrezinsky/moherun/internal/models"
)

// Options holds the challenge constants. Zero fields fall back to DefaultOptions.
type Options struct {
	Threshold        float64
	StreakDays       int
	StreakMultiplier float64
	TeamMultiplier   float64
	// StartDate is the Monday of W1, used for period labels. Zero leaves labels as bare ids.
	StartDate time.Time
	// Pairings are the persisted supply-station teams.
	Pairings []models.Pairing
}

// DefaultOptions returns the constants of the winter challenge.
func DefaultOptions() Options {
	return Options{
		Threshold:        5000,
		StreakDays:       5,
		StreakMultiplier: 1.2,
		TeamMultiplier:   2.0,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Threshold <= 0 {
		o.Threshold = d.Threshold
	}
	if o.StreakDays <= 0 {
		o.StreakDays = d.StreakDays
	}
	if o.StreakMultiplier <= 0 {
		o.StreakMultiplier = d.StreakMultiplier
	}
	if o.TeamMultiplier <= 0 {
		o.TeamMultiplier = d.TeamMultiplier
	}
	return o
}

// Week is one weekly tab's rows.
type Week struct {
	ID     string
	Number int
	Rows   []models.RawRow
}

// WeeksFromSheets returns the weekly tabs sorted by week number. Keys that are not
// week ids are ignored.
func WeeksFromSheets(s *models.Sheets) []Week {
	if s == nil {
		return nil
	}
	weeks := make([]Week, 0, len(s.Weeks))
	for id, rows := range s.Weeks {
		n, ok := WeekNumber(id)
		if !ok {
			continue
		}
		weeks = append(weeks, Week{ID: id, Number: n, Rows: rows})
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].Number < weeks[j].Number })
	return weeks
}

// entry is one analyzed row with its streak applied.
type entry struct {
	columns.Analysis
	streak         bool
	streakDistance float64
}

type analyzedWeek struct {
	Week
	entries []entry
}

func analyzeWeeks(weeks []Week, o Options) []analyzedWeek {
	out := make([]analyzedWeek, 0, len(weeks))
	for _, w := range weeks {
		aw := analyzedWeek{Week: w}
		for _, row := range w.Rows {
			a, ok := columns.AnalyzeRow(row)
			if !ok {
				continue
			}
			e := entry{Analysis: a, streak: a.Frequency >= o.StreakDays}
			e.streakDistance = a.RawDistance
			if e.streak {
				e.streakDistance *= o.StreakMultiplier
			}
			aw.entries = append(aw.entries, e)
		}
		out = append(out, aw)
	}
	return out
}

// DetectTrigger finds the first runner-week whose streak-adjusted distance lifts the
// running team total from below the threshold to at or above it. weeks must be in
// chronological order.
func DetectTrigger(weeks []Week, opts Options) *models.SupplyStationTrigger {
	o := opts.withDefaults()
	return detectTrigger(analyzeWeeks(weeks, o), o.Threshold)
}

func detectTrigger(weeks []analyzedWeek, threshold float64) *models.SupplyStationTrigger {
	var cumulative float64
	for _, w := range weeks {
		for _, e := range w.entries {
			if e.streakDistance <= 0 {
				continue
			}
			before := cumulative
			cumulative += e.streakDistance
			if before < threshold && cumulative >= threshold {
				return &models.SupplyStationTrigger{
					RunnerName: e.Name,
					WeekID:     w.ID,
					Cumulative: cumulative,
				}
			}
		}
	}
	return nil
}

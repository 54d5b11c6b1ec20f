package scoring

import (
	"sort"

	"github.com/abrezinsky/moherun/internal/models"
)

// Result is the output of one scoring pass.
type Result struct {
	// Periods is ordered Total, latest week, ..., earliest week.
	Periods []models.Period
	Summary models.Summary
	Trigger *models.SupplyStationTrigger
	// PairingRequest is set when this pass chose a new supply-station partner that
	// is not yet persisted anywhere.
	PairingRequest *models.Pairing
	// StalePairings are persisted pairings for a week that is no longer the trigger
	// week. They earn no bonus.
	StalePairings []models.Pairing
}

type teamMarks struct {
	member  map[string]bool
	partner map[string]string
}

func (t *teamMarks) add(name, partner string) {
	t.member[name] = true
	if partner != "" && t.partner[name] == "" {
		t.partner[name] = partner
	}
}

func (t *teamMarks) empty() bool {
	return len(t.member) == 0
}

// marksFor collects the partner markers of one week: marker columns in the sheet
// plus persisted pairings. A named marker pairs both runners. pairings must already
// be restricted to the trigger week.
func marksFor(w analyzedWeek, pairings []models.Pairing) *teamMarks {
	t := &teamMarks{member: map[string]bool{}, partner: map[string]string{}}
	for _, e := range w.entries {
		if !e.HasPartner {
			continue
		}
		t.add(e.Name, e.Partner)
		if e.Partner != "" {
			t.add(e.Partner, e.Name)
		}
	}
	for _, p := range pairings {
		if p.WeekID != w.ID {
			continue
		}
		t.add(p.Runner, p.Partner)
		t.add(p.Partner, p.Runner)
	}
	return t
}

type careerLine struct {
	rec   models.AggregateRunnerRecord
	order int
	// lastStreakWeek keeps a runner listed twice in one tab to one streak week.
	lastStreakWeek string
}

// splitPairings keeps the pairings of the trigger week. Anything else is left over
// from an earlier state of the sheet.
func splitPairings(pairings []models.Pairing, trigger *models.SupplyStationTrigger) (current, stale []models.Pairing) {
	for _, p := range pairings {
		if trigger != nil && p.WeekID == trigger.WeekID {
			current = append(current, p)
		} else {
			stale = append(stale, p)
		}
	}
	return current, stale
}

// Score runs both passes over weeks, which must be sorted chronologically (see
// WeeksFromSheets). The result is a pure function of weeks and opts.
func Score(weeks []Week, opts Options) Result {
	o := opts.withDefaults()
	analyzed := analyzeWeeks(weeks, o)

	res := Result{Trigger: detectTrigger(analyzed, o.Threshold)}
	pairings, stale := splitPairings(o.Pairings, res.Trigger)
	res.StalePairings = stale

	career := map[string]*careerLine{}
	var careerOrder int
	weekly := make([]models.Period, 0, len(analyzed))

	for i := len(analyzed) - 1; i >= 0; i-- {
		w := analyzed[i]
		marks := marksFor(w, pairings)

		if res.Trigger != nil && res.Trigger.WeekID == w.ID && marks.empty() {
			var candidates []string
			for _, e := range w.entries {
				if e.streakDistance > 0 {
					candidates = append(candidates, e.Name)
				}
			}
			trigger := res.Trigger.RunnerName
			if partner, ok := SelectPartner(w.ID, trigger, candidates); ok {
				marks.add(trigger, partner)
				marks.add(partner, trigger)
				res.PairingRequest = &models.Pairing{WeekID: w.ID, Runner: trigger, Partner: partner}
			} else {
				marks.add(trigger, "")
			}
		}

		period := models.Period{
			Label:   WeekLabel(w.ID, o.StartDate),
			WeekID:  w.ID,
			Runners: []models.RunnerWeekRecord{},
		}
		if n, ok := WeekNumber(w.ID); ok && !o.StartDate.IsZero() {
			first, last := WeekRange(n, o.StartDate)
			period.Start, period.End = &first, &last
		}

		for _, e := range w.entries {
			team := marks.member[e.Name]
			distance := e.streakDistance
			if team {
				distance *= o.TeamMultiplier
			}

			line, ok := career[e.Name]
			if !ok {
				line = &careerLine{rec: models.AggregateRunnerRecord{Name: e.Name}, order: careerOrder}
				careerOrder++
				career[e.Name] = line
			}
			if e.streak && line.lastStreakWeek != w.ID {
				line.rec.StreakCount++
				line.lastStreakWeek = w.ID
			}

			if distance <= 0 {
				continue
			}
			line.rec.Distance += distance
			if team {
				line.rec.IsSupplyStationTeam = true
				line.rec.BonusDistance += distance - e.streakDistance
				if line.rec.SupplyStationPartner == "" {
					line.rec.SupplyStationPartner = marks.partner[e.Name]
				}
			}

			period.Runners = append(period.Runners, models.RunnerWeekRecord{
				Name:                 e.Name,
				WeekID:               w.ID,
				RawDistance:          e.RawDistance,
				BonusDistance:        distance - e.RawDistance,
				Distance:             distance,
				Frequency:            e.Frequency,
				DailyRecords:         e.DailyRecords,
				HasStreak:            e.streak,
				IsSupplyStationTeam:  team,
				SupplyStationPartner: marks.partner[e.Name],
			})
		}

		sort.SliceStable(period.Runners, func(a, b int) bool {
			return period.Runners[a].Distance > period.Runners[b].Distance
		})
		weekly = append(weekly, period)
	}

	total := aggregate(career, len(analyzed))
	res.Periods = append([]models.Period{total}, weekly...)
	res.Summary = summarize(total, weekly, len(analyzed))
	return res
}

func aggregate(career map[string]*careerLine, weeksProcessed int) models.Period {
	lines := make([]*careerLine, 0, len(career))
	for _, l := range career {
		if l.rec.Distance > 0 {
			lines = append(lines, l)
		}
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].order < lines[j].order })
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].rec.Distance > lines[j].rec.Distance })

	totals := make([]models.AggregateRunnerRecord, 0, len(lines))
	for _, l := range lines {
		rec := l.rec
		rec.IsPerfect = weeksProcessed > 0 && rec.StreakCount == weeksProcessed
		totals = append(totals, rec)
	}
	return models.Period{Label: TotalLabel, Totals: totals}
}

// summarize derives the headline numbers. weekly is latest first.
func summarize(total models.Period, weekly []models.Period, weeksProcessed int) models.Summary {
	s := models.Summary{WeeksProcessed: weeksProcessed, EligibleRunners: []string{}}
	for _, r := range total.Totals {
		s.TotalDistance += r.Distance
	}
	if len(weekly) == 0 {
		return s
	}
	current := weekly[0]
	s.CurrentWeekID = current.WeekID
	s.ActiveRunnersThisWeek = len(current.Runners)
	for _, r := range current.Runners {
		s.DistanceThisWeek += r.Distance
		s.EligibleRunners = append(s.EligibleRunners, r.Name)
	}
	return s
}

// FindPeriod returns the weekly period with the given id.
func FindPeriod(periods []models.Period, weekID string) (models.Period, bool) {
	for _, p := range periods {
		if !p.IsAggregate() && p.WeekID == weekID {
			return p, true
		}
	}
	return models.Period{}, false
}

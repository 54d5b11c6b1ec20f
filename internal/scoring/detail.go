package scoring

import (
	"github.com/abrezinsky/moherun/internal/columns"
	"github.com/abrezinsky/moherun/internal/models"
)

// RunnerDetail collects one runner's weeks from scored periods, latest week first.
func RunnerDetail(periods []models.Period, name string) (*models.RunnerDetail, bool) {
	d := &models.RunnerDetail{Name: name, Weeks: []models.RunnerWeek{}}
	found := false

	for _, p := range periods {
		if p.IsAggregate() {
			for i := range p.Totals {
				if p.Totals[i].Name == name {
					agg := p.Totals[i]
					d.Aggregate = &agg
					d.Total = agg.Distance
					found = true
				}
			}
			continue
		}
		for _, r := range p.Runners {
			if r.Name != name {
				continue
			}
			found = true
			d.ActiveDays += r.Frequency
			d.Weeks = append(d.Weeks, models.RunnerWeek{
				WeekID: p.WeekID,
				Label:  p.Label,
				Record: r,
				Days:   columns.OrderDays(r.DailyRecords),
			})
		}
	}
	if !found {
		return nil, false
	}
	return d, true
}

package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/urfave/cli/v2"

	"github.com/abrezinsky/moherun/internal/app"
	"github.com/abrezinsky/moherun/internal/config"
	"github.com/abrezinsky/moherun/internal/demo"
	"github.com/abrezinsky/moherun/internal/logger"
	"github.com/abrezinsky/moherun/internal/models"
	"github.com/abrezinsky/moherun/internal/persist"
	"github.com/abrezinsky/moherun/internal/repository"
	"github.com/abrezinsky/moherun/internal/services"
	"github.com/abrezinsky/moherun/pkg/sheets"
)

// offline wires the services for a one-shot command: no database, no server, nothing
// written back to the sheet.
type offline struct {
	dashboard *services.DashboardService
	draws     *services.DrawService
	persister *persist.Persister
}

// readOnly drops writes so one-shot commands never touch the shared sheet
type readOnly struct {
	sheets.Client
}

func (readOnly) SaveDrawResult(context.Context, models.DrawResult) error { return nil }
func (readOnly) SavePairing(context.Context, models.Pairing) error       { return nil }

func newOffline(cfg *config.Config, log logger.Logger, client sheets.Client, now func() time.Time) *offline {
	client = readOnly{client}
	store := repository.NewMemoryStore()
	persister := persist.New(log, nil, persist.Options{MaxRetries: 0, Timeout: cfg.Persist.Timeout})

	dashOpts := app.DashboardOptions(cfg)
	dashOpts.Now = now
	dashboard := services.NewDashboardService(log, client, store, persister, nil, dashOpts)

	normal, makeup := app.DrawWindows(cfg)
	settings := services.NewSettingsService(log, store, cfg.Draw.MakeupWeekID, cfg.Server.BaseURL)
	draws := services.NewDrawService(log, client, store, settings, dashboard, persister, nil, services.DrawOptions{
		Location: cfg.Location(),
		Start:    cfg.StartDate(),
		Normal:   normal,
		Makeup:   makeup,
		Now:      now,
	})

	return &offline{dashboard: dashboard, draws: draws, persister: persister}
}

func (o *offline) Close() {
	o.persister.Close()
}

func leaderboardCommand() *cli.Command {
	return &cli.Command{
		Name:  "leaderboard",
		Usage: "fetch the sheet once and print a leaderboard",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "week", Aliases: []string{"w"}, Usage: `week id ("W3" or "3"), "total", or empty for the current week`},
			&cli.IntFlag{Name: "top", Value: 0, Usage: "show only the first N runners"},
		},
		Action: func(c *cli.Context) error {
			cfg, appLog, err := loadConfig(c)
			if err != nil {
				return err
			}
			o := newOffline(cfg, appLog, app.NewSheetsClient(cfg, appLog), time.Now)
			defer o.Close()

			snap, err := o.dashboard.Refresh(c.Context)
			if err != nil {
				return err
			}
			period, err := pickPeriod(o.dashboard, snap, c.String("week"))
			if err != nil {
				return err
			}
			renderLeaderboard(c.App.Writer, period, c.Int("top"))
			return nil
		},
	}
}

func pickPeriod(dash *services.DashboardService, snap *models.Snapshot, week string) (*models.Period, error) {
	switch strings.ToLower(strings.TrimSpace(week)) {
	case "":
		week = snap.Summary.CurrentWeekID
	case "total":
		for i := range snap.Periods {
			if snap.Periods[i].IsAggregate() {
				return &snap.Periods[i], nil
			}
		}
		return nil, services.ErrNoData
	}
	return dash.Period(week)
}

func renderLeaderboard(w io.Writer, period *models.Period, top int) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(period.Label)
	t.SetStyle(table.StyleLight)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})

	limit := func(n int) int {
		if top > 0 && top < n {
			return top
		}
		return n
	}

	if period.IsAggregate() {
		t.AppendHeader(table.Row{"#", "Runner", "Km", "Streak weeks", "Badges"})
		for i, r := range period.Totals[:limit(len(period.Totals))] {
			t.AppendRow(table.Row{i + 1, r.Name, fmt.Sprintf("%.1f", r.Distance), r.StreakCount, badges(r.IsPerfect, r.IsSupplyStationTeam, r.SupplyStationPartner)})
		}
	} else {
		t.AppendHeader(table.Row{"#", "Runner", "Km", "Days", "Badges"})
		for i, r := range period.Runners[:limit(len(period.Runners))] {
			t.AppendRow(table.Row{i + 1, r.Name, fmt.Sprintf("%.1f", r.Distance), r.Frequency, badges(r.HasStreak, r.IsSupplyStationTeam, r.SupplyStationPartner)})
		}
	}
	t.Render()
}

func badges(streak, team bool, partner string) string {
	var out []string
	if streak {
		out = append(out, "streak")
	}
	if team {
		out = append(out, "supply team with "+partner)
	}
	return strings.Join(out, ", ")
}

func drawStateCommand() *cli.Command {
	return &cli.Command{
		Name:  "draw-state",
		Usage: "show what the lucky draw would do at a given moment",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "at", Usage: `moment to evaluate, e.g. "2026-01-04 21:00" or "next sunday at 9pm"`},
		},
		Action: func(c *cli.Context) error {
			cfg, appLog, err := loadConfig(c)
			if err != nil {
				return err
			}
			at, err := parseAt(c.String("at"), time.Now().In(cfg.Location()))
			if err != nil {
				return err
			}
			o := newOffline(cfg, appLog, app.NewSheetsClient(cfg, appLog), func() time.Time { return at })
			defer o.Close()

			if _, err := o.dashboard.Refresh(c.Context); err != nil {
				appLog.Warn("Refresh failed, evaluating without sheet data", "error", err)
			}
			status, err := o.draws.Status(c.Context)
			if err != nil {
				return err
			}
			renderDrawStatus(c.App.Writer, at, status)
			return nil
		},
	}
}

var atLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02T15:04", "2006-01-02"}

// parseAt reads an absolute timestamp in now's location, or a natural-language phrase
// relative to now. Empty means now.
func parseAt(input string, now time.Time) (time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return now, nil
	}
	for _, layout := range atLayouts {
		if t, err := time.ParseInLocation(layout, input, now.Location()); err == nil {
			return t, nil
		}
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	r, err := w.Parse(input, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %q: %w", input, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("no date or time found in %q", input)
	}
	return r.Time.In(now.Location()), nil
}

// nextWindows lists when each draw window opens next, starting at at.
func nextWindows(cfg *config.Config, at time.Time) []table.Row {
	local := at.In(cfg.Location())
	normal, makeup := app.DrawWindows(cfg)
	rows := []table.Row{{"Next draw window", normal.NextOpen(local).Format(stampLayout)}}
	if cfg.Draw.MakeupWeekID != "" {
		rows = append(rows, table.Row{"Next make-up window", makeup.NextOpen(local).Format(stampLayout) + " (" + cfg.Draw.MakeupWeekID + ")"})
	}
	return rows
}

const stampLayout = "Mon 2006-01-02 15:04 MST"

func renderDrawStatus(w io.Writer, at time.Time, status *models.DrawStatus, next []table.Row) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Lucky draw at " + at.Format(stampLayout))
	t.SetStyle(table.StyleLight)
	t.AppendRows([]table.Row{
		{"State", status.State},
		{"Target week", status.TargetWeekID},
		{"Calendar week", status.CalendarWeekID},
		{"Eligible", strings.Join(status.Eligible, ", ")},
	})
	t.AppendRows(next)
	if status.Displayed != nil {
		d := status.Displayed
		t.AppendSeparator()
		t.AppendRows([]table.Row{
			{"Showing week", d.WeekID},
			{"Winners", strings.Join(d.Winners, " / ")},
			{"Task", d.Task},
		})
	}
	t.Render()
}

func demoCommand() *cli.Command {
	return &cli.Command{
		Name:  "demo",
		Usage: "write a demo workbook to serve without a live spreadsheet",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "demo.xlsx", Usage: "workbook path"},
			&cli.IntFlag{Name: "runners", Value: 12, Usage: "number of runners"},
			&cli.IntFlag{Name: "weeks", Value: 4, Usage: "number of weekly tabs"},
			&cli.IntFlag{Name: "tasks", Value: 10, Usage: "challenge pool size"},
			&cli.Int64Flag{Name: "seed", Usage: "generator seed (random when unset)"},
		},
		Action: func(c *cli.Context) error {
			cfg, _, err := loadConfig(c)
			if err != nil {
				return err
			}
			if c.Int("runners") < 2 || c.Int("weeks") < 1 {
				return fmt.Errorf("need at least 2 runners and 1 week")
			}

			var gen *demo.Generator
			if c.IsSet("seed") {
				gen = demo.NewGenerator(c.Int64("seed"))
			} else {
				gen = demo.NewGenerator()
			}
			runners := gen.Runners(c.Int("runners"))
			book := gen.Workbook(runners, c.Int("weeks"), cfg.StartDate(), gen.Pool(c.Int("tasks")))

			out := c.String("out")
			if err := sheets.WriteWorkbook(out, book); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "Wrote %s (%d runners, %d weeks, seed %d)\n", out, len(runners), c.Int("weeks"), gen.Seed())
			fmt.Fprintf(c.App.Writer, "Serve it with: moherun --workbook %s serve\n", out)
			return nil
		},
	}
}

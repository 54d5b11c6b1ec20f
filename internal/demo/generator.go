// Package demo generates plausible challenge spreadsheets for local runs and tests.
package demo

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/abrezinsky/moherun/pkg/sheets"
)

// MediaTab is the gallery tab name the generator writes
const MediaTab = "Media Storage"

var dayHeaders = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// Generator creates runner logs, uploads, and a challenge pool
type Generator struct {
	faker *gofakeit.Faker
	seed  int64
}

// NewGenerator creates a generator with an optional seed
func NewGenerator(seed ...int64) *Generator {
	var s int64
	if len(seed) > 0 {
		s = seed[0]
	} else {
		s = time.Now().UnixNano()
	}
	return &Generator{faker: gofakeit.New(uint64(s)), seed: s}
}

// Seed returns the seed in use
func (g *Generator) Seed() int64 {
	return g.seed
}

// Runners returns count distinct first names
func (g *Generator) Runners(count int) []string {
	seen := make(map[string]bool, count)
	names := make([]string, 0, count)
	for len(names) < count {
		name := g.faker.FirstName()
		if seen[name] {
			name = fmt.Sprintf("%s %s", name, g.faker.LetterN(1))
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// Week returns one weekly tab: a header row, then one row per runner with daily
// kilometres and a total. About one runner in six rests the whole week.
func (g *Generator) Week(runners []string) [][]string {
	header := append([]string{"Name"}, dayHeaders...)
	grid := [][]string{append(header, "Total")}

	for _, name := range runners {
		row := []string{name}
		total := 0.0
		resting := g.faker.Number(1, 6) == 1
		for range dayHeaders {
			if resting || g.faker.Number(1, 10) <= 4 {
				row = append(row, "")
				continue
			}
			km := math.Round(g.faker.Float64Range(2, 15)*10) / 10
			total += km
			row = append(row, strconv.FormatFloat(km, 'f', -1, 64))
		}
		row = append(row, strconv.FormatFloat(math.Round(total*10)/10, 'f', -1, 64))
		grid = append(grid, row)
	}
	return grid
}

// Media returns an uploads tab with count photos and videos posted after start
func (g *Generator) Media(runners []string, count int, start time.Time) [][]string {
	grid := [][]string{{"Timestamp", "Name", "URL"}}
	for i := 0; i < count; i++ {
		ext := ".jpg"
		if g.faker.Number(1, 4) == 1 {
			ext = ".mp4"
		}
		when := g.faker.DateRange(start, start.AddDate(0, 0, 7*4))
		grid = append(grid, []string{
			when.Format("2006-01-02 15:04"),
			runners[g.faker.Number(0, len(runners)-1)],
			fmt.Sprintf("https://cdn.example.com/%s%s", g.faker.UUID(), ext),
		})
	}
	return grid
}

// Pool returns count distinct challenge tasks
func (g *Generator) Pool(count int) []string {
	seen := make(map[string]bool, count)
	tasks := make([]string, 0, count)
	for len(tasks) < count {
		task := fmt.Sprintf("Run %d km past a %s %s", g.faker.Number(3, 12), g.faker.Adjective(), g.faker.Noun())
		if seen[task] {
			continue
		}
		seen[task] = true
		tasks = append(tasks, task)
	}
	return tasks
}

// Tabs returns the media tab and weekly tabs W1..Wn keyed by name
func (g *Generator) Tabs(runners []string, weeks int, start time.Time) map[string][][]string {
	tabs := map[string][][]string{
		MediaTab: g.Media(runners, len(runners)*2, start),
	}
	for w := 1; w <= weeks; w++ {
		tabs[fmt.Sprintf("W%d", w)] = g.Week(runners)
	}
	return tabs
}

// Workbook orders the tabs the way the shared spreadsheet does: uploads, the weeks,
// then the challenge pool.
func (g *Generator) Workbook(runners []string, weeks int, start time.Time, pool []string) []sheets.Sheet {
	tabs := g.Tabs(runners, weeks, start)
	out := []sheets.Sheet{{Name: MediaTab, Rows: tabs[MediaTab]}}
	for w := 1; w <= weeks; w++ {
		name := fmt.Sprintf("W%d", w)
		out = append(out, sheets.Sheet{Name: name, Rows: tabs[name]})
	}

	poolRows := [][]string{{"# Challenge pool"}}
	for _, t := range pool {
		poolRows = append(poolRows, []string{t})
	}
	return append(out, sheets.Sheet{Name: sheets.PoolTab, Rows: poolRows})
}

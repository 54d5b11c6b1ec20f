// Package sheets talks to the challenge spreadsheet: weekly tabs, the media tab,
// the lucky-draw results tab and the script endpoint that writes results back.
package sheets

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"regexp"
	"slices"
	"strings"

	"github.com/abrezinsky/moherun/internal/draw"
	"github.com/abrezinsky/moherun/internal/models"
	"github.com/abrezinsky/moherun/internal/scoring"
)

// ErrNotConfigured is returned by writes when no script endpoint is set.
var ErrNotConfigured = errors.New("sheets: write endpoint not configured")

// Client defines the operations the dashboard needs from the spreadsheet.
// Lookups that find nothing return nil with a nil error.
type Client interface {
	// FetchTab reads one tab. A nil tab means the tab does not exist.
	FetchTab(ctx context.Context, name string) (*models.Tab, error)
	// FetchChallengePool returns the lucky-draw task pool.
	FetchChallengePool(ctx context.Context) ([]string, error)
	// FetchUsedTasks returns the distinct normalized tasks already drawn.
	FetchUsedTasks(ctx context.Context) ([]string, error)
	// FetchDrawResult returns the recorded draw of weekID.
	FetchDrawResult(ctx context.Context, weekID string) (*models.DrawResult, error)
	// FetchPairing returns the recorded supply-station team of weekID.
	FetchPairing(ctx context.Context, weekID string) (*models.Pairing, error)
	// SaveDrawResult records a draw.
	SaveDrawResult(ctx context.Context, res models.DrawResult) error
	// SavePairing records a supply-station team.
	SavePairing(ctx context.Context, p models.Pairing) error
}

var (
	weekColumnRe = regexp.MustCompile(`(?i)week|id`)
	taskColumnRe = regexp.MustCompile(`(?i)task|项目|challenge`)
)

// ParseCSV turns an export into rows keyed by the first record. Blank records are dropped.
func ParseCSV(raw []byte) ([]models.RawRow, error) {
	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var rows []models.RawRow
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if blank(rec) {
			continue
		}
		rows = append(rows, models.NewRawRow(header, rec))
	}
	return rows, nil
}

// RowsFromRecords is ParseCSV for already split records, as read from a workbook.
func RowsFromRecords(records [][]string) []models.RawRow {
	if len(records) == 0 {
		return nil
	}
	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}
	var rows []models.RawRow
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		rows = append(rows, models.NewRawRow(header, rec))
	}
	return rows
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// sameWeek matches "W3" against "W3", "w3" or "3".
func sameWeek(cell, weekID string) bool {
	cell = strings.Trim(strings.TrimSpace(cell), `"`)
	if cell == "" {
		return false
	}
	if strings.EqualFold(cell, weekID) {
		return true
	}
	a, okA := scoring.WeekNumber(cell)
	b, okB := scoring.WeekNumber(weekID)
	return okA && okB && a == b
}

func findColumn(headers []string, re *regexp.Regexp) (string, bool) {
	for _, h := range headers {
		if re.MatchString(h) {
			return h, true
		}
	}
	return "", false
}

// DrawResultFromRows finds weekID in a results tab. The week column is the first header
// mentioning "week" or "id"; the three winners follow in columns two to four and the
// task is the task column, else column five. A row missing any winner is not a result.
func DrawResultFromRows(rows []models.RawRow, weekID string) *models.DrawResult {
	if len(rows) == 0 {
		return nil
	}
	headers := rows[0].Headers
	weekCol, ok := findColumn(headers, weekColumnRe)
	if !ok {
		return nil
	}
	cellAt := func(row models.RawRow, i int) string {
		if i >= len(headers) {
			return ""
		}
		return strings.Trim(strings.TrimSpace(row.Get(headers[i])), `"`)
	}
	taskCol, hasTask := findColumn(headers, taskColumnRe)

	for _, row := range rows {
		if !sameWeek(row.Get(weekCol), weekID) {
			continue
		}
		winners := []string{cellAt(row, 1), cellAt(row, 2), cellAt(row, 3)}
		if slices.Contains(winners, "") {
			continue
		}
		res := &models.DrawResult{
			WeekID:  weekID,
			Winners: winners,
			Task:    cellAt(row, 4),
		}
		if hasTask {
			res.Task = strings.TrimSpace(row.Get(taskCol))
		}
		return res
	}
	return nil
}

// UsedTasksFromRows collects the distinct normalized tasks of a results tab.
func UsedTasksFromRows(rows []models.RawRow) []string {
	if len(rows) == 0 {
		return []string{}
	}
	col, ok := findColumn(rows[0].Headers, taskColumnRe)
	if !ok {
		return []string{}
	}
	seen := map[string]bool{}
	used := []string{}
	for _, row := range rows {
		task := draw.NormalizeTask(strings.Trim(row.Get(col), `"`))
		if task == "" || seen[task] {
			continue
		}
		seen[task] = true
		used = append(used, task)
	}
	return used
}

// poolOrDefault applies the single-task fallback for an empty pool.
func poolOrDefault(pool []string, fallback string) []string {
	if len(pool) == 0 && fallback != "" {
		return []string{fallback}
	}
	return pool
}

// encodeCSV renders records the way an export would deliver them.
func encodeCSV(records [][]string) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.WriteAll(records) // writes to a bytes.Buffer cannot fail
	return buf.Bytes()
}

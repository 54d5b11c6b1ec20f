package sheets

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/abrezinsky/moherun/internal/draw"
	"github.com/abrezinsky/moherun/internal/logger"
	"github.com/abrezinsky/moherun/internal/models"
)

// Tab names the workbook client adds when it has to record something.
const (
	PairingsTab = "Pairings"
	PoolTab     = "Challenge Pool"
)

var (
	resultsHeader  = []string{"Week ID", "Winner 1", "Winner 2", "Winner 3", "Task", "Drawn At"}
	pairingsHeader = []string{"Week ID", "Runner", "Partner", "Created At"}
)

// WorkbookClient serves a local .xlsx export of the spreadsheet. Writes append rows to
// the results and pairings tabs of the same file.
type WorkbookClient struct {
	path        string
	resultsTab  string
	poolPath    string
	defaultTask string
	log         logger.Logger

	mu sync.Mutex
}

// NewWorkbookClient opens nothing until the first call; the file may be replaced
// between refreshes.
func NewWorkbookClient(path string, opts Options, log logger.Logger) *WorkbookClient {
	return &WorkbookClient{
		path:        path,
		resultsTab:  opts.ResultsTab,
		poolPath:    opts.PoolPath,
		defaultTask: opts.DefaultTask,
		log:         log,
	}
}

// Path returns the workbook file.
func (w *WorkbookClient) Path() string {
	return w.path
}

func (w *WorkbookClient) records(name string) ([][]string, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if !slices.Contains(f.GetSheetList(), name) {
		return nil, false, nil
	}
	rows, err := f.GetRows(name)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read sheet %q: %w", name, err)
	}
	return rows, true, nil
}

// FetchTab reads one sheet. Raw is the sheet rendered as CSV so that duplicate tabs
// compare equal.
func (w *WorkbookClient) FetchTab(_ context.Context, name string) (*models.Tab, error) {
	recs, ok, err := w.records(name)
	if err != nil || !ok {
		return nil, err
	}
	return &models.Tab{Name: name, Raw: encodeCSV(recs), Rows: RowsFromRecords(recs)}, nil
}

// FetchChallengePool reads the pool file when configured, else the first column of the
// pool sheet.
func (w *WorkbookClient) FetchChallengePool(_ context.Context) ([]string, error) {
	var lines []string
	if w.poolPath != "" {
		data, err := os.ReadFile(w.poolPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read challenge pool: %w", err)
		}
		lines = draw.ParseTaskPool(string(data))
	} else {
		recs, _, err := w.records(PoolTab)
		if err != nil {
			return nil, err
		}
		var b strings.Builder
		for _, r := range recs {
			if len(r) > 0 {
				b.WriteString(r[0])
				b.WriteByte('\n')
			}
		}
		lines = draw.ParseTaskPool(b.String())
	}
	return poolOrDefault(lines, w.defaultTask), nil
}

func (w *WorkbookClient) rows(name string) ([]models.RawRow, error) {
	if name == "" {
		return nil, nil
	}
	recs, _, err := w.records(name)
	if err != nil {
		return nil, err
	}
	return RowsFromRecords(recs), nil
}

// FetchUsedTasks reads the task column of the results sheet.
func (w *WorkbookClient) FetchUsedTasks(_ context.Context) ([]string, error) {
	rows, err := w.rows(w.resultsTab)
	if err != nil {
		return nil, err
	}
	return UsedTasksFromRows(rows), nil
}

// FetchDrawResult finds weekID in the results sheet.
func (w *WorkbookClient) FetchDrawResult(_ context.Context, weekID string) (*models.DrawResult, error) {
	rows, err := w.rows(w.resultsTab)
	if err != nil {
		return nil, err
	}
	return DrawResultFromRows(rows, weekID), nil
}

// FetchPairing finds weekID in the pairings sheet.
func (w *WorkbookClient) FetchPairing(_ context.Context, weekID string) (*models.Pairing, error) {
	rows, err := w.rows(PairingsTab)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if !sameWeek(row.Get("Week ID"), weekID) {
			continue
		}
		p := &models.Pairing{WeekID: weekID, Runner: row.Get("Runner"), Partner: row.Get("Partner")}
		if t, err := time.Parse(time.RFC3339, row.Get("Created At")); err == nil {
			p.CreatedAt = t
		}
		if p.Runner == "" || p.Partner == "" {
			return nil, nil
		}
		return p, nil
	}
	return nil, nil
}

// appendRow adds values under the last used row of sheet, creating the sheet with
// header first when needed.
func (w *WorkbookClient) appendRow(sheet string, header, values []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	next := 1
	if slices.Contains(f.GetSheetList(), sheet) {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}
		next = len(rows) + 1
	} else {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to create sheet %q: %w", sheet, err)
		}
	}
	if next == 1 {
		if err := setRow(f, sheet, 1, header); err != nil {
			return err
		}
		next = 2
	}
	if err := setRow(f, sheet, next, values); err != nil {
		return err
	}
	return f.Save()
}

func setRow(f *excelize.File, sheet string, row int, values []string) error {
	axis, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return f.SetSheetRow(sheet, axis, &cells)
}

// SaveDrawResult appends the draw unless the week already has a row.
func (w *WorkbookClient) SaveDrawResult(ctx context.Context, res models.DrawResult) error {
	if w.resultsTab == "" {
		return ErrNotConfigured
	}
	if res.WeekID == "" || len(res.Winners) != draw.WinnerCount || res.Task == "" {
		return fmt.Errorf("invalid draw result for week %q", res.WeekID)
	}
	existing, err := w.FetchDrawResult(ctx, res.WeekID)
	if err != nil {
		return err
	}
	if existing != nil {
		w.log.Debug("Draw already in workbook", "week", res.WeekID)
		return nil
	}
	drawnAt := res.DrawnAt
	if drawnAt.IsZero() {
		drawnAt = time.Now()
	}
	values := append([]string{res.WeekID}, res.Winners...)
	values = append(values, res.Task, drawnAt.Format(time.RFC3339))
	return w.appendRow(w.resultsTab, resultsHeader, values)
}

// SavePairing appends the team unless the week already has one.
func (w *WorkbookClient) SavePairing(ctx context.Context, p models.Pairing) error {
	if p.WeekID == "" || p.Runner == "" || p.Partner == "" {
		return fmt.Errorf("invalid pairing for week %q", p.WeekID)
	}
	existing, err := w.FetchPairing(ctx, p.WeekID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	created := p.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return w.appendRow(PairingsTab, pairingsHeader,
		[]string{p.WeekID, p.Runner, p.Partner, created.Format(time.RFC3339)})
}

// Sheet is one named grid for WriteWorkbook.
type Sheet struct {
	Name string
	Rows [][]string
}

// WriteWorkbook creates path holding sheets in order. The default empty sheet is removed.
func WriteWorkbook(path string, sheets []Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("workbook needs at least one sheet")
	}
	f := excelize.NewFile()
	defer f.Close()

	defaultSheet := f.GetSheetName(f.GetActiveSheetIndex())
	for i, s := range sheets {
		idx, err := f.NewSheet(s.Name)
		if err != nil {
			return fmt.Errorf("failed to create sheet %q: %w", s.Name, err)
		}
		if i == 0 {
			f.SetActiveSheet(idx)
		}
		for r, values := range s.Rows {
			if err := setRow(f, s.Name, r+1, values); err != nil {
				return err
			}
		}
	}
	if !slices.ContainsFunc(sheets, func(s Sheet) bool { return s.Name == defaultSheet }) {
		if err := f.DeleteSheet(defaultSheet); err != nil {
			return fmt.Errorf("failed to drop default sheet: %w", err)
		}
	}
	return f.SaveAs(path)
}

var _ Client = (*WorkbookClient)(nil)

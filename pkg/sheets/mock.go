package sheets

import (
	"context"
	"fmt"
	"sync"

	"github.com/abrezinsky/moherun/internal/models"
)

// MockClient is an in-memory spreadsheet for testing
type MockClient struct {
	mu sync.Mutex

	tabs     map[string][][]string
	pool     []string
	used     []string
	draws    map[string]models.DrawResult
	pairings map[string]models.Pairing

	tabErrs      map[string]error
	poolErr      error
	usedErr      error
	fetchDrawErr error
	pairingErr   error
	saveErr      error
	saveFailures int

	savedDraws    []models.DrawResult
	savedPairings []models.Pairing
	fetchedTabs   []string
	saveAttempts  int
}

// MockOption configures the mock client
type MockOption func(*MockClient)

// WithTabs replaces the tabs. Each tab is a grid whose first row is the header.
func WithTabs(tabs map[string][][]string) MockOption {
	return func(m *MockClient) {
		m.tabs = tabs
	}
}

// WithTab adds or replaces one tab
func WithTab(name string, grid [][]string) MockOption {
	return func(m *MockClient) {
		m.tabs[name] = grid
	}
}

// WithTabError makes FetchTab fail for name
func WithTabError(name string, err error) MockOption {
	return func(m *MockClient) {
		m.tabErrs[name] = err
	}
}

// WithPool sets the challenge pool
func WithPool(pool []string) MockOption {
	return func(m *MockClient) {
		m.pool = pool
	}
}

// WithPoolError sets an error to return from FetchChallengePool
func WithPoolError(err error) MockOption {
	return func(m *MockClient) {
		m.poolErr = err
	}
}

// WithUsedTasks sets tasks already drawn before the mock's own saves
func WithUsedTasks(used []string) MockOption {
	return func(m *MockClient) {
		m.used = used
	}
}

// WithUsedTasksError sets an error to return from FetchUsedTasks
func WithUsedTasksError(err error) MockOption {
	return func(m *MockClient) {
		m.usedErr = err
	}
}

// WithDrawResult records a draw as if saved earlier
func WithDrawResult(res models.DrawResult) MockOption {
	return func(m *MockClient) {
		m.draws[res.WeekID] = res
	}
}

// WithFetchDrawError sets an error to return from FetchDrawResult
func WithFetchDrawError(err error) MockOption {
	return func(m *MockClient) {
		m.fetchDrawErr = err
	}
}

// WithPairing records a pairing as if saved earlier
func WithPairing(p models.Pairing) MockOption {
	return func(m *MockClient) {
		m.pairings[p.WeekID] = p
	}
}

// WithPairingError sets an error to return from FetchPairing
func WithPairingError(err error) MockOption {
	return func(m *MockClient) {
		m.pairingErr = err
	}
}

// WithSaveError makes every save fail
func WithSaveError(err error) MockOption {
	return func(m *MockClient) {
		m.saveErr = err
	}
}

// WithSaveFailures makes the first n saves fail
func WithSaveFailures(n int) MockOption {
	return func(m *MockClient) {
		m.saveFailures = n
	}
}

// NewMockClient creates a new mock spreadsheet
func NewMockClient(opts ...MockOption) *MockClient {
	m := &MockClient{
		tabs:     DefaultMockTabs(),
		pool:     DefaultMockPool(),
		draws:    make(map[string]models.DrawResult),
		pairings: make(map[string]models.Pairing),
		tabErrs:  make(map[string]error),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// FetchTab returns the configured grid or nil when the tab is absent
func (m *MockClient) FetchTab(ctx context.Context, name string) (*models.Tab, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchedTabs = append(m.fetchedTabs, name)
	if err := m.tabErrs[name]; err != nil {
		return nil, err
	}
	grid, ok := m.tabs[name]
	if !ok {
		return nil, nil
	}
	return &models.Tab{Name: name, Raw: encodeCSV(grid), Rows: RowsFromRecords(grid)}, nil
}

// FetchChallengePool returns the configured pool or error
func (m *MockClient) FetchChallengePool(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.poolErr != nil {
		return nil, m.poolErr
	}
	return append([]string(nil), m.pool...), nil
}

// FetchUsedTasks returns the configured tasks plus the tasks of saved draws
func (m *MockClient) FetchUsedTasks(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.usedErr != nil {
		return nil, m.usedErr
	}
	used := append([]string{}, m.used...)
	for _, d := range m.draws {
		used = append(used, d.Task)
	}
	return used, nil
}

// FetchDrawResult returns the recorded draw of weekID
func (m *MockClient) FetchDrawResult(ctx context.Context, weekID string) (*models.DrawResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchDrawErr != nil {
		return nil, m.fetchDrawErr
	}
	d, ok := m.draws[weekID]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

// FetchPairing returns the recorded pairing of weekID
func (m *MockClient) FetchPairing(ctx context.Context, weekID string) (*models.Pairing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pairingErr != nil {
		return nil, m.pairingErr
	}
	p, ok := m.pairings[weekID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// saveFails is called with mu held
func (m *MockClient) saveFails() error {
	m.saveAttempts++
	if m.saveErr != nil {
		return m.saveErr
	}
	if m.saveFailures > 0 {
		m.saveFailures--
		return fmt.Errorf("mock: transient save failure")
	}
	return nil
}

// SaveDrawResult records res unless the week already has one
func (m *MockClient) SaveDrawResult(ctx context.Context, res models.DrawResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.saveFails(); err != nil {
		return err
	}
	if _, ok := m.draws[res.WeekID]; !ok {
		m.draws[res.WeekID] = res
	}
	m.savedDraws = append(m.savedDraws, res)
	return nil
}

// SavePairing records p unless the week already has one
func (m *MockClient) SavePairing(ctx context.Context, p models.Pairing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.saveFails(); err != nil {
		return err
	}
	if _, ok := m.pairings[p.WeekID]; !ok {
		m.pairings[p.WeekID] = p
	}
	m.savedPairings = append(m.savedPairings, p)
	return nil
}

// SetTab replaces a tab between refreshes (for testing)
func (m *MockClient) SetTab(name string, grid [][]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tabs[name] = grid
}

// SetTabError makes FetchTab fail for name; a nil err clears it (for testing)
func (m *MockClient) SetTabError(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.tabErrs, name)
		return
	}
	m.tabErrs[name] = err
}

// SavedDrawResults returns every accepted SaveDrawResult call (for testing)
func (m *MockClient) SavedDrawResults() []models.DrawResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.DrawResult(nil), m.savedDraws...)
}

// SavedPairings returns every accepted SavePairing call (for testing)
func (m *MockClient) SavedPairings() []models.Pairing {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Pairing(nil), m.savedPairings...)
}

// SaveAttempts counts save calls including failed ones (for testing)
func (m *MockClient) SaveAttempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveAttempts
}

// FetchedTabs returns the tab names requested so far (for testing)
func (m *MockClient) FetchedTabs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.fetchedTabs...)
}

// DefaultMockTabs returns a media tab and two weeks of runner logs
func DefaultMockTabs() map[string][][]string {
	return map[string][][]string{
		"Media Storage": {
			{"Timestamp", "Name", "URL"},
			{"2025-12-16 08:10", "Alex", "https://cdn.example.com/alex-run.jpg"},
			{"2025-12-23 07:45", "Sarah", "https://cdn.example.com/sarah-trail.mp4"},
		},
		"W1": {
			{"Name", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun", "Total"},
			{"Alex", "5", "6", "4", "5", "7", "", "", "27"},
			{"Sarah", "10", "", "12", "", "", "21", "", "43"},
			{"Mike", "3", "3", "", "", "", "", "", "6"},
			{"Emma", "8", "8", "8", "8", "8", "8", "8", "56"},
		},
		"W2": {
			{"Name", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun", "Total"},
			{"Alex", "5", "5", "5", "5", "5", "", "", "25"},
			{"Sarah", "", "15", "", "15", "", "", "", "30"},
			{"Mike", "", "", "", "", "", "", "", "0"},
			{"Emma", "9", "9", "9", "9", "9", "9", "9", "63"},
			{"James", "4", "", "", "", "", "", "6", "10"},
		},
	}
}

// DefaultMockPool returns a small challenge pool
func DefaultMockPool() []string {
	return []string{
		"Run 5 km before sunrise",
		"Run a hill three times",
		"Run with a friend",
		"Finish a run with 10 burpees",
	}
}

// Ensure MockClient implements Client
var _ Client = (*MockClient)(nil)

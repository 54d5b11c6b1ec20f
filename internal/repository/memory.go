package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/abrezinsky/moherun/internal/models"
)

// MemoryStore is a process-local FullRepository with the same write-once semantics
// as the sqlite store.
type MemoryStore struct {
	mu         sync.Mutex
	draws      map[string]models.DrawResult
	drawSynced map[string]bool
	pairings   map[string]models.Pairing
	pairSynced map[string]bool
	settings   map[string]string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		draws:      make(map[string]models.DrawResult),
		drawSynced: make(map[string]bool),
		pairings:   make(map[string]models.Pairing),
		pairSynced: make(map[string]bool),
		settings:   make(map[string]string),
	}
}

func copyResult(r models.DrawResult) *models.DrawResult {
	r.Winners = append([]string(nil), r.Winners...)
	return &r
}

func (m *MemoryStore) GetDrawResult(_ context.Context, weekID string) (*models.DrawResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.draws[weekID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyResult(r), nil
}

func (m *MemoryStore) SaveDrawResult(_ context.Context, res models.DrawResult) (*models.DrawResult, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.draws[res.WeekID]; ok {
		return copyResult(existing), false, nil
	}
	if res.DrawnAt.IsZero() {
		res.DrawnAt = time.Now()
	}
	m.draws[res.WeekID] = *copyResult(res)
	return copyResult(res), true, nil
}

func (m *MemoryStore) ListDrawResults(_ context.Context, limit int) ([]models.DrawResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.sortedDraws(func(string) bool { return true })
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) ListUnsyncedDrawResults(_ context.Context) ([]models.DrawResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedDraws(func(week string) bool { return !m.drawSynced[week] }), nil
}

// sortedDraws returns the matching results oldest first. Callers hold mu.
func (m *MemoryStore) sortedDraws(keep func(string) bool) []models.DrawResult {
	out := []models.DrawResult{}
	for week, r := range m.draws {
		if keep(week) {
			out = append(out, *copyResult(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DrawnAt.Equal(out[j].DrawnAt) {
			return out[i].DrawnAt.Before(out[j].DrawnAt)
		}
		return out[i].WeekID < out[j].WeekID
	})
	return out
}

func (m *MemoryStore) MarkDrawSynced(_ context.Context, weekID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.draws[weekID]; ok {
		m.drawSynced[weekID] = true
	}
	return nil
}

func (m *MemoryStore) ListUsedTasks(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	tasks := []string{}
	for _, r := range m.draws {
		if !seen[r.Task] {
			seen[r.Task] = true
			tasks = append(tasks, r.Task)
		}
	}
	sort.Strings(tasks)
	return tasks, nil
}

func (m *MemoryStore) GetPairing(_ context.Context, weekID string) (*models.Pairing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pairings[weekID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemoryStore) SavePairing(_ context.Context, p models.Pairing) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pairings[p.WeekID]; ok {
		return false, nil
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	m.pairings[p.WeekID] = p
	return true, nil
}

func (m *MemoryStore) ListPairings(_ context.Context) ([]models.Pairing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Pairing, 0, len(m.pairings))
	for _, p := range m.pairings {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WeekID < out[j].WeekID })
	return out, nil
}

func (m *MemoryStore) ListUnsyncedPairings(_ context.Context) ([]models.Pairing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Pairing{}
	for id, p := range m.pairings {
		if !m.pairSynced[id] {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WeekID < out[j].WeekID })
	return out, nil
}

func (m *MemoryStore) MarkPairingSynced(_ context.Context, weekID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pairings[weekID]; ok {
		m.pairSynced[weekID] = true
	}
	return nil
}

func (m *MemoryStore) GetSetting(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.settings[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryStore) SetSetting(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	return nil
}

func (m *MemoryStore) DeleteSetting(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.settings, key)
	return nil
}

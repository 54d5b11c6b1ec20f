package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/abrezinsky/moherun/internal/draw"
	"github.com/abrezinsky/moherun/internal/ingest"
	"github.com/abrezinsky/moherun/internal/logger"
	"github.com/abrezinsky/moherun/internal/persist"
	"github.com/abrezinsky/moherun/internal/repository"
	"github.com/abrezinsky/moherun/internal/scoring"
	"github.com/abrezinsky/moherun/internal/services"
	"github.com/abrezinsky/moherun/pkg/sheets"
)

var challengeStart = time.Date(2025, time.December, 15, 0, 0, 0, 0, time.UTC)

// Clock points in the default mock sheet, where W2 is the latest tab.
var (
	saturdayW2    = time.Date(2025, time.December, 27, 12, 0, 0, 0, time.UTC)
	sundayEvening = time.Date(2025, time.December, 28, 21, 0, 0, 0, time.UTC)
	mondayMakeup  = time.Date(2025, time.December, 22, 21, 0, 0, 0, time.UTC)
)

// recorder captures broadcasts
type recorder struct {
	mu   sync.Mutex
	msgs []string
	last map[string]any
}

func newRecorder() *recorder {
	return &recorder{last: map[string]any{}}
}

func (r *recorder) BroadcastMessage(msgType string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msgType)
	r.last[msgType] = payload
}

func (r *recorder) has(msgType string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.last[msgType]
	return ok
}

func (r *recorder) payload(msgType string) any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last[msgType]
}

func newPersister(t *testing.T) *persist.Persister {
	t.Helper()
	p := persist.New(logger.Discard(), nil, persist.Options{
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
		Timeout:         time.Second,
	})
	t.Cleanup(p.Close)
	return p
}

func dashboardOptions(now func() time.Time) services.DashboardOptions {
	return services.DashboardOptions{
		Ingest:   ingest.Options{MediaTabs: []string{"Media Storage", "Uploads"}, MaxWeeks: 10},
		Scoring:  scoring.Options{StartDate: challengeStart},
		GoalKm:   10000,
		SupplyKm: 5000,
		Now:      now,
	}
}

// drawFixture wires a DrawService over the default mock sheet at a movable clock.
type drawFixture struct {
	now       time.Time
	client    *sheets.MockClient
	repo      repository.FullRepository
	persister *persist.Persister
	dash      *services.DashboardService
	settings  *services.SettingsService
	svc       *services.DrawService
	rec       *recorder
}

func newDrawFixture(t *testing.T, now time.Time, opts ...sheets.MockOption) *drawFixture {
	t.Helper()
	return newDrawFixtureWithRepo(t, now, repository.NewMemoryStore(), opts...)
}

func newDrawFixtureWithRepo(t *testing.T, now time.Time, repo repository.FullRepository, opts ...sheets.MockOption) *drawFixture {
	t.Helper()
	log := logger.Discard()
	f := &drawFixture{
		now:       now,
		client:    sheets.NewMockClient(opts...),
		repo:      repo,
		persister: newPersister(t),
		rec:       newRecorder(),
	}
	clock := func() time.Time { return f.now }

	f.dash = services.NewDashboardService(log, f.client, repo, f.persister, nil, dashboardOptions(clock))
	if _, err := f.dash.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	f.settings = services.NewSettingsService(log, repo, "W1", "")
	f.svc = services.NewDrawService(log, f.client, repo, f.settings, f.dash, f.persister, nil, services.DrawOptions{
		Location: time.UTC,
		Start:    challengeStart,
		Normal:   draw.Window{Day: time.Sunday, StartHour: 20, EndHour: 24},
		Makeup:   draw.Window{Day: time.Monday, StartHour: 20, EndHour: 24},
		Now:      clock,
	})
	f.svc.SetBroadcaster(f.rec)
	return f
}

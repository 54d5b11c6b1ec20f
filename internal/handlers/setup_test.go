package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/abrezinsky/moherun/internal/draw"
	"github.com/abrezinsky/moherun/internal/handlers"
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

// fixture wires real services over the mock sheet
type fixture struct {
	now      time.Time
	client   *sheets.MockClient
	repo     *repository.MemoryStore
	dash     *services.DashboardService
	settings *services.SettingsService
	h        *handlers.Handlers
	router   http.Handler
}

func newFixture(t *testing.T, now time.Time, refresh bool, opts ...sheets.MockOption) *fixture {
	t.Helper()
	log := logger.Discard()
	f := &fixture{
		now:    now,
		client: sheets.NewMockClient(opts...),
		repo:   repository.NewMemoryStore(),
	}
	clock := func() time.Time { return f.now }

	p := persist.New(log, nil, persist.Options{MaxRetries: 1, InitialInterval: time.Millisecond, Timeout: time.Second})
	t.Cleanup(p.Close)

	f.dash = services.NewDashboardService(log, f.client, f.repo, p, nil, services.DashboardOptions{
		Ingest:   ingest.Options{MediaTabs: []string{"Media Storage", "Uploads"}, MaxWeeks: 10},
		Scoring:  scoring.Options{StartDate: challengeStart},
		GoalKm:   10000,
		SupplyKm: 5000,
		Now:      clock,
	})
	if refresh {
		if _, err := f.dash.Refresh(context.Background()); err != nil {
			t.Fatalf("refresh failed: %v", err)
		}
	}
	f.settings = services.NewSettingsService(log, f.repo, "W1", "https://run.example.com")
	draws := services.NewDrawService(log, f.client, f.repo, f.settings, f.dash, p, nil, services.DrawOptions{
		Location: time.UTC,
		Start:    challengeStart,
		Normal:   draw.Window{Day: time.Sunday, StartHour: 20, EndHour: 24},
		Makeup:   draw.Window{Day: time.Monday, StartHour: 20, EndHour: 24},
		Now:      clock,
	})
	charts := services.NewChartService(log, f.dash)

	f.h = handlers.NewForTesting(f.dash, draws, f.settings, charts)
	f.router = f.h.Router()
	return f
}

func (f *fixture) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func expectErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	expectStatus(t, rec, status)
	apiErr := decode[map[string]string](t, rec)
	if apiErr["code"] != code {
		t.Errorf("expected code %q, got %q", code, apiErr["code"])
	}
	if apiErr["error"] == "" {
		t.Error("expected an error message")
	}
}

package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/robfig/cron/v3"

	"github.com/abrezinsky/moherun/internal/config"
	"github.com/abrezinsky/moherun/internal/draw"
	"github.com/abrezinsky/moherun/internal/handlers"
	"github.com/abrezinsky/moherun/internal/ingest"
	"github.com/abrezinsky/moherun/internal/logger"
	"github.com/abrezinsky/moherun/internal/metrics"
	"github.com/abrezinsky/moherun/internal/persist"
	"github.com/abrezinsky/moherun/internal/repository"
	"github.com/abrezinsky/moherun/internal/scoring"
	"github.com/abrezinsky/moherun/internal/services"
	"github.com/abrezinsky/moherun/internal/websocket"
	"github.com/abrezinsky/moherun/pkg/sheets"
)

// drawStatePollInterval is how often the hub checks for draw window transitions
const drawStatePollInterval = 30 * time.Second

// App holds all application dependencies
type App struct {
	log       logger.Logger
	cfg       *config.Config
	handlers  *handlers.Handlers
	repo      *repository.Repository
	persister *persist.Persister
	metrics   *metrics.Metrics
	dashboard *services.DashboardService
	draws     *services.DrawService
	settings  *services.SettingsService
	hub       *websocket.Hub
	scheduler *cron.Cron
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewSheetsClient picks the spreadsheet source: a local workbook when one is configured,
// otherwise the published sheet and its script endpoint.
func NewSheetsClient(cfg *config.Config, log logger.Logger) sheets.Client {
	opts := sheets.Options{
		SpreadsheetID: cfg.Sheets.SpreadsheetID,
		ScriptURL:     cfg.Sheets.ScriptURL,
		ResultsTab:    cfg.Sheets.ResultsTab,
		PoolPath:      cfg.Sheets.ChallengePoolPath,
		PoolURL:       cfg.Sheets.ChallengePoolURL,
		DefaultTask:   cfg.Draw.DefaultTask,
		Timeout:       cfg.Sheets.Timeout,
	}
	if cfg.Sheets.WorkbookPath != "" {
		log.Info("Reading spreadsheet from workbook", "path", cfg.Sheets.WorkbookPath)
		return sheets.NewWorkbookClient(cfg.Sheets.WorkbookPath, opts, log)
	}
	return sheets.NewHTTPClient(opts, log)
}

// DashboardOptions maps the config onto the refresh boundary
func DashboardOptions(cfg *config.Config) services.DashboardOptions {
	return services.DashboardOptions{
		Ingest: ingest.Options{
			MediaTabs: cfg.Sheets.MediaTabs,
			MaxWeeks:  cfg.Challenge.MaxWeeks,
		},
		Scoring: scoring.Options{
			Threshold:        cfg.Challenge.SupplyThresholdKm,
			StreakDays:       cfg.Challenge.StreakDays,
			StreakMultiplier: cfg.Challenge.StreakMultiplier,
			TeamMultiplier:   cfg.Challenge.TeamMultiplier,
			StartDate:        cfg.StartDate(),
		},
		GoalKm:   cfg.Challenge.GoalKm,
		SupplyKm: cfg.Challenge.SupplyThresholdKm,
	}
}

// DrawWindows returns the weekly and make-up windows. The config is validated, so the
// day names parse.
func DrawWindows(cfg *config.Config) (normal, makeup draw.Window) {
	day, _ := config.ParseWeekday(cfg.Draw.Day)
	makeupDay, _ := config.ParseWeekday(cfg.Draw.MakeupDay)
	normal = draw.Window{Day: day, StartHour: cfg.Draw.StartHour, EndHour: cfg.Draw.EndHour}
	makeup = draw.Window{Day: makeupDay, StartHour: cfg.Draw.MakeupStart, EndHour: cfg.Draw.MakeupEnd}
	return normal, makeup
}

// New creates and initializes a new application instance
func New(log logger.Logger, cfg *config.Config, client sheets.Client, templatesFS, staticFS fs.FS) (*App, error) {
	repo, err := repository.New(cfg.Server.DBPath)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	persister := persist.New(log, m, persist.Options{
		MaxRetries:      cfg.Persist.MaxRetries,
		InitialInterval: cfg.Persist.InitialInterval,
		Timeout:         cfg.Persist.Timeout,
		Verify:          cfg.Persist.Verify,
	})

	// Initialize services
	dashboardService := services.NewDashboardService(log, client, repo, persister, m, DashboardOptions(cfg))
	settingsService := services.NewSettingsService(log, repo, cfg.Draw.MakeupWeekID, cfg.Server.BaseURL)
	normal, makeup := DrawWindows(cfg)
	drawService := services.NewDrawService(log, client, repo, settingsService, dashboardService, persister, m, services.DrawOptions{
		Location: cfg.Location(),
		Start:    cfg.StartDate(),
		Normal:   normal,
		Makeup:   makeup,
	})
	chartService := services.NewChartService(log, dashboardService)

	// Initialize WebSocket hub with DI
	hub := websocket.New(log, dashboardService, drawService)
	hub.Start()
	dashboardService.SetBroadcaster(hub)
	drawService.SetBroadcaster(hub)

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		log:       log,
		cfg:       cfg,
		repo:      repo,
		persister: persister,
		metrics:   m,
		dashboard: dashboardService,
		draws:     drawService,
		settings:  settingsService,
		hub:       hub,
		ctx:       ctx,
		cancel:    cancel,
	}

	a.scheduler, err = a.newScheduler()
	if err != nil {
		a.Close()
		return nil, err
	}

	// Create static file server
	staticServer := handlers.NewStaticServer(staticFS)

	h, err := handlers.New(
		dashboardService,
		drawService,
		settingsService,
		chartService,
		templatesFS,
		staticServer,
		hub,
		m.Handler(),
		log,
		handlers.Options{GoalKm: cfg.Challenge.GoalKm},
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}
	a.handlers = h

	return a, nil
}

// newScheduler registers the refresh job and the draw window announcements in the
// challenge time zone
func (a *App) newScheduler() (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(a.cfg.Location()))

	if a.cfg.Refresh.Enabled {
		if _, err := c.AddFunc(a.cfg.Refresh.Cron, a.scheduledRefresh); err != nil {
			return nil, fmt.Errorf("invalid refresh cron %q: %w", a.cfg.Refresh.Cron, err)
		}
	}

	if a.cfg.Draw.AnnounceWindow {
		normal, makeup := DrawWindows(a.cfg)
		for _, spec := range append(windowSpecs(normal), windowSpecs(makeup)...) {
			if _, err := c.AddFunc(spec, a.announceDrawState); err != nil {
				return nil, fmt.Errorf("invalid draw window schedule %q: %w", spec, err)
			}
		}
	}

	return c, nil
}

// windowSpecs returns cron specs for the opening and closing of w. An end hour of 24
// closes at midnight of the next day.
func windowSpecs(w draw.Window) []string {
	endDay := (int(w.Day) + w.EndHour/24) % 7
	return []string{
		fmt.Sprintf("0 %d * * %d", w.StartHour, int(w.Day)),
		fmt.Sprintf("0 %d * * %d", w.EndHour%24, endDay),
	}
}

func (a *App) scheduledRefresh() {
	ctx, cancel := context.WithTimeout(a.ctx, 2*time.Minute)
	defer cancel()

	if _, err := a.dashboard.Refresh(ctx); err != nil {
		a.log.Warn("Scheduled refresh failed", "error", err)
		return
	}
	a.draws.BroadcastState(ctx)
}

// RefreshNow runs the scheduled refresh job immediately
func (a *App) RefreshNow() {
	a.scheduledRefresh()
}

func (a *App) announceDrawState() {
	a.log.Info("Draw window boundary reached")
	a.draws.BroadcastState(a.ctx)
}

// Start runs the first refresh, resubmits draws the sheet never confirmed, and starts
// the background jobs
func (a *App) Start() {
	ctx, cancel := context.WithTimeout(a.ctx, 2*time.Minute)
	defer cancel()

	if _, err := a.dashboard.Refresh(ctx); err != nil {
		a.log.Warn("Initial refresh failed, serving without data until the next refresh", "error", err)
	}
	if _, err := a.draws.ResubmitUnsynced(ctx); err != nil {
		a.log.Warn("Failed to list unsynced draws", "error", err)
	}

	go a.hub.WatchDrawState(a.ctx, drawStatePollInterval)
	a.scheduler.Start()
	a.log.Info("Scheduler started", "jobs", len(a.scheduler.Entries()), "time_zone", a.cfg.Challenge.TimeZone)
}

// Router returns the configured HTTP router
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// Close performs graceful shutdown of app resources
func (a *App) Close() {
	if a.scheduler != nil {
		<-a.scheduler.Stop().Done()
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.persister != nil {
		a.persister.Close()
	}
	if a.repo != nil {
		if err := a.repo.Close(); err != nil {
			a.log.Warn("Failed to close database", "error", err)
		}
	}
}

// Run starts the HTTP server and blocks until ctx is done
func (a *App) Run(ctx context.Context, addr string) error {
	port := addr
	if _, p, err := net.SplitHostPort(addr); err == nil {
		port = p
	}
	baseURL := fmt.Sprintf("http://%s:%s", getPreferredIP(realNetworkProvider{}), port)
	if a.cfg.Server.BaseURL == "" {
		a.setDefaultBaseURL(ctx, baseURL)
	}

	a.Start()

	server := &http.Server{
		Addr:              addr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	a.log.Info("Server starting", "url", baseURL)
	if err := server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	a.log.Info("Server stopped")
	return nil
}

// setDefaultBaseURL sets the base URL setting if not already configured
// or if current value uses localhost (which isn't useful for QR codes)
func (a *App) setDefaultBaseURL(ctx context.Context, baseURL string) {
	existing, _ := a.settings.GetBaseURL(ctx)

	needsUpdate := existing == "" || strings.Contains(existing, "localhost")
	if needsUpdate {
		if err := a.settings.SetBaseURL(ctx, baseURL); err != nil {
			a.log.Warn("Failed to set default base_url", "error", err)
		} else {
			a.log.Info("Default base URL set", "url", baseURL)
		}
	}
}

// networkInterface wraps net.Interface for testing
type networkInterface interface {
	Flags() net.Flags
	Addrs() ([]net.Addr, error)
}

// realInterface wraps a real net.Interface
type realInterface struct {
	iface net.Interface
}

func (r realInterface) Flags() net.Flags {
	return r.iface.Flags
}

func (r realInterface) Addrs() ([]net.Addr, error) {
	return r.iface.Addrs()
}

// networkProvider is an interface for getting network interfaces (for testing)
type networkProvider interface {
	Interfaces() ([]networkInterface, error)
}

// realNetworkProvider implements networkProvider using actual net package
type realNetworkProvider struct{}

func (realNetworkProvider) Interfaces() ([]networkInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	result := make([]networkInterface, len(ifaces))
	for i, iface := range ifaces {
		result[i] = realInterface{iface: iface}
	}
	return result, nil
}

// getPreferredIP returns the LAN address phones on the same network can reach, so the
// share QR code works without a configured base URL. Private ranges win; localhost is
// the last resort.
func getPreferredIP(provider networkProvider) string {
	ifaces, err := provider.Interfaces()
	if err != nil {
		return "localhost"
	}

	var candidates []net.IP
	for _, iface := range ifaces {
		flags := iface.Flags()
		if flags&net.FlagUp == 0 || flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.To4() == nil || ip.IsLoopback() {
				continue
			}
			candidates = append(candidates, ip)
		}
	}

	for _, ip := range candidates {
		if ip.IsPrivate() {
			return ip.String()
		}
	}
	if len(candidates) > 0 {
		return candidates[0].String()
	}
	return "localhost"
}

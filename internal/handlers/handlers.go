package handlers

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/abrezinsky/moherun/internal/logger"
	"github.com/abrezinsky/moherun/internal/services"
	"github.com/abrezinsky/moherun/internal/websocket"
)

// NewStaticServer creates a static file server from an fs.FS
func NewStaticServer(staticFS fs.FS) http.Handler {
	return http.FileServer(http.FS(staticFS))
}

// IndexPageData holds the data passed to the dashboard template
type IndexPageData struct {
	Title   string
	GoalKm  float64
	BaseURL string
}

// Templates holds all parsed HTML templates
type Templates struct {
	Index *template.Template
}

// Options tunes the public page and the write endpoints
type Options struct {
	Title  string
	GoalKm float64
	// WriteRate and WriteBurst limit POST /api/refresh and POST /api/draw per client IP
	WriteRate  rate.Limit
	WriteBurst int
}

// DefaultOptions are used when New is given the zero Options
var DefaultOptions = Options{
	Title:      "Run to Mohe",
	GoalKm:     10000,
	WriteRate:  rate.Every(10 * time.Second),
	WriteBurst: 3,
}

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Dashboard    services.DashboardServicer
	Draws        services.DrawServicer
	Settings     services.SettingsServicer
	Charts       services.ChartServicer
	Hub          *websocket.Hub
	Metrics      http.Handler
	Log          logger.Logger
	opts         Options
	limiter      *IPRateLimiter
	templates    *Templates
	staticServer http.Handler
}

// New creates a new Handlers instance with all dependencies
func New(
	dashboard services.DashboardServicer,
	draws services.DrawServicer,
	settings services.SettingsServicer,
	charts services.ChartServicer,
	templatesFS fs.FS,
	staticServer http.Handler,
	hub *websocket.Hub,
	metrics http.Handler,
	log logger.Logger,
	opts Options,
) (*Handlers, error) {
	templates, err := loadTemplates(templatesFS)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	h := NewForTesting(dashboard, draws, settings, charts)
	h.templates = templates
	h.staticServer = staticServer
	h.Hub = hub
	h.Metrics = metrics
	h.Log = log
	h.setOptions(opts)
	return h, nil
}

// NewForTesting creates a Handlers instance without loading templates (for testing API endpoints)
func NewForTesting(
	dashboard services.DashboardServicer,
	draws services.DrawServicer,
	settings services.SettingsServicer,
	charts services.ChartServicer,
) *Handlers {
	h := &Handlers{
		Dashboard: dashboard,
		Draws:     draws,
		Settings:  settings,
		Charts:    charts,
		Log:       logger.Discard(),
		// templates left nil - API endpoints don't use templates
	}
	h.setOptions(Options{})
	return h
}

func (h *Handlers) setOptions(opts Options) {
	if opts.Title == "" {
		opts.Title = DefaultOptions.Title
	}
	if opts.GoalKm <= 0 {
		opts.GoalKm = DefaultOptions.GoalKm
	}
	if opts.WriteRate == 0 {
		opts.WriteRate = DefaultOptions.WriteRate
	}
	if opts.WriteBurst <= 0 {
		opts.WriteBurst = DefaultOptions.WriteBurst
	}
	h.opts = opts
	h.limiter = NewIPRateLimiter(opts.WriteRate, opts.WriteBurst)
}

// loadTemplates parses all templates once at startup
func loadTemplates(templatesFS fs.FS) (*Templates, error) {
	t := &Templates{}
	var err error

	if t.Index, err = template.ParseFS(templatesFS, "index.html"); err != nil {
		return nil, fmt.Errorf("index template: %w", err)
	}

	return t, nil
}

package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Log != nil && h.Log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.conditionalHTTPLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)
	r.Use(middleware.Timeout(60 * time.Second))

	// Static files (served from embedded filesystem)
	if h.staticServer != nil {
		r.Handle("/static/*", http.StripPrefix("/static/", h.staticServer))
	}

	// Dashboard page
	r.Get("/", h.handleIndex)

	// Push updates
	if h.Hub != nil {
		r.Get("/ws", h.Hub.ServeWs)
	}
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		// Dashboard (read only)
		r.Get("/dashboard", h.handleDashboard)
		r.Get("/periods", h.handleGetPeriods)
		r.Get("/periods/{week}", h.handleGetPeriod)
		r.Get("/summary", h.handleGetSummary)
		r.Get("/gallery", h.handleGetGallery)
		r.Get("/progress", h.handleGetProgress)
		r.Get("/runners/{name}", h.handleGetRunner)

		// Lucky draw
		r.Get("/draw", h.handleGetDraw)
		r.Get("/draw/history", h.handleDrawHistory)

		// Images
		r.Get("/charts/weekly.png", h.handleWeeklyChart)
		r.Get("/share/qr.png", h.handleShareQR)

		// Settings
		r.Get("/settings", h.handleGetSettings)
		r.Put("/settings", h.handleUpdateSettings)

		// Writes that reach the sheet or the script endpoint
		r.Group(func(r chi.Router) {
			r.Use(h.rateLimit)
			r.Post("/refresh", h.handleRefresh)
			r.Post("/draw", h.handleDraw)
		})
	})

	return r
}

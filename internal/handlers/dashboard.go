package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/moherun/internal/models"
)

// ==================== Public Page ====================

func (h *Handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	if h.templates == nil || h.templates.Index == nil {
		h.respondError(w, r, ErrNotFound)
		return
	}
	baseURL, _ := h.Settings.GetBaseURL(r.Context())
	data := IndexPageData{
		Title:   h.opts.Title,
		GoalKm:  h.opts.GoalKm,
		BaseURL: baseURL,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.Index.Execute(w, data); err != nil {
		h.Log.Error("Failed to render dashboard page", "error", err)
	}
}

// ==================== Dashboard API ====================

// handleDashboard returns the whole snapshot with the refresh banner. Before the first
// successful refresh only the banner is present.
func (h *Handlers) handleDashboard(w http.ResponseWriter, r *http.Request) {
	resp := DashboardResponse{Status: h.Dashboard.Status()}
	if snap, err := h.Dashboard.Snapshot(); err == nil {
		resp.Snapshot = snap
	}
	respondOK(w, resp)
}

// snapshot loads the current snapshot or writes the error response
func (h *Handlers) snapshot(w http.ResponseWriter, r *http.Request) (*models.Snapshot, bool) {
	snap, err := h.Dashboard.Snapshot()
	if err != nil {
		h.respondError(w, r, err)
		return nil, false
	}
	return snap, true
}

func (h *Handlers) handleGetPeriods(w http.ResponseWriter, r *http.Request) {
	if snap, ok := h.snapshot(w, r); ok {
		respondOK(w, snap.Periods)
	}
}

func (h *Handlers) handleGetPeriod(w http.ResponseWriter, r *http.Request) {
	week := strings.TrimSpace(chi.URLParam(r, "week"))
	if week == "" {
		h.respondError(w, r, BadRequest("Missing week parameter"))
		return
	}

	period, err := h.Dashboard.Period(week)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, period)
}

func (h *Handlers) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	if snap, ok := h.snapshot(w, r); ok {
		respondOK(w, snap.Summary)
	}
}

func (h *Handlers) handleGetGallery(w http.ResponseWriter, r *http.Request) {
	if snap, ok := h.snapshot(w, r); ok {
		gallery := snap.Gallery
		if gallery == nil {
			gallery = []models.GalleryItem{}
		}
		respondOK(w, gallery)
	}
}

func (h *Handlers) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	if snap, ok := h.snapshot(w, r); ok {
		respondOK(w, snap.Progress)
	}
}

func (h *Handlers) handleGetRunner(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil || strings.TrimSpace(name) == "" {
		h.respondError(w, r, BadRequest("Invalid runner name"))
		return
	}

	detail, err := h.Dashboard.RunnerDetail(strings.TrimSpace(name))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, detail)
}

// handleRefresh forces a refresh pass. A failed pass still reports the banner state.
func (h *Handlers) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Dashboard.Refresh(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	weeks := 0
	for _, p := range snap.Periods {
		if !p.IsAggregate() {
			weeks++
		}
	}
	respondOK(w, RefreshResponse{
		GeneratedAt: snap.GeneratedAt,
		Weeks:       weeks,
		Status:      h.Dashboard.Status(),
	})
}

// ==================== Charts ====================

func (h *Handlers) handleWeeklyChart(w http.ResponseWriter, r *http.Request) {
	png, err := h.Charts.WeeklyChart(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondPNG(w, png)
}

package handlers

import (
	"net/http"

	"github.com/abrezinsky/moherun/internal/models"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

func (h *Handlers) handleGetDraw(w http.ResponseWriter, r *http.Request) {
	status, err := h.Draws.Status(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, status)
}

// handleDraw performs the draw for the open window. Repeating it returns the stored result.
func (h *Handlers) handleDraw(w http.ResponseWriter, r *http.Request) {
	result, err := h.Draws.Draw(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, result)
}

func (h *Handlers) handleDrawHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, defaultHistoryLimit, maxHistoryLimit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	results, err := h.Draws.History(r.Context(), limit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if results == nil {
		results = []models.DrawResult{}
	}
	respondOK(w, DrawHistoryResponse{Results: results})
}

package handlers

import (
	"net/http"

	"github.com/abrezinsky/moherun/internal/services"
)

// ==================== Settings ====================

func (h *Handlers) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Settings.AllSettings(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, settings)
}

func (h *Handlers) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	ctx := r.Context()
	if req.ResetMakeupWeek {
		if req.MakeupWeekID != nil {
			h.respondError(w, r, BadRequest("Invalid request: reset_makeup_week and makeup_week_id are exclusive"))
			return
		}
		if err := h.Settings.ResetMakeupWeekID(ctx); err != nil {
			h.respondError(w, r, err)
			return
		}
	}

	settings := services.Settings{
		MakeupWeekID: req.MakeupWeekID,
		BaseURL:      req.BaseURL,
	}
	if err := h.Settings.UpdateSettings(ctx, settings); err != nil {
		h.respondError(w, r, err)
		return
	}

	respondSuccess(w, "Settings updated")
}

// ==================== Sharing ====================

func (h *Handlers) handleShareQR(w http.ResponseWriter, r *http.Request) {
	png, err := h.Settings.ShareQRCode(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondPNG(w, png)
}

package handlers

import (
	"time"

	"github.com/abrezinsky/moherun/internal/models"
)

// DashboardResponse is the full snapshot plus the refresh banner. Snapshot fields are
// omitted until the first refresh succeeds.
type DashboardResponse struct {
	*models.Snapshot
	Status models.RefreshStatus `json:"status"`
}

// RefreshResponse is the response for a manual refresh
type RefreshResponse struct {
	GeneratedAt time.Time            `json:"generatedAt"`
	Weeks       int                  `json:"weeks"`
	Status      models.RefreshStatus `json:"status"`
}

// DrawHistoryResponse lists stored draw results, latest first
type DrawHistoryResponse struct {
	Results []models.DrawResult `json:"results"`
}


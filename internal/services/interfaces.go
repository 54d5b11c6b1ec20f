package services

import (
	"context"

	"github.com/abrezinsky/moherun/internal/models"
)

// Broadcaster defines the interface for pushing messages to connected clients
type Broadcaster interface {
	BroadcastMessage(msgType string, payload any)
}

// DashboardServicer defines the interface for the refresh boundary
type DashboardServicer interface {
	Refresh(ctx context.Context) (*models.Snapshot, error)
	Snapshot() (*models.Snapshot, error)
	Status() models.RefreshStatus
	RunnerDetail(name string) (*models.RunnerDetail, error)
	Period(weekID string) (*models.Period, error)
	SetBroadcaster(b Broadcaster)
}

// DrawServicer defines the interface for lucky-draw operations
type DrawServicer interface {
	Status(ctx context.Context) (*models.DrawStatus, error)
	Draw(ctx context.Context) (*models.DrawResult, error)
	History(ctx context.Context, limit int) ([]models.DrawResult, error)
	ResubmitUnsynced(ctx context.Context) (int, error)
	SetBroadcaster(b Broadcaster)
}

// SettingsServicer defines the interface for runtime settings
type SettingsServicer interface {
	MakeupWeekID(ctx context.Context) (string, error)
	SetMakeupWeekID(ctx context.Context, weekID string) error
	ResetMakeupWeekID(ctx context.Context) error
	GetBaseURL(ctx context.Context) (string, error)
	SetBaseURL(ctx context.Context, url string) error
	ShareQRCode(ctx context.Context) ([]byte, error)
	AllSettings(ctx context.Context) (map[string]any, error)
	UpdateSettings(ctx context.Context, settings Settings) error
}

// ChartServicer renders dashboard charts
type ChartServicer interface {
	WeeklyChart(ctx context.Context) ([]byte, error)
}

// Ensure concrete types implement interfaces
var (
	_ DashboardServicer = (*DashboardService)(nil)
	_ DrawServicer      = (*DrawService)(nil)
	_ SettingsServicer  = (*SettingsService)(nil)
	_ ChartServicer     = (*ChartService)(nil)
)

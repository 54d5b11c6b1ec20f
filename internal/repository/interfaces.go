package repository

import (
	"context"

	"github.com/abrezinsky/moherun/internal/models"
)

// DrawRepository is the write-once local cache of lucky-draw results
type DrawRepository interface {
	GetDrawResult(ctx context.Context, weekID string) (*models.DrawResult, error)
	SaveDrawResult(ctx context.Context, res models.DrawResult) (*models.DrawResult, bool, error)
	ListDrawResults(ctx context.Context, limit int) ([]models.DrawResult, error)
	ListUnsyncedDrawResults(ctx context.Context) ([]models.DrawResult, error)
	MarkDrawSynced(ctx context.Context, weekID string) error
	ListUsedTasks(ctx context.Context) ([]string, error)
}

// PairingRepository stores supply-station teams
type PairingRepository interface {
	GetPairing(ctx context.Context, weekID string) (*models.Pairing, error)
	SavePairing(ctx context.Context, p models.Pairing) (bool, error)
	ListPairings(ctx context.Context) ([]models.Pairing, error)
	ListUnsyncedPairings(ctx context.Context) ([]models.Pairing, error)
	MarkPairingSynced(ctx context.Context, weekID string) error
}

// SettingsRepository defines settings data operations
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error
}

// FullRepository combines all repository interfaces
type FullRepository interface {
	DrawRepository
	PairingRepository
	SettingsRepository
}

// Ensure both stores implement all interfaces
var (
	_ FullRepository = (*Repository)(nil)
	_ FullRepository = (*MemoryStore)(nil)
)

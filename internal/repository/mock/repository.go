package mock

import (
	"context"

	"github.com/abrezinsky/moherun/internal/models"
	"github.com/abrezinsky/moherun/internal/repository"
)

// Repository wraps a real repository and allows injecting errors for testing.
// This provides a flexible way to test error paths without complex database manipulation.
//
// Usage:
//
//	realRepo := testutil.NewTestRepository(t)
//	mockRepo := mock.NewRepository(realRepo)
//	mockRepo.SaveDrawResultError = errors.New("database error")
//	svc := services.NewDrawService(log, mockRepo, client, ...)
//	_, err := svc.Draw(ctx)
//	// err will now contain the injected error
type Repository struct {
	repository.FullRepository

	// ===== Draw Errors =====
	GetDrawResultError           error
	SaveDrawResultError          error
	ListDrawResultsError         error
	ListUnsyncedDrawResultsError error
	MarkDrawSyncedError          error
	ListUsedTasksError           error

	// ===== Pairing Errors =====
	GetPairingError           error
	SavePairingError          error
	ListPairingsError         error
	ListUnsyncedPairingsError error
	MarkPairingSyncedError    error

	// ===== Settings Errors =====
	GetSettingError    error
	SetSettingError    error
	DeleteSettingError error
}

// NewRepository creates a new mock repository wrapping a real one
func NewRepository(real repository.FullRepository) *Repository {
	return &Repository{FullRepository: real}
}

// ===== Draw Methods =====

func (m *Repository) GetDrawResult(ctx context.Context, weekID string) (*models.DrawResult, error) {
	if m.GetDrawResultError != nil {
		return nil, m.GetDrawResultError
	}
	return m.FullRepository.GetDrawResult(ctx, weekID)
}

func (m *Repository) SaveDrawResult(ctx context.Context, res models.DrawResult) (*models.DrawResult, bool, error) {
	if m.SaveDrawResultError != nil {
		return nil, false, m.SaveDrawResultError
	}
	return m.FullRepository.SaveDrawResult(ctx, res)
}

func (m *Repository) ListDrawResults(ctx context.Context, limit int) ([]models.DrawResult, error) {
	if m.ListDrawResultsError != nil {
		return nil, m.ListDrawResultsError
	}
	return m.FullRepository.ListDrawResults(ctx, limit)
}

func (m *Repository) ListUnsyncedDrawResults(ctx context.Context) ([]models.DrawResult, error) {
	if m.ListUnsyncedDrawResultsError != nil {
		return nil, m.ListUnsyncedDrawResultsError
	}
	return m.FullRepository.ListUnsyncedDrawResults(ctx)
}

func (m *Repository) MarkDrawSynced(ctx context.Context, weekID string) error {
	if m.MarkDrawSyncedError != nil {
		return m.MarkDrawSyncedError
	}
	return m.FullRepository.MarkDrawSynced(ctx, weekID)
}

func (m *Repository) ListUsedTasks(ctx context.Context) ([]string, error) {
	if m.ListUsedTasksError != nil {
		return nil, m.ListUsedTasksError
	}
	return m.FullRepository.ListUsedTasks(ctx)
}

// ===== Pairing Methods =====

func (m *Repository) GetPairing(ctx context.Context, weekID string) (*models.Pairing, error) {
	if m.GetPairingError != nil {
		return nil, m.GetPairingError
	}
	return m.FullRepository.GetPairing(ctx, weekID)
}

func (m *Repository) SavePairing(ctx context.Context, p models.Pairing) (bool, error) {
	if m.SavePairingError != nil {
		return false, m.SavePairingError
	}
	return m.FullRepository.SavePairing(ctx, p)
}

func (m *Repository) ListPairings(ctx context.Context) ([]models.Pairing, error) {
	if m.ListPairingsError != nil {
		return nil, m.ListPairingsError
	}
	return m.FullRepository.ListPairings(ctx)
}

func (m *Repository) ListUnsyncedPairings(ctx context.Context) ([]models.Pairing, error) {
	if m.ListUnsyncedPairingsError != nil {
		return nil, m.ListUnsyncedPairingsError
	}
	return m.FullRepository.ListUnsyncedPairings(ctx)
}

func (m *Repository) MarkPairingSynced(ctx context.Context, weekID string) error {
	if m.MarkPairingSyncedError != nil {
		return m.MarkPairingSyncedError
	}
	return m.FullRepository.MarkPairingSynced(ctx, weekID)
}

// ===== Settings Methods =====

func (m *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	if m.GetSettingError != nil {
		return "", m.GetSettingError
	}
	return m.FullRepository.GetSetting(ctx, key)
}

func (m *Repository) SetSetting(ctx context.Context, key, value string) error {
	if m.SetSettingError != nil {
		return m.SetSettingError
	}
	return m.FullRepository.SetSetting(ctx, key, value)
}

func (m *Repository) DeleteSetting(ctx context.Context, key string) error {
	if m.DeleteSettingError != nil {
		return m.DeleteSettingError
	}
	return m.FullRepository.DeleteSetting(ctx, key)
}

// Ensure Repository implements FullRepository
var _ repository.FullRepository = (*Repository)(nil)

package testutil

import (
	"testing"
	"time"

	"github.com/abrezinsky/moherun/internal/demo"
	"github.com/abrezinsky/moherun/internal/repository"
	"github.com/abrezinsky/moherun/pkg/sheets"
)

// NewTestRepository creates a new in-memory repository for testing.
// Each call creates a fresh database with all migrations applied.
func NewTestRepository(t *testing.T) *repository.Repository {
	t.Helper()

	repo, err := repository.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}

	t.Cleanup(func() {
		repo.Close()
	})

	return repo
}

// NewGeneratedClient returns a mock spreadsheet filled with generated runners.
// The same seed always yields the same sheet.
func NewGeneratedClient(t *testing.T, seed int64, runners, weeks int, opts ...sheets.MockOption) *sheets.MockClient {
	t.Helper()

	g := demo.NewGenerator(seed)
	names := g.Runners(runners)
	start := time.Date(2025, time.December, 15, 0, 0, 0, 0, time.UTC)

	base := []sheets.MockOption{
		sheets.WithTabs(g.Tabs(names, weeks, start)),
		sheets.WithPool(g.Pool(8)),
	}
	return sheets.NewMockClient(append(base, opts...)...)
}

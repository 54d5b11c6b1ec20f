package services

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/abrezinsky/moherun/internal/draw"
	"github.com/abrezinsky/moherun/internal/errors"
	"github.com/abrezinsky/moherun/internal/ingest"
	"github.com/abrezinsky/moherun/internal/logger"
	"github.com/abrezinsky/moherun/internal/metrics"
	"github.com/abrezinsky/moherun/internal/models"
	"github.com/abrezinsky/moherun/internal/persist"
	"github.com/abrezinsky/moherun/internal/repository"
	"github.com/abrezinsky/moherun/internal/route"
	"github.com/abrezinsky/moherun/internal/scoring"
	"github.com/abrezinsky/moherun/pkg/sheets"
)

// Message types pushed after state changes
const (
	MsgDashboardUpdated = "dashboard_updated"
	MsgRefreshStatus    = "refresh_status"
	MsgDrawState        = "draw_state"
	MsgDrawResult       = "draw_result"
)

// DashboardOptions holds the challenge constants used by a refresh
type DashboardOptions struct {
	Ingest   ingest.Options
	Scoring  scoring.Options
	GoalKm   float64
	SupplyKm float64
	// Now defaults to time.Now
	Now func() time.Time
}

// DashboardService is the refresh boundary: it ingests the sheet, scores it, and keeps
// the last good snapshot for the presentation layer.
type DashboardService struct {
	log       logger.Logger
	client    sheets.Client
	repo      repository.PairingRepository
	persister *persist.Persister
	metrics   *metrics.Metrics
	opts      DashboardOptions

	group singleflight.Group

	mu          sync.RWMutex
	snapshot    *models.Snapshot
	status      models.RefreshStatus
	broadcaster Broadcaster
}

// NewDashboardService creates a new DashboardService. persister and m may be nil.
func NewDashboardService(log logger.Logger, client sheets.Client, repo repository.PairingRepository, persister *persist.Persister, m *metrics.Metrics, opts DashboardOptions) *DashboardService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &DashboardService{
		log:       log,
		client:    client,
		repo:      repo,
		persister: persister,
		metrics:   m,
		opts:      opts,
	}
}

// SetBroadcaster sets the broadcaster for sending updates to clients
func (s *DashboardService) SetBroadcaster(b Broadcaster) {
	s.mu.Lock()
	s.broadcaster = b
	s.mu.Unlock()
}

func (s *DashboardService) broadcast(msgType string, payload any) {
	s.mu.RLock()
	b := s.broadcaster
	s.mu.RUnlock()
	if b != nil {
		b.BroadcastMessage(msgType, payload)
	}
}

// Snapshot returns the last good snapshot, or ErrNoData before the first successful refresh
func (s *DashboardService) Snapshot() (*models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return nil, ErrNoData
	}
	return s.snapshot, nil
}

// Status returns the refresh banner state
func (s *DashboardService) Status() models.RefreshStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// RunnerDetail returns one runner's history from the current snapshot
func (s *DashboardService) RunnerDetail(name string) (*models.RunnerDetail, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	detail, ok := scoring.RunnerDetail(snap.Periods, name)
	if !ok {
		return nil, ErrUnknownRunner
	}
	return detail, nil
}

// Period returns one weekly period of the current snapshot
func (s *DashboardService) Period(weekID string) (*models.Period, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	for _, p := range snap.Periods {
		if !p.IsAggregate() && draw.SameWeek(p.WeekID, weekID) {
			return &p, nil
		}
	}
	return nil, ErrUnknownWeek
}

// Refresh runs one ingestion and scoring pass. Concurrent callers share the same pass.
// On failure the previous snapshot is kept and the error is recorded in the status.
func (s *DashboardService) Refresh(ctx context.Context) (*models.Snapshot, error) {
	v, err, _ := s.group.Do("refresh", func() (any, error) {
		return s.refresh(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Snapshot), nil
}

func (s *DashboardService) refresh(ctx context.Context) (*models.Snapshot, error) {
	start := s.opts.Now()
	s.setRefreshing(true)

	snap, err := s.build(ctx)
	elapsed := s.opts.Now().Sub(start)

	s.mu.Lock()
	s.status.Refreshing = false
	if err != nil {
		s.status.LastError = err.Error()
	} else {
		s.snapshot = snap
		s.status.LastError = ""
		s.status.LastRefreshed = snap.GeneratedAt
	}
	status := s.status
	s.mu.Unlock()

	if err != nil {
		s.metrics.ObserveRefresh(metrics.ResultFailed, elapsed)
		s.log.Error("Dashboard refresh failed", "error", err)
		s.broadcast(MsgRefreshStatus, status)
		return nil, err
	}

	s.metrics.ObserveRefresh(metrics.ResultOK, elapsed)
	s.metrics.SetTotals(snap.Summary.TotalDistance, snap.Summary.ActiveRunnersThisWeek, snap.Summary.WeeksProcessed)
	s.log.Info("Dashboard refreshed",
		"weeks", snap.Summary.WeeksProcessed,
		"current_week", snap.Summary.CurrentWeekID,
		"total_km", snap.Summary.TotalDistance,
		"duration", elapsed)
	s.broadcast(MsgDashboardUpdated, snap)
	return snap, nil
}

func (s *DashboardService) setRefreshing(on bool) {
	s.mu.Lock()
	s.status.Refreshing = on
	status := s.status
	s.mu.Unlock()
	s.broadcast(MsgRefreshStatus, status)
}

func (s *DashboardService) build(ctx context.Context) (*models.Snapshot, error) {
	sh, report, err := ingest.Ingest(ctx, s.client, s.opts.Ingest, s.log)
	if err != nil {
		return nil, err
	}
	if report.MediaErr != nil {
		s.log.Warn("Media tab unavailable, gallery left empty", "error", report.MediaErr)
	}

	weeks := scoring.WeeksFromSheets(sh)
	opts := s.opts.Scoring

	if trigger := scoring.DetectTrigger(weeks, opts); trigger != nil {
		s.adoptExternalPairing(ctx, trigger.WeekID)
	}
	if _, err := s.ResubmitUnsynced(ctx); err != nil {
		s.log.Warn("Failed to list unsynced pairings", "error", err)
	}

	pairings, err := s.repo.ListPairings(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to list pairings")
	}
	opts.Pairings = pairings

	res := scoring.Score(weeks, opts)
	if res.PairingRequest != nil {
		rescore, err := s.recordPairing(ctx, *res.PairingRequest)
		if err != nil {
			return nil, err
		}
		if rescore {
			if opts.Pairings, err = s.repo.ListPairings(ctx); err != nil {
				return nil, errors.Wrap(err, errors.ErrInternal, "failed to list pairings")
			}
			res = scoring.Score(weeks, opts)
		}
	}
	for _, p := range res.StalePairings {
		s.log.Warn("Ignoring pairing outside the trigger week", "week", p.WeekID, "runner", p.Runner, "partner", p.Partner)
	}

	return &models.Snapshot{
		Periods:     res.Periods,
		Summary:     res.Summary,
		Progress:    route.Progress(res.Summary.TotalDistance, s.opts.GoalKm, s.opts.SupplyKm),
		Gallery:     ingest.ParseGallery(sh.Media),
		Trigger:     res.Trigger,
		GeneratedAt: s.opts.Now(),
	}, nil
}

// adoptExternalPairing copies a pairing saved by another dashboard into the local cache.
// Lookup failures only mean the partner may be chosen here.
func (s *DashboardService) adoptExternalPairing(ctx context.Context, weekID string) {
	if _, err := s.repo.GetPairing(ctx, weekID); err == nil {
		return
	} else if !stderrors.Is(err, repository.ErrNotFound) {
		s.log.Warn("Failed to read local pairing", "week", weekID, "error", err)
		return
	}

	p, err := s.client.FetchPairing(ctx, weekID)
	if err != nil {
		s.log.Warn("Failed to read external pairing", "week", weekID, "error", err)
		return
	}
	if p == nil {
		return
	}
	p.WeekID = weekID
	if _, err := s.repo.SavePairing(ctx, *p); err != nil {
		s.log.Warn("Failed to cache external pairing", "week", weekID, "error", err)
		return
	}
	if err := s.repo.MarkPairingSynced(ctx, weekID); err != nil {
		s.log.Warn("Failed to mark pairing synced", "week", weekID, "error", err)
	}
	s.log.Debug("Adopted external pairing", "week", weekID, "runner", p.Runner, "partner", p.Partner)
}

// recordPairing stores a newly chosen pairing and sends it to the sheet in the
// background. rescore is true when another pairing won the race for the week.
func (s *DashboardService) recordPairing(ctx context.Context, p models.Pairing) (rescore bool, err error) {
	p.CreatedAt = s.opts.Now().UTC()
	created, err := s.repo.SavePairing(ctx, p)
	if err != nil {
		return false, errors.Wrap(err, errors.ErrInternal, "failed to save pairing")
	}
	if !created {
		return true, nil
	}
	s.log.Info("Supply station team formed", "week", p.WeekID, "runner", p.Runner, "partner", p.Partner)
	s.persistPairing(p)
	return false, nil
}

// ResubmitUnsynced sends every pairing the sheet has not confirmed yet. Pairings
// already being written are skipped by the persister.
func (s *DashboardService) ResubmitUnsynced(ctx context.Context) (int, error) {
	if s.persister == nil {
		return 0, nil
	}
	pending, err := s.repo.ListUnsyncedPairings(ctx)
	if err != nil {
		return 0, err
	}
	for _, p := range pending {
		s.persistPairing(p)
	}
	if len(pending) > 0 {
		s.log.Info("Resubmitting unsynced pairings", "count", len(pending))
	}
	return len(pending), nil
}

func (s *DashboardService) persistPairing(p models.Pairing) {
	if s.persister == nil {
		return
	}
	s.persister.Submit(persist.Job{
		Kind: persist.KindPairing,
		Key:  p.WeekID,
		Write: func(ctx context.Context) error {
			return s.client.SavePairing(ctx, p)
		},
		Verify: func(ctx context.Context) (bool, error) {
			got, err := s.client.FetchPairing(ctx, p.WeekID)
			return got != nil, err
		},
		Stored: func() {
			if err := s.repo.MarkPairingSynced(context.Background(), p.WeekID); err != nil {
				s.log.Warn("Failed to mark pairing synced", "week", p.WeekID, "error", err)
			}
		},
	})
}

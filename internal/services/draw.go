package services

import (
	"context"
	stderrors "errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abrezinsky/moherun/internal/draw"
	"github.com/abrezinsky/moherun/internal/errors"
	"github.com/abrezinsky/moherun/internal/logger"
	"github.com/abrezinsky/moherun/internal/metrics"
	"github.com/abrezinsky/moherun/internal/models"
	"github.com/abrezinsky/moherun/internal/persist"
	"github.com/abrezinsky/moherun/internal/repository"
	"github.com/abrezinsky/moherun/internal/scoring"
	"github.com/abrezinsky/moherun/pkg/sheets"
)

// SnapshotSource provides the latest scored dashboard
type SnapshotSource interface {
	Snapshot() (*models.Snapshot, error)
}

// DrawOptions holds the draw windows and the challenge calendar
type DrawOptions struct {
	Location *time.Location
	Start    time.Time
	Normal   draw.Window
	Makeup   draw.Window
	// Now defaults to time.Now
	Now func() time.Time
	// Rand defaults to a clock-seeded generator
	Rand *rand.Rand
}

// DrawService runs the weekly lucky draw
type DrawService struct {
	log       logger.Logger
	client    sheets.Client
	repo      repository.DrawRepository
	settings  SettingsServicer
	dashboard SnapshotSource
	persister *persist.Persister
	metrics   *metrics.Metrics
	opts      DrawOptions

	// mu serializes draws and guards rng
	mu  sync.Mutex
	rng *rand.Rand

	bmu         sync.RWMutex
	broadcaster Broadcaster
}

// NewDrawService creates a new DrawService. persister and m may be nil.
func NewDrawService(log logger.Logger, client sheets.Client, repo repository.DrawRepository, settings SettingsServicer, dashboard SnapshotSource, persister *persist.Persister, m *metrics.Metrics, opts DrawOptions) *DrawService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	rng := opts.Rand
	if rng == nil {
		rng = draw.NewRand()
	}
	return &DrawService{
		log:       log,
		client:    client,
		repo:      repo,
		settings:  settings,
		dashboard: dashboard,
		persister: persister,
		metrics:   m,
		opts:      opts,
		rng:       rng,
	}
}

// SetBroadcaster sets the broadcaster for sending updates to clients
func (s *DrawService) SetBroadcaster(b Broadcaster) {
	s.bmu.Lock()
	s.broadcaster = b
	s.bmu.Unlock()
}

func (s *DrawService) broadcast(msgType string, payload any) {
	s.bmu.RLock()
	b := s.broadcaster
	s.bmu.RUnlock()
	if b != nil {
		b.BroadcastMessage(msgType, payload)
	}
}

// lookup finds the draw of weekID locally, then in the sheet. A sheet hit is cached
// locally as already synced. Sheet errors read as "no result".
func (s *DrawService) lookup(ctx context.Context, weekID string) (*models.DrawResult, error) {
	if weekID == "" {
		return nil, nil
	}
	res, err := s.repo.GetDrawResult(ctx, weekID)
	if err == nil {
		return res, nil
	}
	if !stderrors.Is(err, repository.ErrNotFound) {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to read draw result")
	}

	ext, err := s.client.FetchDrawResult(ctx, weekID)
	if err != nil {
		s.log.Warn("Failed to read external draw result", "week", weekID, "error", err)
		return nil, nil
	}
	if ext == nil {
		return nil, nil
	}
	ext.WeekID = weekID
	if ext.ID == "" {
		ext.ID = uuid.NewString()
	}
	stored, _, err := s.repo.SaveDrawResult(ctx, *ext)
	if err != nil {
		s.log.Warn("Failed to cache external draw result", "week", weekID, "error", err)
		return ext, nil
	}
	if err := s.repo.MarkDrawSynced(ctx, weekID); err != nil {
		s.log.Warn("Failed to mark draw synced", "week", weekID, "error", err)
	}
	return stored, nil
}

// Status computes the draw control state at the current time
func (s *DrawService) Status(ctx context.Context) (*models.DrawStatus, error) {
	now := s.opts.Now()

	var snap models.Snapshot
	if cur, err := s.dashboard.Snapshot(); err == nil {
		snap = *cur
	} else if !stderrors.Is(err, ErrNoData) {
		return nil, err
	}

	makeupWeek, err := s.settings.MakeupWeekID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to read make-up week")
	}

	current := snap.Summary.CurrentWeekID
	currentRes, err := s.lookup(ctx, current)
	if err != nil {
		return nil, err
	}
	makeupRes := currentRes
	if makeupWeek != current {
		if makeupRes, err = s.lookup(ctx, makeupWeek); err != nil {
			return nil, err
		}
	}

	wc := draw.WeekContext{
		Location:      s.opts.Location,
		Start:         s.opts.Start,
		Normal:        s.opts.Normal,
		Makeup:        s.opts.Makeup,
		MakeupWeekID:  makeupWeek,
		CurrentWeekID: current,
		CurrentDrawn:  currentRes != nil,
		MakeupDrawn:   makeupRes != nil,
	}
	state := draw.CurrentState(now, wc)
	target := draw.TargetWeek(state, wc)

	status := &models.DrawStatus{
		State:          state,
		TargetWeekID:   target,
		CalendarWeekID: draw.CalendarWeekID(now, s.opts.Start, s.opts.Location),
		Eligible:       []string{},
	}
	if state == models.DrawOpenMakeup {
		status.Result = makeupRes
	} else {
		status.Result = currentRes
	}

	status.Displayed = status.Result
	if status.Displayed == nil {
		if prev, ok := draw.PreviousWeekID(target); ok {
			if status.Displayed, err = s.lookup(ctx, prev); err != nil {
				return nil, err
			}
		}
	}

	if p, ok := scoring.FindPeriod(snap.Periods, target); ok {
		for _, r := range p.Runners {
			status.Eligible = append(status.Eligible, r.Name)
		}
	}
	return status, nil
}

// Draw performs the lucky draw for the open week. A week that already has a result
// returns it unchanged.
func (s *DrawService) Draw(ctx context.Context) (*models.DrawResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, err := s.Status(ctx)
	if err != nil {
		return nil, err
	}
	if status.Result != nil {
		return status.Result, nil
	}
	if !status.State.Open() {
		return nil, ErrDrawLocked
	}

	pool, err := s.client.FetchChallengePool(ctx)
	if err != nil {
		return nil, errors.Unavailable(err, "failed to read challenge pool")
	}
	used := s.usedTasks(ctx)

	picked := draw.Select(s.rng, status.Eligible, pool, used)
	if picked == nil {
		s.log.Warn("Cannot draw", "week", status.TargetWeekID, "eligible", len(status.Eligible), "pool", len(pool))
		return nil, ErrCannotDraw
	}

	res := *picked
	res.ID = uuid.NewString()
	res.WeekID = status.TargetWeekID
	res.Makeup = status.State == models.DrawOpenMakeup
	res.DrawnAt = s.opts.Now().UTC()

	stored, created, err := s.repo.SaveDrawResult(ctx, res)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to save draw result")
	}
	if !created {
		return stored, nil
	}

	kind := "normal"
	if stored.Makeup {
		kind = "makeup"
	}
	s.metrics.DrawPerformed(kind)
	s.log.Info("Lucky draw performed", "week", stored.WeekID, "kind", kind, "winners", stored.Winners, "task", stored.Task)

	s.persistDraw(*stored)
	s.broadcast(MsgDrawResult, stored)
	return stored, nil
}

// usedTasks merges the local and sheet history. Either side may fail.
func (s *DrawService) usedTasks(ctx context.Context) []string {
	used, err := s.repo.ListUsedTasks(ctx)
	if err != nil {
		s.log.Warn("Failed to list local used tasks", "error", err)
	}
	ext, err := s.client.FetchUsedTasks(ctx)
	if err != nil {
		s.log.Warn("Failed to read used tasks", "error", err)
	}
	return append(used, ext...)
}

func (s *DrawService) persistDraw(res models.DrawResult) {
	if s.persister == nil {
		return
	}
	s.persister.Submit(persist.Job{
		Kind: persist.KindDrawResult,
		Key:  res.WeekID,
		Write: func(ctx context.Context) error {
			return s.client.SaveDrawResult(ctx, res)
		},
		Verify: func(ctx context.Context) (bool, error) {
			got, err := s.client.FetchDrawResult(ctx, res.WeekID)
			return got != nil, err
		},
		Stored: func() {
			if err := s.repo.MarkDrawSynced(context.Background(), res.WeekID); err != nil {
				s.log.Warn("Failed to mark draw synced", "week", res.WeekID, "error", err)
			}
		},
	})
}

// History returns stored draws, latest week first
func (s *DrawService) History(ctx context.Context, limit int) ([]models.DrawResult, error) {
	return s.repo.ListDrawResults(ctx, limit)
}

// ResubmitUnsynced sends every draw the sheet has not confirmed yet
func (s *DrawService) ResubmitUnsynced(ctx context.Context) (int, error) {
	pending, err := s.repo.ListUnsyncedDrawResults(ctx)
	if err != nil {
		return 0, err
	}
	for _, res := range pending {
		s.persistDraw(res)
	}
	if len(pending) > 0 {
		s.log.Info("Resubmitting unsynced draws", "count", len(pending))
	}
	return len(pending), nil
}

// BroadcastState pushes the current draw state to connected clients
func (s *DrawService) BroadcastState(ctx context.Context) {
	status, err := s.Status(ctx)
	if err != nil {
		s.log.Warn("Failed to compute draw state", "error", err)
		return
	}
	s.broadcast(MsgDrawState, status)
}

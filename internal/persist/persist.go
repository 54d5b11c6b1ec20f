// Package persist runs fire-and-forget writes to the external system of record with
// a small bounded retry. Callers may read the outcome but never have to wait for it.
package persist

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/abrezinsky/moherun/internal/logger"
	"github.com/abrezinsky/moherun/internal/metrics"
)

// Job kinds.
const (
	KindDrawResult = "draw_result"
	KindPairing    = "pairing"
)

var (
	// ErrInFlight is reported when the same kind and key is already being written.
	ErrInFlight = stderrors.New("write already in flight")
	// ErrClosed is reported for jobs submitted after Close.
	ErrClosed = stderrors.New("persister closed")
	// ErrNotVerified is returned when the read-back does not show the write.
	ErrNotVerified = stderrors.New("write not visible on read-back")
)

// Job is one background write.
type Job struct {
	Kind string
	Key  string
	// Write performs the request. Wrap an error with backoff.Permanent to stop retrying.
	Write func(ctx context.Context) error
	// Verify optionally reads the write back.
	Verify func(ctx context.Context) (bool, error)
	// Stored runs after a successful write, before the key can be submitted again.
	Stored func()
}

// Outcome is the final state of a Job.
type Outcome struct {
	Kind     string
	Key      string
	Attempts int
	Err      error
}

// OK reports whether the write succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Options bounds retries.
type Options struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	// Timeout caps the whole job including retries.
	Timeout time.Duration
	// Verify enables Job.Verify read-backs.
	Verify bool
}

// Persister runs jobs on their own goroutines.
type Persister struct {
	log     logger.Logger
	metrics *metrics.Metrics
	opts    Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]bool
	closed   bool
}

// New creates a Persister. m may be nil.
func New(log logger.Logger, m *metrics.Metrics, opts Options) *Persister {
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = 500 * time.Millisecond
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Persister{
		log:      log,
		metrics:  m,
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
		inflight: make(map[string]bool),
	}
}

// Submit starts job in the background. The returned channel receives exactly one
// Outcome and is then closed; ignoring it is fine.
func (p *Persister) Submit(job Job) <-chan Outcome {
	out := make(chan Outcome, 1)
	id := job.Kind + ":" + job.Key

	p.mu.Lock()
	switch {
	case p.closed:
		p.mu.Unlock()
		out <- Outcome{Kind: job.Kind, Key: job.Key, Err: ErrClosed}
		close(out)
		return out
	case p.inflight[id]:
		p.mu.Unlock()
		out <- Outcome{Kind: job.Kind, Key: job.Key, Err: ErrInFlight}
		close(out)
		return out
	}
	p.inflight[id] = true
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		o := p.run(job)
		if o.OK() && job.Stored != nil {
			job.Stored()
		}

		p.mu.Lock()
		delete(p.inflight, id)
		p.mu.Unlock()

		p.metrics.PersistOutcome(job.Kind, o.OK())
		if o.OK() {
			p.log.Info("Background write stored", "kind", job.Kind, "key", job.Key, "attempts", o.Attempts)
		} else {
			p.log.Warn("Background write gave up", "kind", job.Kind, "key", job.Key, "attempts", o.Attempts, "error", o.Err)
		}
		out <- o
		close(out)
	}()
	return out
}

func (p *Persister) run(job Job) Outcome {
	ctx, cancel := context.WithTimeout(p.ctx, p.opts.Timeout)
	defer cancel()

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.opts.InitialInterval
	exp.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, p.opts.MaxRetries), ctx)

	o := Outcome{Kind: job.Kind, Key: job.Key}
	op := func() error {
		o.Attempts++
		if err := job.Write(ctx); err != nil {
			return err
		}
		if p.opts.Verify && job.Verify != nil {
			ok, err := job.Verify(ctx)
			if err != nil {
				return fmt.Errorf("verify: %w", err)
			}
			if !ok {
				return ErrNotVerified
			}
		}
		return nil
	}
	notify := func(err error, wait time.Duration) {
		p.log.Debug("Background write failed, retrying", "kind", job.Kind, "key", job.Key, "wait", wait, "error", err)
	}

	o.Err = backoff.RetryNotify(op, policy, notify)
	return o
}

// Wait blocks until every submitted job has finished.
func (p *Persister) Wait() {
	p.wg.Wait()
}

// Close rejects new jobs, waits for running ones and releases the base context.
func (p *Persister) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
	p.cancel()
}

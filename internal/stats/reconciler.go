// Package stats keeps the store's stats snapshot in line with the server,
// on demand and on a timer.
package stats

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/idilsaglam/tada/internal/model"
)

// DefaultInterval is the auto-sync period used when none is given.
const DefaultInterval = 5 * time.Minute

// Remote fetches authoritative counts.
type Remote interface {
	MyStats(ctx context.Context) (model.Stats, error)
	AdminStats(ctx context.Context) (model.AdminStats, error)
}

// Ledger holds the snapshot. *store.Store satisfies it.
type Ledger interface {
	CurrentStats() model.Stats
	PatchLocally()
	SetStats(model.Stats)
}

// Viewer decides which stats endpoint applies.
type Viewer interface {
	IsAdmin() bool
}

// Options configures a Reconciler.
type Options struct {
	Ledger Ledger
	Remote Remote
	Viewer Viewer
	Clock  clockwork.Clock
	Logger *slog.Logger
}

// Reconciler owns the auto-sync schedule. At most one ticker runs at a time.
type Reconciler struct {
	ledger Ledger
	remote Remote
	viewer Viewer
	clock  clockwork.Clock
	log    *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(opts Options) *Reconciler {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		ledger: opts.Ledger,
		remote: opts.Remote,
		viewer: opts.Viewer,
		clock:  clock,
		log:    logger,
	}
}

// CurrentStats is the server snapshot, or counts derived from the list
// when none has been fetched yet.
func (r *Reconciler) CurrentStats() model.Stats {
	return r.ledger.CurrentStats()
}

// PatchLocally recomputes the snapshot from the list.
func (r *Reconciler) PatchLocally() {
	r.ledger.PatchLocally()
}

// Percentages is CurrentStats with each share of the total.
func (r *Reconciler) Percentages() model.StatsPercentages {
	return r.ledger.CurrentStats().Percentages()
}

// Refresh fetches counts for the current viewer and replaces the snapshot.
// Admins get the population-wide counts. On error the snapshot is kept.
func (r *Reconciler) Refresh(ctx context.Context) (model.Stats, error) {
	var (
		st  model.Stats
		err error
	)
	if r.viewer != nil && r.viewer.IsAdmin() {
		var all model.AdminStats
		all, err = r.remote.AdminStats(ctx)
		st = all.Stats
	} else {
		st, err = r.remote.MyStats(ctx)
	}
	if err != nil {
		return model.Stats{}, err
	}
	r.ledger.SetStats(st)
	return st, nil
}

// Resync is Refresh for background callers: failures are logged only.
func (r *Reconciler) Resync(ctx context.Context) {
	if _, err := r.Refresh(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		r.log.Warn("stats resync failed", "error", err)
		return
	}
	r.log.Debug("stats resynced")
}

// AdminBreakdown returns the per-user view. It leaves the snapshot alone.
func (r *Reconciler) AdminBreakdown(ctx context.Context) (model.AdminStats, error) {
	return r.remote.AdminStats(ctx)
}

// StartAutoSync resyncs every interval until ctx ends or StopAutoSync is
// called. A running schedule is replaced.
func (r *Reconciler) StartAutoSync(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()

	ctx, cancel := context.WithCancel(ctx)
	ticker := r.clock.NewTicker(interval)
	done := make(chan struct{})
	r.cancel, r.done = cancel, done

	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				r.Resync(ctx)
			}
		}
	}()
	r.log.Debug("stats auto-sync started", "interval", interval)
}

// StopAutoSync stops the schedule and waits for the loop to exit. It is a
// no-op when nothing is running.
func (r *Reconciler) StopAutoSync() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

// Running reports whether auto-sync is scheduled.
func (r *Reconciler) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done == nil {
		return false
	}
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}

func (r *Reconciler) stopLocked() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.cancel, r.done = nil, nil
}

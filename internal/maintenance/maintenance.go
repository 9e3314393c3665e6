// Package maintenance runs periodic background tasks of the API server as
// Go tickers: pruning old run reports, and a catch-up sweep that flushes the
// response cache when a publication was missed by the listener.
package maintenance

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Config controls maintenance task intervals. Zero duration disables a task.
type Config struct {
	PruneInterval   time.Duration // Delete old run reports
	CatchUpInterval time.Duration // Sweep for publications missed by LISTEN
	KeepRuns        int
}

// DefaultConfig returns sensible production defaults.
func DefaultConfig() Config {
	return Config{
		PruneInterval:   6 * time.Hour,
		CatchUpInterval: 5 * time.Minute,
		KeepRuns:        30,
	}
}

// Store is the database side of the tasks. *db.Pool implements it.
type Store interface {
	PruneRuns(ctx context.Context, keep int, logger *slog.Logger) error
	LatestRunID(ctx context.Context) (string, error)
}

// Flusher drops cached responses. *cache.Cache implements it.
type Flusher interface {
	Flush() int
}

// Start launches all configured maintenance tickers. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, store Store, c Flusher, cfg Config, logger *slog.Logger) {
	logger.Info("Maintenance tickers started",
		"prune", cfg.PruneInterval,
		"catchup", cfg.CatchUpInterval,
		"keep_runs", cfg.KeepRuns)

	tickers := make([]*time.Ticker, 0, 2)
	defer func() {
		for _, t := range tickers {
			t.Stop()
		}
	}()

	// Prune: keep only the most recent run reports
	if cfg.PruneInterval > 0 && cfg.KeepRuns > 0 {
		t := time.NewTicker(cfg.PruneInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() {
			if err := store.PruneRuns(ctx, cfg.KeepRuns, logger); err != nil {
				logger.Warn("Prune: failed", "error", err)
			}
		})
	}

	// Catch-up: flush the cache when the latest run changed unnoticed
	if cfg.CatchUpInterval > 0 {
		sweep := NewSweeper(store, c, logger)
		sweep.Run(ctx)
		t := time.NewTicker(cfg.CatchUpInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { sweep.Run(ctx) })
	}

	<-ctx.Done()
	logger.Info("Maintenance tickers stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// --------------------------------------------------------------------------
// Catch-up sweep
// --------------------------------------------------------------------------

// Sweeper remembers the last published run it saw.
type Sweeper struct {
	store  Store
	cache  Flusher
	logger *slog.Logger

	mu   sync.Mutex
	last string
}

// NewSweeper creates a sweeper that has not seen any run yet.
func NewSweeper(store Store, c Flusher, logger *slog.Logger) *Sweeper {
	return &Sweeper{store: store, cache: c, logger: logger}
}

// Run checks the latest run id once and flushes the cache when it differs
// from the previous check. It reports whether the cache was flushed.
func (s *Sweeper) Run(ctx context.Context) bool {
	id, err := s.store.LatestRunID(ctx)
	if err != nil {
		s.logger.Warn("Catch-up sweep: failed", "error", err)
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if id == s.last {
		return false
	}
	first := s.last == ""
	s.last = id
	if first {
		return false
	}
	n := s.cache.Flush()
	s.logger.Info("Catch-up sweep: new run, cache flushed", "run_id", id, "entries", n)
	return true
}

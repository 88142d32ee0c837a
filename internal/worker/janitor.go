package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/reelgrab/reelgrab/internal/repository"
)

// ErrShutdownTimeout is returned when the janitor doesn't stop within timeout.
var ErrShutdownTimeout = errors.New("janitor shutdown timed out")

// Janitor expires the spool. A single goroutine runs sweeps serially, so two
// purges can never race each other: registry rows past their expiry go
// first, together with their files, then orphaned spool files that no row
// points at age out on modification time.
type Janitor struct {
	registry  repository.DownloadRegistry
	store     repository.MediaStore
	interval  time.Duration
	retention time.Duration
	logger    *slog.Logger

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// Config holds janitor configuration.
type Config struct {
	Interval  time.Duration
	Retention time.Duration
}

// NewJanitor creates the sweep worker.
func NewJanitor(
	cfg Config,
	registry repository.DownloadRegistry,
	store repository.MediaStore,
	logger *slog.Logger,
) *Janitor {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Janitor{
		registry:  registry,
		store:     store,
		interval:  cfg.Interval,
		retention: cfg.Retention,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start launches the sweep loop. The first sweep runs immediately so a
// restart cannot extend any file's lifetime.
func (j *Janitor) Start() {
	j.logger.Info("starting janitor",
		"interval", j.interval,
		"retention", j.retention,
	)

	j.wg.Add(1)
	go j.run()
}

// Stop gracefully stops the janitor.
func (j *Janitor) Stop(timeout time.Duration) error {
	j.logger.Info("stopping janitor")
	j.cancel()

	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		j.logger.Info("janitor stopped gracefully")
		return nil
	case <-time.After(timeout):
		return ErrShutdownTimeout
	}
}

func (j *Janitor) run() {
	defer j.wg.Done()

	j.Sweep(j.ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.ctx.Done():
			j.logger.Info("janitor stopping")
			return
		case <-ticker.C:
			j.Sweep(j.ctx)
		}
	}
}

// Sweep performs one purge pass and returns the number of files removed.
// A row whose file cannot be removed is already deleted by then; the file
// becomes an orphan and a later pass collects it by age.
func (j *Janitor) Sweep(ctx context.Context) int {
	now := time.Now()
	removed := 0

	expired, err := j.registry.DeleteExpired(ctx, now)
	if err != nil {
		j.logger.Error("expiry purge failed", "error", err)
	}
	for _, name := range expired {
		if err := j.store.Remove(name); err != nil {
			j.logger.Warn("could not remove expired file", "filename", name, "error", err)
			continue
		}
		removed++
	}

	orphans, err := j.store.SweepOlderThan(now.Add(-j.retention))
	if err != nil {
		j.logger.Error("orphan sweep failed", "error", err)
	}
	removed += len(orphans)

	if len(expired) > 0 || removed > 0 {
		j.logger.Info("sweep completed",
			"expired_rows", len(expired),
			"files_removed", removed,
		)
	}

	return removed
}

package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/council-rankings/internal/config"
)

// Refresher recomputes and re-caches the unfiltered ranking board
type Refresher interface {
	RefreshCache(ctx context.Context) error
}

// RefreshWorker periodically rebuilds the cached global board so the
// hot key stays warm across TTL expiry and survives cache restarts.
type RefreshWorker struct {
	refresher Refresher
	config    *config.RefreshConfig
	logger    *slog.Logger
	stopCh    chan struct{}
	doneCh    chan struct{}
	mu        sync.Mutex
	running   bool
}

// NewRefreshWorker creates a new refresh worker
func NewRefreshWorker(refresher Refresher, cfg *config.RefreshConfig, logger *slog.Logger) *RefreshWorker {
	return &RefreshWorker{
		refresher: refresher,
		config:    cfg,
		logger:    logger,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the background refresh process
func (w *RefreshWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("refresh worker started", "interval", w.config.Interval)

	go w.run(ctx)
	return nil
}

// Stop stops the background refresh process
func (w *RefreshWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("refresh worker stopped")
	return nil
}

// run is the main worker loop
func (w *RefreshWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

func (w *RefreshWorker) refresh(ctx context.Context) {
	startTime := time.Now()

	if err := w.refresher.RefreshCache(ctx); err != nil {
		w.logger.Error("failed to refresh ranking cache", "error", err)
		return
	}

	w.logger.Debug("ranking cache refreshed", "duration", time.Since(startTime))
}

// IsRunning returns whether the worker is currently running
func (w *RefreshWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// RunOnce runs a single refresh cycle (useful on startup)
func (w *RefreshWorker) RunOnce(ctx context.Context) {
	w.refresh(ctx)
}

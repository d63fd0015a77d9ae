package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// SweeperConfig holds the sweep intervals.
type SweeperConfig struct {
	// PendingInterval is how often pending entries are re-sent (default: 30s)
	PendingInterval time.Duration

	// RatesInterval is how often the rates tab is copied (default: 24h)
	RatesInterval time.Duration
}

// DefaultSweeperConfig returns sensible defaults
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		PendingInterval: 30 * time.Second,
		RatesInterval:   24 * time.Hour,
	}
}

// Sweeper runs the worker's periodic jobs in the background.
type Sweeper struct {
	worker *SyncWorker
	config SweeperConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSweeper(worker *SyncWorker, config SweeperConfig) *Sweeper {
	def := DefaultSweeperConfig()
	if config.PendingInterval <= 0 {
		config.PendingInterval = def.PendingInterval
	}
	if config.RatesInterval <= 0 {
		config.RatesInterval = def.RatesInterval
	}
	return &Sweeper{worker: worker, config: config}
}

// Start begins the sweep loop. Returns an error if already running.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("sweeper is already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go s.runLoop(ctx, s.stopCh, s.doneCh)

	slog.InfoContext(ctx, "Sweeper started",
		"pending_interval", s.config.PendingInterval,
		"rates_interval", s.config.RatesInterval)
	return nil
}

// Stop signals the loop and waits for it, or for ctx.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Sweeper stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sweeper stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the sweeper is currently running
func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Sweeper) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	pendingTicker := time.NewTicker(s.config.PendingInterval)
	defer pendingTicker.Stop()

	ratesTicker := time.NewTicker(s.config.RatesInterval)
	defer ratesTicker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-pendingTicker.C:
			if err := s.worker.ProcessPending(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic sync failed", "error", err)
			}
		case <-ratesTicker.C:
			if err := s.worker.SyncRates(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic rates refresh failed", "error", err)
			}
		}
	}
}

package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Sweeper runs CleanupUseCase on a fixed interval until stopped. A failed or panicking
// cycle is logged and skipped; the sweeper keeps running.
type Sweeper struct {
	useCase  CleanupUseCase
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeper creates a Sweeper. It does nothing until Start or Run is called. A non-positive
// interval disables sweeping.
func NewSweeper(useCase CleanupUseCase, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		useCase:  useCase,
		interval: interval,
		logger:   logger,
	}
}

// Enabled reports whether the sweeper has a positive interval.
func (s *Sweeper) Enabled() bool {
	return s.interval > 0
}

// Run sweeps every interval until ctx is cancelled. It always returns nil, and returns
// immediately when the sweeper is disabled.
func (s *Sweeper) Run(ctx context.Context) error {
	if !s.Enabled() {
		s.logger.Warn("expired token sweeper disabled", slog.Duration("interval", s.interval))
		return nil
	}

	s.logger.Info("starting expired token sweeper", slog.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping expired token sweeper")
			return nil
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// Start runs the sweeper in its own goroutine. Calling Start on a running or disabled
// sweeper is a no-op.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil || !s.Enabled() {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()
}

// Stop cancels a started sweeper and waits for its goroutine to exit.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Sweeper) sweep(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("expired token sweep panicked", slog.Any("error", fmt.Errorf("%v", r)))
		}
	}()

	count, err := s.useCase.CleanupExpired(ctx, false)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("failed to sweep expired tokens", slog.Any("error", err))
		return
	}

	s.logger.Info("expired tokens swept", slog.Int64("count", count))
}

package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// SchedulerConfig holds configuration for the refresh scheduler
type SchedulerConfig struct {
	// Interval is how often the current month is regenerated (default: 1h)
	Interval time.Duration

	// RunOnStart triggers a refresh as soon as the scheduler starts (default: true)
	RunOnStart bool
}

// DefaultSchedulerConfig returns sensible defaults
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:   time.Hour,
		RunOnStart: true,
	}
}

// Scheduler runs a task on a fixed interval until stopped.
type Scheduler struct {
	task   func(context.Context) error
	config SchedulerConfig

	mu       sync.Mutex
	running  bool
	stopping bool
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewScheduler(task func(context.Context) error, config SchedulerConfig) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultSchedulerConfig().Interval
	}
	return &Scheduler{task: task, config: config}
}

// Start begins the loop. Returns an error if already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler is already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	go s.runLoop(ctx, stopCh, doneCh)

	slog.InfoContext(ctx, "Snapshot scheduler started", "interval", s.config.Interval)
	return nil
}

// Stop signals the loop and waits for the in-flight run, bounded by ctx.
// It is safe to call again, or concurrently, after a timed-out Stop.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	if !s.stopping {
		s.stopping = true
		close(s.stopCh)
	}
	doneCh := s.doneCh
	s.mu.Unlock()

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Snapshot scheduler stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Snapshot scheduler stop timed out")
		return ctx.Err()
	}

	s.mu.Lock()
	if s.doneCh == doneCh {
		s.running = false
		s.stopping = false
	}
	s.mu.Unlock()
	return nil
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if s.config.RunOnStart {
		s.run(ctx)
	}

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.run(ctx)
		}
	}
}

func (s *Scheduler) run(ctx context.Context) {
	started := time.Now()
	if err := s.task(ctx); err != nil {
		slog.ErrorContext(ctx, "Scheduled snapshot refresh failed", "error", err)
		return
	}
	slog.DebugContext(ctx, "Scheduled snapshot refresh done", "duration_ms", time.Since(started).Milliseconds())
}

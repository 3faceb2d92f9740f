package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"networth/internal/amqp"
	"networth/internal/core"
	"networth/internal/services"
	"networth/internal/snapshot"
)

type fakeGenerator struct {
	mu        sync.Mutex
	requested [][]core.Month
	verified  []core.Month
	err       error
	verifyErr error
}

func (f *fakeGenerator) Generate(_ context.Context, months []core.Month) (*services.RunResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = append(f.requested, months)
	return &services.RunResult{RunID: "run", Requested: months, Committed: months}, f.err
}

func (f *fakeGenerator) VerifyChain(_ context.Context, from, to core.Month) error {
	f.verified = append(f.verified, from, to)
	return f.verifyErr
}

func TestHandleSnapshotRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("range is expanded", func(t *testing.T) {
		gen := &fakeGenerator{}
		w := NewSnapshotWorker(gen, nil)
		msg := amqp.NewRangeRequest(core.NewMonth(2023, time.December), core.NewMonth(2024, time.February))
		msg.Verify = true

		if err := w.HandleSnapshotRequest(ctx, msg); err != nil {
			t.Fatalf("HandleSnapshotRequest: %v", err)
		}
		if len(gen.requested) != 1 || len(gen.requested[0]) != 3 {
			t.Fatalf("unexpected generation requests %v", gen.requested)
		}
		if len(gen.verified) != 2 || gen.verified[0].String() != "2023-12" || gen.verified[1].String() != "2024-02" {
			t.Fatalf("unexpected verification %v", gen.verified)
		}
	})

	t.Run("invalid request is dropped", func(t *testing.T) {
		gen := &fakeGenerator{}
		err := NewSnapshotWorker(gen, nil).HandleSnapshotRequest(ctx, &amqp.SnapshotRequestMessage{From: "2024-02"})
		if !errors.Is(err, amqp.ErrInvalidMessage) {
			t.Fatalf("expected ErrInvalidMessage, got %v", err)
		}
		if len(gen.requested) != 0 {
			t.Fatal("generator must not run for invalid requests")
		}
	})

	t.Run("ledger data errors are not retried", func(t *testing.T) {
		m := core.NewMonth(2024, time.January)
		gen := &fakeGenerator{err: &snapshot.MonthErrors{Failed: map[core.Month]error{
			m: &core.MissingAccountError{TransactionID: "t", AccountID: "food", Side: core.SideDebit, Group: core.GroupExpenses},
		}}}
		err := NewSnapshotWorker(gen, nil).HandleSnapshotRequest(ctx, amqp.NewMonthRequest(m))
		if !errors.Is(err, amqp.ErrInvalidMessage) || !errors.Is(err, core.ErrMissingAccount) {
			t.Fatalf("expected dropped missing-account failure, got %v", err)
		}
	})

	t.Run("invalid amounts are not retried", func(t *testing.T) {
		gen := &fakeGenerator{err: fmt.Errorf("validate ledger: %w", core.ErrInvalidAmount)}
		err := NewSnapshotWorker(gen, nil).HandleSnapshotRequest(ctx, amqp.NewMonthRequest(core.NewMonth(2024, time.May)))
		if !errors.Is(err, amqp.ErrInvalidMessage) {
			t.Fatalf("expected dropped invalid-amount failure, got %v", err)
		}
	})

	t.Run("oversized requests are not retried", func(t *testing.T) {
		gen := &fakeGenerator{err: fmt.Errorf("%w: 300 months requested, limit 240", core.ErrInvalidRange)}
		err := NewSnapshotWorker(gen, nil).HandleSnapshotRequest(ctx, amqp.NewRangeRequest(core.NewMonth(2000, time.January), core.NewMonth(2024, time.December)))
		if !errors.Is(err, amqp.ErrInvalidMessage) {
			t.Fatalf("expected dropped oversized request, got %v", err)
		}
	})

	t.Run("cancelled months are retried", func(t *testing.T) {
		jan, feb := core.NewMonth(2024, time.January), core.NewMonth(2024, time.February)
		gen := &fakeGenerator{err: &snapshot.MonthErrors{Failed: map[core.Month]error{
			jan: &core.MissingAccountError{TransactionID: "t", AccountID: "food", Side: core.SideDebit, Group: core.GroupExpenses},
			feb: context.Canceled,
		}}}
		err := NewSnapshotWorker(gen, nil).HandleSnapshotRequest(ctx, amqp.NewRangeRequest(jan, feb))
		if err == nil || errors.Is(err, amqp.ErrInvalidMessage) {
			t.Fatalf("expected retryable error, got %v", err)
		}
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("cancellation should stay visible, got %v", err)
		}
	})

	t.Run("partial commits are retried", func(t *testing.T) {
		m := core.NewMonth(2024, time.January)
		gen := &fakeGenerator{err: &core.PartialBatchCommitError{Failed: []core.Month{m}, Err: errors.New("locked")}}
		err := NewSnapshotWorker(gen, nil).HandleSnapshotRequest(ctx, amqp.NewMonthRequest(m))
		var pe *core.PartialBatchCommitError
		if !errors.As(err, &pe) || errors.Is(err, amqp.ErrInvalidMessage) {
			t.Fatalf("expected retryable partial commit, got %v", err)
		}
	})

	t.Run("verification failure does not fail the request", func(t *testing.T) {
		gen := &fakeGenerator{verifyErr: services.ErrChainBroken}
		msg := amqp.NewMonthRequest(core.NewMonth(2024, time.March))
		msg.Verify = true
		if err := NewSnapshotWorker(gen, nil).HandleSnapshotRequest(ctx, msg); err != nil {
			t.Fatalf("unexpected error %v", err)
		}
	})
}

func TestRefreshCurrentMonth(t *testing.T) {
	gen := &fakeGenerator{}
	now := func() time.Time { return time.Date(2024, 7, 31, 23, 59, 0, 0, time.UTC) }
	if err := NewSnapshotWorker(gen, now).RefreshCurrentMonth(context.Background()); err != nil {
		t.Fatalf("RefreshCurrentMonth: %v", err)
	}
	if len(gen.requested) != 1 || gen.requested[0][0].String() != "2024-07" {
		t.Fatalf("unexpected request %v", gen.requested)
	}
}

func TestScheduler(t *testing.T) {
	var runs atomic.Int32
	done := make(chan struct{}, 1)
	task := func(context.Context) error {
		if runs.Add(1) == 1 {
			done <- struct{}{}
		}
		return nil
	}
	s := NewScheduler(task, SchedulerConfig{Interval: time.Hour, RunOnStart: true})

	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(ctx); err == nil {
		t.Fatal("expected error when starting a running scheduler")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run on start")
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if s.IsRunning() {
		t.Fatal("scheduler should not be running after Stop")
	}
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestSchedulerStopAfterTimeout(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	task := func(context.Context) error {
		close(started)
		<-release
		return nil
	}
	s := NewScheduler(task, SchedulerConfig{Interval: time.Hour, RunOnStart: true})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-started

	short, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := s.Stop(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected timeout while the task blocks, got %v", err)
	}
	if !s.IsRunning() {
		t.Fatal("scheduler must still report running while the task is in flight")
	}

	// concurrent retries must not close the stop channel again
	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			errs <- s.Stop(ctx)
		}()
	}
	close(release)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Stop: %v", err)
		}
	}
	if s.IsRunning() {
		t.Fatal("scheduler should not be running after Stop")
	}
}

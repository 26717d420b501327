package retention

import (
	"context"
	"testing"
	"time"
)

func TestSchedulerStart(t *testing.T) {
	tests := []struct {
		name        string
		schedule    string
		wantRunning bool
		wantError   bool
	}{
		{name: "valid daily schedule", schedule: "0 3 * * *", wantRunning: true, wantError: false},
		{name: "valid hourly schedule", schedule: "0 * * * *", wantRunning: true, wantError: false},
		{name: "empty schedule disables without error", schedule: "", wantRunning: false, wantError: false},
		{name: "invalid schedule", schedule: "invalid cron", wantRunning: false, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := openTestLedger(t)
			p := NewPruner(l, Config{Schedule: tt.schedule, ReceiptRetentionDays: 90})
			s := p.scheduler

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			err := s.Start(ctx)
			if (err != nil) != tt.wantError {
				t.Errorf("Start() error = %v, wantError %v", err, tt.wantError)
			}
			if s.IsRunning() != tt.wantRunning {
				t.Errorf("IsRunning() = %v, want %v", s.IsRunning(), tt.wantRunning)
			}
			if tt.wantRunning && s.NextRun() == nil {
				t.Error("NextRun() returned nil for a running scheduler")
			}

			s.Stop()
			if s.IsRunning() {
				t.Error("scheduler still running after Stop()")
			}
		})
	}
}

func TestSchedulerGracefulShutdownOnContextCancel(t *testing.T) {
	l := openTestLedger(t)
	p := NewPruner(l, Config{Schedule: "0 3 * * *", ReceiptRetentionDays: 90})
	s := p.scheduler

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	cancel()
	time.Sleep(100 * time.Millisecond)

	if s.IsRunning() {
		t.Error("scheduler still running after context cancellation")
	}
}

func TestSchedulerNextRunNilBeforeStart(t *testing.T) {
	l := openTestLedger(t)
	p := NewPruner(l, Config{Schedule: "0 3 * * *", ReceiptRetentionDays: 90})
	s := p.scheduler

	if next := s.NextRun(); next != nil {
		t.Errorf("NextRun() before Start() = %v, want nil", next)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	next := s.NextRun()
	if next == nil {
		t.Fatal("NextRun() after Start() returned nil")
	}
	if !next.After(time.Now()) {
		t.Errorf("NextRun() = %v, want a time in the future", next)
	}
}

func TestPrunerStartStopDelegatesToScheduler(t *testing.T) {
	l := openTestLedger(t)
	p := NewPruner(l, Config{Schedule: "0 3 * * *", ReceiptRetentionDays: 90})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !p.scheduler.IsRunning() {
		t.Error("scheduler not running after Pruner.Start()")
	}
	if p.NextPruning() == nil {
		t.Error("NextPruning() returned nil")
	}

	p.Stop()
	if p.scheduler.IsRunning() {
		t.Error("scheduler still running after Pruner.Stop()")
	}
}

func TestSchedulerRunPruningInvokesPrune(t *testing.T) {
	l := openTestLedger(t)
	insertReceiptAt(t, l, "stale", 100*24*time.Hour)

	p := NewPruner(l, Config{Schedule: "0 3 * * *", ReceiptRetentionDays: 90})
	p.scheduler.runPruning(context.Background())

	if r, _ := l.GetReceipt("stale"); r != nil {
		t.Error("stale receipt should have been pruned by runPruning")
	}
}

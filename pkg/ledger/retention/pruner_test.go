package retention

import (
	"context"
	"testing"
	"time"

	"github.com/ik-labs/route-pilot/pkg/ledger"
)

func openTestLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	l, err := ledger.Open(":memory:")
	if err != nil {
		t.Fatalf("ledger.Open() error = %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func insertReceiptAt(t *testing.T, l *ledger.Ledger, id string, age time.Duration) {
	t.Helper()
	ts := time.Now().UTC().Add(-age).Format(time.RFC3339Nano)
	if err := l.InsertReceipt(&ledger.Receipt{ID: id, TS: ts, Policy: "p", RouteFinal: "m"}); err != nil {
		t.Fatalf("InsertReceipt(%s) error = %v", id, err)
	}
}

func insertTraceAt(t *testing.T, l *ledger.Ledger, age time.Duration) {
	t.Helper()
	ts := time.Now().UTC().Add(-age).Format(time.RFC3339Nano)
	if err := l.InsertTrace(&ledger.Trace{TS: ts, Policy: "p", RouteFinal: "m"}); err != nil {
		t.Fatalf("InsertTrace() error = %v", err)
	}
}

func TestPrunePruneOldReceipts(t *testing.T) {
	l := openTestLedger(t)
	insertReceiptAt(t, l, "old-1", 10*24*time.Hour)
	insertReceiptAt(t, l, "old-2", 8*24*time.Hour)
	insertReceiptAt(t, l, "recent-1", 5*24*time.Hour)
	insertReceiptAt(t, l, "recent-2", 3*24*time.Hour)

	config := Config{ReceiptRetentionDays: 7}
	p := NewPruner(l, config)

	deleted, err := p.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	if r, _ := l.GetReceipt("old-1"); r != nil {
		t.Error("old-1 should have been pruned")
	}
	if r, _ := l.GetReceipt("recent-1"); r == nil {
		t.Error("recent-1 should have survived pruning")
	}
}

func TestPruneSkipsReceiptsWhenRetentionIsZero(t *testing.T) {
	l := openTestLedger(t)
	insertReceiptAt(t, l, "very-old", 100*24*time.Hour)

	p := NewPruner(l, Config{ReceiptRetentionDays: 0})
	deleted, err := p.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted = %d, want 0 when retention is disabled", deleted)
	}
	if r, _ := l.GetReceipt("very-old"); r == nil {
		t.Error("very-old receipt should remain when retention is disabled")
	}
}

func TestPruneRemovesOldTracesIndependentlyOfReceipts(t *testing.T) {
	l := openTestLedger(t)
	insertTraceAt(t, l, 20*24*time.Hour)
	insertTraceAt(t, l, 1*24*time.Hour)
	insertReceiptAt(t, l, "keep", 1*time.Hour)

	p := NewPruner(l, Config{TraceRetentionDays: 14})
	deleted, err := p.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1 trace", deleted)
	}
	if r, _ := l.GetReceipt("keep"); r == nil {
		t.Error("receipt pruning must not be affected by trace retention")
	}

	samples, err := l.RecentLatencies("m", 10)
	if err != nil {
		t.Fatalf("RecentLatencies() error = %v", err)
	}
	if len(samples) != 1 {
		t.Errorf("remaining trace samples = %d, want 1", len(samples))
	}
}

func TestPruneBothRetentionWindowsTogether(t *testing.T) {
	l := openTestLedger(t)
	insertReceiptAt(t, l, "old-receipt", 100*24*time.Hour)
	insertReceiptAt(t, l, "new-receipt", time.Hour)
	insertTraceAt(t, l, 20*24*time.Hour)
	insertTraceAt(t, l, time.Hour)

	p := NewPruner(l, Config{ReceiptRetentionDays: 90, TraceRetentionDays: 14})
	deleted, err := p.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2 (one receipt, one trace)", deleted)
	}
}

func TestPruneOnEmptyLedgerDeletesNothing(t *testing.T) {
	l := openTestLedger(t)
	p := NewPruner(l, DefaultConfig())

	deleted, err := p.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted = %d, want 0 on an empty ledger", deleted)
	}
}

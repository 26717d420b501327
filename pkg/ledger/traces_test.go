package ledger

import "testing"

func insertTraces(t *testing.T, l *Ledger, model string, latencies []int) {
	t.Helper()
	for _, ms := range latencies {
		if err := l.InsertTrace(&Trace{Policy: "default", RoutePrimary: model, RouteFinal: model, LatencyMs: ms, Tokens: 100}); err != nil {
			t.Fatalf("InsertTrace() error = %v", err)
		}
	}
}

func TestP95BelowSampleFloorIsNotOK(t *testing.T) {
	l := openTestLedger(t)
	insertTraces(t, l, "m", []int{100, 200, 300})

	_, ok, err := l.P95("m", 50)
	if err != nil {
		t.Fatalf("P95() error = %v", err)
	}
	if ok {
		t.Error("P95() should not be ok with fewer than 10 samples")
	}
}

func TestP95WithEnoughSamples(t *testing.T) {
	l := openTestLedger(t)
	latencies := make([]int, 20)
	for i := range latencies {
		latencies[i] = (i + 1) * 10 // 10..200
	}
	insertTraces(t, l, "m", latencies)

	p95, ok, err := l.P95("m", 50)
	if err != nil {
		t.Fatalf("P95() error = %v", err)
	}
	if !ok {
		t.Fatal("P95() should be ok with 20 samples")
	}
	// sorted_asc[floor(0.95*(20-1))] = sorted_asc[18] = 190.
	if p95 != 190 {
		t.Errorf("p95 = %d, want 190", p95)
	}
}

func TestP95IndexIsFloorNotRoundHalfUp(t *testing.T) {
	l := openTestLedger(t)
	latencies := make([]int, 10)
	for i := range latencies {
		latencies[i] = (i + 1) * 10 // 10..100
	}
	insertTraces(t, l, "m", latencies)

	p95, ok, err := l.P95("m", 50)
	if err != nil {
		t.Fatalf("P95() error = %v", err)
	}
	if !ok {
		t.Fatal("P95() should be ok with 10 samples")
	}
	// sorted_asc[floor(0.95*(10-1))] = sorted_asc[8] = 90, not sorted_asc[9] = 100.
	if p95 != 90 {
		t.Errorf("p95 = %d, want 90 (floor(0.95*9)=8 -> sorted[8])", p95)
	}
}

func TestP95WindowLimitsSampleCount(t *testing.T) {
	l := openTestLedger(t)
	// 30 samples, but window of 10 should only see the most recent 10.
	latencies := make([]int, 30)
	for i := range latencies {
		latencies[i] = 1000 // old, high latency
	}
	insertTraces(t, l, "m", latencies)
	insertTraces(t, l, "m", make([]int, 10)) // 10 more, all 0ms, most recent

	p95, ok, err := l.P95("m", 10)
	if err != nil {
		t.Fatalf("P95() error = %v", err)
	}
	if !ok {
		t.Fatal("expected ok with window of 10 samples")
	}
	if p95 != 0 {
		t.Errorf("p95 = %d, want 0 (window should only see the most recent 10 zero-latency samples)", p95)
	}
}

package rates

import "testing"

func TestLookupFallsBackToDefault(t *testing.T) {
	tbl := New(nil)
	r := tbl.Lookup("some-unknown-model")
	if r != defaultRate {
		t.Errorf("Lookup(unknown) = %+v, want default %+v", r, defaultRate)
	}
}

func TestLookupPrefersOverride(t *testing.T) {
	tbl := New(map[string]Rate{"gpt-4o": {Input: 1, Output: 2}})
	r := tbl.Lookup("gpt-4o")
	if r.Input != 1 || r.Output != 2 {
		t.Errorf("Lookup(gpt-4o) = %+v, want override", r)
	}
}

func TestLookupUsesBuiltinWhenNoOverride(t *testing.T) {
	tbl := New(nil)
	r := tbl.Lookup("gpt-4o")
	if r.Input != 2.5 {
		t.Errorf("Lookup(gpt-4o).Input = %v, want 2.5", r.Input)
	}
}

func TestEstimateCost(t *testing.T) {
	tbl := New(map[string]Rate{"m": {Input: 1.0, Output: 2.0}})
	got := tbl.EstimateCost("m", 1000, 500)
	want := (1000.0*1.0 + 500.0*2.0) / 1000.0
	if got != want {
		t.Errorf("EstimateCost() = %v, want %v", got, want)
	}
}

package policy

import "testing"

func TestHashDeterministicForEqualPolicies(t *testing.T) {
	a := validPolicy()
	b := validPolicy()

	ha, err := Hash(a)
	if err != nil {
		t.Fatalf("Hash(a) error = %v", err)
	}
	hb, err := Hash(b)
	if err != nil {
		t.Fatalf("Hash(b) error = %v", err)
	}
	if ha != hb {
		t.Errorf("Hash() = %q and %q, want equal for structurally identical policies", ha, hb)
	}
}

func TestHashChangesWithContent(t *testing.T) {
	a := validPolicy()
	b := validPolicy()
	b.Strategy.MaxAttempts = 9

	ha, _ := Hash(a)
	hb, _ := Hash(b)
	if ha == hb {
		t.Error("Hash() should differ when policy content differs")
	}
}

func TestHashStableAcrossParamsMapOrdering(t *testing.T) {
	a := validPolicy()
	a.Routing.Primary = []string{"m1", "m2"}
	a.Routing.Params = map[string]*GenParams{
		"m1": {System: "one"},
		"m2": {System: "two"},
	}

	b := validPolicy()
	b.Routing.Primary = []string{"m1", "m2"}
	b.Routing.Params = map[string]*GenParams{
		"m2": {System: "two"},
		"m1": {System: "one"},
	}

	ha, err := Hash(a)
	if err != nil {
		t.Fatalf("Hash(a) error = %v", err)
	}
	hb, err := Hash(b)
	if err != nil {
		t.Fatalf("Hash(b) error = %v", err)
	}
	if ha != hb {
		t.Error("Hash() should be stable regardless of map insertion order")
	}
}

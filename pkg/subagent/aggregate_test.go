package subagent

import "testing"

func TestAggregateUnionsAndDedupesByID(t *testing.T) {
	a := map[string]any{"records": []any{
		map[string]any{"id": "2", "title": "second"},
		map[string]any{"id": "1", "title": "first"},
	}}
	b := map[string]any{"records": []any{
		map[string]any{"id": "1", "summary": "extra detail"},
	}}

	got := Aggregate(a, b)
	records, ok := got["records"].([]any)
	if !ok || len(records) != 2 {
		t.Fatalf("records = %v, want 2 deduped entries", got["records"])
	}

	first := records[0].(map[string]any)
	if first["id"] != "1" {
		t.Errorf("records[0].id = %v, want 1 (ascending sort)", first["id"])
	}
	if first["title"] != "first" || first["summary"] != "extra detail" {
		t.Errorf("records[0] = %v, want the shallow-merged survivor", first)
	}

	second := records[1].(map[string]any)
	if second["id"] != "2" {
		t.Errorf("records[1].id = %v, want 2", second["id"])
	}
}

func TestAggregateKeepsMorePopulatedSurvivor(t *testing.T) {
	a := map[string]any{"records": []any{map[string]any{"id": "1"}}}
	b := map[string]any{"records": []any{map[string]any{"id": "1", "title": "t", "body": "b"}}}

	got := Aggregate(a, b)
	records := got["records"].([]any)
	survivor := records[0].(map[string]any)
	if survivor["title"] != "t" || survivor["body"] != "b" {
		t.Errorf("survivor = %v, want the more-populated record to win", survivor)
	}
}

func TestAggregateSortsMissingIDsByJSONStringOrder(t *testing.T) {
	a := map[string]any{"records": []any{
		map[string]any{"zeta": "z"},
		map[string]any{"alpha": "a"},
	}}
	got := Aggregate(a)
	records := got["records"].([]any)
	if len(records) != 2 {
		t.Fatalf("records = %v, want 2", got["records"])
	}
	if _, ok := records[0].(map[string]any)["alpha"]; !ok {
		t.Errorf("records[0] = %v, want the alpha-keyed record first", records[0])
	}
}

func TestAggregateIsIdempotent(t *testing.T) {
	a := map[string]any{"records": []any{
		map[string]any{"id": "2"},
		map[string]any{"id": "1"},
	}}
	once := Aggregate(a)
	twice := Aggregate(once)

	onceRecords := once["records"].([]any)
	twiceRecords := twice["records"].([]any)
	if len(onceRecords) != len(twiceRecords) {
		t.Fatalf("len mismatch: once=%d twice=%d", len(onceRecords), len(twiceRecords))
	}
	for i := range onceRecords {
		a := onceRecords[i].(map[string]any)
		b := twiceRecords[i].(map[string]any)
		if a["id"] != b["id"] {
			t.Errorf("record %d id mismatch: %v vs %v", i, a["id"], b["id"])
		}
	}
}

func TestAggregateEmptyBranchesYieldsEmptyRecords(t *testing.T) {
	got := Aggregate()
	records, ok := got["records"].([]any)
	if !ok || len(records) != 0 {
		t.Errorf("records = %v, want an empty slice", got["records"])
	}
}

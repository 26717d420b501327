package subagent

import "testing"

func TestExtractLastBalancedJSONSimple(t *testing.T) {
	got, err := ExtractLastBalancedJSON(`{"records":[{"id":"1"}]}`)
	if err != nil {
		t.Fatalf("ExtractLastBalancedJSON error = %v", err)
	}
	records, ok := got["records"].([]any)
	if !ok || len(records) != 1 {
		t.Errorf("records = %v, want one entry", got["records"])
	}
}

func TestExtractLastBalancedJSONTakesLastOfMultiple(t *testing.T) {
	s := `Here is a draft: {"draft":"first"} actually let me redo that: {"draft":"final"}`
	got, err := ExtractLastBalancedJSON(s)
	if err != nil {
		t.Fatalf("ExtractLastBalancedJSON error = %v", err)
	}
	if got["draft"] != "final" {
		t.Errorf("draft = %v, want final", got["draft"])
	}
}

func TestExtractLastBalancedJSONSkipsUnbalancedTrailer(t *testing.T) {
	s := `{"records":[{"id":"1"}]} and then an unclosed one: {"oops"`
	got, err := ExtractLastBalancedJSON(s)
	if err != nil {
		t.Fatalf("ExtractLastBalancedJSON error = %v", err)
	}
	if _, ok := got["records"]; !ok {
		t.Errorf("got = %v, want the balanced records object", got)
	}
}

func TestExtractLastBalancedJSONNoObjectFails(t *testing.T) {
	if _, err := ExtractLastBalancedJSON("no json here at all"); err == nil {
		t.Error("expected an error when no balanced JSON object is present")
	}
}

func TestExtractLastBalancedJSONIgnoresTrailingGarbageAfterValidObject(t *testing.T) {
	got, err := ExtractLastBalancedJSON(`{"draft":"ok"} <-- done`)
	if err != nil {
		t.Fatalf("ExtractLastBalancedJSON error = %v", err)
	}
	if got["draft"] != "ok" {
		t.Errorf("draft = %v, want ok", got["draft"])
	}
}

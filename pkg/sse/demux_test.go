package sse

import (
	"strings"
	"testing"
)

const twoDeltas = "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n\n" +
	"data: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}\n\ndata: [DONE]\n\n"

func TestForwardWritesToWriter(t *testing.T) {
	var w strings.Builder
	if err := Forward(strings.NewReader(twoDeltas), &w, nil); err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	if w.String() != "ab" {
		t.Errorf("got %q, want %q", w.String(), "ab")
	}
}

func TestBufferedCapturesAndForwards(t *testing.T) {
	var w strings.Builder
	captured, err := Buffered(strings.NewReader(twoDeltas), &w, nil)
	if err != nil {
		t.Fatalf("Buffered() error = %v", err)
	}
	if captured != "ab" || w.String() != "ab" {
		t.Errorf("captured = %q, forwarded = %q, want both %q", captured, w.String(), "ab")
	}
}

func TestSilentCapturesWithoutForwarding(t *testing.T) {
	captured, err := Silent(strings.NewReader(twoDeltas), nil)
	if err != nil {
		t.Fatalf("Silent() error = %v", err)
	}
	if captured != "ab" {
		t.Errorf("captured = %q, want %q", captured, "ab")
	}
}

package sse

import (
	"strings"
	"testing"
)

func TestDemuxDeltaContent(t *testing.T) {
	body := strings.NewReader(
		"data: {\"choices\":[{\"delta\":{\"content\":\"Hi \"}}]}\n\n" +
			"data: {\"choices\":[{\"delta\":{\"content\":\"there\"}}]}\n\n" +
			"data: [DONE]\n\n",
	)

	var got strings.Builder
	firstCalls := 0
	err := Demux(body, func() { firstCalls++ }, func(delta string) {
		got.WriteString(delta)
	})
	if err != nil {
		t.Fatalf("Demux() error = %v", err)
	}
	if got.String() != "Hi there" {
		t.Errorf("got %q, want %q", got.String(), "Hi there")
	}
	if firstCalls != 1 {
		t.Errorf("onFirst called %d times, want 1", firstCalls)
	}
}

func TestDemuxLegacyTextField(t *testing.T) {
	body := strings.NewReader("data: {\"choices\":[{\"text\":\"legacy\"}]}\n\ndata: [DONE]\n\n")

	var got strings.Builder
	err := Demux(body, nil, func(delta string) { got.WriteString(delta) })
	if err != nil {
		t.Fatalf("Demux() error = %v", err)
	}
	if got.String() != "legacy" {
		t.Errorf("got %q, want %q", got.String(), "legacy")
	}
}

func TestDemuxSkipsMalformedFrames(t *testing.T) {
	body := strings.NewReader(
		"data: {not json}\n\n" +
			"data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n\n" +
			"data: [DONE]\n\n",
	)

	var got strings.Builder
	err := Demux(body, nil, func(delta string) { got.WriteString(delta) })
	if err != nil {
		t.Fatalf("Demux() error = %v", err)
	}
	if got.String() != "ok" {
		t.Errorf("got %q, want %q (malformed frame should be skipped)", got.String(), "ok")
	}
}

func TestDemuxIgnoresNonDataLines(t *testing.T) {
	body := strings.NewReader(
		"event: ping\n\n" +
			"data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n\n" +
			"data: [DONE]\n\n",
	)

	var got strings.Builder
	err := Demux(body, nil, func(delta string) { got.WriteString(delta) })
	if err != nil {
		t.Fatalf("Demux() error = %v", err)
	}
	if got.String() != "x" {
		t.Errorf("got %q, want %q", got.String(), "x")
	}
}

func TestDemuxNoDeltasNoFirstCall(t *testing.T) {
	body := strings.NewReader("data: [DONE]\n\n")

	calls := 0
	err := Demux(body, func() { calls++ }, func(string) {})
	if err != nil {
		t.Fatalf("Demux() error = %v", err)
	}
	if calls != 0 {
		t.Errorf("onFirst called %d times, want 0 for a stream with no content", calls)
	}
}

func TestDemuxEOFWithoutDoneSentinel(t *testing.T) {
	body := strings.NewReader("data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n")

	var got strings.Builder
	err := Demux(body, nil, func(delta string) { got.WriteString(delta) })
	if err != nil {
		t.Fatalf("Demux() error = %v", err)
	}
	if got.String() != "partial" {
		t.Errorf("got %q, want %q", got.String(), "partial")
	}
}

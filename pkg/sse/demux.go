package sse

import (
	"io"
	"strings"
)

// Forward streams deltas directly to w as they arrive, calling onFirst once
// before the first write.
func Forward(body io.Reader, w io.Writer, onFirst func()) error {
	return Demux(body, onFirst, func(delta string) {
		_, _ = io.WriteString(w, delta)
	})
}

// Buffered streams deltas to w while also accumulating them, returning the
// full captured text once the stream ends.
func Buffered(body io.Reader, w io.Writer, onFirst func()) (string, error) {
	var sb strings.Builder
	err := Demux(body, onFirst, func(delta string) {
		sb.WriteString(delta)
		_, _ = io.WriteString(w, delta)
	})
	return sb.String(), err
}

// Silent captures the full stream into a string without forwarding it
// anywhere.
func Silent(body io.Reader, onFirst func()) (string, error) {
	var sb strings.Builder
	err := Demux(body, onFirst, func(delta string) {
		sb.WriteString(delta)
	})
	return sb.String(), err
}

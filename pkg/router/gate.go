package router

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"
)

// gatedSink buffers writes until its gate opens, then flushes the buffer
// and forwards every subsequent write directly: output is withheld for up
// to G ms so a late stall can be reclassified without tearing
// already-shown output.
type gatedSink struct {
	mu     sync.Mutex
	real   io.Writer
	buf    strings.Builder
	open   bool
	closed bool // true once discard() has been called; further writes are dropped
}

func newGatedSink(real io.Writer) *gatedSink {
	return &gatedSink{real: real}
}

func (g *gatedSink) Write(p []byte) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return len(p), nil
	}
	if g.open {
		return g.real.Write(p)
	}
	g.buf.Write(p)
	return len(p), nil
}

// flush opens the gate, writing any buffered content to real.
func (g *gatedSink) flush() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.open || g.closed {
		return
	}
	g.open = true
	if g.buf.Len() > 0 {
		_, _ = g.real.Write([]byte(g.buf.String()))
		g.buf.Reset()
	}
}

// discard permanently drops buffered content and any future writes —
// used when the attempt that produced them fails.
func (g *gatedSink) discard() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	g.buf.Reset()
}

// runGate starts the gate timer: after gateMs the sink's buffer is flushed
// to the real writer, unless ctx is cancelled first (in which case the
// caller is responsible for discarding via gatedSink.discard).
func runGate(ctx context.Context, sink *gatedSink, gateMs int) {
	if gateMs <= 0 {
		sink.flush()
		return
	}
	go func() {
		select {
		case <-time.After(time.Duration(gateMs) * time.Millisecond):
			sink.flush()
		case <-ctx.Done():
		}
	}()
}

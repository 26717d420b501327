package cli

import (
	"testing"
	"time"
)

func TestSetupSignalHandler(t *testing.T) {
	ctx := SetupSignalHandler()

	select {
	case <-ctx.Done():
		t.Error("context should not be cancelled initially")
	default:
	}

	if ctx.Done() == nil {
		t.Error("context should have a Done channel")
	}
}

func TestSetupSignalHandlerStaysActive(t *testing.T) {
	ctx := SetupSignalHandler()

	select {
	case <-ctx.Done():
		t.Error("context cancelled too early")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestContextCancellationFlow(t *testing.T) {
	ctx := SetupSignalHandler()
	done := make(chan bool)

	go func() {
		<-ctx.Done()
		done <- true
	}()

	select {
	case <-done:
		t.Error("should not be done yet")
	case <-time.After(10 * time.Millisecond):
	}
}

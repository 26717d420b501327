package router

import (
	"time"

	"github.com/ik-labs/route-pilot/pkg/apperrors"
)

// Flags are the chaos-injection switches, read once at startup into
// config.Config and threaded explicitly here rather than read from
// os.Getenv inside the attempt loop.
type Flags struct {
	PrimaryStall bool
	HTTP5xx      bool
}

// inject fires the configured chaos behavior when attempting the primary
// model. It returns a non-nil error (and true) when chaos should short
// the attempt instead of placing the real gateway call.
func (f Flags) inject(model string, isPrimary bool, stallMs int) (error, bool) {
	if !isPrimary {
		return nil, false
	}
	if f.PrimaryStall {
		time.Sleep(time.Duration(stallMs+50) * time.Millisecond)
		return errChaosStall, true
	}
	if f.HTTP5xx {
		return apperrors.NewGatewayError(503, "chaos: synthetic 503"), true
	}
	return nil, false
}

var errChaosStall = &stallError{msg: "chaos: synthetic stall"}

type stallError struct{ msg string }

func (e *stallError) Error() string { return e.msg }

package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/ik-labs/route-pilot/pkg/apperrors"
)

// classify maps an attempt failure to its reason tag: "stall" for
// stall-timer cancellation, "rate_limit" for HTTP 429, "5xx"
// for HTTP >= 500, "http_<code>" for any other HTTP status, else "error".
func classify(err error, stalled bool) string {
	var se *stallError
	if stalled || errors.Is(err, context.DeadlineExceeded) || errors.As(err, &se) {
		return "stall"
	}
	var gwErr *apperrors.GatewayError
	if errors.As(err, &gwErr) {
		switch {
		case gwErr.Status == 429:
			return "rate_limit"
		case gwErr.Status >= 500:
			return "5xx"
		default:
			return fmt.Sprintf("http_%d", gwErr.Status)
		}
	}
	return "error"
}

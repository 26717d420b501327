package apperrors

import "testing"

func TestExitCodeMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{NewConfigError("AI_GATEWAY_API_KEY", "missing"), ExitConfig},
		{NewPolicyError("default", []Issue{{Path: "routing.primary", Message: "must have length >= 1"}}), ExitPolicy},
		{NewRPMQuotaError(60), ExitQuota},
		{NewDailyQuotaError(500, "2026-08-03"), ExitQuota},
		{NewGatewayError(503, "Service Unavailable"), ExitGateway},
		{NewRouterError([]AttemptError{{Model: "a", Message: "stall"}}), ExitRouter},
		{NewUnknownError(nil), ExitUnknown},
	}

	for _, c := range cases {
		if got := ExitCode(c.err); got != c.want {
			t.Errorf("ExitCode(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestGatewayErrorTruncatesBody(t *testing.T) {
	long := make([]byte, 1000)
	for i := range long {
		long[i] = 'x'
	}
	err := NewGatewayError(500, string(long))
	if len(err.Body) != 300 {
		t.Errorf("Body length = %d, want 300", len(err.Body))
	}
}

func TestQuotaErrorMessages(t *testing.T) {
	rpm := NewRPMQuotaError(10)
	if rpm.Kind != "rpm" {
		t.Errorf("Kind = %q, want rpm", rpm.Kind)
	}
	daily := NewDailyQuotaError(500, "2026-08-03")
	if daily.When != "2026-08-03" {
		t.Errorf("When = %q, want 2026-08-03", daily.When)
	}
	if daily.Error() == "" {
		t.Error("Error() should not be empty")
	}
}

func TestPolicyErrorFormatsIssues(t *testing.T) {
	err := NewPolicyError("p1", []Issue{
		{Path: "routing.primary", Message: "required"},
		{Path: "tenancy.timezone", Message: "unknown IANA zone"},
	})
	msg := err.Error()
	if msg == "" {
		t.Fatal("Error() should not be empty")
	}
}

func TestUnknownErrorUnwrap(t *testing.T) {
	cause := NewConfigError("x", "y")
	err := NewUnknownError(cause)
	if err.Unwrap() != cause {
		t.Error("Unwrap should return the original cause")
	}
}

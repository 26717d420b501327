package policy

import (
	"fmt"
	"time"

	"github.com/ik-labs/route-pilot/pkg/apperrors"
)

// Validate checks p against its structural and semantic invariants,
// returning an *apperrors.PolicyError listing every issue found (not just
// the first) so an operator can fix a policy file in one pass.
func Validate(p *Policy) error {
	var issues []apperrors.Issue

	if len(p.Routing.Primary) < 1 {
		issues = append(issues, apperrors.Issue{
			Path: "routing.primary", Message: "must have length >= 1",
		})
	}
	if p.Routing.P95WindowN < 0 {
		issues = append(issues, apperrors.Issue{
			Path: "routing.p95_window_n", Message: "must be >= 0",
		})
	}

	if p.Strategy.MaxAttempts < 1 {
		issues = append(issues, apperrors.Issue{
			Path: "strategy.max_attempts", Message: "must be >= 1",
		})
	}
	if p.Strategy.FallbackOnLatencyMs < 0 {
		issues = append(issues, apperrors.Issue{
			Path: "strategy.fallback_on_latency_ms", Message: "must be >= 0",
		})
	}
	if len(p.Strategy.BackoffMs) == 0 {
		issues = append(issues, apperrors.Issue{
			Path: "strategy.backoff_ms", Message: "must have at least one entry",
		})
	}
	for i, ms := range p.Strategy.BackoffMs {
		if ms < 0 {
			issues = append(issues, apperrors.Issue{
				Path: fmt.Sprintf("strategy.backoff_ms[%d]", i), Message: "must be >= 0",
			})
		}
	}
	if p.Strategy.FirstChunkGateMs < 0 {
		issues = append(issues, apperrors.Issue{
			Path: "strategy.first_chunk_gate_ms", Message: "must be >= 0",
		})
	}
	if p.Strategy.EscalateAfterFallbacks < 0 {
		issues = append(issues, apperrors.Issue{
			Path: "strategy.escalate_after_fallbacks", Message: "must be >= 0",
		})
	}

	if p.Tenancy.PerUserDailyTokens < 0 {
		issues = append(issues, apperrors.Issue{
			Path: "tenancy.per_user_daily_tokens", Message: "must be >= 0",
		})
	}
	if p.Tenancy.PerUserRPM < 0 {
		issues = append(issues, apperrors.Issue{
			Path: "tenancy.per_user_rpm", Message: "must be >= 0",
		})
	}
	if p.Tenancy.Timezone == "" {
		issues = append(issues, apperrors.Issue{
			Path: "tenancy.timezone", Message: "required (IANA zone name)",
		})
	} else if _, err := time.LoadLocation(p.Tenancy.Timezone); err != nil {
		issues = append(issues, apperrors.Issue{
			Path: "tenancy.timezone", Message: fmt.Sprintf("not a valid IANA zone: %v", err),
		})
	}

	for model := range p.Routing.Params {
		found := false
		for _, m := range p.Routing.Primary {
			if m == model {
				found = true
				break
			}
		}
		for _, m := range p.Routing.Backups {
			if m == model {
				found = true
				break
			}
		}
		if !found {
			issues = append(issues, apperrors.Issue{
				Path:    fmt.Sprintf("routing.params[%s]", model),
				Message: "references a model not present in primary or backups",
			})
		}
	}

	if len(issues) > 0 {
		return apperrors.NewPolicyError(p.Name, issues)
	}
	return nil
}

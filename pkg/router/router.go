package router

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/ik-labs/route-pilot/pkg/apperrors"
	"github.com/ik-labs/route-pilot/pkg/gateway"
	"github.com/ik-labs/route-pilot/pkg/ledger"
	"github.com/ik-labs/route-pilot/pkg/policy"
	"github.com/ik-labs/route-pilot/pkg/sse"
	"github.com/ik-labs/route-pilot/pkg/telemetry/metrics"
)

// Supervisor is the streaming failover supervisor.
type Supervisor struct {
	gw      *gateway.Client
	ledger  *ledger.Ledger
	metrics *metrics.Router
	chaos   Flags
}

// New builds a Supervisor. metrics may be nil.
func New(gw *gateway.Client, l *ledger.Ledger, m *metrics.Router, chaos Flags) *Supervisor {
	return &Supervisor{gw: gw, ledger: l, metrics: m, chaos: chaos}
}

// Args is everything one Run call needs, assembled from a resolved Policy
// by the calling driver.
type Args struct {
	Plan                   Plan
	TargetP95Ms            int
	P95WindowN             int
	Messages               []gateway.Message
	MaxTokens              int
	FallbackOnLatencyMs    int
	MaxAttempts            int
	Strategy               policy.Strategy
	FirstChunkGateMs       int
	EscalateAfterFallbacks int
	Gen                    *policy.GenParams
	PerModelParams         map[string]*policy.GenParams
	Sink                   io.Writer
	// Escalate, if non-nil, is called once fallbackCount reaches
	// EscalateAfterFallbacks: an operator-visible notification channel
	// that exists outside the returned Result.
	Escalate func(fallbackCount int, model string)
}

// Result is the filled-in outcome of one Run call.
type Result struct {
	RouteFinal       string
	FallbackCount    int
	LatencyMs        int
	FirstTokenMs     *int
	Reasons          []string
	UsagePromptTokens     int // -1 if not reported
	UsageCompletionTokens int // -1 if not reported
}

// Run walks the route ladder, returning the filled Result on the first
// attempt that produces a first delta, or an aggregated *apperrors.RouterError
// when the ladder is exhausted.
func (s *Supervisor) Run(ctx context.Context, args Args) (*Result, error) {
	start := time.Now()

	ladder, err := buildLadder(s.ledger, args.Plan, args.TargetP95Ms, args.P95WindowN)
	if err != nil {
		return nil, err
	}

	var attempts []apperrors.AttemptError
	var reasons []string
	fallbackCount := 0

	maxAttempts := args.MaxAttempts
	if maxAttempts <= 0 || maxAttempts > len(ladder) {
		maxAttempts = len(ladder)
	}

	for i := 0; i < maxAttempts && i < len(ladder); i++ {
		model := ladder[i]
		isPrimary := len(args.Plan.Primary) > 0 && model == args.Plan.Primary[0]

		firstTokenMs, usagePrompt, usageCompletion, attemptErr := s.attempt(ctx, model, isPrimary, args)
		if attemptErr == nil {
			reason := "ok"
			if s.metrics != nil {
				s.metrics.RecordAttempt(model, reason)
			}
			slog.Info("router attempt succeeded", "model", model, "fallback_count", fallbackCount)
			return &Result{
				RouteFinal:            model,
				FallbackCount:         fallbackCount,
				LatencyMs:             int(time.Since(start).Milliseconds()),
				FirstTokenMs:          firstTokenMs,
				Reasons:               reasons,
				UsagePromptTokens:     usagePrompt,
				UsageCompletionTokens: usageCompletion,
			}, nil
		}

		reason := classify(attemptErr, isStallError(attemptErr))
		reasons = append(reasons, reason)
		fallbackCount++

		var status int
		if gwErr, ok := attemptErr.(*apperrors.GatewayError); ok {
			status = gwErr.Status
		}
		attempts = append(attempts, apperrors.AttemptError{Model: model, Message: attemptErr.Error(), Status: status})

		if s.metrics != nil {
			s.metrics.RecordAttempt(model, reason)
			s.metrics.RecordFallback()
		}
		slog.Warn("router attempt failed, falling back", "model", model, "reason", reason, "fallback_count", fallbackCount)

		if args.EscalateAfterFallbacks > 0 && fallbackCount >= args.EscalateAfterFallbacks {
			slog.Warn("router escalation threshold reached", "fallback_count", fallbackCount, "model", model)
			if args.Escalate != nil {
				args.Escalate(fallbackCount, model)
			}
		}

		if i+1 < maxAttempts && i+1 < len(ladder) {
			backoff := args.Strategy.BackoffFor(fallbackCount)
			if backoff > 0 {
				time.Sleep(time.Duration(backoff) * time.Millisecond)
			}
		}
	}

	return nil, apperrors.NewRouterError(attempts)
}

func isStallError(err error) bool {
	_, ok := err.(*stallError)
	return ok
}

// attempt runs one ladder entry's full lifecycle: stall timer, gated
// sink, gateway call, stream demux, header usage parse.
//
// The stall timer only governs time-to-first-token: it cancels stallCtx
// (aborting the in-flight HTTP read) if no delta has arrived within
// FallbackOnLatencyMs, but is stopped the instant onFirst fires so a long
// legitimate completion is never killed mid-stream.
func (s *Supervisor) attempt(ctx context.Context, model string, isPrimary bool, args Args) (firstTokenMs *int, usagePrompt, usageCompletion int, err error) {
	usagePrompt, usageCompletion = -1, -1

	if chaosErr, injected := s.chaos.inject(model, isPrimary, args.FallbackOnLatencyMs); injected {
		return nil, usagePrompt, usageCompletion, chaosErr
	}

	stallCtx, cancelStall := context.WithCancel(ctx)
	defer cancelStall()

	timer := time.AfterFunc(time.Duration(args.FallbackOnLatencyMs)*time.Millisecond, cancelStall)
	defer timer.Stop()

	attemptStart := time.Now()
	req := buildRequest(model, args.Messages, args.MaxTokens, args.Gen, args.PerModelParams)

	body, headers, streamErr := s.gw.Stream(stallCtx, req)
	if streamErr != nil {
		if stallCtx.Err() != nil {
			return nil, usagePrompt, usageCompletion, errStall
		}
		return nil, usagePrompt, usageCompletion, streamErr
	}
	defer body.Close()

	sink := newGatedSink(args.Sink)
	runGate(stallCtx, sink, args.FirstChunkGateMs)

	var ftm *int
	onFirst := func() {
		timer.Stop()
		ms := int(time.Since(attemptStart).Milliseconds())
		ftm = &ms
	}

	demuxErr := sse.Demux(body, onFirst, func(delta string) {
		_, _ = sink.Write([]byte(delta))
	})

	if ftm == nil {
		// Stream ended, or the stall timer aborted it, before any delta
		// arrived — a stall by definition even if the gateway call itself
		// returned 2xx.
		sink.discard()
		return nil, usagePrompt, usageCompletion, errStall
	}
	_ = demuxErr // a mid-stream error after the first delta doesn't fail the attempt

	sink.flush()

	hu := gateway.ParseUsageHeaders(headers)
	if hu.Complete() {
		usagePrompt, usageCompletion = hu.PromptTokens, hu.CompletionTokens
	}
	return ftm, usagePrompt, usageCompletion, nil
}

var errStall = &stallError{msg: "stall: first-token gate exceeded"}

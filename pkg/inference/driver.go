package inference

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"

	"github.com/ik-labs/route-pilot/pkg/gateway"
	"github.com/ik-labs/route-pilot/pkg/ledger"
	"github.com/ik-labs/route-pilot/pkg/policy"
	"github.com/ik-labs/route-pilot/pkg/quota"
	"github.com/ik-labs/route-pilot/pkg/rates"
	"github.com/ik-labs/route-pilot/pkg/receipts"
	"github.com/ik-labs/route-pilot/pkg/router"
)

// defaultPromptTokens and defaultCompletionTokens are the fallback usage
// figures when neither header-reported usage nor the usage probe produces
// a count.
const (
	defaultPromptTokens     = 300
	defaultCompletionTokens = 200
)

// Driver orchestrates one inference request end to end.
type Driver struct {
	router        *router.Supervisor
	quota         *quota.Store
	recorder      *receipts.Recorder
	rates         *rates.Table
	ledger        *ledger.Ledger
	gw            *gateway.Client
	usageProbe    bool
	snapshotInput bool
}

// New builds a Driver over its collaborators. usageProbe enables the
// non-stream max_tokens=1 fallback call when header usage is absent.
// snapshotInput, when set, copies the raw prompt text into each receipt's
// Meta for later replay/debugging.
func New(sup *router.Supervisor, q *quota.Store, rec *receipts.Recorder, rt *rates.Table, l *ledger.Ledger, gw *gateway.Client, usageProbe, snapshotInput bool) *Driver {
	return &Driver{router: sup, quota: q, recorder: rec, rates: rt, ledger: l, gw: gw, usageProbe: usageProbe, snapshotInput: snapshotInput}
}

// Request is everything one Run call needs.
type Request struct {
	Policy      *policy.Policy
	UserRef     string
	UserContent string
	Attachment  string // optional, appended to UserContent separated by a blank line
	TaskID      *string
	ParentID    *string
	Agent       *string
	Sink        io.Writer

	// ShadowModel, if non-empty, triggers step 9's silent shadow run against
	// this model after the main path completes.
	ShadowModel string
}

// Result is the filled-in outcome of one Run call.
type Result struct {
	ReceiptID        string
	RouteFinal       string
	FallbackCount    int
	LatencyMs        int
	FirstTokenMs     *int
	PromptTokens     int
	CompletionTokens int
	CostUSD          float64
}

// Run executes a single request end to end: quota check, router call,
// usage reconciliation, receipt, and trace, in order. On failure at any
// step, no mutation below that step occurs.
func (d *Driver) Run(ctx context.Context, req Request) (*Result, error) {
	p := req.Policy

	policyHash, err := policy.Hash(p)
	if err != nil {
		return nil, err
	}

	if err := d.quota.AssertWithinRPM(req.UserRef, p.Tenancy.PerUserRPM); err != nil {
		return nil, err
	}

	messages, promptText := buildMessages(p, req.UserContent, req.Attachment)
	promptHash := hashPrompt(promptText)

	windowN := p.Routing.P95WindowN
	if windowN <= 0 {
		windowN = 50
	}

	runRes, err := d.router.Run(ctx, router.Args{
		Plan:                   router.Plan{Primary: p.Routing.Primary, Backups: p.Routing.Backups},
		TargetP95Ms:            p.Objectives.P95LatencyMs,
		P95WindowN:             windowN,
		Messages:               messages,
		MaxTokens:              p.Objectives.MaxTokens,
		FallbackOnLatencyMs:    p.Strategy.FallbackOnLatencyMs,
		MaxAttempts:            p.Strategy.MaxAttempts,
		Strategy:               p.Strategy,
		FirstChunkGateMs:       p.Strategy.FirstChunkGateMs,
		EscalateAfterFallbacks: p.Strategy.EscalateAfterFallbacks,
		Gen:                    p.Gen,
		PerModelParams:         p.Routing.Params,
		Sink:                   req.Sink,
	})
	if err != nil {
		return nil, err
	}

	promptTokens, completionTokens := d.reconcileUsage(ctx, runRes, p.Routing.Primary, messages)

	cost := d.rates.EstimateCost(runRes.RouteFinal, promptTokens, completionTokens)

	var meta map[string]any
	if d.snapshotInput {
		meta = map[string]any{"snapshot_input": promptText}
	}

	receiptID, err := d.recorder.Record(receipts.Input{
		Policy:           p.Name,
		RoutePrimary:     firstOrEmpty(p.Routing.Primary),
		RouteFinal:       runRes.RouteFinal,
		FallbackCount:    runRes.FallbackCount,
		Reasons:          runRes.Reasons,
		LatencyMs:        runRes.LatencyMs,
		FirstTokenMs:     runRes.FirstTokenMs,
		TaskID:           req.TaskID,
		ParentID:         req.ParentID,
		Agent:            req.Agent,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		CostUSD:          cost,
		PromptHash:       promptHash,
		PolicyHash:       policyHash,
		Meta:             meta,
	})
	if err != nil {
		return nil, err
	}

	tz := p.Tenancy.Timezone
	if tz == "" {
		tz = "UTC"
	}
	if _, err := d.quota.AddDailyTokens(req.UserRef, promptTokens+completionTokens, p.Tenancy.PerUserDailyTokens, tz); err != nil {
		return nil, err
	}

	userRef := req.UserRef
	if err := d.ledger.InsertTrace(&ledger.Trace{
		UserRef:      &userRef,
		Policy:       p.Name,
		RoutePrimary: firstOrEmpty(p.Routing.Primary),
		RouteFinal:   runRes.RouteFinal,
		LatencyMs:    runRes.LatencyMs,
		Tokens:       promptTokens + completionTokens,
		CostUSD:      cost,
	}); err != nil {
		return nil, err
	}

	if req.ShadowModel != "" {
		d.runShadow(ctx, p, req, messages)
	}

	return &Result{
		ReceiptID:        receiptID,
		RouteFinal:       runRes.RouteFinal,
		FallbackCount:    runRes.FallbackCount,
		LatencyMs:        runRes.LatencyMs,
		FirstTokenMs:     runRes.FirstTokenMs,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		CostUSD:          cost,
	}, nil
}

// buildMessages assembles the optional system message plus the single user
// message (content ∥ attachment block), returning the message list and the
// exact text the prompt hash is computed over.
func buildMessages(p *policy.Policy, userContent, attachment string) ([]gateway.Message, string) {
	var messages []gateway.Message
	if p.Gen != nil && p.Gen.System != "" {
		messages = append(messages, gateway.Message{Role: "system", Content: p.Gen.System})
	}

	promptText := userContent
	if attachment != "" {
		promptText = userContent + "\n\n" + attachment
	}
	messages = append(messages, gateway.Message{Role: "user", Content: promptText})
	return messages, promptText
}

func hashPrompt(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// reconcileUsage prefers header-reported counts from the router result; if
// absent and the usage probe is enabled, issues a non-stream max_tokens=1
// call to read usage from the response body; otherwise returns the
// configured fallback defaults.
func (d *Driver) reconcileUsage(ctx context.Context, runRes *router.Result, primary []string, messages []gateway.Message) (prompt, completion int) {
	if runRes.UsagePromptTokens >= 0 && runRes.UsageCompletionTokens >= 0 {
		return runRes.UsagePromptTokens, runRes.UsageCompletionTokens
	}

	if d.usageProbe {
		resp, _, err := d.gw.Complete(ctx, gateway.Request{
			Model:     runRes.RouteFinal,
			Messages:  messages,
			MaxTokens: 1,
		})
		if err == nil && resp != nil {
			return resp.Usage.PromptTokens, resp.Usage.CompletionTokens
		}
		slog.Warn("usage probe failed, falling back to defaults", "model", runRes.RouteFinal)
	}

	return defaultPromptTokens, defaultCompletionTokens
}

// runShadow issues a single-attempt, silent-sink router call against
// req.ShadowModel after the main path has already committed, writing a
// zero-cost marker receipt. Shadow failures are swallowed: a shadow
// model's unavailability must never fail the request it is shadowing.
func (d *Driver) runShadow(ctx context.Context, p *policy.Policy, req Request, messages []gateway.Message) {
	_, err := d.router.Run(ctx, router.Args{
		Plan:                router.Plan{Primary: []string{req.ShadowModel}},
		TargetP95Ms:         p.Objectives.P95LatencyMs,
		P95WindowN:          50,
		Messages:            messages,
		MaxTokens:           p.Objectives.MaxTokens,
		FallbackOnLatencyMs: p.Strategy.FallbackOnLatencyMs,
		MaxAttempts:         1,
		Strategy:            p.Strategy,
		FirstChunkGateMs:    p.Strategy.FirstChunkGateMs,
		Gen:                 p.Gen,
		PerModelParams:      p.Routing.Params,
		Sink:                io.Discard,
	})
	if err != nil {
		slog.Warn("shadow run failed, swallowing", "model", req.ShadowModel, "error", err)
	}

	shadowMeta := map[string]any{"shadow": true}
	if d.snapshotInput {
		for _, msg := range messages {
			if msg.Role == "user" {
				shadowMeta["snapshot_input"] = msg.Content
				break
			}
		}
	}

	_, recErr := d.recorder.Record(receipts.Input{
		Policy:           p.Name,
		RoutePrimary:     req.ShadowModel,
		RouteFinal:       req.ShadowModel,
		FallbackCount:    0,
		Reasons:          []string{"shadow"},
		LatencyMs:        0,
		TaskID:           req.TaskID,
		ParentID:         req.ParentID,
		Agent:            req.Agent,
		PromptTokens:     0,
		CompletionTokens: 0,
		CostUSD:          0,
		Meta:             shadowMeta,
	})
	if recErr != nil {
		slog.Warn("shadow marker receipt failed, swallowing", "model", req.ShadowModel, "error", recErr)
	}
}

func firstOrEmpty(xs []string) string {
	if len(xs) == 0 {
		return ""
	}
	return xs[0]
}

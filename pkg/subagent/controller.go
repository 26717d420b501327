package subagent

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ik-labs/route-pilot/pkg/gateway"
	"github.com/ik-labs/route-pilot/pkg/ledger"
	"github.com/ik-labs/route-pilot/pkg/policy"
	"github.com/ik-labs/route-pilot/pkg/rates"
	"github.com/ik-labs/route-pilot/pkg/receipts"
	"github.com/ik-labs/route-pilot/pkg/router"
)

const defaultSystemPrompt = "Respond with strict JSON only. No prose, no code fences, no explanation — a single JSON object matching the expected shape."

// fallbackBeforeOverBudget is the fallback_count threshold for flagging a
// hop over_budget regardless of cost or latency.
const fallbackBeforeOverBudget = 2

// Controller runs one sub-agent hop: pre-flight tool calls, the forced-JSON
// model call, output collection, then budget/policy post-checks.
type Controller struct {
	router   *router.Supervisor
	registry *Registry
	policies PolicyResolver
	recorder *receipts.Recorder
	rates    *rates.Table
	ledger   *ledger.Ledger
	fetcher  *Fetcher

	httpFetchURLTemplate string
	httpFetchMax         int
	dryRun               bool
	snapshotInput        bool
}

// Config configures a Controller.
type Config struct {
	HTTPFetchURLTemplate string
	HTTPFetchMax         int
	DryRun               bool

	// SnapshotInput, when set, copies the raw user payload sent to the
	// model into each hop's receipt Meta for later replay/debugging.
	SnapshotInput bool
}

// New builds a Controller over its collaborators.
func New(sup *router.Supervisor, reg *Registry, policies PolicyResolver, rec *receipts.Recorder, rt *rates.Table, l *ledger.Ledger, fetcher *Fetcher, cfg Config) *Controller {
	max := cfg.HTTPFetchMax
	if max <= 0 {
		max = 3
	}
	return &Controller{
		router: sup, registry: reg, policies: policies, recorder: rec, rates: rt, ledger: l, fetcher: fetcher,
		httpFetchURLTemplate: cfg.HTTPFetchURLTemplate, httpFetchMax: max, dryRun: cfg.DryRun,
		snapshotInput: cfg.SnapshotInput,
	}
}

// Result is one hop's outcome.
type Result struct {
	Output        map[string]any
	ReceiptID     string
	OverBudget    bool
	RouteFinal    string
	FallbackCount int
}

// Run executes one hop of env.Agent: pre-flight validation and tool
// pre-fetch, the forced-JSON call, last-balanced-JSON extraction, and
// post-flight validation, usage accounting, and receipt write.
func (c *Controller) Run(ctx context.Context, env Envelope) (*Result, error) {
	spec, err := c.registry.Get(env.Agent)
	if err != nil {
		return nil, err
	}

	if issues := Validate(env.Input, spec.InputSchema); len(issues) > 0 {
		return nil, fmt.Errorf("subagent: %s: input schema violations: %s", env.Agent, strings.Join(issues, "; "))
	}

	if c.dryRun {
		return &Result{Output: dryRunStub(env.Agent)}, nil
	}

	p, err := c.policies.Resolve(spec.Policy)
	if err != nil {
		return nil, err
	}

	toolResults := c.preFetch(ctx, spec, env.Input)

	systemPrompt := spec.System
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	userPayload := map[string]any{"input": env.Input}
	if env.Context != nil {
		userPayload["context"] = env.Context
	}
	if env.Constraints != nil {
		userPayload["constraints"] = env.Constraints
	}
	if toolResults != nil {
		userPayload["tool_results"] = map[string]any{"http_fetch": toolResults}
	}
	userJSON, err := json.Marshal(userPayload)
	if err != nil {
		return nil, fmt.Errorf("subagent: marshal user payload: %w", err)
	}

	messages := []gateway.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: string(userJSON)},
	}

	gen := p.Gen.Merge(&policy.GenParams{JSONMode: true})

	windowN := p.Routing.P95WindowN
	if windowN <= 0 {
		windowN = 50
	}

	var sink bytes.Buffer
	runRes, err := c.router.Run(ctx, router.Args{
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
		Gen:                    gen,
		PerModelParams:         p.Routing.Params,
		Sink:                   &sink,
	})
	if err != nil {
		return nil, err
	}

	output, err := ExtractLastBalancedJSON(sink.String())
	if err != nil {
		return nil, fmt.Errorf("subagent: %s: %w", env.Agent, err)
	}

	schemaWarnings := Validate(output, spec.OutputSchema)

	promptTokens, completionTokens := reconcileUsageDefaults(runRes)
	cost := c.rates.EstimateCost(runRes.RouteFinal, promptTokens, completionTokens)

	overBudget := fallbackExceedsBudget(env.Budget, cost, runRes.LatencyMs, runRes.FallbackCount)

	policyHash, err := policy.Hash(p)
	if err != nil {
		return nil, err
	}
	promptHash := hashBytes(userJSON)

	meta := map[string]any{"over_budget": overBudget}
	if len(schemaWarnings) > 0 {
		// Non-fatal: attached to the receipt, never failing the hop.
		meta["schema_warnings"] = schemaWarnings
	}
	if c.snapshotInput {
		meta["snapshot_input"] = string(userJSON)
	}

	agent := env.Agent
	receiptID, err := c.recorder.Record(receipts.Input{
		Policy:           p.Name,
		RoutePrimary:     firstOrEmpty(p.Routing.Primary),
		RouteFinal:       runRes.RouteFinal,
		FallbackCount:    runRes.FallbackCount,
		Reasons:          runRes.Reasons,
		LatencyMs:        runRes.LatencyMs,
		FirstTokenMs:     runRes.FirstTokenMs,
		TaskID:           &env.TaskID,
		ParentID:         env.ParentID,
		Agent:            &agent,
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

	if err := c.ledger.InsertTrace(&ledger.Trace{
		Policy:       p.Name,
		RoutePrimary: firstOrEmpty(p.Routing.Primary),
		RouteFinal:   runRes.RouteFinal,
		LatencyMs:    runRes.LatencyMs,
		Tokens:       promptTokens + completionTokens,
		CostUSD:      cost,
	}); err != nil {
		return nil, err
	}

	return &Result{
		Output:        output,
		ReceiptID:     receiptID,
		OverBudget:    overBudget,
		RouteFinal:    runRes.RouteFinal,
		FallbackCount: runRes.FallbackCount,
	}, nil
}

func fallbackExceedsBudget(b Budget, cost float64, latencyMs, fallbackCount int) bool {
	if b.CostUSD > 0 && cost > b.CostUSD {
		return true
	}
	if b.TimeMs > 0 && latencyMs > b.TimeMs {
		return true
	}
	return fallbackCount >= fallbackBeforeOverBudget
}

func reconcileUsageDefaults(runRes *router.Result) (prompt, completion int) {
	if runRes.UsagePromptTokens >= 0 && runRes.UsageCompletionTokens >= 0 {
		return runRes.UsagePromptTokens, runRes.UsageCompletionTokens
	}
	return defaultPromptTokens, defaultCompletionTokens
}

const (
	defaultPromptTokens     = 300
	defaultCompletionTokens = 200
)

func hashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func firstOrEmpty(xs []string) string {
	if len(xs) == 0 {
		return ""
	}
	return xs[0]
}

// preFetch runs the http_fetch pre-flight tool, returning nil when the
// agent doesn't list the tool or the input carries no ids.
func (c *Controller) preFetch(ctx context.Context, spec AgentSpec, input map[string]any) []FetchResult {
	if c.fetcher == nil || c.httpFetchURLTemplate == "" {
		return nil
	}
	if !hasTool(spec.Tools, "http_fetch") {
		return nil
	}
	rawIDs, ok := input["ids"].([]any)
	if !ok || len(rawIDs) == 0 {
		return nil
	}
	ids := make([]string, 0, len(rawIDs))
	for _, v := range rawIDs {
		if s, ok := v.(string); ok {
			ids = append(ids, s)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return c.fetcher.FetchIDs(ctx, c.httpFetchURLTemplate, ids, c.httpFetchMax)
}

func hasTool(tools []string, name string) bool {
	for _, t := range tools {
		if t == name {
			return true
		}
	}
	return false
}

// dryRunStub returns the deterministic stub for the ambient dry-run flag,
// matched by case-insensitive substring against the agent name family.
func dryRunStub(agentName string) map[string]any {
	lower := strings.ToLower(agentName)
	switch {
	case strings.Contains(lower, "triage"):
		return map[string]any{"intent": "dry-run", "fields": []any{}}
	case strings.Contains(lower, "retriever"):
		return map[string]any{"records": []any{}}
	case strings.Contains(lower, "writer"):
		return map[string]any{"draft": ""}
	case strings.Contains(lower, "aggregator"):
		return map[string]any{"records": []any{}}
	default:
		return map[string]any{}
	}
}

package agentsession

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/ik-labs/route-pilot/pkg/gateway"
	"github.com/ik-labs/route-pilot/pkg/ledger"
	"github.com/ik-labs/route-pilot/pkg/quota"
	"github.com/ik-labs/route-pilot/pkg/rates"
	"github.com/ik-labs/route-pilot/pkg/receipts"
	"github.com/ik-labs/route-pilot/pkg/router"
	"github.com/ik-labs/route-pilot/pkg/subagent"
)

// maxHistoryMessages caps how much persisted history is replayed into the
// model's context per turn.
const maxHistoryMessages = 50

// Driver runs one turn of a multi-turn agent chat.
type Driver struct {
	router        *router.Supervisor
	quota         *quota.Store
	recorder      *receipts.Recorder // nil disables per-turn receipts
	rates         *rates.Table
	ledger        *ledger.Ledger
	agents        *subagent.Registry
	policies      subagent.PolicyResolver
	snapshotInput bool
}

// New builds a Driver. recorder may be nil to disable per-turn receipts.
// snapshotInput, when set, copies each turn's user message into its
// receipt's Meta for later replay/debugging.
func New(sup *router.Supervisor, q *quota.Store, recorder *receipts.Recorder, rt *rates.Table, l *ledger.Ledger, agents *subagent.Registry, policies subagent.PolicyResolver, snapshotInput bool) *Driver {
	return &Driver{router: sup, quota: q, recorder: recorder, rates: rt, ledger: l, agents: agents, policies: policies, snapshotInput: snapshotInput}
}

// Turn is one request into an existing or new session.
type Turn struct {
	SessionID     string // "" starts a new session
	UserRef       string
	AgentName     string
	UserContent   string
	Attachment    string
	Sink          io.Writer
}

// Result is one turn's outcome.
type Result struct {
	SessionID        string
	ReceiptID        string // "" when per-turn receipts are disabled
	RouteFinal       string
	FallbackCount    int
	LatencyMs        int
	PromptTokens     int
	CompletionTokens int
	CostUSD          float64
	AssistantText    string
}

// Run executes one turn in order: RPM gate, message assembly over
// history, user-message append, router call, assistant-message append,
// daily-token update, trace insert, optional receipt.
func (d *Driver) Run(ctx context.Context, t Turn) (*Result, error) {
	spec, err := d.agents.Get(t.AgentName)
	if err != nil {
		return nil, err
	}
	p, err := d.policies.Resolve(spec.Policy)
	if err != nil {
		return nil, err
	}

	if err := d.quota.AssertWithinRPM(t.UserRef, p.Tenancy.PerUserRPM); err != nil {
		return nil, err
	}

	sessionID := t.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
		userRef := t.UserRef
		agentName := t.AgentName
		if err := d.ledger.CreateSession(&ledger.Session{
			ID: sessionID, UserRef: &userRef, AgentName: &agentName, PolicyName: p.Name,
		}); err != nil {
			return nil, err
		}
	}

	history, err := d.ledger.Messages(sessionID)
	if err != nil {
		return nil, err
	}
	if len(history) > maxHistoryMessages {
		history = history[len(history)-maxHistoryMessages:]
	}

	messages := make([]gateway.Message, 0, len(history)+2)
	if spec.System != "" {
		messages = append(messages, gateway.Message{Role: "system", Content: spec.System})
	}
	for _, m := range history {
		messages = append(messages, gateway.Message{Role: m.Role, Content: m.Content})
	}
	userText := t.UserContent
	if t.Attachment != "" {
		userText += "\n\n" + t.Attachment
	}
	messages = append(messages, gateway.Message{Role: "user", Content: userText})

	userMsgID := uuid.NewString()
	if err := d.ledger.AppendMessage(&ledger.Message{ID: userMsgID, SessionID: sessionID, Role: "user", Content: userText}); err != nil {
		return nil, err
	}

	var capture bytes.Buffer
	var sink io.Writer = &capture
	if t.Sink != nil {
		sink = &teeWriter{primary: t.Sink, capture: &capture}
	}

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
		Sink:                   sink,
	})
	if err != nil {
		return nil, err
	}

	assistantText := capture.String()
	if err := d.ledger.AppendMessage(&ledger.Message{ID: uuid.NewString(), SessionID: sessionID, Role: "assistant", Content: assistantText}); err != nil {
		return nil, err
	}

	promptTokens, completionTokens := runRes.UsagePromptTokens, runRes.UsageCompletionTokens
	if promptTokens < 0 || completionTokens < 0 {
		promptTokens, completionTokens = defaultPromptTokens, defaultCompletionTokens
	}
	cost := d.rates.EstimateCost(runRes.RouteFinal, promptTokens, completionTokens)

	if _, err := d.quota.AddDailyTokens(t.UserRef, promptTokens+completionTokens, p.Tenancy.PerUserDailyTokens, p.Tenancy.Timezone); err != nil {
		return nil, err
	}

	userRefCopy := t.UserRef
	if err := d.ledger.InsertTrace(&ledger.Trace{
		UserRef:      &userRefCopy,
		Policy:       p.Name,
		RoutePrimary: firstOrEmpty(p.Routing.Primary),
		RouteFinal:   runRes.RouteFinal,
		LatencyMs:    runRes.LatencyMs,
		Tokens:       promptTokens + completionTokens,
		CostUSD:      cost,
	}); err != nil {
		return nil, err
	}

	var receiptID string
	if d.recorder != nil {
		parentID, err := d.lastReceiptID(sessionID)
		if err != nil {
			return nil, err
		}
		var meta map[string]any
		if d.snapshotInput {
			meta = map[string]any{"snapshot_input": userText}
		}

		agent := t.AgentName
		receiptID, err = d.recorder.Record(receipts.Input{
			Policy:           p.Name,
			RoutePrimary:     firstOrEmpty(p.Routing.Primary),
			RouteFinal:       runRes.RouteFinal,
			FallbackCount:    runRes.FallbackCount,
			Reasons:          runRes.Reasons,
			LatencyMs:        runRes.LatencyMs,
			FirstTokenMs:     runRes.FirstTokenMs,
			TaskID:           &sessionID,
			ParentID:         parentID,
			Agent:            &agent,
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			CostUSD:          cost,
			Meta:             meta,
		})
		if err != nil {
			return nil, err
		}
	}

	return &Result{
		SessionID:        sessionID,
		ReceiptID:        receiptID,
		RouteFinal:       runRes.RouteFinal,
		FallbackCount:    runRes.FallbackCount,
		LatencyMs:        runRes.LatencyMs,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		CostUSD:          cost,
		AssistantText:    assistantText,
	}, nil
}

// lastReceiptID returns the most recent receipt recorded against
// sessionID, or nil if this is the session's first receipt.
func (d *Driver) lastReceiptID(sessionID string) (*string, error) {
	rs, err := d.ledger.ReceiptsByTask(sessionID)
	if err != nil {
		return nil, fmt.Errorf("agentsession: load prior receipts: %w", err)
	}
	if len(rs) == 0 {
		return nil, nil
	}
	id := rs[len(rs)-1].ID
	return &id, nil
}

const (
	defaultPromptTokens     = 300
	defaultCompletionTokens = 200
)

func firstOrEmpty(xs []string) string {
	if len(xs) == 0 {
		return ""
	}
	return xs[0]
}

// teeWriter forwards every write to both the caller's sink and an internal
// capture buffer, so the caller can stream a turn's reply live while the
// driver still has the full text to persist into history once it ends.
type teeWriter struct {
	primary io.Writer
	capture *bytes.Buffer
}

func (t *teeWriter) Write(p []byte) (int, error) {
	t.capture.Write(p)
	return t.primary.Write(p)
}

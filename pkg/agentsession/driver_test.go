package agentsession

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ik-labs/route-pilot/pkg/gateway"
	"github.com/ik-labs/route-pilot/pkg/ledger"
	"github.com/ik-labs/route-pilot/pkg/policy"
	"github.com/ik-labs/route-pilot/pkg/quota"
	"github.com/ik-labs/route-pilot/pkg/rates"
	"github.com/ik-labs/route-pilot/pkg/receipts"
	"github.com/ik-labs/route-pilot/pkg/router"
	"github.com/ik-labs/route-pilot/pkg/subagent"
)

type stubResolver struct{ p *policy.Policy }

func (s stubResolver) Resolve(name string) (*policy.Policy, error) { return s.p, nil }

func chatPolicy() *policy.Policy {
	return &policy.Policy{
		Name: "chat-default",
		Objectives: policy.Objectives{
			P95LatencyMs: 100000,
			MaxTokens:    200,
		},
		Routing: policy.Routing{
			Primary:    []string{"chat-model"},
			P95WindowN: 50,
		},
		Strategy: policy.Strategy{
			FallbackOnLatencyMs: 2000,
			MaxAttempts:         1,
			BackoffMs:           []int{1},
		},
		Tenancy: policy.Tenancy{
			PerUserDailyTokens: 100000,
			PerUserRPM:         1000,
			Timezone:           "UTC",
		},
	}
}

func writeAssistantSSE(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	frame, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"delta": map[string]any{"content": content}}},
	})
	fmt.Fprintf(w, "data: %s\n\n", frame)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
}

func newTestDriver(t *testing.T, handler http.HandlerFunc, withReceipts bool) (*Driver, *ledger.Ledger) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	l, err := ledger.Open(":memory:")
	if err != nil {
		t.Fatalf("ledger.Open error = %v", err)
	}
	t.Cleanup(func() { l.Close() })

	gw := gateway.New(ts.URL, "k", nil)
	sup := router.New(gw, l, nil, router.Flags{})
	q := quota.New(l, nil)
	rt := rates.New(nil)
	reg := subagent.NewRegistry([]subagent.AgentSpec{{Name: "assistant", Policy: "chat-default", System: "be helpful"}})
	resolver := stubResolver{p: chatPolicy()}

	var rec *receipts.Recorder
	if withReceipts {
		rec = receipts.New(l, receipts.Config{})
	}

	return New(sup, q, rec, rt, l, reg, resolver, false), l
}

func TestRunStartsNewSessionAndAppendsHistory(t *testing.T) {
	d, l := newTestDriver(t, func(w http.ResponseWriter, r *http.Request) {
		writeAssistantSSE(w, "hello there")
	}, true)

	var sink bytes.Buffer
	res, err := d.Run(context.Background(), Turn{UserRef: "u1", AgentName: "assistant", UserContent: "hi", Sink: &sink})
	if err != nil {
		t.Fatalf("Run error = %v", err)
	}
	if res.SessionID == "" {
		t.Fatal("expected a new session id")
	}
	if res.AssistantText != "hello there" {
		t.Errorf("AssistantText = %q, want %q", res.AssistantText, "hello there")
	}
	if sink.String() != "hello there" {
		t.Errorf("sink = %q, want the reply forwarded live", sink.String())
	}
	if res.ReceiptID == "" {
		t.Error("expected a non-empty receipt id when receipts are enabled")
	}

	history, err := l.Messages(res.SessionID)
	if err != nil {
		t.Fatalf("Messages error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history = %v, want [user, assistant]", history)
	}
	if history[0].Role != "user" || history[1].Role != "assistant" {
		t.Errorf("history roles = [%s, %s], want [user, assistant]", history[0].Role, history[1].Role)
	}
}

func TestRunSecondTurnReusesSessionAndChainsReceiptParent(t *testing.T) {
	d, l := newTestDriver(t, func(w http.ResponseWriter, r *http.Request) {
		writeAssistantSSE(w, "reply")
	}, true)

	var sink1 bytes.Buffer
	first, err := d.Run(context.Background(), Turn{UserRef: "u2", AgentName: "assistant", UserContent: "first", Sink: &sink1})
	if err != nil {
		t.Fatalf("first Run error = %v", err)
	}

	var sink2 bytes.Buffer
	second, err := d.Run(context.Background(), Turn{
		SessionID: first.SessionID, UserRef: "u2", AgentName: "assistant", UserContent: "second", Sink: &sink2,
	})
	if err != nil {
		t.Fatalf("second Run error = %v", err)
	}
	if second.SessionID != first.SessionID {
		t.Errorf("SessionID = %q, want reuse of %q", second.SessionID, first.SessionID)
	}

	row, err := l.GetReceipt(second.ReceiptID)
	if err != nil {
		t.Fatalf("GetReceipt error = %v", err)
	}
	if row.ParentID == nil || *row.ParentID != first.ReceiptID {
		t.Errorf("ParentID = %v, want the first turn's receipt id %q", row.ParentID, first.ReceiptID)
	}

	history, err := l.Messages(first.SessionID)
	if err != nil {
		t.Fatalf("Messages error = %v", err)
	}
	if len(history) != 4 {
		t.Fatalf("history = %v, want 4 messages across two turns", history)
	}
}

func TestRunRejectsOverRPMLimit(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeAssistantSSE(w, "reply")
	}))
	defer ts.Close()

	l, err := ledger.Open(":memory:")
	if err != nil {
		t.Fatalf("ledger.Open error = %v", err)
	}
	defer l.Close()

	tightPolicy := chatPolicy()
	tightPolicy.Tenancy.PerUserRPM = 1

	gw := gateway.New(ts.URL, "k", nil)
	sup := router.New(gw, l, nil, router.Flags{})
	q := quota.New(l, nil)
	rt := rates.New(nil)
	reg := subagent.NewRegistry([]subagent.AgentSpec{{Name: "assistant", Policy: "chat-default", System: "be helpful"}})
	d := New(sup, q, nil, rt, l, reg, stubResolver{p: tightPolicy}, false)

	var sink bytes.Buffer
	if _, err := d.Run(context.Background(), Turn{UserRef: "u3", AgentName: "assistant", UserContent: "a", Sink: &sink}); err != nil {
		t.Fatalf("first Run error = %v", err)
	}
	if _, err := d.Run(context.Background(), Turn{UserRef: "u3", AgentName: "assistant", UserContent: "b", Sink: &sink}); err == nil {
		t.Error("expected the second turn within the same minute to be rejected by the RPM gate")
	}
}

func TestRunWithoutReceiptsLeavesReceiptIDEmpty(t *testing.T) {
	d, _ := newTestDriver(t, func(w http.ResponseWriter, r *http.Request) {
		writeAssistantSSE(w, "reply")
	}, false)

	var sink bytes.Buffer
	res, err := d.Run(context.Background(), Turn{UserRef: "u4", AgentName: "assistant", UserContent: "hi", Sink: &sink})
	if err != nil {
		t.Fatalf("Run error = %v", err)
	}
	if res.ReceiptID != "" {
		t.Errorf("ReceiptID = %q, want empty when receipts are disabled", res.ReceiptID)
	}
}

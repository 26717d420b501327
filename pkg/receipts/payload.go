package receipts

import "encoding/json"

// Payload is the canonical, fixed-field-order JSON shape of a receipt.
// It has no Signature field, so the signature is never part of the bytes
// that get signed.
type Payload struct {
	ID               string         `json:"id"`
	TS               string         `json:"ts"`
	Policy           string         `json:"policy"`
	RoutePrimary     string         `json:"route_primary"`
	RouteFinal       string         `json:"route_final"`
	FallbackCount    int            `json:"fallback_count"`
	Reasons          []string       `json:"reasons"`
	LatencyMs        int            `json:"latency_ms"`
	FirstTokenMs     *int           `json:"first_token_ms,omitempty"`
	TaskID           *string        `json:"task_id,omitempty"`
	ParentID         *string        `json:"parent_id,omitempty"`
	PromptTokens     int            `json:"prompt_tokens"`
	CompletionTokens int            `json:"completion_tokens"`
	CostUSD          float64        `json:"cost_usd"`
	PromptHash       string         `json:"prompt_hash"`
	PolicyHash       string         `json:"policy_hash"`
	Agent            *string        `json:"agent,omitempty"`
	Meta             map[string]any `json:"meta,omitempty"`
}

// canonicalBytes returns the deterministic JSON encoding of p. Go's
// encoding/json both preserves declared struct field order and sorts
// map[string]any keys lexically, so the output is stable across runs
// regardless of Meta's construction order.
func (p Payload) canonicalBytes() ([]byte, error) {
	return json.Marshal(p)
}

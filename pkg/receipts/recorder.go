package receipts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/ik-labs/route-pilot/pkg/ledger"
	"github.com/ik-labs/route-pilot/pkg/telemetry/metrics"
)

// defaultSecretID is the fallback HMAC key used when JWT_SECRET is unset.
const defaultSecretID = "dev-secret"

// Input is everything a caller must supply to record one receipt; ID and TS
// are stamped by Record if left empty.
type Input struct {
	ID               string
	TS               string
	Policy           string
	RoutePrimary     string
	RouteFinal       string
	FallbackCount    int
	Reasons          []string
	LatencyMs        int
	FirstTokenMs     *int
	TaskID           *string
	ParentID         *string
	PromptTokens     int
	CompletionTokens int
	CostUSD          float64
	PromptHash       string
	PolicyHash       string
	Agent            *string
	Meta             map[string]any
}

// Recorder builds, signs, optionally redacts, persists, and mirrors
// receipts.
type Recorder struct {
	ledger    *ledger.Ledger
	secret    string
	redactor  *Redactor // nil disables redaction
	mirrorDir string    // "" disables mirroring
	metrics   *metrics.Receipts
}

// Config configures a Recorder.
type Config struct {
	Secret       string   // HMAC key; "" falls back to dev-secret
	Redact       bool
	RedactFields []string
	MirrorDir    string // "" disables the JSON file mirror
	Metrics      *metrics.Receipts
}

// New builds a Recorder over l per cfg.
func New(l *ledger.Ledger, cfg Config) *Recorder {
	secret := cfg.Secret
	if secret == "" {
		secret = defaultSecretID
	}
	var red *Redactor
	if cfg.Redact {
		red = NewRedactor(cfg.RedactFields)
	}
	return &Recorder{
		ledger:    l,
		secret:    secret,
		redactor:  red,
		mirrorDir: cfg.MirrorDir,
		metrics:   cfg.Metrics,
	}
}

// Record builds the canonical payload from in, redacts it if configured,
// signs the (post-redaction) payload, persists the result to the ledger,
// mirrors it to disk if configured, and returns the written receipt id.
func (r *Recorder) Record(in Input) (string, error) {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.TS == "" {
		in.TS = nowISO()
	}

	payload := Payload{
		ID: in.ID, TS: in.TS, Policy: in.Policy,
		RoutePrimary: in.RoutePrimary, RouteFinal: in.RouteFinal,
		FallbackCount: in.FallbackCount, Reasons: in.Reasons,
		LatencyMs: in.LatencyMs, FirstTokenMs: in.FirstTokenMs,
		TaskID: in.TaskID, ParentID: in.ParentID,
		PromptTokens: in.PromptTokens, CompletionTokens: in.CompletionTokens,
		CostUSD: in.CostUSD, PromptHash: in.PromptHash, PolicyHash: in.PolicyHash,
		Agent: in.Agent, Meta: in.Meta,
	}
	if payload.Reasons == nil {
		payload.Reasons = []string{}
	}

	if r.redactor != nil {
		payload = r.redactor.Redact(payload)
	}

	sig, err := Sign(payload, r.secret)
	if err != nil {
		return "", fmt.Errorf("receipts: sign: %w", err)
	}

	row := &ledger.Receipt{
		ID: payload.ID, TS: payload.TS, Policy: payload.Policy,
		RoutePrimary: payload.RoutePrimary, RouteFinal: payload.RouteFinal,
		FallbackCount: payload.FallbackCount, Reasons: payload.Reasons,
		LatencyMs: payload.LatencyMs, FirstTokenMs: payload.FirstTokenMs,
		TaskID: payload.TaskID, ParentID: payload.ParentID, Agent: payload.Agent,
		PromptTokens: payload.PromptTokens, CompletionTokens: payload.CompletionTokens,
		CostUSD: payload.CostUSD, PromptHash: payload.PromptHash, PolicyHash: payload.PolicyHash,
		Meta: payload.Meta, Signature: sig,
	}

	// File mirrors must flush before the receipt id is returned, so mirror
	// first, insert second.
	if r.mirrorDir != "" {
		if err := r.mirror(payload, sig); err != nil {
			return "", fmt.Errorf("receipts: mirror: %w", err)
		}
	}

	if err := r.ledger.InsertReceipt(row); err != nil {
		return "", err
	}

	if r.metrics != nil {
		r.metrics.RecordWrite(row.CostUSD)
	}
	return row.ID, nil
}

type mirrorDoc struct {
	Payload
	Signature string `json:"signature"`
}

// mirror writes one pretty-JSON file per receipt under
// <mirrorDir>/<task-or-root>/<receipt-id>.json, fsynced before returning.
func (r *Recorder) mirror(p Payload, signature string) error {
	group := "ROOT"
	if p.TaskID != nil {
		group = *p.TaskID
	}
	dir := filepath.Join(r.mirrorDir, group)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(mirrorDoc{Payload: p, Signature: signature}, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(dir, p.ID+".json")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

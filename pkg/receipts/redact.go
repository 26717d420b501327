package receipts

import "regexp"

// Redaction regexes, narrowed to the two PII shapes this package scrubs.
var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`)
)

// Redactor scrubs a Payload in place before signing: emails become
// "[redacted-email]", phone-like digit runs become
// "[redacted-phone]", and any Meta key in Fields is replaced wholesale with
// "[redacted]". Redaction is idempotent: running it twice on an
// already-redacted payload is a no-op, since the replacement tokens contain
// neither pattern.
type Redactor struct {
	Fields map[string]struct{}
}

// NewRedactor builds a Redactor from the Meta keys to redact wholesale.
func NewRedactor(fields []string) *Redactor {
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return &Redactor{Fields: set}
}

// Redact scrubs Policy, RoutePrimary, RouteFinal, the two hashes, Reasons
// and Meta (recursing into nested maps) and returns the result. ID, TS,
// TaskID, ParentID and Agent are left as they are.
func (r *Redactor) Redact(p Payload) Payload {
	out := p
	out.Policy = scrub(p.Policy)
	out.RoutePrimary = scrub(p.RoutePrimary)
	out.RouteFinal = scrub(p.RouteFinal)
	out.PromptHash = scrub(p.PromptHash)
	out.PolicyHash = scrub(p.PolicyHash)

	reasons := make([]string, len(p.Reasons))
	for i, v := range p.Reasons {
		reasons[i] = scrub(v)
	}
	out.Reasons = reasons

	if p.Meta != nil {
		out.Meta = r.redactMeta(p.Meta)
	}
	return out
}

func (r *Redactor) redactMeta(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		if _, blocked := r.Fields[k]; blocked {
			out[k] = "[redacted]"
			continue
		}
		switch val := v.(type) {
		case string:
			out[k] = scrub(val)
		case map[string]any:
			out[k] = r.redactMeta(val)
		default:
			out[k] = v
		}
	}
	return out
}

func scrub(s string) string {
	s = emailPattern.ReplaceAllString(s, "[redacted-email]")
	s = phonePattern.ReplaceAllString(s, "[redacted-phone]")
	return s
}

package gateway

import (
	"net/http"
	"testing"
)

func TestParseUsageHeadersXUsage(t *testing.T) {
	h := http.Header{}
	h.Set("x-usage-prompt-tokens", "12")
	h.Set("x-usage-completion-tokens", "34")

	u := ParseUsageHeaders(h)
	if u.PromptTokens != 12 || u.CompletionTokens != 34 {
		t.Fatalf("got %+v", u)
	}
	if !u.Complete() {
		t.Error("expected Complete() true")
	}
}

func TestParseUsageHeadersVercelAndOpenAIVariants(t *testing.T) {
	h := http.Header{}
	h.Set("vercel-ai-prompt-tokens", "5")
	h.Set("openai-completion-tokens", "7")

	u := ParseUsageHeaders(h)
	if u.PromptTokens != 5 {
		t.Errorf("PromptTokens = %d, want 5", u.PromptTokens)
	}
	if u.CompletionTokens != 7 {
		t.Errorf("CompletionTokens = %d, want 7", u.CompletionTokens)
	}
}

func TestParseUsageHeadersAbsent(t *testing.T) {
	u := ParseUsageHeaders(http.Header{})
	if u.Complete() {
		t.Error("Complete() should be false with no headers")
	}
	if u.PromptTokens != -1 || u.CompletionTokens != -1 || u.TotalTokens != -1 {
		t.Errorf("expected all -1 sentinels, got %+v", u)
	}
}

func TestParseUsageHeadersIgnoresNonNumeric(t *testing.T) {
	h := http.Header{}
	h.Set("x-usage-prompt-tokens", "not-a-number")

	u := ParseUsageHeaders(h)
	if u.PromptTokens != -1 {
		t.Errorf("PromptTokens = %d, want -1 for unparsable value", u.PromptTokens)
	}
}

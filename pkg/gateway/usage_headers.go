package gateway

import (
	"net/http"
	"strconv"
	"strings"
)

// HeaderUsage is the token counts recovered from response headers, if any
// were present. Fields are -1 when not found so callers can distinguish
// "reported zero" from "not reported".
type HeaderUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ParseUsageHeaders recognizes x-usage-{prompt,completion,total}-tokens,
// vercel-ai-*-tokens, openai-*-tokens, and generically any header whose name
// contains "tokens" alongside "prompt"/"completion"/"total".
func ParseUsageHeaders(h http.Header) HeaderUsage {
	u := HeaderUsage{PromptTokens: -1, CompletionTokens: -1, TotalTokens: -1}
	for name, values := range h {
		if len(values) == 0 {
			continue
		}
		lname := strings.ToLower(name)
		if !strings.Contains(lname, "tokens") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(values[0]))
		if err != nil {
			continue
		}
		switch {
		case strings.Contains(lname, "prompt"):
			u.PromptTokens = n
		case strings.Contains(lname, "completion"):
			u.CompletionTokens = n
		case strings.Contains(lname, "total"):
			u.TotalTokens = n
		}
	}
	return u
}

// Complete reports whether both prompt and completion counts were found.
func (u HeaderUsage) Complete() bool {
	return u.PromptTokens >= 0 && u.CompletionTokens >= 0
}

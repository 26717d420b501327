package router

import (
	"github.com/ik-labs/route-pilot/pkg/gateway"
	"github.com/ik-labs/route-pilot/pkg/policy"
)

// buildRequest merges gen with model's per-route override (gen ∪
// params[model]) and lowers the result into a gateway.Request.
func buildRequest(model string, messages []gateway.Message, maxTokens int, gen *policy.GenParams, perModel map[string]*policy.GenParams) gateway.Request {
	merged := gen.Merge(perModel[model])

	req := gateway.Request{
		Model:     model,
		Messages:  messages,
		MaxTokens: maxTokens,
		Temperature: merged.Temperature,
		TopP:        merged.TopP,
		Stop:        merged.Stop,
	}
	if merged.JSONMode {
		req.ResponseFormat = &gateway.ResponseFormat{Type: "json_object"}
	}
	return req
}

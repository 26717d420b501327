// Command routepilot is a policy-driven orchestrator for LLM gateway
// access: supervised streaming failover across a ranked model list,
// per-user quotas, signed receipts, and sub-agent chains.
//
// Usage:
//
//	routepilot infer --policy default --user alice "summarize this"
//	routepilot chat --agent helpdesk --user alice "my invoice is wrong"
//	routepilot chain --chain helpdesk --task-id t-1 '{"question":"..."}'
//	routepilot evidence timeline --task-id t-1
package main

func main() {
	Execute()
}

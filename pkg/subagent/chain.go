package subagent

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ik-labs/route-pilot/pkg/ledger"
	"github.com/ik-labs/route-pilot/pkg/receipts"
)

// HopOutcome is one completed chain step.
type HopOutcome struct {
	Agent      string
	ReceiptID  string
	Output     map[string]any
	OverBudget bool
}

// ChainOutcome is a full chain run's result: every hop that contributed a
// receipt, in execution order, plus the final Writer output.
type ChainOutcome struct {
	Hops            []HopOutcome
	FinalOutput     map[string]any
	CancelledAgents []string
}

func toHop(agent string, r *Result) HopOutcome {
	return HopOutcome{Agent: agent, ReceiptID: r.ReceiptID, Output: r.Output, OverBudget: r.OverBudget}
}

// RunHelpdesk runs the sequential "helpdesk" chain: Triage, then either
// Writer directly (no fields, or Triage came back over_budget) or
// Retriever followed by Writer.
func (c *Controller) RunHelpdesk(ctx context.Context, taskID string, input map[string]any, budget Budget) (*ChainOutcome, error) {
	triageRes, err := c.Run(ctx, Envelope{TaskID: taskID, Agent: "Triage", Input: input, Budget: budget})
	if err != nil {
		return nil, err
	}
	hops := []HopOutcome{toHop("Triage", triageRes)}

	writerParent := triageRes.ReceiptID
	var records any = []any{}

	if !triageRes.OverBudget && triageWantsRetrieval(triageRes.Output) {
		retrieverRes, err := c.Run(ctx, Envelope{
			TaskID: taskID, ParentID: &triageRes.ReceiptID, Agent: "Retriever", Input: triageRes.Output, Budget: budget,
		})
		if err != nil {
			return nil, err
		}
		hops = append(hops, toHop("Retriever", retrieverRes))
		writerParent = retrieverRes.ReceiptID
		if r, ok := retrieverRes.Output["records"]; ok {
			records = r
		}
	}

	writerRes, err := c.Run(ctx, Envelope{
		TaskID: taskID, ParentID: &writerParent, Agent: "Writer",
		Input: map[string]any{"records": records, "triage": triageRes.Output}, Budget: budget,
	})
	if err != nil {
		return nil, err
	}
	hops = append(hops, toHop("Writer", writerRes))

	return &ChainOutcome{Hops: hops, FinalOutput: writerRes.Output}, nil
}

func triageWantsRetrieval(triageOutput map[string]any) bool {
	fields, ok := triageOutput["fields"].([]any)
	return ok && len(fields) > 0
}

// RunHelpdeskParallel runs the "helpdesk-par" chain: Triage, then a
// fan-out over {RetrieverFast, RetrieverAccurate}, then a deterministic
// Aggregator hop, then Writer. When earlyStop is true the first branch to
// succeed cancels its sibling; the aggregator's receipt meta then carries
// cancelled_agents for every branch that has no result once a winner
// exists, whether it was cancelled or failed on its own.
func (c *Controller) RunHelpdeskParallel(ctx context.Context, taskID string, input map[string]any, budget Budget, earlyStop bool) (*ChainOutcome, error) {
	triageRes, err := c.Run(ctx, Envelope{TaskID: taskID, Agent: "Triage", Input: input, Budget: budget})
	if err != nil {
		return nil, err
	}
	hops := []HopOutcome{toHop("Triage", triageRes)}

	branches := []Envelope{
		{TaskID: taskID, ParentID: &triageRes.ReceiptID, Agent: "RetrieverFast", Input: input, Budget: budget},
		{TaskID: taskID, ParentID: &triageRes.ReceiptID, Agent: "RetrieverAccurate", Input: input, Budget: budget},
	}
	outcomes, cancelledAgents := c.runParallelBranches(ctx, branches, earlyStop)

	var branchOutputs []map[string]any
	for _, oc := range outcomes {
		if oc.res == nil {
			continue
		}
		branchOutputs = append(branchOutputs, oc.res.Output)
		hops = append(hops, toHop(oc.name, oc.res))
	}

	aggOut := Aggregate(branchOutputs...)
	aggReceiptID, err := c.recordDeterministicHop(taskID, &triageRes.ReceiptID, "Aggregator", aggOut, cancelledAgents)
	if err != nil {
		return nil, err
	}
	hops = append(hops, HopOutcome{Agent: "Aggregator", ReceiptID: aggReceiptID, Output: aggOut})

	writerRes, err := c.Run(ctx, Envelope{
		TaskID: taskID, ParentID: &triageRes.ReceiptID, Agent: "Writer",
		Input: map[string]any{"records": aggOut["records"]}, Budget: budget,
	})
	if err != nil {
		return nil, err
	}
	hops = append(hops, toHop("Writer", writerRes))

	return &ChainOutcome{Hops: hops, FinalOutput: writerRes.Output, CancelledAgents: cancelledAgents}, nil
}

type branchOutcome struct {
	name string
	res  *Result
	err  error
}

// runParallelBranches starts every branch under its own child context
// derived from ctx. In early-stop mode, the first branch to succeed
// cancels every sibling's child context; the cancelled siblings' Run
// calls abort their in-flight HTTP read and return without writing a
// receipt: aborted branches contribute no receipt. In join-all mode no
// cancellation ever fires.
func (c *Controller) runParallelBranches(ctx context.Context, branches []Envelope, earlyStop bool) ([]branchOutcome, []string) {
	n := len(branches)
	type indexed struct {
		idx int
		res *Result
		err error
	}

	childCtxs := make([]context.Context, n)
	cancels := make([]context.CancelFunc, n)
	for i := range branches {
		childCtxs[i], cancels[i] = context.WithCancel(ctx)
	}
	defer func() {
		for _, cancel := range cancels {
			cancel()
		}
	}()

	results := make(chan indexed, n)
	var wg sync.WaitGroup
	for i, env := range branches {
		wg.Add(1)
		go func(i int, env Envelope) {
			defer wg.Done()
			res, err := c.Run(childCtxs[i], env)
			results <- indexed{idx: i, res: res, err: err}
		}(i, env)
	}

	outcomes := make([]branchOutcome, n)
	for i, b := range branches {
		outcomes[i].name = b.Agent
	}

	winnerFound := false
	for received := 0; received < n; received++ {
		r := <-results
		if r.err == nil {
			outcomes[r.idx].res = r.res
			if earlyStop && !winnerFound {
				winnerFound = true
				for j := range cancels {
					if j != r.idx {
						cancels[j]()
					}
				}
			}
		} else {
			outcomes[r.idx].err = r.err
		}
	}
	wg.Wait()

	var cancelledAgents []string
	if earlyStop && winnerFound {
		for i, oc := range outcomes {
			if oc.res == nil {
				cancelledAgents = append(cancelledAgents, branches[i].Agent)
			}
		}
	}
	return outcomes, cancelledAgents
}

// recordDeterministicHop writes the receipt and trace for a hop that
// produces its output by code rather than a model call (the aggregator),
// so it carries no prompt or policy of its own — prompt_hash is taken over
// the emitted output instead, and policy_hash is empty.
func (c *Controller) recordDeterministicHop(taskID string, parentID *string, agent string, output map[string]any, cancelledAgents []string) (string, error) {
	outJSON, err := json.Marshal(output)
	if err != nil {
		return "", err
	}
	meta := map[string]any{"over_budget": false}
	if len(cancelledAgents) > 0 {
		meta["cancelled_agents"] = cancelledAgents
	}
	a := agent
	id, err := c.recorder.Record(receipts.Input{
		Policy:           "",
		RouteFinal:       "deterministic",
		TaskID:           &taskID,
		ParentID:         parentID,
		Agent:            &a,
		PromptHash:       hashBytes(outJSON),
		PolicyHash:       "",
		Meta:             meta,
	})
	if err != nil {
		return "", err
	}
	if err := c.ledger.InsertTrace(&ledger.Trace{
		Policy:     "",
		RouteFinal: "deterministic",
	}); err != nil {
		return "", err
	}
	return id, nil
}

package receipts

import "github.com/ik-labs/route-pilot/pkg/ledger"

// TimelineForTask returns every receipt sharing taskID, ascending by ts.
func (r *Recorder) TimelineForTask(taskID string) ([]*ledger.Receipt, error) {
	return r.ledger.ReceiptsByTask(taskID)
}

// TimelineRowsRaw is TimelineForTask's rows keyed by the parent group they
// belong to: a receipt with ParentID == nil is grouped under the synthetic
// key "ROOT:<taskId>"; every other receipt is grouped under *ParentID. A
// caller reconstructs the tree by walking from the root group outward.
func (r *Recorder) TimelineRowsRaw(taskID string) (map[string][]*ledger.Receipt, error) {
	rows, err := r.ledger.ReceiptsByTask(taskID)
	if err != nil {
		return nil, err
	}
	groups := make(map[string][]*ledger.Receipt)
	for _, row := range rows {
		key := "ROOT:" + taskID
		if row.ParentID != nil {
			key = *row.ParentID
		}
		groups[key] = append(groups[key], row)
	}
	return groups, nil
}

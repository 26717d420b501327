package ledger

import (
	"fmt"
	"math"
	"sort"
)

// Trace is a lightweight routing sample used only for p95 pre-pick.
type Trace struct {
	TS           string
	UserRef      *string
	Policy       string
	RoutePrimary string
	RouteFinal   string
	LatencyMs    int
	Tokens       int
	CostUSD      float64
}

// InsertTrace persists t. TS is stamped here if empty.
func (l *Ledger) InsertTrace(t *Trace) error {
	if t.TS == "" {
		t.TS = nowISO()
	}
	_, err := l.insertTraceStmt.Exec(t.TS, nullableString(t.UserRef), t.Policy, t.RoutePrimary, t.RouteFinal, t.LatencyMs, t.Tokens, t.CostUSD)
	if err != nil {
		return fmt.Errorf("ledger: insert trace: %w", err)
	}
	return nil
}

// DeleteTracesBefore removes every trace with ts < cutoff (RFC3339Nano,
// UTC) and returns the number of rows removed. Used by
// pkg/ledger/retention to prune old routing samples; callers must keep
// enough recent history for the p95 pre-pick window to stay meaningful.
func (l *Ledger) DeleteTracesBefore(cutoff string) (int64, error) {
	res, err := l.db.Exec(`DELETE FROM traces WHERE ts < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("ledger: delete traces before %s: %w", cutoff, err)
	}
	return res.RowsAffected()
}

// RecentLatencies returns up to windowN latency samples for model, most
// recent first, used by the router's p95 pre-pick.
func (l *Ledger) RecentLatencies(model string, windowN int) ([]int, error) {
	rows, err := l.db.Query(
		`SELECT latency_ms FROM traces WHERE route_final = ? ORDER BY ts DESC LIMIT ?`,
		model, windowN,
	)
	if err != nil {
		return nil, fmt.Errorf("ledger: query recent latencies: %w", err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var ms int
		if err := rows.Scan(&ms); err != nil {
			return nil, fmt.Errorf("ledger: scan latency: %w", err)
		}
		out = append(out, ms)
	}
	return out, rows.Err()
}

// P95 computes the 95th-percentile latency over the most recent windowN
// samples for model. ok is false when fewer than 10 samples exist: the
// floor below which pre-pick refuses to reorder the ladder.
func (l *Ledger) P95(model string, windowN int) (ms int, ok bool, err error) {
	samples, err := l.RecentLatencies(model, windowN)
	if err != nil {
		return 0, false, err
	}
	if len(samples) < 10 {
		return 0, false, nil
	}
	sorted := append([]int(nil), samples...)
	sort.Ints(sorted)
	idx := int(math.Floor(0.95 * float64(len(sorted)-1)))
	return sorted[idx], true, nil
}

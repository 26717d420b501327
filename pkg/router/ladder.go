package router

// Plan is the ordered model lists a route ladder is built from.
type Plan struct {
	Primary []string
	Backups []string
}

// p95Source abstracts the p95 lookup so tests can fake it without a real
// ledger.
type p95Source interface {
	P95(model string, windowN int) (ms int, ok bool, err error)
}

// buildLadder constructs the route ladder: if the primary model's p95
// (over windowN recent samples, requiring at least 10) exceeds targetMs,
// the backup with the lowest observed p95 is prepended
// (ties broken by earliest position in plan.Backups); otherwise the ladder
// is [primary..., backups...] unchanged.
func buildLadder(src p95Source, plan Plan, targetMs, windowN int) ([]string, error) {
	ladder := append(append([]string{}, plan.Primary...), plan.Backups...)
	if len(plan.Primary) == 0 {
		return ladder, nil
	}

	primary := plan.Primary[0]
	primaryP95, ok, err := src.P95(primary, windowN)
	if err != nil {
		return nil, err
	}
	if !ok || primaryP95 <= targetMs {
		return ladder, nil
	}

	bestIdx := -1
	bestP95 := 0
	for i, backup := range plan.Backups {
		p95, ok, err := src.P95(backup, windowN)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if bestIdx == -1 || p95 < bestP95 {
			bestIdx = i
			bestP95 = p95
		}
	}
	if bestIdx == -1 {
		return ladder, nil
	}

	winner := plan.Backups[bestIdx]
	out := make([]string, 0, len(ladder))
	out = append(out, winner)
	out = append(out, plan.Primary...)
	for i, backup := range plan.Backups {
		if i == bestIdx {
			continue
		}
		out = append(out, backup)
	}
	return out, nil
}

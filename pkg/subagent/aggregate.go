package subagent

import (
	"encoding/json"
	"sort"
)

// Aggregate reduces one or more branch outputs (each shaped
// {records:[...]}) into a single deterministic {records:[...]} result:
// union, dedupe by id (shallow-merging into the survivor with the most
// populated fields), then a stable sort
// by id ascending when present, else by JSON-string order. Aggregate is
// pure code, not a model call — the policy is explicit precisely so
// record identity never depends on model discretion.
//
// Aggregate is idempotent: Aggregate(Aggregate(x)) == Aggregate(x), since
// the dedupe-and-sort it performs is already a fixed point once applied.
func Aggregate(branches ...map[string]any) map[string]any {
	byID := make(map[string]map[string]any)
	var order []string // first-seen key order, for the no-id fallback bucket
	var noID []map[string]any

	for _, branch := range branches {
		records := recordsOf(branch)
		for _, r := range records {
			id, ok := recordID(r)
			if !ok {
				noID = append(noID, r)
				continue
			}
			if existing, seen := byID[id]; seen {
				byID[id] = mergeKeepingMorePopulated(existing, r)
			} else {
				byID[id] = r
				order = append(order, id)
			}
		}
	}

	merged := make([]map[string]any, 0, len(order)+len(noID))
	for _, id := range order {
		merged = append(merged, byID[id])
	}
	merged = append(merged, noID...)

	sort.SliceStable(merged, func(i, j int) bool {
		idI, okI := recordID(merged[i])
		idJ, okJ := recordID(merged[j])
		switch {
		case okI && okJ:
			return idI < idJ
		case okI && !okJ:
			return true
		case !okI && okJ:
			return false
		default:
			return jsonStringOf(merged[i]) < jsonStringOf(merged[j])
		}
	})

	out := make([]any, len(merged))
	for i, r := range merged {
		out[i] = r
	}
	return map[string]any{"records": out}
}

func recordsOf(branch map[string]any) []map[string]any {
	raw, ok := branch["records"].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, v := range raw {
		if m, ok := v.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func recordID(r map[string]any) (string, bool) {
	v, ok := r["id"]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	return s, true
}

// mergeKeepingMorePopulated shallow-merges b into whichever of a/b has
// more populated (non-nil) fields, so the survivor never loses a field
// either side already had.
func mergeKeepingMorePopulated(a, b map[string]any) map[string]any {
	survivor, donor := a, b
	if populatedCount(b) > populatedCount(a) {
		survivor, donor = b, a
	}
	out := make(map[string]any, len(survivor)+len(donor))
	for k, v := range survivor {
		out[k] = v
	}
	for k, v := range donor {
		if _, exists := out[k]; !exists && v != nil {
			out[k] = v
		}
	}
	return out
}

func populatedCount(r map[string]any) int {
	n := 0
	for _, v := range r {
		if v != nil {
			n++
		}
	}
	return n
}

func jsonStringOf(r map[string]any) string {
	// Builds the same string json.Marshal(r) produces: encoding/json sorts
	// map keys, so the keys are sorted here and each key/value pair is
	// marshaled in that order.
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s := "{"
	for i, k := range keys {
		if i > 0 {
			s += ","
		}
		kb, _ := json.Marshal(k)
		vb, _ := json.Marshal(r[k])
		s += string(kb) + ":" + string(vb)
	}
	s += "}"
	return s
}

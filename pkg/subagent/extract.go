package subagent

import (
	"encoding/json"
	"fmt"
)

// ExtractLastBalancedJSON scans s for every top-level brace pair and
// returns the object decoded from the last one that parses successfully,
// scanning top-level braces and trying each closing position, taking the
// last successful parse. Returns an error if no substring of s decodes
// as a JSON object.
func ExtractLastBalancedJSON(s string) (map[string]any, error) {
	var best map[string]any
	found := false

	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}
		depth := 0
		closeIdx := -1
		for j := i; j < len(s); j++ {
			switch s[j] {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					closeIdx = j
				}
			}
			if closeIdx != -1 {
				break
			}
		}
		if closeIdx == -1 {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(s[i:closeIdx+1]), &m); err == nil {
			best = m
			found = true
			i = closeIdx // objects nested inside this one are not top-level
		}
	}

	if !found {
		return nil, fmt.Errorf("subagent: no balanced JSON object found in model output")
	}
	return best, nil
}

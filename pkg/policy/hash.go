package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// canonical mirrors Policy's exported shape but with a fixed, declared field
// order so its JSON encoding is stable across Go versions and map iteration
// order — the property Hash relies on.
type canonical struct {
	Name       string                 `json:"name"`
	Objectives Objectives             `json:"objectives"`
	Routing    canonicalRouting       `json:"routing"`
	Strategy   Strategy               `json:"strategy"`
	Tenancy    Tenancy                `json:"tenancy"`
	Gen        *GenParams             `json:"gen,omitempty"`
}

type canonicalRouting struct {
	Primary    []string              `json:"primary"`
	Backups    []string              `json:"backups"`
	P95WindowN int                   `json:"p95_window_n"`
	Params     []canonicalModelParam `json:"params,omitempty"`
}

type canonicalModelParam struct {
	Model  string     `json:"model"`
	Params *GenParams `json:"params"`
}

// Hash returns the hex-encoded SHA-256 digest of p's canonical JSON form.
// It is deterministic for equal policies regardless of the source YAML's key
// ordering, and is what receipts.go records as policyHash.
func Hash(p *Policy) (string, error) {
	c := canonical{
		Name:       p.Name,
		Objectives: p.Objectives,
		Routing: canonicalRouting{
			Primary:    p.Routing.Primary,
			Backups:    p.Routing.Backups,
			P95WindowN: p.Routing.P95WindowN,
		},
		Strategy: p.Strategy,
		Tenancy:  p.Tenancy,
		Gen:      p.Gen,
	}

	models := make([]string, 0, len(p.Routing.Params))
	for m := range p.Routing.Params {
		models = append(models, m)
	}
	sort.Strings(models)
	for _, m := range models {
		c.Routing.Params = append(c.Routing.Params, canonicalModelParam{
			Model: m, Params: p.Routing.Params[m],
		})
	}

	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

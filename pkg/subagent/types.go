package subagent

import "github.com/ik-labs/route-pilot/pkg/policy"

// Budget caps one hop's resource usage. A zero CostUSD or TimeMs disables
// that check; Tokens is carried with the envelope and no over-budget check
// reads it.
type Budget struct {
	Tokens  int
	CostUSD float64
	TimeMs  int
}

// Envelope is the typed task passed into one controller hop. Not
// persisted — envelopes are values passed by the caller.
type Envelope struct {
	EnvelopeVersion string // "1"
	TaskID          string
	ParentID        *string
	Agent           string
	Budget          Budget
	Input           map[string]any
	Context         map[string]any
	Constraints     map[string]any
}

// Schema is the permissive JSON-schema subset this package supports:
// top-level type, per-property type, and required presence. Anything
// else a full JSON Schema document might carry is ignored.
type Schema struct {
	Type       string              `json:"type" yaml:"type"`
	Properties map[string]Property `json:"properties" yaml:"properties"`
	Required   []string            `json:"required" yaml:"required"`
}

// Property is one property's declared type in the schema subset.
type Property struct {
	Type string `json:"type" yaml:"type"`
}

// AgentSpec is the declarative agent definition loaded from disk.
type AgentSpec struct {
	Name         string   `yaml:"name"`
	Policy       string   `yaml:"policy"`
	System       string   `yaml:"system"`
	Tools        []string `yaml:"tools"`
	InputSchema  *Schema  `yaml:"input_schema"`
	OutputSchema *Schema  `yaml:"output_schema"`
}

// PolicyResolver resolves a policy by name. Reading the policy file from
// Disk access stays outside this package: the controller only ever sees
// already-parsed *policy.Policy values, never a path or a raw document.
type PolicyResolver interface {
	Resolve(name string) (*policy.Policy, error)
}

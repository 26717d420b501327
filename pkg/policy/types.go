package policy

// Policy is a named, validated configuration bundle for routing, strategy,
// quotas, and generation defaults.
type Policy struct {
	Name string `yaml:"-"`

	Objectives Objectives `yaml:"objectives"`
	Routing    Routing    `yaml:"routing"`
	Strategy   Strategy   `yaml:"strategy"`
	Tenancy    Tenancy    `yaml:"tenancy"`
	Gen        *GenParams `yaml:"gen,omitempty"`
}

// Objectives carries the informational and target values a policy declares.
type Objectives struct {
	P95LatencyMs int     `yaml:"p95_latency_ms"`
	MaxCostUSD   float64 `yaml:"max_cost_usd"`
	MaxTokens    int     `yaml:"max_tokens"`
}

// GenParams are generation defaults: a system prompt plus sampling
// parameters. Policy-level gen is overridden per-model by Routing.Params.
type GenParams struct {
	System      string   `yaml:"system,omitempty"`
	Temperature *float64 `yaml:"temperature,omitempty"`
	TopP        *float64 `yaml:"top_p,omitempty"`
	Stop        []string `yaml:"stop,omitempty"`
	JSONMode    bool     `yaml:"json_mode,omitempty"`
}

// Merge returns a new GenParams with non-zero fields of override taking
// precedence over the receiver (gen ∪ params[model]).
func (g *GenParams) Merge(override *GenParams) *GenParams {
	out := &GenParams{}
	if g != nil {
		*out = *g
	}
	if override == nil {
		return out
	}
	if override.System != "" {
		out.System = override.System
	}
	if override.Temperature != nil {
		out.Temperature = override.Temperature
	}
	if override.TopP != nil {
		out.TopP = override.TopP
	}
	if override.Stop != nil {
		out.Stop = override.Stop
	}
	if override.JSONMode {
		out.JSONMode = true
	}
	return out
}

// Routing describes the ordered route ladder and the p95 sample window.
type Routing struct {
	Primary    []string              `yaml:"primary"`
	Backups    []string              `yaml:"backups"`
	P95WindowN int                   `yaml:"p95_window_n"`
	Params     map[string]*GenParams `yaml:"params,omitempty"`
}

// Strategy describes failover behavior.
type Strategy struct {
	FallbackOnLatencyMs   int   `yaml:"fallback_on_latency_ms"`
	MaxAttempts           int   `yaml:"max_attempts"`
	BackoffMs             []int `yaml:"backoff_ms"`
	FirstChunkGateMs      int   `yaml:"first_chunk_gate_ms"`
	EscalateAfterFallbacks int  `yaml:"escalate_after_fallbacks"`
}

// BackoffFor returns the backoff sleep, in milliseconds, for the given
// 1-indexed fallback count. A ladder shorter than fallbackCount repeats
// its last element.
func (s Strategy) BackoffFor(fallbackCount int) int {
	if len(s.BackoffMs) == 0 {
		return 0
	}
	idx := fallbackCount - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(s.BackoffMs) {
		idx = len(s.BackoffMs) - 1
	}
	return s.BackoffMs[idx]
}

// Tenancy describes per-user quota limits and the timezone used for daily
// resets.
type Tenancy struct {
	PerUserDailyTokens int    `yaml:"per_user_daily_tokens"`
	PerUserRPM         int    `yaml:"per_user_rpm"`
	Timezone           string `yaml:"timezone"`
}

package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/ik-labs/route-pilot/pkg/apperrors"
)

// Config is the fully-resolved environment-variable surface for one process.
type Config struct {
	// Gateway
	GatewayBaseURL string
	GatewayAPIKey  string

	// Signing
	JWTSecret string

	// Receipts / evidence
	MirrorJSON     bool
	MirrorDir      string
	SnapshotInput  bool
	Redact         bool
	RedactFields   []string
	UsageProbe     bool

	// Sub-agent controller
	EarlyStop bool
	DryRun    bool

	// http_fetch tool
	HTTPFetchAllowlist   []string
	HTTPFetchURLTemplate string
	HTTPFetchMax         int

	// Chaos injection
	ChaosPrimaryStall bool
	ChaosHTTP5xx      bool

	// TZ is the TZ environment variable as read at startup. No other
	// package reads it: quota days use each policy's tenancy.timezone.
	TZ string

	// LedgerPath is where the CLI opens/creates the SQLite ledger.
	// Defaults to ./routepilot.db.
	LedgerPath string

	// PolicyDir and AgentsDir locate the on-disk policy and agent-spec
	// directories the CLI loads at startup.
	PolicyDir string
	AgentsDir string
}

const (
	envGatewayBaseURL   = "AI_GATEWAY_BASE_URL"
	envGatewayAPIKey    = "AI_GATEWAY_API_KEY"
	envJWTSecret        = "JWT_SECRET"
	envMirrorJSON       = "ROUTEPILOT_MIRROR_JSON"
	envMirrorDir        = "ROUTEPILOT_MIRROR_DIR"
	envSnapshotInput    = "ROUTEPILOT_SNAPSHOT_INPUT"
	envRedact           = "ROUTEPILOT_REDACT"
	envRedactFields     = "ROUTEPILOT_REDACT_FIELDS"
	envUsageProbe       = "ROUTEPILOT_USAGE_PROBE"
	envEarlyStop        = "ROUTEPILOT_EARLY_STOP"
	envDryRun           = "ROUTEPILOT_DRY_RUN"
	envHTTPFetchAllow   = "HTTP_FETCH_ALLOWLIST"
	envHTTPFetchURLTmpl = "HTTP_FETCH_URL_TEMPLATE"
	envHTTPFetchMax     = "HTTP_FETCH_MAX"
	envChaosPrimary     = "CHAOS_PRIMARY_STALL"
	envChaos5xx         = "CHAOS_HTTP_5XX"
	envTZ               = "TZ"
	envLedgerPath       = "ROUTEPILOT_LEDGER_PATH"
	envPolicyDir        = "ROUTEPILOT_POLICY_DIR"
	envAgentsDir        = "ROUTEPILOT_AGENTS_DIR"

	defaultJWTSecret  = "dev-secret"
	defaultHTTPFetchMax = 3
	defaultLedgerPath = "./routepilot.db"
	defaultMirrorDir  = "./receipts"
	defaultPolicyDir  = "./policies"
	defaultAgentsDir  = "./agents"
)

// boolFlag treats exactly "1" as true; anything else, including "true", is false.
func boolFlag(v string) bool {
	return v == "1"
}

// Load reads the process environment into a Config, applying defaults for
// every optional variable and failing with *apperrors.ConfigError for the
// two required gateway variables.
func Load() (*Config, error) {
	cfg := &Config{
		GatewayBaseURL:       os.Getenv(envGatewayBaseURL),
		GatewayAPIKey:        os.Getenv(envGatewayAPIKey),
		JWTSecret:            os.Getenv(envJWTSecret),
		MirrorJSON:           boolFlag(os.Getenv(envMirrorJSON)),
		MirrorDir:            os.Getenv(envMirrorDir),
		SnapshotInput:        boolFlag(os.Getenv(envSnapshotInput)),
		Redact:               boolFlag(os.Getenv(envRedact)),
		RedactFields:         splitCSV(os.Getenv(envRedactFields)),
		UsageProbe:           boolFlag(os.Getenv(envUsageProbe)),
		EarlyStop:            boolFlag(os.Getenv(envEarlyStop)),
		DryRun:               boolFlag(os.Getenv(envDryRun)),
		HTTPFetchAllowlist:   splitCSV(os.Getenv(envHTTPFetchAllow)),
		HTTPFetchURLTemplate: os.Getenv(envHTTPFetchURLTmpl),
		ChaosPrimaryStall:    boolFlag(os.Getenv(envChaosPrimary)),
		ChaosHTTP5xx:         boolFlag(os.Getenv(envChaos5xx)),
		TZ:                   os.Getenv(envTZ),
		LedgerPath:           os.Getenv(envLedgerPath),
		PolicyDir:            os.Getenv(envPolicyDir),
		AgentsDir:            os.Getenv(envAgentsDir),
	}

	if cfg.GatewayBaseURL == "" {
		return nil, apperrors.NewConfigError(envGatewayBaseURL, "required")
	}
	if cfg.GatewayAPIKey == "" {
		return nil, apperrors.NewConfigError(envGatewayAPIKey, "required")
	}

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = defaultJWTSecret
	}
	if cfg.MirrorDir == "" {
		cfg.MirrorDir = defaultMirrorDir
	}
	if cfg.LedgerPath == "" {
		cfg.LedgerPath = defaultLedgerPath
	}
	if cfg.PolicyDir == "" {
		cfg.PolicyDir = defaultPolicyDir
	}
	if cfg.AgentsDir == "" {
		cfg.AgentsDir = defaultAgentsDir
	}

	cfg.HTTPFetchMax = defaultHTTPFetchMax
	if raw := os.Getenv(envHTTPFetchMax); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, apperrors.NewConfigError(envHTTPFetchMax, "must be a positive integer")
		}
		cfg.HTTPFetchMax = n
	}

	if cfg.HTTPFetchURLTemplate != "" && !strings.Contains(cfg.HTTPFetchURLTemplate, "{id}") {
		return nil, apperrors.NewConfigError(envHTTPFetchURLTmpl, "must contain {id}")
	}

	return cfg, nil
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

package config

import (
	"testing"

	"github.com/ik-labs/route-pilot/pkg/apperrors"
)

func withEnv(t *testing.T, kv map[string]string, fn func()) {
	t.Helper()
	for k, v := range kv {
		t.Setenv(k, v)
	}
	fn()
}

func TestLoadRequiresGatewayVars(t *testing.T) {
	_, err := Load()
	if err == nil {
		t.Fatal("expected error when gateway env vars are unset")
	}
	if _, ok := err.(*apperrors.ConfigError); !ok {
		t.Fatalf("expected *apperrors.ConfigError, got %T", err)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	withEnv(t, map[string]string{
		envGatewayBaseURL: "https://gateway.example.com",
		envGatewayAPIKey:  "sk-test",
	}, func() {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.JWTSecret != defaultJWTSecret {
			t.Errorf("JWTSecret = %q, want default", cfg.JWTSecret)
		}
		if cfg.HTTPFetchMax != defaultHTTPFetchMax {
			t.Errorf("HTTPFetchMax = %d, want %d", cfg.HTTPFetchMax, defaultHTTPFetchMax)
		}
		if cfg.LedgerPath != defaultLedgerPath {
			t.Errorf("LedgerPath = %q, want default", cfg.LedgerPath)
		}
		if cfg.PolicyDir != defaultPolicyDir {
			t.Errorf("PolicyDir = %q, want default", cfg.PolicyDir)
		}
		if cfg.AgentsDir != defaultAgentsDir {
			t.Errorf("AgentsDir = %q, want default", cfg.AgentsDir)
		}
	})
}

func TestLoadParsesBooleanFlags(t *testing.T) {
	withEnv(t, map[string]string{
		envGatewayBaseURL: "https://gateway.example.com",
		envGatewayAPIKey:  "sk-test",
		envRedact:         "1",
		envDryRun:         "true", // anything but "1" is false
	}, func() {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if !cfg.Redact {
			t.Error("Redact should be true for \"1\"")
		}
		if cfg.DryRun {
			t.Error("DryRun should be false for \"true\" (only \"1\" counts)")
		}
	})
}

func TestLoadRejectsBadURLTemplate(t *testing.T) {
	withEnv(t, map[string]string{
		envGatewayBaseURL:   "https://gateway.example.com",
		envGatewayAPIKey:    "sk-test",
		envHTTPFetchURLTmpl: "https://example.com/records/all",
	}, func() {
		_, err := Load()
		if err == nil {
			t.Fatal("expected error for URL template missing {id}")
		}
	})
}

func TestLoadRejectsNonPositiveFetchMax(t *testing.T) {
	withEnv(t, map[string]string{
		envGatewayBaseURL: "https://gateway.example.com",
		envGatewayAPIKey:  "sk-test",
		envHTTPFetchMax:   "0",
	}, func() {
		_, err := Load()
		if err == nil {
			t.Fatal("expected error for non-positive HTTP_FETCH_MAX")
		}
	})
}

func TestSplitCSV(t *testing.T) {
	got := splitCSV(" a, b ,,c")
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("splitCSV() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("splitCSV()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestGetPanicsBeforeInitialize(t *testing.T) {
	set(nil)
	defer func() {
		if recover() == nil {
			t.Error("expected Get to panic before Initialize")
		}
	}()
	Get()
}

func TestInitializeAndGet(t *testing.T) {
	withEnv(t, map[string]string{
		envGatewayBaseURL: "https://gateway.example.com",
		envGatewayAPIKey:  "sk-test",
	}, func() {
		if err := Initialize(); err != nil {
			t.Fatalf("Initialize() error = %v", err)
		}
		if Get().GatewayAPIKey != "sk-test" {
			t.Error("Get() did not return the initialized config")
		}
	})
}

package config

import "sync"

var (
	mu       sync.RWMutex
	current  *Config
)

// Initialize loads the process Config and stores it as the package-level
// singleton used by cmd/routepilot. Library code should prefer Load.
func Initialize() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	mu.Lock()
	current = cfg
	mu.Unlock()
	return nil
}

// Get returns the singleton Config. It panics if Initialize has not been
// called: a programmer error, not a runtime condition to recover from.
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	if current == nil {
		panic("config: Get called before Initialize")
	}
	return current
}

// set is used by tests to inject a Config without touching the environment.
func set(cfg *Config) {
	mu.Lock()
	current = cfg
	mu.Unlock()
}

package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds everything the client reads from the environment.
type Config struct {
	// APIBaseURL is the REST backend root, e.g. http://localhost:8080.
	APIBaseURL string
	// BridgeURL is the websocket endpoint of the live message bridge,
	// e.g. ws://localhost:8080/ws. Derived from APIBaseURL when unset.
	BridgeURL string
	// ConfigDir is where the viewer identity file lives.
	ConfigDir string
	// HTTPTimeout bounds every REST call.
	HTTPTimeout time.Duration
}

// Load reads the configuration from the environment. Only the API base URL
// is required.
func Load() (*Config, error) {
	base := os.Getenv("SOCIOGO_API_BASE_URL")
	if base == "" {
		return nil, fmt.Errorf("config: SOCIOGO_API_BASE_URL is not set")
	}

	cfg := &Config{
		APIBaseURL:  base,
		BridgeURL:   os.Getenv("SOCIOGO_BRIDGE_URL"),
		ConfigDir:   os.Getenv("SOCIOGO_CONFIG_DIR"),
		HTTPTimeout: 30 * time.Second,
	}

	if cfg.BridgeURL == "" {
		cfg.BridgeURL = deriveBridgeURL(base)
	}
	if cfg.ConfigDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("config: cannot resolve home dir: %w", err)
		}
		cfg.ConfigDir = home + "/.sociogo"
	}
	if v := os.Getenv("SOCIOGO_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("config: invalid SOCIOGO_HTTP_TIMEOUT: %w", err)
		}
		cfg.HTTPTimeout = d
	}

	return cfg, nil
}

// deriveBridgeURL turns an http(s) base URL into the conventional ws(s)
// endpoint the backend mounts at /ws.
func deriveBridgeURL(base string) string {
	switch {
	case len(base) > 8 && base[:8] == "https://":
		return "wss://" + base[8:] + "/ws"
	case len(base) > 7 && base[:7] == "http://":
		return "ws://" + base[7:] + "/ws"
	default:
		return base + "/ws"
	}
}

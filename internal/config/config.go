// Package config loads the module's operational settings. Per-invocation
// overrides (the host stack's path=/statepath= arguments) are layered on
// top by the caller; this package only provides the host-wide defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Conventional paths, matching where an authentication stack expects the
// per-user limits table and the accounting state to live.
const (
	DefaultLimitsPath = "/etc/security/time_limits.conf"
	DefaultStatePath  = "/var/lib/session_times"
)

// Settings holds all host-wide configuration.
type Settings struct {
	// Per-user limits table and accounting state file.
	LimitsPath string `koanf:"limits_path"`
	StatePath  string `koanf:"state_path"`

	// Cross-process session registry (bbolt) and how long an abandoned
	// session's published values are kept before pruning.
	RegistryPath string        `koanf:"registry_path"`
	SessionTTL   time.Duration `koanf:"session_ttl"`

	// Operational
	LogLevel     string `koanf:"log_level"`
	LogFormat    string `koanf:"log_format"`
	JournalAudit bool   `koanf:"journal_audit"`
}

// defaults is the lowest-priority layer.
var defaults = map[string]any{
	"limits_path":   DefaultLimitsPath,
	"state_path":    DefaultStatePath,
	"registry_path": "/var/lib/session_times.registry",
	"session_ttl":   24 * time.Hour,
	"log_level":     "info",
	"log_format":    "json",
	"journal_audit": true,
}

// Load reads configuration from (lowest → highest priority):
//  1. Built-in defaults
//  2. YAML file at TIMELIMIT_CONFIG_FILE env var path (if set)
//  3. TIMELIMIT_* environment variables
func Load() (*Settings, error) {
	k := koanf.New(".")

	// Layer 1: defaults.
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	// Layer 2: optional YAML file.
	if cfgFile := os.Getenv("TIMELIMIT_CONFIG_FILE"); cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load file %s: %w", cfgFile, err)
		}
	}

	// Layer 3: environment variables.
	// Transform: "TIMELIMIT_STATE_PATH" → "state_path".
	if err := k.Load(env.Provider("TIMELIMIT_", ".", func(s string) string {
		if s == "TIMELIMIT_CONFIG_FILE" {
			return "" // consumed above, not a setting
		}
		return strings.ToLower(strings.TrimPrefix(s, "TIMELIMIT_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	cfg := &Settings{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	// Normalise string fields.
	cfg.LogLevel = strings.TrimSpace(strings.ToLower(cfg.LogLevel))
	cfg.LogFormat = strings.TrimSpace(strings.ToLower(cfg.LogFormat))

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Settings) validate() error {
	var errs []string

	for name, p := range map[string]string{
		"LIMITS_PATH":   c.LimitsPath,
		"STATE_PATH":    c.StatePath,
		"REGISTRY_PATH": c.RegistryPath,
	} {
		if p == "" {
			errs = append(errs, fmt.Sprintf("TIMELIMIT_%s must not be empty", name))
			continue
		}
		if strings.Contains(p, "..") {
			errs = append(errs, fmt.Sprintf(`TIMELIMIT_%s must not contain ".." (directory traversal)`, name))
		}
		if strings.ContainsRune(p, 0) {
			errs = append(errs, fmt.Sprintf("TIMELIMIT_%s must not contain null bytes", name))
		}
	}

	if c.SessionTTL < time.Minute {
		errs = append(errs, "TIMELIMIT_SESSION_TTL must be at least 1m")
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		errs = append(errs, `TIMELIMIT_LOG_FORMAT must be "json" or "text"`)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%d configuration error(s):\n  - %s", len(errs), strings.Join(errs, "\n  - "))
	}
	return nil
}

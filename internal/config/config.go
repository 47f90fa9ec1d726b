// Package config holds the workflow configuration. Everything has a
// working default so the library runs fully in-memory with zero config;
// a YAML file opts in to the registry file, persistent store, and
// approval directory.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"signupguard/internal/logging"
)

// Config is the root configuration.
type Config struct {
	// RegistryPath points at the YAML network registry. Empty means the
	// built-in registry.
	RegistryPath string `yaml:"registry_path"`

	Gate     GateConfig     `yaml:"gate"`
	Observer ObserverConfig `yaml:"observer"`
	Store    StoreConfig    `yaml:"store"`
	Logging  logging.Config `yaml:"logging"`
}

// GateConfig configures the permission gate.
type GateConfig struct {
	// ApprovalDir is where the file-based decider writes pending
	// requests. Empty means approvals must come from an in-process
	// decider supplied by the host.
	ApprovalDir string `yaml:"approval_dir"`

	// PollInterval is how often the file-based decider re-reads a
	// pending request. Duration string, e.g. "250ms".
	PollInterval string `yaml:"poll_interval"`
}

// ObserverConfig configures the submission observer.
type ObserverConfig struct {
	// SubmissionTimeout bounds the wait for the human to press submit.
	// Duration string, e.g. "5m".
	SubmissionTimeout string `yaml:"submission_timeout"`
}

// StoreConfig configures the optional persistent collaborator.
type StoreConfig struct {
	Enabled bool `yaml:"enabled"`

	// DatabasePath is the sqlite file for network status and the
	// compliance mirror.
	DatabasePath string `yaml:"database_path"`

	// ComplianceLogPath is the hash-chained JSONL compliance log.
	ComplianceLogPath string `yaml:"compliance_log_path"`
}

// DefaultConfig returns the zero-dependency in-memory configuration.
func DefaultConfig() Config {
	return Config{
		Gate: GateConfig{
			PollInterval: "250ms",
		},
		Observer: ObserverConfig{
			SubmissionTimeout: "5m",
		},
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// SubmissionTimeout parses the observer timeout, falling back to the
// default on empty or malformed values.
func (c Config) SubmissionTimeout() time.Duration {
	return parseDuration(c.Observer.SubmissionTimeout, 5*time.Minute)
}

// GatePollInterval parses the gate poll interval.
func (c Config) GatePollInterval() time.Duration {
	return parseDuration(c.Gate.PollInterval, 250*time.Millisecond)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

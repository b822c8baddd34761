// Package config loads cognitod's runtime configuration: a YAML file
// overridden by a fixed set of environment variables (spec §6), in the
// style of the original's config.rs (serde defaults, env-path override) and
// the teacher's CollectConfig default-struct idiom.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/linnix-systems/cognitod/internal/breaker"
)

const (
	envConfigPath     = "CONFIG_PATH"
	envBTFPath        = "SYSTEM_BTF_PATH"
	envRingCapacity   = "SEQUENCER_RING_CAPACITY"
	envListenAddr     = "LISTEN_ADDR"
	envAPIToken       = "API_TOKEN"
	envIncidentDBPath = "INCIDENT_DB_PATH"

	defaultConfigPath = "/etc/cognitod/cognitod.yaml"
)

// ProbesConfig configures the eBPF probe layer.
type ProbesConfig struct {
	BTFPath string `yaml:"btf_path"`
}

// SequencerConfig configures the ring buffer sequencer (C2).
type SequencerConfig struct {
	RingCapacity int `yaml:"ring_capacity"`
}

// APIConfig configures the read-only HTTP surface internal/external
// documents the contract for.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	Token      string `yaml:"api_token"`
}

// IncidentDBConfig configures the (unimplemented) incident archive's
// storage location, per spec §6's INCIDENT_DB_PATH.
type IncidentDBConfig struct {
	Path string `yaml:"path"`
}

// RulesConfig configures C7's rule engine.
type RulesConfig struct {
	NoiseBudgetPerHour int `yaml:"noise_budget_per_hour"`
}

// PSIConfig configures C6's sustained-pressure window.
type PSIConfig struct {
	SustainedPressureSeconds int64 `yaml:"sustained_pressure_seconds"`
}

// Config is the full daemon configuration tree. Every field except
// CircuitBreaker (tagged yaml:"-", so it always keeps its built-in default)
// has a yaml-overridable default; the top-level env vars in spec §6 take final
// precedence over whatever the file set, matching config.rs's "env var
// picks the file path, the file fills in the rest" layering.
type Config struct {
	Probes         ProbesConfig     `yaml:"probes"`
	Sequencer      SequencerConfig  `yaml:"sequencer"`
	API            APIConfig        `yaml:"api"`
	IncidentDB     IncidentDBConfig `yaml:"incident_db"`
	Rules          RulesConfig      `yaml:"rules"`
	PSI            PSIConfig        `yaml:"psi"`
	CircuitBreaker breaker.Config   `yaml:"-"`
}

// Default returns the built-in configuration before any file or env
// override is applied.
func Default() Config {
	return Config{
		Probes:         ProbesConfig{BTFPath: ""},
		Sequencer:      SequencerConfig{RingCapacity: 8192},
		API:            APIConfig{ListenAddr: "127.0.0.1:8080", Token: ""},
		IncidentDB:     IncidentDBConfig{Path: "/var/lib/cognitod/incidents.db"},
		Rules:          RulesConfig{NoiseBudgetPerHour: 10},
		PSI:            PSIConfig{SustainedPressureSeconds: 15},
		CircuitBreaker: breaker.DefaultConfig(),
	}
}

// Load reads the configuration file named by CONFIG_PATH (or
// defaultConfigPath if unset), falling back to defaults if the file is
// missing or fails to parse, then applies the remaining spec §6 env var
// overrides on top. This mirrors the original's Config::load(): a missing
// or malformed file is not fatal, it just means defaults.
func Load() Config {
	cfg := Default()

	path := defaultConfigPath
	if v := os.Getenv(envConfigPath); v != "" {
		path = v
	}

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			fmt.Fprintf(os.Stderr, "config: failed to parse %s: %v; using defaults\n", path, err)
			cfg = Default()
		}
	}

	applyEnvOverrides(&cfg)
	return cfg
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(envBTFPath); v != "" {
		cfg.Probes.BTFPath = v
	}
	if v := os.Getenv(envRingCapacity); v != "" {
		if n, err := parsePositiveInt(v); err == nil {
			cfg.Sequencer.RingCapacity = n
		}
	}
	if v := os.Getenv(envListenAddr); v != "" {
		cfg.API.ListenAddr = v
	}
	if v := os.Getenv(envAPIToken); v != "" {
		cfg.API.Token = v
	}
	if v := os.Getenv(envIncidentDBPath); v != "" {
		cfg.IncidentDB.Path = v
	}
}

func parsePositiveInt(s string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}

// PSISustainedPressure returns the configured sustained-pressure window as a
// time.Duration, for callers constructing a psi.Engine.
func (c Config) PSISustainedPressure() time.Duration {
	return time.Duration(c.PSI.SustainedPressureSeconds) * time.Second
}

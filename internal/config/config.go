// Package config handles Tide configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/tide/config.yaml, /config/config.yaml,
// /etc/tide/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "tide", "config.yaml"))
	}

	paths = append(paths, "/config/config.yaml") // Container convention
	paths = append(paths, "/etc/tide/config.yaml")
	return paths
}

// searchPathsFunc is overridden in tests to avoid matching real config
// files on the developer/deploy machine.
var searchPathsFunc = DefaultSearchPaths

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	paths := searchPathsFunc()
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", paths)
}

// SessionMode names the transport session's operating role.
type SessionMode string

const (
	ModePeer   SessionMode = "peer"
	ModeClient SessionMode = "client"
	ModeRouter SessionMode = "router"
)

// Config holds a launched process's entire configuration: the transport
// session block plus the ordered list of nodes to instantiate.
type Config struct {
	Session SessionConfig `yaml:"session"`
	Nodes   []NodeConfig  `yaml:"nodes"`
	LogLevel string       `yaml:"log_level"`
}

// SessionConfig configures the shared transport session.
type SessionConfig struct {
	Mode   SessionMode    `yaml:"mode"`
	Broker string         `yaml:"broker"` // MQTT broker URL; ignored by the local binding
	Extra  map[string]any `yaml:"extra,omitempty"`
}

// NodeConfig declares one node to launch: a dotted type name resolved
// through the launcher's Registry, and opaque params passed verbatim as
// that node's config.
type NodeConfig struct {
	Type   string         `yaml:"type"`
	Params map[string]any `yaml:"params"`
}

// ConfigError reports a fatal, pre-launch configuration problem: invalid
// YAML, an unknown session mode, or any other all-or-nothing validation
// failure. It is returned by Load/Validate so callers can errors.As it.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Reason)
}

// Load reads configuration from a YAML file, expands environment
// variables, applies defaults for any unset fields, and validates the
// result. After Load returns successfully, all fields are usable without
// additional nil/empty checks, and the launcher may proceed to
// instantiate nodes.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${TIDE_ROBOT_ID}). Convenience
	// for container deployments; values may also be placed directly.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("parse yaml: %v", err)}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.Session.Mode == "" {
		c.Session.Mode = ModePeer
	}
}

// Validate checks that the configuration is internally consistent. It
// runs after applyDefaults. Validation is fatal and all-or-nothing: the
// launcher must not start any node if Validate returns an error.
func (c *Config) Validate() error {
	switch c.Session.Mode {
	case ModePeer, ModeClient, ModeRouter:
	default:
		return &ConfigError{Reason: fmt.Sprintf("unknown session.mode %q (want peer, client, or router)", c.Session.Mode)}
	}

	for i, n := range c.Nodes {
		if n.Type == "" {
			return &ConfigError{Reason: fmt.Sprintf("nodes[%d].type must not be empty", i)}
		}
	}

	if c.LogLevel != "" {
		if _, err := ParseLogLevel(c.LogLevel); err != nil {
			return &ConfigError{Reason: err.Error()}
		}
	}
	return nil
}

// Package config loads evsink configuration from YAML files and the environment.
package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"github.com/strongdm/event-sink/pkg/evsink"
)

// DefaultEnvPrefix is the environment prefix used by FromEnv when none is given.
const DefaultEnvPrefix = "EVSINK"

// Load reads configuration from a YAML file. Environment variables in the
// file are expanded before parsing; only the ${VAR} form is recognized, so a
// literal "$" (e.g. in a password) is kept as is. Unset keys keep their
// defaults.
func Load(path string) (evsink.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return evsink.Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration.
func Parse(data []byte) (evsink.Config, error) {
	cfg := evsink.DefaultConfig()
	if err := yaml.Unmarshal(expandEnv(data), &cfg); err != nil {
		return evsink.Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return evsink.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${VAR} with the variable's value, empty when unset.
func expandEnv(data []byte) []byte {
	return envRefPattern.ReplaceAllFunc(data, func(ref []byte) []byte {
		name := envRefPattern.FindSubmatch(ref)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// FromEnv reads configuration from environment variables such as
// EVSINK_ENDPOINT_URL, EVSINK_MAX_RETRIES and EVSINK_STORE_ENABLED.
func FromEnv(prefix string) (evsink.Config, error) {
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}

	cfg := evsink.DefaultConfig()
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return evsink.Config{}, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return evsink.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

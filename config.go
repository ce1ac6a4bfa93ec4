package checkout

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level SDK configuration, typically loaded from a YAML
// file checked in alongside the integrating application.
type Config struct {
	// Network selects the rollup deployment (see chainsByNetworkID).
	Network string `yaml:"network"`

	// RPCURL is the read-only JSON-RPC endpoint for chain state.
	RPCURL string `yaml:"rpcURL"`

	// Relayer configures the transaction relayer client.
	Relayer RelayerConfig `yaml:"relayer"`

	// Guardian configures the policy evaluation service.
	Guardian GuardianConfig `yaml:"guardian"`

	// Logging configures structured log output.
	Logging LoggingConfig `yaml:"logging"`
}

// RelayerConfig holds relayer endpoint settings.
type RelayerConfig struct {
	// URL is the relayer JSON-RPC endpoint.
	URL string `yaml:"url"`

	// TimeoutSeconds bounds each relayer HTTP call. Zero means no timeout;
	// callers are expected to pass a deadline via context instead.
	TimeoutSeconds int `yaml:"timeoutSeconds"`
}

// GuardianConfig holds guardian service settings.
type GuardianConfig struct {
	// URL is the guardian evaluation endpoint.
	URL string `yaml:"url"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields.
func (c *Config) Validate() error {
	if _, err := ChainByNetworkID(c.Network); err != nil {
		return err
	}
	if c.RPCURL == "" {
		return fmt.Errorf("rpcURL: cannot be empty")
	}
	if c.Relayer.URL == "" {
		return fmt.Errorf("relayer.url: cannot be empty")
	}
	return nil
}

// Chain resolves the configured network to its chain configuration.
// Validate must have passed for the result to be meaningful.
func (c *Config) Chain() ChainConfig {
	chain := chainsByNetworkID[c.Network]
	return chain
}

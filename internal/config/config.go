// Package config loads and validates the YAML configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// Confluence holds the server connection settings.
type Confluence struct {
	BaseURL  string `yaml:"base_url"`
	Username string `yaml:"username"`
	APIToken string `yaml:"api_token"`
	SpaceKey string `yaml:"space_key"`
}

func (c Confluence) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.Required),
		validation.Field(&c.Username, validation.Required),
		validation.Field(&c.APIToken, validation.Required),
	)
}

// Publish holds the settings of a publish run.
type Publish struct {
	RootPage           string `yaml:"root_page"`
	CreateRoot         bool   `yaml:"create_root"`
	EnabledIfEnv       string `yaml:"enabled_if_env"`
	Concurrency        int    `yaml:"concurrency"`
	RetryAttempts      uint   `yaml:"retry_attempts"`
	CallTimeoutSeconds int    `yaml:"call_timeout_seconds"`
}

func (p Publish) Validate() error {
	// Required catches explicit zeros, which ozzo's threshold rules skip.
	return validation.ValidateStruct(&p,
		validation.Field(&p.Concurrency, validation.Required, validation.Min(1)),
		validation.Field(&p.RetryAttempts, validation.Required, validation.Min(uint(1))),
		validation.Field(&p.CallTimeoutSeconds, validation.Required, validation.Min(1)),
	)
}

// Local holds the local documentation settings.
type Local struct {
	DocsDir string   `yaml:"docs_dir"`
	Exclude []string `yaml:"exclude"`
}

// Config is the full configuration file.
type Config struct {
	Confluence Confluence `yaml:"confluence"`
	Publish    Publish    `yaml:"publish"`
	Local      Local      `yaml:"local"`
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Confluence),
		validation.Field(&c.Publish),
	)
}

// CallTimeout returns the per-call timeout as a duration.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.Publish.CallTimeoutSeconds) * time.Second
}

// Default returns a configuration with the standard defaults filled in.
func Default() *Config {
	return &Config{
		Publish: Publish{
			Concurrency:        4,
			RetryAttempts:      3,
			CallTimeoutSeconds: 30,
		},
		Local: Local{
			DocsDir: "docs",
		},
	}
}

// Load reads and validates the configuration file at path. Values absent
// from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to path with restrictive permissions, since
// the file carries the API token.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

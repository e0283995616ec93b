package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/sigreer/assetpulse/internal/canon"
	"github.com/sigreer/assetpulse/internal/db"
	"github.com/sigreer/assetpulse/internal/device"
	"github.com/sigreer/assetpulse/internal/sheet"
)

type Config struct {
	Database string   `yaml:"database,omitempty"`
	Inputs   []string `yaml:"inputs,omitempty"`
	// File extensions picked up from input directories
	Extensions []string `yaml:"extensions,omitempty"`
	// Days since last compliance scan for a device to count as active
	ActiveWindowDays int `yaml:"active_window_days,omitempty"`
	// Extra column rules, appended after the built-in table
	Rules []Rule `yaml:"rules,omitempty"`
}

// Rule is a user-supplied header pattern for a canonical field
type Rule struct {
	Pattern string `yaml:"pattern"`
	Field   string `yaml:"field"`
}

// defaultConfig provides baseline settings
var defaultConfig = Config{
	Database:         db.DefaultPath,
	Extensions:       sheet.DefaultExtensions,
	ActiveWindowDays: 60,
}

// Load reads the config file at path. An empty path searches the default
// locations and falls back to defaults when none exists.
func Load(path string) (*Config, error) {
	if path == "" {
		candidates := []string{
			"/etc/assetpulse/config.yaml",
			filepath.Join(os.Getenv("HOME"), ".config/assetpulse/config.yaml"),
			"config.yaml",
		}
		for _, c := range candidates {
			if _, err := os.Stat(c); err == nil {
				path = c
				break
			}
		}
	}

	var cfg Config
	if path == "" {
		cfg = defaultConfig
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Database == "" {
		c.Database = defaultConfig.Database
	}
	if len(c.Extensions) == 0 {
		c.Extensions = defaultConfig.Extensions
	}
	if c.ActiveWindowDays == 0 {
		c.ActiveWindowDays = defaultConfig.ActiveWindowDays
	}
}

// Validate checks the window and that every rule compiles onto a known field
func (c *Config) Validate() error {
	if c.ActiveWindowDays < 0 {
		return fmt.Errorf("active_window_days must not be negative: %d", c.ActiveWindowDays)
	}
	_, err := c.ColumnRules()
	return err
}

// ColumnRules compiles the configured extra rules in file order
func (c *Config) ColumnRules() ([]canon.Rule, error) {
	rules := make([]canon.Rule, 0, len(c.Rules))
	for i, r := range c.Rules {
		f, ok := device.ParseField(r.Field)
		if !ok {
			return nil, fmt.Errorf("rule %d: unknown field %q", i+1, r.Field)
		}
		rule, err := canon.NewRule(r.Pattern, f)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// Mapper returns a column mapper over the built-in and configured rules
func (c *Config) Mapper() (*canon.Mapper, error) {
	rules, err := c.ColumnRules()
	if err != nil {
		return nil, err
	}
	return canon.NewMapper(rules...), nil
}

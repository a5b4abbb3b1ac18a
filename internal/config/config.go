// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	// Default settings
	Defaults struct {
		Workers             int      `yaml:"workers"`
		StageTimeoutSeconds int      `yaml:"stage_timeout_seconds"`
		Stage4              bool     `yaml:"stage4"`
		Stage5              bool     `yaml:"stage5"`
		StrictCollisions    bool     `yaml:"strict_collisions"`
		AffixThreshold      int      `yaml:"affix_threshold"`
		Locale              string   `yaml:"locale"`
		Verbose             bool     `yaml:"verbose"`
		Debug               bool     `yaml:"debug"`
		NoColor             bool     `yaml:"no_color"`
		Extensions          []string `yaml:"extensions"`
	} `yaml:"defaults"`

	// Export settings
	Export struct {
		ResaveThreshold float64 `yaml:"resave_threshold"`
		WriteDiff       bool    `yaml:"write_diff"`
		WriteReport     bool    `yaml:"write_report"`
	} `yaml:"export"`

	// Profiles for different recovery scenarios
	Profiles map[string]Profile `yaml:"profiles"`
}

// Profile represents a recovery profile with specific settings
type Profile struct {
	Workers             int      `yaml:"workers"`
	StageTimeoutSeconds int      `yaml:"stage_timeout_seconds"`
	Stage4              bool     `yaml:"stage4"`
	Stage5              bool     `yaml:"stage5"`
	StrictCollisions    bool     `yaml:"strict_collisions"`
	AffixThreshold      int      `yaml:"affix_threshold"`
	Locale              string   `yaml:"locale"`
	Verbose             bool     `yaml:"verbose"`
	Debug               bool     `yaml:"debug"`
	NoColor             bool     `yaml:"no_color"`
	Extensions          []string `yaml:"extensions"`
	Description         string   `yaml:"description"`
}

// LoadConfig loads configuration from the specified file path
func LoadConfig(configPath string) (*Config, error) {
	// Default configuration
	config := &Config{
		Profiles: make(map[string]Profile),
	}

	// Set default values
	config.Defaults.Workers = 0
	config.Defaults.StageTimeoutSeconds = 30
	config.Defaults.Stage4 = true
	config.Defaults.Stage5 = false
	config.Defaults.StrictCollisions = false
	config.Defaults.AffixThreshold = 3
	config.Defaults.Locale = "en"
	config.Export.ResaveThreshold = 0.15
	config.Export.WriteDiff = true
	config.Export.WriteReport = true

	// Add default thorough profile for corpora where the fast stages miss
	config.Profiles["thorough"] = Profile{
		Workers:             0,
		StageTimeoutSeconds: 300,
		Stage4:              true,
		Stage5:              true,
		AffixThreshold:      2,
		Locale:              "en",
		Description:         "Long stage budgets plus the quadratic combination stage",
	}

	// If no config file specified, return default config
	if configPath == "" {
		return config, nil
	}

	// Read config file
	cleanPath := filepath.Clean(configPath)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Store default values before unmarshaling
	defaultStage4 := config.Defaults.Stage4
	defaultWriteDiff := config.Export.WriteDiff
	defaultWriteReport := config.Export.WriteReport

	// Parse YAML
	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Restore defaults if not explicitly set in config file
	// This handles the case where YAML unmarshaling sets bool fields to false
	// when they're not present in the config file
	if !containsField(data, "defaults", "stage4") {
		config.Defaults.Stage4 = defaultStage4
	}
	if !containsField(data, "export", "write_diff") {
		config.Export.WriteDiff = defaultWriteDiff
	}
	if !containsField(data, "export", "write_report") {
		config.Export.WriteReport = defaultWriteReport
	}

	// Validate the configuration
	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// FindConfigFile looks for a configuration file in standard locations
func FindConfigFile() string {
	candidates := []string{
		"trkeys.yaml",
		".trkeys.yaml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, ".config", "trkeys", "config.yaml"),
			filepath.Join(home, ".trkeys.yaml"),
		)
	}
	for _, candidate := range candidates {
		if fileExists(candidate) {
			return candidate
		}
	}
	return ""
}

// fileExists checks if a file exists and is not a directory
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// ListProfiles returns a sorted list of available profile names
func (c *Config) ListProfiles() []string {
	profiles := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		profiles = append(profiles, name)
	}
	sort.Strings(profiles)
	return profiles
}

// GetProfile returns a profile by name, or nil if not found
func (c *Config) GetProfile(name string) *Profile {
	if profile, exists := c.Profiles[name]; exists {
		return &profile
	}
	return nil
}

// containsField checks if a nested field exists in the YAML data
func containsField(data []byte, path ...string) bool {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return false
	}
	current := raw
	for i, key := range path {
		value, exists := current[key]
		if !exists {
			return false
		}
		if i == len(path)-1 {
			return true
		}
		next, ok := value.(map[string]interface{})
		if !ok {
			return false
		}
		current = next
	}
	return false
}

// ValidateConfig validates the configuration
func ValidateConfig(config *Config) error {
	if config.Defaults.Workers < 0 {
		return fmt.Errorf("defaults.workers must not be negative")
	}
	if config.Defaults.StageTimeoutSeconds <= 0 {
		return fmt.Errorf("defaults.stage_timeout_seconds must be positive")
	}
	if config.Defaults.AffixThreshold <= 0 {
		return fmt.Errorf("defaults.affix_threshold must be positive")
	}
	if config.Export.ResaveThreshold < 0 || config.Export.ResaveThreshold > 1 {
		return fmt.Errorf("export.resave_threshold must be within [0, 1]")
	}
	for name, profile := range config.Profiles {
		if profile.Workers < 0 {
			return fmt.Errorf("profile %s: workers must not be negative", name)
		}
		if profile.StageTimeoutSeconds < 0 {
			return fmt.Errorf("profile %s: stage_timeout_seconds must not be negative", name)
		}
	}
	return nil
}

// LoadConfigOrDefault loads configuration from configFile (or searches standard
// locations when configFile is empty). If loading fails, it returns a default
// configuration.
func LoadConfigOrDefault(configFile string) *Config {
	path := configFile
	if path == "" {
		path = FindConfigFile()
	}
	config, err := LoadConfig(path)
	if err != nil {
		config, _ = LoadConfig("")
	}
	return config
}

// ApplyProfile overlays a profile's explicit settings onto the defaults.
// Zero values in the profile leave the corresponding default untouched,
// except booleans, which profiles always set outright.
func (c *Config) ApplyProfile(name string) error {
	profile := c.GetProfile(name)
	if profile == nil {
		return fmt.Errorf("unknown profile: %s", name)
	}
	if profile.Workers > 0 {
		c.Defaults.Workers = profile.Workers
	}
	if profile.StageTimeoutSeconds > 0 {
		c.Defaults.StageTimeoutSeconds = profile.StageTimeoutSeconds
	}
	if profile.AffixThreshold > 0 {
		c.Defaults.AffixThreshold = profile.AffixThreshold
	}
	if profile.Locale != "" {
		c.Defaults.Locale = profile.Locale
	}
	if len(profile.Extensions) > 0 {
		c.Defaults.Extensions = profile.Extensions
	}
	c.Defaults.Stage4 = profile.Stage4
	c.Defaults.Stage5 = profile.Stage5
	c.Defaults.StrictCollisions = profile.StrictCollisions
	c.Defaults.Verbose = profile.Verbose
	c.Defaults.Debug = profile.Debug
	c.Defaults.NoColor = profile.NoColor
	return nil
}

package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig represents the single-file configuration schema.
// Nested sections map naturally to flags and env.
type FileConfig struct {
	Data   string `yaml:"data" json:"data"`
	Output string `yaml:"output" json:"output"`
	Rules  string `yaml:"rules" json:"rules"`
	Report string `yaml:"report" json:"report"`

	Run struct {
		All         bool   `yaml:"all" json:"all"`
		Limit       int    `yaml:"limit" json:"limit"`
		Wait        string `yaml:"wait" json:"wait"`
		ClearBadges bool   `yaml:"clearBadges" json:"clearBadges"`
	} `yaml:"run" json:"run"`

	Fetch struct {
		UserAgent string        `yaml:"userAgent" json:"userAgent"`
		Attempts  int           `yaml:"attempts" json:"attempts"`
		Timeout   time.Duration `yaml:"timeout" json:"timeout"`
	} `yaml:"fetch" json:"fetch"`

	Cache struct {
		Dir         string        `yaml:"dir" json:"dir"`
		MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
		Clear       bool          `yaml:"clear" json:"clear"`
		StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
	} `yaml:"cache" json:"cache"`

	DryRun  bool `yaml:"dryRun" json:"dryRun"`
	Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from FileConfig into cfg for any fields that
// are still unset or at their flag defaults, preserving explicit flags.
func ApplyFileConfig(cfg *Config, fc FileConfig) error {
	if cfg == nil {
		return nil
	}
	if (cfg.DataPath == "" || cfg.DataPath == DefaultDataPath) && fc.Data != "" {
		cfg.DataPath = fc.Data
	}
	if cfg.OutputPath == "" && fc.Output != "" {
		cfg.OutputPath = fc.Output
	}
	if cfg.RulesPath == "" && fc.Rules != "" {
		cfg.RulesPath = fc.Rules
	}
	if cfg.ReportPath == "" && fc.Report != "" {
		cfg.ReportPath = fc.Report
	}

	if !cfg.All && fc.Run.All {
		cfg.All = true
	}
	if cfg.Limit == 0 && fc.Run.Limit > 0 {
		cfg.Limit = fc.Run.Limit
	}
	if (cfg.Wait == 0 || cfg.Wait == DefaultWait) && strings.TrimSpace(fc.Run.Wait) != "" {
		d, err := ParseWait(fc.Run.Wait)
		if err != nil {
			return fmt.Errorf("config: run.wait: %w", err)
		}
		cfg.Wait = d
	}
	if !cfg.ClearBadges && fc.Run.ClearBadges {
		cfg.ClearBadges = true
	}

	if cfg.UserAgent == "" && fc.Fetch.UserAgent != "" {
		cfg.UserAgent = fc.Fetch.UserAgent
	}
	if (cfg.Attempts == 0 || cfg.Attempts == DefaultAttempts) && fc.Fetch.Attempts > 0 {
		cfg.Attempts = fc.Fetch.Attempts
	}
	if (cfg.Timeout == 0 || cfg.Timeout == DefaultTimeout) && fc.Fetch.Timeout > 0 {
		cfg.Timeout = fc.Fetch.Timeout
	}

	if cfg.CacheDir == "" && fc.Cache.Dir != "" {
		cfg.CacheDir = fc.Cache.Dir
	}
	if cfg.CacheMaxAge == 0 && fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = fc.Cache.MaxAge
	}
	if !cfg.CacheClear && fc.Cache.Clear {
		cfg.CacheClear = true
	}
	if !cfg.CacheStrictPerms && fc.Cache.StrictPerms {
		cfg.CacheStrictPerms = true
	}

	if !cfg.DryRun && fc.DryRun {
		cfg.DryRun = true
	}
	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
	return nil
}

// ValidateConfig performs minimal validation of required settings.
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.DataPath) == "" {
		return errors.New("config: data path is required")
	}
	if cfg.Limit < 0 {
		return errors.New("config: limit must not be negative")
	}
	if cfg.Wait < 0 {
		return errors.New("config: wait must not be negative")
	}
	if cfg.Attempts < 0 || cfg.Timeout < 0 || cfg.CacheMaxAge < 0 {
		return errors.New("config: negative attempts, timeout or cache age are not allowed")
	}
	return nil
}

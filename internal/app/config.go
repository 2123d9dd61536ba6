package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Defaults shared by flag registration, file config and env overlays.
const (
	DefaultDataPath = "src/data/newsletters.json"
	DefaultWait     = 400 * time.Millisecond
	DefaultAttempts = 3
	DefaultTimeout  = 20 * time.Second
)

// Config holds runtime configuration for the application.
type Config struct {
	// Record store
	DataPath   string
	OutputPath string

	// Selection
	All   bool
	Limit int

	// Behavior
	DryRun      bool
	ClearBadges bool
	Wait        time.Duration
	Verbose     bool
	ReportPath  string
	RulesPath   string

	// Fetching
	UserAgent string
	Attempts  int
	Timeout   time.Duration

	// Cache
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheClear       bool
	CacheStrictPerms bool
}

// DefaultConfig returns the configuration used when no flag, env var or
// config file says otherwise.
func DefaultConfig() Config {
	return Config{
		DataPath: DefaultDataPath,
		Wait:     DefaultWait,
		Attempts: DefaultAttempts,
		Timeout:  DefaultTimeout,
	}
}

// outputPath is where the collection is written; the source file by default.
func (c Config) outputPath() string {
	if strings.TrimSpace(c.OutputPath) != "" {
		return c.OutputPath
	}
	return c.DataPath
}

// ParseWait accepts a Go duration ("750ms", "1s") or a bare integer of
// milliseconds ("750").
func ParseWait(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty wait")
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative wait: %d", n)
		}
		return time.Duration(n) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse wait %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative wait: %s", d)
	}
	return d, nil
}

package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides forcefully overrides cfg fields with environment variables
// when they are set. Used so env beats a config file while flags stay highest.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if v := os.Getenv("NLDIGEST_DATA"); v != "" {
		cfg.DataPath = v
	}
	if v := os.Getenv("NLDIGEST_OUTPUT"); v != "" {
		cfg.OutputPath = v
	}
	if v := os.Getenv("NLDIGEST_RULES"); v != "" {
		cfg.RulesPath = v
	}
	if v := os.Getenv("NLDIGEST_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("NLDIGEST_USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}
	if s := os.Getenv("NLDIGEST_WAIT"); s != "" {
		if d, err := ParseWait(s); err == nil {
			cfg.Wait = d
		}
	}
	if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv("NLDIGEST_ATTEMPTS"))); err == nil && n > 0 {
		cfg.Attempts = n
	}
	if s := os.Getenv("NLDIGEST_CACHE_MAX_AGE"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			cfg.CacheMaxAge = d
		}
	}

	// Booleans override when env present and truthy/falsey
	setBool := func(dst *bool, envKey string) {
		if s := strings.ToLower(strings.TrimSpace(os.Getenv(envKey))); s != "" {
			switch s {
			case "1", "true", "yes", "on":
				*dst = true
			case "0", "false", "no", "off":
				*dst = false
			}
		}
	}
	setBool(&cfg.DryRun, "DRY_RUN")
	setBool(&cfg.Verbose, "VERBOSE")
	setBool(&cfg.CacheClear, "NLDIGEST_CACHE_CLEAR")
	setBool(&cfg.CacheStrictPerms, "NLDIGEST_CACHE_STRICT_PERMS")
}

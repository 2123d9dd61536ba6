package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hyperifyio/nldigest/internal/app"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("run failed")
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "nldigest",
		Short: "Generate summaries, highlights and thumbnails for archived newsletters",
		Long: `nldigest fetches each newsletter page listed in the JSON record store,
extracts a short summary, up to five highlight lines and a thumbnail, and
writes the updated collection back in one pass.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd.Flags())
			if err != nil {
				return err
			}
			if cfg.Verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
			return run(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	f := root.Flags()
	f.String("data", app.DefaultDataPath, "Path to the newsletter JSON record store")
	f.String("output", "", "Write the updated collection here instead of overwriting --data")
	f.String("config", "", "Optional YAML or JSON config file")
	f.String("rules", "", "Optional YAML or JSON file extending the heuristic rule sets")
	f.String("report", "", "Write a JSON report of processed records to this path")
	f.String("user-agent", "", "Override the User-Agent sent with page requests")
	f.String("wait", app.DefaultWait.String(), "Delay between records (duration, or bare integer milliseconds)")
	f.StringSlice("env-file", []string{".env"}, "Dotenv files to load; later files override earlier ones")
	f.Bool("dry-run", false, "Extract and print results without writing the store")
	f.Bool("all", false, "Process every record with a link, not only those missing a summary")
	f.Bool("clear-badges", false, "Remove the legacy badges field from every record on write")
	f.BoolP("verbose", "v", false, "Verbose logging")
	f.Int("limit", 0, "Process at most N records (0 means no limit)")
	f.Int("attempts", app.DefaultAttempts, "Fetch attempts per page")
	f.Duration("timeout", app.DefaultTimeout, "Per-request timeout")
	f.String("cache-dir", "", "Enable the on-disk page cache in this directory")
	f.Duration("cache-max-age", 0, "Purge cache entries older than this at startup (e.g. 72h); 0 disables")
	f.Bool("cache-clear", false, "Clear the cache directory before the run")
	f.Bool("cache-strict-perms", false, "Restrict cache permissions (0700 dirs, 0600 files)")

	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), app.VersionString())
		},
	}
}

// resolveConfig layers defaults, the config file, environment and explicitly
// set flags, in increasing precedence.
func resolveConfig(fs *pflag.FlagSet) (app.Config, error) {
	envFiles, _ := fs.GetStringSlice("env-file")
	if err := app.LoadEnvFiles(envFiles...); err != nil {
		return app.Config{}, err
	}

	cfg := app.DefaultConfig()
	if configPath, _ := fs.GetString("config"); strings.TrimSpace(configPath) != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			return app.Config{}, fmt.Errorf("load config %s: %w", configPath, err)
		}
		if err := app.ApplyFileConfig(&cfg, fc); err != nil {
			return app.Config{}, err
		}
	}
	app.ApplyEnvOverrides(&cfg)

	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		err = applyFlag(&cfg, fs, f.Name)
	})
	if err != nil {
		return app.Config{}, err
	}

	if err := app.ValidateConfig(cfg); err != nil {
		return app.Config{}, err
	}
	return cfg, nil
}

// applyFlag copies one explicitly set flag into cfg.
func applyFlag(cfg *app.Config, fs *pflag.FlagSet, name string) error {
	var err error
	switch name {
	case "data":
		cfg.DataPath, err = fs.GetString(name)
	case "output":
		cfg.OutputPath, err = fs.GetString(name)
	case "rules":
		cfg.RulesPath, err = fs.GetString(name)
	case "report":
		cfg.ReportPath, err = fs.GetString(name)
	case "user-agent":
		cfg.UserAgent, err = fs.GetString(name)
	case "wait":
		var s string
		if s, err = fs.GetString(name); err == nil {
			if cfg.Wait, err = app.ParseWait(s); err != nil {
				err = fmt.Errorf("--wait: %w", err)
			}
		}
	case "dry-run":
		cfg.DryRun, err = fs.GetBool(name)
	case "all":
		cfg.All, err = fs.GetBool(name)
	case "clear-badges":
		cfg.ClearBadges, err = fs.GetBool(name)
	case "verbose":
		cfg.Verbose, err = fs.GetBool(name)
	case "limit":
		cfg.Limit, err = fs.GetInt(name)
	case "attempts":
		cfg.Attempts, err = fs.GetInt(name)
	case "timeout":
		cfg.Timeout, err = fs.GetDuration(name)
	case "cache-dir":
		cfg.CacheDir, err = fs.GetString(name)
	case "cache-max-age":
		cfg.CacheMaxAge, err = fs.GetDuration(name)
	case "cache-clear":
		cfg.CacheClear, err = fs.GetBool(name)
	case "cache-strict-perms":
		cfg.CacheStrictPerms, err = fs.GetBool(name)
	}
	return err
}

func run(ctx context.Context, cfg app.Config, out io.Writer) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()
	a.SetOutput(out)

	return a.Run(ctx)
}

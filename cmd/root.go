// Package cmd implements the asleep CLI commands.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/theirongolddev/asleep/internal/asleep"
	"github.com/theirongolddev/asleep/internal/config"
	"github.com/theirongolddev/asleep/internal/log"
	"github.com/theirongolddev/asleep/internal/pipeline"
	"github.com/theirongolddev/asleep/internal/store"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by --format.
const (
	formatJSON  = "json"
	formatYAML  = "yaml"
	formatTable = "table"
)

var (
	flagDays    int
	flagQuiet   bool
	flagVerbose bool
	flagFormat  string
	flagStore   string
	flagInputs  []string
	flagOffline bool
)

const fetchTimeout = 45 * time.Second

var rootCmd = &cobra.Command{
	Use:   "asleep",
	Short: "Asleep sleep insight CLI",
	Long:  "Fetch nightly sleep sessions from the Asleep API and turn them into daily, average, and trend insight.",
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		log.Setup(flagVerbose, flagQuiet)
	},
	RunE:          runInsight,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "  Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().IntVarP(&flagDays, "days", "n", 0, "Days of sessions to fetch (default from config)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Only log warnings and errors")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&flagFormat, "format", "f", "", "Output format: json, yaml, or table (default from config)")
	rootCmd.PersistentFlags().StringVar(&flagStore, "store", pipeline.CachePath(), "History and fetch cache database")
	rootCmd.PersistentFlags().StringArrayVarP(&flagInputs, "input", "i", nil, "Read payload file or directory instead of the API (repeatable)")
	rootCmd.PersistentFlags().BoolVar(&flagOffline, "offline", false, "Use the last cached payload without fetching")
}

// loadConfig reads the config file, falling back to defaults with a warning.
func loadConfig() config.Config {
	cfg, err := config.Load()
	if err != nil {
		slog.Warn("config unreadable, using defaults", "path", config.ConfigPath(), "error", err)
		return config.DefaultConfig()
	}
	return cfg
}

// resolveDays applies the config default when --days is not set.
func resolveDays(cfg config.Config) int {
	if flagDays > 0 {
		return flagDays
	}
	if cfg.General.DefaultDays > 0 {
		return cfg.General.DefaultDays
	}
	return 7
}

// resolveFormat validates --format, falling back to the config default.
func resolveFormat(cfg config.Config) (string, error) {
	f := flagFormat
	if f == "" {
		f = cfg.General.OutputFormat
	}
	switch f {
	case "":
		return formatJSON, nil
	case formatJSON, formatYAML, formatTable:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want json, yaml, or table)", f)
	}
}

// newSource builds an API source from the configured credentials.
// Refreshed tokens are written back to the config file.
func newSource(cfg config.Config) *asleep.Source {
	client := asleep.NewClient(config.GetBaseURL(cfg))
	creds := asleep.Credentials{
		UserID:       config.GetUserID(cfg),
		AccessToken:  config.GetAccessToken(cfg),
		RefreshToken: config.GetRefreshToken(cfg),
		ExpiresAt:    config.TokenExpiry(cfg),
	}
	return asleep.NewSource(client, creds, pipeline.ReportLocation, persistTokens)
}

// persistTokens saves refreshed tokens, re-reading the file so that
// concurrent edits to other sections survive.
func persistTokens(c asleep.Credentials) error {
	cfg := loadConfig()
	config.SetTokens(&cfg, c.AccessToken, c.RefreshToken, c.ExpiresAt)
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving refreshed tokens: %w", err)
	}
	slog.Debug("saved refreshed tokens", "expires_at", c.ExpiresAt)
	return nil
}

// openStore opens the history database.
func openStore() (*store.Store, error) {
	st, err := store.Open(flagStore)
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", flagStore, err)
	}
	return st, nil
}

// loadData is the shared loading path for read-only commands. The store
// only serves as a fetch cache here, so a failure to open it is logged
// unless --offline needs it.
func loadData() (*pipeline.LoadResult, config.Config, error) {
	cfg := loadConfig()

	st, err := openStore()
	if err != nil {
		if flagOffline {
			return nil, cfg, err
		}
		slog.Warn("fetch cache unavailable", "error", err)
	} else {
		defer func() { _ = st.Close() }()
	}

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	result, err := loadReport(ctx, cfg, st)
	return result, cfg, err
}

// loadReport runs the pipeline with the shared flags. st may be nil.
func loadReport(ctx context.Context, cfg config.Config, st *store.Store) (*pipeline.LoadResult, error) {
	usesAPI := len(flagInputs) == 0 && !flagOffline
	if usesAPI && !config.HasCredentials(cfg) {
		printNoCredentials(os.Stderr)
		return nil, asleep.ErrNoCredentials
	}

	opts := pipeline.LoadOptions{
		Days:    resolveDays(cfg),
		Inputs:  flagInputs,
		Offline: flagOffline,
	}
	if st != nil {
		opts.Cache = st
	}
	if usesAPI {
		opts.Fetcher = newSource(cfg)
	}
	if len(flagInputs) > 0 && !flagQuiet {
		opts.Progress = func(current, total int) {
			fmt.Fprintf(os.Stderr, "\r  Parsing [%d/%d]", current, total)
			if current == total {
				fmt.Fprintln(os.Stderr)
			}
		}
	}

	start := time.Now()
	result, err := pipeline.Load(ctx, opts)
	if err != nil {
		return nil, err
	}
	slog.Debug("loaded report",
		"origin", result.Origin,
		"stale", result.Stale,
		"nights", len(result.Report.WakeDates),
		"elapsed", time.Since(start).Round(time.Millisecond))
	if result.Stale {
		slog.Warn("showing cached data", "fetched_at", result.FetchedAt.Format(time.RFC3339))
	}
	return result, nil
}

// writeData encodes v as JSON or YAML.
func writeData(w io.Writer, format string, v any) error {
	if format == formatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// printNoCredentials writes the setup hint to w. Commands pass stderr so
// that stdout only ever carries report data.
func printNoCredentials(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  No Asleep credentials configured.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Configure them with:")
	fmt.Fprintln(w, "    asleep setup                                         (interactive)")
	fmt.Fprintln(w, "    asleep setup --user-id ID --access-token TOKEN       (non-interactive)")
	fmt.Fprintln(w, "    ASLEEP_USER_ID=... ASLEEP_ACCESS_TOKEN=... asleep    (one-shot)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Or convert a saved payload with --input FILE.")
	fmt.Fprintln(w)
}

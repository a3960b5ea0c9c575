package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/theirongolddev/asleep/internal/asleep"
	"github.com/theirongolddev/asleep/internal/cli"
	"github.com/theirongolddev/asleep/internal/config"
	"github.com/theirongolddev/asleep/internal/source"
	"github.com/theirongolddev/asleep/internal/store"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check credentials, API access, and local history",
	RunE:  runStatus,
}

var flagStatusNoPing bool

func init() {
	statusCmd.Flags().BoolVar(&flagStatusNoPing, "no-ping", false, "Skip the live API check")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfg := loadConfig()
	if !config.HasCredentials(cfg) {
		printNoCredentials(os.Stderr)
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("ASLEEP STATUS"))
	fmt.Println()

	rows := [][]string{
		{"User", config.GetUserID(cfg)},
		{"Access token", cli.MaskSecret(config.GetAccessToken(cfg))},
		{"Token expiry", tokenExpiryLabel(config.TokenExpiry(cfg), time.Now())},
	}
	if config.GetRefreshToken(cfg) == "" {
		rows = append(rows, []string{"Refresh token", "not configured"})
	} else {
		rows = append(rows, []string{"Refresh token", "configured"})
	}
	if !flagStatusNoPing {
		rows = append(rows, []string{"API", pingAPI(cfg)})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Account",
		Headers: []string{"Setting", "Value"},
		Rows:    rows,
	}))

	st, err := openStore()
	if err != nil {
		warnStyle := lipgloss.NewStyle().Foreground(cli.ColorOrange)
		fmt.Printf("  %s\n\n", warnStyle.Render(err.Error()))
		return nil
	}
	defer func() { _ = st.Close() }()

	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Local Data",
		Headers: []string{"Item", "Value"},
		Rows:    storeRows(st),
	}))
	return nil
}

// pingAPI fetches one day of data to check the credentials end to end.
func pingAPI(cfg config.Config) string {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	payload, err := newSource(cfg).Fetch(ctx, 1)
	switch {
	case errors.Is(err, asleep.ErrUnauthorized):
		return "token rejected, run `asleep setup`"
	case errors.Is(err, asleep.ErrRateLimited):
		return "rate limited, try again in a minute"
	case err != nil:
		return "error: " + err.Error()
	}
	if _, err := source.Parse(payload); err != nil {
		return "unexpected response: " + err.Error()
	}
	return "ok"
}

func storeRows(st *store.Store) [][]string {
	var rows [][]string

	f, err := st.LastFetch()
	switch {
	case errors.Is(err, store.ErrNoFetch):
		rows = append(rows, []string{"Cached payload", "none"})
	case err != nil:
		rows = append(rows, []string{"Cached payload", "error: " + err.Error()})
	default:
		rows = append(rows, []string{"Cached payload",
			fmt.Sprintf("%d days, %s ago", f.Days, formatCountdown(time.Since(f.FetchedAt)))})
	}

	h, err := st.History()
	if err != nil {
		return append(rows, []string{"History", "error: " + err.Error()})
	}
	rows = append(rows, []string{"Processed sessions", cli.FormatNumber(int64(len(h.ProcessedSessions)))})
	if g, ok, err := st.LastGeneration(); err == nil && ok {
		rows = append(rows, []string{"Last generation",
			fmt.Sprintf("%s (%s ago)", g.SessionID, formatCountdown(time.Since(g.GeneratedAt)))})
	}
	return rows
}

func tokenExpiryLabel(exp, now time.Time) string {
	if exp.IsZero() {
		return "unknown"
	}
	d := exp.Sub(now)
	if d <= 0 {
		return "expired " + formatCountdown(-d) + " ago"
	}
	return "in " + formatCountdown(d)
}

func formatCountdown(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h >= 48 {
		return fmt.Sprintf("%dd", h/24)
	}
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/theirongolddev/asleep/internal/config"
	"github.com/theirongolddev/asleep/internal/log"
	"github.com/theirongolddev/asleep/internal/pipeline"
	"github.com/theirongolddev/asleep/internal/tui"
	"github.com/theirongolddev/asleep/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive sleep dashboard",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	// Log to a file; stderr output would corrupt the alt screen.
	logFile, err := log.SetupFile(filepath.Join(pipeline.CacheDir(), "tui.log"), flagVerbose)
	if err != nil {
		return fmt.Errorf("opening tui log: %w", err)
	}
	defer func() { _ = logFile.Close() }()

	cfg := loadConfig()
	theme.SetActive(cfg.Appearance.Theme)

	// Force TrueColor profile so all background styling produces ANSI codes
	// Without this, lipgloss may default to Ascii profile (no colors)
	lipgloss.SetColorProfile(termenv.TrueColor)

	app := tui.NewApp(tuiLoader, flagDays)
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}

// tuiLoader re-reads the config on every call so credentials saved from
// the setup form or the settings tab take effect without a restart.
func tuiLoader(ctx context.Context, days int, progress pipeline.ProgressFunc) (*pipeline.LoadResult, error) {
	cfg := loadConfig()

	opts := pipeline.LoadOptions{
		Days:     days,
		Inputs:   flagInputs,
		Offline:  flagOffline,
		Progress: progress,
	}
	if len(flagInputs) == 0 && !flagOffline && config.HasCredentials(cfg) {
		opts.Fetcher = newSource(cfg)
	}

	st, err := openStore()
	if err != nil {
		slog.Warn("fetch cache unavailable", "error", err)
	} else {
		defer func() { _ = st.Close() }()
		opts.Cache = st
	}

	return pipeline.Load(ctx, opts)
}

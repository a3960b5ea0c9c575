package cmd

import (
	"fmt"

	"github.com/theirongolddev/asleep/internal/cli"
	"github.com/theirongolddev/asleep/internal/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Default days:   %d\n", cfg.General.DefaultDays)
	fmt.Printf("    Output format:  %s\n", cfg.General.OutputFormat)
	fmt.Println()

	fmt.Println("  [Asleep]")
	fmt.Printf("    User ID:        %s\n", orUnset(config.GetUserID(cfg)))
	fmt.Printf("    Access token:   %s\n", maskedOrUnset(config.GetAccessToken(cfg)))
	fmt.Printf("    Refresh token:  %s\n", maskedOrUnset(config.GetRefreshToken(cfg)))
	if exp := config.TokenExpiry(cfg); !exp.IsZero() {
		fmt.Printf("    Token expires:  %s\n", exp.Local().Format("2006-01-02 15:04"))
	}
	if base := config.GetBaseURL(cfg); base != "" {
		fmt.Printf("    Base URL:       %s\n", base)
	}
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Address:  %s\n", cfg.Daemon.Addr)
	fmt.Printf("    Interval: %ds\n", cfg.Daemon.IntervalSec)
	fmt.Println()

	fmt.Println("  [TUI]")
	fmt.Printf("    Auto refresh: %v (every %ds)\n", cfg.TUI.AutoRefresh, cfg.TUI.RefreshIntervalSec)
	fmt.Println()

	fmt.Println("  Run `asleep setup` to reconfigure.")
	return nil
}

func orUnset(s string) string {
	if s == "" {
		return "not configured"
	}
	return s
}

func maskedOrUnset(s string) string {
	if s == "" {
		return "not configured"
	}
	return cli.MaskSecret(s)
}

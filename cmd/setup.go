package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/theirongolddev/asleep/internal/cli"
	"github.com/theirongolddev/asleep/internal/config"
	"github.com/theirongolddev/asleep/internal/tui/theme"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Store Asleep API credentials",
	Long: "Store the Asleep user id and tokens in the config file. " +
		"Without flags an interactive form is shown.",
	RunE: runSetup,
}

var (
	flagSetupUserID       string
	flagSetupAccessToken  string
	flagSetupRefreshToken string
)

func init() {
	setupCmd.Flags().StringVar(&flagSetupUserID, "user-id", "", "Asleep user id")
	setupCmd.Flags().StringVar(&flagSetupAccessToken, "access-token", "", "API access token")
	setupCmd.Flags().StringVar(&flagSetupRefreshToken, "refresh-token", "", "API refresh token")
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, _ []string) error {
	cfg := loadConfig()

	flagged := cmd.Flags().Changed("user-id") || cmd.Flags().Changed("access-token") ||
		cmd.Flags().Changed("refresh-token")
	if flagged {
		if flagSetupUserID == "" || flagSetupAccessToken == "" {
			return errors.New("--user-id and --access-token are both required")
		}
		cfg.Asleep.UserID = flagSetupUserID
		cfg.Asleep.AccessToken = flagSetupAccessToken
		cfg.Asleep.RefreshToken = flagSetupRefreshToken
	} else if err := runSetupForm(&cfg); err != nil {
		return err
	}
	// A hand-entered token has no known expiry.
	cfg.Asleep.TokenExpiresAt = ""

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved credentials for user %s to %s\n", cfg.Asleep.UserID, config.ConfigPath())
	fmt.Println("  Run `asleep` to fetch your sleep insight.")
	fmt.Println()
	return nil
}

func runSetupForm(cfg *config.Config) error {
	userID := cfg.Asleep.UserID
	var accessToken, refreshToken string
	days := cfg.General.DefaultDays
	themeName := cfg.Appearance.Theme

	notBlank := func(field string) func(string) error {
		return func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New(field + " is required")
			}
			return nil
		}
	}

	tokenHint := "Paste the token from the Asleep dashboard."
	if cfg.Asleep.AccessToken != "" {
		tokenHint = "Current: " + cli.MaskSecret(cfg.Asleep.AccessToken) + ". Leave empty to keep it."
	}

	themeOpts := make([]huh.Option[string], len(theme.All))
	for i, t := range theme.All {
		themeOpts[i] = huh.NewOption(t.Name, t.Name)
	}

	accessInput := huh.NewInput().
		Title("Access token").
		Description(tokenHint).
		EchoMode(huh.EchoModePassword).
		Value(&accessToken)
	if cfg.Asleep.AccessToken == "" {
		accessInput = accessInput.Validate(notBlank("access token"))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("User ID").
				Value(&userID).
				Validate(notBlank("user id")),
			accessInput,
			huh.NewInput().
				Title("Refresh token").
				Description("Optional. Lets asleep renew the access token when it expires.").
				EchoMode(huh.EchoModePassword).
				Value(&refreshToken),
		),
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Days to fetch").
				Options(
					huh.NewOption("7 days", 7),
					huh.NewOption("14 days", 14),
					huh.NewOption("30 days", 30),
				).
				Value(&days),
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themeOpts...).
				Value(&themeName),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return errors.New("setup cancelled")
		}
		return err
	}

	cfg.Asleep.UserID = strings.TrimSpace(userID)
	if v := strings.TrimSpace(accessToken); v != "" {
		cfg.Asleep.AccessToken = v
	}
	if v := strings.TrimSpace(refreshToken); v != "" {
		cfg.Asleep.RefreshToken = v
	}
	cfg.General.DefaultDays = days
	cfg.Appearance.Theme = themeName
	return nil
}

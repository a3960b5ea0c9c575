package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/theirongolddev/asleep/internal/config"
	"github.com/theirongolddev/asleep/internal/tui/theme"
)

// setupValues backs the first-run form fields.
type setupValues struct {
	userID       string
	accessToken  string
	refreshToken string
	days         int
	theme        string
}

func setupValuesFrom(cfg config.Config) setupValues {
	return setupValues{
		userID:       cfg.Asleep.UserID,
		accessToken:  cfg.Asleep.AccessToken,
		refreshToken: cfg.Asleep.RefreshToken,
		days:         cfg.General.DefaultDays,
		theme:        cfg.Appearance.Theme,
	}
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(field + " is required")
		}
		return nil
	}
}

func newSetupForm(vals *setupValues) *huh.Form {
	themeOpts := make([]huh.Option[string], len(theme.All))
	for i, t := range theme.All {
		themeOpts[i] = huh.NewOption(t.Name, t.Name)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to asleep").
				Description("Connect your Asleep account to see nightly sleep insight.\n"+
					"Credentials are stored in "+config.ConfigPath()),
			huh.NewInput().
				Title("User ID").
				Value(&vals.userID).
				Validate(required("user id")),
			huh.NewInput().
				Title("Access token").
				EchoMode(huh.EchoModePassword).
				Value(&vals.accessToken).
				Validate(required("access token")),
			huh.NewInput().
				Title("Refresh token").
				Description("Optional. Lets asleep renew the access token when it expires.").
				EchoMode(huh.EchoModePassword).
				Value(&vals.refreshToken),
		),
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Days to fetch").
				Options(
					huh.NewOption("7 days", 7),
					huh.NewOption("14 days", 14),
					huh.NewOption("30 days", 30),
				).
				Value(&vals.days),
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themeOpts...).
				Value(&vals.theme),
		),
	).WithShowHelp(true)
}

func (a *App) saveSetupConfig() error {
	cfg := loadConfigOrDefault()

	cfg.Asleep.UserID = strings.TrimSpace(a.setupVals.userID)
	cfg.Asleep.AccessToken = strings.TrimSpace(a.setupVals.accessToken)
	cfg.Asleep.RefreshToken = strings.TrimSpace(a.setupVals.refreshToken)
	// A hand-entered token has no known expiry.
	cfg.Asleep.TokenExpiresAt = ""

	if a.setupVals.days > 0 {
		cfg.General.DefaultDays = a.setupVals.days
		a.days = a.setupVals.days
	}
	if a.setupVals.theme != "" {
		cfg.Appearance.Theme = a.setupVals.theme
		theme.SetActive(a.setupVals.theme)
	}

	return config.Save(cfg)
}

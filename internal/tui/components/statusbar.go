package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/asleep/internal/tui/theme"
)

// Status is what the bottom bar reports about the loaded data.
type Status struct {
	DataAge     string
	Origin      string
	Stale       bool
	Refreshing  bool
	AutoRefresh bool
	Err         string
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, st Status) string {
	t := theme.Active

	base := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	warn := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)
	accent := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)

	left := base.Render(" [?]help  [r]efresh  [q]uit")

	var right []string
	switch {
	case st.Err != "":
		right = append(right, warn.Render(st.Err))
	case st.Refreshing:
		right = append(right, accent.Render("refreshing…"))
	}
	if st.Stale {
		right = append(right, warn.Render("stale"))
	}
	if st.Origin != "" {
		right = append(right, base.Render(st.Origin))
	}
	if st.AutoRefresh {
		right = append(right, accent.Render("auto"))
	}
	if st.DataAge != "" {
		right = append(right, base.Render("updated "+st.DataAge))
	}
	r := strings.Join(right, base.Render("  ")) + base.Render(" ")

	padding := width - lipgloss.Width(left) - lipgloss.Width(r)
	if padding < 0 {
		padding = 0
	}

	return left + base.Render(strings.Repeat(" ", padding)) + r
}

package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/asleep/internal/cli"
	"github.com/theirongolddev/asleep/internal/model"
	"github.com/theirongolddev/asleep/internal/pipeline"
	"github.com/theirongolddev/asleep/internal/tui/components"
	"github.com/theirongolddev/asleep/internal/tui/theme"
)

// Nights view modes; split is the zero value so it's the default.
const (
	nightViewSplit  = iota // list + detail side by side
	nightViewDetail        // full-screen detail
)

// nightsState holds the nights tab state.
type nightsState struct {
	cursor       int
	viewMode     int
	offset       int
	detailScroll int
}

// updateNightsKey handles keys specific to the nights tab.
func (a App) updateNightsKey(key string) (App, tea.Cmd, bool) {
	compact := a.isCompactLayout()

	switch key {
	case "q":
		if !compact && a.nightState.viewMode == nightViewDetail {
			a.nightState.viewMode = nightViewSplit
			return a, nil, true
		}
		return a, tea.Quit, true
	case "enter", "f":
		if !compact && a.nightState.viewMode == nightViewSplit {
			a.nightState.viewMode = nightViewDetail
		}
		return a, nil, true
	case "esc":
		if a.nightState.viewMode == nightViewDetail {
			a.nightState.viewMode = nightViewSplit
		}
		return a, nil, true
	case "j", "down":
		if a.nightState.cursor < len(a.nights)-1 {
			a.nightState.cursor++
			a.nightState.detailScroll = 0
		}
		return a, nil, true
	case "k", "up":
		if a.nightState.cursor > 0 {
			a.nightState.cursor--
			a.nightState.detailScroll = 0
		}
		return a, nil, true
	case "g":
		a.nightState.cursor = 0
		a.nightState.offset = 0
		a.nightState.detailScroll = 0
		return a, nil, true
	case "G":
		a.nightState.cursor = max(0, len(a.nights)-1)
		a.nightState.detailScroll = 0
		return a, nil, true
	case "J":
		a.nightState.detailScroll++
		return a, nil, true
	case "K":
		if a.nightState.detailScroll > 0 {
			a.nightState.detailScroll--
		}
		return a, nil, true
	case "ctrl+d":
		a.nightState.detailScroll += a.halfPage()
		return a, nil, true
	case "ctrl+u":
		a.nightState.detailScroll = max(0, a.nightState.detailScroll-a.halfPage())
		return a, nil, true
	}
	return a, nil, false
}

func (a App) halfPage() int {
	return max(minHalfPageScroll, (a.height-scrollOverhead)/2)
}

func (a App) renderNightsContent(cw, h int) string {
	t := theme.Active

	if len(a.nights) == 0 {
		return components.ContentCard("Nights", lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Render("No nights in window"), cw)
	}
	if a.nightState.cursor >= len(a.nights) {
		return ""
	}

	if a.isCompactLayout() || a.nightState.viewMode == nightViewDetail {
		return a.renderNightDetailCard(cw, h)
	}
	return a.renderNightsSplit(cw, h)
}

func (a App) renderNightsSplit(cw, h int) string {
	t := theme.Active
	ns := a.nightState

	leftW := cw / 3
	if leftW < 34 {
		leftW = 34
	}
	rightW := cw - leftW
	leftInner := components.CardInnerWidth(leftW)

	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceBright).Bold(true)

	visible := h - 4 // card border (2) + title (1) + slack
	if visible < 5 {
		visible = 5
	}

	offset := ns.offset
	if ns.cursor < offset {
		offset = ns.cursor
	}
	if ns.cursor >= offset+visible {
		offset = ns.cursor - visible + 1
	}
	end := min(offset+visible, len(a.nights))

	var leftBody strings.Builder
	for i := offset; i < end; i++ {
		s := a.nights[i]
		label := pipeline.WakeDateLabel(s)
		score := "  -"
		if s.SleepIndex.Valid {
			score = fmt.Sprintf("%3d", int64(s.SleepIndex.Value))
		}
		total := orNA(cli.FormatSleepDuration(s.TimeInSleep))

		line := fmt.Sprintf("%-16s %s  %s", label, score, total)
		line = truncStr(line, leftInner)
		if i == ns.cursor {
			line += strings.Repeat(" ", max(0, leftInner-lipgloss.Width(line)))
			leftBody.WriteString(selectedStyle.Render(line))
		} else {
			leftBody.WriteString(rowStyle.Render(line))
		}
		if i < end-1 {
			leftBody.WriteString("\n")
		}
	}

	leftCard := components.ContentCard(fmt.Sprintf("Nights [%d]", len(a.nights)), leftBody.String(), leftW)
	rightCard := a.renderNightDetailCard(rightW, h)

	return components.CardRow([]string{leftCard, rightCard})
}

func (a App) renderNightDetailCard(w, h int) string {
	sel := a.nights[a.nightState.cursor]

	body := a.renderNightDetailBody(sel, w)
	lines := strings.Split(body, "\n")
	scroll := min(a.nightState.detailScroll, max(0, len(lines)-1))
	body = strings.Join(lines[scroll:], "\n")
	body = truncateHeight(body, max(1, h-3))

	return components.ContentCard("Night of "+pipeline.WakeDateLabel(sel), body, w)
}

// previousNight returns the night before the selected one, if any.
func (a App) previousNight() (model.Session, bool) {
	i := a.nightState.cursor + 1
	if i >= len(a.nights) {
		return model.Session{}, false
	}
	return a.nights[i], true
}

// renderNightDetailBody renders every field of one night, with the change
// against the night before it.
func (a App) renderNightDetailBody(sel model.Session, w int) string {
	t := theme.Active
	innerW := components.CardInnerWidth(w)

	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	var delta model.Delta
	if prev, ok := a.previousNight(); ok {
		delta = pipeline.CalculateDelta(sel, prev)
	}

	clock := func(ts model.Timestamp) string {
		tm, _ := pipeline.ToLocalTime(string(ts))
		return cli.FormatClock(tm)
	}
	dur := func(n model.Number) string { return orNA(cli.FormatSleepDuration(n)) }
	pct := func(n model.Number) string { return orNA(cli.FormatRatio(n)) }

	score := model.NotAvailable
	if v, err := cli.FormatScore(sel.SleepIndex); err == nil && v != nil {
		score = cli.FormatCell(v)
	}

	rows := []struct {
		label, value, deltaKey string
	}{
		{"Sleep score", score, "sleep_score"},
		{"Fell asleep", clock(sel.SleepTime), "sleep_time"},
		{"Woke up", clock(sel.WakeTime), "wake_time"},
		{"Latency", dur(sel.SleepLatency), "sleep_latency"},
		{"Total sleep", dur(sel.TimeInSleep), "time_in_sleep"},
		{"Deep sleep", dur(sel.TimeInDeep), "time_in_deep"},
		{"REM sleep", dur(sel.TimeInREM), "time_in_rem"},
		{"Snoring", dur(sel.TimeInSnoring), "time_in_snoring"},
		{"Efficiency", pct(sel.SleepEfficiency), "sleep_efficiency"},
		{"REM ratio", pct(sel.REMRatio), "rem_ratio"},
		{"Deep ratio", pct(sel.DeepRatio), "deep_ratio"},
	}

	var body strings.Builder
	body.WriteString(mutedStyle.Render("id " + sel.ID))
	body.WriteString("\n")
	body.WriteString(mutedStyle.Render(strings.Repeat("─", innerW)))
	body.WriteString("\n")
	body.WriteString(headerStyle.Render(fmt.Sprintf("%-14s %-16s %s", "Field", "Value", "Δ prev night")))
	body.WriteString("\n")

	for _, r := range rows {
		body.WriteString(labelStyle.Render(fmt.Sprintf("%-14s ", r.label)))
		body.WriteString(valueStyle.Render(fmt.Sprintf("%-16s ", r.value)))
		if v, ok := delta[r.deltaKey]; ok {
			body.WriteString(lipgloss.NewStyle().Foreground(deltaColor(v)).Background(t.Surface).Render(v))
		} else {
			body.WriteString(mutedStyle.Render("-"))
		}
		body.WriteString("\n")
	}

	body.WriteString("\n")
	body.WriteString(mutedStyle.Render("[Enter] expand  [j/k] navigate  [J/K] scroll  [q] quit"))

	return body.String()
}

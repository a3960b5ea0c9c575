package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/asleep/internal/cli"
	"github.com/theirongolddev/asleep/internal/model"
	"github.com/theirongolddev/asleep/internal/pipeline"
	"github.com/theirongolddev/asleep/internal/tui/components"
	"github.com/theirongolddev/asleep/internal/tui/theme"
)

// latestCell returns the newest daily value of a report metric.
func latestCell(r *model.Report, key string) string {
	if r == nil {
		return model.NotAvailable
	}
	s := r.Series(key)
	if s == nil || len(s.Daily) == 0 {
		return model.NotAvailable
	}
	return cli.FormatCell(s.Daily[len(s.Daily)-1])
}

func (a App) deltaSub(deltaKey string) string {
	if v, ok := a.delta[deltaKey]; ok {
		return v + " vs prev"
	}
	return ""
}

func (a App) renderOverviewTab(cw int) string {
	t := theme.Active
	r := a.report()
	var b strings.Builder

	// Row 1: latest night headline cards
	scoreColor := t.TextPrimary
	if len(a.nights) > 0 && a.nights[0].SleepIndex.Valid {
		scoreColor = t.ScoreColor(a.nights[0].SleepIndex.Value)
	}

	lastWake := "no nights"
	if len(r.WakeDates) > 0 {
		lastWake = r.WakeDates[len(r.WakeDates)-1]
	}

	cards := []components.Card{
		{Label: "Sleep score", Value: latestCell(r, pipeline.KeySleepScore), Sub: a.deltaSub("sleep_score"), Color: scoreColor},
		{Label: "Total sleep", Value: latestCell(r, pipeline.KeyTotalSleepTime), Sub: a.deltaSub("time_in_sleep")},
		{Label: "Fell asleep", Value: latestCell(r, pipeline.KeySleepOnsetTime), Sub: a.deltaSub("sleep_time")},
		{Label: "Woke up", Value: latestCell(r, pipeline.KeyWakeUpTime), Sub: lastWake},
	}
	if a.isCompactLayout() {
		b.WriteString(components.MetricCardRow(cards[:2], cw))
		b.WriteString("\n")
		b.WriteString(components.MetricCardRow(cards[2:], cw))
	} else {
		b.WriteString(components.MetricCardRow(cards, cw))
	}
	b.WriteString("\n")

	// Row 2: metric summary table + last night's ratios
	if a.isCompactLayout() {
		b.WriteString(components.ContentCard("Last Night vs Window", a.renderSummaryBody(components.CardInnerWidth(cw)), cw))
		b.WriteString("\n")
		b.WriteString(components.ContentCard("Sleep Quality", a.renderRatioBody(cw), cw))
		return b.String()
	}

	widths := []int{cw * 3 / 5, cw - cw*3/5}
	b.WriteString(components.CardRow([]string{
		components.ContentCard("Last Night vs Window", a.renderSummaryBody(components.CardInnerWidth(widths[0])), widths[0]),
		components.ContentCard("Sleep Quality", a.renderRatioBody(widths[1]), widths[1]),
	}))

	return b.String()
}

// renderSummaryBody lists every metric with its latest value, monthly
// average, window trend and change against the previous night.
func (a App) renderSummaryBody(innerW int) string {
	t := theme.Active
	r := a.report()

	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	labelW, valueW, avgW := 14, 15, 15
	trendW := innerW - labelW - valueW - avgW - 12
	if trendW < 10 {
		trendW = 10
	}

	var body strings.Builder
	body.WriteString(headerStyle.Render(fmt.Sprintf("%-*s %-*s %-*s %-*s %s",
		labelW, "Metric", valueW, "Latest", avgW, "Month avg", trendW, "Trend", "Δ prev")))
	body.WriteString("\n")
	body.WriteString(mutedStyle.Render(strings.Repeat("─", innerW)))
	body.WriteString("\n")

	for _, m := range pipeline.Metrics() {
		avg := "-"
		var trend model.Trend
		if s := r.Series(m.Key); s != nil {
			if s.MonthAvg != nil {
				avg = *s.MonthAvg
			}
			trend = s.Trend
		}
		trendLabel := string(trend)
		if trendLabel == "" {
			trendLabel = "-"
		}
		trendStyle := lipgloss.NewStyle().Foreground(t.TrendColor(trend)).Background(t.Surface)

		delta := "-"
		deltaStyle := mutedStyle
		if v, ok := a.delta[m.DeltaKey]; ok {
			delta = v
			deltaStyle = lipgloss.NewStyle().Foreground(deltaColor(v)).Background(t.Surface)
		}

		body.WriteString(labelStyle.Render(fmt.Sprintf("%-*s ", labelW, m.Label)))
		body.WriteString(valueStyle.Render(fmt.Sprintf("%-*s ", valueW, truncStr(latestCell(r, m.Key), valueW))))
		body.WriteString(labelStyle.Render(fmt.Sprintf("%-*s ", avgW, truncStr(avg, avgW))))
		body.WriteString(trendStyle.Render(fmt.Sprintf("%-*s ", trendW, truncStr(trendLabel, trendW))))
		body.WriteString(deltaStyle.Render(delta))
		body.WriteString("\n")
	}

	return strings.TrimRight(body.String(), "\n")
}

// renderRatioBody draws last night's efficiency and stage ratios.
func (a App) renderRatioBody(outerW int) string {
	t := theme.Active
	innerW := components.CardInnerWidth(outerW)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	if len(a.nights) == 0 {
		return mutedStyle.Render("No nights in window")
	}
	last := a.nights[0]

	labelW := 11
	barW := innerW - labelW - 6
	if barW < 8 {
		barW = 8
	}

	ratios := []struct {
		label string
		n     model.Number
	}{
		{"Efficiency", last.SleepEfficiency},
		{"REM", last.REMRatio},
		{"Deep", last.DeepRatio},
	}

	var body strings.Builder
	for _, r := range ratios {
		v := -1.0
		if r.n.Valid {
			v = r.n.Value
		}
		body.WriteString(components.RatioBar(r.label, v, labelW, barW))
		body.WriteString("\n")
	}

	body.WriteString("\n")
	body.WriteString(mutedStyle.Render(fmt.Sprintf("Latency %s · Snoring %s",
		orNA(cli.FormatSleepDuration(last.SleepLatency)),
		orNA(cli.FormatSleepDuration(last.TimeInSnoring)))))

	return body.String()
}

// orNA collapses a formatter error to the placeholder.
func orNA(s string, err error) string {
	if err != nil {
		return model.NotAvailable
	}
	return s
}

// deltaColor colors a signed delta string by its sign.
func deltaColor(v string) lipgloss.Color {
	t := theme.Active
	switch {
	case strings.HasPrefix(v, "+"):
		return t.Green
	case strings.HasPrefix(v, "-"):
		return t.Red
	default:
		return t.TextMuted
	}
}

package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/asleep/internal/model"
	"github.com/theirongolddev/asleep/internal/pipeline"
	"github.com/theirongolddev/asleep/internal/tui/components"
	"github.com/theirongolddev/asleep/internal/tui/theme"
)

func (a App) renderTrendsTab(cw int) string {
	t := theme.Active
	r := a.report()
	var b strings.Builder

	// Score per night
	scores, _ := pipeline.MetricValues(a.window, pipeline.KeySleepScore)
	chartH := 8
	if a.isCompactLayout() {
		chartH = 6
	}
	b.WriteString(components.ContentCard(
		fmt.Sprintf("Sleep Score (%d nights)", len(a.window)),
		components.BarChart(scores, shortWakeLabels(a.window), t.Blue, components.CardInnerWidth(cw), chartH),
		cw,
	))
	b.WriteString("\n")

	// One sparkline per metric
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	innerW := components.CardInnerWidth(cw)
	labelW := 14
	sparkW := max(len(a.window), 7)

	var body strings.Builder
	for _, m := range pipeline.Metrics() {
		values, _ := pipeline.MetricValues(a.window, m.Key)

		var trend model.Trend
		if s := r.Series(m.Key); s != nil {
			trend = s.Trend
		}
		trendLabel := string(trend)
		if trendLabel == "" {
			trendLabel = "-"
		}
		trendStyle := lipgloss.NewStyle().Foreground(t.TrendColor(trend)).Background(t.Surface)

		spark := components.Sparkline(values, sparkColor(m.Kind))
		pad := sparkW - len(values)

		body.WriteString(labelStyle.Render(fmt.Sprintf("%-*s ", labelW, m.Label)))
		body.WriteString(spark)
		body.WriteString(spaceStyle.Render(strings.Repeat(" ", max(0, pad)+2)))
		body.WriteString(trendStyle.Render(fmt.Sprintf("%-18s", trendLabel)))
		body.WriteString(dimStyle.Render(truncStr(seriesRange(m.Kind, values), max(0, innerW-labelW-sparkW-22))))
		body.WriteString("\n")
	}
	body.WriteString("\n")
	body.WriteString(dimStyle.Render("Trends compare the last three nights with a value; clock times are shown relative to the first night."))

	b.WriteString(components.ContentCard("Metric Trends", body.String(), cw))
	return b.String()
}

func sparkColor(kind pipeline.MetricKind) lipgloss.Color {
	t := theme.Active
	switch kind {
	case pipeline.MetricTime:
		return t.Magenta
	case pipeline.MetricPercentage:
		return t.Green
	case pipeline.MetricScore:
		return t.Blue
	default:
		return t.Accent
	}
}

// seriesRange summarizes the spread of a series in the metric's units.
func seriesRange(kind pipeline.MetricKind, values []float64) string {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		return ""
	}

	switch kind {
	case pipeline.MetricTime:
		return fmt.Sprintf("spread %.0f min", hi-lo)
	case pipeline.MetricDuration:
		return fmt.Sprintf("%.0f–%.0f min", lo/60, hi/60)
	case pipeline.MetricPercentage:
		return fmt.Sprintf("%.0f–%.0f%%", lo*100, hi*100)
	default:
		return fmt.Sprintf("%.0f–%.0f", lo, hi)
	}
}

package cmd

import (
	"fmt"
	"os"

	"github.com/theirongolddev/asleep/internal/cli"
	"github.com/theirongolddev/asleep/internal/model"
	"github.com/theirongolddev/asleep/internal/pipeline"

	"github.com/spf13/cobra"
)

var nightsCmd = &cobra.Command{
	Use:   "nights",
	Short: "List fetched sleep sessions, newest first",
	RunE:  runNights,
}

var nightsLimit int

func init() {
	nightsCmd.Flags().IntVarP(&nightsLimit, "limit", "l", 20, "Number of sessions to show")
	rootCmd.AddCommand(nightsCmd)
}

type nightRow struct {
	ID         string `json:"id" yaml:"id"`
	WakeDate   string `json:"wake_date" yaml:"wake_date"`
	FellAsleep string `json:"fell_asleep" yaml:"fell_asleep"`
	WokeUp     string `json:"woke_up" yaml:"woke_up"`
	TotalSleep string `json:"total_sleep" yaml:"total_sleep"`
	Efficiency string `json:"efficiency" yaml:"efficiency"`
	Score      string `json:"score" yaml:"score"`
}

func runNights(_ *cobra.Command, _ []string) error {
	result, cfg, err := loadData()
	if err != nil {
		return err
	}
	format, err := resolveFormat(cfg)
	if err != nil {
		return err
	}

	sorted := pipeline.SortSessions(result.Fetch.Result.SleptSessions)
	rows := make([]nightRow, 0, len(sorted))
	for i := len(sorted) - 1; i >= 0; i-- {
		if nightsLimit > 0 && len(rows) == nightsLimit {
			break
		}
		rows = append(rows, newNightRow(sorted[i]))
	}

	if format != formatTable {
		return writeData(os.Stdout, format, rows)
	}

	if len(rows) == 0 {
		fmt.Println("\n  No sessions found.")
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("NIGHTS  (showing %d of %d)", len(rows), len(sorted))))
	fmt.Println()

	tableRows := make([][]string, 0, len(rows))
	for _, r := range rows {
		tableRows = append(tableRows, []string{
			r.WakeDate, r.FellAsleep, r.WokeUp, r.TotalSleep, r.Efficiency, r.Score, truncate(r.ID, 14),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Wake date", "Asleep", "Awake", "Total", "Eff.", "Score", "ID"},
		Rows:    tableRows,
	}))

	return nil
}

func newNightRow(s model.Session) nightRow {
	clock := func(ts model.Timestamp) string {
		if t, ok := pipeline.ToLocalTime(string(ts)); ok {
			return cli.FormatClock(t)
		}
		return model.NotAvailable
	}
	total, err := cli.FormatSleepDuration(s.TimeInSleep)
	if err != nil {
		total = model.NotAvailable
	}
	eff, err := cli.FormatRatio(s.SleepEfficiency)
	if err != nil {
		eff = model.NotAvailable
	}
	score := model.NotAvailable
	if v, err := cli.FormatScore(s.SleepIndex); err == nil {
		score = cli.FormatCell(v)
	}

	return nightRow{
		ID:         s.ID,
		WakeDate:   pipeline.WakeDateLabel(s),
		FellAsleep: clock(s.SleepTime),
		WokeUp:     clock(s.WakeTime),
		TotalSleep: total,
		Efficiency: eff,
		Score:      score,
	}
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-1]) + "…"
}

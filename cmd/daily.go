package cmd

import (
	"fmt"
	"os"

	"github.com/theirongolddev/asleep/internal/cli"
	"github.com/theirongolddev/asleep/internal/model"
	"github.com/theirongolddev/asleep/internal/pipeline"

	"github.com/spf13/cobra"
)

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Per-night table of the report window",
	RunE:  runDaily,
}

func init() {
	rootCmd.AddCommand(dailyCmd)
}

// dailyRow is one reported night with every metric formatted.
type dailyRow struct {
	WakeDate string            `json:"wake_date" yaml:"wake_date"`
	Values   map[string]string `json:"values" yaml:"values"`
}

func runDaily(_ *cobra.Command, _ []string) error {
	result, cfg, err := loadData()
	if err != nil {
		return err
	}
	format, err := resolveFormat(cfg)
	if err != nil {
		return err
	}

	r := result.Report
	metrics := pipeline.Metrics()
	rows := make([]dailyRow, len(r.WakeDates))
	for i, date := range r.WakeDates {
		rows[i] = dailyRow{WakeDate: date, Values: make(map[string]string, len(metrics))}
		for _, m := range metrics {
			rows[i].Values[m.Key] = dailyCell(r, m.Key, i)
		}
	}

	if format != formatTable {
		return writeData(os.Stdout, format, rows)
	}

	if len(rows) == 0 {
		fmt.Println("\n  No sessions in the window.")
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("DAILY SLEEP  Last %d nights", len(rows))))
	fmt.Println()

	headers := []string{"Wake date"}
	for _, m := range metrics {
		headers = append(headers, m.Label)
	}
	tableRows := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells := []string{row.WakeDate}
		for _, m := range metrics {
			cells = append(cells, row.Values[m.Key])
		}
		tableRows = append(tableRows, cells)
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: headers,
		Rows:    tableRows,
	}))

	return nil
}

func dailyCell(r *model.Report, key string, i int) string {
	s := r.Series(key)
	if s == nil || i >= len(s.Daily) {
		return model.NotAvailable
	}
	return cli.FormatCell(s.Daily[i])
}

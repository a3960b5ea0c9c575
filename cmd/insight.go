package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/theirongolddev/asleep/internal/cli"
	"github.com/theirongolddev/asleep/internal/model"
	"github.com/theirongolddev/asleep/internal/pipeline"
	"github.com/theirongolddev/asleep/internal/store"

	"github.com/spf13/cobra"
)

var (
	flagCheckNew bool
	flagForce    bool
	flagHistory  bool
)

var insightCmd = &cobra.Command{
	Use:   "insight",
	Short: "Print the sleep insight report (default command)",
	RunE:  runInsight,
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, insightCmd} {
		c.Flags().BoolVar(&flagCheckNew, "check-new", false, "Only output when the latest session is new")
		c.Flags().BoolVar(&flagForce, "force", false, "Output and record even if the session was processed")
		c.Flags().BoolVar(&flagHistory, "history", false, "Print the generation history and exit")
	}
	rootCmd.AddCommand(insightCmd)
}

func runInsight(_ *cobra.Command, _ []string) error {
	cfg := loadConfig()
	format, err := resolveFormat(cfg)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		if flagHistory || flagCheckNew || flagForce || flagOffline {
			return err
		}
		slog.Warn("history unavailable", "error", err)
	} else {
		defer func() { _ = st.Close() }()
	}

	if flagHistory {
		return printHistory(st, format)
	}

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	result, err := loadReport(ctx, cfg, st)
	if err != nil {
		return err
	}
	latest := result.LatestID

	if flagCheckNew && !flagForce && latest != "" {
		processed, err := st.IsProcessed(latest)
		if err != nil {
			return err
		}
		if processed {
			slog.Info("session already processed, skipping", "session_id", latest)
			return nil
		}
		slog.Info("new session detected", "session_id", latest)
	}

	if err := printReport(result, format); err != nil {
		return err
	}

	if (flagCheckNew || flagForce) && latest != "" {
		gen, err := st.RecordGeneration(latest)
		if err != nil {
			return fmt.Errorf("recording generation: %w", err)
		}
		slog.Info("recorded generation", "session_id", latest, "generation_id", gen.ID)
	}
	return nil
}

func printHistory(st *store.Store, format string) error {
	h, err := st.History()
	if err != nil {
		return err
	}
	if format != formatTable {
		return writeData(os.Stdout, format, h)
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("GENERATION HISTORY"))
	fmt.Println()
	if len(h.History) == 0 {
		fmt.Println("  No generations recorded yet.")
		return nil
	}

	rows := make([][]string, 0, len(h.History))
	for _, g := range h.History {
		rows = append(rows, []string{
			g.GeneratedAt.In(pipeline.ReportLocation).Format("2006-01-02 15:04"),
			g.SessionID,
			g.ID,
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Generated (KST)", "Session", "Generation"},
		Rows:    rows,
	}))
	fmt.Printf("\n  %d processed sessions\n", len(h.ProcessedSessions))
	return nil
}

func printReport(result *pipeline.LoadResult, format string) error {
	if format != formatTable {
		return writeData(os.Stdout, format, result.Report)
	}

	r := result.Report
	window := pipeline.FilterWindow(pipeline.SortSessions(result.Fetch.Result.SleptSessions))

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("SLEEP INSIGHT  %d nights", len(r.WakeDates))))
	fmt.Println()
	if len(r.WakeDates) == 0 {
		fmt.Println("  No sessions in the window.")
		return nil
	}

	fmt.Printf("  %s → %s\n\n", r.WakeDates[0], r.WakeDates[len(r.WakeDates)-1])

	rows := make([][]string, 0, len(r.Metrics))
	for _, m := range pipeline.Metrics() {
		s := r.Series(m.Key)
		if s == nil {
			continue
		}
		latest := model.NotAvailable
		if len(s.Daily) > 0 {
			latest = cli.FormatCell(s.Daily[len(s.Daily)-1])
		}
		avg := "-"
		if s.MonthAvg != nil {
			avg = *s.MonthAvg
		}
		spark := ""
		if values, ok := pipeline.MetricValues(window, m.Key); ok {
			spark = cli.RenderSparkline(values)
		}
		rows = append(rows, []string{m.Label, latest, avg, string(s.Trend), spark})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Metric", "Latest", "Month avg", "Trend", "Nights"},
		Rows:    rows,
	}))

	footer := []string{string(result.Origin)}
	if !result.FetchedAt.IsZero() {
		footer = append(footer, "fetched "+result.FetchedAt.In(pipeline.ReportLocation).Format("01-02 15:04"))
	}
	if result.Stale {
		footer = append(footer, "stale")
	}
	fmt.Printf("\n  Source: %s\n", strings.Join(footer, ", "))
	return nil
}

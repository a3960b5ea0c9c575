package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/theirongolddev/asleep/internal/cli"
	"github.com/theirongolddev/asleep/internal/model"
	"github.com/theirongolddev/asleep/internal/pipeline"

	"github.com/spf13/cobra"
)

var deltaCmd = &cobra.Command{
	Use:   "delta",
	Short: "Compare two sleep sessions (default: the two newest)",
	RunE:  runDelta,
}

var (
	flagDeltaCurrent  string
	flagDeltaPrevious string
)

func init() {
	deltaCmd.Flags().StringVar(&flagDeltaCurrent, "current", "", "Session id to compare (default: newest)")
	deltaCmd.Flags().StringVar(&flagDeltaPrevious, "previous", "", "Session id to compare against (default: the one before --current)")
	rootCmd.AddCommand(deltaCmd)
}

func runDelta(_ *cobra.Command, _ []string) error {
	result, cfg, err := loadData()
	if err != nil {
		return err
	}
	format, err := resolveFormat(cfg)
	if err != nil {
		return err
	}

	cur, prev, err := pickDeltaPair(result.Fetch.Result.SleptSessions, flagDeltaCurrent, flagDeltaPrevious)
	if err != nil {
		return err
	}
	delta := pipeline.CalculateDelta(cur, prev)

	if format != formatTable {
		return writeData(os.Stdout, format, delta)
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("SLEEP DELTA"))
	fmt.Println()
	fmt.Printf("  %s  vs  %s\n\n", pipeline.WakeDateLabel(cur), pipeline.WakeDateLabel(prev))

	rows := make([][]string, 0, len(model.DeltaKeys))
	for _, k := range model.DeltaKeys {
		v, ok := delta[k]
		if !ok {
			continue
		}
		rows = append(rows, []string{k, cli.RenderDelta(v)})
	}
	if len(rows) == 0 {
		fmt.Println("  No metrics present in both sessions.")
		return nil
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Metric", "Change"},
		Rows:    rows,
	}))
	return nil
}

// pickDeltaPair resolves the sessions to compare. With no ids the two
// newest sessions are used; with only --current, the session sorted just
// before it.
func pickDeltaPair(sessions []model.Session, currentID, previousID string) (cur, prev model.Session, err error) {
	if currentID == "" && previousID == "" {
		c, p, ok := pipeline.LatestPair(sessions)
		if !ok {
			return c, p, errors.New("need at least two sessions to compare")
		}
		return c, p, nil
	}

	sorted := pipeline.SortSessions(sessions)
	if currentID == "" {
		if len(sorted) == 0 {
			return cur, prev, errors.New("no sessions fetched")
		}
		currentID = sorted[len(sorted)-1].ID
	}

	cur, ok := pipeline.FindSession(sorted, currentID)
	if !ok {
		return cur, prev, fmt.Errorf("session %q not found", currentID)
	}

	if previousID == "" {
		idx := -1
		for i := range sorted {
			if sorted[i].ID == currentID {
				idx = i
			}
		}
		if idx < 1 {
			return cur, prev, fmt.Errorf("no session before %q", currentID)
		}
		return cur, sorted[idx-1], nil
	}

	prev, ok = pipeline.FindSession(sorted, previousID)
	if !ok {
		return cur, prev, fmt.Errorf("session %q not found", previousID)
	}
	return cur, prev, nil
}

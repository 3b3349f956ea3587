package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/artpar/pipekit/core/formatter"
	"github.com/artpar/pipekit/domain/evaluation"
	"github.com/artpar/pipekit/ports"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse recorded evaluations",
	Long: `Browse evaluations recorded in the sqlite history database.

Examples:
  pipekit history list --pipeline text.slug --status failed
  pipekit history list --since 2h --limit 20
  pipekit history show ev_0f6c...
  pipekit history summary -o json`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent evaluations",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one evaluation",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historySummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Aggregate evaluations per pipeline",
	Args:  cobra.NoArgs,
	RunE:  runHistorySummary,
}

var (
	historyPipeline string
	historyStatus   string
	historySince    time.Duration
	historyLimit    int
)

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historySummaryCmd)

	for _, c := range []*cobra.Command{historyListCmd, historySummaryCmd} {
		c.Flags().StringVar(&historyPipeline, "pipeline", "", "only this pipeline")
		c.Flags().StringVar(&historyStatus, "status", "", "only this status: ok or failed")
		c.Flags().DurationVar(&historySince, "since", 0, "only evaluations started within this duration")
	}
	historyListCmd.Flags().IntVar(&historyLimit, "limit", evaluation.DefaultLimit, "number of evaluations to show")
}

func historyFilter() (evaluation.Filter, error) {
	f := evaluation.Filter{Pipeline: historyPipeline, Limit: historyLimit}
	switch evaluation.Status(historyStatus) {
	case "", evaluation.StatusOK, evaluation.StatusFailed:
		f.Status = evaluation.Status(historyStatus)
	default:
		return f, fmt.Errorf("--status must be ok or failed, got %q", historyStatus)
	}
	if historySince > 0 {
		f.Since = time.Now().Add(-historySince)
	}
	return f, nil
}

// withHistory opens the history database for the duration of fn.
func withHistory(cmd *cobra.Command, fn func(store ports.HistoryStore) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, store, err := openHistory(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(store)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	f, err := outputFormatter()
	if err != nil {
		return err
	}
	filter, err := historyFilter()
	if err != nil {
		return err
	}

	return withHistory(cmd, func(store ports.HistoryStore) error {
		recs, err := store.List(cmd.Context(), filter)
		if err != nil {
			return fmt.Errorf("failed to list evaluations: %w", err)
		}
		rows, err := formatter.Records(recs)
		if err != nil {
			return err
		}
		for i, r := range recs {
			rows[i]["duration"] = r.Duration.String()
		}
		return f.FormatList(cmd.OutOrStdout(), "evaluations", rows, formatter.FormatOptions{
			Columns:  []string{"id", "pipeline", "status", "started_at", "duration", "error"},
			MaxWidth: 60,
		})
	})
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	f, err := outputFormatter()
	if err != nil {
		return err
	}

	return withHistory(cmd, func(store ports.HistoryStore) error {
		rec, err := store.Get(cmd.Context(), args[0])
		if errors.Is(err, ports.ErrNotFound) {
			return fmt.Errorf("evaluation not found: %s", args[0])
		}
		if err != nil {
			return err
		}
		row, err := formatter.Record(rec)
		if err != nil {
			return err
		}
		row["duration"] = rec.Duration.String()
		delete(row, "duration_ns")
		return f.FormatRecord(cmd.OutOrStdout(), "evaluation", row, formatter.FormatOptions{})
	})
}

func runHistorySummary(cmd *cobra.Command, args []string) error {
	f, err := outputFormatter()
	if err != nil {
		return err
	}
	filter, err := historyFilter()
	if err != nil {
		return err
	}

	return withHistory(cmd, func(store ports.HistoryStore) error {
		sums, err := store.Summaries(cmd.Context(), filter)
		if err != nil {
			return fmt.Errorf("failed to summarize evaluations: %w", err)
		}
		rows := make([]map[string]any, len(sums))
		for i, s := range sums {
			rows[i] = map[string]any{
				"pipeline":     s.Pipeline,
				"count":        s.Count,
				"errors":       s.ErrorCount,
				"error_rate":   s.ErrorRate(),
				"avg_duration": s.AvgDuration.String(),
				"max_duration": s.MaxDuration.String(),
				"last_started": s.LastStarted.Format(time.RFC3339),
			}
		}
		return f.FormatList(cmd.OutOrStdout(), "summaries", rows, formatter.FormatOptions{
			Columns: []string{"pipeline", "count", "errors", "error_rate", "avg_duration", "max_duration", "last_started"},
		})
	})
}

package main

import (
	"fmt"

	"github.com/artpar/pipekit/core/formatter"
	"github.com/spf13/cobra"
)

var describeCmd = &cobra.Command{
	Use:   "describe [pipeline]",
	Short: "Show named pipelines",
	Long: `Show one named pipeline with its bound stages, or list every named
pipeline when no name is given.

Examples:
  pipekit describe
  pipekit describe text.slug -o yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDescribe,
}

func init() {
	rootCmd.AddCommand(describeCmd)
}

func runDescribe(cmd *cobra.Command, args []string) error {
	f, err := outputFormatter()
	if err != nil {
		return err
	}
	_, rt, err := loadRuntime(cmd, nil)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		rows, err := formatter.Records(rt.Pipelines())
		if err != nil {
			return err
		}
		for _, r := range rows {
			if p, ok := r["pipeline"].(map[string]any); ok {
				items, _ := p["items"].([]any)
				r["stages"] = len(items)
			}
		}
		return f.FormatList(out, "pipelines", rows, formatter.FormatOptions{
			Columns:  []string{"name", "stages", "description", "source"},
			MaxWidth: 60,
		})
	}

	p, ok := rt.Pipeline(args[0])
	if !ok {
		return fmt.Errorf("unknown pipeline: %s", args[0])
	}
	record, err := formatter.Record(p)
	if err != nil {
		return err
	}
	return f.FormatRecord(out, "pipeline", record, formatter.FormatOptions{})
}

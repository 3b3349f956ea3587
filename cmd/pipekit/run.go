package main

import (
	"errors"
	"fmt"

	"github.com/artpar/pipekit/core/definition"
	"github.com/artpar/pipekit/core/failure"
	"github.com/artpar/pipekit/core/runtime"
	"github.com/artpar/pipekit/ports"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [pipeline] [input]",
	Short: "Evaluate a pipeline",
	Long: `Evaluate a named pipeline, or an inline chain given with --chain.

The input is JSON, read from the argument or from stdin when the argument
is missing or "-". With --raw the input is taken as a plain string.

Examples:
  pipekit run text.slug '"  Hello World "'
  echo '"Hello"' | pipekit run text.slug
  pipekit run --chain '[trim, toUpperCase]' --raw ' shout '
  pipekit run text.slug '"x"' --record`,
	Args: cobra.MaximumNArgs(2),
	RunE: runRun,
}

var (
	runChain  string
	runRaw    bool
	runRecord bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runChain, "chain", "", "inline chain in YAML flow syntax")
	runCmd.Flags().BoolVar(&runRaw, "raw", false, "treat the input as a plain string")
	runCmd.Flags().BoolVar(&runRecord, "record", false, "record the evaluation in the history database")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var name, input string
	if runChain != "" {
		if len(args) > 1 {
			return errors.New("with --chain only the input argument is accepted")
		}
		if len(args) == 1 {
			input = args[0]
		}
	} else {
		if len(args) == 0 {
			return errors.New("a pipeline name or --chain is required")
		}
		name = args[0]
		if len(args) == 2 {
			input = args[1]
		}
	}

	v, err := readInput(input, cmd.InOrStdin(), runRaw)
	if err != nil {
		return err
	}

	var history ports.HistoryStore
	if runRecord {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, store, err := openHistory(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		history = store
	}

	_, rt, err := loadRuntime(cmd, history)
	if err != nil {
		return err
	}

	var res runtime.Result
	if runChain != "" {
		chain, err := definition.ParseChain("--chain", []byte(runChain))
		if err != nil {
			return err
		}
		res, err = rt.EvaluateChain(ctx, chain, v)
	} else {
		res, err = rt.Evaluate(ctx, name, v)
	}
	if err != nil {
		if kind := failure.KindOf(err); kind != 0 {
			return fmt.Errorf("%s: %w", kind, err)
		}
		return err
	}

	if runRecord {
		fmt.Fprintf(cmd.ErrOrStderr(), "recorded %s\n", res.ID)
	}
	return writeValue(cmd.OutOrStdout(), res.Output)
}

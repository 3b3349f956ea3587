package main

import (
	"fmt"
	"os"
	"time"

	"github.com/artpar/pipekit/adapters/hasher"
	"github.com/artpar/pipekit/config"
	"github.com/artpar/pipekit/core/definition"
	"github.com/artpar/pipekit/core/namespace"
	"github.com/artpar/pipekit/core/runtime"
	"github.com/artpar/pipekit/core/stdlib"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and definitions before deployment",
	Long: `Validate the pipekit configuration and definition files.

Checks:
  - Config is valid (file, or PIPEKIT_* environment variables)
  - Every definition file parses
  - Every chain binds and every decorator and relation resolves
  - History database is writable (optional)

Examples:
  pipekit validate
  pipekit validate --config /etc/pipekit/config.yaml --check-history`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

var validateCheckHistory bool

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateCheckHistory, "check-history", false, "check if the history database is writable")
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Validating %s...\n\n", cfgFile)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(out, "  %s Config valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	if _, err := os.Stat(cfgFile); err == nil {
		fmt.Fprintf(out, "  %s Config valid\n", checkMark)
	} else {
		fmt.Fprintf(out, "  %s Config valid (environment only)\n", checkMark)
	}

	docs, err := definition.ParseDir(cfg.Definitions.Dir)
	if err != nil {
		fmt.Fprintf(out, "  %s Definitions parse\n", crossMark)
		return fmt.Errorf("definitions error: %w", err)
	}
	fmt.Fprintf(out, "  %s Definitions parse (%d documents in %s)\n", checkMark, len(docs), cfg.Definitions.Dir)

	snap, err := runtime.Build(stdlib.New(hasher.NewBcrypt(cfg.Stdlib.BcryptCost), cliLogger(cmd)), docs, time.Now())
	if err != nil {
		fmt.Fprintf(out, "  %s Definitions bind\n", crossMark)
		return fmt.Errorf("definitions error: %w", err)
	}
	fmt.Fprintf(out, "  %s Definitions bind\n", checkMark)

	counts := make(map[namespace.SymbolKind]int)
	for _, s := range snap.Namespace().Symbols() {
		counts[s.Kind]++
	}
	fmt.Fprintf(out, "  %s Pipelines: %d\n", checkMark, len(snap.Pipelines()))
	fmt.Fprintf(out, "  %s Models: %d\n", checkMark, counts[namespace.KindModel])
	fmt.Fprintf(out, "  %s Enums: %d\n", checkMark, counts[namespace.KindEnum])
	fmt.Fprintf(out, "  %s Handler groups: %d\n", checkMark, counts[namespace.KindHandlerGroup])
	fmt.Fprintf(out, "  %s History: %s\n", checkMark, describeHistory(cfg))

	if validateCheckHistory {
		db, _, err := openHistory(cmd.Context(), cfg)
		if err != nil {
			fmt.Fprintf(out, "  %s History writable\n", crossMark)
			fmt.Fprintf(out, "      Error: %v\n", err)
		} else {
			db.Close()
			fmt.Fprintf(out, "  %s History writable\n", checkMark)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration is valid.")
	return nil
}

func describeHistory(cfg *config.Config) string {
	switch cfg.History.Driver {
	case "sqlite":
		return "sqlite (" + cfg.History.DSN + ")"
	case "memory":
		return fmt.Sprintf("memory (capacity %d)", cfg.History.Capacity)
	}
	return cfg.History.Driver
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)

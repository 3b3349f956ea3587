package main

import (
	"strings"

	"github.com/artpar/pipekit/core/formatter"
	"github.com/artpar/pipekit/core/namespace"
	"github.com/spf13/cobra"
)

var symbolsCmd = &cobra.Command{
	Use:   "symbols",
	Short: "List registered symbols",
	Long: `List every symbol registered by the standard library and the
definitions, in registry order.

Examples:
  pipekit symbols
  pipekit symbols --kind model
  pipekit symbols --prefix std. -o json`,
	Args: cobra.NoArgs,
	RunE: runSymbols,
}

var (
	symbolsKind   string
	symbolsPrefix string
)

func init() {
	rootCmd.AddCommand(symbolsCmd)

	symbolsCmd.Flags().StringVar(&symbolsKind, "kind", "", "only symbols of this kind (e.g. pipeline_item, model)")
	symbolsCmd.Flags().StringVar(&symbolsPrefix, "prefix", "", "only symbols whose full name starts with this prefix")
}

func runSymbols(cmd *cobra.Command, args []string) error {
	f, err := outputFormatter()
	if err != nil {
		return err
	}
	_, rt, err := loadRuntime(cmd, nil)
	if err != nil {
		return err
	}

	var rows []map[string]any
	for _, s := range rt.Symbols() {
		if symbolsKind != "" && s.Kind != namespace.SymbolKind(symbolsKind) {
			continue
		}
		name := s.FullName()
		if symbolsPrefix != "" && !strings.HasPrefix(name, symbolsPrefix) {
			continue
		}
		rows = append(rows, map[string]any{"kind": string(s.Kind), "name": name})
	}
	return f.FormatList(cmd.OutOrStdout(), "symbols", rows, formatter.FormatOptions{Columns: []string{"kind", "name"}})
}

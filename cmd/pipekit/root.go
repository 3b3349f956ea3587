package main

import (
	"fmt"
	"os"

	"github.com/artpar/pipekit/core/formatter"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile      string
	outputFormat string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pipekit",
	Short: "Declarative data pipelines over a hierarchical symbol registry",
	Long: `pipekit loads YAML definitions of named pipelines, models and handlers
and evaluates them from the command line or over HTTP.

Quick start:
  pipekit validate              # Check config and definitions
  pipekit run text.slug '"Hi"'  # Evaluate a named pipeline
  pipekit serve                 # Start the HTTP API

Inspection:
  pipekit symbols   # List registered symbols
  pipekit describe  # Show a named pipeline
  pipekit history   # Browse recorded evaluations`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "pipekit.yaml", "config file path")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json or yaml")
}

// outputFormatter resolves --output.
func outputFormatter() (formatter.Formatter, error) {
	f, ok := formatter.Get(outputFormat)
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (available: %v)", outputFormat, formatter.List())
	}
	return f, nil
}

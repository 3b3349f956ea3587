package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/artpar/pipekit/adapters/clock"
	"github.com/artpar/pipekit/adapters/hasher"
	"github.com/artpar/pipekit/adapters/idgen"
	"github.com/artpar/pipekit/adapters/sqlite"
	"github.com/artpar/pipekit/bootstrap"
	"github.com/artpar/pipekit/config"
	"github.com/artpar/pipekit/core/runtime"
	"github.com/artpar/pipekit/core/stdlib"
	"github.com/artpar/pipekit/core/value"
	"github.com/artpar/pipekit/ports"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// cliLogger logs warnings and errors to the command's stderr.
func cliLogger(cmd *cobra.Command) zerolog.Logger {
	return bootstrap.NewLogger(config.LoggingConfig{Level: "warn", Format: "console"}, cmd.ErrOrStderr())
}

func loadConfig() (*config.Config, error) {
	return config.LoadWithFallback(cfgFile)
}

// loadRuntime builds a runtime from the configured definitions. history
// may be nil.
func loadRuntime(cmd *cobra.Command, history ports.HistoryStore) (*config.Config, *runtime.Runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := cliLogger(cmd)

	snap, err := runtime.LoadDir(stdlib.New(hasher.NewBcrypt(cfg.Stdlib.BcryptCost), logger), cfg.Definitions.Dir, time.Now())
	if err != nil {
		return cfg, nil, err
	}
	rt := runtime.New(runtime.Config{
		Logger:  logger,
		Clock:   clock.Real{},
		IDs:     idgen.UUID{Prefix: idgen.EvaluationPrefix},
		History: history,
	}, snap)
	return cfg, rt, nil
}

// openHistory opens the sqlite history database of cfg.
func openHistory(ctx context.Context, cfg *config.Config) (*sqlite.DB, *sqlite.HistoryStore, error) {
	if cfg.History.Driver != "sqlite" {
		return nil, nil, fmt.Errorf("evaluation history is only persisted with the sqlite driver (configured: %s)", cfg.History.Driver)
	}
	db, err := sqlite.Open(cfg.History.DSN)
	if err != nil {
		return nil, nil, err
	}
	if _, err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return db, sqlite.NewHistoryStore(db), nil
}

// readInput decodes the JSON input from arg, or from in when arg is empty
// or "-". With raw set the input is taken as a plain string.
func readInput(arg string, in io.Reader, raw bool) (value.Value, error) {
	text := arg
	if arg == "" || arg == "-" {
		data, err := io.ReadAll(in)
		if err != nil {
			return value.Null(), fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}
	if raw {
		return value.String(strings.TrimSuffix(text, "\n")), nil
	}
	if strings.TrimSpace(text) == "" {
		return value.Null(), nil
	}

	var v value.Value
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return value.Null(), fmt.Errorf("input is not valid JSON (use --raw for plain text): %w", err)
	}
	return v, nil
}

// writeValue prints v in the --output format. Table output prints strings
// bare and everything else as JSON.
func writeValue(w io.Writer, v value.Value) error {
	switch outputFormat {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	case "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	if v.Kind() == value.KindString {
		s, _ := v.AsString()
		_, err := fmt.Fprintln(w, s)
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

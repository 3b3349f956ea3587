package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testDefs = `
namespace: text
pipelines:
  slug:
    description: url slug
    stages:
      - trim
      - toLowerCase
      - regexReplace: {format: "\\s+", substitute: "-"}
models:
  user:
    fields:
      email: string
`

// setupCLI writes a config file and definitions and returns the config
// path.
func setupCLI(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	defs := filepath.Join(dir, "defs")
	if err := os.MkdirAll(defs, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(defs, "text.yaml"), []byte(testDefs), 0o644); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(dir, "pipekit.yaml")
	cfg := "definitions:\n  dir: " + defs + "\nstdlib:\n  bcrypt_cost: 4\nhistory:\n  dsn: " + filepath.Join(dir, "history.db") + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfgPath
}

// execute runs the CLI with args and returns stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	runChain, runRaw, runRecord = "", false, false
	symbolsKind, symbolsPrefix = "", ""
	historyPipeline, historyStatus, historySince, historyLimit = "", "", 0, 50
	outputFormat, validateCheckHistory = "table", false

	var out, errOut bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRun(t *testing.T) {
	cfg := setupCLI(t)

	tests := []struct {
		name  string
		stdin string
		args  []string
		want  string
	}{
		{"argument input", "", []string{"run", "text.slug", `"  Hello World "`}, "hello-world\n"},
		{"stdin input", `"A B"`, []string{"run", "text.slug"}, "a-b\n"},
		{"raw input", "", []string{"run", "text.slug", "--raw", "Raw Text"}, "raw-text\n"},
		{"inline chain", "", []string{"run", "--chain", "[trim, toUpperCase]", `" shout "`}, "SHOUT\n"},
		{"json output", "", []string{"run", "--chain", `[{split: {separator: ","}}]`, `"a,b"`, "-o", "json"}, "[\n  \"a\",\n  \"b\"\n]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := execute(t, tt.stdin, append(tt.args, "-c", cfg)...)
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRun_Errors(t *testing.T) {
	cfg := setupCLI(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no pipeline", []string{"run"}, "a pipeline name or --chain is required"},
		{"unknown pipeline", []string{"run", "text.nope", `"x"`}, "unknown pipeline: text.nope"},
		{"invalid json", []string{"run", "text.slug", "{oops"}, "input is not valid JSON"},
		{"coercion", []string{"run", "text.slug", "12"}, "coercion error"},
		{"bad chain", []string{"run", "--chain", "[nope]", `"x"`}, "pipeline item is not defined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "", append(tt.args, "-c", cfg)...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestRecordAndHistory(t *testing.T) {
	cfg := setupCLI(t)

	if _, err := execute(t, "", "run", "text.slug", `"Go Lang"`, "--record", "-c", cfg); err != nil {
		t.Fatalf("run --record error = %v", err)
	}
	execute(t, "", "run", "text.slug", "1", "--record", "-c", cfg)

	out, err := execute(t, "", "history", "list", "-c", cfg)
	if err != nil {
		t.Fatalf("history list error = %v", err)
	}
	if strings.Count(out, "text.slug") != 2 || !strings.Contains(out, "failed") {
		t.Errorf("history list = %s", out)
	}

	out, err = execute(t, "", "history", "list", "--status", "failed", "-o", "json", "-c", cfg)
	if err != nil {
		t.Fatalf("history list --status error = %v", err)
	}
	if !strings.Contains(out, `"count": 1`) {
		t.Errorf("filtered list = %s", out)
	}

	out, err = execute(t, "", "history", "summary", "-c", cfg)
	if err != nil {
		t.Fatalf("history summary error = %v", err)
	}
	if !strings.Contains(out, "0.50") {
		t.Errorf("summary = %s", out)
	}

	if _, err := execute(t, "", "history", "show", "ev_missing", "-c", cfg); err == nil {
		t.Error("history show should fail for an unknown ID")
	}
}

func TestSymbolsAndDescribe(t *testing.T) {
	cfg := setupCLI(t)

	out, err := execute(t, "", "symbols", "--kind", "model", "-c", cfg)
	if err != nil {
		t.Fatalf("symbols error = %v", err)
	}
	if !strings.Contains(out, "text.user") || strings.Contains(out, "std.") {
		t.Errorf("symbols = %s", out)
	}

	out, err = execute(t, "", "describe", "-c", cfg)
	if err != nil {
		t.Fatalf("describe error = %v", err)
	}
	if !strings.Contains(out, "text.slug") || !strings.Contains(out, "url slug") {
		t.Errorf("describe = %s", out)
	}

	out, err = execute(t, "", "describe", "text.slug", "-o", "yaml", "-c", cfg)
	if err != nil {
		t.Fatalf("describe text.slug error = %v", err)
	}
	if !strings.Contains(out, "regexReplace") {
		t.Errorf("describe text.slug = %s", out)
	}

	if _, err := execute(t, "", "symbols", "-o", "xml", "-c", cfg); err == nil {
		t.Error("unknown output format should fail")
	}
}

func TestValidate(t *testing.T) {
	cfg := setupCLI(t)

	out, err := execute(t, "", "validate", "--check-history", "-c", cfg)
	if err != nil {
		t.Fatalf("validate error = %v", err)
	}
	for _, want := range []string{"Pipelines: 1", "Models: 1", "History writable", "Configuration is valid."} {
		if !strings.Contains(out, want) {
			t.Errorf("validate output missing %q:\n%s", want, out)
		}
	}

	defs := filepath.Join(filepath.Dir(cfg), "defs", "bad.yaml")
	os.WriteFile(defs, []byte("pipelines:\n  p: [nope]\n"), 0o644)
	if _, err := execute(t, "", "validate", "-c", cfg); err == nil {
		t.Error("validate should fail for unbound definitions")
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.HasPrefix(out, "pipekit dev") {
		t.Errorf("version = %q", out)
	}
}

package formatter_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/artpar/pipekit/core/formatter"
	"gopkg.in/yaml.v3"
)

func records() []map[string]any {
	return []map[string]any{
		{"name": "text.slug", "count": float64(3), "ok": true},
		{"name": "text.code", "count": float64(1.5), "ok": false},
	}
}

func TestRegistry(t *testing.T) {
	if got := formatter.List(); len(got) != 3 || got[0] != "json" || got[1] != "table" || got[2] != "yaml" {
		t.Errorf("List() = %v", got)
	}
	if f := formatter.Default(); f == nil || f.Name() != "table" {
		t.Errorf("Default() = %v, want table", f)
	}
	if _, ok := formatter.Get("csv"); ok {
		t.Error("csv should not be registered")
	}

	r := formatter.NewRegistry()
	if err := r.Register(formatter.NewJSONFormatter()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(formatter.NewJSONFormatter()); err == nil {
		t.Error("registering a name twice should fail")
	}
	if err := r.SetDefault("yaml"); err == nil {
		t.Error("SetDefault() should fail for an unregistered formatter")
	}
	if f := r.Default(); f == nil || f.Name() != "json" {
		t.Errorf("Default() fallback = %v, want json", f)
	}
}

func TestTableFormatter(t *testing.T) {
	f := formatter.NewTableFormatter()

	tests := []struct {
		name string
		opts formatter.FormatOptions
		want []string
		skip []string
	}{
		{"all columns", formatter.FormatOptions{}, []string{"COUNT", "NAME", "OK", "text.slug", "1.50", "yes", "no"}, nil},
		{"selected columns", formatter.FormatOptions{Columns: []string{"name"}}, []string{"NAME", "text.code"}, []string{"COUNT"}},
		{"no header", formatter.FormatOptions{NoHeader: true}, []string{"text.slug"}, []string{"NAME"}},
		{"truncated", formatter.FormatOptions{Columns: []string{"name"}, MaxWidth: 6}, []string{"tex..."}, []string{"text.slug"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := f.FormatList(&buf, "pipelines", records(), tt.opts); err != nil {
				t.Fatalf("FormatList() error = %v", err)
			}
			out := buf.String()
			for _, s := range tt.want {
				if !strings.Contains(out, s) {
					t.Errorf("output missing %q:\n%s", s, out)
				}
			}
			for _, s := range tt.skip {
				if strings.Contains(out, s) {
					t.Errorf("output should not contain %q:\n%s", s, out)
				}
			}
		})
	}

	var empty bytes.Buffer
	f.FormatList(&empty, "evaluations", nil, formatter.FormatOptions{})
	if empty.String() != "No evaluations found.\n" {
		t.Errorf("empty list = %q", empty.String())
	}

	var rec bytes.Buffer
	f.FormatRecord(&rec, "evaluation", map[string]any{"error_kind": "coercion error"}, formatter.FormatOptions{})
	if !strings.Contains(rec.String(), "Error Kind:") {
		t.Errorf("record labels = %q", rec.String())
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	err := formatter.NewJSONFormatter().FormatList(&buf, "pipelines", records(), formatter.FormatOptions{Columns: []string{"name"}, Compact: true})
	if err != nil {
		t.Fatalf("FormatList() error = %v", err)
	}

	var got struct {
		Kind  string           `json:"kind"`
		Count int              `json:"count"`
		Data  []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.Kind != "pipelines" || got.Count != 2 || len(got.Data[0]) != 1 {
		t.Errorf("output = %+v", got)
	}
	if strings.Count(buf.String(), "\n") != 1 {
		t.Error("compact output should be a single line")
	}

	buf.Reset()
	formatter.NewJSONFormatter().FormatError(&buf, errors.New("boom"))
	if !strings.Contains(buf.String(), `"error": "boom"`) {
		t.Errorf("error output = %s", buf.String())
	}
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	err := formatter.NewYAMLFormatter().FormatRecord(&buf, "pipeline", records()[0], formatter.FormatOptions{})
	if err != nil {
		t.Fatalf("FormatRecord() error = %v", err)
	}

	var got map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	data, _ := got["data"].(map[string]any)
	if got["kind"] != "pipeline" || data["name"] != "text.slug" {
		t.Errorf("output = %v", got)
	}
}

func TestRecords(t *testing.T) {
	type row struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	got, err := formatter.Records([]row{{"a", 1}, {"b", 2}})
	if err != nil {
		t.Fatalf("Records() error = %v", err)
	}
	if len(got) != 2 || got[1]["name"] != "b" || got[1]["count"] != float64(2) {
		t.Errorf("Records() = %v", got)
	}

	if _, err := formatter.Records("scalar"); err == nil {
		t.Error("Records() should reject non-lists")
	}

	one, err := formatter.Record(row{"c", 3})
	if err != nil || one["name"] != "c" {
		t.Errorf("Record() = %v, %v", one, err)
	}
}

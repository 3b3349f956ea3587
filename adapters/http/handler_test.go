package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/artpar/pipekit/adapters/clock"
	"github.com/artpar/pipekit/adapters/hasher"
	apihttp "github.com/artpar/pipekit/adapters/http"
	"github.com/artpar/pipekit/adapters/idgen"
	"github.com/artpar/pipekit/adapters/memory"
	"github.com/artpar/pipekit/adapters/metrics"
	"github.com/artpar/pipekit/core/definition"
	"github.com/artpar/pipekit/core/runtime"
	"github.com/artpar/pipekit/core/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var baseTime = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

const defs = `
namespace: text
pipelines:
  slug:
    - trim
    - toLowerCase
    - regexReplace: {format: "\\s+", substitute: "-"}
  code:
    - padStart: {width: 5, char: "0"}
  badPad:
    - padStart: {width: 5, char: "00"}
models:
  user:
    fields:
      email:
        type: string
        decorators:
          - required
          - onSet: {pipeline: {$pipe: [trim, toLowerCase]}}
      password:
        type: string
        decorators: [internal]
handlers:
  api:
    slug: [text.slug]
`

func setupRouter(t *testing.T, withHistory bool) (http.Handler, *metrics.Collector) {
	t.Helper()
	docs, err := definition.Parse("defs.yaml", []byte(defs))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	snap, err := runtime.Build(stdlib.New(hasher.Fake{}, zerolog.Nop()), docs, baseTime)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	cfg := runtime.Config{
		Logger: zerolog.Nop(),
		Clock:  clock.NewStepping(baseTime, time.Millisecond),
		IDs:    idgen.NewSequential("ev_"),
	}
	if withHistory {
		cfg.History = memory.NewHistoryStore(0)
	}
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	cfg.Metrics = m
	rt := runtime.New(cfg, snap)

	return apihttp.NewRouter(rt, zerolog.Nop(), apihttp.RouterConfig{
		Metrics:        m,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		MaxBodyBytes:   256,
		Version:        "test",
	}), m
}

func do(t *testing.T, h http.Handler, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	resp := rec.Result()
	raw, _ := io.ReadAll(resp.Body)
	var decoded map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, err, raw)
		}
	}
	return resp, decoded
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestHealthAndVersion(t *testing.T) {
	h, _ := setupRouter(t, true)

	tests := []struct {
		path  string
		key   string
		value any
	}{
		{"/health", "status", "ok"},
		{"/health/ready", "pipelines", float64(3)},
		{"/version", "version", "test"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := do(t, h, "GET", tt.path, "")
			if resp.StatusCode != 200 {
				t.Fatalf("status = %d, want 200", resp.StatusCode)
			}
			if body[tt.key] != tt.value {
				t.Errorf("%s = %v, want %v", tt.key, body[tt.key], tt.value)
			}
		})
	}
}

func TestEvaluatePipeline(t *testing.T) {
	h, _ := setupRouter(t, true)

	resp, body := do(t, h, "POST", "/v1/pipelines/text.slug/evaluate", `"  Hello World "`)
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200: %v", resp.StatusCode, body)
	}
	if body["output"] != "hello-world" {
		t.Errorf("output = %v, want hello-world", body["output"])
	}
	if body["id"] != "ev_1" {
		t.Errorf("id = %v, want ev_1", body["id"])
	}
	if body["duration_ns"] != float64(time.Millisecond) {
		t.Errorf("duration_ns = %v", body["duration_ns"])
	}
}

func TestEvaluatePipeline_Errors(t *testing.T) {
	h, _ := setupRouter(t, true)

	tests := []struct {
		name     string
		path     string
		body     string
		status   int
		code     string
		contains string
	}{
		{"unknown pipeline", "/v1/pipelines/text.nope/evaluate", `"x"`, 404, "not_found", "unknown pipeline"},
		{"coercion", "/v1/pipelines/text.code/evaluate", `12`, 422, "coercion_error", ""},
		{"argument", "/v1/pipelines/text.badPad/evaluate", `"12"`, 422, "argument_error", "padStart(char): char must be a single character"},
		{"invalid json", "/v1/pipelines/text.slug/evaluate", `{nope`, 400, "invalid_json", ""},
		{"body too large", "/v1/pipelines/text.slug/evaluate", `"` + strings.Repeat("a", 300) + `"`, 413, "body_too_large", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, h, "POST", tt.path, tt.body)
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d: %v", resp.StatusCode, tt.status, body)
			}
			if got := errorCode(body); got != tt.code {
				t.Errorf("code = %s, want %s", got, tt.code)
			}
			msg, _ := body["error"].(map[string]any)["message"].(string)
			if !strings.Contains(msg, tt.contains) {
				t.Errorf("message = %q, want it to contain %q", msg, tt.contains)
			}
		})
	}
}

func TestEvaluatePipeline_FailedHasEvaluationID(t *testing.T) {
	h, _ := setupRouter(t, true)

	_, body := do(t, h, "POST", "/v1/pipelines/text.code/evaluate", `12`)
	id, _ := body["error"].(map[string]any)["evaluation_id"].(string)
	if id == "" {
		t.Fatal("failed evaluation should report its ID")
	}

	resp, rec := do(t, h, "GET", "/v1/evaluations/"+id, "")
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if rec["status"] != "failed" || rec["error_kind"] != "coercion error" {
		t.Errorf("stored record = %v", rec)
	}
}

func TestPipelinesAndSymbols(t *testing.T) {
	h, _ := setupRouter(t, true)

	_, body := do(t, h, "GET", "/v1/pipelines", "")
	list, _ := body["pipelines"].([]any)
	if len(list) != 3 {
		t.Fatalf("pipelines = %d, want 3", len(list))
	}

	resp, one := do(t, h, "GET", "/v1/pipelines/text.slug", "")
	if resp.StatusCode != 200 || one["name"] != "text.slug" {
		t.Errorf("GET pipeline = %d %v", resp.StatusCode, one)
	}
	if resp, _ := do(t, h, "GET", "/v1/pipelines/text.nope", ""); resp.StatusCode != 404 {
		t.Errorf("unknown pipeline status = %d, want 404", resp.StatusCode)
	}

	_, syms := do(t, h, "GET", "/v1/symbols?kind=model", "")
	models, _ := syms["symbols"].([]any)
	if len(models) != 1 {
		t.Fatalf("model symbols = %v", syms)
	}
	path, _ := models[0].(map[string]any)["path"].([]any)
	if len(path) != 2 || path[1] != "user" {
		t.Errorf("model symbol path = %v", path)
	}

	_, std := do(t, h, "GET", "/v1/symbols?prefix=std.pad", "")
	if got := len(std["symbols"].([]any)); got != 2 {
		t.Errorf("std.pad* symbols = %d, want 2", got)
	}
}

func TestInvokeHandler(t *testing.T) {
	h, _ := setupRouter(t, true)

	resp, body := do(t, h, "POST", "/v1/handlers/text/api/slug", `"Go Lang"`)
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d: %v", resp.StatusCode, body)
	}
	if body["output"] != "go-lang" || body["pipeline"] != "text.api.slug" {
		t.Errorf("body = %v", body)
	}

	if resp, _ := do(t, h, "POST", "/v1/handlers/text/api/missing", `""`); resp.StatusCode != 404 {
		t.Errorf("missing handler status = %d, want 404", resp.StatusCode)
	}
}

func TestModelEndpoints(t *testing.T) {
	h, _ := setupRouter(t, true)

	resp, body := do(t, h, "POST", "/v1/models/text.user/transform", `{"email": "  A@B.COM ", "password": "x"}`)
	if resp.StatusCode != 200 {
		t.Fatalf("transform status = %d: %v", resp.StatusCode, body)
	}
	record, _ := body["record"].(map[string]any)
	if record["email"] != "a@b.com" {
		t.Errorf("email = %v", record["email"])
	}

	resp, body = do(t, h, "POST", "/v1/models/text.user/output", `{"email": "a@b.com", "password": "x"}`)
	if resp.StatusCode != 200 {
		t.Fatalf("output status = %d: %v", resp.StatusCode, body)
	}
	if _, ok := body["record"].(map[string]any)["password"]; ok {
		t.Error("internal field should be dropped from output")
	}

	resp, body = do(t, h, "POST", "/v1/models/text.user/transform", `{}`)
	if resp.StatusCode != 422 || errorCode(body) != "argument_error" {
		t.Errorf("missing field = %d %v", resp.StatusCode, body)
	}
	if resp, _ := do(t, h, "POST", "/v1/models/text.nope/transform", `{}`); resp.StatusCode != 404 {
		t.Errorf("unknown model status = %d, want 404", resp.StatusCode)
	}
}

func TestEvaluations(t *testing.T) {
	h, _ := setupRouter(t, true)
	do(t, h, "POST", "/v1/pipelines/text.slug/evaluate", `"A B"`)
	do(t, h, "POST", "/v1/pipelines/text.slug/evaluate", `"C D"`)
	do(t, h, "POST", "/v1/pipelines/text.code/evaluate", `1`)

	tests := []struct {
		query string
		want  int
	}{
		{"", 3},
		{"?pipeline=text.slug", 2},
		{"?status=failed", 1},
		{"?limit=1", 1},
		{"?since=2030-01-01T00:00:00Z", 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, body := do(t, h, "GET", "/v1/evaluations"+tt.query, "")
			if resp.StatusCode != 200 {
				t.Fatalf("status = %d: %v", resp.StatusCode, body)
			}
			if got := len(body["evaluations"].([]any)); got != tt.want {
				t.Errorf("evaluations = %d, want %d", got, tt.want)
			}
		})
	}

	for _, bad := range []string{"?status=maybe", "?limit=0", "?since=yesterday"} {
		if resp, _ := do(t, h, "GET", "/v1/evaluations"+bad, ""); resp.StatusCode != 400 {
			t.Errorf("%s status = %d, want 400", bad, resp.StatusCode)
		}
	}

	_, body := do(t, h, "GET", "/v1/evaluations/summary", "")
	if got := len(body["summaries"].([]any)); got != 2 {
		t.Errorf("summaries = %d, want 2", got)
	}

	if resp, _ := do(t, h, "GET", "/v1/evaluations/ev_404", ""); resp.StatusCode != 404 {
		t.Errorf("unknown evaluation status = %d, want 404", resp.StatusCode)
	}
}

func TestEvaluations_HistoryDisabled(t *testing.T) {
	h, _ := setupRouter(t, false)
	resp, body := do(t, h, "GET", "/v1/evaluations", "")
	if resp.StatusCode != 501 || errorCode(body) != "history_disabled" {
		t.Errorf("status = %d %v", resp.StatusCode, body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := setupRouter(t, true)
	do(t, h, "POST", "/v1/pipelines/text.slug/evaluate", `"A"`)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	out := rec.Body.String()
	for _, want := range []string{
		"pipekit_evaluations_total",
		`route="/v1/pipelines/{name}/evaluate"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}

func TestNotFoundAndMethod(t *testing.T) {
	h, _ := setupRouter(t, true)
	if resp, body := do(t, h, "GET", "/nope", ""); resp.StatusCode != 404 || errorCode(body) != "not_found" {
		t.Errorf("unknown route = %d %v", resp.StatusCode, body)
	}
	if resp, body := do(t, h, "GET", "/v1/pipelines/text.slug/evaluate", ""); resp.StatusCode != 405 || errorCode(body) != "method_not_allowed" {
		t.Errorf("wrong method = %d %v", resp.StatusCode, body)
	}
}

package runtime_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/artpar/pipekit/adapters/clock"
	"github.com/artpar/pipekit/adapters/hasher"
	"github.com/artpar/pipekit/adapters/idgen"
	"github.com/artpar/pipekit/adapters/memory"
	"github.com/artpar/pipekit/core/definition"
	"github.com/artpar/pipekit/core/failure"
	"github.com/artpar/pipekit/core/pipeline"
	"github.com/artpar/pipekit/core/runtime"
	"github.com/artpar/pipekit/core/stdlib"
	"github.com/artpar/pipekit/core/value"
	"github.com/artpar/pipekit/domain/evaluation"
	"github.com/rs/zerolog"
)

var t0 = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

const defs = `
namespace: text
pipelines:
  slug:
    - trim
    - toLowerCase
    - regexReplace: {format: "\\s+", substitute: "-"}
  code:
    - padStart: {width: 5, char: "0"}
models:
  user:
    fields:
      email:
        type: string
        decorators:
          - required
          - onSet: {pipeline: {$pipe: [trim, toLowerCase]}}
handlers:
  api:
    slug: [text.slug]
`

func snapshot(t *testing.T, src string) *runtime.Snapshot {
	t.Helper()
	docs, err := definition.Parse("defs.yaml", []byte(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	snap, err := runtime.Build(stdlib.New(hasher.Fake{}, zerolog.Nop()), docs, t0)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return snap
}

type fakeMetrics struct {
	evaluations map[evaluation.Status]int
	pipelines   int
	reloads     int
	failed      int
}

func (m *fakeMetrics) ObserveEvaluation(_ string, status evaluation.Status, _ string, _ time.Duration) {
	if m.evaluations == nil {
		m.evaluations = make(map[evaluation.Status]int)
	}
	m.evaluations[status]++
}

func (m *fakeMetrics) SetPipelines(n int) { m.pipelines = n }

func (m *fakeMetrics) ObserveReload(ok bool) {
	if ok {
		m.reloads++
	} else {
		m.failed++
	}
}

type fixture struct {
	rt      *runtime.Runtime
	history *memory.HistoryStore
	metrics *fakeMetrics
	logs    *bytes.Buffer
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	f := fixture{
		history: memory.NewHistoryStore(0),
		metrics: &fakeMetrics{},
		logs:    &bytes.Buffer{},
	}
	f.rt = runtime.New(runtime.Config{
		Logger:  zerolog.New(f.logs),
		Clock:   clock.NewStepping(t0, 3*time.Millisecond),
		IDs:     idgen.NewSequential("ev_"),
		History: f.history,
		Metrics: f.metrics,
	}, snapshot(t, defs))
	return f
}

func TestEvaluate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.rt.Evaluate(ctx, "text.slug", value.String("  Hello   World "))
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !res.Output.Equal(value.String("hello-world")) {
		t.Errorf("Output = %v, want hello-world", res.Output)
	}
	if res.ID != "ev_1" {
		t.Errorf("ID = %s, want ev_1", res.ID)
	}
	if res.Duration != 3*time.Millisecond {
		t.Errorf("Duration = %v, want 3ms", res.Duration)
	}

	rec, err := f.history.Get(ctx, "ev_1")
	if err != nil {
		t.Fatalf("history Get() error = %v", err)
	}
	if rec.Status != evaluation.StatusOK || rec.Pipeline != "text.slug" {
		t.Errorf("history record = %+v", rec)
	}
	if f.metrics.evaluations[evaluation.StatusOK] != 1 {
		t.Errorf("metrics = %+v", f.metrics.evaluations)
	}
}

func TestEvaluate_Failure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.rt.Evaluate(ctx, "text.code", value.Int(12))
	if err == nil {
		t.Fatal("Evaluate() expected coercion error for an int subject")
	}
	if !errors.Is(err, failure.ErrCoercion) {
		t.Errorf("error = %v, want a coercion error", err)
	}
	if res.ID == "" {
		t.Error("failed evaluation should still carry an ID")
	}

	rec, herr := f.history.Get(ctx, res.ID)
	if herr != nil {
		t.Fatalf("history Get() error = %v", herr)
	}
	if rec.Status != evaluation.StatusFailed || rec.ErrorKind != "coercion error" || rec.Error == "" {
		t.Errorf("history record = %+v", rec)
	}
	if !strings.Contains(f.logs.String(), "evaluation failed") {
		t.Errorf("expected a failure log line, got %s", f.logs.String())
	}
}

func TestEvaluate_UnknownPipeline(t *testing.T) {
	f := newFixture(t)
	_, err := f.rt.Evaluate(context.Background(), "text.nope", value.Null())
	if !errors.Is(err, runtime.ErrUnknownPipeline) {
		t.Errorf("error = %v, want ErrUnknownPipeline", err)
	}
	if f.history.Len() != 0 {
		t.Error("unknown pipelines should not be recorded")
	}
}

func TestEvaluateChain(t *testing.T) {
	f := newFixture(t)
	chain := pipeline.Chain{
		{Path: []string{"text", "slug"}, Arguments: pipeline.NewArguments()},
		{Path: []string{"toUpperCase"}, Arguments: pipeline.NewArguments()},
	}
	res, err := f.rt.EvaluateChain(context.Background(), chain, value.String("a b"))
	if err != nil {
		t.Fatalf("EvaluateChain() error = %v", err)
	}
	if !res.Output.Equal(value.String("A-B")) || res.Pipeline != runtime.InlinePipeline {
		t.Errorf("EvaluateChain() = %+v", res)
	}
}

func TestHandle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.rt.Handle(ctx, []string{"text", "api", "slug"}, value.String("Go Lang"))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !res.Output.Equal(value.String("go-lang")) || res.Pipeline != "text.api.slug" {
		t.Errorf("Handle() = %+v", res)
	}

	if _, err := f.rt.Handle(ctx, []string{"text", "api", "missing"}, value.Null()); !errors.Is(err, runtime.ErrUnknownHandler) {
		t.Errorf("error = %v, want ErrUnknownHandler", err)
	}
}

func TestTransform(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	record := value.Dictionary(value.Entry{Key: "email", Value: value.String("  A@B.COM ")})
	got, err := f.rt.Transform(ctx, "text.user", record)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	email, _ := got.Field("email")
	if !email.Equal(value.String("a@b.com")) {
		t.Errorf("email = %v, want a@b.com", email)
	}

	if _, err := f.rt.Transform(ctx, "text.nope", record); !errors.Is(err, runtime.ErrUnknownModel) {
		t.Errorf("error = %v, want ErrUnknownModel", err)
	}
	if _, err := f.rt.Transform(ctx, "text.user", value.Dictionary()); err == nil {
		t.Error("expected missing required field error")
	}
}

func TestSwap(t *testing.T) {
	f := newFixture(t)
	if got := len(f.rt.Pipelines()); got != 2 {
		t.Fatalf("Pipelines() = %d, want 2", got)
	}
	if f.metrics.pipelines != 2 {
		t.Errorf("pipelines gauge = %d, want 2", f.metrics.pipelines)
	}

	prev := f.rt.Snapshot()
	next := snapshot(t, "pipelines:\n  shout: [toUpperCase]\n")
	if got := f.rt.Swap(next); got != prev {
		t.Error("Swap() should return the previous snapshot")
	}
	if _, ok := f.rt.Pipeline("shout"); !ok {
		t.Error("new pipeline should be visible after Swap")
	}
	if _, ok := f.rt.Pipeline("text.slug"); ok {
		t.Error("old pipeline should be gone after Swap")
	}
	if f.metrics.reloads != 1 || f.metrics.pipelines != 1 {
		t.Errorf("metrics after swap = %+v", f.metrics)
	}

	f.rt.ReloadFailed(errors.New("bad file"))
	if f.metrics.failed != 1 || f.rt.Snapshot() != next {
		t.Error("failed reload should keep the current snapshot")
	}
}

func TestSymbols(t *testing.T) {
	f := newFixture(t)
	var names []string
	for _, s := range f.rt.Symbols() {
		names = append(names, s.FullName())
	}
	joined := strings.Join(names, ",")
	for _, want := range []string{"std.trim", "text.slug", "text.user", "text.api"} {
		if !strings.Contains(joined, want) {
			t.Errorf("Symbols() missing %s", want)
		}
	}
}

func TestBuild_DefinitionError(t *testing.T) {
	docs, err := definition.Parse("bad.yaml", []byte("pipelines:\n  broken: [nope]\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	_, err = runtime.Build(stdlib.New(hasher.Fake{}, zerolog.Nop()), docs, t0)
	if !errors.Is(err, failure.ErrDefinition) {
		t.Errorf("Build() error = %v, want a definition error", err)
	}
}

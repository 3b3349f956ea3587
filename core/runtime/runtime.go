// Package runtime provides the pipeline execution environment.
// It holds the active definition snapshot, evaluates named pipelines and
// handlers against it, and reports every evaluation to the history store
// and metrics.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/artpar/pipekit/core/definition"
	"github.com/artpar/pipekit/core/failure"
	"github.com/artpar/pipekit/core/handler"
	"github.com/artpar/pipekit/core/namespace"
	"github.com/artpar/pipekit/core/pipeline"
	"github.com/artpar/pipekit/core/value"
	"github.com/artpar/pipekit/domain/evaluation"
	"github.com/artpar/pipekit/ports"
	"github.com/rs/zerolog"
)

var (
	// ErrUnknownPipeline is returned when no named pipeline matches.
	ErrUnknownPipeline = errors.New("unknown pipeline")
	// ErrUnknownModel is returned when no model matches.
	ErrUnknownModel = errors.New("unknown model")
	// ErrUnknownHandler is returned when no handler matches.
	ErrUnknownHandler = errors.New("unknown handler")
)

// Config configures the runtime.
type Config struct {
	// Logger for evaluations and reloads.
	Logger zerolog.Logger

	// Clock stamps evaluations. Defaults to the wall clock.
	Clock ports.Clock

	// IDs assigns execution IDs. Required.
	IDs ports.IDGenerator

	// History stores finished evaluations (optional).
	History ports.HistoryStore

	// Metrics receives evaluation measurements (optional).
	Metrics ports.Metrics
}

// Runtime evaluates pipelines against the active snapshot.
type Runtime struct {
	snapshot atomic.Pointer[Snapshot]

	logger  zerolog.Logger
	clock   ports.Clock
	ids     ports.IDGenerator
	history ports.HistoryStore
	metrics ports.Metrics
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// New creates a runtime serving snap.
func New(cfg Config, snap *Snapshot) *Runtime {
	if cfg.Clock == nil {
		cfg.Clock = wallClock{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = ports.NopMetrics{}
	}
	r := &Runtime{
		logger:  cfg.Logger,
		clock:   cfg.Clock,
		ids:     cfg.IDs,
		history: cfg.History,
		metrics: cfg.Metrics,
	}
	r.snapshot.Store(snap)
	r.metrics.SetPipelines(len(snap.names))
	return r
}

// Snapshot returns the active snapshot.
func (r *Runtime) Snapshot() *Snapshot { return r.snapshot.Load() }

// Swap installs snap and returns the previous snapshot. Evaluations already
// running keep the snapshot they started with.
func (r *Runtime) Swap(snap *Snapshot) *Snapshot {
	prev := r.snapshot.Swap(snap)
	r.metrics.SetPipelines(len(snap.names))
	r.metrics.ObserveReload(true)
	r.logger.Info().
		Int("pipelines", len(snap.names)).
		Strs("sources", snap.sources).
		Msg("definitions reloaded")
	return prev
}

// ReloadFailed reports a reload attempt that did not produce a snapshot.
// The active snapshot stays in place.
func (r *Runtime) ReloadFailed(err error) {
	r.metrics.ObserveReload(false)
	r.logger.Error().Err(err).Msg("definition reload failed, keeping previous definitions")
}

// Namespace returns the main namespace of the active snapshot.
func (r *Runtime) Namespace() *namespace.Namespace { return r.Snapshot().Namespace() }

// Pipelines returns the named pipelines of the active snapshot.
func (r *Runtime) Pipelines() []definition.Named { return r.Snapshot().Pipelines() }

// Pipeline returns a named pipeline of the active snapshot.
func (r *Runtime) Pipeline(name string) (definition.Named, bool) {
	return r.Snapshot().Pipeline(name)
}

// Symbols lists every symbol of the active snapshot.
func (r *Runtime) Symbols() []namespace.Symbol { return r.Namespace().Symbols() }

// History returns the configured history store, or nil.
func (r *Runtime) History() ports.HistoryStore { return r.history }

// Result is a finished evaluation.
type Result struct {
	ID        string        `json:"id"`
	Pipeline  string        `json:"pipeline"`
	Output    value.Value   `json:"output"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
}

// Evaluate runs the named pipeline with input as the subject. The returned
// Result carries the execution ID even when the evaluation fails.
func (r *Runtime) Evaluate(ctx context.Context, name string, input value.Value) (Result, error) {
	snap := r.Snapshot()
	named, ok := snap.Pipeline(name)
	if !ok {
		return Result{Pipeline: name}, fmt.Errorf("%w: %s", ErrUnknownPipeline, name)
	}
	return r.run(ctx, name, input, func(ctx context.Context) (value.Value, error) {
		return pipeline.Evaluate(ctx, named.Pipeline, input, snap.Namespace())
	})
}

// EvaluateChain binds chain against the main namespace and runs it once.
// The evaluation is recorded under the name "inline".
func (r *Runtime) EvaluateChain(ctx context.Context, chain pipeline.Chain, input value.Value) (Result, error) {
	snap := r.Snapshot()
	p, err := chain.Bind(snap.Namespace())
	if err != nil {
		return Result{Pipeline: InlinePipeline}, err
	}
	return r.run(ctx, InlinePipeline, input, func(ctx context.Context) (value.Value, error) {
		return pipeline.Evaluate(ctx, p, input, snap.Namespace())
	})
}

// InlinePipeline names evaluations of chains that are not named pipelines.
const InlinePipeline = "inline"

// Handle invokes the handler at path (handler group path followed by the
// handler name) with input as the payload.
func (r *Runtime) Handle(ctx context.Context, path []string, input value.Value) (Result, error) {
	h, ok := r.handler(path)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownHandler, strings.Join(path, "."))
	}
	return r.run(ctx, h.FullName(), input, func(ctx context.Context) (value.Value, error) {
		return h.Call(ctx, input)
	})
}

func (r *Runtime) handler(path []string) (*handler.Handler, bool) {
	if len(path) < 2 {
		return nil, false
	}
	group, ok := r.Namespace().HandlerGroupAt(path[:len(path)-1])
	if !ok {
		return nil, false
	}
	return group.Handler(path[len(path)-1])
}

// Transform prepares record for storage through the OnSet pipelines of the
// model at the dotted path.
func (r *Runtime) Transform(ctx context.Context, model string, record value.Value) (value.Value, error) {
	ns := r.Namespace()
	m, ok := ns.ModelAt(definition.SplitPath(model))
	if !ok {
		return value.Null(), fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
	return m.ApplyOnSet(ctx, ns, record)
}

// Output prepares a stored record of the model at the dotted path for
// callers.
func (r *Runtime) Output(ctx context.Context, model string, record value.Value) (value.Value, error) {
	ns := r.Namespace()
	m, ok := ns.ModelAt(definition.SplitPath(model))
	if !ok {
		return value.Null(), fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
	return m.Output(ctx, ns, record)
}

func (r *Runtime) run(ctx context.Context, name string, input value.Value, call func(context.Context) (value.Value, error)) (Result, error) {
	res := Result{ID: r.ids.New(), Pipeline: name, StartedAt: r.clock.Now()}
	log := r.logger.With().Str("evaluation_id", res.ID).Str("pipeline", name).Logger()

	out, err := call(log.WithContext(ctx))
	res.Duration = r.clock.Now().Sub(res.StartedAt)

	rec := evaluation.Record{
		ID:        res.ID,
		Pipeline:  name,
		Status:    evaluation.StatusOK,
		Input:     input,
		StartedAt: res.StartedAt,
		Duration:  res.Duration,
	}
	if err != nil {
		rec.Status = evaluation.StatusFailed
		rec.Error = err.Error()
		if kind := failure.KindOf(err); kind != 0 {
			rec.ErrorKind = kind.String()
		}
		log.Warn().Err(err).Str("error_kind", rec.ErrorKind).Dur("duration", res.Duration).Msg("evaluation failed")
	} else {
		res.Output = out
		rec.Output = out
		log.Debug().Dur("duration", res.Duration).Msg("evaluation finished")
	}

	r.metrics.ObserveEvaluation(name, rec.Status, rec.ErrorKind, res.Duration)
	if r.history != nil {
		// History failures are logged, not returned.
		if herr := r.history.Record(context.WithoutCancel(ctx), rec); herr != nil {
			log.Error().Err(herr).Msg("record evaluation history")
		}
	}
	return res, err
}

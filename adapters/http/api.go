package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/artpar/pipekit/core/failure"
	"github.com/artpar/pipekit/core/namespace"
	"github.com/artpar/pipekit/core/runtime"
	"github.com/artpar/pipekit/core/value"
	"github.com/artpar/pipekit/domain/evaluation"
	"github.com/artpar/pipekit/ports"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// API serves the /v1 endpoints.
type API struct {
	runtime Runtime
	logger  zerolog.Logger
	maxBody int64
}

// EvaluationResponse is the body of a successful evaluation.
type EvaluationResponse struct {
	ID       string      `json:"id"`
	Pipeline string      `json:"pipeline"`
	Output   value.Value `json:"output"`
	Duration int64       `json:"duration_ns"`
}

func evaluationResponse(res runtime.Result) EvaluationResponse {
	return EvaluationResponse{
		ID:       res.ID,
		Pipeline: res.Pipeline,
		Output:   res.Output,
		Duration: int64(res.Duration),
	}
}

// Readiness reports whether definitions are loaded.
func (a *API) Readiness(w http.ResponseWriter, r *http.Request) {
	snap := a.runtime.Snapshot()
	if snap == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": "no definitions loaded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"pipelines": len(snap.Pipelines()),
		"loaded_at": snap.LoadedAt(),
	})
}

// ListSymbols lists every registered symbol, optionally filtered by
// ?kind= and ?prefix=.
func (a *API) ListSymbols(w http.ResponseWriter, r *http.Request) {
	kind := namespace.SymbolKind(r.URL.Query().Get("kind"))
	prefix := r.URL.Query().Get("prefix")

	out := make([]namespace.Symbol, 0)
	for _, s := range a.runtime.Symbols() {
		if kind != "" && s.Kind != kind {
			continue
		}
		if prefix != "" && !strings.HasPrefix(s.FullName(), prefix) {
			continue
		}
		out = append(out, s)
	}
	writeJSON(w, http.StatusOK, map[string]any{"symbols": out})
}

// ListPipelines lists named pipelines.
func (a *API) ListPipelines(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"pipelines": a.runtime.Pipelines()})
}

// GetPipeline describes one named pipeline.
func (a *API) GetPipeline(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	p, ok := a.runtime.Pipeline(name)
	if !ok {
		writeError(w, http.StatusNotFound, ErrorDetail{Code: "not_found", Message: "unknown pipeline: " + name})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// EvaluatePipeline runs a named pipeline with the JSON request body as the
// subject. An empty body evaluates null.
func (a *API) EvaluatePipeline(w http.ResponseWriter, r *http.Request) {
	input, ok := a.readValue(w, r)
	if !ok {
		return
	}
	res, err := a.runtime.Evaluate(r.Context(), chi.URLParam(r, "name"), input)
	a.writeResult(w, res, err)
}

// InvokeHandler runs the handler addressed by the path below
// /v1/handlers/, e.g. /v1/handlers/text/api/slug.
func (a *API) InvokeHandler(w http.ResponseWriter, r *http.Request) {
	path := strings.Split(strings.Trim(chi.URLParam(r, "*"), "/"), "/")
	input, ok := a.readValue(w, r)
	if !ok {
		return
	}
	res, err := a.runtime.Handle(r.Context(), path, input)
	a.writeResult(w, res, err)
}

// TransformRecord applies a model's OnSet pipelines to the request body.
func (a *API) TransformRecord(w http.ResponseWriter, r *http.Request) {
	a.modelRecord(w, r, a.runtime.Transform)
}

// OutputRecord applies a model's output rules to the request body.
func (a *API) OutputRecord(w http.ResponseWriter, r *http.Request) {
	a.modelRecord(w, r, a.runtime.Output)
}

func (a *API) modelRecord(w http.ResponseWriter, r *http.Request, apply func(context.Context, string, value.Value) (value.Value, error)) {
	record, ok := a.readValue(w, r)
	if !ok {
		return
	}
	out, err := apply(r.Context(), chi.URLParam(r, "model"), record)
	if err != nil {
		status, detail := classify(err)
		writeError(w, status, detail)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"record": out})
}

// ListEvaluations lists stored evaluations, newest first.
func (a *API) ListEvaluations(w http.ResponseWriter, r *http.Request) {
	store, ok := a.historyStore(w)
	if !ok {
		return
	}
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorDetail{Code: "bad_request", Message: err.Error()})
		return
	}
	records, err := store.List(r.Context(), f)
	if err != nil {
		a.internalError(w, r, err)
		return
	}
	if records == nil {
		records = []evaluation.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"evaluations": records})
}

// SummarizeEvaluations aggregates stored evaluations per pipeline.
func (a *API) SummarizeEvaluations(w http.ResponseWriter, r *http.Request) {
	store, ok := a.historyStore(w)
	if !ok {
		return
	}
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorDetail{Code: "bad_request", Message: err.Error()})
		return
	}
	summaries, err := store.Summaries(r.Context(), f)
	if err != nil {
		a.internalError(w, r, err)
		return
	}
	if summaries == nil {
		summaries = []evaluation.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"summaries": summaries})
}

// GetEvaluation returns one stored evaluation.
func (a *API) GetEvaluation(w http.ResponseWriter, r *http.Request) {
	store, ok := a.historyStore(w)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	rec, err := store.Get(r.Context(), id)
	if errors.Is(err, ports.ErrNotFound) {
		writeError(w, http.StatusNotFound, ErrorDetail{Code: "not_found", Message: "unknown evaluation: " + id})
		return
	}
	if err != nil {
		a.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *API) historyStore(w http.ResponseWriter) (ports.HistoryStore, bool) {
	store := a.runtime.History()
	if store == nil {
		writeError(w, http.StatusNotImplemented, ErrorDetail{Code: "history_disabled", Message: "evaluation history is disabled"})
		return nil, false
	}
	return store, true
}

func (a *API) readValue(w http.ResponseWriter, r *http.Request) (value.Value, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrorDetail{Code: "body_too_large", Message: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)})
			return value.Null(), false
		}
		writeError(w, http.StatusBadRequest, ErrorDetail{Code: "bad_request", Message: "failed to read request body"})
		return value.Null(), false
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return value.Null(), true
	}
	var v value.Value
	if err := json.Unmarshal(body, &v); err != nil {
		writeError(w, http.StatusBadRequest, ErrorDetail{Code: "invalid_json", Message: err.Error()})
		return value.Null(), false
	}
	return v, true
}

func (a *API) writeResult(w http.ResponseWriter, res runtime.Result, err error) {
	if err != nil {
		status, detail := classify(err)
		detail.EvaluationID = res.ID
		writeError(w, status, detail)
		return
	}
	writeJSON(w, http.StatusOK, evaluationResponse(res))
}

func (a *API) internalError(w http.ResponseWriter, r *http.Request, err error) {
	zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	writeError(w, http.StatusInternalServerError, ErrorDetail{Code: "internal_error", Message: "internal error"})
}

// classify maps runtime errors to HTTP statuses.
func classify(err error) (int, ErrorDetail) {
	switch {
	case errors.Is(err, runtime.ErrUnknownPipeline),
		errors.Is(err, runtime.ErrUnknownModel),
		errors.Is(err, runtime.ErrUnknownHandler):
		return http.StatusNotFound, ErrorDetail{Code: "not_found", Message: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrorDetail{Code: "timeout", Message: err.Error()}
	}

	switch kind := failure.KindOf(err); kind {
	case failure.KindArgument:
		return http.StatusUnprocessableEntity, ErrorDetail{Code: "argument_error", Message: err.Error(), Kind: kind.String()}
	case failure.KindCoercion:
		return http.StatusUnprocessableEntity, ErrorDetail{Code: "coercion_error", Message: err.Error(), Kind: kind.String()}
	case failure.KindDefinition:
		return http.StatusUnprocessableEntity, ErrorDetail{Code: "definition_error", Message: err.Error(), Kind: kind.String()}
	}
	return http.StatusInternalServerError, ErrorDetail{Code: "evaluation_failed", Message: err.Error()}
}

func parseFilter(r *http.Request) (evaluation.Filter, error) {
	q := r.URL.Query()
	f := evaluation.Filter{Pipeline: q.Get("pipeline")}

	switch status := evaluation.Status(q.Get("status")); status {
	case "", evaluation.StatusOK, evaluation.StatusFailed:
		f.Status = status
	default:
		return f, fmt.Errorf("status must be %q or %q", evaluation.StatusOK, evaluation.StatusFailed)
	}

	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, fmt.Errorf("since must be an RFC 3339 timestamp")
		}
		f.Since = since
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return f, fmt.Errorf("limit must be a positive integer")
		}
		f.Limit = limit
	}
	return f, nil
}

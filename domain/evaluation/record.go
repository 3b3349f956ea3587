// Package evaluation provides the evaluation record type and pure
// aggregation functions over records.
package evaluation

import (
	"time"

	"github.com/artpar/pipekit/core/value"
)

// Status is the outcome of an evaluation.
type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// Record is one finished pipeline evaluation (immutable value type).
type Record struct {
	ID        string        `json:"id"`
	Pipeline  string        `json:"pipeline"`
	Status    Status        `json:"status"`
	Input     value.Value   `json:"input"`
	Output    value.Value   `json:"output"`
	Error     string        `json:"error,omitempty"`
	ErrorKind string        `json:"error_kind,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
}

// Failed reports whether the evaluation ended in an error.
func (r Record) Failed() bool { return r.Status == StatusFailed }

// Filter selects records from a history store.
type Filter struct {
	// Pipeline restricts results to one named pipeline; empty means all.
	Pipeline string
	// Status restricts results to one outcome; empty means all.
	Status Status
	// Since excludes records started before it; zero means no bound.
	Since time.Time
	// Limit caps the number of records; values <= 0 use DefaultLimit.
	Limit int
}

// DefaultLimit is the page size used when a filter sets none.
const DefaultLimit = 50

// EffectiveLimit returns the limit a store should apply.
func (f Filter) EffectiveLimit() int {
	if f.Limit <= 0 {
		return DefaultLimit
	}
	return f.Limit
}

// Matches reports whether r passes the filter, ignoring Limit.
func (f Filter) Matches(r Record) bool {
	if f.Pipeline != "" && r.Pipeline != f.Pipeline {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if !f.Since.IsZero() && r.StartedAt.Before(f.Since) {
		return false
	}
	return true
}

// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"errors"
	"time"

	"github.com/artpar/pipekit/domain/evaluation"
)

// ErrNotFound is returned when a stored entity does not exist.
var ErrNotFound = errors.New("not found")

// Hasher errors.
var (
	ErrHashMismatch = errors.New("hash does not match")
	ErrInvalidCost  = errors.New("cost is out of range")
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Data Store Ports
// -----------------------------------------------------------------------------

// HistoryStore persists finished evaluations.
type HistoryStore interface {
	// Record stores one evaluation.
	Record(ctx context.Context, r evaluation.Record) error

	// Get retrieves an evaluation by ID. Returns ErrNotFound when absent.
	Get(ctx context.Context, id string) (evaluation.Record, error)

	// List returns evaluations matching the filter, newest first.
	List(ctx context.Context, f evaluation.Filter) ([]evaluation.Record, error)

	// Summaries aggregates evaluations matching the filter per pipeline.
	// The filter's Limit is ignored.
	Summaries(ctx context.Context, f evaluation.Filter) ([]evaluation.Summary, error)
}

// -----------------------------------------------------------------------------
// Hashing
// -----------------------------------------------------------------------------

// Hasher hashes and verifies secrets.
type Hasher interface {
	// Hash hashes plaintext. A zero cost uses the hasher's default.
	Hash(plaintext string, cost int) ([]byte, error)
	// Compare returns ErrHashMismatch when plaintext does not match hash.
	Compare(hash []byte, plaintext string) error
}

// -----------------------------------------------------------------------------
// Observability Ports
// -----------------------------------------------------------------------------

// Metrics receives evaluation measurements.
type Metrics interface {
	// ObserveEvaluation records one finished evaluation.
	ObserveEvaluation(pipeline string, status evaluation.Status, errorKind string, d time.Duration)

	// SetPipelines reports the number of named pipelines loaded.
	SetPipelines(n int)

	// ObserveReload records a definition reload attempt.
	ObserveReload(ok bool)
}

// NopMetrics discards all measurements.
type NopMetrics struct{}

func (NopMetrics) ObserveEvaluation(string, evaluation.Status, string, time.Duration) {}
func (NopMetrics) SetPipelines(int)                                                   {}
func (NopMetrics) ObserveReload(bool)                                                 {}

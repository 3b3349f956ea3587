// Package idgen provides execution ID generators.
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/artpar/pipekit/ports"
	"github.com/google/uuid"
)

// EvaluationPrefix prefixes execution IDs handed out by the runtime.
const EvaluationPrefix = "ev_"

// UUID generates prefixed UUID v4 identifiers.
type UUID struct {
	Prefix string
}

// New generates a new identifier.
func (g UUID) New() string {
	return g.Prefix + uuid.New().String()
}

var _ ports.IDGenerator = UUID{}

// Sequential generates sequential IDs (for testing).
type Sequential struct {
	prefix  string
	counter atomic.Uint64
}

// NewSequential creates a sequential ID generator.
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

// New generates the next sequential ID.
func (s *Sequential) New() string {
	return s.prefix + strconv.FormatUint(s.counter.Add(1), 10)
}

// Reset restarts numbering at 1.
func (s *Sequential) Reset() {
	s.counter.Store(0)
}

var _ ports.IDGenerator = (*Sequential)(nil)

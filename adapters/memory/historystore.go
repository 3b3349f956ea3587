package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/artpar/pipekit/domain/evaluation"
	"github.com/artpar/pipekit/ports"
)

// HistoryStore is an in-memory implementation of ports.HistoryStore.
// When capacity is positive the oldest records are dropped beyond it.
type HistoryStore struct {
	mu       sync.RWMutex
	records  []evaluation.Record
	byID     map[string]int // absolute position, records[pos-dropped]
	dropped  int
	capacity int
}

// NewHistoryStore creates a new in-memory history store.
func NewHistoryStore(capacity int) *HistoryStore {
	return &HistoryStore{
		records:  make([]evaluation.Record, 0),
		byID:     make(map[string]int),
		capacity: capacity,
	}
}

// Record stores one evaluation.
func (s *HistoryStore) Record(ctx context.Context, r evaluation.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pos, ok := s.byID[r.ID]; ok {
		s.records[pos-s.dropped] = r
		return nil
	}
	s.byID[r.ID] = s.dropped + len(s.records)
	s.records = append(s.records, r)
	if s.capacity > 0 && len(s.records) > s.capacity {
		n := len(s.records) - s.capacity
		for _, old := range s.records[:n] {
			delete(s.byID, old.ID)
		}
		s.records = s.records[n:]
		s.dropped += n
	}
	return nil
}

// Get retrieves an evaluation by ID.
func (s *HistoryStore) Get(ctx context.Context, id string) (evaluation.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, ok := s.byID[id]
	if !ok {
		return evaluation.Record{}, ports.ErrNotFound
	}
	return s.records[pos-s.dropped], nil
}

// List returns evaluations matching the filter, newest first.
func (s *HistoryStore) List(ctx context.Context, f evaluation.Filter) ([]evaluation.Record, error) {
	matching := s.matching(f)
	if limit := f.EffectiveLimit(); len(matching) > limit {
		matching = matching[:limit]
	}
	return matching, nil
}

// Summaries aggregates evaluations matching the filter per pipeline.
func (s *HistoryStore) Summaries(ctx context.Context, f evaluation.Filter) ([]evaluation.Summary, error) {
	return evaluation.SummarizeByPipeline(s.matching(f)), nil
}

func (s *HistoryStore) matching(f evaluation.Filter) []evaluation.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []evaluation.Record
	for _, r := range s.records {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

// Len returns the number of stored records.
func (s *HistoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

var _ ports.HistoryStore = (*HistoryStore)(nil)

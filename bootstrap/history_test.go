package bootstrap_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/artpar/pipekit/adapters/memory"
	"github.com/artpar/pipekit/bootstrap"
	"github.com/artpar/pipekit/domain/evaluation"
	"github.com/rs/zerolog"
)

type countingStore struct {
	*memory.HistoryStore
	mu     sync.Mutex
	writes int
	fail   bool
}

func (s *countingStore) Record(ctx context.Context, r evaluation.Record) error {
	s.mu.Lock()
	s.writes++
	fail := s.fail
	s.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return s.HistoryStore.Record(ctx, r)
}

func (s *countingStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func record(id string) evaluation.Record {
	return evaluation.Record{
		ID:        id,
		Pipeline:  "text.slug",
		Status:    evaluation.StatusOK,
		StartedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestBufferedHistory_BatchSize(t *testing.T) {
	store := &countingStore{HistoryStore: memory.NewHistoryStore(0)}
	h := bootstrap.NewBufferedHistory(store, 3, time.Hour, zerolog.Nop())
	defer h.Close()

	ctx := context.Background()
	h.Record(ctx, record("ev_1"))
	h.Record(ctx, record("ev_2"))
	if store.count() != 0 {
		t.Fatalf("writes = %d before batch is full, want 0", store.count())
	}
	h.Record(ctx, record("ev_3"))
	if store.count() != 3 {
		t.Errorf("writes = %d after batch is full, want 3", store.count())
	}
}

func TestBufferedHistory_ReadsFlush(t *testing.T) {
	store := &countingStore{HistoryStore: memory.NewHistoryStore(0)}
	h := bootstrap.NewBufferedHistory(store, 100, time.Hour, zerolog.Nop())
	defer h.Close()

	ctx := context.Background()
	h.Record(ctx, record("ev_1"))

	got, err := h.Get(ctx, "ev_1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID != "ev_1" {
		t.Errorf("ID = %s, want ev_1", got.ID)
	}

	h.Record(ctx, record("ev_2"))
	list, err := h.List(ctx, evaluation.Filter{})
	if err != nil || len(list) != 2 {
		t.Errorf("List() = %d, %v; want 2 records", len(list), err)
	}

	h.Record(ctx, record("ev_3"))
	sums, err := h.Summaries(ctx, evaluation.Filter{})
	if err != nil || len(sums) != 1 || sums[0].Count != 3 {
		t.Errorf("Summaries() = %+v, %v", sums, err)
	}
}

func TestBufferedHistory_Interval(t *testing.T) {
	store := &countingStore{HistoryStore: memory.NewHistoryStore(0)}
	h := bootstrap.NewBufferedHistory(store, 100, 10*time.Millisecond, zerolog.Nop())
	defer h.Close()

	h.Record(context.Background(), record("ev_1"))

	deadline := time.Now().Add(time.Second)
	for store.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if store.count() != 1 {
		t.Errorf("writes = %d after interval, want 1", store.count())
	}
}

func TestBufferedHistory_CloseFlushes(t *testing.T) {
	store := &countingStore{HistoryStore: memory.NewHistoryStore(0)}
	h := bootstrap.NewBufferedHistory(store, 100, time.Hour, zerolog.Nop())

	h.Record(context.Background(), record("ev_1"))
	if err := h.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("stored = %d after Close, want 1", store.Len())
	}
	if err := h.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestBufferedHistory_WriteError(t *testing.T) {
	store := &countingStore{HistoryStore: memory.NewHistoryStore(0), fail: true}
	h := bootstrap.NewBufferedHistory(store, 100, time.Hour, zerolog.Nop())
	defer h.Close()

	h.Record(context.Background(), record("ev_1"))
	if err := h.Flush(context.Background()); err == nil {
		t.Error("Flush() should report the write error")
	}
	if err := h.Flush(context.Background()); err != nil {
		t.Errorf("failed records should be dropped, got %v", err)
	}
}

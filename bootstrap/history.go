package bootstrap

import (
	"context"
	"sync"
	"time"

	"github.com/artpar/pipekit/domain/evaluation"
	"github.com/artpar/pipekit/ports"
	"github.com/rs/zerolog"
)

// BufferedHistory buffers evaluation records and writes them to the
// underlying store in batches. Reads flush the buffer first so callers see
// every recorded evaluation.
type BufferedHistory struct {
	store         ports.HistoryStore
	logger        zerolog.Logger
	buffer        []evaluation.Record
	mu            sync.Mutex
	batchSize     int
	flushInterval time.Duration
	stopCh        chan struct{}
	wg            sync.WaitGroup
	closeOnce     sync.Once
}

// NewBufferedHistory creates a buffered history store.
func NewBufferedHistory(store ports.HistoryStore, batchSize int, flushInterval time.Duration, logger zerolog.Logger) *BufferedHistory {
	if batchSize == 0 {
		batchSize = 100
	}
	if flushInterval == 0 {
		flushInterval = 5 * time.Second
	}

	h := &BufferedHistory{
		store:         store,
		logger:        logger,
		buffer:        make([]evaluation.Record, 0, batchSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		stopCh:        make(chan struct{}),
	}

	h.wg.Add(1)
	go h.flushLoop()

	return h
}

// Record queues a record.
func (h *BufferedHistory) Record(ctx context.Context, r evaluation.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.buffer = append(h.buffer, r)
	if len(h.buffer) >= h.batchSize {
		return h.flushLocked(ctx)
	}
	return nil
}

// Flush writes queued records.
func (h *BufferedHistory) Flush(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.flushLocked(ctx)
}

// flushLocked writes the buffer in order. Records that fail to write are
// dropped after logging; the first error is returned.
func (h *BufferedHistory) flushLocked(ctx context.Context) error {
	if len(h.buffer) == 0 {
		return nil
	}

	var first error
	for _, r := range h.buffer {
		if err := h.store.Record(ctx, r); err != nil {
			h.logger.Error().Err(err).Str("evaluation_id", r.ID).Msg("failed to write evaluation")
			if first == nil {
				first = err
			}
		}
	}
	h.buffer = h.buffer[:0]
	return first
}

func (h *BufferedHistory) flushLoop() {
	defer h.wg.Done()
	ticker := time.NewTicker(h.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.Flush(context.Background())
		case <-h.stopCh:
			return
		}
	}
}

// Get flushes and reads one record.
func (h *BufferedHistory) Get(ctx context.Context, id string) (evaluation.Record, error) {
	h.Flush(ctx)
	return h.store.Get(ctx, id)
}

// List flushes and lists records.
func (h *BufferedHistory) List(ctx context.Context, f evaluation.Filter) ([]evaluation.Record, error) {
	h.Flush(ctx)
	return h.store.List(ctx, f)
}

// Summaries flushes and aggregates records.
func (h *BufferedHistory) Summaries(ctx context.Context, f evaluation.Filter) ([]evaluation.Summary, error) {
	h.Flush(ctx)
	return h.store.Summaries(ctx, f)
}

// Close stops the flush loop and writes remaining records.
func (h *BufferedHistory) Close() error {
	var err error
	h.closeOnce.Do(func() {
		close(h.stopCh)
		h.wg.Wait()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err = h.Flush(ctx)
	})
	return err
}

var _ ports.HistoryStore = (*BufferedHistory)(nil)

package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/epimap/internal/disease/entity"
	"github.com/shandysiswandi/epimap/internal/pkg/pkgmetrics"
)

const DefaultBatchSize = 1000

// RecordStore persists records. One call must be atomic.
type RecordStore interface {
	CreateMany(ctx context.Context, records []entity.DiseaseRecord) error
}

// BatchWriter buffers at most one batch and writes it with a single
// CreateMany call.
type BatchWriter struct {
	store   RecordStore
	size    int
	buf     []entity.DiseaseRecord
	written int
	batches int
	onFlush func(written int)
}

func NewBatchWriter(store RecordStore, size int) *BatchWriter {
	if size < 1 {
		size = DefaultBatchSize
	}

	return &BatchWriter{
		store: store,
		size:  size,
		buf:   make([]entity.DiseaseRecord, 0, size),
	}
}

// OnFlush registers fn to be called with the running total after each
// successful batch.
func (w *BatchWriter) OnFlush(fn func(written int)) {
	w.onFlush = fn
}

func (w *BatchWriter) Add(ctx context.Context, rec entity.DiseaseRecord) error {
	w.buf = append(w.buf, rec)
	if len(w.buf) < w.size {
		return nil
	}
	return w.Flush(ctx)
}

// Flush writes the buffered records, if any. A failed batch is dropped and
// reported as *PersistenceError.
func (w *BatchWriter) Flush(ctx context.Context) error {
	if len(w.buf) == 0 {
		return nil
	}

	batch := w.buf
	w.buf = make([]entity.DiseaseRecord, 0, w.size)

	start := time.Now()
	err := w.store.CreateMany(ctx, batch)
	elapsed := time.Since(start)

	if err != nil {
		pkgmetrics.ObserveBatch(pkgmetrics.ResultError, elapsed)
		slog.ErrorContext(ctx, "batch write failed", "batch", w.batches+1, "size", len(batch), "written", w.written, "error", err)
		return &PersistenceError{Written: w.written, Err: err}
	}

	pkgmetrics.ObserveBatch(pkgmetrics.ResultSuccess, elapsed)
	w.written += len(batch)
	w.batches++

	rate := float64(len(batch))
	if secs := elapsed.Seconds(); secs > 0 {
		rate /= secs
	}
	slog.InfoContext(ctx, "batch written",
		"batch", w.batches,
		"size", len(batch),
		"written", w.written,
		"elapsed_ms", elapsed.Milliseconds(),
		"records_per_second", int64(rate),
	)

	if w.onFlush != nil {
		w.onFlush(w.written)
	}
	return nil
}

func (w *BatchWriter) Written() int {
	return w.written
}

func (w *BatchWriter) Batches() int {
	return w.batches
}

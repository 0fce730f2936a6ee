// Package event carries the progress of one ingestion run from the pipeline
// goroutine to its subscriber.
package event

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shandysiswandi/epimap/internal/disease/entity"
)

var ErrBusClosed = errors.New("event bus is closed")

// Bus is the event stream of one run. Events are stamped with the run id and
// the stream always ends with exactly one terminal (complete or error) event:
// publishing after a terminal event fails, and Close emits an error event when
// the run never published one.
//
// The publisher owns Close; the subscriber must read until the channel closes.
type Bus struct {
	mu       sync.Mutex
	runID    string
	closed   bool
	terminal bool
	ch       chan entity.ProgressEvent
	now      func() time.Time
}

func NewBus(runID string, buffer int) *Bus {
	if buffer < 1 {
		buffer = 1
	}

	return &Bus{
		runID: runID,
		ch:    make(chan entity.ProgressEvent, buffer),
		now:   time.Now,
	}
}

func (b *Bus) RunID() string {
	return b.runID
}

func (b *Bus) Publish(ctx context.Context, ev entity.ProgressEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || b.terminal {
		return ErrBusClosed
	}
	if ev.RunID == "" {
		ev.RunID = b.runID
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = b.now()
	}

	select {
	case b.ch <- ev:
		b.terminal = ev.Type.Terminal()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bus) Subscribe() <-chan entity.ProgressEvent {
	return b.ch
}

func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	if !b.terminal {
		b.ch <- entity.ProgressEvent{
			RunID:     b.runID,
			Type:      entity.ProgressError,
			Stage:     entity.StageFailed,
			Message:   "ingestion ended without a result",
			Timestamp: b.now(),
		}
		b.terminal = true
	}

	b.closed = true
	close(b.ch)
}

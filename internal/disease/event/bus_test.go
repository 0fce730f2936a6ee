package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shandysiswandi/epimap/internal/disease/entity"
)

func drain(bus *Bus) []entity.ProgressEvent {
	var got []entity.ProgressEvent
	for ev := range bus.Subscribe() {
		got = append(got, ev)
	}
	return got
}

func TestBusDeliversInOrderAndStampsRun(t *testing.T) {
	bus := NewBus("run-7", 4)
	ctx := context.Background()

	stages := []entity.Stage{entity.StageReading, entity.StageResolvingColumns}
	for _, stage := range stages {
		if err := bus.Publish(ctx, entity.ProgressEvent{Type: entity.ProgressStatus, Stage: stage}); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}
	if err := bus.Publish(ctx, entity.ProgressEvent{Type: entity.ProgressComplete, Stage: entity.StageComplete}); err != nil {
		t.Fatalf("Publish complete: %v", err)
	}
	bus.Close()
	bus.Close()

	got := drain(bus)
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	for i, stage := range append(stages, entity.StageComplete) {
		if got[i].Stage != stage || got[i].RunID != "run-7" || got[i].Timestamp.IsZero() {
			t.Fatalf("event %d: unexpected %+v", i, got[i])
		}
	}

	if err := bus.Publish(ctx, entity.ProgressEvent{}); !errors.Is(err, ErrBusClosed) {
		t.Fatalf("expected ErrBusClosed, got %v", err)
	}
}

func TestBusRejectsEventsAfterTerminal(t *testing.T) {
	bus := NewBus("run-1", 4)
	ctx := context.Background()

	if err := bus.Publish(ctx, entity.ProgressEvent{Type: entity.ProgressError, Stage: entity.StageFailed}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := bus.Publish(ctx, entity.ProgressEvent{Type: entity.ProgressStatus}); !errors.Is(err, ErrBusClosed) {
		t.Fatalf("expected ErrBusClosed after terminal event, got %v", err)
	}
	bus.Close()

	if got := drain(bus); len(got) != 1 || got[0].Type != entity.ProgressError {
		t.Fatalf("expected a single error event, got %+v", got)
	}
}

func TestBusCloseEmitsMissingTerminal(t *testing.T) {
	bus := NewBus("run-2", 2)
	if err := bus.Publish(context.Background(), entity.ProgressEvent{Type: entity.ProgressStatus, Stage: entity.StageWriting}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	done := make(chan []entity.ProgressEvent)
	go func() { done <- drain(bus) }()
	bus.Close()

	got := <-done
	if len(got) != 2 {
		t.Fatalf("expected status plus synthesized error, got %+v", got)
	}
	last := got[1]
	if last.Type != entity.ProgressError || last.Stage != entity.StageFailed || last.RunID != "run-2" {
		t.Fatalf("unexpected closing event %+v", last)
	}
}

func TestBusPublishHonorsContext(t *testing.T) {
	bus := NewBus("run-3", 0)
	ctx := context.Background()
	if err := bus.Publish(ctx, entity.ProgressEvent{}); err != nil {
		t.Fatalf("first publish should fit the minimum buffer: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := bus.Publish(ctx, entity.ProgressEvent{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded on full bus, got %v", err)
	}
}

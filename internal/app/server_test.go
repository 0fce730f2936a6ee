package app

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/shandysiswandi/epimap/internal/pkg/pkgroutine"
)

func TestStopClosesInReverseOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		ctx:        ctx,
		cancel:     cancel,
		httpServer: &http.Server{},
		goroutine:  pkgroutine.NewManager(1),
	}

	var order []string
	finished := false
	a.goroutine.Go(ctx, func(context.Context) error {
		finished = true
		return nil
	})
	a.addCloser("Config", func(context.Context) error {
		order = append(order, "Config")
		return nil
	})
	a.addCloser("Disease", func(context.Context) error {
		if !finished {
			t.Error("closer ran before in-flight work finished")
		}
		order = append(order, "Disease")
		return errors.New("close failed")
	})

	a.Stop(context.Background())

	if len(order) != 2 || order[0] != "Disease" || order[1] != "Config" {
		t.Fatalf("unexpected close order %v", order)
	}
	if ctx.Err() == nil {
		t.Fatal("expected app context canceled")
	}
}

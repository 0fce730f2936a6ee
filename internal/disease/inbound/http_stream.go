package inbound

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/shandysiswandi/epimap/internal/pkg/pkgerror"
	"github.com/shandysiswandi/epimap/internal/pkg/pkgrouter"
)

// UploadStream runs an upload and reports its progress as server-sent
// events. The run continues if the client goes away; remaining events are
// drained so the pipeline never blocks on a dead connection.
func (h *HTTPEndpoint) UploadStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	flusher, ok := w.(http.Flusher)
	if !ok {
		pkgrouter.WriteError(ctx, w, pkgerror.NewServer(errors.New("streaming unsupported")))
		return
	}

	form, err := readUploadForm(r)
	if err != nil {
		pkgrouter.WriteError(ctx, w, err)
		return
	}
	defer form.cleanup()

	events, err := h.uc.IngestStream(ctx, form.ingestInput())
	if err != nil {
		pkgrouter.WriteError(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	connected := true
	for ev := range events {
		if !connected {
			continue
		}
		if ctx.Err() != nil {
			connected = false
			slog.WarnContext(ctx, "stream client disconnected, ingestion continues")
			continue
		}

		payload, err := json.Marshal(toProgressEvent(ev))
		if err != nil {
			slog.ErrorContext(ctx, "failed to encode progress event", "error", err)
			continue
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload); err != nil {
			connected = false
			continue
		}
		flusher.Flush()
	}
}

package pkgrouter

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMiddlewareRecovererWritesServerError(t *testing.T) {
	h := middlewareRecoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["message"] == "" {
		t.Fatal("expected error message")
	}
}

func TestMiddlewareRecovererKeepsStartedStream(t *testing.T) {
	h := middlewareRecoverer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("event: status\ndata: {}\n\n"))
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected stream status to stay 200, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != "event: status\ndata: {}\n\n" {
		t.Fatalf("expected stream body untouched, got %q", got)
	}
}

func TestInternalFrames(t *testing.T) {
	stack := []byte("goroutine 1 [running]:\n" +
		"main.main()\n" +
		"\t/src/epimap/internal/disease/usecase/pipeline.go:42 +0x1d\n" +
		"\t/usr/local/go/src/runtime/proc.go:271 +0x29\n")

	frames := internalFrames(stack)
	if len(frames) != 1 || frames[0] != "internal/disease/usecase/pipeline.go:42" {
		t.Fatalf("unexpected frames %v", frames)
	}
}

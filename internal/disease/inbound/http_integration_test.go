package inbound

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shandysiswandi/epimap/internal/disease/entity"
	"github.com/shandysiswandi/epimap/internal/disease/geometry"
	"github.com/shandysiswandi/epimap/internal/disease/store"
	"github.com/shandysiswandi/epimap/internal/disease/usecase"
	"github.com/shandysiswandi/epimap/internal/pkg/pkgerror"
	"github.com/shandysiswandi/epimap/internal/pkg/pkgrouter"
	"github.com/shandysiswandi/epimap/internal/pkg/pkgroutine"
	"github.com/shandysiswandi/epimap/internal/pkg/pkguid"
)

const countries = `{"type":"FeatureCollection","features":[
  {"type":"Feature","properties":{"ADMIN":"Chad","NAME_EN":"Chad","ISO_A3":"TCD"},
   "geometry":{"type":"Polygon","coordinates":[[[14,8],[24,8],[24,23],[14,23],[14,8]]]}}
]}`

const scenarioCSV = "Country,Year,Cases\nChad,2021,150\nUnknownland,2021,bad\n,2021,10\n"

const testUploadLimit = 16 << 10

type envelope[T any] struct {
	Message string         `json:"message"`
	Data    T              `json:"data"`
	Meta    map[string]any `json:"meta,omitempty"`
}

type testServer struct {
	router  http.Handler
	storage *store.InMemoryStore
	runner  *pkgroutine.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ref, err := geometry.NewGeoJSON([]byte(countries))
	if err != nil {
		t.Fatalf("NewGeoJSON: %v", err)
	}
	ids, err := pkguid.NewSnowflake()
	if err != nil {
		t.Fatalf("NewSnowflake: %v", err)
	}

	storage := store.NewInMemoryStore(ids)
	runner := pkgroutine.NewManager(4)
	uc := usecase.New(usecase.Dependency{
		Store:     storage,
		Records:   storage,
		Reference: ref,
		Runner:    runner,
		ID:        pkguid.NewUUID(),
	})

	router := pkgrouter.NewRouter(pkguid.NewUUID())
	RegisterHTTPEndpoint(router, uc, testUploadLimit)

	return &testServer{router: router, storage: storage, runner: runner}
}

func multipartBody(t *testing.T, fileField, filename, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if fileField != "" {
		part, err := writer.CreateFormFile(fileField, filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func (s *testServer) post(t *testing.T, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestUploadScenario(t *testing.T) {
	srv := newTestServer(t)

	body, ct := multipartBody(t, "csv_file", "cases.csv", scenarioCSV, map[string]string{"dataset_name": "Covid 19"})
	rec := srv.post(t, "/api/upload", body, ct)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp envelope[UploadResponse]
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	got := resp.Data
	if got.Status != entity.RunStatusSuccess || got.Dataset != "covid_19" || got.RunID == "" {
		t.Fatalf("unexpected summary %+v", got)
	}
	if got.Rows != 3 || got.Imported != 2 || got.Skipped != 1 || got.NullCells != 1 {
		t.Fatalf("unexpected counts %+v", got)
	}
	if len(got.UnmatchedCountries) != 1 || got.UnmatchedCountries[0] != "Unknownland" {
		t.Fatalf("unexpected unmatched %v", got.UnmatchedCountries)
	}

	list := httptest.NewRecorder()
	srv.router.ServeHTTP(list, httptest.NewRequest(http.MethodGet, "/api/datasets/covid_19/records?page=1&size=10", nil))
	if list.Code != http.StatusOK {
		t.Fatalf("expected 200 listing records, got %d: %s", list.Code, list.Body.String())
	}

	var page envelope[struct {
		Items []struct {
			Country  string           `json:"country"`
			Date     string           `json:"date"`
			Cases    *int64           `json:"cases"`
			Geometry *json.RawMessage `json:"geometry"`
		} `json:"items"`
	}]
	if err := json.Unmarshal(list.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode records: %v", err)
	}
	if len(page.Data.Items) != 2 || page.Meta["total"] != float64(2) {
		t.Fatalf("expected 2 stored records, got %+v", page)
	}
	chad, unknown := page.Data.Items[0], page.Data.Items[1]
	if chad.Country != "Chad" || chad.Date != "2021-01-01" || chad.Geometry == nil {
		t.Fatalf("unexpected chad record %+v", chad)
	}
	if unknown.Cases != nil || unknown.Geometry != nil {
		t.Fatalf("expected unknownland without cases or geometry, got %+v", unknown)
	}
}

func TestUploadWithOverridesAndRawBody(t *testing.T) {
	srv := newTestServer(t)

	input := "Nation;Reported;Infections\nTCD;2021-02-01;5\n"
	req := httptest.NewRequest(http.MethodPost, "/api/upload?dataset=flu&country_col=Nation&date_col=Reported&cases_col=Infections", strings.NewReader(input))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp envelope[UploadResponse]
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Imported != 1 || len(resp.Data.UnmatchedCountries) != 0 {
		t.Fatalf("expected iso-3 match, got %+v", resp.Data)
	}
}

func TestUploadErrors(t *testing.T) {
	srv := newTestServer(t)

	cases := []struct {
		name      string
		fileField string
		content   string
		fields    map[string]string
		status    int
	}{
		{name: "missing columns", fileField: "file", content: "country,year\nChad,2021\n", fields: map[string]string{"dataset": "flu"}, status: http.StatusUnprocessableEntity},
		{name: "empty file", fileField: "file", content: "", fields: map[string]string{"dataset": "flu"}, status: http.StatusBadRequest},
		{name: "no file", fields: map[string]string{"dataset": "flu"}, status: http.StatusUnprocessableEntity},
		{name: "no dataset", fileField: "file", content: scenarioCSV, status: http.StatusUnprocessableEntity},
		{name: "unknown override", fileField: "file", content: scenarioCSV, fields: map[string]string{"dataset": "flu", "cases_col": "Infections"}, status: http.StatusUnprocessableEntity},
	}

	for _, tc := range cases {
		body, ct := multipartBody(t, tc.fileField, "data.csv", tc.content, tc.fields)
		rec := srv.post(t, "/api/upload", body, ct)
		if rec.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d: %s", tc.name, tc.status, rec.Code, rec.Body.String())
		}

		var resp map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s: decode: %v", tc.name, err)
		}
		if msg, _ := resp["message"].(string); msg == "" {
			t.Fatalf("%s: expected error message", tc.name)
		}
	}

	if _, _, err := srv.storage.ListByDataset(context.Background(), "flu", 1, 10); !errors.Is(err, pkgerror.ErrNotFound) {
		t.Fatalf("expected no records written, got %v", err)
	}
}

func TestDetectColumns(t *testing.T) {
	srv := newTestServer(t)

	body, ct := multipartBody(t, "file", "cases.csv", scenarioCSV, nil)
	rec := srv.post(t, "/api/columns/detect?samples=2", body, ct)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp envelope[DetectColumnsResponse]
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if strings.Join(resp.Data.Columns, ",") != "Country,Year,Cases" {
		t.Fatalf("unexpected columns %v", resp.Data.Columns)
	}
	if len(resp.Data.Samples) != 2 || resp.Data.Samples[1][0] != "Unknownland" {
		t.Fatalf("unexpected samples %v", resp.Data.Samples)
	}
	want := entity.ColumnMapping{Country: "Country", Date: "Year", Cases: "Cases"}
	if !resp.Data.Complete || resp.Data.Suggested != want {
		t.Fatalf("unexpected suggestion %+v", resp.Data)
	}

	body, ct = multipartBody(t, "file", "cases.csv", scenarioCSV, nil)
	if rec := srv.post(t, "/api/columns/detect?samples=zero", body, ct); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for bad samples, got %d", rec.Code)
	}
}

func TestUploadStream(t *testing.T) {
	srv := newTestServer(t)

	body, ct := multipartBody(t, "file", "cases.csv", scenarioCSV, map[string]string{"dataset": "measles"})
	rec := srv.post(t, "/api/upload/stream", body, ct)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("unexpected content type %q", got)
	}

	events := readEvents(t, rec.Body.String())
	if len(events) < 2 {
		t.Fatalf("expected several events, got %d", len(events))
	}

	last := events[len(events)-1]
	if last.name != "complete" || last.event.Stage != entity.StageComplete {
		t.Fatalf("expected final complete event, got %+v", last)
	}
	data, _ := json.Marshal(last.event.Data)
	var summary UploadResponse
	if err := json.Unmarshal(data, &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Imported != 2 || summary.Skipped != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	for _, ev := range events {
		if ev.event.RunID != summary.RunID {
			t.Fatalf("expected every event to carry run %q, got %+v", summary.RunID, ev.event)
		}
	}

	if err := srv.runner.Wait(); err != nil {
		t.Fatalf("runner wait: %v", err)
	}
}

func TestUploadStreamFailure(t *testing.T) {
	srv := newTestServer(t)

	body, ct := multipartBody(t, "file", "cases.csv", "a,b\n1,2\n", map[string]string{"dataset": "measles"})
	rec := srv.post(t, "/api/upload/stream", body, ct)

	events := readEvents(t, rec.Body.String())
	last := events[len(events)-1]
	if last.name != "error" || last.event.Stage != entity.StageFailed {
		t.Fatalf("expected final error event, got %+v", last)
	}

	body, ct = multipartBody(t, "file", "cases.csv", scenarioCSV, nil)
	rec = srv.post(t, "/api/upload/stream", body, ct)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 before streaming without dataset, got %d", rec.Code)
	}
}

type sseEvent struct {
	name  string
	event ProgressEvent
}

func readEvents(t *testing.T, raw string) []sseEvent {
	t.Helper()

	var out []sseEvent
	var current sseEvent
	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			current.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &current.event); err != nil {
				t.Fatalf("decode event: %v", err)
			}
		case line == "":
			if current.name != "" {
				out = append(out, current)
			}
			current = sseEvent{}
		}
	}
	return out
}

func TestListRecordsErrors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		path string
		code int
	}{
		{path: "/api/datasets/measles/records", code: http.StatusNotFound},
		{path: "/api/datasets/covid/records?page=0", code: http.StatusUnprocessableEntity},
		{path: "/api/datasets/covid/records?size=abc", code: http.StatusUnprocessableEntity},
	}

	for _, tc := range tests {
		rec := httptest.NewRecorder()
		srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if rec.Code != tc.code {
			t.Fatalf("%s: expected %d, got %d: %s", tc.path, tc.code, rec.Code, rec.Body.String())
		}
	}
}

func TestUploadTooLarge(t *testing.T) {
	srv := newTestServer(t)

	var big strings.Builder
	big.WriteString("country,cases\n")
	for big.Len() <= testUploadLimit {
		big.WriteString("Chad,150\n")
	}

	body, ct := multipartBody(t, "file", "big.csv", big.String(), map[string]string{"dataset_name": "big"})
	if rec := srv.post(t, "/api/upload", body, ct); rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 for declared length, got %d: %s", rec.Code, rec.Body.String())
	}

	body, ct = multipartBody(t, "file", "big.csv", big.String(), nil)
	if rec := srv.post(t, "/api/columns/detect", body, ct); rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 detecting columns, got %d: %s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodPost, "/api/upload?dataset_name=big&filename=big.csv", strings.NewReader(big.String()))
	req.Header.Set("Content-Type", "text/csv")
	req.ContentLength = -1
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 for chunked body, got %d: %s", rec.Code, rec.Body.String())
	}

	if _, _, err := srv.storage.ListByDataset(context.Background(), "big", 1, 10); !errors.Is(err, pkgerror.ErrNotFound) {
		t.Fatalf("expected nothing stored for an oversized upload, got %v", err)
	}
}

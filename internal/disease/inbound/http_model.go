package inbound

import (
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/shandysiswandi/epimap/internal/disease/entity"
	"github.com/shandysiswandi/epimap/internal/disease/usecase"
)

type UploadResponse struct {
	Status             entity.RunStatus `json:"status"`
	RunID              string           `json:"run_id"`
	Dataset            string           `json:"dataset"`
	Rows               int              `json:"rows"`
	Imported           int              `json:"imported"`
	Skipped            int              `json:"skipped"`
	NullCells          int              `json:"null_cells"`
	UnmatchedCountries []string         `json:"unmatched_countries"`
	ElapsedSeconds     float64          `json:"elapsed_seconds"`
}

func (UploadResponse) Message() string {
	return "file processed successfully"
}

type DetectColumnsResponse struct {
	Columns   []string             `json:"columns"`
	Samples   [][]string           `json:"samples"`
	Suggested entity.ColumnMapping `json:"suggested"`
	Complete  bool                 `json:"complete"`
	Missing   []string             `json:"missing,omitempty"`
}

type ProgressEvent struct {
	RunID     string              `json:"run_id"`
	Type      entity.ProgressType `json:"type"`
	Stage     entity.Stage        `json:"stage"`
	Message   string              `json:"message"`
	Data      any                 `json:"data,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

func toUploadResponse(s entity.Summary) UploadResponse {
	unmatched := s.UnmatchedCountries
	if unmatched == nil {
		unmatched = []string{}
	}

	return UploadResponse{
		Status:             s.Status,
		RunID:              s.RunID,
		Dataset:            s.Dataset,
		Rows:               s.TotalRows,
		Imported:           s.Imported,
		Skipped:            s.Skipped,
		NullCells:          s.NullCells,
		UnmatchedCountries: unmatched,
		ElapsedSeconds:     s.ElapsedSeconds,
	}
}

func toProgressEvent(ev entity.ProgressEvent) ProgressEvent {
	data := ev.Data
	if summary, ok := data.(entity.Summary); ok {
		data = toUploadResponse(summary)
	}

	return ProgressEvent{
		RunID:     ev.RunID,
		Type:      ev.Type,
		Stage:     ev.Stage,
		Message:   ev.Message,
		Data:      data,
		Timestamp: ev.Timestamp,
	}
}

type RecordResponse struct {
	ID       int64             `json:"id"`
	Dataset  string            `json:"dataset"`
	Date     string            `json:"date"`
	Country  string            `json:"country"`
	Cases    *int64            `json:"cases"`
	Deaths   *int64            `json:"deaths"`
	Geometry *geojson.Geometry `json:"geometry"`
}

type ListRecordsResponse struct {
	Items []RecordResponse `json:"items"`

	page     int
	pageSize int
	total    int
}

func (r ListRecordsResponse) Meta() map[string]any {
	return map[string]any{"page": r.page, "size": r.pageSize, "total": r.total}
}

func toListRecordsResponse(p usecase.RecordPage) ListRecordsResponse {
	items := make([]RecordResponse, 0, len(p.Items))
	for _, rec := range p.Items {
		var geom *geojson.Geometry
		if len(rec.Geometry) > 0 {
			geom = geojson.NewGeometry(rec.Geometry)
		}
		items = append(items, RecordResponse{
			ID:       rec.ID,
			Dataset:  rec.DatasetType,
			Date:     rec.Date.Format(time.DateOnly),
			Country:  rec.Country,
			Cases:    rec.Cases,
			Deaths:   rec.Deaths,
			Geometry: geom,
		})
	}

	return ListRecordsResponse{Items: items, page: p.Page, pageSize: p.PageSize, total: p.Total}
}

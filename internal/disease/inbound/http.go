package inbound

import (
	"context"
	"io"
	"net/http"

	"github.com/shandysiswandi/epimap/internal/disease/entity"
	"github.com/shandysiswandi/epimap/internal/disease/usecase"
	"github.com/shandysiswandi/epimap/internal/pkg/pkgrouter"
)

type uc interface {
	Ingest(ctx context.Context, in usecase.IngestInput) (entity.Summary, error)
	IngestStream(ctx context.Context, in usecase.IngestInput) (<-chan entity.ProgressEvent, error)
	DetectColumns(ctx context.Context, r io.Reader, filename string, samples int) (usecase.DetectResult, error)
	ListRecords(ctx context.Context, in usecase.ListRecordsInput) (usecase.RecordPage, error)
}

// RegisterHTTPEndpoint mounts the disease routes. uploadLimit caps request
// bodies on the routes that accept a file; zero leaves them unbounded.
func RegisterHTTPEndpoint(r *pkgrouter.Router, uc uc, uploadLimit int64) {
	end := &HTTPEndpoint{uc: uc}
	limit := pkgrouter.LimitBody(uploadLimit)

	r.POST("/api/upload", end.Upload, limit)
	r.POST("/api/columns/detect", end.DetectColumns, limit)  // ?samples=
	r.GET("/api/datasets/:dataset/records", end.ListRecords) // ?page=&size=

	r.Handle(http.MethodPost, "/api/upload/stream", http.HandlerFunc(end.UploadStream), limit)
}

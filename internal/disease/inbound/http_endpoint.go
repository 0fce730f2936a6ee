package inbound

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/epimap/internal/disease/usecase"
	"github.com/shandysiswandi/epimap/internal/pkg/pkgerror"
)

type HTTPEndpoint struct {
	uc uc
}

func (h *HTTPEndpoint) Upload(ctx context.Context, r *http.Request) (any, error) {
	form, err := readUploadForm(r)
	if err != nil {
		return nil, err
	}
	defer form.cleanup()

	summary, err := h.uc.Ingest(ctx, form.ingestInput())
	if err != nil {
		return nil, uploadError(err)
	}

	return toUploadResponse(summary), nil
}

func (h *HTTPEndpoint) DetectColumns(ctx context.Context, r *http.Request) (any, error) {
	samples := 0
	if raw := r.URL.Query().Get("samples"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 1 {
			return nil, pkgerror.NewInvalidInput(errors.New("invalid samples"))
		}
		samples = value
	}

	form, err := readUploadForm(r)
	if err != nil {
		return nil, err
	}
	defer form.cleanup()

	result, err := h.uc.DetectColumns(ctx, form.file, form.filename, samples)
	if err != nil {
		return nil, uploadError(err)
	}

	samplesOut := result.Samples
	if samplesOut == nil {
		samplesOut = [][]string{}
	}

	return DetectColumnsResponse{
		Columns:   result.Columns,
		Samples:   samplesOut,
		Suggested: result.Suggested,
		Complete:  result.Complete,
		Missing:   result.Missing,
	}, nil
}

func (h *HTTPEndpoint) ListRecords(ctx context.Context, r *http.Request) (any, error) {
	query := r.URL.Query()
	in := usecase.ListRecordsInput{
		Dataset: httprouter.ParamsFromContext(ctx).ByName("dataset"),
	}

	params := []struct {
		key string
		dst *int
	}{{"page", &in.Page}, {"size", &in.PageSize}}
	for _, p := range params {
		raw := query.Get(p.key)
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil || value < 1 {
			return nil, pkgerror.NewInvalidInput(errors.New("invalid " + p.key))
		}
		*p.dst = value
	}

	page, err := h.uc.ListRecords(ctx, in)
	if err != nil {
		return nil, err
	}

	return toListRecordsResponse(page), nil
}

package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/shandysiswandi/epimap/internal/disease/entity"
	"github.com/shandysiswandi/epimap/internal/disease/event"
	"github.com/shandysiswandi/epimap/internal/disease/geometry"
	"github.com/shandysiswandi/epimap/internal/disease/tabular"
	"github.com/shandysiswandi/epimap/internal/pkg/pkgerror"
	"github.com/shandysiswandi/epimap/internal/pkg/pkguid"
)

const (
	DefaultStreamBuffer = 64
	DefaultSamples      = 5
	maxSamples          = 50
	DefaultPageSize     = 50
	maxPageSize         = 500
)

// DefaultDate is stamped on records whose date is absent or unparsable.
var DefaultDate = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

type Runner interface {
	Go(ctx context.Context, f func(ctx context.Context) error) bool
}

// RecordReader pages through the records stored for a dataset. A dataset
// with no records is pkgerror.ErrNotFound.
type RecordReader interface {
	ListByDataset(ctx context.Context, dataset string, page, pageSize int) ([]entity.StoredRecord, int, error)
}

type Clock interface {
	Now() time.Time
}

type Dependency struct {
	Store        RecordStore
	Records      RecordReader
	Reference    geometry.ReferenceStore
	Runner       Runner
	Clock        Clock
	ID           pkguid.StringID
	BatchSize    int
	DefaultDate  time.Time
	StreamBuffer int
}

type Usecase struct {
	store        RecordStore
	records      RecordReader
	reference    geometry.ReferenceStore
	runner       Runner
	clock        Clock
	id           pkguid.StringID
	batchSize    int
	defaultDate  time.Time
	streamBuffer int
}

func New(dep Dependency) *Usecase {
	clock := dep.Clock
	if clock == nil {
		clock = realClock{}
	}

	batchSize := dep.BatchSize
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}

	defaultDate := dep.DefaultDate
	if defaultDate.IsZero() {
		defaultDate = DefaultDate
	}

	streamBuffer := dep.StreamBuffer
	if streamBuffer < 1 {
		streamBuffer = DefaultStreamBuffer
	}

	return &Usecase{
		store:        dep.Store,
		records:      dep.Records,
		reference:    dep.Reference,
		runner:       dep.Runner,
		clock:        clock,
		id:           dep.ID,
		batchSize:    batchSize,
		defaultDate:  defaultDate,
		streamBuffer: streamBuffer,
	}
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

// Ingest runs the whole pipeline and returns its summary. Like IngestStream,
// the run is detached from ctx cancellation once it has started.
func (u *Usecase) Ingest(ctx context.Context, in IngestInput) (entity.Summary, error) {
	in, err := u.validate(in)
	if err != nil {
		return entity.Summary{}, err
	}

	summary, err := u.execute(context.WithoutCancel(ctx), in, u.id.Generate(), nil)
	if err != nil {
		return entity.Summary{}, toAppError(err)
	}
	return summary, nil
}

// IngestStream runs the pipeline in the background and returns its progress
// events. The channel is closed after the final complete or error event. The
// run is detached from ctx cancellation.
func (u *Usecase) IngestStream(ctx context.Context, in IngestInput) (<-chan entity.ProgressEvent, error) {
	in, err := u.validate(in)
	if err != nil {
		return nil, err
	}
	if u.runner == nil {
		return nil, pkgerror.NewServer(errors.New("missing runner dependency"))
	}

	runID := u.id.Generate()
	bus := event.NewBus(runID, u.streamBuffer)
	runCtx := context.WithoutCancel(ctx)

	publish := func(ev entity.ProgressEvent) {
		if err := bus.Publish(runCtx, ev); err != nil {
			slog.WarnContext(runCtx, "failed to publish progress", "run_id", runID, "error", err)
		}
	}

	scheduled := u.runner.Go(runCtx, func(ctx context.Context) error {
		defer bus.Close()
		_, err := u.execute(ctx, in, runID, publish)
		return err
	})
	if !scheduled {
		bus.Close()
		return nil, pkgerror.NewServer(errors.New("ingestion could not be scheduled"))
	}

	return bus.Subscribe(), nil
}

// DetectColumns reads the header and the first samples rows and suggests a
// column mapping.
func (u *Usecase) DetectColumns(ctx context.Context, r io.Reader, filename string, samples int) (DetectResult, error) {
	if r == nil {
		return DetectResult{}, pkgerror.NewInvalidInput(errors.New("file is required"))
	}
	if samples < 1 {
		samples = DefaultSamples
	}
	samples = min(samples, maxSamples)

	table, err := tabular.Open(r, filename)
	if err != nil {
		return DetectResult{}, toAppError(formatErr(err))
	}
	defer table.Close()

	header := table.Header()
	rows := make([][]string, 0, samples)
	err = table.Scan(ctx, func(row tabular.Row) error {
		rows = append(rows, slices.Clone(row.Cells()))
		if len(rows) >= samples {
			return tabular.ErrStop
		}
		return nil
	})
	if err != nil {
		return DetectResult{}, toAppError(formatErr(err))
	}

	mapping, err := ResolveColumns(header, ColumnOverrides{})
	result := DetectResult{
		Columns:   header,
		Samples:   rows,
		Suggested: mapping,
		Complete:  err == nil,
	}

	var columnsErr *MissingColumnsError
	if errors.As(err, &columnsErr) {
		result.Missing = columnsErr.Missing
	}

	return result, nil
}

// ListRecords returns one page of the records stored under a dataset label.
// The label is normalized the way uploads normalize it.
func (u *Usecase) ListRecords(ctx context.Context, in ListRecordsInput) (RecordPage, error) {
	if u.records == nil {
		return RecordPage{}, pkgerror.NewServer(errors.New("missing record reader dependency"))
	}

	dataset := NormalizeDataset(in.Dataset)
	if dataset == "" {
		return RecordPage{}, pkgerror.NewValidation(errEmptyDataset.Error(), pkgerror.CodeInvalidInput, errEmptyDataset)
	}
	page, size := in.Page, in.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	size = min(size, maxPageSize)

	items, total, err := u.records.ListByDataset(ctx, dataset, page, size)
	if errors.Is(err, pkgerror.ErrNotFound) {
		return RecordPage{}, pkgerror.NewBusiness("dataset not found", pkgerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to list records", "dataset", dataset, "error", err)
		return RecordPage{}, pkgerror.NewServer(err)
	}

	return RecordPage{Dataset: dataset, Items: items, Page: page, PageSize: size, Total: total}, nil
}

func (u *Usecase) validate(in IngestInput) (IngestInput, error) {
	if u.store == nil || u.id == nil {
		return in, pkgerror.NewServer(errors.New("missing dependency"))
	}
	if in.File == nil {
		return in, pkgerror.NewInvalidInput(errors.New("file is required"))
	}

	in.Dataset = NormalizeDataset(in.Dataset)
	if in.Dataset == "" {
		return in, pkgerror.NewValidation(errEmptyDataset.Error(), pkgerror.CodeInvalidInput, errEmptyDataset)
	}

	return in, nil
}

func formatErr(err error) error {
	if errors.Is(err, tabular.ErrInvalidFormat) {
		return &InputFormatError{Err: err}
	}
	return err
}

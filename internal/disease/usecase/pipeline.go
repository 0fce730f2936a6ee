package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/shandysiswandi/epimap/internal/disease/entity"
	"github.com/shandysiswandi/epimap/internal/disease/geometry"
	"github.com/shandysiswandi/epimap/internal/disease/tabular"
	"github.com/shandysiswandi/epimap/internal/pkg/pkglog"
	"github.com/shandysiswandi/epimap/internal/pkg/pkgmetrics"
)

// run is the state of one ingestion. It moves through the stages in order and
// ends in StageComplete or StageFailed.
type run struct {
	u       *Usecase
	id      string
	dataset string
	started time.Time
	stage   entity.Stage
	emit    func(entity.ProgressEvent)

	total     int
	nullCells int
	unmatched []string
	countries []string
}

func (u *Usecase) execute(ctx context.Context, in IngestInput, runID string, emit func(entity.ProgressEvent)) (entity.Summary, error) {
	ctx = pkglog.SetRunID(ctx, runID)
	r := &run{
		u:       u,
		id:      runID,
		dataset: in.Dataset,
		started: u.clock.Now(),
		emit:    emit,
	}

	summary, err := r.process(ctx, in)
	if err != nil {
		r.fail(ctx, err)
		return entity.Summary{}, err
	}

	r.advance(ctx, entity.StageComplete, "ingestion complete")
	pkgmetrics.ObserveRun(pkgmetrics.ResultSuccess, r.elapsed())
	pkgmetrics.AddRows(summary.Imported, summary.Skipped)
	slog.InfoContext(ctx, "ingestion complete",
		"dataset", summary.Dataset,
		"rows", summary.TotalRows,
		"imported", summary.Imported,
		"skipped", summary.Skipped,
		"null_cells", summary.NullCells,
		"unmatched", len(summary.UnmatchedCountries),
		"elapsed_seconds", summary.ElapsedSeconds,
	)

	r.publish(entity.ProgressEvent{
		Type:    entity.ProgressComplete,
		Stage:   entity.StageComplete,
		Message: fmt.Sprintf("imported %d of %d rows", summary.Imported, summary.TotalRows),
		Data:    summary,
	})
	return summary, nil
}

func (r *run) process(ctx context.Context, in IngestInput) (entity.Summary, error) {
	r.advance(ctx, entity.StageReading, "reading upload")
	table, err := tabular.Open(in.File, in.Filename)
	if err != nil {
		return entity.Summary{}, formatErr(err)
	}
	defer func() {
		if cerr := table.Close(); cerr != nil {
			slog.WarnContext(ctx, "failed to release upload", "error", cerr)
		}
	}()

	r.advance(ctx, entity.StageResolvingColumns, "resolving columns")
	mapping, err := ResolveColumns(table.Header(), in.Overrides)
	if err != nil {
		return entity.Summary{}, err
	}
	slog.InfoContext(ctx, "columns resolved",
		"dataset", r.dataset,
		"country_col", mapping.Country,
		"date_col", mapping.Date,
		"cases_col", mapping.Cases,
		"deaths_col", mapping.Deaths,
	)

	r.advance(ctx, entity.StageFetchingGeometries, "fetching country geometries")
	if err := r.collectCountries(ctx, table, mapping); err != nil {
		return entity.Summary{}, err
	}
	resolver := geometry.NewResolver(r.u.reference)
	r.unmatched = resolver.Prefetch(ctx, r.countries)
	r.status(ctx, fmt.Sprintf("resolved %d countries with %d queries, %d unmatched",
		len(r.countries), resolver.Queries(), len(r.unmatched)), map[string]any{
		"countries": len(r.countries),
		"unmatched": r.unmatched,
	})

	r.advance(ctx, entity.StageBuildingRecords, "building records")
	builder := NewRecordBuilder(mapping, resolver, r.dataset, r.u.defaultDate)
	writer := NewBatchWriter(r.u.store, r.u.batchSize)
	writer.OnFlush(func(written int) {
		r.stage = entity.StageWriting
		r.status(ctx, fmt.Sprintf("saved %d of %d rows", written, r.total), map[string]any{
			"written": written,
			"total":   r.total,
		})
	})

	err = table.Scan(ctx, func(row tabular.Row) error {
		res := builder.Build(ctx, row)
		r.nullCells += len(res.NullFields)
		if res.Skipped {
			return nil
		}
		return writer.Add(ctx, res.Record)
	})
	if err != nil {
		return entity.Summary{}, formatErr(err)
	}

	if r.stage != entity.StageWriting {
		r.advance(ctx, entity.StageWriting, "saving records")
	}
	if err := writer.Flush(ctx); err != nil {
		return entity.Summary{}, err
	}

	return entity.Summary{
		Status:             entity.RunStatusSuccess,
		RunID:              r.id,
		Dataset:            r.dataset,
		TotalRows:          r.total,
		Imported:           builder.Imported(),
		Skipped:            builder.Skipped(),
		NullCells:          r.nullCells,
		UnmatchedCountries: r.unmatched,
		ElapsedSeconds:     math.Round(r.elapsed().Seconds()*1000) / 1000,
	}, nil
}

// collectCountries is the first pass: it counts rows and gathers distinct
// countries in first-seen order.
func (r *run) collectCountries(ctx context.Context, table tabular.Table, mapping entity.ColumnMapping) error {
	seen := make(map[string]struct{})
	err := table.Scan(ctx, func(row tabular.Row) error {
		r.total++
		country := CoerceCountry(row.Value(mapping.Country))
		key := geometry.NormalizeKey(country)
		if key == "" {
			return nil
		}
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			r.countries = append(r.countries, country)
		}
		return nil
	})
	if err != nil {
		return formatErr(err)
	}

	slog.InfoContext(ctx, "input scanned", "dataset", r.dataset, "rows", r.total, "countries", len(r.countries))
	return nil
}

func (r *run) advance(ctx context.Context, stage entity.Stage, msg string) {
	r.stage = stage
	slog.DebugContext(ctx, "ingestion stage", "dataset", r.dataset, "stage", stage)
	if stage.Terminal() {
		return
	}
	r.status(ctx, msg, nil)
}

func (r *run) status(_ context.Context, msg string, data any) {
	r.publish(entity.ProgressEvent{
		Type:    entity.ProgressStatus,
		Stage:   r.stage,
		Message: msg,
		Data:    data,
	})
}

func (r *run) fail(ctx context.Context, err error) {
	failedAt := r.stage
	r.stage = entity.StageFailed
	pkgmetrics.ObserveRun(pkgmetrics.ResultError, r.elapsed())
	slog.ErrorContext(ctx, "ingestion failed", "dataset", r.dataset, "stage", failedAt, "error", err)

	msg := err.Error()
	if perr, ok := toAppError(err).(interface{ Msg() string }); ok && perr.Msg() != "" {
		msg = perr.Msg()
	}

	r.publish(entity.ProgressEvent{
		Type:    entity.ProgressError,
		Stage:   entity.StageFailed,
		Message: msg,
		Data:    map[string]any{"stage": failedAt},
	})
}

func (r *run) publish(ev entity.ProgressEvent) {
	if r.emit == nil {
		return
	}
	ev.RunID = r.id
	ev.Timestamp = r.u.clock.Now()
	r.emit(ev)
}

func (r *run) elapsed() time.Duration {
	return r.u.clock.Now().Sub(r.started)
}

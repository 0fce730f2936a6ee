package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/paulmach/orb"

	"github.com/shandysiswandi/epimap/internal/disease/entity"
	"github.com/shandysiswandi/epimap/internal/disease/tabular"
)

const SkipBlankCountry = "blank country"

// GeometrySource resolves a country to its boundary. *geometry.Resolver
// implements it.
type GeometrySource interface {
	Resolve(ctx context.Context, name string) (orb.MultiPolygon, bool)
}

// RowResult is the outcome of building one row. NullFields names the count
// cells that held a value which could not be parsed.
type RowResult struct {
	Record     entity.DiseaseRecord
	Skipped    bool
	SkipReason string
	NullFields []string
}

type RecordBuilder struct {
	mapping     entity.ColumnMapping
	geometry    GeometrySource
	dataset     string
	defaultDate time.Time

	imported int
	skipped  int
}

func NewRecordBuilder(mapping entity.ColumnMapping, geometry GeometrySource, dataset string, defaultDate time.Time) *RecordBuilder {
	return &RecordBuilder{
		mapping:     mapping,
		geometry:    geometry,
		dataset:     dataset,
		defaultDate: defaultDate,
	}
}

func (b *RecordBuilder) Build(ctx context.Context, row tabular.Row) RowResult {
	country := CoerceCountry(row.Value(b.mapping.Country))
	if country == "" {
		b.skipped++
		return RowResult{Skipped: true, SkipReason: SkipBlankCountry}
	}

	var res RowResult

	date, ok := CoerceDate(row.Value(b.mapping.Date), b.mapping.Date != "", b.defaultDate)
	if !ok {
		slog.DebugContext(ctx, "unparsable date, using default", "line", row.Line, "value", row.Value(b.mapping.Date))
	}

	cases := b.count(ctx, row, b.mapping.Cases, "cases", &res)
	deaths := b.count(ctx, row, b.mapping.Deaths, "deaths", &res)

	geom, _ := b.geometry.Resolve(ctx, country)
	if geom == nil {
		geom = orb.MultiPolygon{}
	}

	res.Record = entity.DiseaseRecord{
		DatasetType: b.dataset,
		Date:        date,
		Country:     country,
		Cases:       cases,
		Deaths:      deaths,
		Geometry:    geom,
	}
	b.imported++

	return res
}

func (b *RecordBuilder) count(ctx context.Context, row tabular.Row, column, field string, res *RowResult) *int64 {
	if column == "" {
		return nil
	}

	raw := row.Value(column)
	n, ok := CoerceCount(raw)
	if !ok {
		slog.DebugContext(ctx, "unparsable count, storing null", "line", row.Line, "field", field, "value", raw)
		res.NullFields = append(res.NullFields, field)
	}
	return n
}

func (b *RecordBuilder) Imported() int {
	return b.imported
}

func (b *RecordBuilder) Skipped() int {
	return b.skipped
}

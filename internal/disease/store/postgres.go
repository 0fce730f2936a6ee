package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/shandysiswandi/epimap/internal/disease/entity"
	"github.com/shandysiswandi/epimap/internal/disease/geometry"
	"github.com/shandysiswandi/epimap/internal/pkg/pkgerror"
)

//go:embed schema.sql
var schemaSQL string

// PostgresStore writes records to a PostGIS-enabled table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the records table and its indexes when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("disease store: nil db")
	}
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// CreateMany inserts the batch in one transaction with a prepared statement.
func (s *PostgresStore) CreateMany(ctx context.Context, records []entity.DiseaseRecord) error {
	if s == nil || s.db == nil {
		return errors.New("disease store: nil db")
	}
	if len(records) == 0 {
		return nil
	}
	if err := validate(records); err != nil {
		return err
	}

	const query = `
INSERT INTO disease_records (
	dataset_type,
	date,
	country,
	cases,
	deaths,
	geom
) VALUES (
	$1, $2, $3, $4, $5, ST_Multi(ST_GeomFromText($6, 4326))
)`

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.ExecContext(
			ctx,
			rec.DatasetType,
			rec.Date.UTC(),
			rec.Country,
			nullInt(rec.Cases),
			nullInt(rec.Deaths),
			geometry.FormatWKT(rec.Geometry),
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// ListByDataset returns a page of a dataset's records in insertion order and
// the dataset's total. A dataset without records is pkgerror.ErrNotFound.
func (s *PostgresStore) ListByDataset(ctx context.Context, dataset string, page, pageSize int) ([]Record, int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM disease_records WHERE dataset_type = $1`, dataset).Scan(&total)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return nil, 0, pkgerror.ErrNotFound
	}

	offset, limit := pageBounds(page, pageSize)
	rows, err := s.db.QueryContext(ctx, `
SELECT id, dataset_type, date, country, cases, deaths, ST_AsText(geom), created_at
FROM disease_records
WHERE dataset_type = $1
ORDER BY id
LIMIT $2 OFFSET $3`, dataset, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]Record, 0, limit)
	for rows.Next() {
		var (
			rec           Record
			cases, deaths sql.NullInt64
			wkt           string
		)
		if err := rows.Scan(&rec.ID, &rec.DatasetType, &rec.Date, &rec.Country, &cases, &deaths, &wkt, &rec.CreatedAt); err != nil {
			return nil, 0, err
		}
		mp, _, err := geometry.ParseMultiPolygon(wkt)
		if err != nil {
			return nil, 0, fmt.Errorf("record %d geometry: %w", rec.ID, err)
		}
		rec.Date = rec.Date.UTC()
		rec.Cases, rec.Deaths, rec.Geometry = fromNullInt(cases), fromNullInt(deaths), mp
		items = append(items, rec)
	}
	return items, total, rows.Err()
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func fromNullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

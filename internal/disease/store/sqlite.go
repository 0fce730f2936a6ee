package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/shandysiswandi/epimap/internal/disease/entity"
	"github.com/shandysiswandi/epimap/internal/disease/geometry"
	"github.com/shandysiswandi/epimap/internal/pkg/pkgerror"
)

// sqliteRecord is the gorm model; the boundary is kept as WKT text.
type sqliteRecord struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	DatasetType string    `gorm:"index:idx_dataset_date,priority:1;not null"`
	Date        time.Time `gorm:"index:idx_dataset_date,priority:2;not null"`
	Country     string    `gorm:"index;not null"`
	Cases       *int64
	Deaths      *int64
	Geometry    string `gorm:"type:text;not null"`
	CreatedAt   time.Time
}

func (sqliteRecord) TableName() string {
	return "disease_records"
}

// SQLiteStore writes records through gorm, one transaction per batch.
type SQLiteStore struct {
	db *gorm.DB
}

func NewSQLiteStore(db *gorm.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("disease store: nil db")
	}
	if err := db.AutoMigrate(&sqliteRecord{}); err != nil {
		return nil, fmt.Errorf("migrate disease_records: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) CreateMany(ctx context.Context, records []entity.DiseaseRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := validate(records); err != nil {
		return err
	}

	rows := make([]sqliteRecord, 0, len(records))
	for _, rec := range records {
		rows = append(rows, sqliteRecord{
			DatasetType: rec.DatasetType,
			Date:        rec.Date.UTC(),
			Country:     rec.Country,
			Cases:       rec.Cases,
			Deaths:      rec.Deaths,
			Geometry:    geometry.FormatWKT(rec.Geometry),
		})
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// sqlite caps bound variables per statement
		return tx.CreateInBatches(rows, 100).Error
	})
}

// ListByDataset returns a page of a dataset's records in insertion order and
// the dataset's total. A dataset without records is pkgerror.ErrNotFound.
func (s *SQLiteStore) ListByDataset(ctx context.Context, dataset string, page, pageSize int) ([]Record, int, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&sqliteRecord{}).Where("dataset_type = ?", dataset).Count(&total).Error
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return nil, 0, pkgerror.ErrNotFound
	}

	offset, limit := pageBounds(page, pageSize)
	var rows []sqliteRecord
	q := s.db.WithContext(ctx).Where("dataset_type = ?", dataset)
	if err := q.Order("id").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	items := make([]Record, 0, len(rows))
	for _, row := range rows {
		mp, _, err := geometry.ParseMultiPolygon(row.Geometry)
		if err != nil {
			return nil, 0, fmt.Errorf("record %d geometry: %w", row.ID, err)
		}
		items = append(items, Record{
			ID:        row.ID,
			CreatedAt: row.CreatedAt,
			DiseaseRecord: entity.DiseaseRecord{
				DatasetType: row.DatasetType,
				Date:        row.Date.UTC(),
				Country:     row.Country,
				Cases:       row.Cases,
				Deaths:      row.Deaths,
				Geometry:    mp,
			},
		})
	}
	return items, int(total), nil
}

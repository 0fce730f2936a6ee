package store

import (
	"context"
	"sync"
	"time"

	"github.com/shandysiswandi/epimap/internal/disease/entity"
	"github.com/shandysiswandi/epimap/internal/pkg/pkgerror"
	"github.com/shandysiswandi/epimap/internal/pkg/pkguid"
)

type InMemoryStore struct {
	mu        sync.RWMutex
	ids       pkguid.NumberID
	records   []Record
	byDataset map[string][]int
}

func NewInMemoryStore(ids pkguid.NumberID) *InMemoryStore {
	return &InMemoryStore{
		ids:       ids,
		byDataset: make(map[string][]int),
	}
}

func (s *InMemoryStore) CreateMany(ctx context.Context, records []entity.DiseaseRecord) error {
	if err := validate(records); err != nil {
		return err
	}

	now := time.Now().UTC()
	batch := make([]Record, 0, len(records))
	for _, rec := range records {
		batch = append(batch, Record{
			ID:            s.ids.Generate(),
			CreatedAt:     now,
			DiseaseRecord: rec,
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range batch {
		s.byDataset[rec.DatasetType] = append(s.byDataset[rec.DatasetType], len(s.records))
		s.records = append(s.records, rec)
	}

	return nil
}

// ListByDataset returns a page of a dataset's records in insertion order and
// the dataset's total. A dataset without records is pkgerror.ErrNotFound.
func (s *InMemoryStore) ListByDataset(ctx context.Context, dataset string, page, pageSize int) ([]Record, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byDataset[dataset]
	if !ok {
		return nil, 0, pkgerror.ErrNotFound
	}

	start, limit := pageBounds(page, pageSize)
	end := min(start+limit, len(idx))
	if start >= end {
		return []Record{}, len(idx), nil
	}

	items := make([]Record, 0, end-start)
	for _, i := range idx[start:end] {
		items = append(items, s.records[i])
	}
	return items, len(idx), nil
}

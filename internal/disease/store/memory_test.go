package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/shandysiswandi/epimap/internal/disease/entity"
	"github.com/shandysiswandi/epimap/internal/pkg/pkgerror"
	"github.com/shandysiswandi/epimap/internal/pkg/pkguid"
)

func sampleRecords(dataset string, n int) []entity.DiseaseRecord {
	cases := int64(150)
	out := make([]entity.DiseaseRecord, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, entity.DiseaseRecord{
			DatasetType: dataset,
			Date:        time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
			Country:     "Chad",
			Cases:       &cases,
			Geometry:    orb.MultiPolygon{{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}},
		})
	}
	return out
}

func newMemoryStore(t *testing.T) *InMemoryStore {
	t.Helper()
	ids, err := pkguid.NewSnowflake()
	if err != nil {
		t.Fatalf("NewSnowflake: %v", err)
	}
	return NewInMemoryStore(ids)
}

func TestInMemoryStoreCreateAndList(t *testing.T) {
	s := newMemoryStore(t)
	ctx := context.Background()

	if err := s.CreateMany(ctx, sampleRecords("covid", 3)); err != nil {
		t.Fatalf("CreateMany: %v", err)
	}
	if err := s.CreateMany(ctx, sampleRecords("flu", 2)); err != nil {
		t.Fatalf("CreateMany: %v", err)
	}

	items, total, err := s.ListByDataset(ctx, "covid", 1, 2)
	if err != nil {
		t.Fatalf("ListByDataset: %v", err)
	}
	if total != 3 || len(items) != 2 {
		t.Fatalf("expected 2 of 3 records, got %d of %d", len(items), total)
	}
	if items[0].ID == 0 || items[0].ID == items[1].ID {
		t.Fatalf("expected unique ids, got %d and %d", items[0].ID, items[1].ID)
	}

	items, _, err = s.ListByDataset(ctx, "covid", 3, 2)
	if err != nil || len(items) != 0 {
		t.Fatalf("expected empty page, got %d items err=%v", len(items), err)
	}

	if _, _, err := s.ListByDataset(ctx, "measles", 1, 10); !errors.Is(err, pkgerror.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if _, n, _ := s.ListByDataset(ctx, "flu", 1, 10); n != 2 {
		t.Fatalf("expected 2 flu records, got %d", n)
	}
}

func TestInMemoryStoreBatchIsAtomic(t *testing.T) {
	s := newMemoryStore(t)
	ctx := context.Background()

	batch := sampleRecords("covid", 3)
	batch[2].Country = ""
	if err := s.CreateMany(ctx, batch); err == nil {
		t.Fatal("expected invalid record error")
	}
	if _, _, err := s.ListByDataset(ctx, "covid", 1, 10); !errors.Is(err, pkgerror.ErrNotFound) {
		t.Fatalf("expected nothing stored from rejected batch, got %v", err)
	}
}

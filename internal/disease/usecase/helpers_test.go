package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shandysiswandi/epimap/internal/disease/entity"
	"github.com/shandysiswandi/epimap/internal/pkg/pkgerror"
)

const squareWKT = "POLYGON((0 0, 1 0, 1 1, 0 1, 0 0))"

type fakeReference struct {
	mu         sync.Mutex
	boundaries map[string]string
	calls      map[string]int
}

func newFakeReference(boundaries map[string]string) *fakeReference {
	return &fakeReference{boundaries: boundaries, calls: map[string]int{}}
}

func (f *fakeReference) FindBoundary(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[key]++
	return f.boundaries[key], nil
}

func (f *fakeReference) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

type recordingStore struct {
	mu          sync.Mutex
	batches     [][]entity.DiseaseRecord
	failAt      int
	afterCreate func()
}

func (s *recordingStore) CreateMany(_ context.Context, records []entity.DiseaseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAt > 0 && len(s.batches)+1 == s.failAt {
		return errors.New("disk full")
	}
	s.batches = append(s.batches, append([]entity.DiseaseRecord(nil), records...))
	if s.afterCreate != nil {
		s.afterCreate()
	}
	return nil
}

func (s *recordingStore) records() []entity.DiseaseRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.DiseaseRecord
	for _, b := range s.batches {
		out = append(out, b...)
	}
	return out
}

func (s *recordingStore) sizes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, 0, len(s.batches))
	for _, b := range s.batches {
		out = append(out, len(b))
	}
	return out
}

type testID struct {
	mu sync.Mutex
	n  int
}

func (t *testID) Generate() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.n++
	return fmt.Sprintf("run-%d", t.n)
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

type inlineRunner struct{}

func (inlineRunner) Go(ctx context.Context, f func(ctx context.Context) error) bool {
	go func() { _ = f(ctx) }()
	return true
}

func csvRows(header string, n int, row func(i int) string) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	for i := 0; i < n; i++ {
		b.WriteString(row(i))
		b.WriteString("\n")
	}
	return b.String()
}

type fakeRecords struct {
	items map[string][]entity.StoredRecord
	err   error
	calls []string
}

func (f *fakeRecords) ListByDataset(_ context.Context, dataset string, page, pageSize int) ([]entity.StoredRecord, int, error) {
	f.calls = append(f.calls, fmt.Sprintf("%s:%d:%d", dataset, page, pageSize))
	if f.err != nil {
		return nil, 0, f.err
	}
	all, ok := f.items[dataset]
	if !ok {
		return nil, 0, pkgerror.ErrNotFound
	}
	start := min((page-1)*pageSize, len(all))
	end := min(start+pageSize, len(all))
	return all[start:end], len(all), nil
}

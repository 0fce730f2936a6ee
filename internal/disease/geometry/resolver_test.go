package geometry

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

const squareWKT = "POLYGON((0 0, 1 0, 1 1, 0 1, 0 0))"

type fakeReference struct {
	boundaries map[string]string
	errs       map[string]error
	panics     map[string]bool
	calls      map[string]int
}

func newFakeReference(boundaries map[string]string) *fakeReference {
	return &fakeReference{
		boundaries: boundaries,
		errs:       map[string]error{},
		panics:     map[string]bool{},
		calls:      map[string]int{},
	}
}

func (f *fakeReference) FindBoundary(_ context.Context, key string) (string, error) {
	f.calls[key]++
	if f.panics[key] {
		panic("boom")
	}
	if err := f.errs[key]; err != nil {
		return "", err
	}
	return f.boundaries[key], nil
}

func TestNormalizeKey(t *testing.T) {
	if got := NormalizeKey("  Côte d'Ivoire \t"); got != "côte d'ivoire" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestResolveCachesPerKey(t *testing.T) {
	ref := newFakeReference(map[string]string{"chad": squareWKT})
	r := NewResolver(ref)
	ctx := context.Background()

	for _, name := range []string{"Chad", " chad ", "CHAD"} {
		mp, ok := r.Resolve(ctx, name)
		if !ok || len(mp) != 1 {
			t.Fatalf("%q: expected matched single-member multipolygon, got ok=%v len=%d", name, ok, len(mp))
		}
	}

	if ref.calls["chad"] != 1 {
		t.Fatalf("expected 1 reference call, got %d", ref.calls["chad"])
	}
	if r.Queries() != 1 {
		t.Fatalf("expected Queries 1, got %d", r.Queries())
	}
}

func TestResolveUnmatchedIsStable(t *testing.T) {
	ref := newFakeReference(nil)
	r := NewResolver(ref)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		mp, ok := r.Resolve(ctx, "Unknownland")
		if ok {
			t.Fatalf("lookup %d: expected unmatched", i)
		}
		if mp == nil || len(mp) != 0 {
			t.Fatalf("lookup %d: expected empty non-nil multipolygon, got %v", i, mp)
		}
	}
	if ref.calls["unknownland"] != 1 {
		t.Fatalf("expected 1 reference call, got %d", ref.calls["unknownland"])
	}
}

func TestResolveAbsorbsFailures(t *testing.T) {
	ref := newFakeReference(map[string]string{"broken": "POLYGON((0 0,"})
	ref.errs["offline"] = errors.New("connection refused")
	ref.panics["explode"] = true
	r := NewResolver(ref)
	ctx := context.Background()

	for _, name := range []string{"offline", "explode", "broken", "offline", "explode", "broken"} {
		if mp, ok := r.Resolve(ctx, name); ok || len(mp) != 0 {
			t.Fatalf("%q: expected cached empty result", name)
		}
	}
	for _, key := range []string{"offline", "explode", "broken"} {
		if ref.calls[key] != 1 {
			t.Fatalf("%q: expected 1 reference call, got %d", key, ref.calls[key])
		}
	}
}

func TestPrefetch(t *testing.T) {
	ref := newFakeReference(map[string]string{
		"chad": squareWKT,
		"peru": "MULTIPOLYGON(((0 0, 1 0, 1 1, 0 0)))",
	})
	r := NewResolver(ref)

	unmatched := r.Prefetch(context.Background(), []string{"Chad", "Zed", "chad", "", "Peru", "Atlantis", "zed"})
	if !reflect.DeepEqual(unmatched, []string{"Atlantis", "Zed"}) {
		t.Fatalf("unexpected unmatched list %v", unmatched)
	}
	if r.Queries() != 4 {
		t.Fatalf("expected 4 queries for 4 distinct keys, got %d", r.Queries())
	}
	if r.Len() != 4 {
		t.Fatalf("expected 4 cached keys, got %d", r.Len())
	}

	// subsequent resolves are served from the cache
	r.Resolve(context.Background(), "PERU")
	if r.Queries() != 4 {
		t.Fatalf("expected no extra query after prefetch, got %d", r.Queries())
	}
}

func TestResolveWithoutReference(t *testing.T) {
	r := NewResolver(nil)
	if _, ok := r.Resolve(context.Background(), "Chad"); ok {
		t.Fatal("expected unmatched without reference store")
	}
	if r.Queries() != 0 {
		t.Fatalf("expected no queries, got %d", r.Queries())
	}
}

// Package geometry resolves country names to simplified boundary
// multi-polygons through a reference store, caching every answer for the
// lifetime of one ingestion run.
package geometry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/patrickmn/go-cache"
	"github.com/paulmach/orb"

	"github.com/shandysiswandi/epimap/internal/pkg/pkgmetrics"
)

// ReferenceStore answers boundary lookups for a normalized country key. It
// matches the primary name, then the English alias, then the ISO-3 code and
// returns the first match as WKT, or "" when nothing matches.
type ReferenceStore interface {
	FindBoundary(ctx context.Context, key string) (string, error)
}

type entry struct {
	geom    orb.MultiPolygon
	matched bool
}

// Resolver is not shared across runs.
type Resolver struct {
	ref     ReferenceStore
	cache   *cache.Cache
	names   map[string]string
	queries int
}

// NewResolver returns a resolver with an empty cache. A nil ref resolves every
// country as unmatched without querying.
func NewResolver(ref ReferenceStore) *Resolver {
	return &Resolver{
		ref:   ref,
		cache: cache.New(cache.NoExpiration, 0),
		names: make(map[string]string),
	}
}

// NormalizeKey is the cache and lookup key of a country name.
func NormalizeKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Resolve returns the boundary of name and whether it matched. Unmatched and
// failed lookups yield an empty multi-polygon and are cached like matches.
func (r *Resolver) Resolve(ctx context.Context, name string) (orb.MultiPolygon, bool) {
	key := NormalizeKey(name)
	if key == "" {
		return orb.MultiPolygon{}, false
	}

	if v, ok := r.cache.Get(key); ok {
		e := v.(entry)
		return e.geom, e.matched
	}

	e := r.lookup(ctx, key)
	r.cache.Set(key, e, cache.NoExpiration)
	if _, seen := r.names[key]; !seen {
		r.names[key] = strings.TrimSpace(name)
	}

	return e.geom, e.matched
}

// Prefetch resolves every distinct country in names once and returns the
// unmatched ones, sorted, in the spelling first seen.
func (r *Resolver) Prefetch(ctx context.Context, names []string) []string {
	unmatched := make(map[string]string)
	for _, name := range names {
		key := NormalizeKey(name)
		if key == "" {
			continue
		}
		if _, ok := r.Resolve(ctx, name); !ok {
			if _, dup := unmatched[key]; !dup {
				unmatched[key] = r.names[key]
			}
		}
	}

	out := make([]string, 0, len(unmatched))
	for _, name := range unmatched {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Queries reports how many reference store calls this resolver issued.
func (r *Resolver) Queries() int {
	return r.queries
}

// Len reports the number of cached keys.
func (r *Resolver) Len() int {
	return r.cache.ItemCount()
}

func (r *Resolver) lookup(ctx context.Context, key string) (e entry) {
	e = entry{geom: orb.MultiPolygon{}}
	if r.ref == nil {
		return e
	}

	defer func() {
		if rvr := recover(); rvr != nil {
			slog.WarnContext(ctx, "geometry lookup panicked", "country", key, "panic", fmt.Sprint(rvr))
			pkgmetrics.ObserveLookup(pkgmetrics.LookupError)
			e = entry{geom: orb.MultiPolygon{}}
		}
	}()

	r.queries++
	text, err := r.ref.FindBoundary(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "geometry lookup failed", "country", key, "error", err)
		pkgmetrics.ObserveLookup(pkgmetrics.LookupError)
		return e
	}

	mp, ok, err := ParseMultiPolygon(text)
	if err != nil {
		slog.WarnContext(ctx, "geometry parse failed", "country", key, "error", err)
		pkgmetrics.ObserveLookup(pkgmetrics.LookupError)
		return e
	}
	if !ok {
		slog.WarnContext(ctx, "no boundary for country", "country", key)
		pkgmetrics.ObserveLookup(pkgmetrics.LookupUnmatched)
		return e
	}

	pkgmetrics.ObserveLookup(pkgmetrics.LookupMatched)
	return entry{geom: mp, matched: true}
}

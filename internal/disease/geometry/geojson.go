package geometry

import (
	"context"
	"fmt"
	"os"

	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/simplify"
)

// GeoJSON answers boundary lookups from a FeatureCollection held in memory.
// Boundaries are simplified once at load time.
type GeoJSON struct {
	tolerance float64
	props     [3]string
	index     [3]map[string]string
}

// GeoJSONOption configures the reference store.
type GeoJSONOption func(*GeoJSON)

// WithGeoJSONTolerance sets the Douglas-Peucker threshold in degrees.
func WithGeoJSONTolerance(tolerance float64) GeoJSONOption {
	return func(g *GeoJSON) {
		if tolerance > 0 {
			g.tolerance = tolerance
		}
	}
}

// WithProperties overrides the feature properties holding the primary name,
// English alias and ISO-3 code.
func WithProperties(admin, nameEN, iso string) GeoJSONOption {
	return func(g *GeoJSON) {
		for i, p := range []string{admin, nameEN, iso} {
			if p != "" {
				g.props[i] = p
			}
		}
	}
}

// LoadGeoJSON reads a FeatureCollection file.
func LoadGeoJSON(path string, opts ...GeoJSONOption) (*GeoJSON, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read geojson: %w", err)
	}
	return NewGeoJSON(data, opts...)
}

func NewGeoJSON(data []byte, opts ...GeoJSONOption) (*GeoJSON, error) {
	g := &GeoJSON{
		tolerance: DefaultTolerance,
		props:     [3]string{"ADMIN", "NAME_EN", "ISO_A3"},
	}
	for _, opt := range opts {
		opt(g)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}

	for i := range g.index {
		g.index[i] = make(map[string]string)
	}

	simplifier := simplify.DouglasPeucker(g.tolerance)
	for _, f := range fc.Features {
		mp, ok := Normalize(f.Geometry)
		if !ok {
			continue
		}
		if simplified, ok := Normalize(simplifier.Simplify(mp.Clone())); ok {
			mp = simplified
		}
		text := FormatWKT(mp)

		for i, prop := range g.props {
			key := NormalizeKey(stringProp(f.Properties, prop))
			if key == "" {
				continue
			}
			if _, dup := g.index[i][key]; !dup {
				g.index[i][key] = text
			}
		}
	}

	return g, nil
}

func (g *GeoJSON) FindBoundary(_ context.Context, key string) (string, error) {
	for _, idx := range g.index {
		if text, ok := idx[key]; ok {
			return text, nil
		}
	}
	return "", nil
}

func stringProp(props geojson.Properties, key string) string {
	if s, ok := props[key].(string); ok {
		return s
	}
	return ""
}

// Len reports how many countries are indexed by primary name.
func (g *GeoJSON) Len() int {
	return len(g.index[0])
}

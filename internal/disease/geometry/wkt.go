package geometry

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

// EmptyWKT is the text form of the unresolved boundary.
const EmptyWKT = "MULTIPOLYGON EMPTY"

// ParseMultiPolygon parses reference-store WKT into a multi-polygon. It
// reports false for empty text, EMPTY geometries and geometry types that
// carry no polygon.
func ParseMultiPolygon(text string) (orb.MultiPolygon, bool, error) {
	text = strings.TrimSpace(text)
	if text == "" || strings.HasSuffix(strings.ToUpper(text), "EMPTY") {
		return nil, false, nil
	}

	g, err := wkt.Unmarshal(text)
	if err != nil {
		return nil, false, fmt.Errorf("parse wkt: %w", err)
	}

	mp, ok := Normalize(g)
	return mp, ok, nil
}

// Normalize converts g into a multi-polygon. A polygon becomes a single-member
// multi-polygon and a collection contributes all of its polygons.
func Normalize(g orb.Geometry) (orb.MultiPolygon, bool) {
	var mp orb.MultiPolygon

	switch v := g.(type) {
	case orb.Polygon:
		if len(v) > 0 {
			mp = orb.MultiPolygon{v}
		}
	case orb.MultiPolygon:
		mp = v
	case orb.Collection:
		for _, member := range v {
			if inner, ok := Normalize(member); ok {
				mp = append(mp, inner...)
			}
		}
	case orb.Bound:
		mp = orb.MultiPolygon{v.ToPolygon()}
	}

	if len(mp) == 0 {
		return nil, false
	}
	return mp, true
}

// FormatWKT renders mp as WKT, using EmptyWKT for an empty boundary.
func FormatWKT(mp orb.MultiPolygon) string {
	if len(mp) == 0 {
		return EmptyWKT
	}
	return wkt.MarshalString(mp)
}

package geometry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
)

const (
	defaultReferenceTable = "world_countries"
	DefaultTolerance      = 0.01
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// PostGIS looks boundaries up in a Natural Earth style countries table with
// admin, name_en, iso_a3 and geom columns.
type PostGIS struct {
	db        *sql.DB
	table     string
	tolerance float64
}

// PostGISOption configures the reference store.
type PostGISOption func(*PostGIS)

// WithTable overrides the default table.
func WithTable(table string) PostGISOption {
	return func(p *PostGIS) {
		if table != "" {
			p.table = table
		}
	}
}

// WithTolerance sets the simplification tolerance in degrees.
func WithTolerance(tolerance float64) PostGISOption {
	return func(p *PostGIS) {
		if tolerance > 0 {
			p.tolerance = tolerance
		}
	}
}

func NewPostGIS(db *sql.DB, opts ...PostGISOption) (*PostGIS, error) {
	p := &PostGIS{
		db:        db,
		table:     defaultReferenceTable,
		tolerance: DefaultTolerance,
	}
	for _, opt := range opts {
		opt(p)
	}

	if !identPattern.MatchString(p.table) {
		return nil, fmt.Errorf("invalid reference table name %q", p.table)
	}
	return p, nil
}

func (p *PostGIS) FindBoundary(ctx context.Context, key string) (string, error) {
	if p == nil || p.db == nil {
		return "", errors.New("postgis reference: nil db")
	}

	query := fmt.Sprintf(`
SELECT ST_AsText(ST_Multi(ST_SimplifyPreserveTopology(geom, $2)))
FROM %s
WHERE lower(admin) = $1 OR lower(name_en) = $1 OR lower(iso_a3) = $1
ORDER BY CASE
	WHEN lower(admin) = $1 THEN 1
	WHEN lower(name_en) = $1 THEN 2
	ELSE 3
END
LIMIT 1`, p.table)

	var text sql.NullString
	if err := p.db.QueryRowContext(ctx, query, key, p.tolerance).Scan(&text); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}

	return text.String, nil
}

package usecase

import (
	"slices"
	"strings"

	"github.com/shandysiswandi/epimap/internal/disease/entity"
)

// ColumnOverrides name header columns explicitly. Empty fields are detected.
type ColumnOverrides struct {
	Country string
	Date    string
	Cases   string
	Deaths  string
}

type columnRole struct {
	name     string
	exact    bool
	synonyms []string
	field    func(*entity.ColumnMapping) *string
	override func(ColumnOverrides) string
}

// Roles are resolved in this order and a column claimed by an earlier role is
// not offered to a later one: "Country" contains "count" and "Total Deaths"
// contains "total".
var columnRoles = []columnRole{
	{
		name:     "country",
		exact:    true,
		synonyms: []string{"country", "location", "area", "region"},
		field:    func(m *entity.ColumnMapping) *string { return &m.Country },
		override: func(o ColumnOverrides) string { return o.Country },
	},
	{
		name:     "date",
		exact:    true,
		synonyms: []string{"date", "year", "time", "period"},
		field:    func(m *entity.ColumnMapping) *string { return &m.Date },
		override: func(o ColumnOverrides) string { return o.Date },
	},
	{
		name:     "deaths",
		synonyms: []string{"death", "deaths", "died", "mortality", "fatal"},
		field:    func(m *entity.ColumnMapping) *string { return &m.Deaths },
		override: func(o ColumnOverrides) string { return o.Deaths },
	},
	{
		name:     "cases",
		synonyms: []string{"case", "cases", "confirmed", "total", "count"},
		field:    func(m *entity.ColumnMapping) *string { return &m.Cases },
		override: func(o ColumnOverrides) string { return o.Cases },
	},
}

func (r columnRole) matches(column string) bool {
	name := strings.ToLower(strings.TrimSpace(column))
	if name == "" {
		return false
	}
	if r.exact {
		return slices.Contains(r.synonyms, name)
	}
	for _, syn := range r.synonyms {
		if strings.Contains(name, syn) {
			return true
		}
	}
	return false
}

// ResolveColumns maps header columns to roles. The partial mapping is returned
// together with a *MissingColumnsError when the mapping is incomplete.
func ResolveColumns(header []string, overrides ColumnOverrides) (entity.ColumnMapping, error) {
	var mapping entity.ColumnMapping
	var unknown []string
	claimed := make(map[int]bool, len(header))

	for _, role := range columnRoles {
		want := strings.TrimSpace(role.override(overrides))
		if want == "" {
			continue
		}

		idx := findColumn(header, want)
		if idx < 0 {
			unknown = append(unknown, want)
			continue
		}
		claimed[idx] = true
		*role.field(&mapping) = header[idx]
	}

	for _, role := range columnRoles {
		if *role.field(&mapping) != "" || strings.TrimSpace(role.override(overrides)) != "" {
			continue
		}
		for i, column := range header {
			if claimed[i] || !role.matches(column) {
				continue
			}
			claimed[i] = true
			*role.field(&mapping) = column
			break
		}
	}

	var missing []string
	if mapping.Country == "" {
		missing = append(missing, "country")
	}
	if mapping.Cases == "" && mapping.Deaths == "" {
		missing = append(missing, "cases or deaths")
	}

	if len(missing) > 0 || len(unknown) > 0 {
		return mapping, &MissingColumnsError{Missing: missing, Unknown: unknown}
	}
	return mapping, nil
}

// findColumn prefers an exact header match and falls back to a trimmed,
// case-insensitive one.
func findColumn(header []string, name string) int {
	if i := slices.Index(header, name); i >= 0 {
		return i
	}
	for i, column := range header {
		if strings.EqualFold(strings.TrimSpace(column), name) {
			return i
		}
	}
	return -1
}

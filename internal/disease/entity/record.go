package entity

import (
	"time"

	"github.com/paulmach/orb"
)

// DiseaseRecord is one persisted row of an ingestion run.
type DiseaseRecord struct {
	DatasetType string
	Date        time.Time
	Country     string
	Cases       *int64
	Deaths      *int64

	// Geometry is empty when the country did not resolve.
	Geometry orb.MultiPolygon
}

// StoredRecord is a DiseaseRecord with the identity its store assigned.
type StoredRecord struct {
	ID        int64
	CreatedAt time.Time
	DiseaseRecord
}

// ColumnMapping names the header columns that carry each role.
type ColumnMapping struct {
	Country string `json:"country_col"`
	Date    string `json:"date_col,omitempty"`
	Cases   string `json:"cases_col,omitempty"`
	Deaths  string `json:"deaths_col,omitempty"`
}

// Complete reports whether the mapping satisfies the ingestion requirements:
// a country column plus at least one of cases or deaths.
func (m ColumnMapping) Complete() bool {
	return m.Country != "" && (m.Cases != "" || m.Deaths != "")
}

package usecase

import (
	"io"
	"strings"

	"github.com/shandysiswandi/epimap/internal/disease/entity"
)

type IngestInput struct {
	File      io.Reader
	Filename  string
	Dataset   string
	Overrides ColumnOverrides
}

type DetectResult struct {
	Columns   []string
	Samples   [][]string
	Suggested entity.ColumnMapping
	Complete  bool
	Missing   []string
}

type ListRecordsInput struct {
	Dataset  string
	Page     int
	PageSize int
}

type RecordPage struct {
	Dataset  string
	Items    []entity.StoredRecord
	Page     int
	PageSize int
	Total    int
}

// NormalizeDataset lowercases the label and joins its words with "_".
func NormalizeDataset(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), "_")
}

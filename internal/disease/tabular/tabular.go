// Package tabular reads delimited text and XLSX workbooks as a header plus a
// re-scannable sequence of rows.
package tabular

import (
	"bufio"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
)

var (
	// ErrInvalidFormat is wrapped by every error caused by input that cannot be
	// read as tabular data.
	ErrInvalidFormat = errors.New("input is not tabular data")

	// ErrStop may be returned from a Scan callback to end the scan early
	// without an error.
	ErrStop = errors.New("stop scan")
)

var zipMagic = []byte("PK\x03\x04")

// Table is an opened tabular source. Scan may be called more than once.
type Table interface {
	Header() []string
	Scan(ctx context.Context, fn func(Row) error) error
	Close() error
}

// Row is one data line. Line is 1-based and does not count the header or
// blank lines. Cells are only valid until the scan callback returns.
type Row struct {
	Line  int
	index map[string]int
	cells []string
}

// Value returns the raw cell text of column, or "" when the column is unknown
// or the row is short.
func (r Row) Value(column string) string {
	i, ok := r.index[column]
	if !ok || i >= len(r.cells) {
		return ""
	}
	return r.cells[i]
}

// Cells returns the row's cells in header order.
func (r Row) Cells() []string {
	return r.cells
}

// Open reads r as a workbook when filename has an Excel extension or the
// content is a zip archive, and as delimited text otherwise.
func Open(r io.Reader, filename string) (Table, error) {
	br := bufio.NewReader(r)

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return openWorkbook(br)
	}

	if magic, err := br.Peek(len(zipMagic)); err == nil && string(magic) == string(zipMagic) {
		return openWorkbook(br)
	}

	return openDelimited(br)
}

func newIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		if _, dup := index[name]; dup {
			continue
		}
		index[name] = i
	}
	return index
}

func cleanHeader(header []string) ([]string, bool) {
	out := make([]string, len(header))
	named := false
	for i, name := range header {
		out[i] = strings.TrimSpace(name)
		if out[i] != "" {
			named = true
		}
	}
	return out, named
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

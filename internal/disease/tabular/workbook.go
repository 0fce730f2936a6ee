package tabular

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

type workbook struct {
	file   *excelize.File
	sheet  string
	header []string
	index  map[string]int
}

// openWorkbook reads the first sheet; its first non-blank row is the header.
func openWorkbook(r io.Reader) (*workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: workbook: %v", ErrInvalidFormat, err)
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		_ = f.Close()
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrInvalidFormat)
	}

	t := &workbook{file: f, sheet: sheets[0]}
	if err := t.readHeader(); err != nil {
		_ = f.Close()
		return nil, err
	}

	return t, nil
}

func (t *workbook) readHeader() error {
	rows, err := t.file.Rows(t.sheet)
	if err != nil {
		return fmt.Errorf("%w: sheet %q: %v", ErrInvalidFormat, t.sheet, err)
	}
	defer rows.Close()

	for rows.Next() {
		cells, err := rows.Columns()
		if err != nil {
			return fmt.Errorf("%w: sheet %q: %v", ErrInvalidFormat, t.sheet, err)
		}
		if blank(cells) {
			continue
		}

		header, _ := cleanHeader(cells)
		t.header = header
		t.index = newIndex(header)
		return nil
	}

	return fmt.Errorf("%w: sheet %q is empty", ErrInvalidFormat, t.sheet)
}

func (t *workbook) Header() []string {
	return t.header
}

func (t *workbook) Scan(ctx context.Context, fn func(Row) error) error {
	rows, err := t.file.Rows(t.sheet)
	if err != nil {
		return fmt.Errorf("%w: sheet %q: %v", ErrInvalidFormat, t.sheet, err)
	}
	defer rows.Close()

	seenHeader := false
	line := 0
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}

		cells, err := rows.Columns()
		if err != nil {
			return fmt.Errorf("%w: sheet %q: %v", ErrInvalidFormat, t.sheet, err)
		}
		if blank(cells) {
			continue
		}
		if !seenHeader {
			seenHeader = true
			continue
		}

		line++
		if err := fn(Row{Line: line, index: t.index, cells: cells}); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}

	return nil
}

func (t *workbook) Close() error {
	return t.file.Close()
}

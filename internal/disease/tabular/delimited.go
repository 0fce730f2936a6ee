package tabular

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	delimiters = []rune{',', ';', '\t', '|'}
)

type delimited struct {
	path   string
	comma  rune
	header []string
	index  map[string]int
}

// openDelimited spools the stream to a temporary file so the table can be
// scanned more than once without holding rows in memory.
func openDelimited(r io.Reader) (*delimited, error) {
	f, err := os.CreateTemp("", "epimap-upload-*.csv")
	if err != nil {
		return nil, fmt.Errorf("create spool file: %w", err)
	}

	path := f.Name()
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("spool upload: %w", err)
	}
	if n == 0 {
		_ = os.Remove(path)
		return nil, fmt.Errorf("%w: empty input", ErrInvalidFormat)
	}

	t := &delimited{path: path}
	if err := t.readHeader(); err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	return t, nil
}

func (t *delimited) readHeader() error {
	f, err := os.Open(t.path)
	if err != nil {
		return err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	skipBOM(br)

	line, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	t.comma = sniffDelimiter(line)

	reader := t.newReader(strings.NewReader(line))
	record, err := reader.Read()
	if err != nil {
		return fmt.Errorf("%w: header: %v", ErrInvalidFormat, err)
	}

	header, named := cleanHeader(record)
	if !named {
		return fmt.Errorf("%w: header row has no column names", ErrInvalidFormat)
	}

	t.header = header
	t.index = newIndex(header)
	return nil
}

func (t *delimited) Header() []string {
	return t.header
}

func (t *delimited) Scan(ctx context.Context, fn func(Row) error) error {
	f, err := os.Open(t.path)
	if err != nil {
		return err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	skipBOM(br)

	reader := t.newReader(br)
	if _, err := reader.Read(); err != nil {
		return fmt.Errorf("%w: header: %v", ErrInvalidFormat, err)
	}

	line := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
		if blank(record) {
			continue
		}

		line++
		if err := fn(Row{Line: line, index: t.index, cells: record}); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}
}

func (t *delimited) Close() error {
	err := os.Remove(t.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// newReader accepts stray quotes so that one bad cell degrades to an
// unparsable value instead of failing the whole file.
func (t *delimited) newReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.Comma = t.comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true
	return reader
}

func skipBOM(br *bufio.Reader) {
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
}

// sniffDelimiter picks the candidate that occurs most often outside quotes in
// the header line; ties keep the earlier candidate and "," is the fallback.
func sniffDelimiter(line string) rune {
	counts := make(map[rune]int, len(delimiters))
	quoted := false
	for _, c := range line {
		if c == '"' {
			quoted = !quoted
			continue
		}
		if !quoted {
			counts[c]++
		}
	}

	best, bestCount := ',', 0
	for _, d := range delimiters {
		if counts[d] > bestCount {
			best, bestCount = d, counts[d]
		}
	}
	return best
}

package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"heart-streaming/internal/record"
)

// CSVSource yields one record per row after the header row.
type CSVSource struct {
	path    string
	file    *os.File
	reader  *csv.Reader
	headers []string
	row     int
}

func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

func (s *CSVSource) Name() string { return s.path }

// Header is the column list read from the first row; nil before Open.
func (s *CSVSource) Header() []string {
	return append([]string(nil), s.headers...)
}

func (s *CSVSource) Open(ctx context.Context) error {
	const fn = "CSVSource:Open"
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("%s:%w", fn, err)
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	headers, err := r.Read()
	if err != nil {
		f.Close()
		if err == io.EOF {
			return fmt.Errorf("%s:%w: missing header row", fn, ErrMalformedRow)
		}
		return fmt.Errorf("%s:%w:%w", fn, ErrMalformedRow, err)
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	s.file = f
	s.reader = r
	s.headers = headers
	s.row = 1
	return nil
}

func (s *CSVSource) Next(ctx context.Context) (record.Record, error) {
	const fn = "CSVSource:Next"
	if s.reader == nil {
		return record.Record{}, ErrNotOpen
	}
	if err := ctx.Err(); err != nil {
		return record.Record{}, err
	}

	row, err := s.reader.Read()
	if err == io.EOF {
		return record.Record{}, io.EOF
	}
	s.row++
	if err != nil {
		return record.Record{}, fmt.Errorf("%s:%w: row %d:%w", fn, ErrMalformedRow, s.row, err)
	}
	if len(row) != len(s.headers) {
		return record.Record{}, fmt.Errorf("%s:%w: row %d has %d columns, header has %d",
			fn, ErrMalformedRow, s.row, len(row), len(s.headers))
	}

	fields := make(map[string]any, len(row))
	for i, h := range s.headers {
		fields[h] = row[i]
	}
	r, err := record.FromFields(fields)
	if err != nil {
		return record.Record{}, fmt.Errorf("%s:%w: row %d:%w", fn, ErrMalformedRow, s.row, err)
	}
	return r, nil
}

func (s *CSVSource) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.reader = nil
	return err
}

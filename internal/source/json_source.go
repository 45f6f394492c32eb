package source

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"heart-streaming/internal/record"
)

// JSONSource yields one record per top-level object. The file is either
// newline-delimited objects or a single array of objects.
type JSONSource struct {
	path    string
	file    *os.File
	decoder *json.Decoder
	inArray bool
	index   int
}

func NewJSONSource(path string) *JSONSource {
	return &JSONSource{path: path}
}

func (s *JSONSource) Name() string { return s.path }

func (s *JSONSource) Open(ctx context.Context) error {
	const fn = "JSONSource:Open"
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("%s:%w", fn, err)
	}
	br := bufio.NewReader(f)
	dec := json.NewDecoder(br)

	inArray, err := startsWithArray(br)
	if err != nil && err != io.EOF {
		f.Close()
		return fmt.Errorf("%s:%w", fn, err)
	}
	if inArray {
		if _, err := dec.Token(); err != nil {
			f.Close()
			return fmt.Errorf("%s:%w:%w", fn, ErrMalformedRecord, err)
		}
	}

	s.file = f
	s.decoder = dec
	s.inArray = inArray
	s.index = 0
	return nil
}

func (s *JSONSource) Next(ctx context.Context) (record.Record, error) {
	const fn = "JSONSource:Next"
	if s.decoder == nil {
		return record.Record{}, ErrNotOpen
	}
	if err := ctx.Err(); err != nil {
		return record.Record{}, err
	}

	if s.inArray && !s.decoder.More() {
		if _, err := s.decoder.Token(); err != nil {
			return record.Record{}, fmt.Errorf("%s:%w:%w", fn, ErrMalformedRecord, err)
		}
		return record.Record{}, io.EOF
	}

	var raw json.RawMessage
	if err := s.decoder.Decode(&raw); err != nil {
		if err == io.EOF && !s.inArray {
			return record.Record{}, io.EOF
		}
		return record.Record{}, fmt.Errorf("%s:%w: record %d:%w", fn, ErrMalformedRecord, s.index, err)
	}
	s.index++

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return record.Record{}, fmt.Errorf("%s:%w: record %d is not an object", fn, ErrMalformedRecord, s.index)
	}
	r, err := record.FromFields(fields)
	if err != nil {
		return record.Record{}, fmt.Errorf("%s:%w: record %d:%w", fn, ErrMalformedRecord, s.index, err)
	}
	return r, nil
}

func (s *JSONSource) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.decoder = nil
	return err
}

func startsWithArray(br *bufio.Reader) (bool, error) {
	for {
		b, err := br.Peek(1)
		if err != nil {
			return false, err
		}
		switch b[0] {
		case ' ', '\t', '\r', '\n':
			if _, err := br.ReadByte(); err != nil {
				return false, err
			}
		case 0xEF:
			bom, err := br.Peek(3)
			if err == nil && string(bom) == "\ufeff" {
				br.Discard(3)
				continue
			}
			return false, nil
		default:
			return b[0] == '[', nil
		}
	}
}

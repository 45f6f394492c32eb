// Package source reads heart-rate records from data files one at a time.
// Next returns io.EOF once the file is exhausted.
package source

import (
	"context"
	"errors"
	"fmt"

	"heart-streaming/internal/codec"
	"heart-streaming/internal/record"
)

var (
	ErrMalformedRow    = errors.New("malformed csv row")
	ErrMalformedRecord = errors.New("malformed json record")
	ErrNotOpen         = errors.New("source not open")
)

type Source interface {
	Name() string
	Open(ctx context.Context) error
	Next(ctx context.Context) (record.Record, error)
	Close() error
}

// New picks the file reader matching format.
func New(format, path string) (Source, error) {
	switch format {
	case codec.FormatJSON:
		return NewJSONSource(path), nil
	case codec.FormatCSV:
		return NewCSVSource(path), nil
	}
	return nil, fmt.Errorf("%w: %q", codec.ErrUnknownFormat, format)
}

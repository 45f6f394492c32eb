// Package codec converts heart-rate records to and from their wire form.
// Each topic carries exactly one representation.
package codec

import (
	"errors"
	"fmt"

	"heart-streaming/internal/record"
)

const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

var (
	ErrEncoding      = errors.New("encoding error")
	ErrDecoding      = errors.New("decoding error")
	ErrMalformedRow  = errors.New("malformed row")
	ErrUnknownFormat = errors.New("unknown format")
)

type Codec interface {
	Encode(r record.Record) ([]byte, error)
	Decode(data []byte) (record.Record, error)
	Format() string
	ContentType() string
}

// New returns the codec for format. columns is only used by the CSV codec;
// nil selects DefaultColumns.
func New(format string, columns []string) (Codec, error) {
	switch format {
	case FormatJSON:
		return NewJSON(), nil
	case FormatCSV:
		c, err := NewCSV(columns)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

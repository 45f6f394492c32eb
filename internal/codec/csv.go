package codec

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"heart-streaming/internal/record"
)

var DefaultColumns = []string{record.FieldTimestamp, record.FieldID, record.FieldHeartRate}

var ErrInvalidColumns = errors.New("invalid csv columns")

// CSV maps a record onto a fixed, ordered column list. Columns other than the
// record fields are read from and written to Metadata; their values come back
// as strings.
type CSV struct {
	columns []string
}

func NewCSV(columns []string) (*CSV, error) {
	if len(columns) == 0 {
		columns = DefaultColumns
	}
	cols := make([]string, len(columns))
	seen := make(map[string]bool, len(columns))
	var hasTS, hasID, hasHR bool
	for i, c := range columns {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			return nil, fmt.Errorf("%w: empty or duplicate column %q", ErrInvalidColumns, c)
		}
		seen[c] = true
		switch c {
		case record.FieldTimestamp:
			hasTS = true
		case record.FieldID, record.FieldSensorID:
			hasID = true
		case record.FieldHeartRate:
			hasHR = true
		}
		cols[i] = c
	}
	if !hasTS || !hasID || !hasHR {
		return nil, fmt.Errorf("%w: need %s, %s and %s", ErrInvalidColumns,
			record.FieldTimestamp, record.FieldID, record.FieldHeartRate)
	}
	return &CSV{columns: cols}, nil
}

func (c *CSV) Format() string      { return FormatCSV }
func (c *CSV) ContentType() string { return "text/csv" }

func (c *CSV) Columns() []string {
	return append([]string(nil), c.columns...)
}

func (c *CSV) Encode(r record.Record) ([]byte, error) {
	const fn = "CSV:Encode"
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("%s:%w:%w", fn, ErrEncoding, err)
	}
	row := make([]string, len(c.columns))
	for i, col := range c.columns {
		switch col {
		case record.FieldTimestamp:
			row[i] = record.FormatTimestamp(r.Timestamp)
		case record.FieldID, record.FieldSensorID:
			row[i] = r.ID
		case record.FieldHeartRate:
			row[i] = record.FormatHeartRate(*r.HeartRate)
		default:
			if v, ok := r.Metadata[col]; ok && v != nil {
				row[i] = fmt.Sprint(v)
			}
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(row); err != nil {
		return nil, fmt.Errorf("%s:%w:%w", fn, ErrEncoding, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("%s:%w:%w", fn, ErrEncoding, err)
	}
	return bytes.TrimRight(buf.Bytes(), "\r\n"), nil
}

func (c *CSV) Decode(data []byte) (record.Record, error) {
	const fn = "CSV:Decode"
	rd := csv.NewReader(bytes.NewReader(data))
	rd.FieldsPerRecord = -1
	rd.TrimLeadingSpace = true
	row, err := rd.Read()
	if err != nil {
		return record.Record{}, fmt.Errorf("%s:%w:%w", fn, ErrDecoding, err)
	}
	if len(row) != len(c.columns) {
		return record.Record{}, fmt.Errorf("%s:%w:%w: got %d columns, want %d",
			fn, ErrDecoding, ErrMalformedRow, len(row), len(c.columns))
	}
	// one row per message
	if _, err := rd.Read(); err != io.EOF {
		return record.Record{}, fmt.Errorf("%s:%w:%w: more than one row", fn, ErrDecoding, ErrMalformedRow)
	}
	fields := make(map[string]any, len(row))
	for i, col := range c.columns {
		fields[col] = row[i]
	}
	r, err := record.FromFields(fields)
	if err != nil {
		return record.Record{}, fmt.Errorf("%s:%w:%w", fn, ErrDecoding, err)
	}
	if err := r.Validate(); err != nil {
		return record.Record{}, fmt.Errorf("%s:%w:%w", fn, ErrDecoding, err)
	}
	return r, nil
}

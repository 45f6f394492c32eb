package codec

import (
	"bytes"
	"fmt"

	"github.com/bytedance/sonic"

	"heart-streaming/internal/record"
)

// sonic.ConfigStd sorts map keys, so metadata encodes deterministically.
var jsonAPI = sonic.ConfigStd

type wireRecord struct {
	Timestamp string  `json:"timestamp"`
	ID        string  `json:"id"`
	HeartRate float64 `json:"heart_rate"`
}

type JSON struct{}

func NewJSON() *JSON {
	return &JSON{}
}

func (c *JSON) Format() string      { return FormatJSON }
func (c *JSON) ContentType() string { return "application/json" }

// Encode writes the fixed fields first, then metadata keys in sorted order.
func (c *JSON) Encode(r record.Record) ([]byte, error) {
	const fn = "JSON:Encode"
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("%s:%w:%w", fn, ErrEncoding, err)
	}
	base, err := jsonAPI.Marshal(wireRecord{
		Timestamp: record.FormatTimestamp(r.Timestamp),
		ID:        r.ID,
		HeartRate: *r.HeartRate,
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w:%w", fn, ErrEncoding, err)
	}

	extra := make(map[string]any, len(r.Metadata))
	for k, v := range r.Metadata {
		if !record.IsReserved(k) {
			extra[k] = v
		}
	}
	if len(extra) == 0 {
		return base, nil
	}
	meta, err := jsonAPI.Marshal(extra)
	if err != nil {
		return nil, fmt.Errorf("%s:%w:%w", fn, ErrEncoding, err)
	}

	var buf bytes.Buffer
	buf.Grow(len(base) + len(meta))
	buf.Write(base[:len(base)-1])
	buf.WriteByte(',')
	buf.Write(meta[1:])
	return buf.Bytes(), nil
}

func (c *JSON) Decode(data []byte) (record.Record, error) {
	const fn = "JSON:Decode"
	var fields map[string]any
	if err := jsonAPI.Unmarshal(data, &fields); err != nil {
		return record.Record{}, fmt.Errorf("%s:%w:%w", fn, ErrDecoding, err)
	}
	if fields == nil {
		return record.Record{}, fmt.Errorf("%s:%w: not a JSON object", fn, ErrDecoding)
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

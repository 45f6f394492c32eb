package record

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrInvalidHeartRate = errors.New("invalid heart rate")
	ErrInvalidID        = errors.New("invalid id")
)

// FromFields builds a Record from a flat field mapping as produced by a JSON
// object or a CSV row keyed by header. Missing required fields are left empty
// so callers decide whether that is an error; fields of the wrong type are not.
// Keys outside the fixed fields land in Metadata.
func FromFields(fields map[string]any) (Record, error) {
	var r Record

	if v, ok := fields[FieldTimestamp]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			return Record{}, fmt.Errorf("%w: %v", ErrInvalidTimestamp, v)
		}
		if strings.TrimSpace(s) != "" {
			ts, err := ParseTimestamp(s)
			if err != nil {
				return Record{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
			}
			r.Timestamp = ts
		}
	}

	idValue, ok := fields[FieldID]
	if !ok || idValue == nil {
		idValue = fields[FieldSensorID]
	}
	if idValue != nil {
		id, err := idString(idValue)
		if err != nil {
			return Record{}, err
		}
		r.ID = id
	}

	if v, ok := fields[FieldHeartRate]; ok && v != nil {
		hr, present, err := heartRateValue(v)
		if err != nil {
			return Record{}, err
		}
		if present {
			r.HeartRate = HeartRate(hr)
		}
	}

	for k, v := range fields {
		if IsReserved(k) {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		if r.Metadata == nil {
			r.Metadata = make(map[string]any)
		}
		r.Metadata[k] = v
	}
	return r, nil
}

func idString(v any) (string, error) {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id), nil
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(id), nil
	case int64:
		return strconv.FormatInt(id, 10), nil
	}
	return "", fmt.Errorf("%w: %v", ErrInvalidID, v)
}

func heartRateValue(v any) (float64, bool, error) {
	switch hr := v.(type) {
	case float64:
		if math.IsNaN(hr) || math.IsInf(hr, 0) {
			return 0, false, fmt.Errorf("%w: %v", ErrInvalidHeartRate, hr)
		}
		return hr, true, nil
	case int:
		return float64(hr), true, nil
	case int64:
		return float64(hr), true, nil
	case string:
		s := strings.TrimSpace(hr)
		if s == "" {
			return 0, false, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false, fmt.Errorf("%w: %q", ErrInvalidHeartRate, hr)
		}
		return f, true, nil
	}
	return 0, false, fmt.Errorf("%w: %v", ErrInvalidHeartRate, v)
}

// FormatHeartRate renders a heart rate with the shortest representation that
// parses back to the same value.
func FormatHeartRate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

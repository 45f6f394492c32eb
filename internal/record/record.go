package record

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrMissingField      = errors.New("missing required field")
	ErrNegativeHeartRate = errors.New("heart rate must be non-negative")
)

const (
	FieldTimestamp = "timestamp"
	FieldID        = "id"
	FieldSensorID  = "sensor_id"
	FieldHeartRate = "heart_rate"
)

// Record is one heart-rate observation. HeartRate is nil when the source did
// not carry a value.
type Record struct {
	Timestamp time.Time
	ID        string
	HeartRate *float64
	Metadata  map[string]any
}

func New(ts time.Time, id string, heartRate float64) Record {
	return Record{
		Timestamp: ts.UTC(),
		ID:        id,
		HeartRate: HeartRate(heartRate),
	}
}

// HeartRate returns a pointer to v.
func HeartRate(v float64) *float64 {
	return &v
}

// Validate reports the first missing required field, a heart rate that is not
// a finite number, or a negative heart rate.
func (r Record) Validate() error {
	if r.Timestamp.IsZero() {
		return fmt.Errorf("%w: %s", ErrMissingField, FieldTimestamp)
	}
	if r.ID == "" {
		return fmt.Errorf("%w: %s", ErrMissingField, FieldID)
	}
	if r.HeartRate == nil {
		return fmt.Errorf("%w: %s", ErrMissingField, FieldHeartRate)
	}
	if math.IsNaN(*r.HeartRate) || math.IsInf(*r.HeartRate, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidHeartRate, *r.HeartRate)
	}
	if *r.HeartRate < 0 {
		return ErrNegativeHeartRate
	}
	return nil
}

// IsReserved reports whether key names one of the fixed record fields.
func IsReserved(key string) bool {
	switch key {
	case FieldTimestamp, FieldID, FieldSensorID, FieldHeartRate:
		return true
	}
	return false
}

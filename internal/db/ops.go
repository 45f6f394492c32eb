package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/pgxscan"

	"heart-streaming/internal/record"
)

var (
	ErrInsertFailed = errors.New("insert operation failed")
	ErrSelectFailed = errors.New("select operation failed")
)

func (db *DB) InsertReading(ctx context.Context, reading Reading) error {
	const fn = "DB:InsertReading"
	var metadata []byte
	if len(reading.Metadata) > 0 {
		b, err := json.Marshal(reading.Metadata)
		if err != nil {
			return fmt.Errorf("%s:%w:%w", fn, ErrInsertFailed, err)
		}
		metadata = b
	}
	_, err := db.pool.Exec(ctx, `
		INSERT INTO heart_rate_readings (
			sensor_id,
			heart_rate,
			timestamp,
			topic,
			metadata
		) VALUES ($1, $2, $3, $4, $5)
	`, reading.SensorID, reading.HeartRate, reading.Timestamp, reading.Topic, metadata)
	if err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrInsertFailed, err)
	}
	return nil
}

// LoadReadingsBetween returns the readings of one sensor with start <= timestamp <= end
// (unix milliseconds), oldest first.
func (db *DB) LoadReadingsBetween(ctx context.Context, sensorID string, start, end int64) ([]Reading, error) {
	const fn = "DB:LoadReadingsBetween"
	readings := []Reading{}
	err := pgxscan.Select(ctx, db.pool, &readings, `
			SELECT
				sensor_id,
				heart_rate,
				timestamp,
				topic,
				metadata
			FROM heart_rate_readings
			WHERE sensor_id = $1
			AND timestamp >= $2
			AND timestamp <= $3
			ORDER BY timestamp ASC, id ASC
		`, sensorID, start, end)
	if err != nil {
		return nil, fmt.Errorf("%s:%w:%w", fn, ErrSelectFailed, err)
	}
	return readings, nil
}

// Archive returns a record handler that stores every record consumed from topic.
func (db *DB) Archive(topic string) func(ctx context.Context, r record.Record) error {
	return func(ctx context.Context, r record.Record) error {
		return db.InsertReading(ctx, FromRecord(topic, r))
	}
}

func FromRecord(topic string, r record.Record) Reading {
	reading := Reading{
		SensorID:  r.ID,
		Timestamp: r.Timestamp.UnixMilli(),
		Topic:     topic,
		Metadata:  r.Metadata,
	}
	if r.HeartRate != nil {
		reading.HeartRate = *r.HeartRate
	}
	return reading
}

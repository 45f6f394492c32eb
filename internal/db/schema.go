package db

type Reading struct {
	SensorID  string         `db:"sensor_id"`
	HeartRate float64        `db:"heart_rate"`
	Timestamp int64          `db:"timestamp"`
	Topic     string         `db:"topic"`
	Metadata  map[string]any `db:"metadata"`
}

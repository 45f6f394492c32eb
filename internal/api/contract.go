package api

type Reading struct {
	SensorID  string         `json:"sensorID"`
	HeartRate float64        `json:"heartRate"`
	Timestamp string         `json:"timestamp"`
	Topic     string         `json:"topic"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type GetReadingsResponse struct {
	Readings []Reading `json:"readings"`
}

type Sensor struct {
	SensorID      string  `json:"sensorID"`
	LastHeartRate float64 `json:"lastHeartRate"`
	LastSeen      string  `json:"lastSeen"`
	Topic         string  `json:"topic"`
}

type ListSensorsResponse struct {
	Sensors []Sensor `json:"sensors"`
}

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"
)

type Sensor struct {
	SensorID      string  `json:"sensorID"`
	LastHeartRate float64 `json:"lastHeartRate"`
	LastSeen      string  `json:"lastSeen"`
	Topic         string  `json:"topic"`
}

type Reading struct {
	SensorID  string         `json:"sensorID"`
	HeartRate float64        `json:"heartRate"`
	Timestamp string         `json:"timestamp"`
	Topic     string         `json:"topic"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Queries a running consumer's API: lists the sensors it has seen, then the
// archived readings of each one from the last day.
func main() {
	baseURL := "http://localhost:8080"
	if len(os.Args) > 1 {
		baseURL = os.Args[1]
	}
	client := &http.Client{Timeout: 10 * time.Second}

	// 1. GET /sensors
	var sensors struct {
		Sensors []Sensor `json:"sensors"`
	}
	if err := getJSON(client, baseURL+"/sensors", &sensors); err != nil {
		panic(err)
	}
	for _, s := range sensors.Sensors {
		fmt.Printf("sensor %s: last %.1f bpm at %s (%s)\n", s.SensorID, s.LastHeartRate, s.LastSeen, s.Topic)
	}

	// 2. GET /readings/:sensor_id?start=...&end=...
	// The archive is only mounted when the consumer has HEART_DATABASE_URL set.
	end := time.Now().UTC()
	start := end.Add(-24 * time.Hour)
	for _, s := range sensors.Sensors {
		q := url.Values{}
		q.Set("start", start.Format(time.RFC3339))
		q.Set("end", end.Format(time.RFC3339))
		var readings struct {
			Readings []Reading `json:"readings"`
		}
		u := fmt.Sprintf("%s/readings/%s?%s", baseURL, url.PathEscape(s.SensorID), q.Encode())
		if err := getJSON(client, u, &readings); err != nil {
			fmt.Println("GET /readings failed:", err)
			continue
		}
		fmt.Printf("GET /readings/%s: %d readings\n", s.SensorID, len(readings.Readings))
		for _, r := range readings.Readings {
			fmt.Printf("  %s %.1f\n", r.Timestamp, r.HeartRate)
		}
	}
}

func getJSON(client *http.Client, u string, v any) error {
	resp, err := client.Get(u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", u, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

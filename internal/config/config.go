// Package config loads the process settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

var ErrInvalidConfig = errors.New("invalid config")

const (
	KeyBrokerAddress    = "KAFKA_BROKER_ADDRESS"
	KeyJSONTopic        = "HEART_JSON_TOPIC"
	KeyCSVTopic         = "HEART_CSV_TOPIC"
	KeyConsumerGroupID  = "HEART_CONSUMER_GROUP_ID"
	KeyProducerInterval = "HEART_PRODUCER_INTERVAL_SECONDS"
	KeyJSONDataFile     = "HEART_JSON_DATA_FILE"
	KeyCSVDataFile      = "HEART_CSV_DATA_FILE"
	KeyCSVColumns       = "HEART_CSV_COLUMNS"
	KeyThresholdHigh    = "HEART_RATE_THRESHOLD_HIGH"
	KeyThresholdLow     = "HEART_RATE_THRESHOLD_LOW"
	KeyStallThreshold   = "HEART_STALL_THRESHOLD_BPM"
	KeyWindowSize       = "HEART_ROLLING_WINDOW_SIZE"
	KeyBrokerWait       = "HEART_BROKER_WAIT_SECONDS"
	KeyLogLevel         = "HEART_LOG_LEVEL"
	KeyHTTPAddr         = "HEART_HTTP_ADDR"
	KeyDatabaseURL      = "HEART_DATABASE_URL"
)

var defaults = map[string]any{
	KeyBrokerAddress:    "localhost:9092",
	KeyJSONTopic:        "heart_json",
	KeyCSVTopic:         "heart_csv",
	KeyConsumerGroupID:  "heart_group",
	KeyProducerInterval: 1.0,
	KeyJSONDataFile:     "data/heart_rate.json",
	KeyCSVDataFile:      "data/heart_rate.csv",
	KeyCSVColumns:       "timestamp,id,heart_rate",
	KeyThresholdHigh:    120.0,
	KeyThresholdLow:     40.0,
	KeyStallThreshold:   5.0,
	KeyWindowSize:       5,
	KeyBrokerWait:       30.0,
	KeyLogLevel:         "info",
	KeyHTTPAddr:         "",
	KeyDatabaseURL:      "",
}

type Settings struct {
	BrokerAddress    string
	JSONTopic        string
	CSVTopic         string
	ConsumerGroupID  string
	ProducerInterval time.Duration
	JSONDataFile     string
	CSVDataFile      string
	CSVColumns       []string
	ThresholdHigh    float64
	ThresholdLow     float64
	StallThreshold   float64
	WindowSize       int
	BrokerWait       time.Duration
	LogLevel         slog.Level
	HTTPAddr         string
	DatabaseURL      string
}

// Load reads the settings from the environment.
func Load() (*Settings, error) {
	return FromViper(viper.New())
}

// FromViper binds every key to the environment variable of the same name and
// reads the settings from v.
func FromViper(v *viper.Viper) (*Settings, error) {
	const fn = "Config:Load"
	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("%s:%w", fn, err)
		}
	}

	n := numbers{v: v}
	s := &Settings{
		BrokerAddress:    strings.TrimSpace(v.GetString(KeyBrokerAddress)),
		JSONTopic:        strings.TrimSpace(v.GetString(KeyJSONTopic)),
		CSVTopic:         strings.TrimSpace(v.GetString(KeyCSVTopic)),
		ConsumerGroupID:  strings.TrimSpace(v.GetString(KeyConsumerGroupID)),
		ProducerInterval: seconds(n.floatValue(KeyProducerInterval)),
		JSONDataFile:     v.GetString(KeyJSONDataFile),
		CSVDataFile:      v.GetString(KeyCSVDataFile),
		CSVColumns:       splitColumns(v.GetString(KeyCSVColumns)),
		ThresholdHigh:    n.floatValue(KeyThresholdHigh),
		ThresholdLow:     n.floatValue(KeyThresholdLow),
		StallThreshold:   n.floatValue(KeyStallThreshold),
		WindowSize:       n.intValue(KeyWindowSize),
		BrokerWait:       seconds(n.floatValue(KeyBrokerWait)),
		HTTPAddr:         strings.TrimSpace(v.GetString(KeyHTTPAddr)),
		DatabaseURL:      strings.TrimSpace(v.GetString(KeyDatabaseURL)),
	}
	if n.err != nil {
		return nil, fmt.Errorf("%s:%w", fn, n.err)
	}
	if err := s.LogLevel.UnmarshalText([]byte(v.GetString(KeyLogLevel))); err != nil {
		return nil, fmt.Errorf("%s:%w: %s:%w", fn, ErrInvalidConfig, KeyLogLevel, err)
	}
	if n.floatValue(KeyProducerInterval) < 0 {
		return nil, fmt.Errorf("%s:%w: %s must not be negative", fn, ErrInvalidConfig, KeyProducerInterval)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("%s:%w", fn, err)
	}
	return s, nil
}

func (s *Settings) validate() error {
	required := map[string]string{
		KeyBrokerAddress:   s.BrokerAddress,
		KeyJSONTopic:       s.JSONTopic,
		KeyCSVTopic:        s.CSVTopic,
		KeyConsumerGroupID: s.ConsumerGroupID,
	}
	for key, value := range required {
		if value == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidConfig, key)
		}
	}
	if s.WindowSize < 1 {
		return fmt.Errorf("%w: %s must be at least 1", ErrInvalidConfig, KeyWindowSize)
	}
	if s.ThresholdLow >= s.ThresholdHigh {
		return fmt.Errorf("%w: %s must be below %s", ErrInvalidConfig, KeyThresholdLow, KeyThresholdHigh)
	}
	if s.StallThreshold < 0 {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalidConfig, KeyStallThreshold)
	}
	return nil
}

// Topic returns the configured topic for a wire format.
func (s *Settings) Topic(format string) string {
	if format == "csv" {
		return s.CSVTopic
	}
	return s.JSONTopic
}

// DataFile returns the configured source file for a wire format.
func (s *Settings) DataFile(format string) string {
	if format == "csv" {
		return s.CSVDataFile
	}
	return s.JSONDataFile
}

// LogValue keeps the database URL out of the logs.
func (s *Settings) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("broker", s.BrokerAddress),
		slog.String("json_topic", s.JSONTopic),
		slog.String("csv_topic", s.CSVTopic),
		slog.String("group_id", s.ConsumerGroupID),
		slog.Duration("interval", s.ProducerInterval),
		slog.Float64("threshold_high", s.ThresholdHigh),
		slog.Float64("threshold_low", s.ThresholdLow),
		slog.Float64("stall_threshold", s.StallThreshold),
		slog.Int("window_size", s.WindowSize),
		slog.Bool("archive", s.DatabaseURL != ""),
		slog.String("http_addr", s.HTTPAddr),
	)
}

// numbers reads numeric keys strictly and keeps the first parse error, so a
// malformed value is reported instead of read as zero.
type numbers struct {
	v   *viper.Viper
	err error
}

func (n *numbers) floatValue(key string) float64 {
	f, err := cast.ToFloat64E(strings.TrimSpace(cast.ToString(n.v.Get(key))))
	if err == nil && (math.IsNaN(f) || math.IsInf(f, 0)) {
		err = errors.New("not a finite number")
	}
	if err != nil {
		n.fail(key, err)
		return 0
	}
	return f
}

func (n *numbers) intValue(key string) int {
	i, err := cast.ToIntE(strings.TrimSpace(cast.ToString(n.v.Get(key))))
	if err != nil {
		n.fail(key, err)
		return 0
	}
	return i
}

func (n *numbers) fail(key string, err error) {
	if n.err == nil {
		n.err = fmt.Errorf("%w: %s=%q:%w", ErrInvalidConfig, key, cast.ToString(n.v.Get(key)), err)
	}
}

func seconds(f float64) time.Duration {
	if f <= 0 {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}

func splitColumns(s string) []string {
	var cols []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cols = append(cols, c)
		}
	}
	return cols
}

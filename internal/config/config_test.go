package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Load_Defaults(t *testing.T) {
	s, err := FromViper(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "localhost:9092", s.BrokerAddress)
	assert.Equal(t, "heart_json", s.JSONTopic)
	assert.Equal(t, "heart_csv", s.CSVTopic)
	assert.Equal(t, "heart_group", s.ConsumerGroupID)
	assert.Equal(t, time.Second, s.ProducerInterval)
	assert.Equal(t, []string{"timestamp", "id", "heart_rate"}, s.CSVColumns)
	assert.Equal(t, 120.0, s.ThresholdHigh)
	assert.Equal(t, 40.0, s.ThresholdLow)
	assert.Equal(t, 5.0, s.StallThreshold)
	assert.Equal(t, 5, s.WindowSize)
	assert.Equal(t, 30*time.Second, s.BrokerWait)
	assert.Equal(t, slog.LevelInfo, s.LogLevel)
	assert.Empty(t, s.HTTPAddr)
	assert.Empty(t, s.DatabaseURL)
}

func Test_Load_Environment(t *testing.T) {
	t.Setenv(KeyBrokerAddress, "kafka:29092")
	t.Setenv(KeyJSONTopic, "vitals_json")
	t.Setenv(KeyCSVTopic, "vitals_csv")
	t.Setenv(KeyConsumerGroupID, "vitals")
	t.Setenv(KeyProducerInterval, "0.5")
	t.Setenv(KeyCSVColumns, "timestamp, sensor_id ,heart_rate,activity")
	t.Setenv(KeyThresholdHigh, "140")
	t.Setenv(KeyWindowSize, "10")
	t.Setenv(KeyLogLevel, "debug")
	t.Setenv(KeyHTTPAddr, ":8080")

	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "kafka:29092", s.BrokerAddress)
	assert.Equal(t, "vitals_json", s.Topic("json"))
	assert.Equal(t, "vitals_csv", s.Topic("csv"))
	assert.Equal(t, "vitals", s.ConsumerGroupID)
	assert.Equal(t, 500*time.Millisecond, s.ProducerInterval)
	assert.Equal(t, []string{"timestamp", "sensor_id", "heart_rate", "activity"}, s.CSVColumns)
	assert.Equal(t, 140.0, s.ThresholdHigh)
	assert.Equal(t, 10, s.WindowSize)
	assert.Equal(t, slog.LevelDebug, s.LogLevel)
	assert.Equal(t, ":8080", s.HTTPAddr)
	assert.Equal(t, "data/heart_rate.csv", s.DataFile("csv"))
	assert.Equal(t, "data/heart_rate.json", s.DataFile("json"))
}

func Test_Load_Invalid(t *testing.T) {
	cases := []struct {
		name  string
		setup func(v *viper.Viper)
	}{
		{
			name:  "blank topic",
			setup: func(v *viper.Viper) { v.Set(KeyJSONTopic, "  ") },
		},
		{
			name:  "blank broker",
			setup: func(v *viper.Viper) { v.Set(KeyBrokerAddress, "") },
		},
		{
			name:  "negative interval",
			setup: func(v *viper.Viper) { v.Set(KeyProducerInterval, -1) },
		},
		{
			name:  "empty window",
			setup: func(v *viper.Viper) { v.Set(KeyWindowSize, 0) },
		},
		{
			name: "inverted thresholds",
			setup: func(v *viper.Viper) {
				v.Set(KeyThresholdLow, 130)
				v.Set(KeyThresholdHigh, 120)
			},
		},
		{
			name:  "negative stall threshold",
			setup: func(v *viper.Viper) { v.Set(KeyStallThreshold, -0.5) },
		},
		{
			name:  "non-numeric interval",
			setup: func(v *viper.Viper) { v.Set(KeyProducerInterval, "abc") },
		},
		{
			name:  "non-numeric window",
			setup: func(v *viper.Viper) { v.Set(KeyWindowSize, "ten") },
		},
		{
			name:  "non-numeric stall threshold",
			setup: func(v *viper.Viper) { v.Set(KeyStallThreshold, "five") },
		},
		{
			name:  "NaN threshold",
			setup: func(v *viper.Viper) { v.Set(KeyThresholdHigh, "NaN") },
		},
		{
			name:  "unknown log level",
			setup: func(v *viper.Viper) { v.Set(KeyLogLevel, "loud") },
		},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			tt.setup(v)
			_, err := FromViper(v)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func Test_Load_MalformedEnvironment(t *testing.T) {
	t.Setenv(KeyProducerInterval, "abc")
	_, err := Load()
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorContains(t, err, KeyProducerInterval)
}

func Test_LogValue(t *testing.T) {
	s := &Settings{DatabaseURL: "postgres://user:secret@db/heart"}
	assert.NotContains(t, s.LogValue().String(), "secret")
}

package source

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heart-streaming/internal/record"
)

var ts = time.Date(2025, 1, 11, 18, 15, 0, 0, time.UTC)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func drain(t *testing.T, src Source) ([]record.Record, error) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, src.Open(ctx))
	defer src.Close()
	var out []record.Record
	for {
		r, err := src.Next(ctx)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
}

func Test_CSVSource(t *testing.T) {
	cases := []struct {
		name        string
		content     string
		expected    []record.Record
		expectedErr error
	}{
		{
			name: "two rows",
			content: "timestamp,id,heart_rate\n" +
				"2025-01-11T18:15:00Z,a,72\n" +
				"2025-01-11T18:15:05Z,b,150\n",
			expected: []record.Record{
				record.New(ts, "a", 72),
				record.New(ts.Add(5*time.Second), "b", 150),
			},
		},
		{
			name: "sensor_id header and extra column",
			content: "timestamp,sensor_id,heart_rate,activity\n" +
				"2025-01-11T18:15:00Z,a,72,walking\n",
			expected: []record.Record{
				{
					Timestamp: ts,
					ID:        "a",
					HeartRate: record.HeartRate(72),
					Metadata:  map[string]any{"activity": "walking"},
				},
			},
		},
		{
			name: "empty heart rate is left missing",
			content: "timestamp,id,heart_rate\n" +
				"2025-01-11T18:15:00Z,a,\n",
			expected: []record.Record{
				{Timestamp: ts, ID: "a"},
			},
		},
		{
			name:     "header only",
			content:  "timestamp,id,heart_rate\n",
			expected: nil,
		},
		{
			name: "short row",
			content: "timestamp,id,heart_rate\n" +
				"2025-01-11T18:15:00Z,a,72\n" +
				"2025-01-11T18:15:05Z,b\n",
			expected: []record.Record{
				record.New(ts, "a", 72),
			},
			expectedErr: ErrMalformedRow,
		},
		{
			name: "non-numeric heart rate",
			content: "timestamp,id,heart_rate\n" +
				"2025-01-11T18:15:00Z,a,fast\n",
			expectedErr: ErrMalformedRow,
		},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			src := NewCSVSource(writeFile(t, "data.csv", tt.content))
			got, err := drain(t, src)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func Test_CSVSource_Header(t *testing.T) {
	src := NewCSVSource(writeFile(t, "data.csv", "\ufefftimestamp, id ,heart_rate\n"))
	require.NoError(t, src.Open(context.Background()))
	defer src.Close()
	assert.Equal(t, []string{"timestamp", "id", "heart_rate"}, src.Header())
}

func Test_CSVSource_EmptyFile(t *testing.T) {
	src := NewCSVSource(writeFile(t, "data.csv", ""))
	err := src.Open(context.Background())
	assert.ErrorIs(t, err, ErrMalformedRow)
}

func Test_JSONSource(t *testing.T) {
	cases := []struct {
		name        string
		content     string
		expected    []record.Record
		expectedErr error
	}{
		{
			name: "newline delimited",
			content: `{"timestamp": "2025-01-11T18:15:00Z", "id": "a", "heart_rate": 72.0}` + "\n" +
				`{"timestamp": "2025-01-11T18:15:05Z", "id": "b", "heart_rate": 150}` + "\n",
			expected: []record.Record{
				record.New(ts, "a", 72),
				record.New(ts.Add(5*time.Second), "b", 150),
			},
		},
		{
			name: "array",
			content: `[
  {"timestamp": "2025-01-11T18:15:00Z", "id": "a", "heart_rate": 72},
  {"timestamp": "2025-01-11T18:15:05Z", "id": "b", "heart_rate": 150}
]`,
			expected: []record.Record{
				record.New(ts, "a", 72),
				record.New(ts.Add(5*time.Second), "b", 150),
			},
		},
		{
			name:     "empty array",
			content:  `[]`,
			expected: nil,
		},
		{
			name:    "missing heart rate is not a source error",
			content: `{"timestamp": "2025-01-11T18:15:00Z", "id": "a"}`,
			expected: []record.Record{
				{Timestamp: ts, ID: "a"},
			},
		},
		{
			name: "invalid json",
			content: `{"timestamp": "2025-01-11T18:15:00Z", "id": "a", "heart_rate": 72}` + "\n" +
				`{"timestamp": ` + "\n",
			expected: []record.Record{
				record.New(ts, "a", 72),
			},
			expectedErr: ErrMalformedRecord,
		},
		{
			name:        "not an object",
			content:     `[1]`,
			expectedErr: ErrMalformedRecord,
		},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			src := NewJSONSource(writeFile(t, "data.json", tt.content))
			got, err := drain(t, src)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func Test_Reopen(t *testing.T) {
	path := writeFile(t, "data.json", `{"timestamp": "2025-01-11T18:15:00Z", "id": "a", "heart_rate": 72}`)
	src := NewJSONSource(path)

	first, err := drain(t, src)
	require.NoError(t, err)
	second, err := drain(t, src)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, err = src.Next(context.Background())
	assert.ErrorIs(t, err, ErrNotOpen)
}

func Test_New(t *testing.T) {
	s, err := New("csv", "x.csv")
	require.NoError(t, err)
	assert.IsType(t, &CSVSource{}, s)

	s, err = New("json", "x.json")
	require.NoError(t, err)
	assert.IsType(t, &JSONSource{}, s)

	_, err = New("xml", "x.xml")
	assert.Error(t, err)
}

package producer

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"heart-streaming/internal/codec"
	k "heart-streaming/internal/kafka"
	"heart-streaming/internal/metrics"
	"heart-streaming/internal/source"
	"heart-streaming/internal/worker"
)

const csvData = "timestamp,id,heart_rate\n" +
	"2025-01-11T18:15:00Z,a,72\n" +
	"2025-01-11T18:15:05Z,b,150\n" +
	"2025-01-11T18:15:10Z,a,75.5\n"

const jsonData = `{"timestamp": "2025-01-11T18:15:00Z", "id": "a", "heart_rate": 72}
{"timestamp": "2025-01-11T18:15:05Z", "id": "b"}
{"timestamp": "2025-01-11T18:15:10Z", "id": "a", "heart_rate": 75}
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// capture records every published message in call order.
func capture(w *k.MockWriter, out *[]kafka.Message, ret error) {
	w.EXPECT().WriteMessages(mock.Anything, mock.Anything).
		Run(func(ctx context.Context, msgs ...kafka.Message) {
			*out = append(*out, msgs...)
		}).
		Return(ret)
}

func newProducer(t *testing.T, src source.Source, c codec.Codec, w k.Writer, m *metrics.Metrics) *Producer {
	t.Helper()
	p := New(Config{
		Topic:   "heart_test",
		Source:  src,
		Codec:   c,
		Writer:  w,
		Metrics: m,
	})
	require.NoError(t, p.Open(context.Background()))
	t.Cleanup(func() { src.Close() })
	return p
}

func Test_Run(t *testing.T) {
	cases := []struct {
		name             string
		setupSource      func() source.Source
		codec            codec.Codec
		setupWriter      func(*[]kafka.Message) k.Writer
		expectedPayloads []string
		expectedErr      []error
		expectedState    worker.State
	}{
		{
			name:        "csv source published in order",
			setupSource: func() source.Source { return source.NewCSVSource(writeFile(t, "d.csv", csvData)) },
			codec:       codec.NewJSON(),
			setupWriter: func(out *[]kafka.Message) k.Writer {
				w := k.NewMockWriter(t)
				capture(w, out, nil)
				return w
			},
			expectedPayloads: []string{
				`{"timestamp":"2025-01-11T18:15:00Z","id":"a","heart_rate":72}`,
				`{"timestamp":"2025-01-11T18:15:05Z","id":"b","heart_rate":150}`,
				`{"timestamp":"2025-01-11T18:15:10Z","id":"a","heart_rate":75.5}`,
			},
			expectedState: worker.StateTerminated,
		},
		{
			name:        "csv wire format has no header",
			setupSource: func() source.Source { return source.NewCSVSource(writeFile(t, "d.csv", csvData)) },
			codec:       mustCSV(t),
			setupWriter: func(out *[]kafka.Message) k.Writer {
				w := k.NewMockWriter(t)
				capture(w, out, nil)
				return w
			},
			expectedPayloads: []string{
				`2025-01-11T18:15:00Z,a,72`,
				`2025-01-11T18:15:05Z,b,150`,
				`2025-01-11T18:15:10Z,a,75.5`,
			},
			expectedState: worker.StateTerminated,
		},
		{
			name:        "missing heart rate halts before publishing it",
			setupSource: func() source.Source { return source.NewJSONSource(writeFile(t, "d.json", jsonData)) },
			codec:       codec.NewJSON(),
			setupWriter: func(out *[]kafka.Message) k.Writer {
				w := k.NewMockWriter(t)
				capture(w, out, nil)
				return w
			},
			expectedPayloads: []string{
				`{"timestamp":"2025-01-11T18:15:00Z","id":"a","heart_rate":72}`,
			},
			expectedErr:   []error{codec.ErrEncoding},
			expectedState: worker.StateFailed,
		},
		{
			name:        "writer failed",
			setupSource: func() source.Source { return source.NewCSVSource(writeFile(t, "d.csv", csvData)) },
			codec:       codec.NewJSON(),
			setupWriter: func(out *[]kafka.Message) k.Writer {
				w := k.NewMockWriter(t)
				w.EXPECT().WriteMessages(mock.Anything, mock.Anything).Return(errors.New("failed")).Once()
				return w
			},
			expectedErr:   []error{ErrWriteMessage},
			expectedState: worker.StateFailed,
		},
		{
			name: "malformed source row",
			setupSource: func() source.Source {
				return source.NewCSVSource(writeFile(t, "d.csv", "timestamp,id,heart_rate\n2025-01-11T18:15:00Z,a\n"))
			},
			codec: codec.NewJSON(),
			setupWriter: func(out *[]kafka.Message) k.Writer {
				return k.NewMockWriter(t)
			},
			expectedErr:   []error{ErrReadRecord, source.ErrMalformedRow},
			expectedState: worker.StateFailed,
		},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			var published []kafka.Message
			p := newProducer(t, tt.setupSource(), tt.codec, tt.setupWriter(&published), nil)

			err := p.Run(context.Background())
			if len(tt.expectedErr) == 0 {
				assert.NoError(t, err)
			}
			for _, e := range tt.expectedErr {
				assert.ErrorIs(t, err, e)
			}
			assert.Equal(t, tt.expectedState, p.Worker().State())

			payloads := make([]string, 0, len(published))
			for _, m := range published {
				payloads = append(payloads, string(m.Value))
			}
			if tt.expectedPayloads == nil {
				tt.expectedPayloads = []string{}
			}
			assert.Equal(t, tt.expectedPayloads, payloads)
		})
	}
}

func Test_ProcessMessage_EncodeError(t *testing.T) {
	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	src := source.NewJSONSource(writeFile(t, "d.json", `{"timestamp": "2025-01-11T18:15:05Z", "id": "b"}`))
	p := newProducer(t, src, codec.NewJSON(), k.NewMockWriter(t), nil)

	err := p.ProcessMessage(context.Background())
	assert.ErrorIs(t, err, codec.ErrEncoding)
	assert.ErrorContains(t, err, "sensor_id=b")
	// reported once, by whoever handles the returned error
	assert.NotContains(t, logs.String(), `"level":"ERROR"`)
}

func Test_ProcessMessage_Headers(t *testing.T) {
	var published []kafka.Message
	w := k.NewMockWriter(t)
	capture(w, &published, nil)
	m := metrics.New()
	p := newProducer(t, source.NewCSVSource(writeFile(t, "d.csv", csvData)), mustCSV(t), w, m)

	require.NoError(t, p.ProcessMessage(context.Background()))
	require.Len(t, published, 1)
	msg := published[0]
	assert.Equal(t, []byte("a"), msg.Key)
	assert.Len(t, k.Header(msg, k.HeaderMessageID), 26)
	assert.Equal(t, "text/csv", k.Header(msg, k.HeaderContentType))
	assert.Equal(t, "csv", k.Header(msg, k.HeaderFormat))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Published.WithLabelValues("heart_test", "csv")))
}

func Test_Run_Idempotent(t *testing.T) {
	path := writeFile(t, "d.csv", csvData)
	run := func() []string {
		var published []kafka.Message
		w := k.NewMockWriter(t)
		capture(w, &published, nil)
		p := newProducer(t, source.NewCSVSource(path), codec.NewJSON(), w, nil)
		require.NoError(t, p.Run(context.Background()))
		out := make([]string, 0, len(published))
		for _, m := range published {
			out = append(out, string(m.Value))
		}
		return out
	}
	first := run()
	second := run()
	assert.Len(t, first, 3)
	assert.Equal(t, first, second)
}

func Test_Run_Paced(t *testing.T) {
	var published []kafka.Message
	w := k.NewMockWriter(t)
	capture(w, &published, nil)
	src := source.NewCSVSource(writeFile(t, "d.csv", csvData))
	p := New(Config{
		Topic:    "heart_test",
		Source:   src,
		Codec:    codec.NewJSON(),
		Writer:   w,
		Interval: 30 * time.Millisecond,
	})
	require.NoError(t, p.Open(context.Background()))
	defer src.Close()

	start := time.Now()
	require.NoError(t, p.Run(context.Background()))
	assert.Len(t, published, 3)
	assert.GreaterOrEqual(t, time.Since(start), 55*time.Millisecond)
}

func Test_Run_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var published []kafka.Message
	w := k.NewMockWriter(t)
	w.EXPECT().WriteMessages(mock.Anything, mock.Anything).
		Run(func(ctx context.Context, msgs ...kafka.Message) {
			published = append(published, msgs...)
			cancel()
		}).
		Return(nil).Once()
	src := source.NewCSVSource(writeFile(t, "d.csv", csvData))
	p := New(Config{
		Topic:    "heart_test",
		Source:   src,
		Codec:    codec.NewJSON(),
		Writer:   w,
		Interval: time.Hour,
	})
	require.NoError(t, p.Open(ctx))
	defer src.Close()

	assert.NoError(t, p.Run(ctx))
	assert.Len(t, published, 1)
	assert.Equal(t, worker.StateTerminated, p.Worker().State())
}

func Test_Close(t *testing.T) {
	w := k.NewMockWriter(t)
	w.EXPECT().Close().Return(nil).Once()
	src := source.NewCSVSource(writeFile(t, "d.csv", csvData))
	p := New(Config{Topic: "heart_test", Source: src, Codec: codec.NewJSON(), Writer: w})
	require.NoError(t, p.Open(context.Background()))
	p.Close(context.Background())

	_, err := src.Next(context.Background())
	assert.ErrorIs(t, err, source.ErrNotOpen)
}

func mustCSV(t *testing.T) *codec.CSV {
	t.Helper()
	c, err := codec.NewCSV(nil)
	require.NoError(t, err)
	return c
}

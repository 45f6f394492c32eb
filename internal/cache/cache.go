// Package cache keeps the most recent reading seen for each sensor.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"heart-streaming/internal/codec"
	k "heart-streaming/internal/kafka"
	"heart-streaming/internal/record"
)

type SensorID string

type SensorState struct {
	LastHeartRate     float64
	LastTimestampSeen int64
	Topic             string
}

type Cache interface {
	Get(sensorID SensorID) (*SensorState, bool)
	Set(sensorID SensorID, state *SensorState)
	Delete(sensorID SensorID)
	Snapshot() map[SensorID]SensorState
	Dump()
}

type Config struct {
	Topic string
	// ReadTimeout ends Hydrate when no message arrives within it.
	ReadTimeout time.Duration
}

type StateCache struct {
	topic       string
	readTimeout time.Duration

	mu    sync.RWMutex
	store map[SensorID]*SensorState
}

func New(cfg Config) *StateCache {
	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 5 * time.Second
	}
	return &StateCache{
		topic:       cfg.Topic,
		readTimeout: readTimeout,
		store:       make(map[SensorID]*SensorState),
	}
}

func (c *StateCache) Get(sensorID SensorID) (*SensorState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	state, exists := c.store[sensorID]
	if !exists {
		return nil, false
	}
	copied := *state
	return &copied, true
}

func (c *StateCache) Set(sensorID SensorID, state *SensorState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[sensorID] = state
}

func (c *StateCache) Delete(sensorID SensorID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, sensorID)
}

func (c *StateCache) Snapshot() map[SensorID]SensorState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[SensorID]SensorState, len(c.store))
	for id, state := range c.store {
		out[id] = *state
	}
	return out
}

func (c *StateCache) Dump() {
	snapshot := c.Snapshot()
	ids := make([]string, 0, len(snapshot))
	for id := range snapshot {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	for _, id := range ids {
		slog.Info("Cache Dump", "sensor_id", id, "state", snapshot[SensorID(id)])
	}
}

// Observe records r unless an older reading for the same sensor arrives late.
func (c *StateCache) Observe(ctx context.Context, r record.Record) error {
	if r.HeartRate == nil {
		return nil
	}
	ts := r.Timestamp.UnixMilli()
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.store[SensorID(r.ID)]; ok && prev.LastTimestampSeen > ts {
		return nil
	}
	c.store[SensorID(r.ID)] = &SensorState{
		LastHeartRate:     *r.HeartRate,
		LastTimestampSeen: ts,
		Topic:             c.topic,
	}
	return nil
}

// Hydrate replays reader until it goes quiet for ReadTimeout, the context is
// cancelled or a read fails. Messages that do not decode are skipped.
// Blocking operation
func (c *StateCache) Hydrate(ctx context.Context, reader k.Reader, dec codec.Codec) int {
	slog.InfoContext(ctx, "Starting cache hydration...", "topic", c.topic)
	loaded := 0
	for {
		if ctx.Err() != nil {
			slog.InfoContext(ctx, "Cache hydrate stopped...")
			return loaded
		}
		readCtx, cancel := context.WithTimeout(ctx, c.readTimeout)
		m, err := reader.ReadMessage(readCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				slog.InfoContext(ctx, "Cache hydration complete - Deadline exceeded", "loaded", loaded)
				return loaded
			}
			if ctx.Err() == nil {
				slog.ErrorContext(ctx, "Error reading message", "error", err)
			}
			return loaded
		}

		r, err := dec.Decode(m.Value)
		if err != nil {
			slog.WarnContext(ctx, "Skipping message during hydration", "offset", m.Offset, "error", err)
			continue
		}
		c.Observe(ctx, r)
		loaded++
	}
}

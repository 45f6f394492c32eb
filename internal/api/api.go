package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"heart-streaming/internal/cache"
	"heart-streaming/internal/db"
)

type repository interface {
	LoadReadingsBetween(ctx context.Context, sensorID string, start, end int64) ([]db.Reading, error)
}

type latest interface {
	Get(sensorID cache.SensorID) (*cache.SensorState, bool)
	Snapshot() map[cache.SensorID]cache.SensorState
}

type API struct {
	DB       repository
	Latest   latest
	Gatherer prometheus.Gatherer
}

// Any field of Config may be nil; the matching routes are then not mounted.
type Config struct {
	DB       repository
	Latest   latest
	Gatherer prometheus.Gatherer
}

func New(cfg Config) *API {
	return &API{DB: cfg.DB, Latest: cfg.Latest, Gatherer: cfg.Gatherer}
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	if a.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(a.Gatherer, promhttp.HandlerOpts{}))
	}
	if a.DB != nil {
		r.Get("/readings/{sensor_id}", a.GetReadings)
	}
	if a.Latest != nil {
		r.Get("/sensors", a.ListSensors)
		r.Get("/sensors/{sensor_id}", a.GetSensor)
	}
	return r
}

func sensorFromState(id cache.SensorID, state cache.SensorState) Sensor {
	return Sensor{
		SensorID:      string(id),
		LastHeartRate: state.LastHeartRate,
		LastSeen:      time.UnixMilli(state.LastTimestampSeen).UTC().Format(time.RFC3339Nano),
		Topic:         state.Topic,
	}
}

func (a *API) ListSensors(w http.ResponseWriter, r *http.Request) {
	snapshot := a.Latest.Snapshot()
	resp := ListSensorsResponse{Sensors: make([]Sensor, 0, len(snapshot))}
	for id, state := range snapshot {
		resp.Sensors = append(resp.Sensors, sensorFromState(id, state))
	}
	sort.Slice(resp.Sensors, func(i, j int) bool {
		return resp.Sensors[i].SensorID < resp.Sensors[j].SensorID
	})
	writeJSON(w, resp)
}

func (a *API) GetSensor(w http.ResponseWriter, r *http.Request) {
	id := cache.SensorID(chi.URLParam(r, "sensor_id"))
	state, ok := a.Latest.Get(id)
	if !ok {
		http.Error(w, "sensor not found", http.StatusNotFound)
		return
	}
	writeJSON(w, sensorFromState(id, *state))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (a *API) GetReadings(w http.ResponseWriter, r *http.Request) {
	sensorID := chi.URLParam(r, "sensor_id")
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	startTime, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		http.Error(w, "invalid start timestamp", http.StatusBadRequest)
		return
	}
	endTime, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		http.Error(w, "invalid end timestamp", http.StatusBadRequest)
		return
	}

	readings, err := a.DB.LoadReadingsBetween(r.Context(), sensorID, startTime.UnixMilli(), endTime.UnixMilli())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := GetReadingsResponse{Readings: []Reading{}}
	for _, reading := range readings {
		resp.Readings = append(resp.Readings, Reading{
			SensorID:  reading.SensorID,
			HeartRate: reading.HeartRate,
			Timestamp: time.UnixMilli(reading.Timestamp).UTC().Format(time.RFC3339Nano),
			Topic:     reading.Topic,
			Metadata:  reading.Metadata,
		})
	}

	writeJSON(w, resp)
}

// Serve runs the HTTP server until ctx is cancelled.
func (a *API) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	slog.InfoContext(ctx, "HTTP server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

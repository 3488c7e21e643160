package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wildtrack/internal/dataset"
	"wildtrack/internal/metrics"
	"wildtrack/internal/ml"
	"wildtrack/internal/parks"
	"wildtrack/internal/seasonal"
	"wildtrack/internal/storage"
)

func trainingObservations() []dataset.Observation {
	var obs []dataset.Observation
	add := func(species, migration, weather string, months []int, breeding bool, activity, threat, behavior string, peak bool) {
		for _, m := range months {
			for i := 0; i < 4; i++ {
				obs = append(obs, dataset.Observation{
					Species:           species,
					Month:             m,
					MigrationTendency: migration,
					WeatherPreference: weather,
					BreedingSeason:    breeding,
					ActivityLevel:     activity,
					ThreatLevel:       threat,
					PrimaryBehavior:   behavior,
					PopulationPeak:    peak,
				})
			}
		}
	}

	add("Tiger", "migratory", "cold", []int{10, 11, 12, 1}, true, "high", "low", "mating_display", true)
	add("Tiger", "migratory", "cold", []int{5, 6}, false, "moderate", "low", "hunting_practice", false)
	add("Elephant", "nomadic", "moderate", []int{3, 4, 5}, true, "moderate", "high", "herd_gathering", true)
	add("Elephant", "nomadic", "moderate", []int{9, 10}, false, "low", "high", "foraging", false)
	add("Leopard", "territorial", "warm", []int{6, 7, 8}, false, "high", "moderate", "solitary_hunting", false)
	return obs
}

func trainedServer(t *testing.T, store *storage.Store) *Server {
	t.Helper()

	dir := t.TempDir()
	cfg := ml.ForestConfig{NumTrees: 40, Seed: 42}

	_, err := seasonal.Train(trainingObservations(), dir, cfg)
	require.NoError(t, err)

	parkPath := filepath.Join(dir, "park_model.json")
	var rows []dataset.ParkRow
	profiles := map[string][]float64{
		"Serengeti":   {1, 1, 0, 0, 0, 1, 1, 0, 0, 0, 0, 0, 0, 0, 1, 0},
		"Everglades":  {0, 1, 1, 1, 0, 0, 0, 1, 0, 0, 1, 0, 1, 1, 0, 0},
		"Yellowstone": {1, 0, 0, 0, 0, 0, 1, 0, 1, 1, 0, 1, 0, 0, 0, 1},
	}
	for park, features := range profiles {
		for i := 0; i < 4; i++ {
			rows = append(rows, dataset.ParkRow{ParkName: park, Features: features})
		}
	}
	require.NoError(t, parks.Train(rows, parkPath, cfg))

	registry := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(registry)
	svc := seasonal.NewWithRecorder(dir, metrics.NewRecorder(m))
	require.True(t, svc.Loaded())

	rec := parks.New(parkPath)
	require.True(t, rec.Loaded())

	return New(svc, rec, m, store, registry, 0)
}

func unloadedServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	registry := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(registry)
	svc := seasonal.New(filepath.Join(dir, "missing"))
	rec := parks.New(filepath.Join(dir, "missing.json"))
	return New(svc, rec, m, nil, registry, 0)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestPredictEndpoint(t *testing.T) {
	srv := trainedServer(t, nil)

	w := doJSON(t, srv.Handler(), http.MethodPost, "/predict", seasonal.Request{Species: "Tiger", Month: 12})
	require.Equal(t, http.StatusOK, w.Code)

	var pred seasonal.Prediction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pred))
	assert.True(t, pred.Success)
	assert.True(t, pred.BreedingSeason)
	assert.True(t, pred.BreedingPeak)
	assert.Equal(t, seasonal.StatusOK, pred.Status)
}

func TestPredictEndpoint_BadRequest(t *testing.T) {
	srv := trainedServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/predict", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body, "error")
}

func TestPredictEndpoint_MissingSpecies(t *testing.T) {
	srv := trainedServer(t, nil)

	w := doJSON(t, srv.Handler(), http.MethodPost, "/predict", seasonal.Request{Month: 6})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPredictEndpoint_MethodNotAllowed(t *testing.T) {
	srv := trainedServer(t, nil)

	w := doJSON(t, srv.Handler(), http.MethodGet, "/predict", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestBatchEndpoint(t *testing.T) {
	srv := trainedServer(t, nil)

	requests := []seasonal.Request{
		{Species: "Tiger", Month: 12},
		{Species: "NoSuchSpecies", Month: 6},
		{Species: "Leopard", Month: 7},
	}
	w := doJSON(t, srv.Handler(), http.MethodPost, "/predict/batch", requests)
	require.Equal(t, http.StatusOK, w.Code)

	var results []seasonal.BatchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	require.Len(t, results, 3)
	assert.Equal(t, "Tiger", results[0].Species)
	assert.Equal(t, "NoSuchSpecies", results[1].Species)
	assert.Equal(t, seasonal.StatusDegraded, results[1].Prediction.Status)
	assert.Equal(t, "Leopard", results[2].Species)
}

func TestSpeciesEndpoint(t *testing.T) {
	srv := trainedServer(t, nil)

	w := doJSON(t, srv.Handler(), http.MethodGet, "/species", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var species []string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &species))
	assert.Equal(t, []string{"Elephant", "Leopard", "Tiger"}, species)
}

func TestRecommendEndpoint(t *testing.T) {
	srv := trainedServer(t, nil)

	w := doJSON(t, srv.Handler(), http.MethodPost, "/recommend", map[string]float64{
		"mammals": 1, "safari": 1, "adventure": 1,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var suggestions []parks.Suggestion
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &suggestions))
	require.NotEmpty(t, suggestions)
	assert.LessOrEqual(t, len(suggestions), parks.TopN)
	assert.Equal(t, "Serengeti", suggestions[0].Park)
}

func TestRecommendEndpoint_BooleanFlags(t *testing.T) {
	srv := trainedServer(t, nil)

	w := doJSON(t, srv.Handler(), http.MethodPost, "/recommend", map[string]any{
		"mammals": true, "safari": true, "adventure": 1,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var suggestions []parks.Suggestion
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &suggestions))
	require.NotEmpty(t, suggestions)
	assert.Equal(t, "Serengeti", suggestions[0].Park)
}

func TestHealthEndpoint(t *testing.T) {
	srv := trainedServer(t, nil)

	w := doJSON(t, srv.Handler(), http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var health HealthStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.True(t, health.Healthy)
	assert.NotEmpty(t, health.BundleVersion)
}

func TestHealthEndpoint_Unloaded(t *testing.T) {
	srv := unloadedServer(t)

	w := doJSON(t, srv.Handler(), http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var health HealthStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.False(t, health.Healthy)
}

func TestPredictEndpoint_UnloadedServesFallback(t *testing.T) {
	srv := unloadedServer(t)

	w := doJSON(t, srv.Handler(), http.MethodPost, "/predict", seasonal.Request{Species: "Tiger", Month: 6})
	require.Equal(t, http.StatusOK, w.Code)

	var pred seasonal.Prediction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pred))
	assert.False(t, pred.Success)
	assert.Equal(t, seasonal.StatusFallback, pred.Status)
	assert.Equal(t, seasonal.FallbackConfidence, pred.Confidence)
}

func TestRecommendEndpoint_Unloaded(t *testing.T) {
	srv := unloadedServer(t)

	w := doJSON(t, srv.Handler(), http.MethodPost, "/recommend", map[string]float64{"mammals": 1})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := trainedServer(t, nil)

	doJSON(t, srv.Handler(), http.MethodPost, "/predict", seasonal.Request{Species: "Tiger", Month: 12})

	w := doJSON(t, srv.Handler(), http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "predictions_total")
}

func TestPredictionLogging(t *testing.T) {
	dataDir := t.TempDir()
	store, err := storage.New(dataDir)
	require.NoError(t, err)
	defer store.Close()

	srv := trainedServer(t, store)

	w := doJSON(t, srv.Handler(), http.MethodPost, "/predict", seasonal.Request{Species: "Tiger", Month: 12})
	require.Equal(t, http.StatusOK, w.Code)

	recs, err := store.GetPredictions("Tiger", time.Now().Add(-time.Minute), time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 12, recs[0].Month)
	assert.True(t, recs[0].Prediction.Success)
}

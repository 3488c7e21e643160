package modelsync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wildtrack/internal/seasonal"
)

func testManifest() *seasonal.Manifest {
	return &seasonal.Manifest{
		Version:         "20250601-120000",
		CreatedAt:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		FeatureOrder:    seasonal.FeatureOrder,
		TrainingSamples: 120,
		Accuracy:        map[string]float64{"behavior": 0.95},
		Files:           []string{"breeding_model.json", "species_encoder.json"},
	}
}

func bundleServer(t *testing.T, m *seasonal.Manifest, files map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/"+seasonal.ManifestFile, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewEncoder(w).Encode(m); err != nil {
			t.Errorf("encode manifest: %v", err)
		}
	})
	for name, body := range files {
		mux.HandleFunc("/"+name, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchManifest(t *testing.T) {
	srv := bundleServer(t, testManifest(), nil)

	s := New(srv.URL, 5*time.Second)
	m, err := s.FetchManifest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "20250601-120000", m.Version)
	assert.Equal(t, 120, m.TrainingSamples)
}

func TestFetchManifest_BadFeatureOrder(t *testing.T) {
	m := testManifest()
	m.FeatureOrder = []string{"month", "species_encoded"}
	srv := bundleServer(t, m, nil)

	s := New(srv.URL, 5*time.Second)
	_, err := s.FetchManifest(context.Background())
	assert.Error(t, err)
}

func TestFetchManifest_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := New(srv.URL, 5*time.Second)
	_, err := s.FetchManifest(context.Background())
	assert.Error(t, err)
}

func TestSync(t *testing.T) {
	files := map[string]string{
		"breeding_model.json":  `{"numTrees":1}`,
		"species_encoder.json": `{"classes":["Tiger"]}`,
	}
	srv := bundleServer(t, testManifest(), files)

	dir := filepath.Join(t.TempDir(), "models")
	s := New(srv.URL, 5*time.Second)

	m, err := s.Sync(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "20250601-120000", m.Version)

	for name, want := range files {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, want, string(data))
	}

	// Manifest must land on disk too, with the feature order intact.
	loaded, err := seasonal.LoadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, m.Version, loaded.Version)
}

func TestSync_RejectsPathEscapingNames(t *testing.T) {
	for _, name := range []string{"../escape.json", "a/b.json", "..", ""} {
		m := testManifest()
		m.Files = []string{name}
		srv := bundleServer(t, m, nil)

		parent := t.TempDir()
		dir := filepath.Join(parent, "models")
		s := New(srv.URL, 5*time.Second)

		_, err := s.Sync(context.Background(), dir)
		assert.Error(t, err, "file name %q must be rejected", name)

		// Nothing may be written outside the model dir.
		entries, readErr := os.ReadDir(parent)
		require.NoError(t, readErr)
		for _, e := range entries {
			assert.Equal(t, "models", e.Name())
		}
	}
}

func TestSync_MissingFile(t *testing.T) {
	// Manifest lists two files but the server only serves one.
	srv := bundleServer(t, testManifest(), map[string]string{
		"breeding_model.json": `{"numTrees":1}`,
	})

	dir := t.TempDir()
	s := New(srv.URL, 5*time.Second)

	_, err := s.Sync(context.Background(), dir)
	assert.Error(t, err)

	// No manifest should be written for a partial bundle.
	_, statErr := os.Stat(filepath.Join(dir, seasonal.ManifestFile))
	assert.True(t, os.IsNotExist(statErr))
}

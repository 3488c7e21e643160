// Package server exposes the seasonal predictor and park recommender
// over HTTP. Prediction endpoints never fail a request because of model
// state: an unloaded bundle answers with the documented fallback object
// and the health endpoint is where degradation becomes visible.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"wildtrack/internal/metrics"
	"wildtrack/internal/parks"
	"wildtrack/internal/seasonal"
	"wildtrack/internal/storage"
)

// Server serves the prediction HTTP API.
type Server struct {
	seasonal *seasonal.Service
	parks    *parks.Recommender
	metrics  *metrics.Metrics
	store    *storage.Store
	server   *http.Server
}

// HealthStatus is the /health response body.
type HealthStatus struct {
	Healthy        bool   `json:"healthy"`
	SeasonalLoaded bool   `json:"seasonalLoaded"`
	ParkLoaded     bool   `json:"parkLoaded"`
	BundleVersion  string `json:"bundleVersion,omitempty"`
}

// New assembles the server. The store may be nil, in which case served
// predictions are not persisted. The gatherer backs the /metrics
// endpoint and must be the registry the Metrics were registered on.
func New(svc *seasonal.Service, rec *parks.Recommender, m *metrics.Metrics, store *storage.Store, gatherer prometheus.Gatherer, port int) *Server {
	s := &Server{
		seasonal: svc,
		parks:    rec,
		metrics:  m,
		store:    store,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/predict", s.handlePredict)
	mux.HandleFunc("/predict/batch", s.handleBatch)
	mux.HandleFunc("/species", s.handleSpecies)
	mux.HandleFunc("/recommend", s.handleRecommend)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Handler returns the request handler, which keeps tests independent of
// a listening socket.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("starting prediction server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req seasonal.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if req.Species == "" {
		s.writeError(w, http.StatusBadRequest, "species is required")
		return
	}

	pred := s.seasonal.Predict(req)
	s.logPrediction(req, pred)
	writeJSON(w, http.StatusOK, pred)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var requests []seasonal.Request
	if err := json.NewDecoder(r.Body).Decode(&requests); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	if s.metrics != nil {
		s.metrics.BatchRequests.Inc()
	}

	results := s.seasonal.BatchPredict(requests)
	for _, res := range results {
		s.logPrediction(seasonal.Request{Species: res.Species, Month: res.Month}, res.Prediction)
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleSpecies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.seasonal.SupportedSpecies())
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	if s.metrics != nil {
		s.metrics.ParkRequests.Inc()
	}

	suggestions, err := s.parks.Recommend(parks.Coerce(raw))
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, suggestions)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthStatus{
		SeasonalLoaded: s.seasonal.Loaded(),
		ParkLoaded:     s.parks.Loaded(),
	}
	health.Healthy = health.SeasonalLoaded && health.ParkLoaded
	if m := s.seasonal.Manifest(); m != nil {
		health.BundleVersion = m.Version
	}

	status := http.StatusOK
	if !health.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

func (s *Server) logPrediction(req seasonal.Request, pred seasonal.Prediction) {
	if s.store == nil {
		return
	}
	rec := storage.Record{
		Species:    req.Species,
		Month:      req.Month,
		Ts:         time.Now(),
		Prediction: pred,
	}
	if err := s.store.StorePrediction(rec); err != nil {
		log.Warn().Err(err).Str("species", req.Species).Msg("failed to persist prediction")
		if s.metrics != nil {
			s.metrics.ErrorsTotal.Inc()
		}
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	if s.metrics != nil {
		s.metrics.ErrorsTotal.Inc()
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

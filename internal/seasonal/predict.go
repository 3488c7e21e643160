package seasonal

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"wildtrack/internal/ml"
)

// Status classifies how a prediction was produced.
type Status string

const (
	// StatusOK means every feature encoded cleanly and all models ran.
	StatusOK Status = "ok"
	// StatusDegraded means at least one unknown category was replaced
	// by the sentinel code before the models ran.
	StatusDegraded Status = "degraded"
	// StatusFallback means the fixed fallback result was returned
	// without consulting the models.
	StatusFallback Status = "fallback"
)

// FallbackConfidence is the sentinel confidence carried by every
// fallback result in place of a percentage.
const FallbackConfidence = "Low - Models not available, using fallback"

// Request is one prediction request tuple. Empty MigrationTendency and
// WeatherPreference select the documented defaults.
type Request struct {
	Species           string `json:"species"`
	Month             int    `json:"month"`
	MigrationTendency string `json:"migration_tendency,omitempty"`
	WeatherPreference string `json:"weather_preference,omitempty"`
}

// Prediction is the aggregated result of all five models, or the fixed
// fallback object when prediction could not proceed.
type Prediction struct {
	PrimaryBehavior   string `json:"primaryBehavior"`
	BreedingSeason    bool   `json:"breedingSeason"`
	BreedingPeak      bool   `json:"breedingPeak"`
	ActivityLevel     string `json:"activityLevel"`
	ThreatLevel       string `json:"threatLevel"`
	MigrationTendency string `json:"migrationTendency"`
	PopulationPeak    bool   `json:"populationPeak"`
	Recommendation    string `json:"recommendation"`
	Confidence        string `json:"confidence"`
	Success           bool   `json:"success"`
	Status            Status `json:"status"`
}

// BatchResult pairs one batch element with its prediction.
type BatchResult struct {
	Species    string     `json:"species"`
	Month      int        `json:"month"`
	Prediction Prediction `json:"prediction"`
}

// Recorder receives prediction telemetry. A nil Recorder is valid and
// records nothing.
type Recorder interface {
	PredictionInc()
	FallbackInc()
	DegradedInc()
	LatencyObserve(seconds float64)
	ConfidenceObserve(confidence float64)
}

// Service serves predictions from a persisted model bundle. Construct it
// once at process start and share it; after construction it is read-only
// and safe for concurrent use.
type Service struct {
	modelDir string
	loaded   bool
	manifest *Manifest
	bank     *EncoderBank

	breeding   *ml.RandomForest
	activity   *ml.RandomForest
	threat     *ml.RandomForest
	behavior   *ml.RandomForest
	population *ml.RandomForest

	recorder Recorder
}

// New loads the bundle in modelDir. Loading failure is not an error:
// the service starts unloaded and every prediction short-circuits to
// the fallback result.
func New(modelDir string) *Service {
	return NewWithRecorder(modelDir, nil)
}

// NewWithRecorder is New with a telemetry recorder attached.
func NewWithRecorder(modelDir string, recorder Recorder) *Service {
	s := &Service{
		modelDir: modelDir,
		bank:     NewEncoderBank(),
		recorder: recorder,
	}
	if err := s.load(); err != nil {
		log.Warn().Err(err).Str("model_dir", modelDir).Msg("model bundle not loaded, serving fallback predictions")
		s.loaded = false
		return s
	}
	s.loaded = true
	log.Info().Str("model_dir", modelDir).Str("version", s.manifest.Version).Msg("model bundle loaded")
	return s
}

func (s *Service) load() error {
	manifest, err := LoadManifest(s.modelDir)
	if err != nil {
		return err
	}
	s.manifest = manifest

	if err := s.bank.Load(s.modelDir); err != nil {
		return err
	}

	for _, m := range []struct {
		dst  **ml.RandomForest
		file string
	}{
		{&s.breeding, BreedingModelFile},
		{&s.activity, ActivityModelFile},
		{&s.threat, ThreatModelFile},
		{&s.behavior, BehaviorModelFile},
		{&s.population, PopulationModelFile},
	} {
		forest := &ml.RandomForest{}
		if err := forest.Load(filepath.Join(s.modelDir, m.file)); err != nil {
			return err
		}
		*m.dst = forest
	}
	return nil
}

// Loaded reports whether the bundle loaded at construction.
func (s *Service) Loaded() bool {
	return s != nil && s.loaded
}

// Manifest returns the loaded bundle manifest, or nil when unloaded.
func (s *Service) Manifest() *Manifest {
	if s == nil {
		return nil
	}
	return s.manifest
}

var titleCaser = cases.Title(language.English)

// Predict runs all five models for one request. It never returns an
// error: any failure yields the fixed fallback result.
func (s *Service) Predict(req Request) Prediction {
	start := time.Now()
	defer func() {
		if s != nil && s.recorder != nil {
			s.recorder.LatencyObserve(time.Since(start).Seconds())
		}
	}()

	if !s.Loaded() {
		return s.fallback()
	}

	vec, degraded := s.bank.BuildFeatures(req.Species, req.Month, req.MigrationTendency, req.WeatherPreference)

	pred, err := s.aggregate(vec)
	if err != nil {
		log.Error().Err(err).Str("species", req.Species).Int("month", req.Month).Msg("prediction failed, using fallback")
		return s.fallback()
	}

	pred.MigrationTendency = orDefault(req.MigrationTendency, DefaultMigration)
	if degraded {
		pred.Status = StatusDegraded
		if s.recorder != nil {
			s.recorder.DegradedInc()
		}
	}
	if s.recorder != nil {
		s.recorder.PredictionInc()
	}
	return pred
}

// aggregate runs the model bank on one feature vector and assembles the
// combined result.
func (s *Service) aggregate(vec []float64) (Prediction, error) {
	breedingLabel, err := s.breeding.Predict(vec)
	if err != nil {
		return Prediction{}, fmt.Errorf("breeding model: %w", err)
	}
	breeding := breedingLabel == "true"

	activity, err := s.activity.Predict(vec)
	if err != nil {
		return Prediction{}, fmt.Errorf("activity model: %w", err)
	}
	threat, err := s.threat.Predict(vec)
	if err != nil {
		return Prediction{}, fmt.Errorf("threat model: %w", err)
	}

	behaviorLabel, err := s.behavior.Predict(vec)
	if err != nil {
		return Prediction{}, fmt.Errorf("behavior model: %w", err)
	}
	behaviorCode, err := strconv.Atoi(behaviorLabel)
	if err != nil {
		return Prediction{}, fmt.Errorf("behavior model emitted non-numeric label %q", behaviorLabel)
	}
	behavior, err := s.bank.Behavior.Inverse(behaviorCode)
	if err != nil {
		return Prediction{}, fmt.Errorf("decode behavior: %w", err)
	}

	populationLabel, err := s.population.Predict(vec)
	if err != nil {
		return Prediction{}, fmt.Errorf("population model: %w", err)
	}
	population := populationLabel == "true"

	// The population model's probability is deliberately left out of the
	// average; the historical rule averages only these four.
	confidence, err := s.averageConfidence(vec, s.breeding, s.activity, s.threat, s.behavior)
	if err != nil {
		return Prediction{}, err
	}
	if s.recorder != nil {
		s.recorder.ConfidenceObserve(confidence)
	}

	return Prediction{
		PrimaryBehavior: behavior,
		BreedingSeason:  breeding,
		BreedingPeak:    population && breeding,
		ActivityLevel:   titleCaser.String(activity),
		ThreatLevel:     titleCaser.String(threat),
		PopulationPeak:  population,
		Recommendation:  Recommend(breeding, threat, activity),
		Confidence:      fmt.Sprintf("High - AI Model (%.2f%% confidence)", confidence*100),
		Success:         true,
		Status:          StatusOK,
	}, nil
}

func (s *Service) averageConfidence(vec []float64, models ...*ml.RandomForest) (float64, error) {
	sum := 0.0
	for _, m := range models {
		p, err := m.MaxProba(vec)
		if err != nil {
			return 0, fmt.Errorf("confidence: %w", err)
		}
		sum += p
	}
	return sum / float64(len(models)), nil
}

// BatchPredict applies Predict across requests, preserving input order.
// One bad element degrades to its own fallback without affecting the
// rest of the batch.
func (s *Service) BatchPredict(requests []Request) []BatchResult {
	results := make([]BatchResult, len(requests))
	for i, req := range requests {
		results[i] = BatchResult{
			Species:    req.Species,
			Month:      req.Month,
			Prediction: s.Predict(req),
		}
	}
	return results
}

// SupportedSpecies lists every species known to the species encoder, or
// an empty list when the bundle is unloaded.
func (s *Service) SupportedSpecies() []string {
	if !s.Loaded() {
		return []string{}
	}
	return s.bank.Species.Classes()
}

// fallback is the fixed result returned when prediction cannot proceed.
// Every field is pinned, including the migration tendency: the caller's
// input does not leak into a fallback object.
func (s *Service) fallback() Prediction {
	if s != nil && s.recorder != nil {
		s.recorder.FallbackInc()
	}
	return Prediction{
		PrimaryBehavior:   "normal_activity",
		BreedingSeason:    false,
		BreedingPeak:      false,
		ActivityLevel:     "Normal",
		ThreatLevel:       "Low",
		MigrationTendency: DefaultMigration,
		PopulationPeak:    false,
		Recommendation:    RecFallbackMonitoring,
		Confidence:        FallbackConfidence,
		Success:           false,
		Status:            StatusFallback,
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

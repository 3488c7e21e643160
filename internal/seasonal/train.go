package seasonal

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"

	"wildtrack/internal/dataset"
	"wildtrack/internal/ml"
)

// Train fits the encoder bank and all five classifiers from the
// observations and persists the whole bundle into dir. There is no
// failure recovery: any error aborts the run.
func Train(obs []dataset.Observation, dir string, cfg ml.ForestConfig) (*Manifest, error) {
	if len(obs) == 0 {
		return nil, fmt.Errorf("empty training dataset")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create model dir: %w", err)
	}

	bank := NewEncoderBank()
	if err := bank.Fit(obs); err != nil {
		return nil, err
	}

	// Encode the shared feature matrix. Every category comes straight
	// from the fit above, so Transform cannot fail here.
	X := make([][]float64, len(obs))
	yBreeding := make([]string, len(obs))
	yActivity := make([]string, len(obs))
	yThreat := make([]string, len(obs))
	yBehavior := make([]string, len(obs))
	yPopulation := make([]string, len(obs))

	for i, o := range obs {
		vec, degraded := bank.BuildFeatures(o.Species, o.Month, o.MigrationTendency, o.WeatherPreference)
		if degraded {
			return nil, fmt.Errorf("row %d: category missing from freshly fitted encoders", i)
		}
		X[i] = vec

		yBreeding[i] = strconv.FormatBool(o.BreedingSeason)
		yActivity[i] = o.ActivityLevel
		yThreat[i] = o.ThreatLevel
		yPopulation[i] = strconv.FormatBool(o.PopulationPeak)

		code, err := bank.Behavior.Transform(o.PrimaryBehavior)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		yBehavior[i] = strconv.Itoa(code)
	}

	targets := []struct {
		name string
		y    []string
		file string
	}{
		{"breeding", yBreeding, BreedingModelFile},
		{"activity", yActivity, ActivityModelFile},
		{"threat", yThreat, ThreatModelFile},
		{"behavior", yBehavior, BehaviorModelFile},
		{"population", yPopulation, PopulationModelFile},
	}

	accuracy := make(map[string]float64, len(targets))
	for _, target := range targets {
		forest := ml.NewRandomForest(cfg)
		if err := forest.Train(X, target.y, FeatureOrder); err != nil {
			return nil, fmt.Errorf("train %s model: %w", target.name, err)
		}
		accuracy[target.name] = forest.Accuracy(X, target.y)
		if err := forest.Save(filepath.Join(dir, target.file)); err != nil {
			return nil, fmt.Errorf("save %s model: %w", target.name, err)
		}
		log.Info().
			Str("model", target.name).
			Float64("train_accuracy", accuracy[target.name]).
			Msg("model trained")
	}

	if err := bank.Save(dir); err != nil {
		return nil, fmt.Errorf("save encoders: %w", err)
	}

	manifest := NewManifest(len(obs), accuracy)
	if err := manifest.Save(dir); err != nil {
		return nil, fmt.Errorf("save manifest: %w", err)
	}

	log.Info().
		Str("dir", dir).
		Int("samples", len(obs)).
		Str("version", manifest.Version).
		Msg("seasonal bundle saved")
	return manifest, nil
}

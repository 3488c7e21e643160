// Package seasonal implements the species seasonal-behavior predictor:
// four categorical encoders and five random-forest classifiers trained
// together, served behind a facade that degrades to a fixed fallback
// result instead of failing.
package seasonal

import (
	"errors"
	"fmt"
	"path/filepath"

	"wildtrack/internal/dataset"
	"wildtrack/internal/ml"
)

// Default values substituted for omitted request fields.
const (
	DefaultMigration = "territorial"
	DefaultWeather   = "moderate"
)

// Bundle file names inside the model directory.
const (
	BreedingModelFile   = "breeding_model.json"
	ActivityModelFile   = "activity_model.json"
	ThreatModelFile     = "threat_model.json"
	BehaviorModelFile   = "behavior_model.json"
	PopulationModelFile = "population_model.json"

	SpeciesEncoderFile   = "species_encoder.json"
	BehaviorEncoderFile  = "behavior_encoder.json"
	MigrationEncoderFile = "migration_encoder.json"
	WeatherEncoderFile   = "weather_encoder.json"
)

// FeatureOrder is the fixed input column order shared by all five
// models. Changing it invalidates every persisted bundle.
var FeatureOrder = []string{"species_encoded", "month", "migration_encoded", "weather_encoded"}

// EncoderBank holds the categorical encoders fitted at training time.
// It is immutable once fitted; the predict path only transforms.
type EncoderBank struct {
	Species   *ml.LabelEncoder
	Behavior  *ml.LabelEncoder
	Migration *ml.LabelEncoder
	Weather   *ml.LabelEncoder
}

// NewEncoderBank creates an unfitted bank.
func NewEncoderBank() *EncoderBank {
	return &EncoderBank{
		Species:   ml.NewLabelEncoder(),
		Behavior:  ml.NewLabelEncoder(),
		Migration: ml.NewLabelEncoder(),
		Weather:   ml.NewLabelEncoder(),
	}
}

// Fit fits every encoder from the training observations.
func (b *EncoderBank) Fit(obs []dataset.Observation) error {
	species := make([]string, len(obs))
	behaviors := make([]string, len(obs))
	migrations := make([]string, len(obs))
	weathers := make([]string, len(obs))
	for i, o := range obs {
		species[i] = o.Species
		behaviors[i] = o.PrimaryBehavior
		migrations[i] = o.MigrationTendency
		weathers[i] = o.WeatherPreference
	}

	if err := b.Species.Fit(species); err != nil {
		return fmt.Errorf("fit species encoder: %w", err)
	}
	if err := b.Behavior.Fit(behaviors); err != nil {
		return fmt.Errorf("fit behavior encoder: %w", err)
	}
	if err := b.Migration.Fit(migrations); err != nil {
		return fmt.Errorf("fit migration encoder: %w", err)
	}
	if err := b.Weather.Fit(weathers); err != nil {
		return fmt.Errorf("fit weather encoder: %w", err)
	}
	return nil
}

// BuildFeatures maps one request tuple into the fixed-order feature
// vector. A category the encoders never saw is replaced by the sentinel
// code 0 rather than reported as an error; degraded reports whether any
// substitution happened.
func (b *EncoderBank) BuildFeatures(species string, month int, migration, weather string) (vec []float64, degraded bool) {
	if migration == "" {
		migration = DefaultMigration
	}
	if weather == "" {
		weather = DefaultWeather
	}

	speciesCode, err := b.Species.Transform(species)
	if errors.Is(err, ml.ErrUnknownCategory) {
		speciesCode, degraded = 0, true
	}
	migrationCode, err := b.Migration.Transform(migration)
	if errors.Is(err, ml.ErrUnknownCategory) {
		migrationCode, degraded = 0, true
	}
	weatherCode, err := b.Weather.Transform(weather)
	if errors.Is(err, ml.ErrUnknownCategory) {
		weatherCode, degraded = 0, true
	}

	return []float64{float64(speciesCode), float64(month), float64(migrationCode), float64(weatherCode)}, degraded
}

// Save writes one JSON file per encoder into dir.
func (b *EncoderBank) Save(dir string) error {
	for _, e := range []struct {
		enc  *ml.LabelEncoder
		file string
	}{
		{b.Species, SpeciesEncoderFile},
		{b.Behavior, BehaviorEncoderFile},
		{b.Migration, MigrationEncoderFile},
		{b.Weather, WeatherEncoderFile},
	} {
		if err := e.enc.Save(filepath.Join(dir, e.file)); err != nil {
			return err
		}
	}
	return nil
}

// Load reads every encoder from dir.
func (b *EncoderBank) Load(dir string) error {
	for _, e := range []struct {
		enc  *ml.LabelEncoder
		file string
	}{
		{b.Species, SpeciesEncoderFile},
		{b.Behavior, BehaviorEncoderFile},
		{b.Migration, MigrationEncoderFile},
		{b.Weather, WeatherEncoderFile},
	} {
		if err := e.enc.Load(filepath.Join(dir, e.file)); err != nil {
			return err
		}
	}
	return nil
}

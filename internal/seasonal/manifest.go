package seasonal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ManifestFile is the bundle manifest name inside the model directory.
const ManifestFile = "manifest.json"

// Manifest stamps a persisted model bundle with its version, the feature
// order it was trained with, and per-model training metrics. Loaders
// reject a bundle whose feature order does not match the compiled-in
// order, so a stale encoder/model mix cannot silently produce wrong
// predictions.
type Manifest struct {
	Version         string             `json:"version"`
	CreatedAt       time.Time          `json:"created_at"`
	FeatureOrder    []string           `json:"feature_order"`
	TrainingSamples int                `json:"training_samples"`
	Accuracy        map[string]float64 `json:"accuracy"`
	Files           []string           `json:"files"`
}

// NewManifest creates a manifest stamped with the current time.
func NewManifest(trainingSamples int, accuracy map[string]float64) *Manifest {
	return &Manifest{
		Version:         time.Now().UTC().Format("20060102-150405"),
		CreatedAt:       time.Now().UTC(),
		FeatureOrder:    FeatureOrder,
		TrainingSamples: trainingSamples,
		Accuracy:        accuracy,
		Files: []string{
			BreedingModelFile, ActivityModelFile, ThreatModelFile,
			BehaviorModelFile, PopulationModelFile,
			SpeciesEncoderFile, BehaviorEncoderFile,
			MigrationEncoderFile, WeatherEncoderFile,
		},
	}
}

// Save writes the manifest into dir.
func (m *Manifest) Save(dir string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, ManifestFile), data, 0o644)
}

// LoadManifest reads and checks the manifest in dir.
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	if err := m.CheckFeatureOrder(); err != nil {
		return nil, err
	}
	return &m, nil
}

// CheckFeatureOrder rejects a bundle trained with a different feature
// layout than this binary expects.
func (m *Manifest) CheckFeatureOrder() error {
	if len(m.FeatureOrder) != len(FeatureOrder) {
		return fmt.Errorf("manifest feature order has %d entries, expected %d", len(m.FeatureOrder), len(FeatureOrder))
	}
	for i, name := range FeatureOrder {
		if m.FeatureOrder[i] != name {
			return fmt.Errorf("manifest feature %d is %q, expected %q", i, m.FeatureOrder[i], name)
		}
	}
	return nil
}

// Package parks implements the visitor-interest park recommender: one
// multi-class random forest over a fixed 16-feature binary vector,
// served as a ranked top-3 suggestion list.
package parks

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"wildtrack/internal/dataset"
	"wildtrack/internal/ml"
)

// TopN is the number of suggestions returned per request.
const TopN = 3

// Suggestion is one ranked park with its probability score.
type Suggestion struct {
	Park  string  `json:"park"`
	Score float64 `json:"score"`
}

// Recommender serves park suggestions from a persisted model.
type Recommender struct {
	model  *ml.RandomForest
	loaded bool
}

// New loads the model at modelPath. Loading failure leaves the
// recommender unloaded; Recommend then returns an error.
func New(modelPath string) *Recommender {
	r := &Recommender{model: &ml.RandomForest{}}
	if err := r.model.Load(modelPath); err != nil {
		log.Warn().Err(err).Str("model_path", modelPath).Msg("park model not loaded")
		return r
	}
	r.loaded = true
	log.Info().Str("model_path", modelPath).Msg("park model loaded")
	return r
}

// Loaded reports whether the model loaded at construction.
func (r *Recommender) Loaded() bool {
	return r != nil && r.loaded
}

// Coerce converts a decoded JSON feature object into a numeric feature
// map. Interest flags arrive as either numbers or booleans; true maps
// to 1 and false to 0. Values of any other type are treated as absent.
func Coerce(raw map[string]any) map[string]float64 {
	features := make(map[string]float64, len(raw))
	for name, v := range raw {
		switch val := v.(type) {
		case float64:
			features[name] = val
		case bool:
			if val {
				features[name] = 1
			}
		}
	}
	return features
}

// Vector builds the fixed-order feature vector from a feature map.
// Missing features default to 0; extra keys are ignored.
func Vector(features map[string]float64) []float64 {
	vec := make([]float64, len(dataset.ParkFeatureOrder))
	for i, name := range dataset.ParkFeatureOrder {
		vec[i] = features[name]
	}
	return vec
}

// Recommend ranks all candidate parks by probability for the given
// feature map and returns the top 3 in descending score order. Ties
// break alphabetically so results are stable.
func (r *Recommender) Recommend(features map[string]float64) ([]Suggestion, error) {
	if !r.Loaded() {
		return nil, fmt.Errorf("park model not loaded")
	}

	proba, err := r.model.PredictProba(Vector(features))
	if err != nil {
		return nil, fmt.Errorf("park prediction failed: %w", err)
	}

	ranked := make([]Suggestion, 0, len(proba))
	for park, score := range proba {
		ranked = append(ranked, Suggestion{Park: park, Score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Park < ranked[j].Park
	})

	if len(ranked) > TopN {
		ranked = ranked[:TopN]
	}
	return ranked, nil
}

// Train fits the recommender forest from the training rows and saves it
// to modelPath. Any data error is fatal to the run.
func Train(rows []dataset.ParkRow, modelPath string, cfg ml.ForestConfig) error {
	if len(rows) == 0 {
		return fmt.Errorf("empty training dataset")
	}

	X := make([][]float64, len(rows))
	y := make([]string, len(rows))
	for i, row := range rows {
		X[i] = row.Features
		y[i] = row.ParkName
	}

	forest := ml.NewRandomForest(cfg)
	if err := forest.Train(X, y, dataset.ParkFeatureOrder); err != nil {
		return fmt.Errorf("train park model: %w", err)
	}

	log.Info().
		Int("samples", len(rows)).
		Int("parks", len(forest.Classes)).
		Float64("train_accuracy", forest.Accuracy(X, y)).
		Msg("park model trained")

	if err := forest.Save(modelPath); err != nil {
		return fmt.Errorf("save park model: %w", err)
	}
	return nil
}

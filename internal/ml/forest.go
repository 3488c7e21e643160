package ml

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"sync"
)

// RandomForest is a bagged ensemble of decision trees. Each tree is
// trained on a bootstrap sample over a random feature subset.
//
// Training is reproducible: a per-tree seed is derived from Seed before
// any worker starts, so the same data and seed always produce the same
// forest regardless of goroutine scheduling.
type RandomForest struct {
	Trees           []*DecisionTree `json:"trees"`
	TreeFeatures    [][]int         `json:"tree_features"`
	NumTrees        int             `json:"num_trees"`
	MaxDepth        int             `json:"max_depth"`
	MinSamplesSplit int             `json:"min_samples_split"`
	MinSamplesLeaf  int             `json:"min_samples_leaf"`
	MaxFeatures     int             `json:"max_features"`
	NumFeatures     int             `json:"num_features"`
	Classes         []string        `json:"classes"`
	FeatureNames    []string        `json:"feature_names"`
	Seed            int64           `json:"seed"`
}

// ForestConfig carries forest hyperparameters. Zero values select the
// defaults (100 trees, depth 10, deterministic seed 42).
type ForestConfig struct {
	NumTrees        int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	Seed            int64
}

// DefaultSeed matches the fixed seed used by the offline training runs.
const DefaultSeed = 42

// NewRandomForest creates an untrained forest.
func NewRandomForest(cfg ForestConfig) *RandomForest {
	if cfg.NumTrees <= 0 {
		cfg.NumTrees = 100
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 10
	}
	if cfg.MinSamplesSplit <= 0 {
		cfg.MinSamplesSplit = 2
	}
	if cfg.MinSamplesLeaf <= 0 {
		cfg.MinSamplesLeaf = 1
	}
	if cfg.Seed == 0 {
		cfg.Seed = DefaultSeed
	}
	return &RandomForest{
		NumTrees:        cfg.NumTrees,
		MaxDepth:        cfg.MaxDepth,
		MinSamplesSplit: cfg.MinSamplesSplit,
		MinSamplesLeaf:  cfg.MinSamplesLeaf,
		Seed:            cfg.Seed,
	}
}

// Train builds the forest from a feature matrix and one label per row.
func (rf *RandomForest) Train(X [][]float64, y []string, featureNames []string) error {
	if len(X) == 0 {
		return fmt.Errorf("empty training data")
	}
	if len(X) != len(y) {
		return fmt.Errorf("X and y must have same number of samples")
	}
	if len(featureNames) != len(X[0]) {
		return fmt.Errorf("feature names must match number of features")
	}

	rf.FeatureNames = featureNames
	rf.NumFeatures = len(X[0])
	rf.Classes = uniqueStrings(y)

	rf.MaxFeatures = int(math.Sqrt(float64(rf.NumFeatures)))
	if rf.MaxFeatures < 1 {
		rf.MaxFeatures = 1
	}

	// Derive all per-tree seeds up front from the base seed. Workers then
	// share nothing, which keeps parallel training deterministic.
	seedSrc := rand.New(rand.NewSource(rf.Seed))
	treeSeeds := make([]int64, rf.NumTrees)
	for i := range treeSeeds {
		treeSeeds[i] = seedSrc.Int63()
	}

	rf.Trees = make([]*DecisionTree, rf.NumTrees)
	rf.TreeFeatures = make([][]int, rf.NumTrees)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i := 0; i < rf.NumTrees; i++ {
		wg.Add(1)
		go func(treeIdx int) {
			defer wg.Done()

			rng := rand.New(rand.NewSource(treeSeeds[treeIdx]))
			bootX, bootY := bootstrapSample(rng, X, y)
			selected := rf.selectFeatures(rng)
			subX := projectFeatures(bootX, selected)

			tree := NewDecisionTree(rf.MaxDepth, rf.MinSamplesSplit, rf.MinSamplesLeaf)
			if err := tree.Train(subX, bootY); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("tree %d training failed: %w", treeIdx, err)
				}
				mu.Unlock()
				return
			}

			rf.Trees[treeIdx] = tree
			rf.TreeFeatures[treeIdx] = selected
		}(i)
	}
	wg.Wait()

	return firstErr
}

// Predict returns the majority-vote class for a single sample.
func (rf *RandomForest) Predict(x []float64) (string, error) {
	proba, err := rf.PredictProba(x)
	if err != nil {
		return "", err
	}

	best := ""
	bestP := -1.0
	for class, p := range proba {
		if p > bestP || (p == bestP && class < best) {
			best = class
			bestP = p
		}
	}
	return best, nil
}

// PredictProba returns the vote fraction per class over the whole fitted
// class universe; classes with no votes carry probability zero.
func (rf *RandomForest) PredictProba(x []float64) (map[string]float64, error) {
	if len(rf.Trees) == 0 {
		return nil, fmt.Errorf("model not trained")
	}
	if len(x) != rf.NumFeatures {
		return nil, fmt.Errorf("expected %d features, got %d", rf.NumFeatures, len(x))
	}

	votes := make(map[string]int)
	validTrees := 0
	for i, tree := range rf.Trees {
		if tree == nil {
			continue
		}
		treeX := make([]float64, len(rf.TreeFeatures[i]))
		for j, fIdx := range rf.TreeFeatures[i] {
			treeX[j] = x[fIdx]
		}
		predicted, err := tree.Predict(treeX)
		if err != nil {
			continue
		}
		votes[predicted]++
		validTrees++
	}

	if validTrees == 0 {
		return nil, fmt.Errorf("no valid predictions from trees")
	}

	proba := make(map[string]float64, len(rf.Classes))
	for _, class := range rf.Classes {
		proba[class] = 0.0
	}
	for class, count := range votes {
		proba[class] = float64(count) / float64(validTrees)
	}
	return proba, nil
}

// MaxProba returns the highest class probability for a sample.
func (rf *RandomForest) MaxProba(x []float64) (float64, error) {
	proba, err := rf.PredictProba(x)
	if err != nil {
		return 0.0, err
	}
	best := 0.0
	for _, p := range proba {
		if p > best {
			best = p
		}
	}
	return best, nil
}

// Accuracy returns the fraction of rows the forest classifies correctly.
func (rf *RandomForest) Accuracy(X [][]float64, y []string) float64 {
	correct := 0
	total := 0
	for i := range X {
		predicted, err := rf.Predict(X[i])
		if err != nil {
			continue
		}
		if predicted == y[i] {
			correct++
		}
		total++
	}
	if total == 0 {
		return 0.0
	}
	return float64(correct) / float64(total)
}

// Validate checks the forest is loadable and ready for predictions.
func (rf *RandomForest) Validate() error {
	if len(rf.Trees) == 0 {
		return fmt.Errorf("model has no trees")
	}
	if len(rf.Classes) == 0 {
		return fmt.Errorf("model has no classes")
	}
	if rf.NumFeatures != len(rf.FeatureNames) {
		return fmt.Errorf("num_features mismatch")
	}
	validTrees := 0
	for _, tree := range rf.Trees {
		if tree != nil && tree.Root != nil {
			validTrees++
		}
	}
	if validTrees == 0 {
		return fmt.Errorf("no valid trees in forest")
	}
	return nil
}

// Save writes the forest to a JSON file.
func (rf *RandomForest) Save(path string) error {
	data, err := json.Marshal(rf)
	if err != nil {
		return fmt.Errorf("failed to marshal model: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}
	return nil
}

// Load reads a forest from a JSON file and validates it.
func (rf *RandomForest) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read model file: %w", err)
	}
	if err := json.Unmarshal(data, rf); err != nil {
		return fmt.Errorf("failed to unmarshal model: %w", err)
	}
	return rf.Validate()
}

func bootstrapSample(rng *rand.Rand, X [][]float64, y []string) ([][]float64, []string) {
	n := len(X)
	bootX := make([][]float64, n)
	bootY := make([]string, n)
	for i := 0; i < n; i++ {
		idx := rng.Intn(n)
		bootX[i] = X[idx]
		bootY[i] = y[idx]
	}
	return bootX, bootY
}

func (rf *RandomForest) selectFeatures(rng *rand.Rand) []int {
	features := make([]int, rf.NumFeatures)
	for i := range features {
		features[i] = i
	}
	rng.Shuffle(len(features), func(i, j int) {
		features[i], features[j] = features[j], features[i]
	})
	selected := features[:rf.MaxFeatures]
	// Keep index order stable inside the subset.
	sort.Ints(selected)
	return selected
}

func projectFeatures(X [][]float64, features []int) [][]float64 {
	subX := make([][]float64, len(X))
	for i := range X {
		subX[i] = make([]float64, len(features))
		for j, fIdx := range features {
			subX[i][j] = X[i][fIdx]
		}
	}
	return subX
}

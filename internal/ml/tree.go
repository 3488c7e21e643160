package ml

import (
	"fmt"
	"sort"
)

// TreeNode is a node in a classification decision tree.
type TreeNode struct {
	IsLeaf       bool           `json:"is_leaf"`
	Class        string         `json:"class,omitempty"`
	ClassCounts  map[string]int `json:"class_counts,omitempty"`
	FeatureIndex int            `json:"feature_index,omitempty"`
	Threshold    float64        `json:"threshold,omitempty"`
	Left         *TreeNode      `json:"left,omitempty"`
	Right        *TreeNode      `json:"right,omitempty"`
	SamplesCount int            `json:"samples_count"`
}

// DecisionTree is a lightweight CART-style classification tree: binary
// splits on numeric features chosen by Gini impurity reduction.
type DecisionTree struct {
	Root            *TreeNode `json:"root"`
	MaxDepth        int       `json:"max_depth"`
	MinSamplesSplit int       `json:"min_samples_split"`
	MinSamplesLeaf  int       `json:"min_samples_leaf"`
	NumFeatures     int       `json:"num_features"`
	Classes         []string  `json:"classes"`
}

// NewDecisionTree creates a tree with the given hyperparameters.
// Non-positive values fall back to the defaults.
func NewDecisionTree(maxDepth, minSamplesSplit, minSamplesLeaf int) *DecisionTree {
	if maxDepth <= 0 {
		maxDepth = 10
	}
	if minSamplesSplit <= 0 {
		minSamplesSplit = 2
	}
	if minSamplesLeaf <= 0 {
		minSamplesLeaf = 1
	}
	return &DecisionTree{
		MaxDepth:        maxDepth,
		MinSamplesSplit: minSamplesSplit,
		MinSamplesLeaf:  minSamplesLeaf,
	}
}

// Train builds the tree from a feature matrix and one label per row.
func (dt *DecisionTree) Train(X [][]float64, y []string) error {
	if len(X) == 0 {
		return fmt.Errorf("empty training data")
	}
	if len(X) != len(y) {
		return fmt.Errorf("X and y must have same number of samples")
	}

	dt.NumFeatures = len(X[0])
	dt.Classes = uniqueStrings(y)

	indices := make([]int, len(X))
	for i := range indices {
		indices[i] = i
	}
	dt.Root = dt.buildTree(X, y, indices, 0)
	return nil
}

func (dt *DecisionTree) buildTree(X [][]float64, y []string, indices []int, depth int) *TreeNode {
	node := &TreeNode{SamplesCount: len(indices)}

	counts := make(map[string]int)
	for _, idx := range indices {
		counts[y[idx]]++
	}
	node.ClassCounts = counts
	node.Class, _ = majorityClass(counts)

	if depth >= dt.MaxDepth || len(indices) < dt.MinSamplesSplit || len(counts) == 1 {
		node.IsLeaf = true
		return node
	}

	bestFeature, bestThreshold, bestGain := dt.findBestSplit(X, y, indices)
	if bestGain <= 0 {
		node.IsLeaf = true
		return node
	}

	leftIndices, rightIndices := splitIndices(X, indices, bestFeature, bestThreshold)
	if len(leftIndices) < dt.MinSamplesLeaf || len(rightIndices) < dt.MinSamplesLeaf {
		node.IsLeaf = true
		return node
	}

	node.FeatureIndex = bestFeature
	node.Threshold = bestThreshold
	node.Left = dt.buildTree(X, y, leftIndices, depth+1)
	node.Right = dt.buildTree(X, y, rightIndices, depth+1)
	return node
}

func (dt *DecisionTree) findBestSplit(X [][]float64, y []string, indices []int) (int, float64, float64) {
	bestGain := 0.0
	bestFeature := -1
	bestThreshold := 0.0

	labels := make([]string, len(indices))
	for i, idx := range indices {
		labels[i] = y[idx]
	}
	parentGini := giniImpurity(labels)

	for feature := 0; feature < dt.NumFeatures; feature++ {
		values := make([]float64, len(indices))
		for i, idx := range indices {
			values[i] = X[idx][feature]
		}

		for _, threshold := range candidateThresholds(values) {
			leftIndices, rightIndices := splitIndices(X, indices, feature, threshold)
			if len(leftIndices) == 0 || len(rightIndices) == 0 {
				continue
			}

			leftLabels := make([]string, len(leftIndices))
			for i, idx := range leftIndices {
				leftLabels[i] = y[idx]
			}
			rightLabels := make([]string, len(rightIndices))
			for i, idx := range rightIndices {
				rightLabels[i] = y[idx]
			}

			n := float64(len(indices))
			weighted := (float64(len(leftIndices))/n)*giniImpurity(leftLabels) +
				(float64(len(rightIndices))/n)*giniImpurity(rightLabels)

			if gain := parentGini - weighted; gain > bestGain {
				bestGain = gain
				bestFeature = feature
				bestThreshold = threshold
			}
		}
	}

	return bestFeature, bestThreshold, bestGain
}

// Predict returns the majority class of the leaf reached by x.
func (dt *DecisionTree) Predict(x []float64) (string, error) {
	if dt.Root == nil {
		return "", fmt.Errorf("model not trained")
	}
	if len(x) != dt.NumFeatures {
		return "", fmt.Errorf("expected %d features, got %d", dt.NumFeatures, len(x))
	}
	return dt.traverseToLeaf(dt.Root, x).Class, nil
}

// PredictProba returns the class distribution of the leaf reached by x.
func (dt *DecisionTree) PredictProba(x []float64) (map[string]float64, error) {
	if dt.Root == nil {
		return nil, fmt.Errorf("model not trained")
	}
	if len(x) != dt.NumFeatures {
		return nil, fmt.Errorf("expected %d features, got %d", dt.NumFeatures, len(x))
	}

	leaf := dt.traverseToLeaf(dt.Root, x)
	total := 0
	for _, count := range leaf.ClassCounts {
		total += count
	}

	proba := make(map[string]float64, len(leaf.ClassCounts))
	for class, count := range leaf.ClassCounts {
		proba[class] = float64(count) / float64(total)
	}
	return proba, nil
}

func (dt *DecisionTree) traverseToLeaf(node *TreeNode, x []float64) *TreeNode {
	if node.IsLeaf {
		return node
	}
	if x[node.FeatureIndex] <= node.Threshold {
		return dt.traverseToLeaf(node.Left, x)
	}
	return dt.traverseToLeaf(node.Right, x)
}

// Helpers shared with the forest.

func giniImpurity(labels []string) float64 {
	if len(labels) == 0 {
		return 0.0
	}
	counts := make(map[string]int)
	for _, l := range labels {
		counts[l]++
	}
	n := float64(len(labels))
	gini := 1.0
	for _, count := range counts {
		p := float64(count) / n
		gini -= p * p
	}
	return gini
}

func splitIndices(X [][]float64, indices []int, feature int, threshold float64) ([]int, []int) {
	var left, right []int
	for _, idx := range indices {
		if X[idx][feature] <= threshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}
	return left, right
}

func majorityClass(counts map[string]int) (string, int) {
	// Ties break toward the lexicographically smallest class so results
	// do not depend on map iteration order.
	maxClass := ""
	maxCount := 0
	for class, count := range counts {
		if count > maxCount || (count == maxCount && class < maxClass) {
			maxClass = class
			maxCount = count
		}
	}
	return maxClass, maxCount
}

func uniqueStrings(strs []string) []string {
	seen := make(map[string]bool)
	unique := []string{}
	for _, s := range strs {
		if !seen[s] {
			seen[s] = true
			unique = append(unique, s)
		}
	}
	sort.Strings(unique)
	return unique
}

func candidateThresholds(values []float64) []float64 {
	uniqueVals := make([]float64, 0, len(values))
	seen := make(map[float64]bool)
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			uniqueVals = append(uniqueVals, v)
		}
	}
	if len(uniqueVals) < 2 {
		return nil
	}
	sort.Float64s(uniqueVals)

	thresholds := make([]float64, len(uniqueVals)-1)
	for i := 0; i < len(uniqueVals)-1; i++ {
		thresholds[i] = (uniqueVals[i] + uniqueVals[i+1]) / 2.0
	}
	return thresholds
}

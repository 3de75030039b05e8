// Package mlmodel loads the trained model artifacts exported at training time
// and evaluates them at inference time. Artifacts are plain JSON files so the
// service has no runtime dependency on the training toolchain.
//
// A Bundle is loaded once at startup and treated as immutable shared state;
// every pipeline component receives it through its constructor.
package mlmodel

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	VectorizerFile = "vectorizer.json"
	ClassifierFile = "type_classifier.json"
	AnomalyFile    = "anomaly_iforest.json"
)

// Vectorizer is a TF-IDF vectorizer: vocabulary, inverse document frequencies
// and the n-gram range it was fitted with.
type Vectorizer struct {
	Vocabulary map[string]int `json:"vocabulary"`
	IDF        []float64      `json:"idf"`
	NgramMin   int            `json:"ngram_min"`
	NgramMax   int            `json:"ngram_max"`
}

// Classifier is a linear (logistic regression) text classifier. Coef is one
// row per class except in the binary case, where a single row scores Classes[1].
type Classifier struct {
	Classes    []string    `json:"classes"`
	Coef       [][]float64 `json:"coef"`
	Intercepts []float64   `json:"intercept"`
}

// AnomalyNode is one node of a flattened isolation tree. Left/Right of -1
// marks a leaf.
type AnomalyNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	NSamples  int     `json:"n_samples"`
}

// AnomalyTree is a single isolation tree, nodes indexed from the root at 0.
type AnomalyTree struct {
	Nodes []AnomalyNode `json:"nodes"`
}

// AnomalyForest is a trained isolation forest over exactly two features:
// total amount and line count, in that order.
type AnomalyForest struct {
	Trees      []AnomalyTree `json:"trees"`
	MaxSamples int           `json:"max_samples"`
	Offset     float64       `json:"offset"`
	NFeatures  int           `json:"n_features"`
}

// Bundle is the immutable handle over all loaded artifacts. Vectorizer and
// Classifier may be nil (the classifier and explainer fall back to
// deterministic heuristics); Forest is always present — its absence is a
// startup failure, not a per-request condition.
type Bundle struct {
	Vectorizer *Vectorizer
	Classifier *Classifier
	Forest     *AnomalyForest
}

// HasTextModel reports whether the primary classification path is available.
func (b *Bundle) HasTextModel() bool {
	return b != nil && b.Vectorizer != nil && b.Classifier != nil
}

// shapeConsistent reports whether the coefficient matrix matches the class
// list: one row per class, or the single-row binary form. A matrix of any
// other shape cannot be scored and the artifact is treated as corrupt.
func (c *Classifier) shapeConsistent() bool {
	if len(c.Classes) == 0 || len(c.Coef) == 0 {
		return false
	}
	if len(c.Coef) == len(c.Classes) {
		return true
	}
	return len(c.Classes) == 2 && len(c.Coef) == 1
}

// Load reads all artifacts from dir. A missing or corrupt text model degrades
// to nil (fallback mode); a missing or corrupt anomaly forest is an error.
func Load(dir string) (*Bundle, error) {
	b := &Bundle{}

	var vec Vectorizer
	if err := readJSON(filepath.Join(dir, VectorizerFile), &vec); err == nil && len(vec.Vocabulary) > 0 {
		if vec.NgramMin == 0 {
			vec.NgramMin = 1
		}
		if vec.NgramMax == 0 {
			vec.NgramMax = 1
		}
		b.Vectorizer = &vec
	}

	var cls Classifier
	if err := readJSON(filepath.Join(dir, ClassifierFile), &cls); err == nil && cls.shapeConsistent() {
		b.Classifier = &cls
	}

	// Keep the pair consistent: a classifier without its vectorizer (or the
	// reverse) cannot be evaluated.
	if b.Vectorizer == nil || b.Classifier == nil {
		b.Vectorizer, b.Classifier = nil, nil
	}

	var forest AnomalyForest
	if err := readJSON(filepath.Join(dir, AnomalyFile), &forest); err != nil {
		return nil, fmt.Errorf("anomaly model required but unavailable: %w", err)
	}
	if len(forest.Trees) == 0 || forest.MaxSamples <= 0 {
		return nil, fmt.Errorf("anomaly model %s is empty or malformed", AnomalyFile)
	}
	b.Forest = &forest

	return b, nil
}

func readJSON(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

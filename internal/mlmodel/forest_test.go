package mlmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAveragePathLength(t *testing.T) {
	assert.Zero(t, averagePathLength(0))
	assert.Zero(t, averagePathLength(1))
	assert.Equal(t, 1.0, averagePathLength(2))
	// c(n) grows with the sample count.
	assert.Greater(t, averagePathLength(256), averagePathLength(16))
}

func TestDecisionFunctionSeparatesOutliers(t *testing.T) {
	forest := testForest()

	// Points isolated at a shallow leaf with one training sample score as
	// outliers: lower decision value than the populated side of the split.
	normal := forest.DecisionFunction([]float64{500, 2})
	outlier := forest.DecisionFunction([]float64{5e9, 2})

	assert.Greater(t, normal, outlier)
	assert.Less(t, outlier, 0.0)
}

func TestDecisionFunctionDeterministic(t *testing.T) {
	forest := testForest()
	x := []float64{1234.56, 3}
	first := forest.DecisionFunction(x)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, forest.DecisionFunction(x))
	}
}

func TestDecisionFunctionDeepIsolation(t *testing.T) {
	// Chain of three splits: a point following the long branch is hard to
	// isolate and scores as clearly normal.
	forest := &AnomalyForest{
		Trees: []AnomalyTree{{
			Nodes: []AnomalyNode{
				{Feature: 0, Threshold: 1e6, Left: 1, Right: 5, NSamples: 64},
				{Feature: 1, Threshold: 1000, Left: 2, Right: 6, NSamples: 32},
				{Feature: 0, Threshold: 1e5, Left: 3, Right: 4, NSamples: 16},
				{Feature: -1, Threshold: 0, Left: -1, Right: -1, NSamples: 8},
				{Feature: -1, Threshold: 0, Left: -1, Right: -1, NSamples: 8},
				{Feature: -1, Threshold: 0, Left: -1, Right: -1, NSamples: 1},
				{Feature: -1, Threshold: 0, Left: -1, Right: -1, NSamples: 1},
			},
		}},
		MaxSamples: 2,
		Offset:     -0.5,
		NFeatures:  2,
	}

	deep := forest.DecisionFunction([]float64{100, 2})
	shallow := forest.DecisionFunction([]float64{5e9, 2})
	assert.Greater(t, deep, 0.3)
	assert.Less(t, shallow, deep)
}

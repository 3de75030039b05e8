package mlmodel

import "math"

// eulerGamma is the Euler-Mascheroni constant used in the average path
// length of an unsuccessful binary search tree lookup.
const eulerGamma = 0.5772156649

// averagePathLength is c(n): the expected path length of an unsuccessful
// search in a binary search tree built over n samples.
func averagePathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	if n == 2 {
		return 1
	}
	fn := float64(n)
	return 2.0*(math.Log(fn-1)+eulerGamma) - 2.0*(fn-1)/fn
}

// pathLength walks one isolation tree and returns the isolation depth of x,
// including the c(n) correction at the reached leaf.
func (t *AnomalyTree) pathLength(x []float64) float64 {
	depth := 0.0
	idx := 0
	for idx >= 0 && idx < len(t.Nodes) {
		node := t.Nodes[idx]
		if node.Left < 0 || node.Right < 0 {
			return depth + averagePathLength(node.NSamples)
		}
		f := node.Feature
		if f < 0 || f >= len(x) {
			return depth + averagePathLength(node.NSamples)
		}
		if x[f] <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
		depth++
	}
	return depth
}

// DecisionFunction returns the normality score of a feature vector: higher
// means more normal, negative means outlier. It mirrors the training
// library's definition: -anomalyScore(x) - offset, where
// anomalyScore(x) = 2^(-E[pathLength] / c(maxSamples)).
func (f *AnomalyForest) DecisionFunction(x []float64) float64 {
	var sum float64
	for i := range f.Trees {
		sum += f.Trees[i].pathLength(x)
	}
	mean := sum / float64(len(f.Trees))

	c := averagePathLength(f.MaxSamples)
	if c <= 0 {
		c = 1
	}
	anomalyScore := math.Pow(2, -mean/c)
	return -anomalyScore - f.Offset
}

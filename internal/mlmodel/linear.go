package mlmodel

import "math"

// DecisionScores computes the raw linear scores w.x + b for a document vector.
// In the binary single-row case the returned slice has one entry: the score of
// Classes[1].
func (c *Classifier) DecisionScores(doc DocVector) []float64 {
	scores := make([]float64, len(c.Coef))
	for row := range c.Coef {
		s := 0.0
		if row < len(c.Intercepts) {
			s = c.Intercepts[row]
		}
		coefs := c.Coef[row]
		for idx, val := range doc {
			if idx >= 0 && idx < len(coefs) {
				s += coefs[idx] * val
			}
		}
		scores[row] = s
	}
	return scores
}

// Probabilities converts decision scores to a probability distribution over
// Classes: softmax in the multinomial case, the sigmoid pair in the binary
// single-row case.
func (c *Classifier) Probabilities(doc DocVector) []float64 {
	scores := c.DecisionScores(doc)

	if len(c.Classes) == 2 && len(scores) == 1 {
		p1 := 1.0 / (1.0 + math.Exp(-scores[0]))
		return []float64{1.0 - p1, p1}
	}

	// Softmax with max-shift for numeric stability.
	maxScore := scores[0]
	for _, s := range scores[1:] {
		if s > maxScore {
			maxScore = s
		}
	}
	probs := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		probs[i] = math.Exp(s - maxScore)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// PredictedClass returns the argmax class index for a document. For the
// binary single-row case the sign of the score picks the class.
func (c *Classifier) PredictedClass(doc DocVector) int {
	scores := c.DecisionScores(doc)
	if len(c.Classes) == 2 && len(scores) == 1 {
		if scores[0] > 0 {
			return 1
		}
		return 0
	}
	best := 0
	for i, s := range scores {
		if s > scores[best] {
			best = i
		}
	}
	return best
}

// ClassCoefficients returns the coefficient row used to score classIdx. The
// binary classifier stores one row; scoring class 0 negates it.
func (c *Classifier) ClassCoefficients(classIdx int) []float64 {
	if len(c.Classes) == 2 && len(c.Coef) == 1 {
		if classIdx == 1 {
			return c.Coef[0]
		}
		neg := make([]float64, len(c.Coef[0]))
		for i, w := range c.Coef[0] {
			neg[i] = -w
		}
		return neg
	}
	if classIdx < 0 || classIdx >= len(c.Coef) {
		return nil
	}
	return c.Coef[classIdx]
}

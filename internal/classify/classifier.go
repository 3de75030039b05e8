// Package classify maps canonical invoice text to a document-type label.
// The primary path evaluates the trained linear text model; when the model
// artifacts are unavailable a deterministic keyword heuristic takes over.
package classify

import (
	"strings"

	"github.com/facturaIA/invoice-inference-service/internal/mlmodel"
	"github.com/facturaIA/invoice-inference-service/internal/models"
)

// Fallback labels and confidences.
const (
	LabelProduct = "product-based"
	LabelService = "service-based"
	LabelOther   = "other"

	keywordConfidence = 0.7
	otherConfidence   = 0.5
)

var productKeywords = []string{"monitor", "keyboard", "product", "item", "pcs"}
var serviceKeywords = []string{"hours", "service", "consult", "maintenance", "support", "subscription"}

// Classifier decides the document type of an invoice.
type Classifier struct {
	bundle *mlmodel.Bundle
}

// NewClassifier creates a type classifier over a loaded model bundle. The
// bundle may lack the text model; classification then runs in fallback mode.
func NewClassifier(bundle *mlmodel.Bundle) *Classifier {
	return &Classifier{bundle: bundle}
}

// Predict returns the document-type label, its confidence and the full score
// distribution. The result's Source field records which path produced it.
func (c *Classifier) Predict(fullText string) models.ClassificationResult {
	if c.bundle.HasTextModel() {
		return c.predictModel(fullText)
	}
	return predictKeywords(fullText)
}

func (c *Classifier) predictModel(text string) models.ClassificationResult {
	vec := c.bundle.Vectorizer
	cls := c.bundle.Classifier

	doc := vec.Transform(text)
	probs := cls.Probabilities(doc)

	scores := make(map[string]float64, len(cls.Classes))
	best := 0
	for i, class := range cls.Classes {
		scores[class] = probs[i]
		if probs[i] > probs[best] {
			best = i
		}
	}

	return models.ClassificationResult{
		Label:      cls.Classes[best],
		Confidence: probs[best],
		Scores:     scores,
		Source:     models.SourceModel,
	}
}

// predictKeywords is the deterministic heuristic used whenever the model is
// unavailable. Product cues win over service cues.
func predictKeywords(text string) models.ClassificationResult {
	t := strings.ToLower(text)
	if containsAny(t, productKeywords) {
		return fallbackResult(LabelProduct, keywordConfidence)
	}
	if containsAny(t, serviceKeywords) {
		return fallbackResult(LabelService, keywordConfidence)
	}
	return fallbackResult(LabelOther, otherConfidence)
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func fallbackResult(label string, confidence float64) models.ClassificationResult {
	return models.ClassificationResult{
		Label:      label,
		Confidence: confidence,
		Scores:     map[string]float64{label: confidence},
		Source:     models.SourceKeywordFallback,
	}
}

// Package explain produces token-level attribution for the type
// classification decision. With the linear model available it reports signed
// per-token contributions toward the predicted class; without it, a
// frequency heuristic over the document's tokens.
package explain

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/facturaIA/invoice-inference-service/internal/mlmodel"
	"github.com/facturaIA/invoice-inference-service/internal/models"
)

const (
	topContributions = 5
	topFrequent      = 3
	minTokenLen      = 3
)

// Generator explains type classifications.
type Generator struct {
	bundle *mlmodel.Bundle
}

// NewGenerator creates an explanation generator over a loaded model bundle.
func NewGenerator(bundle *mlmodel.Bundle) *Generator {
	return &Generator{bundle: bundle}
}

// Explain attributes the classification of fullText to tokens. The result's
// Method field records whether the linear model or the frequency fallback
// produced it.
func (g *Generator) Explain(fullText string) models.Explanation {
	text := strings.ToLower(fullText)

	if g.bundle.HasTextModel() {
		if top := g.linearContributions(text); len(top) > 0 {
			return models.Explanation{
				Method:    models.MethodLinearContribution,
				TopTokens: top,
			}
		}
	}

	return models.Explanation{
		Method:    models.MethodFeatureImportances,
		TopTokens: frequencyTokens(text),
	}
}

// linearContributions computes tfidf(doc, feature) x coef(class, feature) for
// every feature present in the document, for the predicted class, keeps the
// five largest by magnitude and rescales so the largest |weight| is 1.0.
func (g *Generator) linearContributions(text string) []models.TokenWeight {
	vec := g.bundle.Vectorizer
	cls := g.bundle.Classifier

	doc := vec.Transform(text)
	if len(doc) == 0 {
		return nil
	}

	classIdx := cls.PredictedClass(doc)
	coefs := cls.ClassCoefficients(classIdx)
	if coefs == nil {
		return nil
	}

	names := vec.FeatureNames()
	contribs := make([]models.TokenWeight, 0, len(doc))
	for idx, tfidf := range doc {
		if idx < 0 || idx >= len(coefs) {
			continue
		}
		contribs = append(contribs, models.TokenWeight{
			Token:  names[idx],
			Weight: coefs[idx] * tfidf,
		})
	}

	sort.Slice(contribs, func(i, j int) bool {
		ai, aj := abs(contribs[i].Weight), abs(contribs[j].Weight)
		if ai != aj {
			return ai > aj
		}
		return contribs[i].Token < contribs[j].Token
	})
	if len(contribs) > topContributions {
		contribs = contribs[:topContributions]
	}

	maxAbs := 0.0
	for _, c := range contribs {
		if a := abs(c.Weight); a > maxAbs {
			maxAbs = a
		}
	}
	if maxAbs == 0 {
		return nil
	}
	for i := range contribs {
		contribs[i].Weight /= maxAbs
	}
	return contribs
}

// frequencyTokens is the fallback attribution: whitespace tokens longer than
// two characters, the three most frequent, with synthetic weights scaled by
// frequency and capped at 1.0. Ties break on first appearance so output
// stays deterministic.
func frequencyTokens(text string) []models.TokenWeight {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	for i, tok := range strings.Fields(text) {
		if utf8.RuneCountInString(tok) < minTokenLen {
			continue
		}
		if _, seen := counts[tok]; !seen {
			firstSeen[tok] = i
		}
		counts[tok]++
	}

	tokens := make([]string, 0, len(counts))
	for tok := range counts {
		tokens = append(tokens, tok)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if counts[tokens[i]] != counts[tokens[j]] {
			return counts[tokens[i]] > counts[tokens[j]]
		}
		return firstSeen[tokens[i]] < firstSeen[tokens[j]]
	})
	if len(tokens) > topFrequent {
		tokens = tokens[:topFrequent]
	}

	out := make([]models.TokenWeight, 0, len(tokens))
	for _, tok := range tokens {
		weight := float64(counts[tok]) / 10.0
		if weight > 1.0 {
			weight = 1.0
		}
		out = append(out, models.TokenWeight{Token: tok, Weight: weight})
	}
	return out
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

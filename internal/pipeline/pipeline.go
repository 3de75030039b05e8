// Package pipeline runs the full inference chain for one submission:
// language resolution, field normalization, then type classification,
// anomaly scoring, tax classification and explanation over the canonical
// record. Execution is synchronous and stateless; concurrent submissions
// share nothing but the read-only model bundle.
package pipeline

import (
	"github.com/facturaIA/invoice-inference-service/internal/anomaly"
	"github.com/facturaIA/invoice-inference-service/internal/classify"
	"github.com/facturaIA/invoice-inference-service/internal/etl"
	"github.com/facturaIA/invoice-inference-service/internal/explain"
	"github.com/facturaIA/invoice-inference-service/internal/language"
	"github.com/facturaIA/invoice-inference-service/internal/mlmodel"
	"github.com/facturaIA/invoice-inference-service/internal/models"
	"github.com/facturaIA/invoice-inference-service/internal/tax"
)

const duplicateWarning = "Duplicate (vendor_name, invoice_number) found; review before payment."

// Pipeline holds the immutable stage set built from one model bundle.
type Pipeline struct {
	resolver   *language.Resolver
	normalizer *etl.Normalizer
	classifier *classify.Classifier
	scorer     *anomaly.Scorer
	taxer      *tax.Classifier
	explainer  *explain.Generator
}

// New builds a pipeline over a loaded model bundle.
func New(bundle *mlmodel.Bundle) *Pipeline {
	return &Pipeline{
		resolver:   language.NewResolver(),
		normalizer: etl.NewNormalizer(),
		classifier: classify.NewClassifier(bundle),
		scorer:     anomaly.NewScorer(bundle),
		taxer:      tax.NewClassifier(),
		explainer:  explain.NewGenerator(bundle),
	}
}

// Process runs every stage for one submission. isDuplicate comes from the
// storage collaborator's atomic (vendor, invoice number) check; the pipeline
// only consumes the boolean.
func (p *Pipeline) Process(sub *models.RawSubmission, isDuplicate bool) models.InferenceResult {
	lang := p.resolver.Resolve(sub)
	inv := p.normalizer.Normalize(sub, lang)

	missing := etl.CountMissing(inv)

	classification := p.classifier.Predict(inv.FullText)
	risk := p.scorer.Score(inv, isDuplicate, missing)
	taxResult := p.taxer.Classify(inv, sub.RawText, lang)
	explanation := p.explainer.Explain(inv.FullText)

	warnings := []string{}
	if isDuplicate {
		warnings = append(warnings, duplicateWarning)
	}

	return models.InferenceResult{
		ExtractedFields: models.ExtractedFields{
			VendorName:    inv.VendorName,
			InvoiceNumber: inv.InvoiceNumber,
			Date:          inv.Date,
			TaxID:         inv.TaxID,
			TotalAmount:   inv.TotalAmount,
			Currency:      inv.Currency,
			LineCount:     inv.LineCount,
		},
		Language:        lang,
		TypeClass:       classification.Label,
		TypeConfidence:  classification.Confidence,
		TypeSource:      classification.Source,
		TypeExplanation: explanation,
		FraudScore:      risk.Score,
		FraudReasons:    risk.Reasons,
		TaxResult:       taxResult,
		Warnings:        warnings,
	}
}

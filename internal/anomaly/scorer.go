// Package anomaly blends the trained outlier model with deterministic rule
// bumps into a bounded fraud risk score.
package anomaly

import (
	"fmt"

	"github.com/facturaIA/invoice-inference-service/internal/mlmodel"
	"github.com/facturaIA/invoice-inference-service/internal/models"
)

const (
	duplicateBump   = 0.25
	missingBump     = 0.10
	maxMissingBumps = 5
	maxRisk         = 0.99 // never 1.0; downstream may treat 1.0 as a sentinel
	quietThreshold  = 0.15

	duplicateReason  = "Possible duplicate invoice (same vendor+number)."
	consistentReason = "Looks consistent with past invoices."
)

// Scorer computes the risk score for canonical invoices. It requires the
// anomaly forest; there is no rule-only substitute for the learned signal.
type Scorer struct {
	forest *mlmodel.AnomalyForest
}

// NewScorer creates a scorer over the loaded forest.
func NewScorer(bundle *mlmodel.Bundle) *Scorer {
	return &Scorer{forest: bundle.Forest}
}

// Score feeds exactly two features, total amount then line count, into the
// forest's decision function and layers the rule bumps on top. The returned
// score is clamped to [0, 0.99] and the reasons list is never empty.
//
// The 0.5 inversion collapses the unbounded decision score into a
// conservative mid-range default when the model is uncertain. The constant is
// tuned for the current model's score distribution and needs recalibration
// if the forest is retrained differently.
func (s *Scorer) Score(inv *models.CanonicalInvoice, isDuplicate bool, missingCount int) models.RiskAssessment {
	amount := 0.0
	if inv.TotalAmount != nil {
		amount = *inv.TotalAmount
	}

	// Feature order must match training: [total_amount, line_count].
	normality := s.forest.DecisionFunction([]float64{amount, float64(inv.LineCount)})

	risk := clip(0.5-normality, 0.0, 1.0)
	var reasons []string

	if isDuplicate {
		risk += duplicateBump
		reasons = append(reasons, duplicateReason)
	}

	if missingCount > 0 {
		bumps := missingCount
		if bumps > maxMissingBumps {
			bumps = maxMissingBumps
		}
		risk += missingBump * float64(bumps)
		reasons = append(reasons, fmt.Sprintf("%d critical fields missing.", missingCount))
	}

	risk = clip(risk, 0.0, maxRisk)

	if risk < quietThreshold && len(reasons) == 0 {
		reasons = append(reasons, consistentReason)
	}

	return models.RiskAssessment{Score: risk, Reasons: reasons}
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package explain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturaIA/invoice-inference-service/internal/mlmodel"
	"github.com/facturaIA/invoice-inference-service/internal/models"
)

// Binary model over three terms: negative weights pull toward "product",
// positive toward "service".
func textBundle() *mlmodel.Bundle {
	return &mlmodel.Bundle{
		Vectorizer: &mlmodel.Vectorizer{
			Vocabulary: map[string]int{"monitor": 0, "cheap": 1, "service": 2},
			IDF:        []float64{1.0, 1.0, 1.0},
			NgramMin:   1,
			NgramMax:   1,
		},
		Classifier: &mlmodel.Classifier{
			Classes:    []string{"product", "service"},
			Coef:       [][]float64{{-2.0, -0.5, 3.0}},
			Intercepts: []float64{0.0},
		},
	}
}

func TestExplainLinearContributions(t *testing.T) {
	g := NewGenerator(textBundle())

	got := g.Explain("Monitor cheap")
	assert.Equal(t, models.MethodLinearContribution, got.Method)
	require.Len(t, got.TopTokens, 2)

	// Predicted class is "product"; both terms support it, strongest first
	// and rescaled so the strongest weight is exactly 1.0.
	assert.Equal(t, "monitor", got.TopTokens[0].Token)
	assert.InDelta(t, 1.0, got.TopTokens[0].Weight, 1e-9)
	assert.Equal(t, "cheap", got.TopTokens[1].Token)
	assert.InDelta(t, 0.25, got.TopTokens[1].Weight, 1e-9)
}

func TestExplainLinearPreservesSigns(t *testing.T) {
	g := NewGenerator(textBundle())

	// All three terms present tips the decision to "service": the service
	// term contributes positively, the product terms negatively.
	got := g.Explain("monitor cheap service")
	assert.Equal(t, models.MethodLinearContribution, got.Method)
	require.Len(t, got.TopTokens, 3)

	assert.Equal(t, "service", got.TopTokens[0].Token)
	assert.InDelta(t, 1.0, got.TopTokens[0].Weight, 1e-9)
	assert.Equal(t, "monitor", got.TopTokens[1].Token)
	assert.InDelta(t, -2.0/3.0, got.TopTokens[1].Weight, 1e-9)
	assert.Equal(t, "cheap", got.TopTokens[2].Token)
	assert.InDelta(t, -1.0/6.0, got.TopTokens[2].Weight, 1e-9)
}

func TestExplainLinearCapsAtFiveTokens(t *testing.T) {
	bundle := &mlmodel.Bundle{
		Vectorizer: &mlmodel.Vectorizer{
			Vocabulary: map[string]int{
				"aa": 0, "bb": 1, "cc": 2, "dd": 3, "ee": 4, "ff": 5,
			},
			IDF:      []float64{1, 1, 1, 1, 1, 1},
			NgramMin: 1,
			NgramMax: 1,
		},
		Classifier: &mlmodel.Classifier{
			Classes:    []string{"product", "service"},
			Coef:       [][]float64{{0.6, 0.5, 0.4, 0.3, 0.2, 0.1}},
			Intercepts: []float64{0.0},
		},
	}
	g := NewGenerator(bundle)

	got := g.Explain("aa bb cc dd ee ff")
	assert.Equal(t, models.MethodLinearContribution, got.Method)
	require.Len(t, got.TopTokens, 5)
	assert.Equal(t, "aa", got.TopTokens[0].Token)
	// "ff" carries the smallest magnitude and is the one cut.
	for _, tw := range got.TopTokens {
		assert.NotEqual(t, "ff", tw.Token)
	}
}

func TestExplainOutOfVocabularyFallsBack(t *testing.T) {
	g := NewGenerator(textBundle())

	got := g.Explain("gravel shipment delivery")
	assert.Equal(t, models.MethodFeatureImportances, got.Method)
	require.Len(t, got.TopTokens, 3)
}

func TestExplainFrequencyFallback(t *testing.T) {
	g := NewGenerator(&mlmodel.Bundle{})

	got := g.Explain("alpha beta alpha gamma beta alpha xy")
	assert.Equal(t, models.MethodFeatureImportances, got.Method)
	require.Len(t, got.TopTokens, 3)

	assert.Equal(t, "alpha", got.TopTokens[0].Token)
	assert.InDelta(t, 0.3, got.TopTokens[0].Weight, 1e-9)
	assert.Equal(t, "beta", got.TopTokens[1].Token)
	assert.InDelta(t, 0.2, got.TopTokens[1].Weight, 1e-9)
	assert.Equal(t, "gamma", got.TopTokens[2].Token)
	assert.InDelta(t, 0.1, got.TopTokens[2].Weight, 1e-9)
}

func TestExplainFallbackTieBreaksOnFirstAppearance(t *testing.T) {
	g := NewGenerator(&mlmodel.Bundle{})

	got := g.Explain("one two three four")
	require.Len(t, got.TopTokens, 3)
	assert.Equal(t, "one", got.TopTokens[0].Token)
	assert.Equal(t, "two", got.TopTokens[1].Token)
	assert.Equal(t, "three", got.TopTokens[2].Token)
}

func TestExplainFallbackCountsRunesNotBytes(t *testing.T) {
	g := NewGenerator(&mlmodel.Bundle{})

	// The two-letter Arabic token is dropped; the four-letter one survives.
	got := g.Explain("خدمة اب خدمة")
	require.Len(t, got.TopTokens, 1)
	assert.Equal(t, "خدمة", got.TopTokens[0].Token)
	assert.InDelta(t, 0.2, got.TopTokens[0].Weight, 1e-9)
}

func TestExplainFallbackWeightCappedAtOne(t *testing.T) {
	g := NewGenerator(&mlmodel.Bundle{})

	// 12 repetitions would scale past 1.0 uncapped.
	text := strings.TrimSpace(strings.Repeat("subscription ", 12)) + " once"
	got := g.Explain(text)
	require.Len(t, got.TopTokens, 2)
	assert.Equal(t, "subscription", got.TopTokens[0].Token)
	assert.InDelta(t, 1.0, got.TopTokens[0].Weight, 1e-9)
	assert.InDelta(t, 0.1, got.TopTokens[1].Weight, 1e-9)
}

func TestExplainEmptyText(t *testing.T) {
	g := NewGenerator(&mlmodel.Bundle{})

	got := g.Explain("")
	assert.Equal(t, models.MethodFeatureImportances, got.Method)
	assert.Empty(t, got.TopTokens)
}

func TestExplainDeterministic(t *testing.T) {
	g := NewGenerator(textBundle())
	first := g.Explain("monitor cheap service")
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, g.Explain("monitor cheap service"))
	}
}

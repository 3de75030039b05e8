package language

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/facturaIA/invoice-inference-service/internal/models"
)

func TestWhitelist(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"en", "en"},
		{"de", "de"},
		{"ar", "ar"},
		{"DE", "de"},
		{" ar ", "ar"},
		{"fr", "en"},
		{"", "en"},
		{"english", "en"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Whitelist(tt.code), "code %q", tt.code)
	}
}

func TestResolveExplicitTagWins(t *testing.T) {
	r := NewResolver()

	sub := &models.RawSubmission{Language: "de", RawText: "this is clearly english text about invoices"}
	assert.Equal(t, German, r.Resolve(sub))

	// Unsupported explicit tags coerce to English without detection.
	sub = &models.RawSubmission{Language: "fr", RawText: "ceci est un texte"}
	assert.Equal(t, English, r.Resolve(sub))
}

func TestResolveEmptyInputDefaultsToEnglish(t *testing.T) {
	r := NewResolver()
	assert.Equal(t, English, r.Resolve(&models.RawSubmission{}))
}

func TestResolveFallbackTextFromFields(t *testing.T) {
	r := NewResolver()
	sub := &models.RawSubmission{
		VendorName:    "Nordwind Handelsgesellschaft für Bürobedarf",
		InvoiceNumber: "RG-2025-017",
		Currency:      "EUR",
	}
	got := r.Resolve(sub)
	assert.Contains(t, []string{English, German, Arabic}, got)
}

func TestResolveDetectsArabicScript(t *testing.T) {
	r := NewResolver()
	sub := &models.RawSubmission{RawText: "فاتورة ضريبية لخدمات الاستشارات الشهرية المقدمة للعميل"}
	assert.Equal(t, Arabic, r.Resolve(sub))
}

func TestResolveIsDeterministic(t *testing.T) {
	r := NewResolver()
	sub := &models.RawSubmission{RawText: "Rechnung für Wartung und Support im Monat Juli"}

	first := r.Resolve(sub)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, r.Resolve(sub))
	}
}

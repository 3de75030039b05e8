package etl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturaIA/invoice-inference-service/internal/models"
)

func TestNormalizeNumber(t *testing.T) {
	tests := []struct {
		name string
		in   string
		lang string
		want float64
	}{
		{"german thousands and decimal", "1.234,56", "de", 1234.56},
		{"german plain decimal", "35,50", "de", 35.50},
		{"english thousands", "1,234.56", "en", 1234.56},
		{"english plain", "99.90", "en", 99.90},
		{"arabic digits with separators", "١٬٢٣٤٫٥٦", "ar", 1234.56},
		{"arabic plain digits", "٥٠", "ar", 50},
		{"whitespace tolerated", "  12.5 ", "en", 12.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseFloat(models.TextValue(tt.in), tt.lang)
			require.True(t, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseFloatFailures(t *testing.T) {
	_, ok := parseFloat(models.TextValue("abc"), "en")
	assert.False(t, ok)

	_, ok = parseFloat(models.FlexValue{}, "en")
	assert.False(t, ok)

	// Numbers bypass string parsing entirely.
	got, ok := parseFloat(models.NumberValue(42.5), "de")
	require.True(t, ok)
	assert.Equal(t, 42.5, got)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		lang string
		want string
	}{
		{"iso en", "2025-07-10", "en", "2025-07-10"},
		{"iso de", "2025-07-10", "de", "2025-07-10"},
		{"iso ar", "2025-07-10", "ar", "2025-07-10"},
		{"us slash", "07/10/2025", "en", "2025-07-10"},
		{"en day first when month invalid", "25/12/2025", "en", "2025-12-25"},
		{"german dotted", "10.07.2025", "de", "2025-07-10"},
		{"german slash", "10/07/2025", "de", "2025-07-10"},
		{"arabic digits", "١٠/٠٧/٢٠٢٥", "ar", "2025-07-10"},
		{"arabic digits without ar locale", "١٠/٠٧/٢٠٢٥", "en", "2025-10-07"},
		{"dotted german format under en fallback", "10.07.2025", "en", "2025-07-10"},
		{"unparsable", "not a date", "en", ""},
		{"empty", "  ", "de", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseDate(tt.in, tt.lang))
		})
	}
}

// A valid ISO date round-trips unchanged in every supported locale.
func TestISODateRoundTrip(t *testing.T) {
	for _, lang := range []string{"en", "de", "ar"} {
		assert.Equal(t, "2024-02-29", parseDate("2024-02-29", lang), "lang %s", lang)
	}
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		name string
		in   models.FlexValue
		lang string
		want int
	}{
		{"number", models.NumberValue(3), "en", 3},
		{"numeric string", models.TextValue("4"), "en", 4},
		{"arabic digit string", models.TextValue("٣"), "ar", 3},
		{"float string truncates", models.TextValue("3.0"), "en", 3},
		{"garbage defaults to one", models.TextValue("many"), "en", 1},
		{"unset defaults to one", models.FlexValue{}, "en", 1},
		{"zero passes through unclamped", models.NumberValue(0), "en", 0},
		{"negative passes through unclamped", models.NumberValue(-2), "en", -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseQuantity(tt.in, tt.lang))
		})
	}
}

func TestNormalizeTotals(t *testing.T) {
	n := NewNormalizer()

	sub := &models.RawSubmission{
		VendorName:    " Acme ",
		InvoiceNumber: "A-1",
		Date:          "10.07.2025",
		TaxID:         "DE123",
		Currency:      "eur",
		Items: []models.RawLineItem{
			{Description: "Keyboard", Quantity: models.NumberValue(3), UnitPrice: models.NumberValue(35.0)},
		},
	}

	inv := n.Normalize(sub, "de")
	assert.Equal(t, "Acme", inv.VendorName)
	assert.Equal(t, "EUR", inv.Currency)
	assert.Equal(t, "2025-07-10", inv.Date)
	assert.Equal(t, 1, inv.LineCount)
	require.NotNil(t, inv.TotalAmount)
	assert.InDelta(t, 105.00, *inv.TotalAmount, 1e-9)
}

func TestNormalizeLocalizedStrings(t *testing.T) {
	n := NewNormalizer()

	sub := &models.RawSubmission{
		VendorName:    "Schmidt GmbH",
		InvoiceNumber: "RG-7",
		Currency:      "EUR",
		Items: []models.RawLineItem{
			{Description: "Monitor", Quantity: models.TextValue("2"), UnitPrice: models.TextValue("1.234,56")},
		},
	}

	inv := n.Normalize(sub, "de")
	require.Len(t, inv.Items, 1)
	assert.Equal(t, 2, inv.Items[0].Quantity)
	assert.InDelta(t, 1234.56, inv.Items[0].UnitPrice, 1e-9)
	require.NotNil(t, inv.TotalAmount)
	assert.InDelta(t, 2469.12, *inv.TotalAmount, 1e-9)
}

// total_amount is present iff line_count > 0.
func TestNormalizeNoItems(t *testing.T) {
	n := NewNormalizer()

	inv := n.Normalize(&models.RawSubmission{VendorName: "Acme"}, "en")
	assert.Equal(t, 0, inv.LineCount)
	assert.Nil(t, inv.TotalAmount)
	assert.Empty(t, inv.Items)
}

func TestNormalizeUnparsablePriceCollapsesToZero(t *testing.T) {
	n := NewNormalizer()

	sub := &models.RawSubmission{
		Items: []models.RawLineItem{
			{Description: "Mystery", Quantity: models.NumberValue(5), UnitPrice: models.TextValue("n/a")},
		},
	}

	inv := n.Normalize(sub, "en")
	require.Len(t, inv.Items, 1)
	assert.Zero(t, inv.Items[0].UnitPrice)
	require.NotNil(t, inv.TotalAmount)
	assert.Zero(t, *inv.TotalAmount)
}

func TestNormalizeFullTextAssembly(t *testing.T) {
	n := NewNormalizer()

	sub := &models.RawSubmission{
		VendorName:    "Acme",
		InvoiceNumber: "A-1",
		TaxID:         "DE123",
		Currency:      "EUR",
		RawText:       "monthly service fee",
		Items: []models.RawLineItem{
			{Description: "Support"},
			{Description: ""},
		},
	}

	inv := n.Normalize(sub, "en")
	assert.Equal(t, "Acme A-1 DE123 EUR Support monthly service fee", inv.FullText)
}

func TestNormalizeArabicDigitsInFullText(t *testing.T) {
	n := NewNormalizer()

	sub := &models.RawSubmission{
		VendorName:    "شركة ١٢٣",
		InvoiceNumber: "INV-٤٥",
		Currency:      "SAR",
	}

	inv := n.Normalize(sub, "ar")
	assert.Contains(t, inv.FullText, "123")
	assert.Contains(t, inv.FullText, "INV-45")
	// The canonical vendor field keeps the original script.
	assert.Equal(t, "شركة ١٢٣", inv.VendorName)
}

func TestCountMissing(t *testing.T) {
	full := &models.CanonicalInvoice{
		VendorName:    "Acme",
		InvoiceNumber: "A-1",
		Date:          "2025-07-10",
		TaxID:         "DE123",
		Currency:      "EUR",
	}
	assert.Zero(t, CountMissing(full))

	empty := &models.CanonicalInvoice{}
	assert.Equal(t, 5, CountMissing(empty))

	partial := &models.CanonicalInvoice{VendorName: "Acme", Currency: "EUR"}
	assert.Equal(t, 3, CountMissing(partial))
}

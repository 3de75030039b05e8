// Package etl turns a raw, loosely-typed submission into the canonical
// invoice record. Parsing is locale-aware and never fails: malformed fields
// degrade to absence or defaults so one bad field cannot sink the pipeline.
package etl

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/facturaIA/invoice-inference-service/internal/language"
	"github.com/facturaIA/invoice-inference-service/internal/models"
)

// Arabic-Indic digits and the Arabic numeric separators.
const (
	arabicThousands = '٬' // ٬
	arabicDecimal   = '٫' // ٫
)

// arabicDigitsToASCII converts Arabic-Indic digits (٠-٩) to ASCII digits,
// leaving everything else untouched.
func arabicDigitsToASCII(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '٠' && r <= '٩' {
			b.WriteRune('0' + (r - '٠'))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func hasArabicDigits(s string) bool {
	for _, r := range s {
		if r >= '٠' && r <= '٩' {
			return true
		}
	}
	return false
}

// normalizeNumber rewrites a localized numeric string into strconv form:
//   - de: "1.234,56" -> "1234.56" (dot thousands, comma decimal)
//   - ar: "١٬٢٣٤٫٥٦" -> "1234.56" (digits, ٬ thousands, ٫ decimal)
//   - en: "1,234.56" -> "1234.56" (comma thousands)
func normalizeNumber(num, lang string) string {
	s := strings.TrimSpace(num)

	switch lang {
	case language.Arabic:
		s = arabicDigitsToASCII(s)
		s = strings.ReplaceAll(s, string(arabicThousands), "")
		s = strings.ReplaceAll(s, string(arabicDecimal), ".")
		s = strings.ReplaceAll(s, ",", "") // safety
		return s
	case language.German:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
		return s
	default:
		return strings.ReplaceAll(s, ",", "")
	}
}

// parseFloat resolves a flex value to a float. Numbers pass through; strings
// go through locale normalization. Returns (0, false) when unparsable.
func parseFloat(v models.FlexValue, lang string) (float64, bool) {
	if !v.Set {
		return 0, false
	}
	if !v.IsText {
		return v.Number, true
	}
	f, err := strconv.ParseFloat(normalizeNumber(v.Text, lang), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// parseQuantity coerces a flex value to an integer quantity, defaulting to 1.
// Arabic digit strings are converted first. Sub-1 values arriving from
// less-strict callers pass through untouched.
func parseQuantity(v models.FlexValue, lang string) int {
	if !v.Set {
		return 1
	}
	if !v.IsText {
		return int(v.Number)
	}
	s := strings.TrimSpace(v.Text)
	if lang == language.Arabic {
		s = arabicDigitsToASCII(s)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		// Tolerate "3.0" style strings the way a float->int cast would.
		if f, ferr := strconv.ParseFloat(s, 64); ferr == nil {
			return int(f)
		}
		return 1
	}
	return n
}

// Locale-ordered date layouts, most likely format first.
var dateLayouts = map[string][]string{
	language.English: {"2006-01-02", "01/02/2006", "01-02-2006", "02/01/2006", "02-01-2006"},
	language.German:  {"02.01.2006", "02/01/2006", "02-01-2006", "2006-01-02"},
	language.Arabic:  {"02/01/2006", "2006-01-02", "02-01-2006"},
}

// Tolerant fallback spanning all supported formats, tried when the locale
// list is exhausted.
var fallbackLayouts = []string{
	"2006-01-02", "02/01/2006", "01/02/2006", "02-01-2006", "01-02-2006", "02.01.2006",
}

// parseDate parses common localized date formats and returns ISO YYYY-MM-DD,
// or "" when nothing matches. Arabic-Indic digits are converted regardless of
// the declared language.
func parseDate(dateStr, lang string) string {
	raw := strings.TrimSpace(dateStr)
	if raw == "" {
		return ""
	}

	if hasArabicDigits(raw) {
		raw = arabicDigitsToASCII(raw)
	}
	raw = strings.ReplaceAll(raw, string(arabicDecimal), ".")
	raw = strings.ReplaceAll(raw, string(arabicThousands), "")

	layouts, ok := dateLayouts[lang]
	if !ok {
		layouts = dateLayouts[language.English]
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02")
		}
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

// Normalizer builds canonical invoice records.
type Normalizer struct{}

// NewNormalizer creates a field normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize produces the canonical record for a submission in the given
// locale. It never returns an error: unparsable numbers collapse to defaults
// and an unparsable date becomes absent.
func (n *Normalizer) Normalize(sub *models.RawSubmission, lang string) *models.CanonicalInvoice {
	vendorName := strings.TrimSpace(sub.VendorName)
	invoiceNumber := strings.TrimSpace(sub.InvoiceNumber)
	taxID := strings.TrimSpace(sub.TaxID)

	currency := strings.ToUpper(strings.TrimSpace(sub.Currency))
	if currency == "" {
		currency = "EUR"
	}

	items := make([]models.LineItem, 0, len(sub.Items))
	total := decimal.Zero
	for _, it := range sub.Items {
		qty := 1
		if it.Quantity.Set {
			qty = parseQuantity(it.Quantity, lang)
		}
		price, ok := parseFloat(it.UnitPrice, lang)
		if !ok {
			price = 0.0
		}
		items = append(items, models.LineItem{
			Description: strings.TrimSpace(it.Description),
			Quantity:    qty,
			UnitPrice:   price,
			Category:    strings.TrimSpace(it.Category),
		})
		total = total.Add(decimal.NewFromInt(int64(qty)).Mul(decimal.NewFromFloat(price)))
	}

	var totalAmount *float64
	if len(items) > 0 {
		t, _ := total.Round(2).Float64()
		totalAmount = &t
	}

	parts := []string{vendorName, invoiceNumber, taxID, currency}
	for _, it := range items {
		if it.Description != "" {
			parts = append(parts, it.Description)
		}
	}
	parts = append(parts, strings.TrimSpace(sub.RawText))
	if lang == language.Arabic {
		for i, p := range parts {
			parts[i] = arabicDigitsToASCII(p)
		}
	}
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}

	return &models.CanonicalInvoice{
		VendorName:    vendorName,
		InvoiceNumber: invoiceNumber,
		Date:          parseDate(sub.Date, lang),
		TaxID:         taxID,
		Items:         items,
		Currency:      currency,
		TotalAmount:   totalAmount,
		LineCount:     len(items),
		FullText:      strings.Join(nonEmpty, " "),
	}
}

// CountMissing counts how many of the critical canonical fields are absent.
func CountMissing(inv *models.CanonicalInvoice) int {
	missing := 0
	for _, v := range []string{inv.VendorName, inv.InvoiceNumber, inv.Date, inv.TaxID, inv.Currency} {
		if strings.TrimSpace(v) == "" {
			missing++
		}
	}
	return missing
}

// Package tax is the deterministic jurisdiction and rate rule engine. Region
// resolution and the exemption/zero-rating overrides are ordered rule lists:
// first match wins, and every determination names the rule that fired.
package tax

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/facturaIA/invoice-inference-service/internal/language"
	"github.com/facturaIA/invoice-inference-service/internal/models"
)

// Standard VAT rates by EU country (VAT-id prefix, ISO alpha-2 subset).
var euStandard = map[string]float64{
	"DE": 0.19, "FR": 0.20, "IT": 0.22, "ES": 0.21, "NL": 0.21, "BE": 0.21,
	"AT": 0.20, "PT": 0.23, "SE": 0.25, "DK": 0.25, "FI": 0.25, "IE": 0.23,
}

// Standard VAT rates by GCC country (ISO alpha-2 subset; QA/KW not yet rated).
var gccStandard = map[string]float64{
	"AE": 0.05,
	"SA": 0.15,
	"BH": 0.10,
	"OM": 0.05,
}

// Currency hint used when the tax id carries no usable country prefix.
var currencyToGCC = map[string]string{
	"AED": "AE",
	"SAR": "SA",
	"BHD": "BH",
	"OMR": "OM",
}

const defaultGCCRate = 0.15
const defaultRate = 0.15

// overrideRule is one (pattern, outcome) entry of the textual override scan.
type overrideRule struct {
	pattern        *regexp.Regexp
	classification string
}

// Exemption cues outrank zero-rating cues; within each list, first match wins.
var exemptRules = []overrideRule{
	{regexp.MustCompile(`(?i)\breverse\s*charge\b`), models.TaxExempt},
	{regexp.MustCompile(`(?i)\barticle\s*196\b`), models.TaxExempt},
	{regexp.MustCompile(`(?i)\bvat[-\s]*exempt\b`), models.TaxExempt},
}

var zeroRatedRules = []overrideRule{
	{regexp.MustCompile(`(?i)\bzero[-\s]*rated\b`), models.TaxZeroRated},
	{regexp.MustCompile(`(?i)\bvat\s*0%|\b0%\s*vat\b`), models.TaxZeroRated},
	{regexp.MustCompile(`(?i)\bexport\b.*\b(outside|to)\s*(eu|gcc)\b`), models.TaxZeroRated},
	{regexp.MustCompile(`(?i)\binternational\s*transport(ation)?\b`), models.TaxZeroRated},
}

// Classifier determines region, classification and rate for an invoice.
type Classifier struct{}

// NewClassifier creates a tax rule engine.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// regionHint is the outcome of region/rate resolution before overrides.
type regionHint struct {
	region  string
	rate    float64
	country string
}

// resolveRegion decides region and base standard rate before the textual
// override scan, in fixed priority order: EU VAT-id prefix, GCC VAT-id
// prefix, GCC currency hint, Arabic-locale GCC default, then Unknown.
func resolveRegion(inv *models.CanonicalInvoice, lang string) regionHint {
	cc := ""
	taxID := strings.ToUpper(inv.TaxID)
	if len(taxID) >= 2 {
		cc = taxID[:2]
	}

	if rate, ok := euStandard[cc]; ok {
		return regionHint{models.RegionEU, rate, cc}
	}
	if rate, ok := gccStandard[cc]; ok {
		return regionHint{models.RegionGCC, rate, cc}
	}
	if gccCC, ok := currencyToGCC[strings.ToUpper(inv.Currency)]; ok {
		rate, rated := gccStandard[gccCC]
		if !rated {
			rate = defaultGCCRate
		}
		return regionHint{models.RegionGCC, rate, gccCC}
	}
	if lang == language.Arabic {
		return regionHint{models.RegionGCC, defaultGCCRate, "GCC"}
	}
	return regionHint{models.RegionUnknown, defaultRate, ""}
}

// Classify applies the rule cascade: region resolution, then exemption cues,
// then zero-rating cues, then the standard rate of the resolved region. Pure
// function of the record, the raw free text and the resolved language.
func (c *Classifier) Classify(inv *models.CanonicalInvoice, rawText, lang string) models.TaxDetermination {
	hint := resolveRegion(inv, lang)

	text := rawText + " " + inv.FullText

	for _, rule := range exemptRules {
		if m := rule.pattern.FindString(text); m != "" {
			return models.TaxDetermination{
				Region:         hint.region,
				Classification: models.TaxExempt,
				Rate:           0.0,
				Reason:         fmt.Sprintf("Detected exemption keyword (%q).", m),
			}
		}
	}

	for _, rule := range zeroRatedRules {
		if m := rule.pattern.FindString(text); m != "" {
			return models.TaxDetermination{
				Region:         hint.region,
				Classification: models.TaxZeroRated,
				Rate:           0.0,
				Reason:         fmt.Sprintf("Detected zero-rated cue (%q).", m),
			}
		}
	}

	switch hint.region {
	case models.RegionEU:
		return models.TaxDetermination{
			Region:         models.RegionEU,
			Classification: models.TaxStandard,
			Rate:           hint.rate,
			Reason:         fmt.Sprintf("EU VAT ID prefix %s: apply country standard rate.", hint.country),
		}
	case models.RegionGCC:
		ruleName := "GCC inference"
		if _, ok := gccStandard[hint.country]; ok {
			if strings.HasPrefix(strings.ToUpper(inv.TaxID), hint.country) {
				ruleName = "GCC VAT ID"
			} else {
				ruleName = "GCC currency inference"
			}
		}
		return models.TaxDetermination{
			Region:         models.RegionGCC,
			Classification: models.TaxStandard,
			Rate:           hint.rate,
			Reason:         fmt.Sprintf("%s (%s): apply standard rate.", ruleName, hint.country),
		}
	default:
		return models.TaxDetermination{
			Region:         models.RegionUnknown,
			Classification: models.TaxStandard,
			Rate:           hint.rate,
			Reason:         "Default standard rate; verify jurisdiction and rules.",
		}
	}
}

// Package language decides the operating locale of a submission. Exactly
// three locales are supported; everything else resolves to English so the
// rest of the pipeline always has a usable locale.
package language

import (
	"strings"

	"github.com/abadojack/whatlanggo"

	"github.com/facturaIA/invoice-inference-service/internal/models"
)

// Supported locale codes.
const (
	English = "en"
	German  = "de"
	Arabic  = "ar"
)

var supported = map[string]bool{
	English: true,
	German:  true,
	Arabic:  true,
}

// detectOptions whitelists detection to the supported languages. The trigram
// detector carries no randomness, so identical text always resolves to the
// same locale across calls and restarts.
var detectOptions = whatlanggo.Options{
	Whitelist: map[whatlanggo.Lang]bool{
		whatlanggo.Eng: true,
		whatlanggo.Deu: true,
		whatlanggo.Arb: true,
	},
}

// Whitelist coerces a language code to one of the supported locales,
// defaulting to English.
func Whitelist(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if supported[code] {
		return code
	}
	return English
}

// Resolver decides the operating locale for raw submissions.
type Resolver struct{}

// NewResolver creates a language resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve returns en, de or ar for a submission:
//  1. an explicit language tag wins (whitelisted),
//  2. otherwise detection runs over the free-form text, or over a small
//     fallback text joined from vendor, invoice number and currency,
//  3. empty detection text or an unsupported result falls back to English.
// Resolve never fails; the pipeline always gets a locale.
func (r *Resolver) Resolve(sub *models.RawSubmission) string {
	if sub.Language != "" {
		return Whitelist(sub.Language)
	}

	text := sub.RawText
	if text == "" {
		text = strings.TrimSpace(strings.Join([]string{
			sub.VendorName, sub.InvoiceNumber, sub.Currency,
		}, " "))
	}
	if text == "" {
		return English
	}

	info := whatlanggo.DetectWithOptions(text, detectOptions)
	switch info.Lang {
	case whatlanggo.Eng:
		return English
	case whatlanggo.Deu:
		return German
	case whatlanggo.Arb:
		return Arabic
	default:
		return English
	}
}

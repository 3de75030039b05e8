package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// FlexValue holds a field that callers may send either as a JSON number or as
// a locale-formatted string (e.g. "1.234,56" or "١٢٣٫٥٠"). The ETL resolves
// it against the submission language.
type FlexValue struct {
	Number float64
	Text   string
	IsText bool
	Set    bool
}

// UnmarshalJSON accepts numbers and strings; anything else leaves the value unset.
func (v *FlexValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v.Text = strings.TrimSpace(s)
		v.IsText = true
		v.Set = true
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		// Tolerate malformed values; the ETL treats unset as default.
		return nil
	}
	v.Number = f
	v.Set = true
	return nil
}

// MarshalJSON round-trips the original representation.
func (v FlexValue) MarshalJSON() ([]byte, error) {
	if !v.Set {
		return []byte("null"), nil
	}
	if v.IsText {
		return json.Marshal(v.Text)
	}
	return json.Marshal(v.Number)
}

// NumberValue returns a FlexValue carrying a plain number.
func NumberValue(f float64) FlexValue {
	return FlexValue{Number: f, Set: true}
}

// TextValue returns a FlexValue carrying a localized string.
func TextValue(s string) FlexValue {
	return FlexValue{Text: s, IsText: true, Set: true}
}

// RawLineItem is a single line of a raw submission.
type RawLineItem struct {
	Description string    `json:"description"`
	Quantity    FlexValue `json:"quantity"`
	UnitPrice   FlexValue `json:"unit_price"`
	Category    string    `json:"category,omitempty"`
}

// RawSubmission is the externally supplied invoice payload. It is owned by the
// caller and never mutated by the pipeline.
type RawSubmission struct {
	VendorName    string        `json:"vendor_name"`
	InvoiceNumber string        `json:"invoice_number"`
	Date          string        `json:"date"`
	TaxID         string        `json:"tax_id"`
	Items         []RawLineItem `json:"items"`
	Currency      string        `json:"currency"`
	Language      string        `json:"language,omitempty"`
	RawText       string        `json:"raw_text,omitempty"`
}

// LineItem is a normalized invoice line.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Category    string  `json:"category"`
}

// CanonicalInvoice is the locale-normalized record every downstream stage
// consumes. Built once per submission, immutable thereafter.
type CanonicalInvoice struct {
	VendorName    string     `json:"vendor_name"`
	InvoiceNumber string     `json:"invoice_number"`
	Date          string     `json:"date,omitempty"` // ISO YYYY-MM-DD, "" if unparsable
	TaxID         string     `json:"tax_id"`
	Items         []LineItem `json:"items"`
	Currency      string     `json:"currency"`
	TotalAmount   *float64   `json:"total_amount"` // nil when there are no items
	LineCount     int        `json:"line_count"`
	FullText      string     `json:"full_text"`
}

// Classification sources.
const (
	SourceModel           = "model"
	SourceKeywordFallback = "keyword_fallback"
)

// ClassificationResult is the document-type decision.
type ClassificationResult struct {
	Label      string             `json:"label"`
	Confidence float64            `json:"confidence"`
	Scores     map[string]float64 `json:"scores"`
	Source     string             `json:"source"` // model or keyword_fallback
}

// RiskAssessment is the bounded anomaly/fraud judgment.
type RiskAssessment struct {
	Score   float64  `json:"score"` // clamped to [0, 0.99]
	Reasons []string `json:"reasons"`
}

// Tax regions and classifications.
const (
	RegionEU      = "EU"
	RegionGCC     = "GCC"
	RegionUnknown = "Unknown"

	TaxStandard  = "standard"
	TaxExempt    = "exempt"
	TaxZeroRated = "zero-rated"
)

// TaxDetermination documents which jurisdiction rule fired.
type TaxDetermination struct {
	Region         string  `json:"region"`
	Classification string  `json:"vat"`
	Rate           float64 `json:"rate"`
	Reason         string  `json:"reason"`
}

// Explanation methods.
const (
	MethodLinearContribution = "linear_contribution"
	MethodFeatureImportances = "feature_importances"
)

// TokenWeight is one attributed token of an explanation.
type TokenWeight struct {
	Token  string  `json:"token"`
	Weight float64 `json:"weight"`
}

// Explanation attributes the type classification to individual tokens.
type Explanation struct {
	Method    string        `json:"method"`
	TopTokens []TokenWeight `json:"top_tokens"`
}

// ExtractedFields mirrors the canonical fields in the API response.
type ExtractedFields struct {
	VendorName    string   `json:"vendor_name"`
	InvoiceNumber string   `json:"invoice_number"`
	Date          string   `json:"date,omitempty"`
	TaxID         string   `json:"tax_id"`
	TotalAmount   *float64 `json:"total_amount"`
	Currency      string   `json:"currency"`
	LineCount     int      `json:"line_count"`
}

// InferenceResult is the single structured result produced per submission.
type InferenceResult struct {
	ID              string           `json:"id,omitempty"`
	ExtractedFields ExtractedFields  `json:"extracted_fields"`
	Language        string           `json:"language"`
	TypeClass       string           `json:"type_class"`
	TypeConfidence  float64          `json:"type_confidence"`
	TypeSource      string           `json:"type_source"`
	TypeExplanation Explanation      `json:"type_explanation"`
	FraudScore      float64          `json:"fraud_score"`
	FraudReasons    []string         `json:"fraud_reasons"`
	TaxResult       TaxDetermination `json:"tax_classification"`
	Warnings        []string         `json:"warnings"`
}

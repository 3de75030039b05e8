package mlmodel

import (
	"math"
	"regexp"
	"strings"
)

// wordPattern matches what the training vectorizer counted as a token:
// word characters, minimum length two.
var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// DocVector is a sparse TF-IDF document vector: feature index -> value.
type DocVector map[int]float64

// Tokenize lower-cases text and extracts word tokens of length >= 2.
func Tokenize(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// ngrams expands tokens into space-joined n-grams for the configured range.
func (v *Vectorizer) ngrams(tokens []string) []string {
	if v.NgramMin == 1 && v.NgramMax == 1 {
		return tokens
	}
	var out []string
	for n := v.NgramMin; n <= v.NgramMax; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}

// Transform maps text to its L2-normalized TF-IDF vector, matching the
// training transform: term count x idf, then unit norm.
func (v *Vectorizer) Transform(text string) DocVector {
	vec := make(DocVector)
	for _, term := range v.ngrams(Tokenize(text)) {
		idx, ok := v.Vocabulary[term]
		if !ok || idx < 0 || idx >= len(v.IDF) {
			continue
		}
		vec[idx] += v.IDF[idx]
	}
	var norm float64
	for _, val := range vec {
		norm += val * val
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for idx, val := range vec {
			vec[idx] = val / norm
		}
	}
	return vec
}

// FeatureName maps a feature index back to its vocabulary term. Returns ""
// when the index is unknown.
func (v *Vectorizer) FeatureName(idx int) string {
	for term, i := range v.Vocabulary {
		if i == idx {
			return term
		}
	}
	return ""
}

// FeatureNames builds the index -> term table once for callers that resolve
// many indices.
func (v *Vectorizer) FeatureNames() []string {
	names := make([]string, len(v.IDF))
	for term, i := range v.Vocabulary {
		if i >= 0 && i < len(names) {
			names[i] = term
		}
	}
	return names
}

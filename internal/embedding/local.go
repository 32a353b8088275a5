package embedding

import (
	"math"
	"strings"
	"unicode"
)

// DefaultDimensions is the vector length used when none is configured.
const DefaultDimensions = 768

const (
	stopWordWeight = 0.3
	tokenProbes    = 8
	bigramProbes   = 4
	bigramWeight   = 0.5
	charFeatures   = 10
	charWeight     = 0.05
)

// stopWords are down-weighted so that content words dominate the vector.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"been": {}, "but": {}, "by": {}, "can": {}, "did": {}, "do": {}, "does": {},
	"for": {}, "from": {}, "had": {}, "has": {}, "have": {}, "he": {}, "her": {},
	"his": {}, "how": {}, "i": {}, "if": {}, "in": {}, "into": {}, "is": {},
	"it": {}, "its": {}, "me": {}, "my": {}, "no": {}, "not": {}, "of": {},
	"on": {}, "or": {}, "our": {}, "she": {}, "so": {}, "than": {}, "that": {},
	"the": {}, "their": {}, "them": {}, "then": {}, "there": {}, "these": {},
	"they": {}, "this": {}, "to": {}, "too": {}, "was": {}, "we": {}, "were": {},
	"what": {}, "when": {}, "where": {}, "which": {}, "who": {}, "why": {},
	"will": {}, "with": {}, "would": {}, "you": {}, "your": {},
}

// LocalEmbed computes a deterministic hashed bag-of-features vector of
// length dims. Identical input always yields a bit-identical vector.
// Non-positive dims fall back to DefaultDimensions.
func LocalEmbed(text string, dims int) []float32 {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	acc := make([]float64, dims)
	d := int64(dims)

	tokens := tokenize(text)
	for _, tok := range tokens {
		weight := 1.0
		if _, ok := stopWords[tok]; ok {
			weight = stopWordWeight
		}
		h := stringHash(tok)
		for j := int64(0); j < tokenProbes; j++ {
			acc[(h+31*j+7*j*j)%d] += weight / float64(j+1)
		}
		for idx, r := range []rune(tok) {
			if idx >= charFeatures {
				break
			}
			acc[(int64(r)*17+int64(idx)*23)%d] += charWeight
		}
	}

	for i := 0; i+1 < len(tokens); i++ {
		bh := stringHash(tokens[i] + " " + tokens[i+1])
		for j := int64(0); j < bigramProbes; j++ {
			acc[(bh+53*j)%d] += bigramWeight / float64(j+1)
		}
	}

	vec := make([]float32, dims)
	for i, v := range acc {
		vec[i] = float32(v)
	}
	return Normalize(vec)
}

// Normalize returns v scaled to unit L2 norm. The zero vector is
// returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// tokenize lowercases, strips punctuation and symbols, and splits on
// whitespace.
func tokenize(text string) []string {
	text = strings.ToLower(strings.TrimSpace(text))
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return r
	}, text)
	return strings.Fields(stripped)
}

// stringHash is the classic 32-bit polynomial string hash (h*31 + rune)
// with wrap-around, returned as a non-negative value.
func stringHash(s string) int64 {
	var h int32
	for _, r := range s {
		h = h*31 + int32(r)
	}
	if h < 0 {
		return -int64(h)
	}
	return int64(h)
}

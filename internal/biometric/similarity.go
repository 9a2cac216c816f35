// Package biometric implements template matching, enrollment and
// verification over simulated face/voice feature vectors, plus the
// platform-authenticator wrapper with its simulation fallback.
package biometric

import (
	"math"
)

// RandomSource supplies the randomness for the similarity inflation and
// the simulation fallback. Declared here, at the consumer, so tests can
// inject deterministic sequences.
type RandomSource interface {
	Float64() float64
}

// Inflation bounds for the similarity score. The randomized inflation
// models sensor and environmental noise; a production matcher would
// replace it with a calibrated probabilistic model while keeping the
// same pure-function contract.
const (
	inflationMin  = 0.80
	inflationMax  = 0.95
	similarityCap = 0.95
)

// Matcher computes bounded similarity between feature vectors.
type Matcher struct {
	rng RandomSource
}

// NewMatcher creates a matcher drawing noise from rng.
func NewMatcher(rng RandomSource) *Matcher {
	return &Matcher{rng: rng}
}

// Similarity returns a score in [0, 0.95] for two equal-length vectors.
// Vectors of different lengths, empty vectors, or zero-norm vectors
// score 0. The cosine similarity is scaled by an inflation factor drawn
// from [0.80, 0.95] and capped.
func (m *Matcher) Similarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	cosine := dot / (math.Sqrt(normA) * math.Sqrt(normB))

	inflation := inflationMin + m.rng.Float64()*(inflationMax-inflationMin)
	score := cosine * inflation

	if score > similarityCap {
		score = similarityCap
	}
	if score < 0 {
		score = 0
	}
	return score
}

package fraud

import (
	"math"
	"time"

	"github.com/facetophone/security-service/internal/domain"
)

// Heuristic reason messages.
const (
	ReasonHeuristicElevated = "behavioral model flagged elevated risk"
	ReasonHeuristicHigh     = "behavioral model flagged high risk pattern"
)

// HeuristicScorer is the placeholder for a learned fraud model. It maps
// three cheap features (time of day, normalized amount, recipient-string
// entropy) to a score in [0,1]. The contract worth keeping is that any
// secondary scorer can be plugged into the engine and combined via max,
// with its own explanatory reasons.
type HeuristicScorer struct {
	timeWeight    float64
	amountWeight  float64
	entropyWeight float64
}

// NewHeuristicScorer creates a scorer with the reference feature weights.
func NewHeuristicScorer() *HeuristicScorer {
	return &HeuristicScorer{
		timeWeight:    0.3,
		amountWeight:  0.45,
		entropyWeight: 0.25,
	}
}

// Score computes the heuristic risk for a transaction.
func (h *HeuristicScorer) Score(tx *domain.Transaction, now time.Time) (float64, []string) {
	score := h.timeWeight*timeOfDayFeature(now) +
		h.amountWeight*amountFeature(tx.Amount) +
		h.entropyWeight*entropyFeature(tx.Recipient)
	score = domain.ClampScore(score)

	var reasons []string
	switch {
	case score >= 0.8:
		reasons = append(reasons, ReasonHeuristicHigh)
	case score >= 0.7:
		reasons = append(reasons, ReasonHeuristicElevated)
	}
	return score, reasons
}

// timeOfDayFeature peaks deep at night and bottoms out midday.
func timeOfDayFeature(now time.Time) float64 {
	hour := now.Local().Hour()
	switch {
	case hour >= 1 && hour <= 4:
		return 1.0
	case hour >= 22 || hour == 0:
		return 0.7
	case hour >= 5 && hour <= 7:
		return 0.4
	default:
		return 0.1
	}
}

// amountFeature normalizes the amount against a 5000 ceiling.
func amountFeature(amount float64) float64 {
	return math.Min(1.0, amount/5000.0)
}

// entropyFeature is the Shannon entropy of the recipient string,
// normalized. Machine-generated recipient identifiers read as
// high-entropy noise next to ordinary names.
func entropyFeature(s string) float64 {
	if len(s) == 0 {
		return 0
	}
	freq := make(map[rune]float64)
	total := 0.0
	for _, r := range s {
		freq[r]++
		total++
	}
	entropy := 0.0
	for _, n := range freq {
		p := n / total
		entropy -= p * math.Log2(p)
	}
	maxEntropy := math.Log2(total)
	if maxEntropy == 0 {
		return 0
	}
	return math.Min(1.0, entropy/maxEntropy)
}

package domain

// RiskLevel represents the coarse risk tier derived from a score.
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// Severity classifies alerts and security events.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// FraudResult is the outcome of analyzing a single transaction.
// Derived, not stored directly; the persisted TransactionRecord carries
// the score and reasons.
type FraudResult struct {
	IsBlocked bool      `json:"is_blocked"`
	RiskScore float64   `json:"risk_score"` // clamped to [0,1]
	Reasons   []string  `json:"reasons"`
	RiskLevel RiskLevel `json:"risk_level"`
}

// RiskTiers holds the score cutoffs for the risk levels. The cutoffs are
// policy, not law: they are loaded from configuration.
type RiskTiers struct {
	Medium float64 // score >= Medium => at least medium
	High   float64 // score >= High => high
}

// DefaultRiskTiers mirrors the reference behavior (0.4 / 0.7).
func DefaultRiskTiers() RiskTiers {
	return RiskTiers{Medium: 0.4, High: 0.7}
}

// Level buckets a score into a risk level. The partition is total:
// every score in [0,1] maps to exactly one level.
func (t RiskTiers) Level(score float64) RiskLevel {
	switch {
	case score >= t.High:
		return RiskLevelHigh
	case score >= t.Medium:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

// ClampScore bounds a risk score to [0,1].
func ClampScore(s float64) float64 {
	if s > 1 {
		return 1
	}
	if s < 0 {
		return 0
	}
	return s
}

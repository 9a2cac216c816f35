// Package fraud implements the rule-based transaction risk engine.
//
// Analyze is pure given (transaction, profile, clock, randomness): it
// never mutates the profile. Recording the transaction into the profile
// is an explicit, separate step performed by the caller after analysis.
package fraud

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/facetophone/security-service/internal/config"
	"github.com/facetophone/security-service/internal/domain"
	"github.com/facetophone/security-service/internal/pkg/logger"
)

const tracerName = "github.com/facetophone/security-service/internal/fraud"

// Rule reason messages surfaced to callers and dashboards.
const (
	ReasonBiometricFailed = "biometric verification failed"
	ReasonAmountAnomaly   = "transaction amount significantly above user average"
	ReasonOddHour         = "transaction at unusual hour"
	ReasonRapidFire       = "rapid successive transactions"
	ReasonRoundAmount     = "large round-amount transfer"
	ReasonNewRecipient    = "large transfer to new recipient"
	ReasonDeviceAnomaly   = "possible device or SIM change detected"
	ReasonDailyVelocity   = "high transaction count in 24 hours"
)

// SecondaryScorer is an optional pluggable scorer combined with the rule
// score via max. A stand-in for a learned model: it carries its own
// explanatory reasons.
type SecondaryScorer interface {
	Score(tx *domain.Transaction, now time.Time) (float64, []string)
}

// Engine evaluates transactions against a user's rolling profile using
// independent weighted rules.
type Engine struct {
	cfg   config.FraudConfig
	tiers domain.RiskTiers
	rng   RandomSource
	now   func() time.Time

	secondary SecondaryScorer

	log *logger.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock injects the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRandomSource injects the randomness source, for tests.
func WithRandomSource(rng RandomSource) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithSecondaryScorer plugs in the heuristic/ML scorer.
func WithSecondaryScorer(s SecondaryScorer) Option {
	return func(e *Engine) { e.secondary = s }
}

// NewEngine creates a risk engine with the given policy.
func NewEngine(cfg config.FraudConfig, log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		cfg:   cfg,
		tiers: domain.RiskTiers{Medium: cfg.MediumTierThreshold, High: cfg.HighTierThreshold},
		rng:   NewRandomSource(),
		now:   time.Now,
		log:   log.Named("fraud_engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if cfg.EnableHeuristics && e.secondary == nil {
		e.secondary = NewHeuristicScorer()
	}
	return e
}

// Analyze scores a transaction against the profile. Expected business
// outcomes (block, low risk) are normal return values, never errors.
func (e *Engine) Analyze(ctx context.Context, tx *domain.Transaction, profile *domain.UserRiskProfile) *domain.FraudResult {
	start := e.now()
	_, span := otel.Tracer(tracerName).Start(ctx, "fraud.Analyze")
	defer span.End()

	score := 0.0
	reasons := make([]string, 0, 4)
	biometricFailed := false

	// Rule 1: failed biometric verification forces a block regardless of
	// the aggregate score.
	if !tx.UserVerified {
		score += e.cfg.BiometricFailWeight
		reasons = append(reasons, ReasonBiometricFailed)
		biometricFailed = true
	}

	// Rule 2: amount vs. rolling baseline. Skipped with no history.
	if profile.AverageTransactionAmount > 0 {
		ratio := tx.Amount / profile.AverageTransactionAmount
		if ratio > e.cfg.AmountAnomalyRatio {
			add := math.Min(e.cfg.AmountAnomalyMax, (ratio-e.cfg.AmountAnomalyRatio)*e.cfg.AmountAnomalySlope)
			score += add
			reasons = append(reasons, fmt.Sprintf("%s (%.1fx)", ReasonAmountAnomaly, ratio))
		}
	}

	// Rule 3: time of day.
	hour := tx.Timestamp.Local().Hour()
	if hour >= e.cfg.NightStartHour || hour <= e.cfg.NightEndHour {
		score += e.cfg.OddHourWeight
		reasons = append(reasons, ReasonOddHour)
	}

	// Rule 4: rapid-fire gap since the previous transaction.
	if profile.LastTransactionTime != nil {
		if tx.Timestamp.Sub(*profile.LastTransactionTime) < e.cfg.RapidFireWindow {
			score += e.cfg.RapidFireWeight
			reasons = append(reasons, ReasonRapidFire)
		}
	}

	// Rule 5: large round amounts.
	if tx.Amount >= e.cfg.RoundAmountFloor && tx.IsRoundAmount(100) {
		score += e.cfg.RoundAmountWeight
		reasons = append(reasons, ReasonRoundAmount)
	}

	// Rule 6: sizable transfer to a recipient never seen before.
	if tx.Amount > e.cfg.NewRecipientMinAmount && !profile.HasRecipient(tx.Recipient) {
		score += e.cfg.NewRecipientWeight
		reasons = append(reasons, ReasonNewRecipient)
	}

	// Rule 7: simulated device/SIM anomaly. Randomness standing in for a
	// real device-fingerprint comparison; do not ship as-is to production.
	if e.rng.Float64() < e.cfg.DeviceAnomalyRate {
		score += e.cfg.DeviceAnomalyWeight
		reasons = append(reasons, ReasonDeviceAnomaly)
	}

	// Rule 8: trailing-24h transaction count.
	if profile.CountSince(tx.Timestamp.Add(-24*time.Hour)) >= e.cfg.DailyVelocityCount {
		score += e.cfg.DailyVelocityWeight
		reasons = append(reasons, ReasonDailyVelocity)
	}

	// Optional secondary scorer, combined via max.
	if e.secondary != nil {
		hScore, hReasons := e.secondary.Score(tx, tx.Timestamp)
		if hScore > score {
			score = hScore
		}
		reasons = append(reasons, hReasons...)
	}

	score = domain.ClampScore(score)

	result := &domain.FraudResult{
		IsBlocked: biometricFailed || score >= e.cfg.BlockThreshold,
		RiskScore: score,
		Reasons:   reasons,
		RiskLevel: e.tiers.Level(score),
	}

	span.SetAttributes(
		attribute.Float64("fraud.risk_score", result.RiskScore),
		attribute.String("fraud.risk_level", string(result.RiskLevel)),
		attribute.Bool("fraud.blocked", result.IsBlocked),
	)
	e.log.AnalysisCompleted(tx.UserID, result.RiskScore, string(result.RiskLevel), result.IsBlocked, e.now().Sub(start).Milliseconds())

	return result
}

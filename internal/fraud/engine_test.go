package fraud

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facetophone/security-service/internal/config"
	"github.com/facetophone/security-service/internal/domain"
	"github.com/facetophone/security-service/internal/pkg/logger"
)

// noAnomaly suppresses the randomized device-anomaly rule so tests only
// see the deterministic rules.
func noAnomaly() Option {
	return WithRandomSource(NewFixedRandomSource(0.99))
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{noAnomaly()}, opts...)
	return NewEngine(config.FraudDefaults(), logger.NewNop(), opts...)
}

func daytime() time.Time {
	return time.Date(2026, 3, 10, 14, 0, 0, 0, time.Local)
}

// seedProfile records history entries ending at the given time, one hour
// apart, all to the same recipient.
func seedProfile(userID, recipient string, amounts []float64, end time.Time) *domain.UserRiskProfile {
	p := domain.NewUserRiskProfile(userID)
	for i, amount := range amounts {
		ts := end.Add(-time.Duration(len(amounts)-1-i) * time.Hour)
		p.RecordTransaction(&domain.Transaction{UserID: userID, Amount: amount, Recipient: recipient, Timestamp: ts, UserVerified: true})
	}
	return p
}

func TestAnalyzeOrdinaryTransactionIsLowRisk(t *testing.T) {
	e := newTestEngine(t)
	tx := &domain.Transaction{UserID: "u1", Amount: 50, Recipient: "Jane", Timestamp: daytime(), UserVerified: true}

	res := e.Analyze(context.Background(), tx, domain.NewUserRiskProfile("u1"))

	assert.False(t, res.IsBlocked)
	assert.Equal(t, domain.RiskLevelLow, res.RiskLevel)
	assert.Zero(t, res.RiskScore)
	assert.Empty(t, res.Reasons)
}

func TestAnalyzeFailedVerificationForcesBlock(t *testing.T) {
	e := newTestEngine(t)
	tx := &domain.Transaction{UserID: "u1", Amount: 100, Recipient: "Jane", Timestamp: daytime(), UserVerified: false}

	res := e.Analyze(context.Background(), tx, domain.NewUserRiskProfile("u1"))

	assert.True(t, res.IsBlocked)
	assert.Equal(t, domain.RiskLevelHigh, res.RiskLevel)
	assert.InDelta(t, 0.8, res.RiskScore, 1e-9)
	assert.Contains(t, res.Reasons, ReasonBiometricFailed)
}

func TestAnalyzeAmountFarAboveAverage(t *testing.T) {
	e := newTestEngine(t)
	// Baseline average of 50, all history more than a day old.
	profile := seedProfile("u1", "Jane", []float64{40, 50, 60}, daytime().Add(-30*time.Hour))
	require.InDelta(t, 50, profile.AverageTransactionAmount, 1e-9)

	tx := &domain.Transaction{UserID: "u1", Amount: 500, Recipient: "Jane", Timestamp: daytime(), UserVerified: true}
	res := e.Analyze(context.Background(), tx, profile)

	// A 10x ratio saturates the amount rule at its cap.
	assert.InDelta(t, 0.6, res.RiskScore, 1e-9)
	assert.True(t, res.IsBlocked)
	assert.Equal(t, domain.RiskLevelMedium, res.RiskLevel)
	require.Len(t, res.Reasons, 1)
	assert.Contains(t, res.Reasons[0], ReasonAmountAnomaly)
	assert.Contains(t, res.Reasons[0], "10.0x")
}

func TestAnalyzeRapidFire(t *testing.T) {
	e := newTestEngine(t)
	profile := seedProfile("u1", "Jane", []float64{50}, daytime().Add(-2*time.Minute))

	tx := &domain.Transaction{UserID: "u1", Amount: 50, Recipient: "Jane", Timestamp: daytime(), UserVerified: true}
	res := e.Analyze(context.Background(), tx, profile)

	assert.False(t, res.IsBlocked)
	assert.Equal(t, domain.RiskLevelMedium, res.RiskLevel)
	assert.InDelta(t, 0.4, res.RiskScore, 1e-9)
	assert.Contains(t, res.Reasons, ReasonRapidFire)
}

func TestAnalyzeOddHour(t *testing.T) {
	e := newTestEngine(t)
	night := time.Date(2026, 3, 10, 23, 15, 0, 0, time.Local)
	tx := &domain.Transaction{UserID: "u1", Amount: 50, Recipient: "Jane", Timestamp: night, UserVerified: true}

	res := e.Analyze(context.Background(), tx, domain.NewUserRiskProfile("u1"))

	assert.InDelta(t, 0.3, res.RiskScore, 1e-9)
	assert.Contains(t, res.Reasons, ReasonOddHour)
}

func TestAnalyzeRoundAmountToKnownRecipient(t *testing.T) {
	e := newTestEngine(t)
	profile := seedProfile("u1", "Jane", []float64{2000, 2000}, daytime().Add(-30*time.Hour))

	tx := &domain.Transaction{UserID: "u1", Amount: 2000, Recipient: "Jane", Timestamp: daytime(), UserVerified: true}
	res := e.Analyze(context.Background(), tx, profile)

	assert.InDelta(t, 0.2, res.RiskScore, 1e-9)
	assert.Equal(t, []string{ReasonRoundAmount}, res.Reasons)
}

func TestAnalyzeNewRecipientLargeTransfer(t *testing.T) {
	e := newTestEngine(t)
	profile := seedProfile("u1", "Jane", []float64{750, 750}, daytime().Add(-30*time.Hour))

	tx := &domain.Transaction{UserID: "u1", Amount: 750, Recipient: "Mallory", Timestamp: daytime(), UserVerified: true}
	res := e.Analyze(context.Background(), tx, profile)

	assert.InDelta(t, 0.3, res.RiskScore, 1e-9)
	assert.Contains(t, res.Reasons, ReasonNewRecipient)
}

func TestAnalyzeDailyVelocity(t *testing.T) {
	e := newTestEngine(t)
	profile := seedProfile("u1", "Jane", []float64{50, 50, 50, 50, 50}, daytime().Add(-time.Hour))

	tx := &domain.Transaction{UserID: "u1", Amount: 50, Recipient: "Jane", Timestamp: daytime(), UserVerified: true}
	res := e.Analyze(context.Background(), tx, profile)

	assert.InDelta(t, 0.4, res.RiskScore, 1e-9)
	assert.Contains(t, res.Reasons, ReasonDailyVelocity)
}

func TestAnalyzeDeviceAnomalyIsRandomized(t *testing.T) {
	e := NewEngine(config.FraudDefaults(), logger.NewNop(), WithRandomSource(NewFixedRandomSource(0.05)))
	tx := &domain.Transaction{UserID: "u1", Amount: 50, Recipient: "Jane", Timestamp: daytime(), UserVerified: true}

	res := e.Analyze(context.Background(), tx, domain.NewUserRiskProfile("u1"))

	assert.InDelta(t, 0.7, res.RiskScore, 1e-9)
	assert.True(t, res.IsBlocked)
	assert.Contains(t, res.Reasons, ReasonDeviceAnomaly)
}

func TestAnalyzeScoreIsClamped(t *testing.T) {
	// Every rule that can fire does: far above the score ceiling before
	// clamping.
	e := NewEngine(config.FraudDefaults(), logger.NewNop(), WithRandomSource(NewFixedRandomSource(0.0)))
	night := time.Date(2026, 3, 10, 23, 0, 0, 0, time.Local)
	profile := seedProfile("u1", "Jane", []float64{50, 50, 50, 50, 50}, night.Add(-time.Minute))

	tx := &domain.Transaction{UserID: "u1", Amount: 1000, Recipient: "Mallory", Timestamp: night, UserVerified: false}
	res := e.Analyze(context.Background(), tx, profile)

	assert.Equal(t, 1.0, res.RiskScore)
	assert.True(t, res.IsBlocked)
	assert.Equal(t, domain.RiskLevelHigh, res.RiskLevel)
}

func TestAnalyzeIsDeterministicGivenFixedRandomness(t *testing.T) {
	tx := &domain.Transaction{UserID: "u1", Amount: 750, Recipient: "Mallory", Timestamp: daytime(), UserVerified: true}
	profile := seedProfile("u1", "Jane", []float64{100, 100}, daytime().Add(-30*time.Hour))

	first := newTestEngine(t).Analyze(context.Background(), tx, profile)
	second := newTestEngine(t).Analyze(context.Background(), tx, profile)

	assert.Equal(t, first.RiskScore, second.RiskScore)
	assert.Equal(t, first.Reasons, second.Reasons)
	assert.Equal(t, first.IsBlocked, second.IsBlocked)
}

func TestAnalyzeDoesNotMutateProfile(t *testing.T) {
	e := newTestEngine(t)
	profile := seedProfile("u1", "Jane", []float64{50}, daytime().Add(-time.Hour))
	before := len(profile.TransactionHistory)

	tx := &domain.Transaction{UserID: "u1", Amount: 9999, Recipient: "Mallory", Timestamp: daytime(), UserVerified: false}
	e.Analyze(context.Background(), tx, profile)

	assert.Len(t, profile.TransactionHistory, before)
	assert.InDelta(t, 50, profile.AverageTransactionAmount, 1e-9)
}

type stubScorer struct {
	score   float64
	reasons []string
}

func (s stubScorer) Score(*domain.Transaction, time.Time) (float64, []string) {
	return s.score, s.reasons
}

func TestAnalyzeSecondaryScorerCombinesViaMax(t *testing.T) {
	e := newTestEngine(t, WithSecondaryScorer(stubScorer{score: 0.9, reasons: []string{"model flagged"}}))
	tx := &domain.Transaction{UserID: "u1", Amount: 50, Recipient: "Jane", Timestamp: daytime(), UserVerified: true}

	res := e.Analyze(context.Background(), tx, domain.NewUserRiskProfile("u1"))

	assert.InDelta(t, 0.9, res.RiskScore, 1e-9)
	assert.True(t, res.IsBlocked)
	assert.Contains(t, res.Reasons, "model flagged")
}

func TestAnalyzeSecondaryScorerLowerThanRules(t *testing.T) {
	e := newTestEngine(t, WithSecondaryScorer(stubScorer{score: 0.1, reasons: []string{"model quiet"}}))
	tx := &domain.Transaction{UserID: "u1", Amount: 100, Recipient: "Jane", Timestamp: daytime(), UserVerified: false}

	res := e.Analyze(context.Background(), tx, domain.NewUserRiskProfile("u1"))

	// Rule score wins, but the secondary reasons are still attached.
	assert.InDelta(t, 0.8, res.RiskScore, 1e-9)
	assert.Contains(t, res.Reasons, "model quiet")
}

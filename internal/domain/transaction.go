package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TransactionStatus represents the lifecycle state of a transaction record.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusBlocked   TransactionStatus = "blocked"
	StatusFailed    TransactionStatus = "failed"
)

// Transaction is the transient input to fraud analysis. It is not retained
// itself; only its effect on the profile and the resulting record survive.
type Transaction struct {
	UserID    string    `json:"user_id"`
	Amount    float64   `json:"amount"`
	Recipient string    `json:"recipient"`
	Timestamp time.Time `json:"timestamp"`

	// UserVerified reports whether biometric verification succeeded for
	// this attempt. False forces a block regardless of the rule score.
	UserVerified bool `json:"user_verified"`

	DeviceFingerprint string `json:"device_fingerprint,omitempty"`
	Location          string `json:"location,omitempty"`
}

// Validate checks the transaction input. Non-positive amounts and empty
// recipients are caller mistakes, reported as ValidationError.
func (t *Transaction) Validate() error {
	if t.Amount <= 0 {
		return NewValidationError("amount", "must be positive")
	}
	if strings.TrimSpace(t.Recipient) == "" {
		return NewValidationError("recipient", "must not be empty")
	}
	return nil
}

// IsRoundAmount reports whether the amount is an exact multiple of the
// given step. Large round transfers are a weak fraud signal.
func (t *Transaction) IsRoundAmount(step float64) bool {
	if step <= 0 {
		return false
	}
	cents := int64(t.Amount*100 + 0.5)
	stepCents := int64(step * 100)
	return cents%stepCents == 0
}

// TransactionRecord is the persisted, append-only outcome of a transaction
// attempt. Immutable after creation.
type TransactionRecord struct {
	ID     uuid.UUID `json:"id"`
	UserID string    `json:"user_id"`

	Amount    float64           `json:"amount"`
	Recipient string            `json:"recipient"`
	Status    TransactionStatus `json:"status"`

	FraudScore        float64  `json:"fraud_score"` // [0,1]
	FraudReasons      []string `json:"fraud_reasons,omitempty"`
	BiometricVerified bool     `json:"biometric_verified"`

	DeviceFingerprint string `json:"device_fingerprint,omitempty"`
	Location          string `json:"location,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewTransactionRecord builds the immutable record for an analyzed attempt.
func NewTransactionRecord(tx *Transaction, result *FraudResult) *TransactionRecord {
	status := StatusCompleted
	if result.IsBlocked {
		status = StatusBlocked
	}
	return &TransactionRecord{
		ID:                uuid.New(),
		UserID:            tx.UserID,
		Amount:            tx.Amount,
		Recipient:         tx.Recipient,
		Status:            status,
		FraudScore:        result.RiskScore,
		FraudReasons:      result.Reasons,
		BiometricVerified: tx.UserVerified,
		DeviceFingerprint: tx.DeviceFingerprint,
		Location:          tx.Location,
		CreatedAt:         time.Now(),
	}
}

// IsBlocked returns true if the attempt was blocked.
func (r *TransactionRecord) IsBlocked() bool {
	return r.Status == StatusBlocked
}

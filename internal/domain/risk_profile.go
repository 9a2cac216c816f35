package domain

import (
	"time"
)

// MaxHistoryEntries bounds the per-user rolling transaction history.
// Oldest entries are evicted first.
const MaxHistoryEntries = 50

// HistoryEntry is one retained transaction in the rolling baseline.
type HistoryEntry struct {
	Amount    float64   `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
	Recipient string    `json:"recipient"`
}

// UserRiskProfile holds the per-user rolling statistics used as the fraud
// baseline. Created lazily on the first transaction, mutated after every
// analyzed transaction, never deleted except by a full reset.
type UserRiskProfile struct {
	UserID string `json:"user_id"`

	AverageTransactionAmount float64        `json:"average_transaction_amount"`
	TransactionHistory       []HistoryEntry `json:"transaction_history"`
	LastTransactionTime      *time.Time     `json:"last_transaction_time,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUserRiskProfile creates an empty profile for a user.
func NewUserRiskProfile(userID string) *UserRiskProfile {
	now := time.Now()
	return &UserRiskProfile{
		UserID:             userID,
		TransactionHistory: make([]HistoryEntry, 0, MaxHistoryEntries),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// RecordTransaction appends the transaction to the rolling history,
// evicting the oldest entry beyond the bound, and recomputes the average
// and last-transaction time. This is the explicit profile-update step the
// caller performs after analysis; Analyze itself never mutates the profile.
func (p *UserRiskProfile) RecordTransaction(tx *Transaction) {
	p.TransactionHistory = append(p.TransactionHistory, HistoryEntry{
		Amount:    tx.Amount,
		Timestamp: tx.Timestamp,
		Recipient: tx.Recipient,
	})
	if len(p.TransactionHistory) > MaxHistoryEntries {
		p.TransactionHistory = p.TransactionHistory[len(p.TransactionHistory)-MaxHistoryEntries:]
	}

	var total float64
	for _, e := range p.TransactionHistory {
		total += e.Amount
	}
	p.AverageTransactionAmount = total / float64(len(p.TransactionHistory))

	ts := tx.Timestamp
	p.LastTransactionTime = &ts
	p.UpdatedAt = time.Now()
}

// HasRecipient reports whether the recipient appears anywhere in the
// retained history.
func (p *UserRiskProfile) HasRecipient(recipient string) bool {
	for _, e := range p.TransactionHistory {
		if e.Recipient == recipient {
			return true
		}
	}
	return false
}

// CountSince returns how many retained transactions fall at or after the
// given instant. Used for the trailing-24h velocity rule.
func (p *UserRiskProfile) CountSince(since time.Time) int {
	n := 0
	for _, e := range p.TransactionHistory {
		if !e.Timestamp.Before(since) {
			n++
		}
	}
	return n
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// AlertType represents the kind of security alert.
type AlertType string

const (
	AlertTypeFraudAttempt     AlertType = "fraud_attempt"
	AlertTypeBiometricFailure AlertType = "biometric_failure"
	AlertTypeSuspiciousLogin  AlertType = "suspicious_login"
	AlertTypeSystemAnomaly    AlertType = "system_anomaly"
)

// SecurityAlert is a user-facing security notification derived from
// fraud-engine and event-log output. Mutated only by resolution.
type SecurityAlert struct {
	ID          uuid.UUID      `json:"id"`
	Type        AlertType      `json:"type"`
	Severity    Severity       `json:"severity"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Timestamp   time.Time      `json:"timestamp"`
	Metadata    map[string]any `json:"metadata,omitempty"`

	Resolved   bool       `json:"resolved"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy string     `json:"resolved_by,omitempty"`
}

// NewSecurityAlert creates an unresolved alert stamped with the current time.
func NewSecurityAlert(alertType AlertType, severity Severity, title, description string, metadata map[string]any) *SecurityAlert {
	return &SecurityAlert{
		ID:          uuid.New(),
		Type:        alertType,
		Severity:    severity,
		Title:       title,
		Description: description,
		Timestamp:   time.Now(),
		Metadata:    metadata,
	}
}

// Resolve marks the alert resolved. Resolution only appends fields; the
// creation timestamp is never mutated.
func (a *SecurityAlert) Resolve(by string) {
	now := time.Now()
	a.Resolved = true
	a.ResolvedAt = &now
	a.ResolvedBy = by
}

// IsCritical reports whether the alert carries critical severity.
func (a *SecurityAlert) IsCritical() bool {
	return a.Severity == SeverityCritical
}

// AlertStats aggregates the retained alerts for dashboard display.
type AlertStats struct {
	Total       int `json:"total"`
	Unresolved  int `json:"unresolved"`
	Critical    int `json:"critical"`
	High        int `json:"high"`
	Medium      int `json:"medium"`
	Low         int `json:"low"`
	Last24Hours int `json:"last_24_hours"`
}

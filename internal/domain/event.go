package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType classifies security log events.
type EventType string

const (
	EventTypeLogin       EventType = "login"
	EventTypeFraudAlert  EventType = "fraud_alert"
	EventTypeAIAction    EventType = "ai_action"
	EventTypeChatbot     EventType = "chatbot_message"
	EventTypeTransaction EventType = "transaction"
	EventTypeBiometric   EventType = "biometric"
	EventTypeUSSD        EventType = "ussd"
	EventTypeSMSScan     EventType = "sms_scan"
	EventTypeSIMSwap     EventType = "sim_swap"
	EventTypeSystem      EventType = "system"
)

// LogEvent is one entry in the append-only security event log. The details
// map is encrypted at rest by the store and decrypted on every read.
type LogEvent struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Severity  Severity  `json:"severity"`
	UserID    string    `json:"user_id,omitempty"`

	Details map[string]any `json:"details,omitempty"`

	Location          string `json:"location,omitempty"`
	DeviceFingerprint string `json:"device_fingerprint,omitempty"`
}

// NewLogEvent creates an event stamped with a fresh id and the current time.
func NewLogEvent(eventType EventType, severity Severity, details map[string]any, userID string) *LogEvent {
	return &LogEvent{
		ID:        uuid.New(),
		Timestamp: time.Now(),
		Type:      eventType,
		Severity:  severity,
		UserID:    userID,
		Details:   details,
	}
}

// EventFilter narrows an event-log query. Zero values match everything.
type EventFilter struct {
	Type     EventType `json:"type,omitempty"`
	Severity Severity  `json:"severity,omitempty"`
	UserID   string    `json:"user_id,omitempty"`
	From     time.Time `json:"from,omitempty"`
	To       time.Time `json:"to,omitempty"`
}

// Matches reports whether the event passes every set filter field.
func (f *EventFilter) Matches(e *LogEvent) bool {
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.Severity != "" && e.Severity != f.Severity {
		return false
	}
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if !f.From.IsZero() && e.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Timestamp.After(f.To) {
		return false
	}
	return true
}

// Package alerts derives user-facing security alerts from fraud-engine
// and event-log output and tracks their resolution state.
package alerts

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/facetophone/security-service/internal/domain"
	"github.com/facetophone/security-service/internal/pkg/logger"
	"github.com/facetophone/security-service/internal/storage"
)

// Monitor retains the most recent alerts in a bounded, newest-first
// buffer and mirrors them best-effort into the encrypted store.
type Monitor struct {
	store       storage.Store
	log         *logger.Logger
	maxRetained int

	// Suspicious score cutoff for allowed-but-risky transactions.
	suspiciousScore float64

	mu     sync.RWMutex
	alerts []*domain.SecurityAlert // newest first
}

// NewMonitor creates an alert monitor. store may be nil for callers that
// only want the in-memory buffer.
func NewMonitor(store storage.Store, log *logger.Logger, maxRetained int, suspiciousScore float64) *Monitor {
	if maxRetained <= 0 {
		maxRetained = 200
	}
	return &Monitor{
		store:           store,
		log:             log.Named("alert_monitor"),
		maxRetained:     maxRetained,
		suspiciousScore: suspiciousScore,
		alerts:          make([]*domain.SecurityAlert, 0, maxRetained),
	}
}

// Raise creates and retains a new alert, dropping the oldest once the
// retention bound is reached.
func (m *Monitor) Raise(alertType domain.AlertType, severity domain.Severity, title, description string, metadata map[string]any) *domain.SecurityAlert {
	alert := domain.NewSecurityAlert(alertType, severity, title, description, metadata)

	m.mu.Lock()
	m.alerts = append([]*domain.SecurityAlert{alert}, m.alerts...)
	if len(m.alerts) > m.maxRetained {
		m.alerts = m.alerts[:m.maxRetained]
	}
	m.mu.Unlock()

	m.persist(alert)
	m.log.AlertRaised(alert.ID.String(), string(alert.Type), string(alert.Severity), alert.Title)
	return alert
}

// Resolve marks an alert resolved. Returns false when the id is unknown:
// an expected caller mistake, not a system failure.
func (m *Monitor) Resolve(id uuid.UUID, resolvedBy string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.alerts {
		if a.ID == id {
			if a.Resolved {
				return true
			}
			a.Resolve(resolvedBy)
			m.persist(a)
			return true
		}
	}
	return false
}

// List returns the retained alerts, newest first.
func (m *Monitor) List() []*domain.SecurityAlert {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.SecurityAlert, len(m.alerts))
	copy(out, m.alerts)
	return out
}

// Stats aggregates the retained alerts by a full scan, which is fine at
// this retention bound.
func (m *Monitor) Stats() domain.AlertStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := domain.AlertStats{Total: len(m.alerts)}
	dayAgo := time.Now().Add(-24 * time.Hour)
	for _, a := range m.alerts {
		if !a.Resolved {
			stats.Unresolved++
		}
		switch a.Severity {
		case domain.SeverityCritical:
			stats.Critical++
		case domain.SeverityHigh:
			stats.High++
		case domain.SeverityMedium:
			stats.Medium++
		case domain.SeverityLow:
			stats.Low++
		}
		if a.Timestamp.After(dayAgo) {
			stats.Last24Hours++
		}
	}
	return stats
}

// MonitorTransaction derives alerts from a fraud result.
// Blocked transactions raise fraud_attempt (critical when the risk level
// is high, else high severity); a biometric-failure reason raises a
// critical biometric_failure; allowed-but-risky raises suspicious_login.
func (m *Monitor) MonitorTransaction(tx *domain.Transaction, result *domain.FraudResult) []*domain.SecurityAlert {
	var raised []*domain.SecurityAlert

	metadata := map[string]any{
		"user_id":    tx.UserID,
		"amount":     tx.Amount,
		"recipient":  tx.Recipient,
		"risk_score": result.RiskScore,
		"reasons":    result.Reasons,
	}

	if result.IsBlocked {
		severity := domain.SeverityHigh
		if result.RiskLevel == domain.RiskLevelHigh {
			severity = domain.SeverityCritical
		}
		raised = append(raised, m.Raise(
			domain.AlertTypeFraudAttempt,
			severity,
			"Transaction blocked",
			fmt.Sprintf("A transfer of %.2f to %q was blocked by fraud screening.", tx.Amount, tx.Recipient),
			metadata,
		))
	}

	if hasReason(result.Reasons, "biometric") {
		raised = append(raised, m.Raise(
			domain.AlertTypeBiometricFailure,
			domain.SeverityCritical,
			"Biometric verification failed",
			"A transaction was attempted without successful biometric verification. Retry verification or contact support.",
			metadata,
		))
	}

	if !result.IsBlocked && result.RiskScore > m.suspiciousScore {
		raised = append(raised, m.Raise(
			domain.AlertTypeSuspiciousLogin,
			domain.SeverityMedium,
			"Unusual activity allowed",
			fmt.Sprintf("A transfer of %.2f was allowed but scored %.2f on fraud screening.", tx.Amount, result.RiskScore),
			metadata,
		))
	}

	return raised
}

// NotifyCritical raises a system_anomaly alert for a critical event.
// Implements the event log's fire-and-forget critical hook.
func (m *Monitor) NotifyCritical(event *domain.LogEvent) {
	m.Raise(
		domain.AlertTypeSystemAnomaly,
		domain.SeverityCritical,
		fmt.Sprintf("Critical %s event", event.Type),
		"A critical-severity security event was recorded.",
		map[string]any{"event_id": event.ID.String(), "event_type": string(event.Type), "user_id": event.UserID},
	)
}

// persist mirrors an alert into the encrypted store, best-effort.
func (m *Monitor) persist(alert *domain.SecurityAlert) {
	if m.store == nil {
		return
	}
	indexes := map[string]string{
		storage.IndexType:     string(alert.Type),
		storage.IndexSeverity: string(alert.Severity),
	}
	if err := m.store.Put(context.Background(), storage.CollectionAlerts, alert.ID.String(), alert, indexes); err != nil {
		m.log.Error("failed to persist alert", logger.ErrorField(err))
	}
}

func hasReason(reasons []string, substr string) bool {
	for _, r := range reasons {
		if strings.Contains(strings.ToLower(r), substr) {
			return true
		}
	}
	return false
}

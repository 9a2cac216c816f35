package fraud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/facetophone/security-service/internal/domain"
	"github.com/facetophone/security-service/internal/pkg/logger"
	"github.com/facetophone/security-service/internal/storage"
)

// EventRecorder persists security events. Implemented by the event log.
type EventRecorder interface {
	Append(ctx context.Context, eventType domain.EventType, severity domain.Severity, details map[string]any, userID string) uuid.UUID
}

// TransactionMonitor derives alerts from fraud results. Implemented by
// the alert monitor.
type TransactionMonitor interface {
	MonitorTransaction(tx *domain.Transaction, result *domain.FraudResult) []*domain.SecurityAlert
}

// Processor runs the full transaction flow: validate, analyze, persist
// the record, update the profile, then record and surface the outcome.
// The engine decides; the processor records. Writes for one user are
// serialized so rapid double-submission cannot corrupt the profile.
type Processor struct {
	engine  *Engine
	store   storage.Store
	events  EventRecorder
	monitor TransactionMonitor
	log     *logger.Logger

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// NewProcessor creates a transaction processor. events and monitor may
// be nil for embedded callers that only want scoring and persistence.
func NewProcessor(engine *Engine, store storage.Store, events EventRecorder, monitor TransactionMonitor, log *logger.Logger) *Processor {
	return &Processor{
		engine:    engine,
		store:     store,
		events:    events,
		monitor:   monitor,
		log:       log.Named("processor"),
		userLocks: make(map[string]*sync.Mutex),
	}
}

// Process analyzes one transaction attempt end to end and returns the
// persisted record alongside the fraud result. A blocked transaction is
// a normal outcome, not an error.
func (p *Processor) Process(ctx context.Context, tx *domain.Transaction) (*domain.TransactionRecord, *domain.FraudResult, error) {
	if err := tx.Validate(); err != nil {
		return nil, nil, err
	}

	lock := p.userLock(tx.UserID)
	lock.Lock()
	defer lock.Unlock()

	profile, err := p.loadOrCreateProfile(ctx, tx.UserID)
	if err != nil {
		return nil, nil, err
	}

	result := p.engine.Analyze(ctx, tx, profile)

	record := domain.NewTransactionRecord(tx, result)
	recordIndexes := map[string]string{
		storage.IndexUserID: record.UserID,
		storage.IndexType:   string(record.Status),
	}
	if err := p.store.Put(ctx, storage.CollectionTransactions, record.ID.String(), record, recordIndexes); err != nil {
		return nil, nil, fmt.Errorf("persist transaction record: %w", err)
	}

	// The profile update is a second, independent write. A crash between
	// the two is tolerated: RebuildProfile re-derives the profile from
	// the transaction records.
	profile.RecordTransaction(tx)
	if err := p.saveProfile(ctx, profile); err != nil {
		return nil, nil, fmt.Errorf("persist profile: %w", err)
	}

	p.recordOutcome(ctx, tx, result)

	if result.IsBlocked {
		p.log.TransactionBlocked(tx.UserID, tx.Amount, result.Reasons)
	}

	return record, result, nil
}

// Profile returns the user's risk profile, creating it lazily.
func (p *Processor) Profile(ctx context.Context, userID string) (*domain.UserRiskProfile, error) {
	return p.loadOrCreateProfile(ctx, userID)
}

// RebuildProfile re-derives a user's profile from the persisted
// transaction records. Idempotent; the repair strategy for a crash
// between the record write and the profile write.
func (p *Processor) RebuildProfile(ctx context.Context, userID string) (*domain.UserRiskProfile, error) {
	raw, err := p.store.GetAllByIndex(ctx, storage.CollectionTransactions, storage.IndexUserID, userID)
	if err != nil {
		return nil, fmt.Errorf("load transaction records: %w", err)
	}

	records := make([]*domain.TransactionRecord, 0, len(raw))
	for _, doc := range raw {
		var record domain.TransactionRecord
		if err := json.Unmarshal(doc, &record); err != nil {
			return nil, fmt.Errorf("unmarshal transaction record: %w", err)
		}
		records = append(records, &record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})

	profile := domain.NewUserRiskProfile(userID)
	for _, r := range records {
		profile.RecordTransaction(&domain.Transaction{
			UserID:    r.UserID,
			Amount:    r.Amount,
			Recipient: r.Recipient,
			Timestamp: r.CreatedAt,
		})
	}

	if err := p.saveProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (p *Processor) loadOrCreateProfile(ctx context.Context, userID string) (*domain.UserRiskProfile, error) {
	var profile domain.UserRiskProfile
	err := p.store.Get(ctx, storage.CollectionProfiles, userID, &profile)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewUserRiskProfile(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return &profile, nil
}

func (p *Processor) saveProfile(ctx context.Context, profile *domain.UserRiskProfile) error {
	indexes := map[string]string{storage.IndexUserID: profile.UserID}
	return p.store.Put(ctx, storage.CollectionProfiles, profile.UserID, profile, indexes)
}

// recordOutcome emits the event-log entry and derived alerts for an
// analysis. Both are best-effort surfaces; neither can fail the flow.
func (p *Processor) recordOutcome(ctx context.Context, tx *domain.Transaction, result *domain.FraudResult) {
	if p.events != nil {
		severity := domain.SeverityLow
		switch {
		case result.IsBlocked && result.RiskLevel == domain.RiskLevelHigh:
			severity = domain.SeverityCritical
		case result.IsBlocked:
			severity = domain.SeverityHigh
		case result.RiskLevel == domain.RiskLevelMedium:
			severity = domain.SeverityMedium
		}
		p.events.Append(ctx, domain.EventTypeTransaction, severity, map[string]any{
			"amount":     tx.Amount,
			"recipient":  tx.Recipient,
			"risk_score": result.RiskScore,
			"risk_level": string(result.RiskLevel),
			"blocked":    result.IsBlocked,
			"reasons":    result.Reasons,
		}, tx.UserID)
	}

	if p.monitor != nil {
		p.monitor.MonitorTransaction(tx, result)
	}
}

func (p *Processor) userLock(userID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		p.userLocks[userID] = lock
	}
	return lock
}

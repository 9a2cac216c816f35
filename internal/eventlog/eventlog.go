// Package eventlog implements the append-only, encrypted security event
// ledger. Appends are best-effort: a persistence failure is logged and
// swallowed so the transaction flow that triggered the event is never
// blocked by its own audit trail. Fraud decisions are not best-effort;
// logging is.
package eventlog

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/google/uuid"

	"github.com/facetophone/security-service/internal/domain"
	"github.com/facetophone/security-service/internal/pkg/logger"
	"github.com/facetophone/security-service/internal/storage"
)

// CriticalHook receives critical-severity events as a fire-and-forget
// side effect of Append. Implemented by the alert monitor.
type CriticalHook interface {
	NotifyCritical(event *domain.LogEvent)
}

// Log is the security event ledger backed by the encrypted store.
type Log struct {
	store storage.Store
	log   *logger.Logger

	critical CriticalHook
}

// New creates an event log. hook may be nil.
func New(store storage.Store, log *logger.Logger, hook CriticalHook) *Log {
	return &Log{
		store:    store,
		log:      log.Named("eventlog"),
		critical: hook,
	}
}

// Append records a security event and returns its id. Never fails: a
// persistence error is logged and the id of the (unpersisted) event is
// still returned so callers are not blocked.
func (l *Log) Append(ctx context.Context, eventType domain.EventType, severity domain.Severity, details map[string]any, userID string) uuid.UUID {
	event := domain.NewLogEvent(eventType, severity, details, userID)

	indexes := map[string]string{
		storage.IndexType:     string(event.Type),
		storage.IndexSeverity: string(event.Severity),
	}
	if event.UserID != "" {
		indexes[storage.IndexUserID] = event.UserID
	}

	if err := l.store.Put(ctx, storage.CollectionEvents, event.ID.String(), event, indexes); err != nil {
		l.log.EventAppendFailed(string(eventType), err)
	}

	if event.Severity == domain.SeverityCritical && l.critical != nil {
		l.critical.NotifyCritical(event)
	}

	return event.ID
}

// Query returns the events passing the filter, newest first. Every
// candidate record is decrypted on the read path.
func (l *Log) Query(ctx context.Context, filter domain.EventFilter) ([]*domain.LogEvent, error) {
	var (
		raw []json.RawMessage
		err error
	)
	// Narrow with the most selective available index, then filter the
	// remaining fields in memory.
	switch {
	case filter.UserID != "":
		raw, err = l.store.GetAllByIndex(ctx, storage.CollectionEvents, storage.IndexUserID, filter.UserID)
	case filter.Type != "":
		raw, err = l.store.GetAllByIndex(ctx, storage.CollectionEvents, storage.IndexType, string(filter.Type))
	case filter.Severity != "":
		raw, err = l.store.GetAllByIndex(ctx, storage.CollectionEvents, storage.IndexSeverity, string(filter.Severity))
	default:
		raw, err = l.store.GetAll(ctx, storage.CollectionEvents)
	}
	if err != nil {
		return nil, err
	}

	events := make([]*domain.LogEvent, 0, len(raw))
	for _, doc := range raw {
		var event domain.LogEvent
		if err := json.Unmarshal(doc, &event); err != nil {
			return nil, err
		}
		if filter.Matches(&event) {
			events = append(events, &event)
		}
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})
	return events, nil
}

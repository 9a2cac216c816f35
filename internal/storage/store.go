package storage

import (
	"context"
	"encoding/json"
)

// Index names understood by the store backends. Indexes are exact-match
// only; time-range narrowing is the caller's concern, filtered in memory
// over the insertion-ordered scan.
const (
	IndexUserID   = "user_id"
	IndexType     = "type"
	IndexSeverity = "severity"
)

// Store is the encrypted key-value/document persistence abstraction.
// Implementations must encrypt on every write and decrypt on every read,
// indexed scans included; decryption is a read-path concern, never a
// one-time ingest step. A write is atomic: either the full record is
// persisted or nothing is.
type Store interface {
	// Put seals value and stores it under (collection, key), replacing
	// any previous record and its index entries. The indexes map holds
	// plaintext index-name -> value pairs for later exact-match lookups.
	Put(ctx context.Context, collection, key string, value any, indexes map[string]string) error

	// Get opens the record at (collection, key) into out.
	// Returns domain.ErrNotFound when the key is absent.
	Get(ctx context.Context, collection, key string, out any) error

	// GetAllByIndex opens every record in the collection whose index
	// matches value, in insertion order.
	GetAllByIndex(ctx context.Context, collection, index, value string) ([]json.RawMessage, error)

	// GetAll opens every record in the collection, in insertion order.
	GetAll(ctx context.Context, collection string) ([]json.RawMessage, error)

	// Delete removes a record and its index entries. Missing keys are
	// not an error.
	Delete(ctx context.Context, collection, key string) error
}

// Collections used by the service. One encrypted record per logical
// entity, keyed by UUID (or a composite key for singleton-per-user data).
const (
	CollectionProfiles     = "profiles"
	CollectionTransactions = "transactions"
	CollectionEvents       = "events"
	CollectionTemplates    = "biometric_templates"
	CollectionAlerts       = "alerts"
)

package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/facetophone/security-service/internal/domain"
)

// Artifact is a downloadable export surface.
type Artifact struct {
	MIMEType string `json:"mime_type"`
	Bytes    []byte `json:"bytes"`
}

// Report is the structured export of the event log: a timestamped,
// filterable, severity-summarized view of the ledger.
type Report struct {
	GeneratedAt    time.Time          `json:"generated_at"`
	Filter         domain.EventFilter `json:"filter"`
	TotalEvents    int                `json:"total_events"`
	SeverityCounts map[string]int     `json:"severity_counts"`
	Events         []*domain.LogEvent `json:"events"`
}

// Export produces a severity-summarized report of the events matching
// the filter. The artifact is JSON; the at-rest copies of every event in
// it remain encrypted in the store.
func (l *Log) Export(ctx context.Context, filter domain.EventFilter) (*Artifact, error) {
	events, err := l.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("export query: %w", err)
	}

	counts := make(map[string]int)
	for _, e := range events {
		counts[string(e.Severity)]++
	}

	report := Report{
		GeneratedAt:    time.Now(),
		Filter:         filter,
		TotalEvents:    len(events),
		SeverityCounts: counts,
		Events:         events,
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}

	return &Artifact{MIMEType: "application/json", Bytes: data}, nil
}

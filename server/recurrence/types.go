package recurrence

import (
	"time"

	"github.com/SaShakib/CalendarAPIRrule/server/storage"
)

// Occurrence is a single materialized instance of a master event.
// It is derived on every query and never persisted.
type Occurrence struct {
	Start           time.Time         // Start time of this occurrence
	End             time.Time         // End time of this occurrence
	Anchor          time.Time         // Instant generated by the rule, before overrides
	OriginalEventID string            // ID of the master event
	Override        *storage.Override // Set when an exception overrides this occurrence
}

// IsOverridden reports whether an exception changed this occurrence.
func (o Occurrence) IsOverridden() bool {
	return o.Override != nil
}

// ExpansionOptions controls how recurrence expansion behaves
type ExpansionOptions struct {
	MaxOccurrences int // Maximum number of occurrences returned per event (0 = unlimited)
}

// DefaultExpansionOptions leaves expansion unbounded; callers pick a cap.
var DefaultExpansionOptions = ExpansionOptions{}

// ExpandResult is the outcome of expanding one master event.
type ExpandResult struct {
	Occurrences []Occurrence
	Truncated   bool // MaxOccurrences was hit and later occurrences were dropped
}

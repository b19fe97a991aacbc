package metrics

import "time"

// Noop discards every measurement. Used when metrics are disabled to avoid nil checks.
type Noop struct{}

// NewNoop returns a no-op metrics sink.
func NewNoop() *Noop {
	return &Noop{}
}

func (Noop) MutationCompleted(op, scope string, err error)                              {}
func (Noop) SeriesSplit()                                                               {}
func (Noop) ExpansionCompleted(occurrences int, truncated bool, duration time.Duration) {}
func (Noop) UnmatchedOccurrenceDate(op string)                                          {}
func (Noop) RequestCompleted(method, route string, status int, duration time.Duration)  {}
func (Noop) RateLimited()                                                               {}

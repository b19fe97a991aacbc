package recurrence

import (
	"fmt"
	"sort"
	"time"

	"github.com/SaShakib/CalendarAPIRrule/server/storage"
)

// Engine expands master events into occurrences.
// It holds no per-call state; Expand is a pure function of its inputs.
type Engine struct {
	codec Codec
	opts  ExpansionOptions
	cache *RuleCache
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithCodec replaces the rule codec used for decoding.
func WithCodec(c Codec) EngineOption {
	return func(e *Engine) {
		e.codec = c
	}
}

// WithExpansionOptions sets the expansion limits.
func WithExpansionOptions(opts ExpansionOptions) EngineOption {
	return func(e *Engine) {
		e.opts = opts
	}
}

// NewEngine creates a new recurrence engine instance
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		codec: NewCodec(),
		opts:  DefaultExpansionOptions,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Codec returns the codec used by the engine.
func (e *Engine) Codec() Codec {
	return e.codec
}

// Close releases the rule cache, if any.
func (e *Engine) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
}

// Expand returns every occurrence of ev whose anchor lies in
// [rangeStart, rangeEnd] (inclusive), with exceptions applied, sorted by start.
func (e *Engine) Expand(ev *storage.Event, rangeStart, rangeEnd time.Time) (ExpandResult, error) {
	anchors, err := e.Anchors(ev, rangeStart, rangeEnd)
	if err != nil {
		return ExpandResult{}, err
	}

	exceptions := foldExceptions(ev.Exceptions)
	duration := ev.Duration()

	occurrences := make([]Occurrence, 0, len(anchors))
	for _, anchor := range anchors {
		occ := Occurrence{
			Start:           anchor,
			End:             anchor.Add(duration),
			Anchor:          anchor,
			OriginalEventID: ev.ID,
		}
		if ex, ok := exceptions[anchor.UnixNano()]; ok {
			if ex.deleted {
				continue
			}
			if ex.override != nil {
				occ.Start = ex.override.StartTime.OrElse(anchor).UTC()
				end := occ.Start.Add(duration)
				if !ev.IsRecurring() {
					end = ev.EndTime
				}
				occ.End = ex.override.EndTime.OrElse(end).UTC()
				occ.Override = ex.override
			}
		}
		occurrences = append(occurrences, occ)
	}

	// Overrides may move an occurrence past its neighbours.
	sort.SliceStable(occurrences, func(i, j int) bool {
		return occurrences[i].Start.Before(occurrences[j].Start)
	})

	result := ExpandResult{Occurrences: occurrences}
	if limit := e.opts.MaxOccurrences; limit > 0 && len(occurrences) > limit {
		result.Occurrences = occurrences[:limit]
		result.Truncated = true
	}
	return result, nil
}

// Anchors returns the raw anchor instants of ev in [rangeStart, rangeEnd],
// before any exception is applied.
func (e *Engine) Anchors(ev *storage.Event, rangeStart, rangeEnd time.Time) ([]time.Time, error) {
	if rangeEnd.Before(rangeStart) {
		return nil, nil
	}
	if !ev.IsRecurring() {
		start := ev.StartTime.UTC()
		if start.Before(rangeStart) || start.After(rangeEnd) {
			return nil, nil
		}
		return []time.Time{start}, nil
	}

	spec, err := e.codec.Decode(ev.RecurrenceRule)
	if err != nil {
		return nil, fmt.Errorf("failed to decode rule of event %s: %w", ev.ID, err)
	}
	return spec.Between(rangeStart, rangeEnd)
}

// HasAnchor reports whether instant is exactly one of the anchors of ev.
func (e *Engine) HasAnchor(ev *storage.Event, instant time.Time) (bool, error) {
	anchors, err := e.Anchors(ev, instant, instant)
	if err != nil {
		return false, err
	}
	for _, a := range anchors {
		if a.Equal(instant) {
			return true, nil
		}
	}
	return false, nil
}

type resolvedException struct {
	deleted  bool
	override *storage.Override
}

// foldExceptions collapses the append-only exception log into one entry per
// instant: any delete marker wins, otherwise the latest override applies.
func foldExceptions(exceptions []storage.Exception) map[int64]resolvedException {
	if len(exceptions) == 0 {
		return nil
	}
	out := make(map[int64]resolvedException, len(exceptions))
	for i := range exceptions {
		ex := exceptions[i]
		key := ex.Date.UnixNano()
		cur := out[key]
		switch {
		case ex.IsDeleted:
			cur.deleted = true
		case ex.Override != nil:
			cur.override = ex.Override
		}
		out[key] = cur
	}
	return out
}

// Package mutation applies scoped create, update and delete operations to
// event entities. It never talks to storage: every operation returns the
// ordered persistence actions the caller has to apply.
package mutation

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/SaShakib/CalendarAPIRrule/server/recurrence"
	"github.com/SaShakib/CalendarAPIRrule/server/storage"
	"github.com/SaShakib/CalendarAPIRrule/server/timezone"
)

// IDGenerator mints globally unique opaque ids.
type IDGenerator func() string

// Engine implements the mutation state machine over the three scopes.
type Engine struct {
	codec recurrence.Codec
	tz    timezone.Converter
	newID IDGenerator
}

// Option configures an Engine
type Option func(*Engine)

// WithCodec sets the rule codec.
func WithCodec(c recurrence.Codec) Option {
	return func(e *Engine) {
		e.codec = c
	}
}

// WithConverter sets the timezone converter.
func WithConverter(c timezone.Converter) Option {
	return func(e *Engine) {
		e.tz = c
	}
}

// WithIDGenerator sets the id source for new events and series.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.newID = g
	}
}

// NewEngine creates an engine with the rrule codec, the IANA converter and
// uuid ids unless overridden.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		codec: recurrence.NewCodec(),
		tz:    timezone.Default,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Create builds a new master event. Recurring events get a fresh series id.
func (e *Engine) Create(in CreateInput) (*Outcome, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, &ValidationError{Field: "title", Message: "must not be empty"}
	}
	if in.CreatedBy == "" {
		return nil, &ValidationError{Field: "createdBy", Message: "is required"}
	}
	if strings.TrimSpace(in.Timezone) == "" {
		return nil, &ValidationError{Field: "timezone", Message: "is required"}
	}
	if err := e.tz.Validate(in.Timezone); err != nil {
		return nil, &ValidationError{Field: "timezone", Message: "is not a known zone", Err: err}
	}

	start, err := e.toAbsolute("startTime", in.StartTime, in.Timezone)
	if err != nil {
		return nil, err
	}
	end, err := e.toAbsolute("endTime", in.EndTime, in.Timezone)
	if err != nil {
		return nil, err
	}
	if err := checkSpan(start, end); err != nil {
		return nil, err
	}

	ev := &storage.Event{
		ID:           e.newID(),
		Title:        title,
		Description:  in.Description,
		StartTime:    start,
		EndTime:      end,
		Timezone:     in.Timezone,
		Participants: participants(in.Participants),
		Exceptions:   []storage.Exception{},
		CreatedBy:    in.CreatedBy,
	}
	if rec, ok := in.Recurrence.Get(); ok {
		rule, err := e.buildRule(rec, start, in.Timezone)
		if err != nil {
			return nil, err
		}
		ev.RecurrenceRule = rule
		ev.SeriesID = e.newID()
	}

	return &Outcome{Event: ev, Actions: []Action{create(ev)}}, nil
}

// Update applies changes to ev under scope. ev is not modified; the outcome
// carries copies. occurrenceDate is the exact anchor instant for thisEvent and
// the cut instant for thisAndFollowing.
func (e *Engine) Update(ev *storage.Event, scope Scope, occurrenceDate mo.Option[time.Time], ch Changes) (*Outcome, error) {
	switch scope {
	case AllEvents:
		return e.updateAll(ev.Clone(), ch)
	case ThisEvent:
		date, ok := occurrenceDate.Get()
		if !ok {
			return nil, &MissingOccurrenceDateError{Scope: scope}
		}
		return e.updateOne(ev.Clone(), date.UTC(), ch)
	case ThisAndFollowing:
		date, ok := occurrenceDate.Get()
		if !ok {
			return nil, &MissingOccurrenceDateError{Scope: scope}
		}
		if !ev.IsRecurring() {
			return e.updateAll(ev.Clone(), ch)
		}
		return e.split(ev.Clone(), date.UTC(), ch)
	default:
		return nil, &ValidationError{Field: "updateType", Message: "must be one of thisEvent, thisAndFollowing, allEvents"}
	}
}

// Delete removes ev, one occurrence of it, or the tail of its series.
func (e *Engine) Delete(ev *storage.Event, scope Scope, occurrenceDate mo.Option[time.Time]) (*Outcome, error) {
	switch scope {
	case AllEvents:
		if ev.SeriesID != "" {
			return &Outcome{
				Event:   ev,
				Actions: []Action{{Kind: ActionDeleteSeries, SeriesID: ev.SeriesID}},
				Message: "All events in series deleted",
			}, nil
		}
		return &Outcome{
			Event:   ev,
			Actions: []Action{{Kind: ActionDelete, EventID: ev.ID}},
			Message: "Event deleted",
		}, nil

	case ThisEvent:
		date, ok := occurrenceDate.Get()
		if !ok {
			return nil, &MissingOccurrenceDateError{Scope: scope}
		}
		out := ev.Clone()
		out.Exceptions = append(out.Exceptions, storage.Exception{Date: date.UTC(), IsDeleted: true})
		return &Outcome{
			Event:   out,
			Actions: []Action{save(out)},
			Message: "Occurrence marked deleted (exception created)",
		}, nil

	case ThisAndFollowing:
		date, ok := occurrenceDate.Get()
		if !ok {
			return nil, &MissingOccurrenceDateError{Scope: scope}
		}
		if !ev.IsRecurring() {
			return &Outcome{
				Event:   ev,
				Actions: []Action{{Kind: ActionDelete, EventID: ev.ID}},
				Message: "Event deleted",
			}, nil
		}
		cut := date.UTC()
		out := ev.Clone()
		rule, err := e.codec.WithUntil(out.RecurrenceRule, cut.Add(-time.Millisecond))
		if err != nil {
			return nil, err
		}
		out.RecurrenceRule = rule
		kept := make([]storage.Exception, 0, len(out.Exceptions))
		for _, ex := range out.Exceptions {
			if ex.Date.Before(cut) {
				kept = append(kept, ex)
			}
		}
		out.Exceptions = kept
		return &Outcome{
			Event:   out,
			Actions: []Action{save(out)},
			Message: "This and following occurrences removed/series truncated",
		}, nil

	default:
		return nil, &ValidationError{Field: "deleteType", Message: "must be one of thisEvent, thisAndFollowing, allEvents"}
	}
}

func (e *Engine) updateAll(ev *storage.Event, ch Changes) (*Outcome, error) {
	zone := ev.Timezone
	if tz, ok := ch.Timezone.Get(); ok {
		if err := e.tz.Validate(tz); err != nil {
			return nil, &ValidationError{Field: "timezone", Message: "is not a known zone", Err: err}
		}
		zone = tz
		ev.Timezone = tz
	}
	if title, ok := ch.Title.Get(); ok {
		if strings.TrimSpace(title) == "" {
			return nil, &ValidationError{Field: "title", Message: "must not be empty"}
		}
		ev.Title = title
	}
	if desc, ok := ch.Description.Get(); ok {
		ev.Description = desc
	}
	if ids, ok := ch.Participants.Get(); ok {
		ev.Participants = participants(ids)
	}

	if local, ok := ch.StartTime.Get(); ok {
		start, err := e.toAbsolute("startTime", local, zone)
		if err != nil {
			return nil, err
		}
		ev.StartTime = start
	}
	if local, ok := ch.EndTime.Get(); ok {
		end, err := e.toAbsolute("endTime", local, zone)
		if err != nil {
			return nil, err
		}
		ev.EndTime = end
	}
	if err := checkSpan(ev.StartTime, ev.EndTime); err != nil {
		return nil, err
	}

	// The rule, and with it every anchor the exceptions are keyed by, only
	// changes when a new recurrence is supplied.
	if rec, ok := ch.Recurrence.Get(); ok {
		rule, err := e.buildRule(rec, ev.StartTime, zone)
		if err != nil {
			return nil, err
		}
		ev.RecurrenceRule = rule
		if ev.SeriesID == "" {
			ev.SeriesID = e.newID()
		}
	}

	return &Outcome{Event: ev, Actions: []Action{save(ev)}}, nil
}

func (e *Engine) updateOne(ev *storage.Event, date time.Time, ch Changes) (*Outcome, error) {
	if ch.DeleteOccurrence {
		ev.Exceptions = append(ev.Exceptions, storage.Exception{Date: date, IsDeleted: true})
		return &Outcome{Event: ev, Actions: []Action{save(ev)}}, nil
	}
	// Recurrence is ignored for a single occurrence.
	zone := ch.Timezone.OrElse(ev.Timezone)
	override := &storage.Override{
		Title:       ch.Title,
		Description: ch.Description,
		Timezone:    ch.Timezone,
	}
	if tz, ok := ch.Timezone.Get(); ok {
		if err := e.tz.Validate(tz); err != nil {
			return nil, &ValidationError{Field: "timezone", Message: "is not a known zone", Err: err}
		}
	}
	if local, ok := ch.StartTime.Get(); ok {
		start, err := e.toAbsolute("startTime", local, zone)
		if err != nil {
			return nil, err
		}
		override.StartTime = mo.Some(start)
	}
	if local, ok := ch.EndTime.Get(); ok {
		end, err := e.toAbsolute("endTime", local, zone)
		if err != nil {
			return nil, err
		}
		override.EndTime = mo.Some(end)
	}
	if ids, ok := ch.Participants.Get(); ok {
		override.Participants = mo.Some(participants(ids))
	}
	// An empty override is still recorded.
	start := override.StartTime.OrElse(date)
	end := start.Add(ev.Duration())
	if !ev.IsRecurring() {
		end = ev.EndTime
	}
	if err := checkSpan(start, override.EndTime.OrElse(end)); err != nil {
		return nil, err
	}

	ev.Exceptions = append(ev.Exceptions, storage.Exception{Date: date, Override: override})
	return &Outcome{Event: ev, Actions: []Action{save(ev)}}, nil
}

// split ends the series of ev just before cut and starts a new segment at the
// cut carrying the changes.
func (e *Engine) split(ev *storage.Event, cut time.Time, ch Changes) (*Outcome, error) {
	original, err := e.codec.Decode(ev.RecurrenceRule)
	if err != nil {
		return nil, err
	}

	zone := ev.Timezone
	if tz, ok := ch.Timezone.Get(); ok {
		if err := e.tz.Validate(tz); err != nil {
			return nil, &ValidationError{Field: "timezone", Message: "is not a known zone", Err: err}
		}
		zone = tz
	}

	newStart := cut
	if local, ok := ch.StartTime.Get(); ok {
		if newStart, err = e.toAbsolute("startTime", local, zone); err != nil {
			return nil, err
		}
	}
	newEnd := newStart.Add(ev.Duration())
	if local, ok := ch.EndTime.Get(); ok {
		if newEnd, err = e.toAbsolute("endTime", local, zone); err != nil {
			return nil, err
		}
	}
	if err := checkSpan(newStart, newEnd); err != nil {
		return nil, err
	}

	var rule string
	if rec, ok := ch.Recurrence.Get(); ok {
		rule, err = e.buildRule(rec, newStart, zone)
	} else {
		rule, err = e.codec.Encode(recurrence.Spec{
			Freq:      original.Freq,
			Dtstart:   newStart,
			Interval:  original.Interval,
			ByWeekday: original.ByWeekday,
		})
	}
	if err != nil {
		return nil, err
	}

	truncated, err := e.codec.WithUntil(ev.RecurrenceRule, cut.Add(-time.Millisecond))
	if err != nil {
		return nil, err
	}
	if ev.SeriesID == "" {
		ev.SeriesID = e.newID()
	}
	ev.RecurrenceRule = truncated

	next := &storage.Event{
		ID:             e.newID(),
		Title:          ch.Title.OrElse(ev.Title),
		Description:    ch.Description.OrElse(ev.Description),
		StartTime:      newStart,
		EndTime:        newEnd,
		Timezone:       zone,
		RecurrenceRule: rule,
		SeriesID:       ev.SeriesID,
		Participants:   append([]storage.Participant{}, ev.Participants...),
		Exceptions:     []storage.Exception{},
		CreatedBy:      ev.CreatedBy,
	}
	if ids, ok := ch.Participants.Get(); ok {
		next.Participants = participants(ids)
	}

	return &Outcome{Event: next, Actions: []Action{save(ev), create(next)}}, nil
}

func (e *Engine) buildRule(in RecurrenceInput, dtstart time.Time, zone string) (string, error) {
	freq, err := recurrence.ParseFrequency(in.Freq)
	if err != nil {
		return "", &ValidationError{Field: "recurrence.freq", Message: "must be one of DAILY, WEEKLY, MONTHLY", Err: err}
	}
	if in.Interval < 0 {
		return "", &ValidationError{Field: "recurrence.interval", Message: "must be a positive integer"}
	}
	spec := recurrence.Spec{
		Freq:      freq,
		Dtstart:   dtstart,
		Interval:  max(in.Interval, 1),
		ByWeekday: in.ByWeekday,
	}
	if local, ok := in.Until.Get(); ok {
		until, err := e.toAbsolute("recurrence.until", local, zone)
		if err != nil {
			return "", err
		}
		spec.Until = mo.Some(until)
	}

	rule, err := e.codec.Encode(spec)
	if errors.Is(err, recurrence.ErrInvalidSpec) {
		return "", &ValidationError{Field: "recurrence", Message: "is invalid", Err: err}
	}
	return rule, err
}

func (e *Engine) toAbsolute(field, local, zone string) (time.Time, error) {
	t, err := e.tz.ToAbsolute(local, zone)
	if err != nil {
		return time.Time{}, &ValidationError{Field: field, Message: "is not a valid date", Err: err}
	}
	return t, nil
}

func checkSpan(start, end time.Time) error {
	if !end.After(start) {
		return &ValidationError{Field: "endTime", Message: "must be after startTime"}
	}
	return nil
}

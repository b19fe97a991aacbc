package mutation

import (
	"strings"

	"github.com/samber/mo"

	"github.com/SaShakib/CalendarAPIRrule/server/storage"
)

// Scope selects how much of a series an update or delete touches.
type Scope string

const (
	ThisEvent        Scope = "thisEvent"
	ThisAndFollowing Scope = "thisAndFollowing"
	AllEvents        Scope = "allEvents"
)

// ParseScope validates a scope selector. field names the request parameter
// ("updateType" or "deleteType") for the error message.
func ParseScope(field, value string) (Scope, error) {
	switch s := Scope(strings.TrimSpace(value)); s {
	case ThisEvent, ThisAndFollowing, AllEvents:
		return s, nil
	case "":
		return "", &ValidationError{Field: field, Message: "is required"}
	default:
		return "", &ValidationError{Field: field, Message: "must be one of thisEvent, thisAndFollowing, allEvents"}
	}
}

// RecurrenceInput describes a rule as supplied by a caller. Until is a local
// time interpreted in the event's zone.
type RecurrenceInput struct {
	Freq      string
	Interval  int // 0 means 1
	Until     mo.Option[string]
	ByWeekday []string
}

// CreateInput carries the fields of a new event. Times are local to Timezone.
type CreateInput struct {
	Title        string
	Description  string
	StartTime    string
	EndTime      string
	Timezone     string
	Recurrence   mo.Option[RecurrenceInput]
	Participants []string
	CreatedBy    string
}

// Changes is a partial update. Only present fields are applied; start and end
// are local times interpreted in Timezone, falling back to the event's zone.
type Changes struct {
	Title        mo.Option[string]
	Description  mo.Option[string]
	StartTime    mo.Option[string]
	EndTime      mo.Option[string]
	Timezone     mo.Option[string]
	Recurrence   mo.Option[RecurrenceInput]
	Participants mo.Option[[]string]

	// DeleteOccurrence turns a thisEvent update into a delete marker.
	DeleteOccurrence bool
}

// ActionKind is a persistence step requested by the engine.
type ActionKind string

const (
	ActionSave         ActionKind = "save"
	ActionCreate       ActionKind = "create"
	ActionDelete       ActionKind = "delete"
	ActionDeleteSeries ActionKind = "deleteSeries"
)

// Action is one persistence step. Event is set for save and create,
// EventID for delete and SeriesID for deleteSeries.
type Action struct {
	Kind     ActionKind
	Event    *storage.Event
	EventID  string
	SeriesID string
}

// Outcome is the result of a mutation. Actions must be applied in order.
type Outcome struct {
	// Event is the entity to report back: the mutated master, the new split
	// segment, or the deleted event.
	Event   *storage.Event
	Actions []Action
	Message string
}

func save(ev *storage.Event) Action {
	return Action{Kind: ActionSave, Event: ev}
}

func create(ev *storage.Event) Action {
	return Action{Kind: ActionCreate, Event: ev}
}

func participants(ids []string) []storage.Participant {
	return storage.Participants(ids...)
}

package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/samber/mo"
)

// Error types
type ErrorType string

const (
	ErrNotFound           ErrorType = "not_found"
	ErrAlreadyExists      ErrorType = "already_exists"
	ErrInvalidInput       ErrorType = "invalid_input"
	ErrConflict           ErrorType = "conflict"
	ErrPreconditionFailed ErrorType = "precondition_failed"
)

// Error represents a storage-related error
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a storage error of type ErrNotFound.
func IsNotFound(err error) bool {
	return isType(err, ErrNotFound)
}

// IsConflict reports whether err is a storage error of type ErrConflict.
func IsConflict(err error) bool {
	return isType(err, ErrConflict)
}

func isType(err error, t ErrorType) bool {
	var se *Error
	return errors.As(err, &se) && se.Type == t
}

// Participant references a user taking part in an event.
type Participant struct {
	UserID string `json:"userId"`
}

// Participants builds a participant list from user ids, keeping order and duplicates.
func Participants(userIDs ...string) []Participant {
	out := make([]Participant, 0, len(userIDs))
	for _, id := range userIDs {
		out = append(out, Participant{UserID: id})
	}
	return out
}

// Override is a partial patch applied to one generated occurrence.
// Only present fields take effect; StartTime and EndTime are absolute instants.
type Override struct {
	Title        mo.Option[string]
	Description  mo.Option[string]
	StartTime    mo.Option[time.Time]
	EndTime      mo.Option[time.Time]
	Timezone     mo.Option[string]
	Participants mo.Option[[]Participant]
}

// IsEmpty reports whether no field of the override is set.
func (o Override) IsEmpty() bool {
	return o.Title.IsAbsent() &&
		o.Description.IsAbsent() &&
		o.StartTime.IsAbsent() &&
		o.EndTime.IsAbsent() &&
		o.Timezone.IsAbsent() &&
		o.Participants.IsAbsent()
}

// Exception is a per-instant override or deletion marker scoped to one master event.
// Date identifies the occurrence by exact instant equality with its anchor.
type Exception struct {
	Date      time.Time `json:"date"`
	IsDeleted bool      `json:"isDeleted"`
	Override  *Override `json:"override,omitempty"`
}

// Event is the master record of a single occurrence or a recurring series.
type Event struct {
	ID             string        `json:"id"`
	Title          string        `json:"title"`
	Description    string        `json:"description,omitempty"`
	StartTime      time.Time     `json:"startTime"`
	EndTime        time.Time     `json:"endTime"`
	Timezone       string        `json:"timezone"`
	RecurrenceRule string        `json:"recurrenceRule,omitempty"`
	SeriesID       string        `json:"seriesId,omitempty"`
	Participants   []Participant `json:"participants"`
	Exceptions     []Exception   `json:"exceptions"`
	CreatedBy      string        `json:"createdBy"`

	// Version is bumped by the repository on every successful save.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsRecurring reports whether the event carries a recurrence rule.
func (e *Event) IsRecurring() bool {
	return e.RecurrenceRule != ""
}

// Duration is the span reused for every generated occurrence.
func (e *Event) Duration() time.Duration {
	return e.EndTime.Sub(e.StartTime)
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	c := *e
	if e.Participants != nil {
		c.Participants = append([]Participant(nil), e.Participants...)
	}
	if e.Exceptions != nil {
		c.Exceptions = make([]Exception, len(e.Exceptions))
		for i, ex := range e.Exceptions {
			c.Exceptions[i] = ex
			if ex.Override != nil {
				ov := *ex.Override
				if ps, ok := ov.Participants.Get(); ok {
					ov.Participants = mo.Some(append([]Participant(nil), ps...))
				}
				c.Exceptions[i].Override = &ov
			}
		}
	}
	return &c
}

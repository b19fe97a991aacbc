package recurrence

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"
)

// ProductID identifies calendars exported by this service.
const ProductID = "-//CalendarAPIRrule//Occurrence Export//EN"

const propRecurrenceID = "RECURRENCE-ID"

// PropOccurrenceDate carries the anchor at full precision. RECURRENCE-ID is
// limited to whole seconds, so clients should echo this value back as
// occurrenceDate.
const PropOccurrenceDate = "X-CALENDAR-OCCURRENCE-DATE"

// NewOccurrenceEvent builds a VEVENT for one occurrence. The UID is shared by
// every occurrence of a master; RECURRENCE-ID and PropOccurrenceDate carry the
// anchor so clients can tell occurrences apart.
func NewOccurrenceEvent(uid string, occ Occurrence, stamp time.Time) *ical.Event {
	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, uid)
	event.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, occ.Start.UTC())
	event.Props.SetDateTime(ical.PropDateTimeEnd, occ.End.UTC())
	event.Props.SetDateTime(propRecurrenceID, occ.Anchor.UTC())
	event.Props.SetText(PropOccurrenceDate, occ.Anchor.UTC().Format(time.RFC3339Nano))
	return event
}

// NewCalendar returns an empty VCALENDAR with the mandatory properties set.
func NewCalendar() *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, ProductID)
	cal.Props.SetText(ical.PropVersion, "2.0")
	return cal
}

// EncodeCalendar writes events as a single VCALENDAR.
func EncodeCalendar(w io.Writer, events []*ical.Event) error {
	cal := NewCalendar()
	for _, event := range events {
		cal.Children = append(cal.Children, event.Component)
	}
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

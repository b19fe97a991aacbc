package events

import (
	"io"
	"time"

	"github.com/emersion/go-ical"

	"github.com/SaShakib/CalendarAPIRrule/server/recurrence"
)

// WriteICS encodes list as a VCALENDAR with one VEVENT per occurrence.
func WriteICS(w io.Writer, list *OccurrenceList, stamp time.Time) error {
	events := make([]*ical.Event, 0, len(list.Occurrences))
	for _, v := range list.Occurrences {
		event := recurrence.NewOccurrenceEvent(v.EventID, recurrence.Occurrence{
			Start:           v.StartTime,
			End:             v.EndTime,
			Anchor:          v.OccurrenceDate,
			OriginalEventID: v.EventID,
		}, stamp)
		event.Props.SetText(ical.PropSummary, v.Title)
		if v.Description != "" {
			event.Props.SetText(ical.PropDescription, v.Description)
		}
		events = append(events, event)
	}
	return recurrence.EncodeCalendar(w, events)
}

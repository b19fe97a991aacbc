package events

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SaShakib/CalendarAPIRrule/server/recurrence"
	"github.com/SaShakib/CalendarAPIRrule/server/storage/memory"
)

func TestWriteICS(t *testing.T) {
	svc := newTestService(t, memory.New())
	seed(t, svc)

	list, err := svc.Occurrences(context.Background(), owner,
		mo.Some(at(t, "2025-08-01T00:00:00Z")), mo.Some(at(t, "2025-08-31T23:59:59Z")))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteICS(&buf, list, at(t, "2025-08-01T00:00:00Z")))
	assert.Contains(t, buf.String(), "BEGIN:VCALENDAR")

	cal, err := ical.NewDecoder(&buf).Decode()
	require.NoError(t, err)

	events := cal.Events()
	require.Len(t, events, len(list.Occurrences))

	for i, event := range events {
		view := list.Occurrences[i]

		uid, err := event.Props.Text(ical.PropUID)
		require.NoError(t, err)
		assert.Equal(t, view.EventID, uid)

		summary, err := event.Props.Text(ical.PropSummary)
		require.NoError(t, err)
		assert.Equal(t, view.Title, summary)

		start, err := event.DateTimeStart(time.UTC)
		require.NoError(t, err)
		assert.True(t, view.StartTime.Equal(start))

		raw, err := event.Props.Text(recurrence.PropOccurrenceDate)
		require.NoError(t, err)
		anchor, err := time.Parse(time.RFC3339Nano, raw)
		require.NoError(t, err)
		assert.True(t, view.OccurrenceDate.Equal(anchor))
	}

	// Only the recurring master has a description.
	assert.NotNil(t, events[0].Props.Get(ical.PropDescription))
	assert.Nil(t, events[2].Props.Get(ical.PropDescription))
}

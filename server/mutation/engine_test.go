package mutation

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SaShakib/CalendarAPIRrule/server/recurrence"
	"github.com/SaShakib/CalendarAPIRrule/server/storage"
)

const weeklyAugust = "DTSTART:20250805T090000Z\nRRULE:FREQ=WEEKLY;INTERVAL=1;UNTIL=20250930T100000Z"

func sequentialIDs(prefix string) IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func newTestEngine() *Engine {
	return NewEngine(WithIDGenerator(sequentialIDs("id")))
}

func at(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339Nano, value)
	require.NoError(t, err)
	return ts.UTC()
}

func weeklySeries(t *testing.T) *storage.Event {
	t.Helper()
	ev := storage.NewMockSeries("evt-1", "user123", "Standup", weeklyAugust, "series-1",
		at(t, "2025-08-05T09:00:00Z"), at(t, "2025-08-05T10:00:00Z"))
	ev.Timezone = "Asia/Dhaka"
	ev.Participants = storage.Participants("alice", "bob")
	return ev
}

func expandStarts(t *testing.T, ev *storage.Event, from, to time.Time) []time.Time {
	t.Helper()
	result, err := recurrence.NewEngine().Expand(ev, from, to)
	require.NoError(t, err)
	out := make([]time.Time, len(result.Occurrences))
	for i, occ := range result.Occurrences {
		out[i] = occ.Start
	}
	return out
}

func requireValidation(t *testing.T, err error, field string) {
	t.Helper()
	require.Error(t, err)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected validation error, got %T: %v", err, err)
	if field != "" {
		assert.Equal(t, field, verr.Field)
	}
}

func TestParseScope(t *testing.T) {
	tests := []struct {
		value    string
		expected Scope
		wantErr  bool
	}{
		{value: "thisEvent", expected: ThisEvent},
		{value: "thisAndFollowing", expected: ThisAndFollowing},
		{value: " allEvents ", expected: AllEvents},
		{value: "", wantErr: true},
		{value: "ThisEvent", wantErr: true},
		{value: "everything", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			scope, err := ParseScope("updateType", tt.value)
			if tt.wantErr {
				requireValidation(t, err, "updateType")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, scope)
		})
	}
}

func TestEngine_CreateSingle(t *testing.T) {
	engine := newTestEngine()

	out, err := engine.Create(CreateInput{
		Title:        "  Dentist ",
		Description:  "checkup",
		StartTime:    "2025-08-05T15:00:00",
		EndTime:      "2025-08-05T15:30:00",
		Timezone:     "Asia/Dhaka",
		Participants: []string{"alice", "alice"},
		CreatedBy:    "user123",
	})
	require.NoError(t, err)

	ev := out.Event
	assert.Equal(t, "id-1", ev.ID)
	assert.Equal(t, "Dentist", ev.Title)
	assert.Equal(t, at(t, "2025-08-05T09:00:00Z"), ev.StartTime)
	assert.Equal(t, at(t, "2025-08-05T09:30:00Z"), ev.EndTime)
	assert.Empty(t, ev.RecurrenceRule)
	assert.Empty(t, ev.SeriesID)
	assert.Equal(t, storage.Participants("alice", "alice"), ev.Participants)
	assert.NotNil(t, ev.Exceptions)
	require.Len(t, out.Actions, 1)
	assert.Equal(t, ActionCreate, out.Actions[0].Kind)
	assert.Same(t, ev, out.Actions[0].Event)
}

func TestEngine_CreateRecurringMintsSeries(t *testing.T) {
	engine := newTestEngine()

	out, err := engine.Create(CreateInput{
		Title:     "Standup",
		StartTime: "2025-08-05T15:00:00",
		EndTime:   "2025-08-05T16:00:00",
		Timezone:  "Asia/Dhaka",
		Recurrence: mo.Some(RecurrenceInput{
			Freq:  "WEEKLY",
			Until: mo.Some("2025-09-30T16:00:00"),
		}),
		CreatedBy: "user123",
	})
	require.NoError(t, err)

	ev := out.Event
	assert.Equal(t, "id-1", ev.ID)
	assert.Equal(t, "id-2", ev.SeriesID)
	assert.Equal(t, weeklyAugust, ev.RecurrenceRule)

	// Scenario A through the full create path.
	assert.Equal(t, []time.Time{
		at(t, "2025-08-05T09:00:00Z"),
		at(t, "2025-08-12T09:00:00Z"),
		at(t, "2025-08-19T09:00:00Z"),
		at(t, "2025-08-26T09:00:00Z"),
	}, expandStarts(t, ev, at(t, "2025-08-01T00:00:00Z"), at(t, "2025-08-31T00:00:00Z")))
}

func TestEngine_CreateValidation(t *testing.T) {
	valid := func() CreateInput {
		return CreateInput{
			Title:     "Standup",
			StartTime: "2025-08-05T09:00:00",
			EndTime:   "2025-08-05T10:00:00",
			Timezone:  "UTC",
			CreatedBy: "user123",
		}
	}

	tests := []struct {
		name   string
		mutate func(*CreateInput)
		field  string
	}{
		{name: "empty title", mutate: func(in *CreateInput) { in.Title = "   " }, field: "title"},
		{name: "missing owner", mutate: func(in *CreateInput) { in.CreatedBy = "" }, field: "createdBy"},
		{name: "missing timezone", mutate: func(in *CreateInput) { in.Timezone = "" }, field: "timezone"},
		{name: "unknown timezone", mutate: func(in *CreateInput) { in.Timezone = "Mars/Olympus" }, field: "timezone"},
		{name: "bad start", mutate: func(in *CreateInput) { in.StartTime = "tomorrow" }, field: "startTime"},
		{name: "bad end", mutate: func(in *CreateInput) { in.EndTime = "" }, field: "endTime"},
		{name: "end before start", mutate: func(in *CreateInput) { in.EndTime = "2025-08-05T08:00:00" }, field: "endTime"},
		{name: "end equals start", mutate: func(in *CreateInput) { in.EndTime = in.StartTime }, field: "endTime"},
		{
			name:   "bad frequency",
			mutate: func(in *CreateInput) { in.Recurrence = mo.Some(RecurrenceInput{Freq: "YEARLY"}) },
			field:  "recurrence.freq",
		},
		{
			name:   "negative interval",
			mutate: func(in *CreateInput) { in.Recurrence = mo.Some(RecurrenceInput{Freq: "DAILY", Interval: -1}) },
			field:  "recurrence.interval",
		},
		{
			name:   "bad until",
			mutate: func(in *CreateInput) { in.Recurrence = mo.Some(RecurrenceInput{Freq: "DAILY", Until: mo.Some("never")}) },
			field:  "recurrence.until",
		},
		{
			name:   "bad weekday",
			mutate: func(in *CreateInput) { in.Recurrence = mo.Some(RecurrenceInput{Freq: "WEEKLY", ByWeekday: []string{"XX"}}) },
			field:  "recurrence",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid()
			tt.mutate(&in)
			_, err := newTestEngine().Create(in)
			requireValidation(t, err, tt.field)
		})
	}
}

func TestEngine_UpdateThisEventOverride(t *testing.T) {
	engine := newTestEngine()
	ev := weeklySeries(t)

	out, err := engine.Update(ev, ThisEvent, mo.Some(at(t, "2025-08-19T09:00:00.000Z")), Changes{
		Title:     mo.Some("Standup (moved)"),
		StartTime: mo.Some("2025-08-19T11:00:00"),
		Timezone:  mo.Some("Asia/Dhaka"),
	})
	require.NoError(t, err)

	updated := out.Event
	require.Len(t, updated.Exceptions, 1)
	ex := updated.Exceptions[0]
	assert.Equal(t, at(t, "2025-08-19T09:00:00Z"), ex.Date)
	assert.False(t, ex.IsDeleted)
	require.NotNil(t, ex.Override)
	assert.Equal(t, at(t, "2025-08-19T05:00:00Z"), ex.Override.StartTime.MustGet())
	assert.True(t, ex.Override.EndTime.IsAbsent())
	assert.Equal(t, "Asia/Dhaka", ex.Override.Timezone.MustGet())
	assert.Equal(t, "Standup (moved)", ex.Override.Title.MustGet())
	assert.True(t, ex.Override.Participants.IsAbsent())

	// Master untouched, input untouched.
	assert.Equal(t, at(t, "2025-08-05T09:00:00Z"), updated.StartTime)
	assert.Equal(t, "Standup", updated.Title)
	assert.Empty(t, ev.Exceptions)

	require.Len(t, out.Actions, 1)
	assert.Equal(t, ActionSave, out.Actions[0].Kind)

	// 11:00 Dhaka, one hour long; the other weeks keep their anchor.
	assert.Equal(t, []time.Time{
		at(t, "2025-08-05T09:00:00Z"),
		at(t, "2025-08-12T09:00:00Z"),
		at(t, "2025-08-19T05:00:00Z"),
		at(t, "2025-08-26T09:00:00Z"),
	}, expandStarts(t, updated, at(t, "2025-08-01T00:00:00Z"), at(t, "2025-08-31T00:00:00Z")))
}

func TestEngine_UpdateThisEventAppends(t *testing.T) {
	engine := newTestEngine()
	ev := weeklySeries(t)
	date := mo.Some(at(t, "2025-08-19T09:00:00Z"))

	first, err := engine.Update(ev, ThisEvent, date, Changes{Title: mo.Some("one")})
	require.NoError(t, err)
	second, err := engine.Update(first.Event, ThisEvent, date, Changes{Title: mo.Some("two")})
	require.NoError(t, err)

	require.Len(t, second.Event.Exceptions, 2)
	assert.Equal(t, "one", second.Event.Exceptions[0].Override.Title.MustGet())
	assert.Equal(t, "two", second.Event.Exceptions[1].Override.Title.MustGet())
}

func TestEngine_UpdateThisEventDeleteFlag(t *testing.T) {
	engine := newTestEngine()
	ev := weeklySeries(t)

	out, err := engine.Update(ev, ThisEvent, mo.Some(at(t, "2025-08-12T09:00:00Z")), Changes{
		Title:            mo.Some("ignored"),
		DeleteOccurrence: true,
	})
	require.NoError(t, err)
	require.Len(t, out.Event.Exceptions, 1)
	assert.True(t, out.Event.Exceptions[0].IsDeleted)
	assert.Nil(t, out.Event.Exceptions[0].Override)
	assert.NotContains(t, expandStarts(t, out.Event, at(t, "2025-08-01T00:00:00Z"), at(t, "2025-08-31T00:00:00Z")),
		at(t, "2025-08-12T09:00:00Z"))
}

func TestEngine_UpdateThisEventWithoutOverrideFields(t *testing.T) {
	engine := newTestEngine()
	ev := weeklySeries(t)
	date := at(t, "2025-08-19T09:00:00Z")

	tests := []struct {
		name    string
		changes Changes
	}{
		{name: "no fields", changes: Changes{}},
		{name: "recurrence is ignored", changes: Changes{Recurrence: mo.Some(RecurrenceInput{Freq: "DAILY"})}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := engine.Update(ev, ThisEvent, mo.Some(date), tt.changes)
			require.NoError(t, err)
			require.Len(t, out.Actions, 1)
			assert.Equal(t, ActionSave, out.Actions[0].Kind)
			assert.Equal(t, weeklyAugust, out.Event.RecurrenceRule)

			require.Len(t, out.Event.Exceptions, 1)
			ex := out.Event.Exceptions[0]
			assert.Equal(t, date, ex.Date)
			assert.False(t, ex.IsDeleted)
			require.NotNil(t, ex.Override)
			assert.True(t, ex.Override.IsEmpty())

			// An empty override leaves the occurrence as generated.
			assert.Contains(t, expandStarts(t, out.Event, at(t, "2025-08-01T00:00:00Z"), at(t, "2025-08-31T00:00:00Z")), date)
		})
	}
}

func TestEngine_UpdateThisEventValidation(t *testing.T) {
	engine := newTestEngine()
	ev := weeklySeries(t)
	date := mo.Some(at(t, "2025-08-19T09:00:00Z"))

	t.Run("missing occurrence date", func(t *testing.T) {
		_, err := engine.Update(ev, ThisEvent, mo.None[time.Time](), Changes{Title: mo.Some("x")})
		var missing *MissingOccurrenceDateError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, ThisEvent, missing.Scope)
		requireValidation(t, err, "occurrenceDate")
	})

	t.Run("single event override moved past its end", func(t *testing.T) {
		single := storage.NewMockEvent("single", "user123", "Gym", at(t, "2025-08-05T06:00:00Z"), at(t, "2025-08-05T07:00:00Z"))
		_, err := engine.Update(single, ThisEvent, mo.Some(single.StartTime), Changes{StartTime: mo.Some("2025-08-05T08:00:00Z")})
		requireValidation(t, err, "endTime")
	})

	t.Run("override ends before it starts", func(t *testing.T) {
		_, err := engine.Update(ev, ThisEvent, date, Changes{
			StartTime: mo.Some("2025-08-19T12:00:00Z"),
			EndTime:   mo.Some("2025-08-19T11:00:00Z"),
		})
		requireValidation(t, err, "endTime")
	})

	t.Run("unknown zone", func(t *testing.T) {
		_, err := engine.Update(ev, ThisEvent, date, Changes{Timezone: mo.Some("Nowhere/Land")})
		requireValidation(t, err, "timezone")
	})
}

func TestEngine_UpdateThisAndFollowingSplit(t *testing.T) {
	engine := newTestEngine()
	ev := weeklySeries(t)
	ev.Exceptions = []storage.Exception{{Date: at(t, "2025-09-09T09:00:00Z"), IsDeleted: true}}
	cut := at(t, "2025-09-02T09:00:00.000Z")

	out, err := engine.Update(ev, ThisAndFollowing, mo.Some(cut), Changes{
		Recurrence: mo.Some(RecurrenceInput{Freq: "WEEKLY", Until: mo.Some("2025-12-31T10:00:00Z")}),
	})
	require.NoError(t, err)
	require.Len(t, out.Actions, 2)

	truncated := out.Actions[0]
	assert.Equal(t, ActionSave, truncated.Kind)
	assert.Equal(t, "evt-1", truncated.Event.ID)
	assert.Equal(t,
		"DTSTART:20250805T090000Z\nRRULE:FREQ=WEEKLY;INTERVAL=1;UNTIL=20250902T085959.999Z",
		truncated.Event.RecurrenceRule)
	spec, err := recurrence.NewCodec().Decode(truncated.Event.RecurrenceRule)
	require.NoError(t, err)
	assert.Equal(t, at(t, "2025-09-02T08:59:59.999Z"), spec.Until.MustGet())
	// Exceptions stay with the original master.
	assert.Len(t, truncated.Event.Exceptions, 1)

	created := out.Actions[1]
	assert.Equal(t, ActionCreate, created.Kind)
	assert.Same(t, out.Event, created.Event)

	next := out.Event
	assert.Equal(t, "id-1", next.ID)
	assert.Equal(t, cut, next.StartTime)
	assert.Equal(t, cut.Add(time.Hour), next.EndTime)
	assert.Equal(t, "series-1", next.SeriesID)
	assert.Equal(t, "Standup", next.Title)
	assert.Equal(t, "user123", next.CreatedBy)
	assert.Equal(t, "Asia/Dhaka", next.Timezone)
	assert.Equal(t, ev.Participants, next.Participants)
	assert.Empty(t, next.Exceptions)
	assert.Equal(t,
		"DTSTART:20250902T090000Z\nRRULE:FREQ=WEEKLY;INTERVAL=1;UNTIL=20251231T100000Z",
		next.RecurrenceRule)

	far := at(t, "2030-01-01T00:00:00Z")
	assert.Empty(t, expandStarts(t, truncated.Event, cut, far))
	tail := expandStarts(t, next, at(t, "2025-01-01T00:00:00Z"), far)
	assert.Len(t, tail, 18)
	assert.Equal(t, cut, tail[0])
	assert.Equal(t, at(t, "2025-12-30T09:00:00Z"), tail[len(tail)-1])
}

func TestEngine_SplitPartitionsOpenEndedSeries(t *testing.T) {
	engine := newTestEngine()
	ev := weeklySeries(t)
	ev.RecurrenceRule = "DTSTART:20250805T090000Z\nRRULE:FREQ=WEEKLY;INTERVAL=1"
	start, far := at(t, "2025-08-01T00:00:00Z"), at(t, "2027-01-01T00:00:00Z")
	before := expandStarts(t, ev, start, far)

	cut := at(t, "2025-09-02T09:00:00Z")
	out, err := engine.Update(ev, ThisAndFollowing, mo.Some(cut), Changes{Description: mo.Some("new agenda")})
	require.NoError(t, err)

	head := out.Actions[0].Event
	tail := out.Event
	assert.Equal(t, "new agenda", tail.Description)
	assert.Equal(t, "DTSTART:20250902T090000Z\nRRULE:FREQ=WEEKLY;INTERVAL=1", tail.RecurrenceRule)

	assert.Empty(t, expandStarts(t, head, cut, far))
	assert.Empty(t, expandStarts(t, tail, start, cut.Add(-time.Millisecond)))
	assert.Equal(t, before, append(expandStarts(t, head, start, far), expandStarts(t, tail, start, far)...))
}

func TestEngine_SplitCarriesRuleShape(t *testing.T) {
	engine := newTestEngine()
	ev := weeklySeries(t)
	ev.RecurrenceRule = "DTSTART:20250805T090000Z\nRRULE:FREQ=WEEKLY;INTERVAL=2;BYDAY=TU,TH;COUNT=20"

	out, err := engine.Update(ev, ThisAndFollowing, mo.Some(at(t, "2025-09-02T09:00:00Z")), Changes{
		StartTime:    mo.Some("2025-09-02T16:00:00"),
		Participants: mo.Some([]string{"carol"}),
	})
	require.NoError(t, err)

	next := out.Event
	assert.Equal(t, at(t, "2025-09-02T10:00:00Z"), next.StartTime)
	assert.Equal(t, at(t, "2025-09-02T11:00:00Z"), next.EndTime)
	assert.Equal(t, "DTSTART:20250902T100000Z\nRRULE:FREQ=WEEKLY;INTERVAL=2;BYDAY=TU,TH", next.RecurrenceRule)
	assert.Equal(t, storage.Participants("carol"), next.Participants)
	assert.Equal(t,
		"DTSTART:20250805T090000Z\nRRULE:FREQ=WEEKLY;INTERVAL=2;BYDAY=TU,TH;COUNT=20;UNTIL=20250902T085959.999Z",
		out.Actions[0].Event.RecurrenceRule)
}

func TestEngine_SplitBackfillsSeriesID(t *testing.T) {
	engine := newTestEngine()
	ev := weeklySeries(t)
	ev.SeriesID = ""

	out, err := engine.Update(ev, ThisAndFollowing, mo.Some(at(t, "2025-09-02T09:00:00Z")), Changes{})
	require.NoError(t, err)

	original := out.Actions[0].Event
	assert.Equal(t, "id-1", original.SeriesID)
	assert.Equal(t, "id-1", out.Event.SeriesID)
	assert.Equal(t, "id-2", out.Event.ID)
	assert.Empty(t, ev.SeriesID, "input event is not modified")
}

func TestEngine_ThisAndFollowingDegradesForSingleEvent(t *testing.T) {
	engine := newTestEngine()
	ev := storage.NewMockEvent("single", "user123", "Dentist", at(t, "2025-08-05T09:00:00Z"), at(t, "2025-08-05T10:00:00Z"))

	out, err := engine.Update(ev, ThisAndFollowing, mo.Some(at(t, "2025-08-05T09:00:00Z")), Changes{Title: mo.Some("Dentist 2")})
	require.NoError(t, err)
	assert.Equal(t, "single", out.Event.ID)
	assert.Equal(t, "Dentist 2", out.Event.Title)
	require.Len(t, out.Actions, 1)
	assert.Equal(t, ActionSave, out.Actions[0].Kind)
	assert.Empty(t, out.Event.SeriesID)

	_, err = engine.Update(ev, ThisAndFollowing, mo.None[time.Time](), Changes{Title: mo.Some("x")})
	var missing *MissingOccurrenceDateError
	assert.True(t, errors.As(err, &missing))
}

func TestEngine_SplitMalformedRule(t *testing.T) {
	engine := newTestEngine()
	ev := weeklySeries(t)
	ev.RecurrenceRule = "RRULE:FREQ=SOMETIMES"

	_, err := engine.Update(ev, ThisAndFollowing, mo.Some(at(t, "2025-09-02T09:00:00Z")), Changes{})
	var malformed *recurrence.MalformedRuleError
	assert.True(t, errors.As(err, &malformed))
}

func TestEngine_UpdateAllEvents(t *testing.T) {
	t.Run("merges fields in place", func(t *testing.T) {
		engine := newTestEngine()
		ev := weeklySeries(t)

		out, err := engine.Update(ev, AllEvents, mo.None[time.Time](), Changes{
			Title:        mo.Some("Daily sync"),
			Description:  mo.Some(""),
			Participants: mo.Some([]string{"dave"}),
		})
		require.NoError(t, err)
		assert.Equal(t, "evt-1", out.Event.ID)
		assert.Equal(t, "Daily sync", out.Event.Title)
		assert.Equal(t, storage.Participants("dave"), out.Event.Participants)
		assert.Equal(t, weeklyAugust, out.Event.RecurrenceRule)
		require.Len(t, out.Actions, 1)
		assert.Equal(t, ActionSave, out.Actions[0].Kind)
	})

	t.Run("start change keeps the rule", func(t *testing.T) {
		engine := newTestEngine()
		ev := weeklySeries(t)

		out, err := engine.Update(ev, AllEvents, mo.None[time.Time](), Changes{
			StartTime: mo.Some("2025-08-05T14:00:00"),
			EndTime:   mo.Some("2025-08-05T15:30:00"),
		})
		require.NoError(t, err)
		assert.Equal(t, at(t, "2025-08-05T08:00:00Z"), out.Event.StartTime)
		assert.Equal(t, at(t, "2025-08-05T09:30:00Z"), out.Event.EndTime)
		assert.Equal(t, weeklyAugust, out.Event.RecurrenceRule)
	})

	t.Run("start change keeps deleted occurrences deleted", func(t *testing.T) {
		engine := newTestEngine()
		ev := weeklySeries(t)
		deleted := at(t, "2025-08-12T09:00:00Z")
		ev.Exceptions = []storage.Exception{{Date: deleted, IsDeleted: true}}
		from, to := at(t, "2025-08-01T00:00:00Z"), at(t, "2025-08-31T00:00:00Z")
		before := expandStarts(t, ev, from, to)
		require.NotContains(t, before, deleted)

		out, err := engine.Update(ev, AllEvents, mo.None[time.Time](), Changes{
			StartTime: mo.Some("2025-08-05T16:00:00"),
			EndTime:   mo.Some("2025-08-05T17:00:00"),
		})
		require.NoError(t, err)
		assert.Equal(t, at(t, "2025-08-05T10:00:00Z"), out.Event.StartTime)

		after := expandStarts(t, out.Event, from, to)
		assert.Equal(t, before, after)
		assert.NotContains(t, after, deleted)
	})

	t.Run("new recurrence replaces the rule", func(t *testing.T) {
		engine := newTestEngine()
		ev := weeklySeries(t)

		out, err := engine.Update(ev, AllEvents, mo.None[time.Time](), Changes{
			Timezone:   mo.Some("UTC"),
			Recurrence: mo.Some(RecurrenceInput{Freq: "daily", Interval: 2, Until: mo.Some("2025-08-15T00:00:00")}),
		})
		require.NoError(t, err)
		assert.Equal(t, "UTC", out.Event.Timezone)
		assert.Equal(t, "DTSTART:20250805T090000Z\nRRULE:FREQ=DAILY;INTERVAL=2;UNTIL=20250815T000000Z", out.Event.RecurrenceRule)
		assert.Equal(t, "series-1", out.Event.SeriesID)
	})

	t.Run("recurrence on a single event mints a series", func(t *testing.T) {
		engine := newTestEngine()
		ev := storage.NewMockEvent("single", "user123", "Gym", at(t, "2025-08-05T06:00:00Z"), at(t, "2025-08-05T07:00:00Z"))

		out, err := engine.Update(ev, AllEvents, mo.None[time.Time](), Changes{
			Recurrence: mo.Some(RecurrenceInput{Freq: "WEEKLY"}),
		})
		require.NoError(t, err)
		assert.True(t, out.Event.IsRecurring())
		assert.Equal(t, "id-1", out.Event.SeriesID)
	})

	t.Run("validation", func(t *testing.T) {
		engine := newTestEngine()
		ev := weeklySeries(t)

		_, err := engine.Update(ev, AllEvents, mo.None[time.Time](), Changes{EndTime: mo.Some("2025-08-05T08:00:00Z")})
		requireValidation(t, err, "endTime")

		_, err = engine.Update(ev, AllEvents, mo.None[time.Time](), Changes{Title: mo.Some(" ")})
		requireValidation(t, err, "title")

		_, err = engine.Update(ev, AllEvents, mo.None[time.Time](), Changes{Timezone: mo.Some("Atlantis/Capital")})
		requireValidation(t, err, "timezone")
	})
}

func TestEngine_UpdateUnknownScope(t *testing.T) {
	_, err := newTestEngine().Update(weeklySeries(t), Scope("someEvents"), mo.None[time.Time](), Changes{})
	requireValidation(t, err, "updateType")
}

func TestEngine_DeleteAllEvents(t *testing.T) {
	engine := newTestEngine()

	out, err := engine.Delete(weeklySeries(t), AllEvents, mo.None[time.Time]())
	require.NoError(t, err)
	require.Len(t, out.Actions, 1)
	assert.Equal(t, Action{Kind: ActionDeleteSeries, SeriesID: "series-1"}, out.Actions[0])

	single := storage.NewMockEvent("single", "user123", "Gym", at(t, "2025-08-05T06:00:00Z"), at(t, "2025-08-05T07:00:00Z"))
	out, err = engine.Delete(single, AllEvents, mo.None[time.Time]())
	require.NoError(t, err)
	assert.Equal(t, []Action{{Kind: ActionDelete, EventID: "single"}}, out.Actions)
}

func TestEngine_DeleteThisEvent(t *testing.T) {
	engine := newTestEngine()
	ev := weeklySeries(t)
	target := at(t, "2025-08-19T09:00:00Z")

	out, err := engine.Delete(ev, ThisEvent, mo.Some(target))
	require.NoError(t, err)
	assert.Len(t, out.Event.Exceptions, len(ev.Exceptions)+1)
	assert.Equal(t, storage.Exception{Date: target, IsDeleted: true}, out.Event.Exceptions[0])

	inRange := expandStarts(t, out.Event, at(t, "2025-08-01T00:00:00Z"), at(t, "2025-08-31T00:00:00Z"))
	assert.NotContains(t, inRange, target)
	assert.Len(t, inRange, 3)

	disjoint := at(t, "2025-09-01T00:00:00Z")
	assert.Equal(t,
		expandStarts(t, ev, disjoint, at(t, "2025-09-30T23:00:00Z")),
		expandStarts(t, out.Event, disjoint, at(t, "2025-09-30T23:00:00Z")))

	// Repeated deletes keep appending.
	again, err := engine.Delete(out.Event, ThisEvent, mo.Some(target))
	require.NoError(t, err)
	assert.Len(t, again.Event.Exceptions, 2)
	assert.Equal(t, inRange, expandStarts(t, again.Event, at(t, "2025-08-01T00:00:00Z"), at(t, "2025-08-31T00:00:00Z")))

	_, err = engine.Delete(ev, ThisEvent, mo.None[time.Time]())
	requireValidation(t, err, "occurrenceDate")
}

func TestEngine_DeleteThisAndFollowing(t *testing.T) {
	engine := newTestEngine()
	ev := weeklySeries(t)
	cut := at(t, "2025-09-02T09:00:00Z")
	ev.Exceptions = []storage.Exception{
		{Date: at(t, "2025-08-12T09:00:00Z"), IsDeleted: true},
		{Date: cut, Override: &storage.Override{Title: mo.Some("gone")}},
		{Date: at(t, "2025-09-16T09:00:00Z"), IsDeleted: true},
	}

	out, err := engine.Delete(ev, ThisAndFollowing, mo.Some(cut))
	require.NoError(t, err)
	require.Len(t, out.Actions, 1)
	assert.Equal(t, ActionSave, out.Actions[0].Kind)
	assert.Equal(t, "DTSTART:20250805T090000Z\nRRULE:FREQ=WEEKLY;INTERVAL=1;UNTIL=20250902T085959.999Z", out.Event.RecurrenceRule)
	require.Len(t, out.Event.Exceptions, 1)
	assert.Equal(t, at(t, "2025-08-12T09:00:00Z"), out.Event.Exceptions[0].Date)
	assert.Empty(t, expandStarts(t, out.Event, cut, at(t, "2026-01-01T00:00:00Z")))
	assert.Len(t, ev.Exceptions, 3, "input untouched")

	single := storage.NewMockEvent("single", "user123", "Gym", at(t, "2025-08-05T06:00:00Z"), at(t, "2025-08-05T07:00:00Z"))
	out, err = engine.Delete(single, ThisAndFollowing, mo.Some(at(t, "2025-08-05T06:00:00Z")))
	require.NoError(t, err)
	assert.Equal(t, []Action{{Kind: ActionDelete, EventID: "single"}}, out.Actions)

	_, err = engine.Delete(ev, ThisAndFollowing, mo.None[time.Time]())
	requireValidation(t, err, "occurrenceDate")

	_, err = engine.Delete(ev, Scope("bogus"), mo.None[time.Time]())
	requireValidation(t, err, "deleteType")
}

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHelpers(t *testing.T) {
	notFound := &Error{Type: ErrNotFound, Message: "event not found: x"}
	wrapped := fmt.Errorf("load: %w", notFound)

	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsConflict(wrapped))
	assert.True(t, IsConflict(&Error{Type: ErrConflict}))
	assert.False(t, IsNotFound(errors.New("plain")))
	assert.False(t, IsNotFound(nil))

	cause := errors.New("duplicate key")
	err := &Error{Type: ErrAlreadyExists, Message: "event already exists: x", Err: cause}
	assert.Equal(t, "already_exists: event already exists: x: duplicate key", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "not_found: event not found: x", notFound.Error())
}

func TestOverrideJSON(t *testing.T) {
	start := time.Date(2025, 8, 12, 4, 0, 0, 0, time.UTC)
	ov := Override{
		Title:        mo.Some("Moved"),
		StartTime:    mo.Some(start),
		Participants: mo.Some(Participants("u1")),
	}

	data, err := json.Marshal(ov)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Moved","startTime":"2025-08-12T04:00:00Z","participants":[{"userId":"u1"}]}`, string(data))

	var got Override
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, ov.Title, got.Title)
	assert.True(t, got.Description.IsAbsent())
	assert.True(t, got.EndTime.IsAbsent())
	assert.Equal(t, ov.Participants, got.Participants)

	// An explicit empty string is still a present field.
	require.NoError(t, json.Unmarshal([]byte(`{"description":""}`), &got))
	assert.Equal(t, mo.Some(""), got.Description)
	assert.True(t, got.Title.IsAbsent())

	assert.True(t, Override{}.IsEmpty())
	assert.False(t, got.IsEmpty())
}

func TestEventClone(t *testing.T) {
	start := time.Date(2025, 8, 5, 3, 0, 0, 0, time.UTC)
	ev := NewMockEvent("evt-1", "alice", "Sync", start, start.Add(time.Hour))
	ev.Participants = Participants("u1", "u2")
	ev.Exceptions = []Exception{{
		Date:     start,
		Override: &Override{Participants: mo.Some(Participants("u3"))},
	}}

	c := ev.Clone()
	c.Participants[0].UserID = "changed"
	c.Exceptions[0].Override.Title = mo.Some("changed")
	ps, _ := c.Exceptions[0].Override.Participants.Get()
	ps[0].UserID = "changed"

	assert.Equal(t, "u1", ev.Participants[0].UserID)
	assert.True(t, ev.Exceptions[0].Override.Title.IsAbsent())
	orig, _ := ev.Exceptions[0].Override.Participants.Get()
	assert.Equal(t, "u3", orig[0].UserID)

	assert.Equal(t, time.Hour, ev.Duration())
	assert.False(t, ev.IsRecurring())
	assert.Nil(t, (*Event)(nil).Clone())
}

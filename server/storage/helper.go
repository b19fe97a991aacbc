package storage

import (
	"encoding/json"
	"time"

	"github.com/samber/mo"
)

// overrideJSON is the wire form of Override; absent options are omitted.
type overrideJSON struct {
	Title        *string        `json:"title,omitempty"`
	Description  *string        `json:"description,omitempty"`
	StartTime    *time.Time     `json:"startTime,omitempty"`
	EndTime      *time.Time     `json:"endTime,omitempty"`
	Timezone     *string        `json:"timezone,omitempty"`
	Participants *[]Participant `json:"participants,omitempty"`
}

func (o Override) MarshalJSON() ([]byte, error) {
	return json.Marshal(overrideJSON{
		Title:        optionToPointer(o.Title),
		Description:  optionToPointer(o.Description),
		StartTime:    optionToPointer(o.StartTime),
		EndTime:      optionToPointer(o.EndTime),
		Timezone:     optionToPointer(o.Timezone),
		Participants: optionToPointer(o.Participants),
	})
}

func (o *Override) UnmarshalJSON(data []byte) error {
	var raw overrideJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*o = Override{
		Title:        pointerToOption(raw.Title),
		Description:  pointerToOption(raw.Description),
		StartTime:    pointerToOption(raw.StartTime),
		EndTime:      pointerToOption(raw.EndTime),
		Timezone:     pointerToOption(raw.Timezone),
		Participants: pointerToOption(raw.Participants),
	}
	return nil
}

func optionToPointer[T any](o mo.Option[T]) *T {
	v, ok := o.Get()
	if !ok {
		return nil
	}
	return &v
}

func pointerToOption[T any](p *T) mo.Option[T] {
	if p == nil {
		return mo.None[T]()
	}
	return mo.Some(*p)
}

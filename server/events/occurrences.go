package events

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/samber/mo"

	"github.com/SaShakib/CalendarAPIRrule/server/auth"
	"github.com/SaShakib/CalendarAPIRrule/server/mutation"
	"github.com/SaShakib/CalendarAPIRrule/server/recurrence"
	"github.com/SaShakib/CalendarAPIRrule/server/storage"
)

// OccurrenceView is an occurrence enriched with its master's fields.
// Override values take precedence over the master's.
type OccurrenceView struct {
	EventID        string                `json:"eventId"`
	SeriesID       string                `json:"seriesId,omitempty"`
	Title          string                `json:"title"`
	Description    string                `json:"description,omitempty"`
	Timezone       string                `json:"timezone"`
	StartTime      time.Time             `json:"startTime"`
	EndTime        time.Time             `json:"endTime"`
	OccurrenceDate time.Time             `json:"occurrenceDate"`
	Participants   []storage.Participant `json:"participants"`
	IsRecurring    bool                  `json:"isRecurring"`
	IsException    bool                  `json:"isException"`
}

// OccurrenceList is the result of a range query.
type OccurrenceList struct {
	RangeStart  time.Time        `json:"rangeStart"`
	RangeEnd    time.Time        `json:"rangeEnd"`
	Occurrences []OccurrenceView `json:"occurrences"`
	// Truncated is set when some event hit the per-event occurrence cap.
	Truncated bool `json:"truncated,omitempty"`
}

// Occurrences expands every event owned by p over [start, end]. A missing
// start means now; a missing end means start plus the default range.
func (s *Service) Occurrences(ctx context.Context, p *auth.Principal, start, end mo.Option[time.Time]) (*OccurrenceList, error) {
	if p == nil {
		return nil, &auth.Error{Type: auth.ErrUnauthorized, Message: "authentication required"}
	}

	rangeStart := start.OrElse(s.now()).UTC()
	rangeEnd := end.OrElse(rangeStart.Add(s.defaultRange)).UTC()
	if rangeEnd.Before(rangeStart) {
		return nil, &mutation.ValidationError{Field: "end", Message: "must not be before start"}
	}

	began := time.Now()
	masters, err := s.store.FindByOwner(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("load events of %s: %w", p.ID, err)
	}

	list := &OccurrenceList{
		RangeStart:  rangeStart,
		RangeEnd:    rangeEnd,
		Occurrences: []OccurrenceView{},
	}
	for _, ev := range masters {
		res, err := s.expander.Expand(ev, rangeStart, rangeEnd)
		if err != nil {
			s.logger.Error("failed to expand event", "event_id", ev.ID, "error", err)
			return nil, fmt.Errorf("expand event %s: %w", ev.ID, err)
		}
		if res.Truncated {
			list.Truncated = true
			s.logger.Warn("occurrence cap reached", "event_id", ev.ID, "returned", len(res.Occurrences))
		}
		for _, occ := range res.Occurrences {
			list.Occurrences = append(list.Occurrences, enrich(ev, occ))
		}
	}

	sort.SliceStable(list.Occurrences, func(i, j int) bool {
		return list.Occurrences[i].StartTime.Before(list.Occurrences[j].StartTime)
	})

	s.metrics.ExpansionCompleted(len(list.Occurrences), list.Truncated, time.Since(began))
	s.logger.Debug("occurrences expanded",
		"owner", p.ID,
		"events", len(masters),
		"occurrences", len(list.Occurrences))
	return list, nil
}

func enrich(ev *storage.Event, occ recurrence.Occurrence) OccurrenceView {
	v := OccurrenceView{
		EventID:        ev.ID,
		SeriesID:       ev.SeriesID,
		Title:          ev.Title,
		Description:    ev.Description,
		Timezone:       ev.Timezone,
		StartTime:      occ.Start,
		EndTime:        occ.End,
		OccurrenceDate: occ.Anchor,
		Participants:   ev.Participants,
		IsRecurring:    ev.IsRecurring(),
		IsException:    occ.IsOverridden(),
	}
	if o := occ.Override; o != nil {
		v.Title = o.Title.OrElse(v.Title)
		v.Description = o.Description.OrElse(v.Description)
		v.Timezone = o.Timezone.OrElse(v.Timezone)
		v.Participants = o.Participants.OrElse(v.Participants)
	}
	if v.Participants == nil {
		v.Participants = []storage.Participant{}
	}
	return v
}

package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/SaShakib/CalendarAPIRrule/server/mutation"
)

type recurrencePayload struct {
	Freq      string   `json:"freq"`
	Interval  *int     `json:"interval,omitempty"`
	Until     *string  `json:"until,omitempty"`
	ByWeekday []string `json:"byweekday,omitempty"`
}

func (p *recurrencePayload) input() (mutation.RecurrenceInput, error) {
	in := mutation.RecurrenceInput{
		Freq:      strings.ToUpper(strings.TrimSpace(p.Freq)),
		Until:     ptrOption(p.Until),
		ByWeekday: p.ByWeekday,
	}
	if p.Interval != nil {
		if *p.Interval <= 0 {
			return in, badRequest("recurrence.interval must be a positive integer", nil)
		}
		in.Interval = *p.Interval
	}
	return in, nil
}

type createPayload struct {
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	StartTime    string             `json:"startTime"`
	EndTime      string             `json:"endTime"`
	Timezone     string             `json:"timezone"`
	Recurrence   *recurrencePayload `json:"recurrence"`
	Participants []string           `json:"participants"`
}

func (p createPayload) input() (mutation.CreateInput, error) {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"startTime", p.StartTime},
		{"endTime", p.EndTime},
		{"timezone", p.Timezone},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return mutation.CreateInput{}, badRequest("missing required fields: "+strings.Join(missing, ", "), nil)
	}

	in := mutation.CreateInput{
		Title:        p.Title,
		Description:  p.Description,
		StartTime:    p.StartTime,
		EndTime:      p.EndTime,
		Timezone:     p.Timezone,
		Participants: p.Participants,
	}
	if p.Recurrence != nil {
		rec, err := p.Recurrence.input()
		if err != nil {
			return in, err
		}
		in.Recurrence = mo.Some(rec)
	}
	return in, nil
}

type updatePayload struct {
	OccurrenceDate   *string            `json:"occurrenceDate"`
	Title            *string            `json:"title"`
	Description      *string            `json:"description"`
	StartTime        *string            `json:"startTime"`
	EndTime          *string            `json:"endTime"`
	Timezone         *string            `json:"timezone"`
	Recurrence       *recurrencePayload `json:"recurrence"`
	Participants     *[]string          `json:"participants"`
	DeleteOccurrence bool               `json:"deleteOccurrence"`
}

func (p updatePayload) changes() (mutation.Changes, error) {
	ch := mutation.Changes{
		Title:            ptrOption(p.Title),
		Description:      ptrOption(p.Description),
		StartTime:        ptrOption(p.StartTime),
		EndTime:          ptrOption(p.EndTime),
		Timezone:         ptrOption(p.Timezone),
		Participants:     ptrOption(p.Participants),
		DeleteOccurrence: p.DeleteOccurrence,
	}
	if p.Recurrence != nil {
		rec, err := p.Recurrence.input()
		if err != nil {
			return ch, err
		}
		ch.Recurrence = mo.Some(rec)
	}
	return ch, nil
}

type deletePayload struct {
	OccurrenceDate *string `json:"occurrenceDate"`
}

// decodeBody reads a JSON body into v. An empty body leaves v untouched
// unless required is set.
func decodeBody(req *http.Request, v any, required bool) error {
	dec := json.NewDecoder(req.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) && !required {
			return nil
		}
		if errors.Is(err, io.EOF) {
			return badRequest("request body is required", err)
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return badRequest("request body too large", err)
		}
		return badRequest("invalid JSON body", err)
	}
	return nil
}

func eventID(raw string) (string, error) {
	if _, err := uuid.Parse(raw); err != nil {
		return "", badRequest("Invalid Id", err)
	}
	return raw, nil
}

// instantParam parses an absolute timestamp; local forms are read as UTC.
func (r *Router) instantParam(field, value string) (mo.Option[time.Time], error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return mo.None[time.Time](), nil
	}
	t, err := r.tz.ToAbsolute(value, "UTC")
	if err != nil {
		return mo.None[time.Time](), badRequest(field+" is not a valid date", err)
	}
	return mo.Some(t), nil
}

// occurrenceDate prefers the body value over the query parameter.
func (r *Router) occurrenceDate(req *http.Request, body *string) (mo.Option[time.Time], error) {
	if body != nil && strings.TrimSpace(*body) != "" {
		return r.instantParam("occurrenceDate", *body)
	}
	return r.instantParam("occurrenceDate", req.URL.Query().Get("occurrenceDate"))
}

// ifMatch parses If-Match as an event version; "*" and absence mean any.
func ifMatch(req *http.Request) (mo.Option[int64], error) {
	raw := strings.TrimSpace(req.Header.Get(HeaderIfMatch))
	if raw == "" || raw == "*" {
		return mo.None[int64](), nil
	}
	raw = strings.TrimPrefix(raw, "W/")
	v, err := strconv.ParseInt(strings.Trim(raw, `"`), 10, 64)
	if err != nil {
		return mo.None[int64](), badRequest("If-Match must be an event ETag", err)
	}
	return mo.Some(v), nil
}

func etag(version int64) string {
	return `"` + strconv.FormatInt(version, 10) + `"`
}

func ptrOption[T any](p *T) mo.Option[T] {
	if p == nil {
		return mo.None[T]()
	}
	return mo.Some(*p)
}

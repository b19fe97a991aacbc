package recurrence

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // TZID parameters must resolve without a system zoneinfo

	"github.com/samber/mo"
	"github.com/teambition/rrule-go"
)

// Frequency is the repetition unit of a rule.
type Frequency string

const (
	Daily   Frequency = "DAILY"
	Weekly  Frequency = "WEEKLY"
	Monthly Frequency = "MONTHLY"
)

// ParseFrequency validates a frequency name (case-insensitive).
func ParseFrequency(s string) (Frequency, error) {
	switch f := Frequency(strings.ToUpper(strings.TrimSpace(s))); f {
	case Daily, Weekly, Monthly:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unsupported frequency %q", ErrInvalidSpec, s)
	}
}

// Spec is the decoded form of a recurrence rule.
type Spec struct {
	Freq      Frequency
	Dtstart   time.Time // anchor instant of the first occurrence
	Interval  int       // >= 1; 0 is treated as 1 when encoding
	Until     mo.Option[time.Time]
	Count     int      // 0 means unbounded by count
	ByWeekday []string // RFC 5545 BYDAY values, e.g. "MO", "+1FR"
}

// ErrInvalidSpec is wrapped by Encode when the spec cannot describe a rule.
var ErrInvalidSpec = errors.New("invalid recurrence spec")

// MalformedRuleError is returned when a stored rule string cannot be decoded.
type MalformedRuleError struct {
	Rule   string
	Reason string
	Err    error
}

func (e *MalformedRuleError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed recurrence rule %q: %s: %v", e.Rule, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed recurrence rule %q: %s", e.Rule, e.Reason)
}

func (e *MalformedRuleError) Unwrap() error {
	return e.Err
}

// Codec converts between Spec and the canonical rule string.
type Codec interface {
	Encode(spec Spec) (string, error)
	Decode(rule string) (Spec, error)
	// WithUntil sets or replaces the upper bound, keeping every other field.
	WithUntil(rule string, until time.Time) (string, error)
}

// RRuleCodec is the rrule-go backed Codec. It keeps no state.
type RRuleCodec struct{}

// NewCodec returns the default codec.
func NewCodec() RRuleCodec {
	return RRuleCodec{}
}

// Stamps carry a fractional part only when the instant is not second aligned,
// so plain rules stay RFC 5545 compatible.
const stampLayout = "20060102T150405.999999999Z"

var byDayPattern = regexp.MustCompile(`^[+-]?([1-9]|[1-4][0-9]|5[0-3])?(MO|TU|WE|TH|FR|SA|SU)$`)

func formatStamp(t time.Time) string {
	return t.UTC().Format(stampLayout)
}

// parseStamp accepts UTC stamps (with optional fraction), floating local stamps
// interpreted in loc, and DATE values.
func parseStamp(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if strings.HasSuffix(value, "Z") {
		// time.Parse accepts a fractional second after the seconds field.
		return time.Parse("20060102T150405Z", value)
	}
	if loc == nil {
		loc = time.UTC
	}
	if len(value) == len("20060102") {
		t, err := time.ParseInLocation("20060102", value, loc)
		return t.UTC(), err
	}
	t, err := time.ParseInLocation("20060102T150405", value, loc)
	return t.UTC(), err
}

func (RRuleCodec) Encode(spec Spec) (string, error) {
	if _, err := ParseFrequency(string(spec.Freq)); err != nil {
		return "", err
	}
	if spec.Dtstart.IsZero() {
		return "", fmt.Errorf("%w: dtstart is required", ErrInvalidSpec)
	}
	if spec.Interval < 0 {
		return "", fmt.Errorf("%w: interval must be >= 1", ErrInvalidSpec)
	}
	if spec.Count < 0 {
		return "", fmt.Errorf("%w: count must not be negative", ErrInvalidSpec)
	}
	for _, d := range spec.ByWeekday {
		if !byDayPattern.MatchString(strings.ToUpper(d)) {
			return "", fmt.Errorf("%w: invalid weekday %q", ErrInvalidSpec, d)
		}
	}

	var b strings.Builder
	b.WriteString("DTSTART:")
	b.WriteString(formatStamp(spec.Dtstart))
	b.WriteString("\nRRULE:")
	b.WriteString(rruleLine(spec))
	if until, ok := spec.Until.Get(); ok {
		b.WriteString(";UNTIL=")
		b.WriteString(formatStamp(until))
	}
	return b.String(), nil
}

// rruleLine renders the RRULE body without DTSTART and UNTIL.
func rruleLine(spec Spec) string {
	interval := spec.Interval
	if interval == 0 {
		interval = 1
	}
	parts := []string{
		"FREQ=" + string(spec.Freq),
		"INTERVAL=" + strconv.Itoa(interval),
	}
	if len(spec.ByWeekday) > 0 {
		days := make([]string, len(spec.ByWeekday))
		for i, d := range spec.ByWeekday {
			days[i] = strings.ToUpper(d)
		}
		parts = append(parts, "BYDAY="+strings.Join(days, ","))
	}
	if spec.Count > 0 {
		parts = append(parts, "COUNT="+strconv.Itoa(spec.Count))
	}
	return strings.Join(parts, ";")
}

func (RRuleCodec) Decode(rule string) (Spec, error) {
	malformed := func(reason string, err error) (Spec, error) {
		return Spec{}, &MalformedRuleError{Rule: rule, Reason: reason, Err: err}
	}

	var (
		spec      Spec
		rruleBody string
		loc       = time.UTC
	)
	lines := strings.FieldsFunc(rule, func(r rune) bool { return r == '\n' || r == '\r' })
	for _, line := range lines {
		line = strings.TrimSpace(line)
		upper := strings.ToUpper(line)
		switch {
		case line == "":
		case strings.HasPrefix(upper, "DTSTART"):
			name, value, ok := strings.Cut(line, ":")
			if !ok {
				return malformed("DTSTART without value", nil)
			}
			if _, tzid, found := strings.Cut(name, "TZID="); found {
				l, err := time.LoadLocation(tzid)
				if err != nil {
					return malformed("unknown TZID", err)
				}
				loc = l
			}
			t, err := parseStamp(value, loc)
			if err != nil {
				return malformed("invalid DTSTART", err)
			}
			spec.Dtstart = t
		case strings.HasPrefix(upper, "RRULE:"):
			rruleBody = line[len("RRULE:"):]
		case strings.HasPrefix(upper, "FREQ="):
			rruleBody = line
		default:
			return malformed("unsupported line "+strconv.Quote(line), nil)
		}
	}
	if rruleBody == "" {
		return malformed("missing RRULE", nil)
	}

	for _, attr := range strings.Split(rruleBody, ";") {
		if attr == "" {
			continue
		}
		key, value, ok := strings.Cut(attr, "=")
		if !ok {
			return malformed("invalid attribute "+strconv.Quote(attr), nil)
		}
		switch strings.ToUpper(key) {
		case "FREQ":
			f, err := ParseFrequency(value)
			if err != nil {
				return malformed("unsupported FREQ", err)
			}
			spec.Freq = f
		case "INTERVAL":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return malformed("invalid INTERVAL", err)
			}
			spec.Interval = n
		case "COUNT":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return malformed("invalid COUNT", err)
			}
			spec.Count = n
		case "UNTIL":
			t, err := parseStamp(value, loc)
			if err != nil {
				return malformed("invalid UNTIL", err)
			}
			spec.Until = mo.Some(t)
		case "DTSTART":
			t, err := parseStamp(value, loc)
			if err != nil {
				return malformed("invalid DTSTART", err)
			}
			spec.Dtstart = t
		case "BYDAY":
			for _, d := range strings.Split(value, ",") {
				d = strings.ToUpper(strings.TrimSpace(d))
				if !byDayPattern.MatchString(d) {
					return malformed("invalid BYDAY", nil)
				}
				spec.ByWeekday = append(spec.ByWeekday, d)
			}
		case "WKST":
			// accepted for compatibility, weeks always start on Monday here
		default:
			return malformed("unsupported attribute "+strconv.Quote(key), nil)
		}
	}

	if spec.Freq == "" {
		return malformed("FREQ is required", nil)
	}
	if spec.Dtstart.IsZero() {
		return malformed("DTSTART is required", nil)
	}
	if spec.Interval == 0 {
		spec.Interval = 1
	}
	// Let rrule-go confirm the body it will later enumerate.
	if _, err := rrule.StrToROption(rruleLine(spec)); err != nil {
		return malformed("rejected by rrule", err)
	}
	return spec, nil
}

func (c RRuleCodec) WithUntil(rule string, until time.Time) (string, error) {
	spec, err := c.Decode(rule)
	if err != nil {
		return "", err
	}
	spec.Until = mo.Some(until.UTC())
	return c.Encode(spec)
}

// Between returns every anchor instant of spec within [after, before], inclusive.
func (s Spec) Between(after, before time.Time) ([]time.Time, error) {
	if before.Before(after) {
		return nil, nil
	}
	opt, err := rrule.StrToROption(rruleLine(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}

	// rrule-go iterates at second resolution, so any sub-second part of the
	// anchor is shifted out and added back to every generated instant.
	dtstart := s.Dtstart.UTC()
	frac := dtstart.Sub(dtstart.Truncate(time.Second))
	opt.Dtstart = dtstart.Add(-frac)
	if until, ok := s.Until.Get(); ok {
		opt.Until = until.UTC().Add(-frac)
	}

	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	anchors := r.Between(after.UTC().Add(-frac), before.UTC().Add(-frac), true)
	for i := range anchors {
		anchors[i] = anchors[i].Add(frac).UTC()
	}
	return anchors, nil
}

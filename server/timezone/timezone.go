// Package timezone turns caller supplied local times into absolute instants.
package timezone

import (
	"fmt"
	"strings"
	"sync"
	"time"
	_ "time/tzdata" // embedded IANA database, independent of the host
)

// Converter interprets a local wall-clock time in a zone.
type Converter interface {
	// ToAbsolute converts local (e.g. "2025-08-19T11:00:00") in zone to UTC.
	// A local string carrying its own offset or "Z" is taken as absolute.
	ToAbsolute(local, zone string) (time.Time, error)
	// Validate reports whether zone names a known time zone.
	Validate(zone string) error
}

// Error is returned for unknown zones and unparsable local times.
type Error struct {
	Value   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("timezone: %s %q: %v", e.Message, e.Value, e.Err)
	}
	return fmt.Sprintf("timezone: %s %q", e.Message, e.Value)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IANA converts using the zone database shipped with Go.
// Loaded locations are cached per zone name.
type IANA struct {
	mu        sync.RWMutex
	locations map[string]*time.Location
}

// NewIANA creates a converter backed by the IANA database.
func NewIANA() *IANA {
	return &IANA{locations: make(map[string]*time.Location)}
}

var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

var absoluteLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
}

func (c *IANA) location(zone string) (*time.Location, error) {
	zone = strings.TrimSpace(zone)
	if zone == "" {
		return time.UTC, nil
	}

	c.mu.RLock()
	loc, ok := c.locations[zone]
	c.mu.RUnlock()
	if ok {
		return loc, nil
	}

	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, &Error{Value: zone, Message: "unknown zone", Err: err}
	}

	c.mu.Lock()
	c.locations[zone] = loc
	c.mu.Unlock()
	return loc, nil
}

func (c *IANA) Validate(zone string) error {
	_, err := c.location(zone)
	return err
}

func (c *IANA) ToAbsolute(local, zone string) (time.Time, error) {
	local = strings.TrimSpace(local)
	if local == "" {
		return time.Time{}, &Error{Value: local, Message: "empty time"}
	}

	for _, layout := range absoluteLayouts {
		if t, err := time.Parse(layout, local); err == nil {
			return t.UTC(), nil
		}
	}

	loc, err := c.location(zone)
	if err != nil {
		return time.Time{}, err
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, local, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &Error{Value: local, Message: "unrecognized time format"}
}

// Default is the process wide converter used when none is injected.
var Default Converter = NewIANA()

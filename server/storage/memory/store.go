// memory based implementation for testing and the demo server
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/SaShakib/CalendarAPIRrule/server/storage"
)

// Store implements storage.Storage interface using in-memory maps
type Store struct {
	mu     sync.RWMutex
	events map[string]*storage.Event // key: event ID
	now    func() time.Time
}

// New creates a new in-memory storage
func New() *Store {
	return &Store{
		events: make(map[string]*storage.Event),
		now:    time.Now,
	}
}

func notFound(id string) error {
	return &storage.Error{
		Type:    storage.ErrNotFound,
		Message: "event not found: " + id,
	}
}

// Ping implements storage.HealthChecker
func (s *Store) Ping(_ context.Context) error {
	return nil
}

func (s *Store) FindByID(_ context.Context, id string) (*storage.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.events[id]
	if !ok {
		return nil, notFound(id)
	}
	return ev.Clone(), nil
}

func (s *Store) FindByOwner(_ context.Context, ownerID string) ([]*storage.Event, error) {
	return s.filter(func(ev *storage.Event) bool { return ev.CreatedBy == ownerID }), nil
}

func (s *Store) FindBySeriesID(_ context.Context, seriesID string) ([]*storage.Event, error) {
	if seriesID == "" {
		return nil, nil
	}
	return s.filter(func(ev *storage.Event) bool { return ev.SeriesID == seriesID }), nil
}

// filter returns clones ordered by start time, then id, so results are stable.
func (s *Store) filter(match func(*storage.Event) bool) []*storage.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*storage.Event
	for _, ev := range s.events {
		if match(ev) {
			out = append(out, ev.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) Create(_ context.Context, ev *storage.Event) error {
	if ev == nil || ev.ID == "" {
		return &storage.Error{
			Type:    storage.ErrInvalidInput,
			Message: "event id is required",
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[ev.ID]; exists {
		return &storage.Error{
			Type:    storage.ErrAlreadyExists,
			Message: "event already exists: " + ev.ID,
		}
	}

	now := s.now().UTC()
	ev.CreatedAt = now
	ev.UpdatedAt = now
	ev.Version = 1
	s.events[ev.ID] = ev.Clone()

	return nil
}

func (s *Store) Save(_ context.Context, ev *storage.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.events[ev.ID]
	if !exists {
		return notFound(ev.ID)
	}
	if current.Version != ev.Version {
		return &storage.Error{
			Type:    storage.ErrConflict,
			Message: "event was modified concurrently: " + ev.ID,
		}
	}

	ev.Version++
	ev.CreatedAt = current.CreatedAt
	ev.UpdatedAt = s.now().UTC()
	s.events[ev.ID] = ev.Clone()

	return nil
}

func (s *Store) DeleteOne(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[id]; !exists {
		return notFound(id)
	}
	delete(s.events, id)
	return nil
}

func (s *Store) DeleteBySeriesID(_ context.Context, seriesID string) (int, error) {
	if seriesID == "" {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, ev := range s.events {
		if ev.SeriesID == seriesID {
			delete(s.events, id)
			removed++
		}
	}
	return removed, nil
}

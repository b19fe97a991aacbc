package storage

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockStorage implements the Storage interface for testing
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) FindByID(ctx context.Context, id string) (*Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Event), args.Error(1)
}

func (m *MockStorage) FindByOwner(ctx context.Context, ownerID string) ([]*Event, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Event), args.Error(1)
}

func (m *MockStorage) FindBySeriesID(ctx context.Context, seriesID string) ([]*Event, error) {
	args := m.Called(ctx, seriesID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Event), args.Error(1)
}

func (m *MockStorage) Create(ctx context.Context, event *Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockStorage) Save(ctx context.Context, event *Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockStorage) DeleteOne(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStorage) DeleteBySeriesID(ctx context.Context, seriesID string) (int, error) {
	args := m.Called(ctx, seriesID)
	return args.Int(0), args.Error(1)
}

// --- Helper methods for creating test data ---

// NewMockEvent creates a single (non-recurring) test event owned by owner.
func NewMockEvent(id, owner, title string, start, end time.Time) *Event {
	return &Event{
		ID:           id,
		Title:        title,
		StartTime:    start,
		EndTime:      end,
		Timezone:     "UTC",
		Participants: []Participant{},
		Exceptions:   []Exception{},
		CreatedBy:    owner,
		Version:      1,
	}
}

// NewMockSeries creates a recurring test event with the given rule and series id.
func NewMockSeries(id, owner, title, rule, seriesID string, start, end time.Time) *Event {
	e := NewMockEvent(id, owner, title, start, end)
	e.RecurrenceRule = rule
	e.SeriesID = seriesID
	return e
}

package storage

import "context"

// Storage is the event repository. Implementations must make every single
// Create, Save and Delete call atomic; the engine relies on nothing more.
// Please use the *Error type for failures so callers can map them.
type Storage interface {
	// FindByID returns the event or an ErrNotFound error.
	FindByID(ctx context.Context, id string) (*Event, error)
	// FindByOwner returns every master event created by ownerID.
	FindByOwner(ctx context.Context, ownerID string) ([]*Event, error)
	// FindBySeriesID returns every master event sharing seriesID.
	FindBySeriesID(ctx context.Context, seriesID string) ([]*Event, error)
	// Create stores a new event. CreatedAt, UpdatedAt and Version are set by the store.
	Create(ctx context.Context, event *Event) error
	// Save replaces an existing event. It fails with ErrConflict when
	// event.Version does not match the stored version, and bumps Version on success.
	Save(ctx context.Context, event *Event) error
	// DeleteOne removes a single event.
	DeleteOne(ctx context.Context, id string) error
	// DeleteBySeriesID removes every event of a series and returns how many were removed.
	DeleteBySeriesID(ctx context.Context, seriesID string) (int, error)
}

// HealthChecker is implemented by stores that can report backend connectivity.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

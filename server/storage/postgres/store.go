// Package postgres implements storage.Storage on PostgreSQL via lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/SaShakib/CalendarAPIRrule/server/storage"
)

const uniqueViolation = "23505"

var (
	_ storage.Storage       = (*Store)(nil)
	_ storage.HealthChecker = (*Store)(nil)
)

// Store implements storage.Storage using PostgreSQL.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger for the store
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a store over an open connection pool.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects to url and applies migrations.
func Open(ctx context.Context, url string, opts ...Option) (*Store, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return New(db, opts...), nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping implements storage.HealthChecker
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) FindByID(ctx context.Context, id string) (*storage.Event, error) {
	ev, err := scanEvent(s.db.QueryRowContext(ctx, queryGetEventByID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get event %s: %w", id, err)
	}
	return ev, nil
}

func (s *Store) FindByOwner(ctx context.Context, ownerID string) ([]*storage.Event, error) {
	return s.list(ctx, queryListEventsByOwner, ownerID)
}

func (s *Store) FindBySeriesID(ctx context.Context, seriesID string) ([]*storage.Event, error) {
	if seriesID == "" {
		return nil, nil
	}
	return s.list(ctx, queryListEventsBySeries, seriesID)
}

func (s *Store) list(ctx context.Context, query string, arg string) ([]*storage.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var result []*storage.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		result = append(result, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return result, nil
}

func (s *Store) Create(ctx context.Context, ev *storage.Event) error {
	if ev == nil || ev.ID == "" {
		return &storage.Error{Type: storage.ErrInvalidInput, Message: "event id is required"}
	}
	exceptions, err := encodeExceptions(ev.Exceptions)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	_, err = s.db.ExecContext(ctx, queryInsertEvent,
		ev.ID,
		ev.Title,
		ev.Description,
		ev.StartTime.UTC(),
		ev.EndTime.UTC(),
		ev.Timezone,
		ev.RecurrenceRule,
		nullString(ev.SeriesID),
		pq.Array(participantIDs(ev.Participants)),
		exceptions,
		ev.CreatedBy,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &storage.Error{Type: storage.ErrAlreadyExists, Message: "event already exists: " + ev.ID, Err: err}
		}
		return fmt.Errorf("insert event %s: %w", ev.ID, err)
	}

	ev.Version = 1
	ev.CreatedAt = now
	ev.UpdatedAt = now
	s.logger.Debug("event inserted", "event_id", ev.ID)
	return nil
}

func (s *Store) Save(ctx context.Context, ev *storage.Event) error {
	exceptions, err := encodeExceptions(ev.Exceptions)
	if err != nil {
		return err
	}

	err = s.db.QueryRowContext(ctx, queryUpdateEvent,
		ev.ID,
		ev.Version,
		ev.Title,
		ev.Description,
		ev.StartTime.UTC(),
		ev.EndTime.UTC(),
		ev.Timezone,
		ev.RecurrenceRule,
		nullString(ev.SeriesID),
		pq.Array(participantIDs(ev.Participants)),
		exceptions,
		s.now().UTC(),
	).Scan(&ev.Version, &ev.CreatedAt, &ev.UpdatedAt)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update event %s: %w", ev.ID, err)
	}

	// No row matched: either the event is gone or the version moved on.
	var exists bool
	if err := s.db.QueryRowContext(ctx, queryEventExists, ev.ID).Scan(&exists); err != nil {
		return fmt.Errorf("check event %s: %w", ev.ID, err)
	}
	if !exists {
		return notFound(ev.ID)
	}
	return &storage.Error{
		Type:    storage.ErrConflict,
		Message: "event was modified concurrently: " + ev.ID,
	}
}

func (s *Store) DeleteOne(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, queryDeleteEvent, id)
	if err != nil {
		return fmt.Errorf("delete event %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete event %s: %w", id, err)
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}

func (s *Store) DeleteBySeriesID(ctx context.Context, seriesID string) (int, error) {
	if seriesID == "" {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, queryDeleteEventsBySeries, seriesID)
	if err != nil {
		return 0, fmt.Errorf("delete series %s: %w", seriesID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete series %s: %w", seriesID, err)
	}
	return int(n), nil
}

func notFound(id string) error {
	return &storage.Error{
		Type:    storage.ErrNotFound,
		Message: "event not found: " + id,
	}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// Package events ties the mutation engine and the occurrence generator to a
// repository. It resolves ownership, serializes writes per event and applies
// the persistence actions the engine asks for.
package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/samber/mo"

	"github.com/SaShakib/CalendarAPIRrule/internal/lock"
	"github.com/SaShakib/CalendarAPIRrule/server/auth"
	"github.com/SaShakib/CalendarAPIRrule/server/metrics"
	"github.com/SaShakib/CalendarAPIRrule/server/mutation"
	"github.com/SaShakib/CalendarAPIRrule/server/recurrence"
	"github.com/SaShakib/CalendarAPIRrule/server/storage"
)

// DefaultRange is used by range queries that omit the end bound.
const DefaultRange = 365 * 24 * time.Hour

// Service is the application layer over a storage.Storage.
type Service struct {
	store        storage.Storage
	mutator      *mutation.Engine
	expander     *recurrence.Engine
	locker       lock.Locker
	metrics      metrics.Sink
	logger       *slog.Logger
	defaultRange time.Duration
	now          func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(sink metrics.Sink) Option {
	return func(s *Service) {
		if sink != nil {
			s.metrics = sink
		}
	}
}

// WithLocker sets the per-event locker. Defaults to an in-process one.
func WithLocker(l lock.Locker) Option {
	return func(s *Service) {
		if l != nil {
			s.locker = l
		}
	}
}

// WithMutationEngine replaces the mutation engine.
func WithMutationEngine(e *mutation.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.mutator = e
		}
	}
}

// WithExpander replaces the occurrence generator.
func WithExpander(e *recurrence.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.expander = e
		}
	}
}

// WithDefaultRange sets the span used when a range query has no end.
func WithDefaultRange(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.defaultRange = d
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a service over store.
func NewService(store storage.Storage, opts ...Option) *Service {
	s := &Service{
		store:        store,
		locker:       lock.NewLocal(),
		metrics:      metrics.NewNoop(),
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		defaultRange: DefaultRange,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.expander == nil {
		s.expander = recurrence.NewEngine()
	}
	if s.mutator == nil {
		s.mutator = mutation.NewEngine(mutation.WithCodec(s.expander.Codec()))
	}
	return s
}

// Store exposes the underlying repository, used by health checks.
func (s *Service) Store() storage.Storage {
	return s.store
}

// Create stores a new event owned by p.
func (s *Service) Create(ctx context.Context, p *auth.Principal, in mutation.CreateInput) (ev *storage.Event, err error) {
	defer func() { s.metrics.MutationCompleted(metrics.OpCreate, "", err) }()

	if p == nil {
		return nil, &auth.Error{Type: auth.ErrUnauthorized, Message: "authentication required"}
	}
	in.CreatedBy = p.ID

	out, err := s.mutator.Create(in)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, out); err != nil {
		return nil, err
	}

	s.logger.Info("event created",
		"event_id", out.Event.ID,
		"series_id", out.Event.SeriesID,
		"owner", p.ID,
		"recurring", out.Event.IsRecurring())
	return out.Event, nil
}

// Get returns a master event if p may see it.
func (s *Service) Get(ctx context.Context, p *auth.Principal, id string) (*storage.Event, error) {
	ev, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(p, ev.CreatedBy); err != nil {
		return nil, err
	}
	return ev, nil
}

// UpdateRequest is a scoped change to one event.
type UpdateRequest struct {
	ID             string
	Scope          mutation.Scope
	OccurrenceDate mo.Option[time.Time]
	Changes        mutation.Changes
	// IfMatch is the version the caller last saw; a mismatch fails with
	// ErrPreconditionFailed.
	IfMatch mo.Option[int64]
}

// Update applies a scoped change and returns the affected event: the master
// for thisEvent and allEvents, the new segment for a split.
func (s *Service) Update(ctx context.Context, p *auth.Principal, req UpdateRequest) (ev *storage.Event, err error) {
	defer func() { s.metrics.MutationCompleted(metrics.OpUpdate, string(req.Scope), err) }()

	var out *mutation.Outcome
	err = s.withEvent(ctx, p, req.ID, req.IfMatch, func(current *storage.Event) error {
		s.checkOccurrenceDate(current, metrics.OpUpdate, req.Scope, req.OccurrenceDate)

		var err error
		out, err = s.mutator.Update(current, req.Scope, req.OccurrenceDate, req.Changes)
		if err != nil {
			return err
		}
		if isSplit(out) {
			s.metrics.SeriesSplit()
		}
		return s.apply(ctx, out)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("event updated",
		"event_id", req.ID,
		"scope", req.Scope,
		"result_id", out.Event.ID,
		"series_id", out.Event.SeriesID)
	return out.Event, nil
}

// DeleteRequest is a scoped delete of one event.
type DeleteRequest struct {
	ID             string
	Scope          mutation.Scope
	OccurrenceDate mo.Option[time.Time]
	IfMatch        mo.Option[int64]
}

// Delete applies a scoped delete and returns a human readable summary.
func (s *Service) Delete(ctx context.Context, p *auth.Principal, req DeleteRequest) (msg string, err error) {
	defer func() { s.metrics.MutationCompleted(metrics.OpDelete, string(req.Scope), err) }()

	var out *mutation.Outcome
	err = s.withEvent(ctx, p, req.ID, req.IfMatch, func(current *storage.Event) error {
		s.checkOccurrenceDate(current, metrics.OpDelete, req.Scope, req.OccurrenceDate)

		var err error
		out, err = s.mutator.Delete(current, req.Scope, req.OccurrenceDate)
		if err != nil {
			return err
		}
		return s.apply(ctx, out)
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("event deleted",
		"event_id", req.ID,
		"scope", req.Scope,
		"series_id", out.Event.SeriesID)
	return out.Message, nil
}

// withEvent locks id, loads the event, checks ownership and the expected
// version, then runs fn. The engine never sees events p may not modify.
func (s *Service) withEvent(ctx context.Context, p *auth.Principal, id string, ifMatch mo.Option[int64], fn func(*storage.Event) error) error {
	release, err := s.locker.Lock(ctx, id)
	if err != nil {
		return fmt.Errorf("lock event %s: %w", id, err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("failed to release event lock", "event_id", id, "error", err)
		}
	}()

	ev, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := auth.Authorize(p, ev.CreatedBy); err != nil {
		s.logger.Info("mutation rejected", "event_id", id, "principal", principalID(p), "owner", ev.CreatedBy)
		return err
	}
	if v, ok := ifMatch.Get(); ok && v != ev.Version {
		return &storage.Error{
			Type:    storage.ErrPreconditionFailed,
			Message: fmt.Sprintf("event %s is at version %d, not %d", id, ev.Version, v),
		}
	}
	return fn(ev)
}

// checkOccurrenceDate logs occurrence dates that no rule instance matches.
// The mutation still proceeds; such exceptions are simply never applied.
func (s *Service) checkOccurrenceDate(ev *storage.Event, op string, scope mutation.Scope, date mo.Option[time.Time]) {
	d, ok := date.Get()
	if !ok || scope != mutation.ThisEvent {
		return
	}
	matched, err := s.expander.HasAnchor(ev, d)
	if err != nil {
		s.logger.Warn("cannot check occurrence date", "event_id", ev.ID, "error", err)
		return
	}
	if !matched {
		s.metrics.UnmatchedOccurrenceDate(op)
		s.logger.Warn("occurrence date matches no generated occurrence",
			"event_id", ev.ID,
			"occurrence_date", d.UTC().Format(time.RFC3339Nano),
			"op", op)
	}
}

// apply runs the outcome's actions in order. A failure after the first
// action leaves earlier actions in place; the error names both ids.
func (s *Service) apply(ctx context.Context, out *mutation.Outcome) error {
	for i, a := range out.Actions {
		var err error
		switch a.Kind {
		case mutation.ActionSave:
			err = s.store.Save(ctx, a.Event)
		case mutation.ActionCreate:
			err = s.store.Create(ctx, a.Event)
		case mutation.ActionDelete:
			err = s.store.DeleteOne(ctx, a.EventID)
		case mutation.ActionDeleteSeries:
			var n int
			n, err = s.store.DeleteBySeriesID(ctx, a.SeriesID)
			if err == nil {
				s.logger.Debug("series deleted", "series_id", a.SeriesID, "removed", n)
			}
		default:
			err = fmt.Errorf("unknown action %q", a.Kind)
		}
		if err != nil {
			if i > 0 {
				s.logger.Error("mutation partially applied",
					"failed_action", a.Kind,
					"failed_event_id", actionTarget(a),
					"applied_event_id", actionTarget(out.Actions[0]),
					"error", err)
			}
			return fmt.Errorf("%s %s: %w", a.Kind, actionTarget(a), err)
		}
	}
	return nil
}

func isSplit(out *mutation.Outcome) bool {
	return len(out.Actions) == 2 &&
		out.Actions[0].Kind == mutation.ActionSave &&
		out.Actions[1].Kind == mutation.ActionCreate
}

func actionTarget(a mutation.Action) string {
	switch {
	case a.Event != nil:
		return a.Event.ID
	case a.EventID != "":
		return a.EventID
	default:
		return a.SeriesID
	}
}

func principalID(p *auth.Principal) string {
	if p == nil {
		return ""
	}
	return p.ID
}

// IsValidation reports whether err is a caller input problem.
func IsValidation(err error) bool {
	var ve *mutation.ValidationError
	return errors.As(err, &ve)
}

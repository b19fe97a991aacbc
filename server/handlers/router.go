package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/SaShakib/CalendarAPIRrule/server/auth"
	"github.com/SaShakib/CalendarAPIRrule/server/events"
	"github.com/SaShakib/CalendarAPIRrule/server/metrics"
	"github.com/SaShakib/CalendarAPIRrule/server/timezone"
)

const (
	// HTTP headers
	HeaderContentType = "Content-Type"
	HeaderETag        = "ETag"
	HeaderIfMatch     = "If-Match"

	// MIME types
	MimeTypeJSON     = "application/json"
	MimeTypeCalendar = "text/calendar; charset=utf-8"

	maxBodyBytes = 1 << 20
)

// Router serves the event REST API
type Router struct {
	service *events.Service
	authn   auth.Authenticator
	tz      timezone.Converter
	limiter *rate.Limiter
	metrics metrics.Sink
	logger  *slog.Logger
	now     func() time.Time
	mux     *chi.Mux
}

// Option configures a Router
type Option func(*Router)

// WithLogger sets the logger for the router
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithAuthenticator sets how principals are resolved. Defaults to the
// x-user-id header with no fallback user.
func WithAuthenticator(a auth.Authenticator) Option {
	return func(r *Router) {
		if a != nil {
			r.authn = a
		}
	}
}

// WithRateLimit limits API requests to rps with the given burst. rps <= 0
// disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(r *Router) {
		if rps > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		} else {
			r.limiter = nil
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(sink metrics.Sink) Option {
	return func(r *Router) {
		if sink != nil {
			r.metrics = sink
		}
	}
}

// NewRouter creates a router over svc.
func NewRouter(svc *events.Service, opts ...Option) *Router {
	r := &Router{
		service: svc,
		authn:   auth.HeaderAuthenticator{},
		tz:      timezone.Default,
		metrics: metrics.NewNoop(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.mux = r.routes()
	return r
}

// Handler returns the chi mux serving every route.
func (r *Router) Handler() http.Handler {
	return r.mux
}

func (r *Router) routes() *chi.Mux {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)
	mux.Use(r.logRequests)

	mux.Get("/health", r.handleHealth)

	mux.Route("/api", func(api chi.Router) {
		api.Use(r.rateLimit)
		api.Use(auth.Middleware(r.authn, ""))

		api.Post("/events", r.handleCreate)
		api.Get("/events/{id}", r.handleGet)
		api.Put("/events/{id}", r.handleUpdate)
		api.Delete("/events/{id}", r.handleDelete)
		api.Get("/myevents", r.handleMyEvents)
		api.Get("/myevents.ics", r.handleMyEventsICS)
	})

	mux.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusNotFound, "Not found")
	})
	mux.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return mux
}

// ServeHTTP implements http.Handler interface
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.logger.Info("received request",
			"method", req.Method,
			"path", req.URL.Path,
			"remote_addr", req.RemoteAddr,
			"request_id", middleware.GetReqID(req.Context()))

		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		began := time.Now()
		next.ServeHTTP(ww, req)

		route := req.URL.Path
		if rctx := chi.RouteContext(req.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		r.metrics.RequestCompleted(req.Method, route, status, time.Since(began))
	})
}

func (r *Router) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if r.limiter != nil && !r.limiter.Allow() {
			r.metrics.RateLimited()
			r.logger.Warn("rate limit exceeded",
				"method", req.Method,
				"path", req.URL.Path,
				"remote_addr", req.RemoteAddr)
			w.Header().Set("Retry-After", "1")
			writeJSONError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next.ServeHTTP(w, req)
	})
}

package metrics

import "time"

// Sink records service metrics. Implementations must not block or return
// errors; a broken backend only costs observability.
type Sink interface {
	// Mutations
	MutationCompleted(op, scope string, err error)
	SeriesSplit()

	// Expansion
	ExpansionCompleted(occurrences int, truncated bool, duration time.Duration)
	UnmatchedOccurrenceDate(op string)

	// HTTP
	RequestCompleted(method, route string, status int, duration time.Duration)
	RateLimited()
}

// Result labels for MutationCompleted.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Operation labels.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// StatusClass buckets an HTTP status code as "2xx", "4xx" and so on.
func StatusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "other"
	}
}

func resultLabel(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

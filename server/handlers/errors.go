package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/SaShakib/CalendarAPIRrule/server/auth"
	"github.com/SaShakib/CalendarAPIRrule/server/mutation"
	"github.com/SaShakib/CalendarAPIRrule/server/recurrence"
	"github.com/SaShakib/CalendarAPIRrule/server/storage"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(HeaderContentType, MimeTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// statusFor maps a service error to an HTTP status and a client message.
// Internal details are never echoed for 5xx responses.
func statusFor(err error) (int, string) {
	var (
		authErr    *auth.Error
		validErr   *mutation.ValidationError
		storeErr   *storage.Error
		ruleErr    *recurrence.MalformedRuleError
		requestErr *requestError
	)
	switch {
	case errors.As(err, &requestErr):
		return http.StatusBadRequest, requestErr.Error()
	case errors.As(err, &authErr):
		if authErr.Type == auth.ErrForbidden {
			return http.StatusForbidden, "Forbidden"
		}
		return http.StatusUnauthorized, "Unauthorized"
	case errors.As(err, &validErr):
		var missing *mutation.MissingOccurrenceDateError
		if errors.As(err, &missing) {
			return http.StatusBadRequest, missing.Error()
		}
		return http.StatusBadRequest, validErr.Error()
	case errors.As(err, &ruleErr):
		return http.StatusInternalServerError, "Internal server error"
	case errors.As(err, &storeErr):
		switch storeErr.Type {
		case storage.ErrNotFound:
			return http.StatusNotFound, "Event not found"
		case storage.ErrConflict, storage.ErrAlreadyExists:
			return http.StatusConflict, "Event was modified concurrently, reload and retry"
		case storage.ErrPreconditionFailed:
			return http.StatusPreconditionFailed, "Event version does not match If-Match"
		case storage.ErrInvalidInput:
			return http.StatusBadRequest, storeErr.Message
		}
	}
	return http.StatusInternalServerError, "Internal server error"
}

func (r *Router) writeError(w http.ResponseWriter, req *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		r.logger.Error("request failed",
			"method", req.Method,
			"path", req.URL.Path,
			"error", err)
	} else {
		r.logger.Info("request rejected",
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"error", err)
	}
	writeJSONError(w, status, msg)
}

// requestError is a malformed request that never reached the service.
type requestError struct {
	msg string
	err error
}

func (e *requestError) Error() string {
	return e.msg
}

func (e *requestError) Unwrap() error {
	return e.err
}

func badRequest(msg string, err error) error {
	return &requestError{msg: msg, err: err}
}

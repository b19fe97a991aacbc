package auth

import (
	"context"
	"fmt"
	"net/http"
)

// Principal represents an authenticated user
type Principal struct {
	ID    string
	Admin bool
}

// Credentials represents authentication credentials
type Credentials struct {
	Username string
	Password string
}

// ErrorType represents the type of authentication error
type ErrorType string

const (
	ErrInvalidCredentials ErrorType = "invalid_credentials"
	ErrUnauthorized       ErrorType = "unauthorized"
	ErrForbidden          ErrorType = "forbidden"
)

// Error represents an authentication-related error
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Authenticator resolves the principal behind a request.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) (*Principal, error)
}

// CredentialStore verifies a username and password.
type CredentialStore interface {
	Verify(ctx context.Context, creds Credentials) (*Principal, error)
}

// CanModify reports whether p may change an event owned by ownerID:
// admins may change anything, everyone else only their own events.
func CanModify(p *Principal, ownerID string) bool {
	return p != nil && (p.Admin || p.ID == ownerID)
}

// Authorize is CanModify returning a typed error.
func Authorize(p *Principal, ownerID string) error {
	if p == nil {
		return &Error{Type: ErrUnauthorized, Message: "authentication required"}
	}
	if !CanModify(p, ownerID) {
		return &Error{Type: ErrForbidden, Message: "Forbidden"}
	}
	return nil
}

package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

type contextKey string

const (
	// PrincipalContextKey is the context key for the authenticated principal
	PrincipalContextKey contextKey = "principal"

	HeaderUserID    = "x-user-id"
	HeaderUserAdmin = "x-user-admin"
)

// GetPrincipalFromContext retrieves the authenticated principal from the context
func GetPrincipalFromContext(ctx context.Context) *Principal {
	if p, ok := ctx.Value(PrincipalContextKey).(*Principal); ok {
		return p
	}
	return nil
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, PrincipalContextKey, p)
}

// HeaderAuthenticator trusts the x-user-id and x-user-admin headers set by an
// upstream gateway. DefaultUser is used when x-user-id is absent; if it is
// empty such requests are rejected.
type HeaderAuthenticator struct {
	DefaultUser string
}

func (a HeaderAuthenticator) Authenticate(_ context.Context, r *http.Request) (*Principal, error) {
	id := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if id == "" {
		id = a.DefaultUser
	}
	if id == "" {
		return nil, &Error{Type: ErrUnauthorized, Message: "missing " + HeaderUserID + " header"}
	}
	return &Principal{
		ID:    id,
		Admin: strings.EqualFold(strings.TrimSpace(r.Header.Get(HeaderUserAdmin)), "true"),
	}, nil
}

// BasicAuthenticator checks HTTP Basic credentials against a CredentialStore.
type BasicAuthenticator struct {
	Store CredentialStore
}

func (a BasicAuthenticator) Authenticate(ctx context.Context, r *http.Request) (*Principal, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, &Error{Type: ErrUnauthorized, Message: "authentication required"}
	}
	creds, err := parseBasicAuth(authHeader)
	if err != nil {
		return nil, err
	}
	return a.Store.Verify(ctx, creds)
}

// Middleware creates HTTP middleware that enforces authentication
func Middleware(authenticator Authenticator, realm string) func(http.Handler) http.Handler {
	if realm == "" {
		realm = "Calendar API"
	}
	_, basic := authenticator.(BasicAuthenticator)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := authenticator.Authenticate(r.Context(), r)
			if err != nil {
				if basic {
					w.Header().Set("WWW-Authenticate", `Basic realm="`+realm+`"`)
				}
				writeUnauthorized(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, err error) {
	msg := "Unauthorized"
	var authErr *Error
	if errors.As(err, &authErr) && authErr.Type == ErrUnauthorized {
		msg = authErr.Message
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// parseBasicAuth parses an HTTP Basic Authentication string
func parseBasicAuth(auth string) (Credentials, error) {
	const prefix = "Basic "
	if !strings.HasPrefix(auth, prefix) {
		return Credentials{}, &Error{
			Type:    ErrInvalidCredentials,
			Message: "invalid authorization header format",
		}
	}

	encoded := auth[len(prefix):]
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Credentials{}, &Error{
			Type:    ErrInvalidCredentials,
			Message: "invalid base64 encoding",
			Err:     err,
		}
	}

	username, password, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return Credentials{}, &Error{
			Type:    ErrInvalidCredentials,
			Message: "invalid credentials format",
		}
	}

	return Credentials{
		Username: username,
		Password: password,
	}, nil
}

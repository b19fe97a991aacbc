// Package memory holds Basic auth credentials configured at startup.
package memory

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/SaShakib/CalendarAPIRrule/server/auth"
)

const roleAdmin = "admin"

// account is a configured user. Only a digest of the password is kept.
type account struct {
	digest [sha256.Size]byte
	admin  bool
}

// Store is an auth.CredentialStore over a fixed set of accounts.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]account
	logger   *slog.Logger
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

func New(opts ...Option) *Store {
	s := &Store{
		accounts: make(map[string]account),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddUser registers username. Adding a name twice is an error.
func (s *Store) AddUser(username, password string, admin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[username]; exists {
		return fmt.Errorf("user already exists: %s", username)
	}
	s.accounts[username] = account{digest: sha256.Sum256([]byte(password)), admin: admin}
	s.logger.Info("account registered", "username", username, "admin", admin)
	return nil
}

// LoadSpec adds users from a comma separated "user:pass[:admin]" list.
func (s *Store) LoadSpec(spec string) error {
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) < 2 || len(parts) > 3 || parts[0] == "" {
			return fmt.Errorf("invalid user entry %q, want user:pass[:admin]", entry)
		}
		admin := len(parts) == 3 && parts[2] == roleAdmin
		if len(parts) == 3 && !admin {
			return fmt.Errorf("invalid role %q in user entry for %s", parts[2], parts[0])
		}
		if err := s.AddUser(parts[0], parts[1], admin); err != nil {
			return err
		}
	}
	return nil
}

// Verify implements auth.CredentialStore. Unknown users and wrong passwords
// produce the same error.
func (s *Store) Verify(_ context.Context, creds auth.Credentials) (*auth.Principal, error) {
	s.mu.RLock()
	acct, exists := s.accounts[creds.Username]
	s.mu.RUnlock()

	digest := sha256.Sum256([]byte(creds.Password))
	if !exists || subtle.ConstantTimeCompare(acct.digest[:], digest[:]) != 1 {
		s.logger.Info("basic auth rejected", "username", creds.Username, "known_user", exists)
		return nil, &auth.Error{
			Type:    auth.ErrInvalidCredentials,
			Message: "invalid username or password",
		}
	}
	return &auth.Principal{ID: creds.Username, Admin: acct.admin}, nil
}

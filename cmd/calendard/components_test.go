package main

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SaShakib/CalendarAPIRrule/internal/config"
	"github.com/SaShakib/CalendarAPIRrule/internal/lock"
	"github.com/SaShakib/CalendarAPIRrule/server/auth"
	"github.com/SaShakib/CalendarAPIRrule/server/storage/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenStoreMemory(t *testing.T) {
	cfg, err := config.LoadFrom(map[string]string{})
	require.NoError(t, err)

	store, closeFn, err := openStore(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &memory.Store{}, store)
}

func TestNewLockerLocal(t *testing.T) {
	cfg, err := config.LoadFrom(map[string]string{})
	require.NoError(t, err)

	locker, closeFn, err := newLocker(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &lock.Local{}, locker)
}

func TestNewAuthenticator(t *testing.T) {
	tests := []struct {
		name   string
		vars   map[string]string
		header map[string]string
		wantID string
	}{
		{
			name:   "header mode with default user",
			vars:   map[string]string{"AUTH_DEFAULT_USER": "demo"},
			wantID: "demo",
		},
		{
			name:   "header mode uses x-user-id",
			vars:   map[string]string{},
			header: map[string]string{auth.HeaderUserID: "alice"},
			wantID: "alice",
		},
		{
			name: "basic mode",
			vars: map[string]string{
				"AUTH_MODE":  "basic",
				"AUTH_USERS": "alice:secret,root:toor:admin",
			},
			header: map[string]string{"Authorization": "Basic cm9vdDp0b29y"}, // root:toor
			wantID: "root",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.LoadFrom(tt.vars)
			require.NoError(t, err)

			authn, err := newAuthenticator(cfg, testLogger())
			require.NoError(t, err)

			req := httptest.NewRequest("GET", "/api/myevents", nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			p, err := authn.Authenticate(context.Background(), req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, p.ID)
		})
	}
}

func TestNewExpander(t *testing.T) {
	cfg, err := config.LoadFrom(map[string]string{"RULE_CACHE_TTL": "0s"})
	require.NoError(t, err)
	e := newExpander(cfg)
	defer e.Close()
	assert.NotNil(t, e.Codec())
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/samber/mo"

	"github.com/SaShakib/CalendarAPIRrule/server/auth"
	"github.com/SaShakib/CalendarAPIRrule/server/events"
	"github.com/SaShakib/CalendarAPIRrule/server/handlers"
	"github.com/SaShakib/CalendarAPIRrule/server/mutation"
	"github.com/SaShakib/CalendarAPIRrule/server/storage/memory"
)

const (
	// Server configuration
	serverAddr  = ":8080"
	defaultUser = "alice"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	svc := events.NewService(memory.New(), events.WithLogger(logger))
	if err := setupEvents(context.Background(), svc, logger); err != nil {
		logger.Error("failed to seed events", "error", err)
		os.Exit(1)
	}

	// Requests without x-user-id act as alice.
	router := handlers.NewRouter(svc,
		handlers.WithLogger(logger),
		handlers.WithAuthenticator(auth.HeaderAuthenticator{DefaultUser: defaultUser}),
	)

	mux := http.NewServeMux()
	mux.Handle("/api/", router)
	mux.Handle("/health", router)
	mux.HandleFunc("/", handleRoot)

	logger.Info("starting example calendar server", "addr", serverAddr)
	if err := http.ListenAndServe(serverAddr, mux); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// handleRoot prints a short usage guide.
func handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	base := "http://localhost" + serverAddr
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, `Example calendar server (in-memory, acting as %q by default)

  curl '%[2]s/api/myevents?start=2025-08-01T00:00:00Z&end=2025-09-01T00:00:00Z'
  curl '%[2]s/api/myevents.ics?start=2025-08-01T00:00:00Z&end=2025-09-01T00:00:00Z'
  curl -H 'x-user-id: bob' '%[2]s/api/myevents'

Send x-user-admin: true to act as an administrator.
`, defaultUser, base)
}

// setupEvents seeds a weekly meeting and a one-off appointment for alice and
// a daily standup for bob.
func setupEvents(ctx context.Context, svc *events.Service, logger *slog.Logger) error {
	seeds := []struct {
		owner string
		in    mutation.CreateInput
	}{
		{
			owner: "alice",
			in: mutation.CreateInput{
				Title:       "Weekly Team Sync",
				Description: "Conference Room A",
				StartTime:   "2025-08-05T09:00:00",
				EndTime:     "2025-08-05T10:00:00",
				Timezone:    "Asia/Dhaka",
				Recurrence: mo.Some(mutation.RecurrenceInput{
					Freq:     "WEEKLY",
					Interval: 1,
					Until:    mo.Some("2025-12-30T10:00:00"),
				}),
				Participants: []string{"alice", "bob"},
			},
		},
		{
			owner: "alice",
			in: mutation.CreateInput{
				Title:     "Doctor Appointment",
				StartTime: "2025-08-15T14:00:00",
				EndTime:   "2025-08-15T15:00:00",
				Timezone:  "Asia/Dhaka",
			},
		},
		{
			owner: "bob",
			in: mutation.CreateInput{
				Title:     "Standup",
				StartTime: "2025-08-04T09:30:00",
				EndTime:   "2025-08-04T09:45:00",
				Timezone:  "Europe/Berlin",
				Recurrence: mo.Some(mutation.RecurrenceInput{
					Freq:      "WEEKLY",
					Interval:  1,
					ByWeekday: []string{"MO", "WE", "FR"},
				}),
			},
		},
	}

	for _, s := range seeds {
		ev, err := svc.Create(ctx, &auth.Principal{ID: s.owner}, s.in)
		if err != nil {
			return fmt.Errorf("create %q: %w", s.in.Title, err)
		}
		logger.Debug("seeded event", "event_id", ev.ID, "owner", s.owner, "start", ev.StartTime.Format(time.RFC3339))
	}
	return nil
}

package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/SaShakib/CalendarAPIRrule/server/storage"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*storage.Event, error) {
	var (
		ev           storage.Event
		seriesID     sql.NullString
		participants []string
		exceptions   []byte
	)
	err := row.Scan(
		&ev.ID,
		&ev.Title,
		&ev.Description,
		&ev.StartTime,
		&ev.EndTime,
		&ev.Timezone,
		&ev.RecurrenceRule,
		&seriesID,
		pq.Array(&participants),
		&exceptions,
		&ev.CreatedBy,
		&ev.Version,
		&ev.CreatedAt,
		&ev.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	ev.SeriesID = seriesID.String
	ev.StartTime = ev.StartTime.UTC()
	ev.EndTime = ev.EndTime.UTC()
	ev.Participants = storage.Participants(participants...)
	if ev.Exceptions, err = decodeExceptions(exceptions); err != nil {
		return nil, fmt.Errorf("event %s: %w", ev.ID, err)
	}
	return &ev, nil
}

// encodeExceptions stores the exception log as a JSON array. Dates keep
// nanosecond precision, which TIMESTAMPTZ columns would not.
func encodeExceptions(exceptions []storage.Exception) ([]byte, error) {
	if exceptions == nil {
		exceptions = []storage.Exception{}
	}
	data, err := json.Marshal(exceptions)
	if err != nil {
		return nil, fmt.Errorf("encode exceptions: %w", err)
	}
	return data, nil
}

func decodeExceptions(data []byte) ([]storage.Exception, error) {
	out := []storage.Exception{}
	if len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode exceptions: %w", err)
	}
	for i := range out {
		out[i].Date = out[i].Date.UTC()
	}
	return out, nil
}

func participantIDs(ps []storage.Participant) []string {
	ids := make([]string, len(ps))
	for i, p := range ps {
		ids[i] = p.UserID
	}
	return ids
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

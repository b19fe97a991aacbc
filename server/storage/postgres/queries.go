package postgres

const eventColumns = `
    id, title, description, start_time, end_time, timezone,
    recurrence_rule, series_id, participants, exceptions,
    created_by, version, created_at, updated_at`

const queryGetEventByID = `
SELECT` + eventColumns + `
FROM events
WHERE id = $1
`

const queryListEventsByOwner = `
SELECT` + eventColumns + `
FROM events
WHERE created_by = $1
ORDER BY start_time, id
`

const queryListEventsBySeries = `
SELECT` + eventColumns + `
FROM events
WHERE series_id = $1
ORDER BY start_time, id
`

const queryInsertEvent = `
INSERT INTO events (
    id, title, description, start_time, end_time, timezone,
    recurrence_rule, series_id, participants, exceptions,
    created_by, version, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1, $12, $12)
`

// queryUpdateEvent only matches the expected version so a stale write
// affects no rows.
const queryUpdateEvent = `
UPDATE events
SET title = $3,
    description = $4,
    start_time = $5,
    end_time = $6,
    timezone = $7,
    recurrence_rule = $8,
    series_id = $9,
    participants = $10,
    exceptions = $11,
    version = version + 1,
    updated_at = $12
WHERE id = $1
  AND version = $2
RETURNING version, created_at, updated_at
`

const queryEventExists = `
SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)
`

const queryDeleteEvent = `
DELETE FROM events WHERE id = $1
`

const queryDeleteEventsBySeries = `
DELETE FROM events WHERE series_id = $1
`

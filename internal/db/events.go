package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/auditflow/backend/internal/model"
)

const eventColumns = `id, event_type, severity, source, payload, timestamp, created_at, api_key_id`

// ownedEvents returns the ownership predicate every event query must
// carry: events are visible only through API keys owned by the user.
// The user id is appended to args and referenced positionally.
func ownedEvents(args []any, userID uuid.UUID) (string, []any) {
	args = append(args, userID)
	return fmt.Sprintf(`api_key_id IN (SELECT id FROM api_keys WHERE user_id = $%d)`, len(args)), args
}

func (db *Postgres) InsertEvent(ctx context.Context, event *model.Event) (*model.Event, error) {
	query := `
		INSERT INTO events (id, event_type, severity, source, payload, timestamp, created_at, api_key_id)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), $7)
		RETURNING ` + eventColumns
	return scanEvent(db.Pool.QueryRow(ctx, query,
		uuid.New(),
		event.EventType,
		event.Severity,
		event.Source,
		event.Payload,
		event.Timestamp,
		event.ApiKeyID,
	))
}

func (db *Postgres) GetEventByID(ctx context.Context, userID, eventID uuid.UUID) (*model.Event, error) {
	args := []any{eventID}
	owned, args := ownedEvents(args, userID)
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE id = $1 AND ` + owned
	return scanEvent(db.Pool.QueryRow(ctx, query, args...))
}

func eventFilterClauses(filter model.EventFilter) (string, []any) {
	where, args := ownedEvents(nil, filter.UserID)

	add := func(clause string, value any) {
		args = append(args, value)
		where += fmt.Sprintf(" AND "+clause, len(args))
	}

	if filter.EventType != "" {
		add("event_type = $%d", filter.EventType)
	}
	if filter.Severity != "" {
		add("severity = $%d", filter.Severity)
	}
	if filter.Source != "" {
		add("source = $%d", filter.Source)
	}
	if filter.StartDate != nil {
		add("timestamp >= $%d", *filter.StartDate)
	}
	if filter.EndDate != nil {
		add("timestamp <= $%d", *filter.EndDate)
	}
	if filter.ApiKeyID != nil {
		add("api_key_id = $%d", *filter.ApiKeyID)
	}

	return where, args
}

func (db *Postgres) CountEvents(ctx context.Context, filter model.EventFilter) (int, error) {
	where, args := eventFilterClauses(filter)
	var total int
	err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM events WHERE `+where, args...).Scan(&total)
	return total, err
}

func (db *Postgres) ListEvents(ctx context.Context, filter model.EventFilter, limit, offset int) ([]model.Event, error) {
	where, args := eventFilterClauses(filter)
	args = append(args, limit, offset)
	query := fmt.Sprintf(`
		SELECT `+eventColumns+`
		FROM events
		WHERE `+where+`
		ORDER BY timestamp DESC
		LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	if events == nil {
		events = []model.Event{}
	}
	return events, rows.Err()
}

func (db *Postgres) GetEventStats(ctx context.Context, userID uuid.UUID, todayStart, weekStart time.Time) (*model.EventStats, error) {
	owned, args := ownedEvents(nil, userID)

	stats := &model.EventStats{
		EventsByType:     map[string]int{},
		EventsBySeverity: map[string]int{},
	}

	err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM events WHERE `+owned, args...).Scan(&stats.TotalEvents)
	if err != nil {
		return nil, err
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT event_type, COUNT(*) FROM events
		WHERE `+owned+`
		GROUP BY event_type`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var eventType string
		var count int
		if err := rows.Scan(&eventType, &count); err != nil {
			return nil, err
		}
		stats.EventsByType[eventType] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = db.Pool.Query(ctx, `
		SELECT severity, COUNT(*) FROM events
		WHERE `+owned+`
		GROUP BY severity`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var severity string
		var count int
		if err := rows.Scan(&severity, &count); err != nil {
			return nil, err
		}
		stats.EventsBySeverity[severity] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rangeArgs := append(append([]any{}, args...), todayStart)
	err = db.Pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT COUNT(*) FROM events WHERE `+owned+` AND timestamp >= $%d`, len(rangeArgs)),
		rangeArgs...).Scan(&stats.EventsToday)
	if err != nil {
		return nil, err
	}

	rangeArgs = append(append([]any{}, args...), weekStart)
	err = db.Pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT COUNT(*) FROM events WHERE `+owned+` AND timestamp >= $%d`, len(rangeArgs)),
		rangeArgs...).Scan(&stats.EventsThisWeek)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

func scanEvent(row rowScanner) (*model.Event, error) {
	var event model.Event
	err := row.Scan(
		&event.ID,
		&event.EventType,
		&event.Severity,
		&event.Source,
		&event.Payload,
		&event.Timestamp,
		&event.CreatedAt,
		&event.ApiKeyID,
	)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

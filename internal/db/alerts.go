package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/auditflow/backend/internal/model"
)

const alertColumns = `a.id, a.title, a.description, a.level, a.status, a.rule_name, a.event_id, a.created_at, a.updated_at, a.acknowledged_at, a.resolved_at`

// ownedAlerts scopes alert queries through the owning event's API key.
// Mirrors ownedEvents; assumes the alerts table is aliased "a" and
// joined to events as "e".
func ownedAlerts(args []any, userID uuid.UUID) (string, []any) {
	args = append(args, userID)
	return fmt.Sprintf(`e.api_key_id IN (SELECT id FROM api_keys WHERE user_id = $%d)`, len(args)), args
}

const alertFrom = `FROM alerts a JOIN events e ON e.id = a.event_id`

func (db *Postgres) GetAlertByID(ctx context.Context, userID, alertID uuid.UUID) (*model.Alert, error) {
	args := []any{alertID}
	owned, args := ownedAlerts(args, userID)
	query := `
		SELECT ` + alertColumns + `
		` + alertFrom + `
		WHERE a.id = $1 AND ` + owned
	return scanAlert(db.Pool.QueryRow(ctx, query, args...))
}

func alertFilterClauses(filter model.AlertFilter) (string, []any) {
	where, args := ownedAlerts(nil, filter.UserID)

	add := func(clause string, value any) {
		args = append(args, value)
		where += fmt.Sprintf(" AND "+clause, len(args))
	}

	if filter.Level != "" {
		add("a.level = $%d", filter.Level)
	}
	if filter.Status != "" {
		add("a.status = $%d", filter.Status)
	}
	if filter.RuleName != "" {
		add("a.rule_name = $%d", filter.RuleName)
	}
	if filter.StartDate != nil {
		add("a.created_at >= $%d", *filter.StartDate)
	}
	if filter.EndDate != nil {
		add("a.created_at <= $%d", *filter.EndDate)
	}

	return where, args
}

func (db *Postgres) CountAlerts(ctx context.Context, filter model.AlertFilter) (int, error) {
	where, args := alertFilterClauses(filter)
	var total int
	err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) `+alertFrom+` WHERE `+where, args...).Scan(&total)
	return total, err
}

func (db *Postgres) ListAlerts(ctx context.Context, filter model.AlertFilter, limit, offset int) ([]model.Alert, error) {
	where, args := alertFilterClauses(filter)
	args = append(args, limit, offset)
	query := fmt.Sprintf(`
		SELECT `+alertColumns+`
		`+alertFrom+`
		WHERE `+where+`
		ORDER BY a.created_at DESC
		LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []model.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *alert)
	}
	if alerts == nil {
		alerts = []model.Alert{}
	}
	return alerts, rows.Err()
}

// SaveAlertStatus persists a transition already applied in memory.
// Ownership is proven by the scoped read that produced the alert.
func (db *Postgres) SaveAlertStatus(ctx context.Context, alert *model.Alert) error {
	query := `
		UPDATE alerts
		SET status = $2, acknowledged_at = $3, resolved_at = $4, updated_at = NOW()
		WHERE id = $1
	`
	_, err := db.Pool.Exec(ctx, query, alert.ID, alert.Status, alert.AcknowledgedAt, alert.ResolvedAt)
	return err
}

func (db *Postgres) GetAlertStats(ctx context.Context, userID uuid.UUID) (*model.AlertStats, error) {
	owned, args := ownedAlerts(nil, userID)

	stats := &model.AlertStats{AlertsByLevel: map[string]int{}}

	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE a.status = 'open'),
			COUNT(*) FILTER (WHERE a.status = 'acknowledged'),
			COUNT(*) FILTER (WHERE a.status = 'resolved')
		` + alertFrom + `
		WHERE ` + owned
	err := db.Pool.QueryRow(ctx, query, args...).Scan(
		&stats.TotalAlerts,
		&stats.OpenAlerts,
		&stats.AcknowledgedAlerts,
		&stats.ResolvedAlerts,
	)
	if err != nil {
		return nil, err
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT a.level, COUNT(*)
		`+alertFrom+`
		WHERE `+owned+`
		GROUP BY a.level`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var level string
		var count int
		if err := rows.Scan(&level, &count); err != nil {
			return nil, err
		}
		stats.AlertsByLevel[level] = count
	}
	return stats, rows.Err()
}

func scanAlert(row rowScanner) (*model.Alert, error) {
	var alert model.Alert
	err := row.Scan(
		&alert.ID,
		&alert.Title,
		&alert.Description,
		&alert.Level,
		&alert.Status,
		&alert.RuleName,
		&alert.EventID,
		&alert.CreatedAt,
		&alert.UpdatedAt,
		&alert.AcknowledgedAt,
		&alert.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

package db

import "context"

func (db *Postgres) EnsureSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`
		CREATE TABLE IF NOT EXISTS api_keys (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT,
			key_hash TEXT NOT NULL UNIQUE,
			key_prefix TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			last_used_at TIMESTAMPTZ,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE INDEX IF NOT EXISTS api_keys_user_id_idx ON api_keys(user_id)`,
		`CREATE INDEX IF NOT EXISTS api_keys_key_hash_idx ON api_keys(key_hash)`,
		`
		CREATE TABLE IF NOT EXISTS events (
			id UUID PRIMARY KEY,
			event_type TEXT NOT NULL,
			severity TEXT NOT NULL DEFAULT 'info',
			source TEXT NOT NULL,
			payload JSONB NOT NULL DEFAULT '{}',
			timestamp TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			api_key_id UUID NOT NULL REFERENCES api_keys(id) ON DELETE CASCADE
		)
		`,
		`CREATE INDEX IF NOT EXISTS events_event_type_idx ON events(event_type)`,
		`CREATE INDEX IF NOT EXISTS events_source_idx ON events(source)`,
		`CREATE INDEX IF NOT EXISTS events_timestamp_idx ON events(timestamp DESC)`,
		`CREATE INDEX IF NOT EXISTS events_api_key_id_idx ON events(api_key_id)`,
		`
		CREATE TABLE IF NOT EXISTS alerts (
			id UUID PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT,
			level TEXT NOT NULL DEFAULT 'low',
			status TEXT NOT NULL DEFAULT 'open',
			rule_name TEXT NOT NULL,
			event_id UUID NOT NULL REFERENCES events(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			acknowledged_at TIMESTAMPTZ,
			resolved_at TIMESTAMPTZ
		)
		`,
		`CREATE INDEX IF NOT EXISTS alerts_event_id_idx ON alerts(event_id)`,
		`CREATE INDEX IF NOT EXISTS alerts_status_idx ON alerts(status)`,
		`CREATE INDEX IF NOT EXISTS alerts_created_at_idx ON alerts(created_at DESC)`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

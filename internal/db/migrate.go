package db

import (
	"fmt"
	"log"
)

// Migrate applies the schema idempotently on startup. Uniqueness constraints
// here are what make every sync upsert safe to repeat.
func Migrate(database *DB) error {
	for i, stmt := range schema {
		if _, err := database.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	log.Printf("db: schema up to date (%d statements)", len(schema))
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id UUID PRIMARY KEY,
		plex_username TEXT NOT NULL UNIQUE,
		plex_account_id TEXT NOT NULL UNIQUE,
		plex_token TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		thumb_url TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL DEFAULT '',
		auto_sync_enabled BOOLEAN NOT NULL DEFAULT false,
		sync_interval TEXT NOT NULL DEFAULT 'daily',
		last_synced_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS servers (
		id UUID PRIMARY KEY,
		account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		machine_identifier TEXT NOT NULL,
		version TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		local_url TEXT NOT NULL DEFAULT '',
		direct_url TEXT NOT NULL DEFAULT '',
		is_owned BOOLEAN NOT NULL DEFAULT false,
		is_local BOOLEAN NOT NULL DEFAULT false,
		status TEXT NOT NULL DEFAULT 'available',
		last_error TEXT NOT NULL DEFAULT '',
		last_seen_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (account_id, machine_identifier)
	)`,

	`CREATE TABLE IF NOT EXISTS libraries (
		id UUID PRIMARY KEY,
		server_id UUID NOT NULL REFERENCES servers(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		section_id TEXT NOT NULL,
		library_type TEXT NOT NULL,
		last_synced_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (server_id, section_id)
	)`,

	`CREATE TABLE IF NOT EXISTS genres (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE
	)`,

	`CREATE TABLE IF NOT EXISTS movies (
		id UUID PRIMARY KEY,
		library_id UUID NOT NULL REFERENCES libraries(id) ON DELETE CASCADE,
		plex_key TEXT NOT NULL,
		title TEXT NOT NULL,
		sort_title TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		tagline TEXT NOT NULL DEFAULT '',
		duration_ms BIGINT NOT NULL DEFAULT 0,
		rating DOUBLE PRECISION,
		content_rating TEXT NOT NULL DEFAULT '',
		studio TEXT NOT NULL DEFAULT '',
		year INTEGER,
		originally_available DATE,
		thumb_url TEXT NOT NULL DEFAULT '',
		art_url TEXT NOT NULL DEFAULT '',
		directors TEXT[] NOT NULL DEFAULT '{}',
		writers TEXT[] NOT NULL DEFAULT '{}',
		actors TEXT[] NOT NULL DEFAULT '{}',
		added_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (library_id, plex_key)
	)`,

	`CREATE TABLE IF NOT EXISTS shows (
		id UUID PRIMARY KEY,
		library_id UUID NOT NULL REFERENCES libraries(id) ON DELETE CASCADE,
		plex_key TEXT NOT NULL,
		title TEXT NOT NULL,
		sort_title TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		rating DOUBLE PRECISION,
		content_rating TEXT NOT NULL DEFAULT '',
		studio TEXT NOT NULL DEFAULT '',
		year INTEGER,
		originally_available DATE,
		thumb_url TEXT NOT NULL DEFAULT '',
		art_url TEXT NOT NULL DEFAULT '',
		total_seasons INTEGER NOT NULL DEFAULT 0,
		show_status TEXT NOT NULL DEFAULT '',
		added_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (library_id, plex_key)
	)`,

	`CREATE TABLE IF NOT EXISTS seasons (
		id UUID PRIMARY KEY,
		show_id UUID NOT NULL REFERENCES shows(id) ON DELETE CASCADE,
		season_number INTEGER NOT NULL,
		plex_key TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		thumb_url TEXT NOT NULL DEFAULT '',
		episode_count INTEGER NOT NULL DEFAULT 0,
		added_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (show_id, season_number)
	)`,

	`CREATE TABLE IF NOT EXISTS episodes (
		id UUID PRIMARY KEY,
		season_id UUID NOT NULL REFERENCES seasons(id) ON DELETE CASCADE,
		episode_number INTEGER NOT NULL,
		plex_key TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		duration_ms BIGINT NOT NULL DEFAULT 0,
		thumb_url TEXT NOT NULL DEFAULT '',
		directors TEXT[] NOT NULL DEFAULT '{}',
		writers TEXT[] NOT NULL DEFAULT '{}',
		added_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (season_id, episode_number)
	)`,

	`CREATE TABLE IF NOT EXISTS movie_genres (
		movie_id UUID NOT NULL REFERENCES movies(id) ON DELETE CASCADE,
		genre_id UUID NOT NULL REFERENCES genres(id) ON DELETE CASCADE,
		PRIMARY KEY (movie_id, genre_id)
	)`,

	`CREATE TABLE IF NOT EXISTS show_genres (
		show_id UUID NOT NULL REFERENCES shows(id) ON DELETE CASCADE,
		genre_id UUID NOT NULL REFERENCES genres(id) ON DELETE CASCADE,
		PRIMARY KEY (show_id, genre_id)
	)`,

	`CREATE TABLE IF NOT EXISTS sync_jobs (
		id UUID PRIMARY KEY,
		account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		job_type TEXT NOT NULL,
		server_id UUID REFERENCES servers(id) ON DELETE SET NULL,
		library_id UUID REFERENCES libraries(id) ON DELETE SET NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		attempt INTEGER NOT NULL DEFAULT 1,
		added INTEGER NOT NULL DEFAULT 0,
		updated INTEGER NOT NULL DEFAULT 0,
		total INTEGER NOT NULL DEFAULT 0,
		error_message TEXT,
		started_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		completed_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS system_settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE INDEX IF NOT EXISTS idx_movies_library ON movies(library_id)`,
	`CREATE INDEX IF NOT EXISTS idx_movies_title ON movies(title)`,
	`CREATE INDEX IF NOT EXISTS idx_movies_added ON movies(added_at)`,
	`CREATE INDEX IF NOT EXISTS idx_shows_library ON shows(library_id)`,
	`CREATE INDEX IF NOT EXISTS idx_shows_title ON shows(title)`,
	`CREATE INDEX IF NOT EXISTS idx_sync_jobs_account ON sync_jobs(account_id, started_at)`,
}

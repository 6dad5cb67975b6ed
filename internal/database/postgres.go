package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"
)

// ConnectPostgres opens the relational store and verifies the connection.
func ConnectPostgres(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	log.Println("Successfully connected to Postgres")

	return db, nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id    BIGINT PRIMARY KEY,
		bot_token  TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS channels (
		id               BIGSERIAL PRIMARY KEY,
		user_id          BIGINT NOT NULL,
		channel_username TEXT NOT NULL,
		channel_title    TEXT NOT NULL DEFAULT '',
		is_active        BOOLEAN NOT NULL DEFAULT TRUE,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (user_id, channel_username)
	)`,
	`CREATE TABLE IF NOT EXISTS posts (
		id              BIGSERIAL PRIMARY KEY,
		user_id         BIGINT NOT NULL,
		content_type    TEXT NOT NULL,
		file_id         TEXT NOT NULL,
		caption         TEXT NOT NULL DEFAULT '',
		status          TEXT NOT NULL DEFAULT 'pending',
		posted_at       TIMESTAMPTZ,
		target_channels BIGINT[] NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS posts_user_status_idx ON posts (user_id, status, id)`,
	`CREATE TABLE IF NOT EXISTS settings (
		user_id        BIGINT PRIMARY KEY,
		posts_per_day  INT NOT NULL DEFAULT 1,
		repost_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate creates the four-table schema if it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	log.Println("Database schema is up to date")
	return nil
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"smmpost-bot/internal/domain"
)

// PostgresSettingsRepository implements SettingsRepository on the settings table.
type PostgresSettingsRepository struct {
	db *sql.DB
}

func NewPostgresSettingsRepository(db *sql.DB) *PostgresSettingsRepository {
	return &PostgresSettingsRepository{db: db}
}

func (r *PostgresSettingsRepository) EnsureDefaults(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return fmt.Errorf("ensure settings for operator %d: %w", userID, err)
	}
	return nil
}

// Get returns the defaults (1 post per day, repost off) for an operator
// without a settings row yet.
func (r *PostgresSettingsRepository) Get(ctx context.Context, userID int64) (*domain.Settings, error) {
	var s domain.Settings
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, posts_per_day, repost_enabled, created_at
		FROM settings
		WHERE user_id = $1
	`, userID).Scan(&s.UserID, &s.PostsPerDay, &s.RepostEnabled, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.Settings{UserID: userID, PostsPerDay: 1}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings for operator %d: %w", userID, err)
	}
	return &s, nil
}

func (r *PostgresSettingsRepository) SetPostsPerDay(ctx context.Context, userID int64, postsPerDay int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (user_id, posts_per_day)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET posts_per_day = EXCLUDED.posts_per_day
	`, userID, postsPerDay)
	if err != nil {
		return fmt.Errorf("set posts per day for operator %d: %w", userID, err)
	}
	return nil
}

func (r *PostgresSettingsRepository) ToggleRepost(ctx context.Context, userID int64) (bool, error) {
	var enabled bool
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO settings (user_id, repost_enabled)
		VALUES ($1, TRUE)
		ON CONFLICT (user_id) DO UPDATE SET repost_enabled = NOT settings.repost_enabled
		RETURNING repost_enabled
	`, userID).Scan(&enabled)
	if err != nil {
		return false, fmt.Errorf("toggle repost for operator %d: %w", userID, err)
	}
	return enabled, nil
}

func (r *PostgresSettingsRepository) ListAll(ctx context.Context) ([]domain.Settings, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, posts_per_day, repost_enabled, created_at
		FROM settings
		ORDER BY user_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var all []domain.Settings
	for rows.Next() {
		var s domain.Settings
		if err := rows.Scan(&s.UserID, &s.PostsPerDay, &s.RepostEnabled, &s.CreatedAt); err != nil {
			return nil, err
		}
		all = append(all, s)
	}
	return all, rows.Err()
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"smmpost-bot/internal/domain"

	"github.com/lib/pq"
)

// PostgresChannelRepository implements ChannelRepository on the channels table.
type PostgresChannelRepository struct {
	db *sql.DB
}

func NewPostgresChannelRepository(db *sql.DB) *PostgresChannelRepository {
	return &PostgresChannelRepository{db: db}
}

// Upsert re-registration overwrites the title and reactivates the channel.
func (r *PostgresChannelRepository) Upsert(ctx context.Context, userID int64, username, title string) (*domain.Channel, error) {
	var ch domain.Channel
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO channels (user_id, channel_username, channel_title, is_active)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (user_id, channel_username) DO UPDATE
		SET channel_title = EXCLUDED.channel_title,
		    is_active = TRUE
		RETURNING id, user_id, channel_username, channel_title, is_active, created_at
	`, userID, username, title).Scan(&ch.ID, &ch.UserID, &ch.Username, &ch.Title, &ch.IsActive, &ch.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert channel %q for operator %d: %w", username, userID, err)
	}
	return &ch, nil
}

func (r *PostgresChannelRepository) GetByID(ctx context.Context, id int64) (*domain.Channel, error) {
	var ch domain.Channel
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, channel_username, channel_title, is_active, created_at
		FROM channels
		WHERE id = $1
	`, id).Scan(&ch.ID, &ch.UserID, &ch.Username, &ch.Title, &ch.IsActive, &ch.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrChannelNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get channel %d: %w", id, err)
	}
	return &ch, nil
}

func (r *PostgresChannelRepository) TitlesByIDs(ctx context.Context, ids []int64) (map[int64]string, error) {
	titles := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return titles, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, channel_title
		FROM channels
		WHERE id = ANY($1)
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("resolve channel titles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    int64
			title string
		)
		if err := rows.Scan(&id, &title); err != nil {
			return nil, err
		}
		titles[id] = title
	}
	return titles, rows.Err()
}

func (r *PostgresChannelRepository) ListByOperator(ctx context.Context, userID int64) ([]domain.Channel, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, channel_username, channel_title, is_active, created_at
		FROM channels
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list channels for operator %d: %w", userID, err)
	}
	defer rows.Close()

	var channels []domain.Channel
	for rows.Next() {
		var ch domain.Channel
		if err := rows.Scan(&ch.ID, &ch.UserID, &ch.Username, &ch.Title, &ch.IsActive, &ch.CreatedAt); err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

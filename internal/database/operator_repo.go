package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"smmpost-bot/internal/domain"
)

// PostgresOperatorRepository implements OperatorRepository on the users table.
type PostgresOperatorRepository struct {
	db *sql.DB
}

func NewPostgresOperatorRepository(db *sql.DB) *PostgresOperatorRepository {
	return &PostgresOperatorRepository{db: db}
}

func (r *PostgresOperatorRepository) Upsert(ctx context.Context, userID int64, botToken string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (user_id, bot_token)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET bot_token = EXCLUDED.bot_token
	`, userID, botToken)
	if err != nil {
		return fmt.Errorf("upsert operator %d: %w", userID, err)
	}
	return nil
}

func (r *PostgresOperatorRepository) Get(ctx context.Context, userID int64) (*domain.Operator, error) {
	var op domain.Operator
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, bot_token, created_at
		FROM users
		WHERE user_id = $1
	`, userID).Scan(&op.UserID, &op.BotToken, &op.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOperatorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get operator %d: %w", userID, err)
	}
	return &op, nil
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"smmpost-bot/internal/domain"

	"github.com/lib/pq"
)

// PostgresPostRepository implements PostRepository on the posts table.
type PostgresPostRepository struct {
	db *sql.DB
}

func NewPostgresPostRepository(db *sql.DB) *PostgresPostRepository {
	return &PostgresPostRepository{db: db}
}

// Enqueue runs in one transaction so the channel snapshot and the insert
// cannot interleave with a concurrent re-registration.
func (r *PostgresPostRepository) Enqueue(ctx context.Context, userID int64, contentType, fileID, caption string) (*domain.Post, int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("begin enqueue tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
		SELECT id FROM channels
		WHERE user_id = $1 AND is_active = TRUE
		ORDER BY id
	`, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("snapshot channels for operator %d: %w", userID, err)
	}
	var targets []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, 0, err
		}
		targets = append(targets, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(targets) == 0 {
		return nil, 0, domain.ErrNoActiveChannels
	}

	post := domain.Post{
		UserID:         userID,
		ContentType:    contentType,
		FileID:         fileID,
		Caption:        caption,
		Status:         domain.PostStatusPending,
		TargetChannels: targets,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO posts (user_id, content_type, file_id, caption, status, target_channels)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, userID, contentType, fileID, caption, domain.PostStatusPending, pq.Array(targets)).
		Scan(&post.ID, &post.CreatedAt)
	if err != nil {
		return nil, 0, fmt.Errorf("insert post for operator %d: %w", userID, err)
	}

	var pending int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM posts
		WHERE user_id = $1 AND status = $2
	`, userID, domain.PostStatusPending).Scan(&pending)
	if err != nil {
		return nil, 0, fmt.Errorf("count pending for operator %d: %w", userID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("commit enqueue tx: %w", err)
	}
	return &post, pending, nil
}

// ClaimOldestPending selects the FIFO head with FOR UPDATE SKIP LOCKED, so
// overlapping firings for the same operator cannot claim the same row.
func (r *PostgresPostRepository) ClaimOldestPending(ctx context.Context, userID int64) (*domain.Post, error) {
	var (
		post     domain.Post
		postedAt sql.NullTime
		targets  pq.Int64Array
	)
	err := r.db.QueryRowContext(ctx, `
		UPDATE posts SET status = $3
		WHERE id = (
			SELECT id FROM posts
			WHERE user_id = $1 AND status = $2
			ORDER BY id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, user_id, content_type, file_id, caption, status, posted_at, target_channels, created_at
	`, userID, domain.PostStatusPending, domain.PostStatusPublishing).Scan(
		&post.ID, &post.UserID, &post.ContentType, &post.FileID, &post.Caption,
		&post.Status, &postedAt, &targets, &post.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNoPendingPosts
	}
	if err != nil {
		return nil, fmt.Errorf("claim pending post for operator %d: %w", userID, err)
	}
	if postedAt.Valid {
		post.PostedAt = &postedAt.Time
	}
	post.TargetChannels = []int64(targets)
	return &post, nil
}

func (r *PostgresPostRepository) MarkPosted(ctx context.Context, postID int64, postedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE posts SET status = $2, posted_at = $3
		WHERE id = $1
	`, postID, domain.PostStatusPosted, postedAt)
	if err != nil {
		return fmt.Errorf("mark post %d posted: %w", postID, err)
	}
	return nil
}

func (r *PostgresPostRepository) Release(ctx context.Context, postID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE posts SET status = $2, posted_at = NULL
		WHERE id = $1 AND status = $3
	`, postID, domain.PostStatusPending, domain.PostStatusPublishing)
	if err != nil {
		return fmt.Errorf("release post %d: %w", postID, err)
	}
	return nil
}

func (r *PostgresPostRepository) ResetPosted(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE posts SET status = $2, posted_at = NULL
		WHERE user_id = $1 AND status = $3
	`, userID, domain.PostStatusPending, domain.PostStatusPosted)
	if err != nil {
		return 0, fmt.Errorf("reset posted for operator %d: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

// RecoverPublishing runs at startup, before the scheduler starts, so no
// claim can be in flight while it resets rows left behind by a crash
// mid-publish.
func (r *PostgresPostRepository) RecoverPublishing(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE posts SET status = $1, posted_at = NULL
		WHERE status = $2
	`, domain.PostStatusPending, domain.PostStatusPublishing)
	if err != nil {
		return 0, fmt.Errorf("recover publishing posts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *PostgresPostRepository) CountByStatus(ctx context.Context, userID int64, status string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM posts
		WHERE user_id = $1 AND status = $2
	`, userID, status).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s posts for operator %d: %w", status, userID, err)
	}
	return n, nil
}

func (r *PostgresPostRepository) ListPosted(ctx context.Context, userID int64, limit int) ([]domain.Post, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, content_type, file_id, caption, status, posted_at, target_channels, created_at
		FROM posts
		WHERE user_id = $1 AND status = $2
		ORDER BY posted_at DESC
		LIMIT $3
	`, userID, domain.PostStatusPosted, limit)
	if err != nil {
		return nil, fmt.Errorf("list posted for operator %d: %w", userID, err)
	}
	defer rows.Close()
	return scanPosts(rows)
}

func (r *PostgresPostRepository) ListPending(ctx context.Context, userID int64) ([]domain.Post, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, content_type, file_id, caption, status, posted_at, target_channels, created_at
		FROM posts
		WHERE user_id = $1 AND status = $2
		ORDER BY id
	`, userID, domain.PostStatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending for operator %d: %w", userID, err)
	}
	defer rows.Close()
	return scanPosts(rows)
}

func scanPosts(rows *sql.Rows) ([]domain.Post, error) {
	var posts []domain.Post
	for rows.Next() {
		var (
			post     domain.Post
			postedAt sql.NullTime
			targets  pq.Int64Array
		)
		if err := rows.Scan(
			&post.ID, &post.UserID, &post.ContentType, &post.FileID, &post.Caption,
			&post.Status, &postedAt, &targets, &post.CreatedAt,
		); err != nil {
			return nil, err
		}
		if postedAt.Valid {
			post.PostedAt = &postedAt.Time
		}
		post.TargetChannels = []int64(targets)
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

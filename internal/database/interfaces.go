package database

import (
	"context"
	"time"

	"smmpost-bot/internal/database/models"
	"smmpost-bot/internal/domain"
)

// OperatorRepository persists posting-bot credentials, one row per operator.
type OperatorRepository interface {
	// Upsert creates the operator row or replaces its stored credential.
	Upsert(ctx context.Context, userID int64, botToken string) error
	// Get returns the operator or domain.ErrOperatorNotFound.
	Get(ctx context.Context, userID int64) (*domain.Operator, error)
}

// ChannelRepository persists registered target channels.
type ChannelRepository interface {
	// Upsert creates or overwrites a channel keyed by (operator, username)
	// and always sets it active.
	Upsert(ctx context.Context, userID int64, username, title string) (*domain.Channel, error)
	// GetByID returns a channel or domain.ErrChannelNotFound.
	GetByID(ctx context.Context, id int64) (*domain.Channel, error)
	// ListByOperator returns all of the operator's channels in creation order.
	ListByOperator(ctx context.Context, userID int64) ([]domain.Channel, error)
	// TitlesByIDs resolves channel titles in one query. Ids without a row
	// are absent from the result.
	TitlesByIDs(ctx context.Context, ids []int64) (map[int64]string, error)
}

// PostRepository is the FIFO post queue.
type PostRepository interface {
	// Enqueue snapshots the operator's active channel ids and inserts a new
	// pending post bound to that snapshot. Fails with
	// domain.ErrNoActiveChannels when the snapshot would be empty. Returns
	// the new post and the operator's pending count.
	Enqueue(ctx context.Context, userID int64, contentType, fileID, caption string) (*domain.Post, int, error)
	// ClaimOldestPending atomically moves the lowest-id pending post of the
	// operator to the publishing state and returns it, or
	// domain.ErrNoPendingPosts. Concurrent claims never return the same post.
	ClaimOldestPending(ctx context.Context, userID int64) (*domain.Post, error)
	// MarkPosted finishes a claimed post.
	MarkPosted(ctx context.Context, postID int64, postedAt time.Time) error
	// Release returns a claimed post to the pending state untouched, so the
	// next firing retries it.
	Release(ctx context.Context, postID int64) error
	// ResetPosted moves every posted row of the operator back to pending
	// with the posted timestamp cleared. Returns the number of rows reset.
	ResetPosted(ctx context.Context, userID int64) (int64, error)
	// RecoverPublishing returns every row stuck in the publishing state to
	// pending. Only safe at startup, before any firing is in flight; a row
	// can be stuck when the process died mid-publish. Returns the number
	// of rows recovered.
	RecoverPublishing(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, userID int64, status string) (int, error)
	// ListPosted returns posted posts, most recent first, capped at limit.
	ListPosted(ctx context.Context, userID int64, limit int) ([]domain.Post, error)
	// ListPending returns pending posts in FIFO order.
	ListPending(ctx context.Context, userID int64) ([]domain.Post, error)
}

// SettingsRepository persists the per-operator settings singleton.
type SettingsRepository interface {
	// EnsureDefaults creates the settings row with defaults if missing.
	EnsureDefaults(ctx context.Context, userID int64) error
	Get(ctx context.Context, userID int64) (*domain.Settings, error)
	SetPostsPerDay(ctx context.Context, userID int64, postsPerDay int) error
	// ToggleRepost flips the repost flag and returns the new value.
	ToggleRepost(ctx context.Context, userID int64) (bool, error)
	// ListAll returns every settings row; used to reinstall schedules on start.
	ListAll(ctx context.Context) ([]domain.Settings, error)
}

// PostLogger defines the interface for the publish audit trail.
type PostLogger interface {
	LogPublishedPost(ctx context.Context, entry models.PublishLog) error
}

// UserActionLogger defines the interface for logging front-end user actions.
type UserActionLogger interface {
	LogUserAction(userID int64, action string, details interface{}) error
}

package domain

import "time"

// Content kinds accepted by the bulk-upload flow. Each maps to the matching
// Bot API send endpoint.
const (
	ContentTypePhoto    = "photo"
	ContentTypeVideo    = "video"
	ContentTypeDocument = "document"
)

// Post lifecycle. A post is claimed (pending -> publishing) by exactly one
// publisher firing, then either marked posted or released back to pending.
// Repost mode resets posted rows to pending in bulk.
const (
	PostStatusPending    = "pending"
	PostStatusPublishing = "publishing"
	PostStatusPosted     = "posted"
)

// Operator is one end-user of the configuration bot, keyed by their
// Telegram user id. BotToken is the credential of the secondary bot that
// actually publishes into the operator's channels.
type Operator struct {
	UserID    int64
	BotToken  string
	CreatedAt time.Time
}

// Channel is a publishing destination registered by an operator. Username
// holds either a public @handle or a -100... chat id in text form, exactly
// as the operator submitted it.
type Channel struct {
	ID        int64
	UserID    int64
	Username  string
	Title     string
	IsActive  bool
	CreatedAt time.Time
}

// Post is one queued media item. TargetChannels is a snapshot of the
// operator's active channel ids taken at enqueue time; it never changes
// afterwards, even if the channel set does.
type Post struct {
	ID             int64
	UserID         int64
	ContentType    string
	FileID         string
	Caption        string
	Status         string
	PostedAt       *time.Time
	TargetChannels []int64
	CreatedAt      time.Time
}

// Settings is the singleton per-operator configuration row.
type Settings struct {
	UserID        int64
	PostsPerDay   int
	RepostEnabled bool
	CreatedAt     time.Time
}

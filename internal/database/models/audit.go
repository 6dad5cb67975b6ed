package models

import "time"

// PublishLog records one successful publisher firing for the audit trail.
type PublishLog struct {
	UserID            int64     `bson:"user_id"`
	PostID            int64     `bson:"post_id"`
	ContentType       string    `bson:"content_type"`
	Caption           string    `bson:"caption,omitempty"`
	ChannelsAttempted int       `bson:"channels_attempted"`
	ChannelsSucceeded int       `bson:"channels_succeeded"`
	PublishedAt       time.Time `bson:"published_at"`
}

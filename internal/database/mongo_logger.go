package database

import (
	"context"
	"fmt"
	"time"

	"smmpost-bot/internal/database/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// MongoLogger implements PostLogger and UserActionLogger on MongoDB
// collections. It is the audit trail, not the system of record; failures
// here are logged by callers and never affect posting.
type MongoLogger struct {
	db *mongo.Database
}

// NewMongoLogger creates a new MongoLogger. It requires a connected
// database instance.
func NewMongoLogger(db *mongo.Database) *MongoLogger {
	return &MongoLogger{db: db}
}

// LogPublishedPost writes a publish audit entry to the publish_logs collection.
func (m *MongoLogger) LogPublishedPost(ctx context.Context, entry models.PublishLog) error {
	collection := m.db.Collection("publish_logs")
	insertCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := collection.InsertOne(insertCtx, entry); err != nil {
		return fmt.Errorf("failed to insert publish log for post %d: %w", entry.PostID, err)
	}
	return nil
}

// LogUserAction writes a front-end user action to the user_actions collection.
func (m *MongoLogger) LogUserAction(userID int64, action string, details interface{}) error {
	collection := m.db.Collection("user_actions")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := collection.InsertOne(ctx, map[string]interface{}{
		"user_id": userID,
		"action":  action,
		"details": details,
		"time":    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to insert user action log for user %d: %w", userID, err)
	}
	return nil
}

// NopLogger satisfies PostLogger and UserActionLogger when no audit
// database is configured.
type NopLogger struct{}

func NewNopLogger() *NopLogger { return &NopLogger{} }

func (*NopLogger) LogPublishedPost(context.Context, models.PublishLog) error { return nil }

func (*NopLogger) LogUserAction(int64, string, interface{}) error { return nil }

// Package publisher drains the post queue. It only ever runs from
// scheduler firings; nothing in the front end calls it directly.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"smmpost-bot/internal/database"
	"smmpost-bot/internal/database/models"
	"smmpost-bot/internal/domain"
	"smmpost-bot/internal/poster"
	"smmpost-bot/internal/registrar"
	telegoapi "smmpost-bot/pkg/telegoapi"

	"github.com/getsentry/sentry-go"
	"github.com/mymmrac/telego"
)

const sendTimeout = 30 * time.Second

// Publisher publishes one queued post per firing, fanning it out to the
// post's snapshotted target channels.
type Publisher struct {
	posts      database.PostRepository
	channels   database.ChannelRepository
	operators  database.OperatorRepository
	settings   database.SettingsRepository
	clients    poster.Factory
	postLogger database.PostLogger
}

type Deps struct {
	Posts      database.PostRepository
	Channels   database.ChannelRepository
	Operators  database.OperatorRepository
	Settings   database.SettingsRepository
	Clients    poster.Factory
	PostLogger database.PostLogger
}

func New(deps Deps) (*Publisher, error) {
	if deps.Posts == nil {
		return nil, fmt.Errorf("post repository cannot be nil")
	}
	if deps.Channels == nil {
		return nil, fmt.Errorf("channel repository cannot be nil")
	}
	if deps.Operators == nil {
		return nil, fmt.Errorf("operator repository cannot be nil")
	}
	if deps.Settings == nil {
		return nil, fmt.Errorf("settings repository cannot be nil")
	}
	if deps.Clients == nil {
		return nil, fmt.Errorf("poster factory cannot be nil")
	}
	if deps.PostLogger == nil {
		return nil, fmt.Errorf("post logger cannot be nil")
	}
	return &Publisher{
		posts:      deps.Posts,
		channels:   deps.Channels,
		operators:  deps.Operators,
		settings:   deps.Settings,
		clients:    deps.Clients,
		postLogger: deps.PostLogger,
	}, nil
}

// Publish runs one firing for the operator. All failures are swallowed
// into the log (and Sentry); the unattended path never surfaces errors to
// a user.
func (p *Publisher) Publish(ctx context.Context, userID int64) {
	if err := p.publish(ctx, userID); err != nil {
		log.Printf("[Publisher Op:%d] Firing failed: %v", userID, err)
		sentry.CaptureException(fmt.Errorf("publisher firing for operator %d: %w", userID, err))
	}
}

func (p *Publisher) publish(ctx context.Context, userID int64) error {
	post, err := p.posts.ClaimOldestPending(ctx, userID)
	if errors.Is(err, domain.ErrNoPendingPosts) {
		return p.handleEmptyQueue(ctx, userID)
	}
	if err != nil {
		return err
	}

	op, err := p.operators.Get(ctx, userID)
	if err != nil || op.BotToken == "" {
		// Post goes back untouched; it will be attempted again on the
		// next firing once a credential exists.
		if relErr := p.posts.Release(ctx, post.ID); relErr != nil {
			return relErr
		}
		if err != nil && !errors.Is(err, domain.ErrOperatorNotFound) {
			return err
		}
		return domain.ErrCredentialMissing
	}

	client, err := p.clients.Client(op.BotToken)
	if err != nil {
		if relErr := p.posts.Release(ctx, post.ID); relErr != nil {
			return relErr
		}
		return err
	}

	attempted, succeeded := p.fanOut(ctx, client, userID, post)

	if succeeded == 0 {
		// All channels skipped or failed: the post stays pending and the
		// same snapshot is retried verbatim next firing.
		return p.posts.Release(ctx, post.ID)
	}

	postedAt := time.Now()
	if err := p.posts.MarkPosted(ctx, post.ID, postedAt); err != nil {
		return err
	}
	log.Printf("[Publisher Op:%d] Posted content %d to %d/%d channel(s)", userID, post.ID, succeeded, attempted)

	if err := p.postLogger.LogPublishedPost(ctx, models.PublishLog{
		UserID:            userID,
		PostID:            post.ID,
		ContentType:       post.ContentType,
		Caption:           post.Caption,
		ChannelsAttempted: attempted,
		ChannelsSucceeded: succeeded,
		PublishedAt:       postedAt,
	}); err != nil {
		log.Printf("[Publisher Op:%d] Audit log failed: %v", userID, err)
	}
	return nil
}

// fanOut attempts the send on every channel in the post's snapshot.
// Channels that vanished or were deactivated since enqueue are skipped and
// count as neither success nor failure.
func (p *Publisher) fanOut(ctx context.Context, client telegoapi.PosterAPI, userID int64, post *domain.Post) (attempted, succeeded int) {
	for _, channelID := range post.TargetChannels {
		ch, err := p.channels.GetByID(ctx, channelID)
		if errors.Is(err, domain.ErrChannelNotFound) {
			continue
		}
		if err != nil {
			log.Printf("[Publisher Op:%d] Channel %d lookup failed: %v", userID, channelID, err)
			continue
		}
		if !ch.IsActive {
			continue
		}

		attempted++
		if err := p.sendToChannel(ctx, client, ch, post); err != nil {
			log.Printf("[Publisher Op:%d] Send post %d to %s failed: %v", userID, post.ID, ch.Username, err)
			continue
		}
		succeeded++
	}
	return attempted, succeeded
}

func (p *Publisher) sendToChannel(ctx context.Context, client telegoapi.PosterAPI, ch *domain.Channel, post *domain.Post) error {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	chatID := registrar.ChatIDFromHandle(ch.Username)
	file := telego.InputFile{FileID: post.FileID}

	var err error
	switch post.ContentType {
	case domain.ContentTypePhoto:
		_, err = client.SendPhoto(sendCtx, &telego.SendPhotoParams{
			ChatID: chatID, Photo: file, Caption: post.Caption,
		})
	case domain.ContentTypeVideo:
		_, err = client.SendVideo(sendCtx, &telego.SendVideoParams{
			ChatID: chatID, Video: file, Caption: post.Caption,
		})
	case domain.ContentTypeDocument:
		_, err = client.SendDocument(sendCtx, &telego.SendDocumentParams{
			ChatID: chatID, Document: file, Caption: post.Caption,
		})
	default:
		return fmt.Errorf("unknown content type %q", post.ContentType)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSendFailed, err)
	}
	return nil
}

// handleEmptyQueue runs the repost-mode check when a firing found nothing
// to publish.
func (p *Publisher) handleEmptyQueue(ctx context.Context, userID int64) error {
	settings, err := p.settings.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !settings.RepostEnabled {
		return nil
	}

	n, err := p.posts.ResetPosted(ctx, userID)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Printf("[Publisher Op:%d] Repost mode reset %d post(s) to pending", userID, n)
	}
	return nil
}

package handlers

import (
	"context"
	"errors"

	"smmpost-bot/internal/domain"
	"smmpost-bot/internal/locales"
	telegoapi "smmpost-bot/pkg/telegoapi"

	"github.com/mymmrac/telego"
	"github.com/nicksnyder/go-i18n/v2/i18n"
)

func (h *MessageHandler) promptBulkUpload(ctx context.Context, bot telegoapi.BotAPI, message telego.Message, localizer *i18n.Localizer) error {
	userID := message.From.ID

	count, err := h.activeChannelCount(ctx, userID)
	if err != nil {
		return h.sendError(ctx, bot, message.Chat.ID, err)
	}
	if count == 0 {
		return h.reply(ctx, bot, message.Chat.ID,
			locales.GetMessage(localizer, "MsgBulkNoChannels", nil, nil), nil)
	}

	h.setState(userID, StateBulkUpload)
	return h.reply(ctx, bot, message.Chat.ID,
		locales.GetMessage(localizer, "MsgBulkPrompt", nil, nil), nil)
}

// handleBulkMedia enqueues one uploaded media item. The user stays in the
// upload flow so they can keep sending.
func (h *MessageHandler) handleBulkMedia(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	userID := message.From.ID
	localizer := h.getLocalizer(message.From)

	contentType, fileID, ok := extractMedia(message)
	if !ok {
		return h.reply(ctx, bot, message.Chat.ID,
			locales.GetMessage(localizer, "MsgBulkUnsupported", nil, nil), nil)
	}

	post, pending, err := h.posts.Enqueue(ctx, userID, contentType, fileID, message.Caption)
	if errors.Is(err, domain.ErrNoActiveChannels) {
		h.setState(userID, StateMainMenu)
		return h.reply(ctx, bot, message.Chat.ID,
			locales.GetMessage(localizer, "MsgBulkNoChannels", nil, nil), nil)
	}
	if err != nil {
		return h.sendError(ctx, bot, message.Chat.ID, err)
	}

	h.recordUserActivity(userID, ActionEnqueuePost, map[string]interface{}{
		"post_id":      post.ID,
		"content_type": contentType,
		"channels":     len(post.TargetChannels),
	})

	// The original re-installs the schedule after every upload so posting
	// starts without further interaction.
	settings, err := h.settings.Get(ctx, userID)
	if err != nil {
		return h.sendError(ctx, bot, message.Chat.ID, err)
	}
	h.sched.Install(userID, settings.PostsPerDay)

	queued := locales.GetMessage(localizer, "MsgBulkQueued", map[string]interface{}{
		"Pending":  pending,
		"Channels": len(post.TargetChannels),
	}, nil)
	return h.reply(ctx, bot, message.Chat.ID, queued, nil)
}

// extractMedia picks the media reference out of a message: the largest
// photo size, a video, or a document (GIFs arrive as documents).
func extractMedia(message telego.Message) (contentType, fileID string, ok bool) {
	switch {
	case len(message.Photo) > 0:
		return domain.ContentTypePhoto, message.Photo[len(message.Photo)-1].FileID, true
	case message.Video != nil:
		return domain.ContentTypeVideo, message.Video.FileID, true
	case message.Document != nil:
		return domain.ContentTypeDocument, message.Document.FileID, true
	}
	return "", "", false
}

func (h *MessageHandler) activeChannelCount(ctx context.Context, userID int64) (int, error) {
	channels, err := h.channels.ListByOperator(ctx, userID)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, ch := range channels {
		if ch.IsActive {
			count++
		}
	}
	return count, nil
}

package handlers

import (
	"context"
	"fmt"
	"strings"

	"smmpost-bot/internal/domain"
	"smmpost-bot/internal/locales"
	telegoapi "smmpost-bot/pkg/telegoapi"

	"github.com/mymmrac/telego"
	"github.com/nicksnyder/go-i18n/v2/i18n"
)

// listPostedLimit caps the posted-posts listing.
const listPostedLimit = 20

func (h *MessageHandler) listPostedPosts(ctx context.Context, bot telegoapi.BotAPI, message telego.Message, localizer *i18n.Localizer) error {
	userID := message.From.ID

	posts, err := h.posts.ListPosted(ctx, userID, listPostedLimit)
	if err != nil {
		return h.sendError(ctx, bot, message.Chat.ID, err)
	}
	if len(posts) == 0 {
		return h.reply(ctx, bot, message.Chat.ID,
			locales.GetMessage(localizer, "MsgPostedEmpty", nil, nil), nil)
	}

	titles, err := h.channels.TitlesByIDs(ctx, firstChannelIDs(posts))
	if err != nil {
		return h.sendError(ctx, bot, message.Chat.ID, err)
	}
	unknown := locales.GetMessage(localizer, "ChannelUnknown", nil, nil)

	var b strings.Builder
	b.WriteString(locales.GetMessage(localizer, "MsgPostedHeader", nil, nil) + "\n\n")
	for i, post := range posts {
		when := ""
		if post.PostedAt != nil {
			when = post.PostedAt.Format("01/02 15:04")
		}
		title := unknown
		if len(post.TargetChannels) > 0 {
			if t, ok := titles[post.TargetChannels[0]]; ok {
				title = t
			}
		}
		b.WriteString(fmt.Sprintf("%d. %s %s\n   📅 %s | 📢 %s\n\n",
			i+1,
			contentTypeEmoji(post.ContentType),
			captionPreview(localizer, post.Caption),
			when,
			title,
		))
	}

	total, err := h.posts.CountByStatus(ctx, userID, domain.PostStatusPosted)
	if err != nil {
		return h.sendError(ctx, bot, message.Chat.ID, err)
	}
	b.WriteString(locales.GetMessage(localizer, "MsgPostedTotal", map[string]interface{}{
		"Count": total,
	}, nil))

	return h.reply(ctx, bot, message.Chat.ID, b.String(), nil)
}

// firstChannelIDs collects the distinct first snapshot channel of each
// post, the one the listing displays.
func firstChannelIDs(posts []domain.Post) []int64 {
	seen := make(map[int64]bool, len(posts))
	var ids []int64
	for _, post := range posts {
		if len(post.TargetChannels) == 0 {
			continue
		}
		id := post.TargetChannels[0]
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

func (h *MessageHandler) listPendingPosts(ctx context.Context, bot telegoapi.BotAPI, message telego.Message, localizer *i18n.Localizer) error {
	userID := message.From.ID

	posts, err := h.posts.ListPending(ctx, userID)
	if err != nil {
		return h.sendError(ctx, bot, message.Chat.ID, err)
	}
	if len(posts) == 0 {
		return h.reply(ctx, bot, message.Chat.ID,
			locales.GetMessage(localizer, "MsgPendingEmpty", nil, nil), nil)
	}

	var b strings.Builder
	b.WriteString(locales.GetMessage(localizer, "MsgPendingHeader", nil, nil) + "\n\n")
	for i, post := range posts {
		b.WriteString(fmt.Sprintf("%d. %s %s\n",
			i+1, contentTypeEmoji(post.ContentType), captionPreview(localizer, post.Caption)))
	}

	settings, err := h.settings.Get(ctx, userID)
	if err != nil {
		return h.sendError(ctx, bot, message.Chat.ID, err)
	}
	perDay := settings.PostsPerDay
	if perDay < 1 {
		perDay = 1
	}
	b.WriteString("\n" + locales.GetMessage(localizer, "MsgPendingTotal", map[string]interface{}{
		"Count": len(posts),
		"Days":  fmt.Sprintf("%.1f", float64(len(posts))/float64(perDay)),
	}, nil))

	return h.reply(ctx, bot, message.Chat.ID, b.String(), nil)
}

func (h *MessageHandler) toggleRepostMode(ctx context.Context, bot telegoapi.BotAPI, message telego.Message, localizer *i18n.Localizer) error {
	userID := message.From.ID

	enabled, err := h.settings.ToggleRepost(ctx, userID)
	if err != nil {
		return h.sendError(ctx, bot, message.Chat.ID, err)
	}
	h.recordUserActivity(userID, ActionToggleRepost, map[string]interface{}{
		"enabled": enabled,
	})

	msgKey := "MsgRepostOff"
	if enabled {
		msgKey = "MsgRepostOn"
	}
	return h.reply(ctx, bot, message.Chat.ID,
		locales.GetMessage(localizer, msgKey, nil, nil), h.mainKeyboard(localizer, enabled))
}

func (h *MessageHandler) listTargetChannels(ctx context.Context, bot telegoapi.BotAPI, message telego.Message, localizer *i18n.Localizer) error {
	userID := message.From.ID

	channels, err := h.channels.ListByOperator(ctx, userID)
	if err != nil {
		return h.sendError(ctx, bot, message.Chat.ID, err)
	}
	if len(channels) == 0 {
		return h.reply(ctx, bot, message.Chat.ID,
			locales.GetMessage(localizer, "MsgTargetChannelsEmpty", nil, nil), nil)
	}

	var b strings.Builder
	b.WriteString(locales.GetMessage(localizer, "MsgTargetChannelsHeader", nil, nil) + "\n\n")
	active := 0
	for _, ch := range channels {
		statusKey := "StatusInactive"
		if ch.IsActive {
			statusKey = "StatusActive"
			active++
		}
		b.WriteString(fmt.Sprintf("• %s\n  %s - %s\n\n",
			ch.Title, ch.Username, locales.GetMessage(localizer, statusKey, nil, nil)))
	}
	b.WriteString(locales.GetMessage(localizer, "MsgTargetChannelsTotal", map[string]interface{}{
		"Count": active,
	}, nil))

	return h.reply(ctx, bot, message.Chat.ID, b.String(), nil)
}

func (h *MessageHandler) promptPostsPerDay(ctx context.Context, bot telegoapi.BotAPI, message telego.Message, localizer *i18n.Localizer) error {
	settings, err := h.settings.Get(ctx, message.From.ID)
	if err != nil {
		return h.sendError(ctx, bot, message.Chat.ID, err)
	}

	prompt := locales.GetMessage(localizer, "MsgPPDPrompt", map[string]interface{}{
		"Current": settings.PostsPerDay,
	}, nil)
	return h.reply(ctx, bot, message.Chat.ID, prompt, ppdKeyboard())
}

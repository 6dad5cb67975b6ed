package handlers

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"smmpost-bot/internal/locales"
	telegoapi "smmpost-bot/pkg/telegoapi"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// ppdCallbackPrefix tags posts-per-day selections on the inline keyboard.
const ppdCallbackPrefix = "ppd_"

// HandleCallbackQuery processes inline keyboard presses. The only inline
// flow is the posts-per-day selection; anything else is acknowledged and
// dropped.
func (h *MessageHandler) HandleCallbackQuery(ctx context.Context, bot telegoapi.BotAPI, query telego.CallbackQuery) error {
	if strings.HasPrefix(query.Data, ppdCallbackPrefix) {
		return h.handlePostsPerDayCallback(ctx, bot, query)
	}

	log.Printf("[Callback User:%d] Unknown callback data: %q", query.From.ID, query.Data)
	return h.answerCallback(ctx, bot, query.ID)
}

func (h *MessageHandler) handlePostsPerDayCallback(ctx context.Context, bot telegoapi.BotAPI, query telego.CallbackQuery) error {
	userID := query.From.ID
	localizer := h.getLocalizer(&query.From)

	count, err := strconv.Atoi(strings.TrimPrefix(query.Data, ppdCallbackPrefix))
	if err != nil || count < 1 {
		log.Printf("[Callback User:%d] Malformed posts-per-day data: %q", userID, query.Data)
		return h.answerCallback(ctx, bot, query.ID)
	}

	if err := h.settings.SetPostsPerDay(ctx, userID, count); err != nil {
		_ = h.answerCallback(ctx, bot, query.ID)
		return fmt.Errorf("set posts per day for user %d: %w", userID, err)
	}

	h.sched.Install(userID, count)
	h.recordUserActivity(userID, ActionSetPostsPerDay, map[string]interface{}{
		"posts_per_day": count,
	})

	if err := h.answerCallback(ctx, bot, query.ID); err != nil {
		log.Printf("[Callback User:%d] Failed to answer callback: %v", userID, err)
	}

	// Replace the selection keyboard with a confirmation. Inaccessible
	// messages (too old, deleted) are skipped.
	msg, ok := query.Message.(*telego.Message)
	if !ok || msg == nil {
		return nil
	}
	updated := locales.GetMessage(localizer, "MsgPPDUpdated", map[string]interface{}{
		"Count": count,
	}, nil)
	_, err = bot.EditMessageText(ctx, &telego.EditMessageTextParams{
		ChatID:    tu.ID(msg.Chat.ID),
		MessageID: msg.MessageID,
		Text:      updated,
		ParseMode: telego.ModeMarkdown,
	})
	if err != nil {
		log.Printf("[Callback User:%d] Failed to edit posts-per-day message: %v", userID, err)
	}
	return nil
}

func (h *MessageHandler) answerCallback(ctx context.Context, bot telegoapi.BotAPI, queryID string) error {
	return bot.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{CallbackQueryID: queryID})
}

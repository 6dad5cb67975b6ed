package handlers

import (
	"context"
	"log"

	"smmpost-bot/internal/locales"
	telegoapi "smmpost-bot/pkg/telegoapi"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/nicksnyder/go-i18n/v2/i18n"
)

// reply sends a Markdown message, optionally with a reply markup.
func (h *MessageHandler) reply(ctx context.Context, bot telegoapi.BotAPI, chatID int64, text string, markup telego.ReplyMarkup) error {
	params := tu.Message(tu.ID(chatID), text).WithParseMode(telego.ModeMarkdown)
	if markup != nil {
		params = params.WithReplyMarkup(markup)
	}
	_, err := bot.SendMessage(ctx, params)
	if err != nil {
		log.Printf("Error sending message to chat %d: %v", chatID, err)
	}
	return err
}

// sendError sends the generic localized error message. The original error
// is logged and returned so the update loop can capture it.
func (h *MessageHandler) sendError(ctx context.Context, bot telegoapi.BotAPI, chatID int64, originalErr error) error {
	log.Printf("Error for user in chat %d: %v", chatID, originalErr)

	localizer := locales.NewLocalizer(locales.DefaultLanguage)
	errMsg := locales.GetMessage(localizer, "MsgErrorGeneral", nil, nil)
	if _, sendErr := bot.SendMessage(ctx, tu.Message(tu.ID(chatID), errMsg)); sendErr != nil {
		log.Printf("Error sending generic error message to chat %d: %v", chatID, sendErr)
	}
	return originalErr
}

// getLocalizer picks a localizer for the user, falling back to the default
// language.
func (h *MessageHandler) getLocalizer(user *telego.User) *i18n.Localizer {
	lang := locales.DefaultLanguage
	if user != nil && user.LanguageCode != "" {
		lang = user.LanguageCode
	}
	return locales.NewLocalizer(lang)
}

// recordUserActivity logs the action to the audit trail. Audit failures
// never affect the interactive flow.
func (h *MessageHandler) recordUserActivity(userID int64, action string, details map[string]interface{}) {
	if err := h.actionLogger.LogUserAction(userID, action, details); err != nil {
		log.Printf("Failed to log action %q for user %d: %v", action, userID, err)
	}
}

func contentTypeEmoji(contentType string) string {
	switch contentType {
	case "photo":
		return "🖼️"
	case "video":
		return "🎥"
	default:
		return "📄"
	}
}

// captionPreview shortens a caption for list views.
func captionPreview(localizer *i18n.Localizer, caption string) string {
	if caption == "" {
		return locales.GetMessage(localizer, "MsgNoCaption", nil, nil)
	}
	runes := []rune(caption)
	if len(runes) > 30 {
		return string(runes[:30]) + "..."
	}
	return caption
}

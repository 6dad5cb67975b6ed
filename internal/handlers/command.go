package handlers

import (
	"context"
	"fmt"

	"smmpost-bot/internal/locales"
	telegoapi "smmpost-bot/pkg/telegoapi"

	"github.com/mymmrac/telego"
)

// HandleStart handles the /start command: it creates the settings row with
// its defaults if missing, resets the conversation to the main menu and
// sends the welcome message with the menu keyboard.
func (h *MessageHandler) HandleStart(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	userID := message.From.ID
	localizer := h.getLocalizer(message.From)

	if err := h.settings.EnsureDefaults(ctx, userID); err != nil {
		return h.sendError(ctx, bot, message.Chat.ID, fmt.Errorf("ensure settings: %w", err))
	}
	settings, err := h.settings.Get(ctx, userID)
	if err != nil {
		return h.sendError(ctx, bot, message.Chat.ID, err)
	}

	h.setState(userID, StateMainMenu)
	h.recordUserActivity(userID, ActionCommandStart, map[string]interface{}{
		"chat_id": message.Chat.ID,
	})

	welcome := locales.GetMessage(localizer, "MsgStart", nil, nil)
	return h.reply(ctx, bot, message.Chat.ID, welcome, h.mainKeyboard(localizer, settings.RepostEnabled))
}

// SetupCommands registers the bot's command list with Telegram.
func (h *MessageHandler) SetupCommands(ctx context.Context, bot telegoapi.BotAPI) error {
	localizer := locales.NewLocalizer(locales.DefaultLanguage)
	err := bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{
		Commands: []telego.BotCommand{
			{
				Command:     "start",
				Description: locales.GetMessage(localizer, "CmdStartDescription", nil, nil),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to set bot commands: %w", err)
	}
	return nil
}

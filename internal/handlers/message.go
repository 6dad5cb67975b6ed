package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"smmpost-bot/internal/domain"
	"smmpost-bot/internal/locales"
	telegoapi "smmpost-bot/pkg/telegoapi"

	"github.com/mymmrac/telego"
	"github.com/nicksnyder/go-i18n/v2/i18n"
)

const tokenCheckTimeout = 10 * time.Second

// HandleMessage routes an incoming message according to the user's
// conversation state.
func (h *MessageHandler) HandleMessage(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	if message.From == nil {
		return nil
	}
	if strings.HasPrefix(message.Text, "/start") {
		return h.HandleStart(ctx, bot, message)
	}

	userID := message.From.ID
	switch h.State(userID) {
	case StateAwaitingToken:
		return h.handleTokenInput(ctx, bot, message)
	case StateAwaitingChannels:
		return h.handleChannelsInput(ctx, bot, message)
	case StateBulkUpload:
		if message.Photo != nil || message.Video != nil || message.Document != nil {
			return h.handleBulkMedia(ctx, bot, message)
		}
		// Any text exits the upload flow back to the menu.
		h.setState(userID, StateMainMenu)
		return h.handleMenuButton(ctx, bot, message)
	default:
		return h.handleMenuButton(ctx, bot, message)
	}
}

// handleMenuButton dispatches the main-menu reply-keyboard buttons.
func (h *MessageHandler) handleMenuButton(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	localizer := h.getLocalizer(message.From)
	btn := func(key string) string { return locales.GetMessage(localizer, key, nil, nil) }

	switch message.Text {
	case btn("BtnSetupToken"):
		return h.promptToken(ctx, bot, message, localizer)
	case btn("BtnSetupChannels"):
		return h.promptChannels(ctx, bot, message, localizer)
	case btn("BtnAddPosts"):
		return h.promptBulkUpload(ctx, bot, message, localizer)
	case btn("BtnPostsPerDay"):
		return h.promptPostsPerDay(ctx, bot, message, localizer)
	case btn("BtnPostedPosts"):
		return h.listPostedPosts(ctx, bot, message, localizer)
	case btn("BtnPendingPosts"):
		return h.listPendingPosts(ctx, bot, message, localizer)
	case btn("BtnRepostModeOn"), btn("BtnRepostModeOff"):
		return h.toggleRepostMode(ctx, bot, message, localizer)
	case btn("BtnTargetChannels"):
		return h.listTargetChannels(ctx, bot, message, localizer)
	}
	// Free text outside a flow is ignored, as the original menu does.
	return nil
}

func (h *MessageHandler) promptToken(ctx context.Context, bot telegoapi.BotAPI, message telego.Message, localizer *i18n.Localizer) error {
	h.setState(message.From.ID, StateAwaitingToken)
	return h.reply(ctx, bot, message.Chat.ID,
		locales.GetMessage(localizer, "MsgSetupTokenPrompt", nil, nil), nil)
}

// handleTokenInput validates and stores the posting-bot credential. The
// token is checked live against getMe before it is accepted.
func (h *MessageHandler) handleTokenInput(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	userID := message.From.ID
	localizer := h.getLocalizer(message.From)
	token := strings.TrimSpace(message.Text)

	if !strings.Contains(token, ":") || len(token) < 20 {
		return h.reply(ctx, bot, message.Chat.ID,
			locales.GetMessage(localizer, "MsgTokenInvalidFormat", nil, nil), nil)
	}

	client, err := h.clients.Client(token)
	if err != nil {
		log.Printf("[Token User:%d] Client creation failed: %v", userID, err)
		return h.reply(ctx, bot, message.Chat.ID,
			locales.GetMessage(localizer, "MsgTokenRejected", nil, nil), nil)
	}

	checkCtx, cancel := context.WithTimeout(ctx, tokenCheckTimeout)
	me, err := client.GetMe(checkCtx)
	cancel()
	if err != nil {
		log.Printf("[Token User:%d] getMe rejected token: %v", userID, fmt.Errorf("%w: %v", domain.ErrCredentialInvalid, err))
		return h.reply(ctx, bot, message.Chat.ID,
			locales.GetMessage(localizer, "MsgTokenRejected", nil, nil), nil)
	}

	if err := h.operators.Upsert(ctx, userID, token); err != nil {
		return h.sendError(ctx, bot, message.Chat.ID, err)
	}

	h.setState(userID, StateMainMenu)
	h.recordUserActivity(userID, ActionSetToken, map[string]interface{}{
		"posting_bot": me.Username,
	})

	settings, err := h.settings.Get(ctx, userID)
	if err != nil {
		return h.sendError(ctx, bot, message.Chat.ID, err)
	}
	verified := locales.GetMessage(localizer, "MsgTokenVerified", map[string]interface{}{
		"BotUsername":  me.Username,
		"TokenPreview": token[:10],
	}, nil)
	return h.reply(ctx, bot, message.Chat.ID, verified, h.mainKeyboard(localizer, settings.RepostEnabled))
}

func (h *MessageHandler) promptChannels(ctx context.Context, bot telegoapi.BotAPI, message telego.Message, localizer *i18n.Localizer) error {
	userID := message.From.ID

	op, err := h.operators.Get(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrOperatorNotFound) {
		return h.sendError(ctx, bot, message.Chat.ID, err)
	}
	if op == nil || op.BotToken == "" {
		return h.reply(ctx, bot, message.Chat.ID,
			locales.GetMessage(localizer, "MsgSetupChannelsNoToken", nil, nil), nil)
	}

	h.setState(userID, StateAwaitingChannels)
	return h.reply(ctx, bot, message.Chat.ID,
		locales.GetMessage(localizer, "MsgSetupChannelsPrompt", nil, nil), nil)
}

// handleChannelsInput runs one registration batch and reports both
// partitions with reasons.
func (h *MessageHandler) handleChannelsInput(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	userID := message.From.ID
	localizer := h.getLocalizer(message.From)

	result, err := h.registrar.Register(ctx, userID, message.Text)
	h.setState(userID, StateMainMenu)
	if errors.Is(err, domain.ErrCredentialMissing) {
		return h.reply(ctx, bot, message.Chat.ID,
			locales.GetMessage(localizer, "MsgSetupChannelsNoToken", nil, nil), nil)
	}
	if err != nil {
		return h.sendError(ctx, bot, message.Chat.ID, err)
	}

	h.recordUserActivity(userID, ActionSetupChannels, map[string]interface{}{
		"accepted": len(result.Accepted),
		"rejected": len(result.Rejected),
	})

	var b strings.Builder
	b.WriteString(locales.GetMessage(localizer, "MsgChannelResultsHeader", nil, nil) + "\n\n")
	if len(result.Accepted) > 0 {
		b.WriteString(locales.GetMessage(localizer, "MsgChannelsAcceptedHeader", nil, nil) + "\n")
		for _, a := range result.Accepted {
			b.WriteString(fmt.Sprintf("✅ %s (%s)\n", a.Channel.Title, a.Channel.Username))
		}
		b.WriteString("\n")
	}
	if len(result.Rejected) > 0 {
		b.WriteString(locales.GetMessage(localizer, "MsgChannelsRejectedHeader", nil, nil) + "\n")
		for _, r := range result.Rejected {
			name := r.Handle
			if r.Title != "" {
				name = r.Title
			}
			b.WriteString(fmt.Sprintf("❌ %s - %s\n", name, rejectionReason(localizer, r.Err)))
		}
		b.WriteString("\n")
	}
	b.WriteString(locales.GetMessage(localizer, "MsgChannelsTotals", map[string]interface{}{
		"Accepted": len(result.Accepted),
		"Rejected": len(result.Rejected),
	}, nil))
	if len(result.Accepted) > 0 {
		b.WriteString("\n\n" + locales.GetMessage(localizer, "MsgChannelsNext", nil, nil))
	}

	settings, err := h.settings.Get(ctx, userID)
	if err != nil {
		return h.sendError(ctx, bot, message.Chat.ID, err)
	}
	return h.reply(ctx, bot, message.Chat.ID, b.String(), h.mainKeyboard(localizer, settings.RepostEnabled))
}

func rejectionReason(localizer *i18n.Localizer, err error) string {
	if errors.Is(err, domain.ErrChannelNotAdmin) {
		return locales.GetMessage(localizer, "ReasonNotAdmin", nil, nil)
	}
	return locales.GetMessage(localizer, "ReasonUnreachable", nil, nil)
}

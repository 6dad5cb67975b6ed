package handlers

import (
	"fmt"

	"smmpost-bot/internal/locales"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/nicksnyder/go-i18n/v2/i18n"
)

// Posts-per-day choices offered by the inline keyboard, mirroring the menu
// layout: 1-6 plus the two high-frequency presets.
var ppdChoices = []int{1, 2, 3, 4, 5, 6, 8, 10}

// mainKeyboard builds the persistent menu. The repost button label follows
// the operator's current setting.
func (h *MessageHandler) mainKeyboard(localizer *i18n.Localizer, repostEnabled bool) *telego.ReplyKeyboardMarkup {
	repostKey := "BtnRepostModeOff"
	if repostEnabled {
		repostKey = "BtnRepostModeOn"
	}
	return tu.Keyboard(
		tu.KeyboardRow(
			tu.KeyboardButton(locales.GetMessage(localizer, "BtnSetupToken", nil, nil)),
			tu.KeyboardButton(locales.GetMessage(localizer, "BtnSetupChannels", nil, nil)),
		),
		tu.KeyboardRow(
			tu.KeyboardButton(locales.GetMessage(localizer, "BtnAddPosts", nil, nil)),
			tu.KeyboardButton(locales.GetMessage(localizer, "BtnPostsPerDay", nil, nil)),
		),
		tu.KeyboardRow(
			tu.KeyboardButton(locales.GetMessage(localizer, "BtnPostedPosts", nil, nil)),
			tu.KeyboardButton(locales.GetMessage(localizer, "BtnPendingPosts", nil, nil)),
		),
		tu.KeyboardRow(
			tu.KeyboardButton(locales.GetMessage(localizer, repostKey, nil, nil)),
			tu.KeyboardButton(locales.GetMessage(localizer, "BtnTargetChannels", nil, nil)),
		),
	).WithResizeKeyboard().WithInputFieldPlaceholder("Choose an option...")
}

func ppdKeyboard() *telego.InlineKeyboardMarkup {
	rows := make([][]telego.InlineKeyboardButton, 0, len(ppdChoices))
	for _, n := range ppdChoices {
		label := fmt.Sprintf("%d Posts", n)
		if n == 1 {
			label = "1 Post"
		}
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(label).WithCallbackData(fmt.Sprintf("ppd_%d", n)),
		))
	}
	return tu.InlineKeyboard(rows...)
}

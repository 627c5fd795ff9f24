package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dayplanner/internal/models"
)

var reminderKB = tgbotapi.NewInlineKeyboardMarkup(
	tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✅ Done", CallbackDone),
		tgbotapi.NewInlineKeyboardButtonData("💤 10m", CallbackSnooze10),
		tgbotapi.NewInlineKeyboardButtonData("💤 30m", CallbackSnooze30),
	),
)

// Telegram sends through the bot the handler package also listens on.
type Telegram struct {
	Bot *tgbotapi.BotAPI
}

func NewTelegram(bot *tgbotapi.BotAPI) *Telegram { return &Telegram{Bot: bot} }

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Enabled(u *models.User) bool {
	return u.RemindTelegram && u.TelegramChatID != 0
}

func (t *Telegram) SendReminder(u *models.User, r Reminder) error {
	topicLine := ""
	if r.Topic != "" {
		topicLine = "\n📚 <b>Topic:</b> " + r.Topic
	}
	text := fmt.Sprintf(
		"⏰ <b>Routine Reminder</b>\n\n🕐 <b>Time:</b> %s – %s\n✅ <b>Task:</b> %s%s\n\nStay focused! 💪",
		r.StartTime, r.EndTime, r.Activity, topicLine)

	msg := tgbotapi.NewMessage(u.TelegramChatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = reminderKB
	_, err := t.Bot.Send(msg)
	return err
}

func (t *Telegram) SendReflectionPrompt(u *models.User) error {
	text := "🌙 <b>Daily Reflection</b>\n\nHow was your day?\n\n" +
		"• /great - I crushed it!\n• /okay - It was alright\n• /bad - Could be better\n\n" +
		"Your honest reflection helps track your progress."
	msg := tgbotapi.NewMessage(u.TelegramChatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := t.Bot.Send(msg)
	return err
}

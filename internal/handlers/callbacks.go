package handlers

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dayplanner/internal/notify"
)

var snoozeKB = tgbotapi.NewInlineKeyboardMarkup(
	tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("10 minutes", notify.CallbackSnooze10),
		tgbotapi.NewInlineKeyboardButtonData("30 minutes", notify.CallbackSnooze30),
		tgbotapi.NewInlineKeyboardButtonData("After next task", notify.CallbackSnoozeNext),
	),
)

func (h *Handler) handleSnoozeMenu(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "How long should I snooze it?")
	msg.ReplyMarkup = snoozeKB
	if _, err := h.Bot.Send(msg); err != nil {
		h.Log.Warnw("telegram send failed", "chat", chatID, "err", err)
	}
}

func (h *Handler) HandleCallback(cq *tgbotapi.CallbackQuery) {
	chatID := cq.Message.Chat.ID

	// always answer callback
	if _, err := h.Bot.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		h.Log.Warnw("callback answer failed", "chat", chatID, "err", err)
	}

	switch cq.Data {
	case notify.CallbackDone:
		h.handleDone(chatID)
	case notify.CallbackSnooze10:
		h.handleSnooze(chatID, "10")
	case notify.CallbackSnooze30:
		h.handleSnooze(chatID, "30")
	case notify.CallbackSnoozeNext:
		h.handleSnooze(chatID, "next")
	}
}

func (h *Handler) handleSnooze(chatID int64, duration string) {
	u := h.userFor(chatID)
	if u == nil {
		return
	}
	res, err := h.Tasks.Snooze(u.ID, duration)
	if err != nil {
		h.sendTaskError(chatID, u.ID, err)
		return
	}
	h.send(chatID, formatSnoozed(res))
}

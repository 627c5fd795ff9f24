// Package handlers reacts to Telegram updates: account linking, task actions
// and score queries.
package handlers

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"dayplanner/internal/discipline"
	"dayplanner/internal/models"
	"dayplanner/internal/storage"
	"dayplanner/internal/tasks"
)

type Handler struct {
	Bot    *tgbotapi.BotAPI
	DB     *storage.DB
	Tasks  *tasks.Service
	Score  *discipline.Service
	Clock  clockwork.Clock
	Log    *zap.SugaredLogger
	AppURL string
}

// Listen consumes bot updates until the channel closes.
func (h *Handler) Listen() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := h.Bot.GetUpdatesChan(u)

	for upd := range updates {
		switch {
		case upd.Message != nil:
			h.HandleMessage(upd.Message)
		case upd.CallbackQuery != nil:
			h.HandleCallback(upd.CallbackQuery)
		}
	}
}

func (h *Handler) HandleMessage(msg *tgbotapi.Message) {
	if msg.IsCommand() {
		h.HandleCommand(msg)
		return
	}
	h.send(msg.Chat.ID, "Use /help to see what I can do.")
}

func (h *Handler) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := h.Bot.Send(msg); err != nil {
		h.Log.Warnw("telegram send failed", "chat", chatID, "err", err)
	}
}

// userFor resolves the linked account for a chat, nagging when there is none.
func (h *Handler) userFor(chatID int64) *models.User {
	u, err := h.DB.UserByChatID(chatID)
	if err != nil {
		h.Log.Errorw("user lookup failed", "chat", chatID, "err", err)
		h.send(chatID, "Something went wrong, try again later.")
		return nil
	}
	if u == nil {
		h.send(chatID, "Your Telegram isn't linked yet. Generate a link in your Day Planner settings and send /start &lt;token&gt;.")
		return nil
	}
	return u
}

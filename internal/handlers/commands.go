package handlers

import (
	"errors"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dayplanner/internal/models"
	"dayplanner/internal/tasks"
)

func (h *Handler) HandleCommand(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		h.handleStart(msg)
	case "help":
		h.send(chatID, "📚 <b>Day Planner Bot</b>\n\n"+
			"/start &lt;token&gt; - link your account\n"+
			"/today - current and next task\n"+
			"/done - mark the current task done\n"+
			"/snooze - snooze the current task\n"+
			"/score - your discipline score\n"+
			"/great /okay /bad - submit today's reflection\n"+
			"/status - connection status")
	case "status":
		h.handleStatus(chatID)
	case "today":
		h.handleToday(chatID)
	case "done":
		h.handleDone(chatID)
	case "snooze":
		h.handleSnoozeMenu(chatID)
	case "score":
		h.handleScore(chatID)
	case "great":
		h.handleReflection(chatID, models.MoodGreat)
	case "okay":
		h.handleReflection(chatID, models.MoodOkay)
	case "bad":
		h.handleReflection(chatID, models.MoodBad)
	default:
		h.send(chatID, "Unknown command, try /help.")
	}
}

func (h *Handler) handleStart(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	token := msg.CommandArguments()

	if token == "" {
		h.send(chatID, fmt.Sprintf(
			"👋 <b>Welcome to Day Planner Bot!</b>\n\nI send routine reminders.\n\n"+
				"<b>To connect your account:</b>\n1. Go to %s/settings\n2. Click \"Connect Telegram\"\n3. Send me the token with /start",
			h.AppURL))
		return
	}

	userID, err := h.DB.ConsumeLinkToken(token, h.Clock.Now())
	if err != nil {
		h.Log.Infow("link attempt rejected", "chat", chatID, "err", err)
		h.send(chatID, "❌ <b>Connection Failed</b>\n\nThe link has expired or is invalid. Please generate a new one from your settings.")
		return
	}
	if err := h.DB.LinkTelegram(userID, chatID); err != nil {
		h.Log.Errorw("link telegram failed", "user", userID, "err", err)
		h.send(chatID, "❌ Something went wrong. Please try again later.")
		return
	}
	h.send(chatID, fmt.Sprintf(
		"✅ <b>Connected Successfully!</b>\n\nHi %s! You'll receive routine reminders here. 📅\n\nManage your settings at %s/settings",
		msg.From.FirstName, h.AppURL))
}

func (h *Handler) handleStatus(chatID int64) {
	u, err := h.DB.UserByChatID(chatID)
	if err != nil {
		h.Log.Errorw("user lookup failed", "chat", chatID, "err", err)
		return
	}
	if u == nil {
		h.send(chatID, fmt.Sprintf(
			"ℹ️ Not connected. Your chat ID: <code>%d</code>\n\nLink your account at %s/settings", chatID, h.AppURL))
		return
	}
	h.send(chatID, fmt.Sprintf(
		"ℹ️ Connected to <b>%s</b> (timezone %s). Reminders arrive at your scheduled times.", u.Email, u.Timezone))
}

func (h *Handler) handleToday(chatID int64) {
	u := h.userFor(chatID)
	if u == nil {
		return
	}
	ov, err := h.Tasks.Overview(u.ID)
	if err != nil {
		h.Log.Errorw("overview failed", "user", u.ID, "err", err)
		h.send(chatID, "Something went wrong, try again later.")
		return
	}

	if ov.Current == nil && ov.Next == nil {
		h.send(chatID, "Nothing scheduled right now. Enjoy the calm 🌿")
		return
	}
	text := ""
	if ov.Current != nil {
		text += fmt.Sprintf("▶️ <b>Now:</b> %s (%s – %s), %s left",
			ov.Current.Activity, ov.Current.StartTime, ov.Current.EndTime, ov.Current.RemainingFormatted)
		if ov.Current.SnoozeCount > 0 {
			text += fmt.Sprintf("\n💤 Snoozed %d time(s)", ov.Current.SnoozeCount)
		}
	}
	if ov.Next != nil {
		if text != "" {
			text += "\n"
		}
		text += fmt.Sprintf("⏭ <b>Next:</b> %s at %s", ov.Next.Activity, ov.Next.StartTime)
	}
	h.send(chatID, text)
}

func (h *Handler) handleDone(chatID int64) {
	u := h.userFor(chatID)
	if u == nil {
		return
	}
	res, err := h.Tasks.MarkDone(u.ID)
	if err != nil {
		h.sendTaskError(chatID, u.ID, err)
		return
	}
	text := fmt.Sprintf("✅ Task marked as done! <b>%+d points</b>", res.Points)
	h.send(chatID, text)
}

func (h *Handler) handleScore(chatID int64) {
	u := h.userFor(chatID)
	if u == nil {
		return
	}
	report, err := h.Score.Report(u.ID)
	if err != nil {
		h.Log.Errorw("score report failed", "user", u.ID, "err", err)
		h.send(chatID, "Something went wrong, try again later.")
		return
	}
	text := fmt.Sprintf(
		"%s <b>%d%%</b> — %s\n\n✅ On time: %d\n🕐 Late: %d\n💤 Snoozed: %d\n❌ Missed: %d\n\n📊 Weekly average: %d%%",
		report.Feedback.Emoji, report.Today.Percentage, report.Feedback.Message,
		report.Today.CompletedOnTime, report.Today.CompletedLate,
		report.Today.Snoozed, report.Today.Missed, report.WeeklyAverage)
	if report.BestDay != "" {
		text += "\n🏆 Best day: " + report.BestDay
	}
	h.send(chatID, text)
}

func (h *Handler) handleReflection(chatID int64, mood models.Mood) {
	u := h.userFor(chatID)
	if u == nil {
		return
	}
	r, err := h.Tasks.SubmitReflection(u.ID, mood, "")
	if err != nil {
		h.Log.Errorw("reflection submit failed", "user", u.ID, "err", err)
		h.send(chatID, "Something went wrong, try again later.")
		return
	}
	h.send(chatID, fmt.Sprintf(
		"🌙 Reflection saved. Today: %d done, %d missed, %d snoozes. Good night!",
		r.TasksCompleted, r.TasksMissed, r.TotalSnoozes))
}

func (h *Handler) sendTaskError(chatID int64, userID string, err error) {
	switch {
	case errors.Is(err, tasks.ErrNoActivePlan):
		h.send(chatID, "You have no active plan. Activate one in the app first.")
	case errors.Is(err, tasks.ErrNoCurrentTask):
		h.send(chatID, "No task is running right now.")
	case errors.Is(err, tasks.ErrAlreadyResolved):
		h.send(chatID, "This task is already wrapped up for today.")
	default:
		h.Log.Errorw("task action failed", "user", userID, "err", err)
		h.send(chatID, "Something went wrong, try again later.")
	}
}

func formatSnoozed(res *tasks.SnoozeResult) string {
	text := "💤 Task snoozed for " + strconv.Itoa(res.Duration) + " minutes."
	if res.Feedback != "" {
		text += "\n" + res.Feedback
	}
	return text
}

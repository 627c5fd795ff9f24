// Package notify delivers reminders and reflection prompts. Each channel is a
// Notifier; the dispatcher fans out to every enabled one and treats failures
// as independent.
package notify

import "dayplanner/internal/models"

// Reminder is the payload produced by the dispatch coordinator.
type Reminder struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Activity  string `json:"activity"`
	Topic     string `json:"topic"` // empty -> none
}

type Notifier interface {
	Name() string
	// Enabled reports whether this channel is configured for the user.
	Enabled(u *models.User) bool
	SendReminder(u *models.User, r Reminder) error
	SendReflectionPrompt(u *models.User) error
}

// Callback payloads attached to reminder keyboards; the bot handler matches
// on these.
const (
	CallbackDone       = "task_done"
	CallbackSnooze10   = "snooze:10"
	CallbackSnooze30   = "snooze:30"
	CallbackSnoozeNext = "snooze:next"
)

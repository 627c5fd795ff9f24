package models

import "time"

// User holds the fields the planner core needs; auth lives elsewhere.
type User struct {
	ID             string `db:"id"               json:"id"`
	Email          string `db:"email"            json:"email"`
	EmailVerified  bool   `db:"email_verified"   json:"emailVerified"`
	Timezone       string `db:"timezone"         json:"timezone"` // IANA name, defaults to UTC
	TelegramChatID int64  `db:"telegram_chat_id" json:"telegramChatId"`
	RemindEmail    bool   `db:"remind_email"     json:"remindEmail"`
	RemindTelegram bool   `db:"remind_telegram"  json:"remindTelegram"`
	Score          DisciplineSnapshot
	CreatedAt      int64 `db:"created_at" json:"createdAt"`
}

// Remindable reports whether the dispatcher should consider this user at all.
func (u *User) Remindable() bool {
	return u.EmailVerified && (u.RemindEmail || u.RemindTelegram)
}

// DisciplineSnapshot is a denormalized copy of the latest score computation.
type DisciplineSnapshot struct {
	Today         int        `db:"score_today"      json:"today"`
	WeeklyAverage int        `db:"score_weekly"     json:"weeklyAverage"`
	BestDay       string     `db:"score_best_day"   json:"bestDay"`
	LastUpdated   *time.Time `db:"score_updated_at" json:"lastUpdated"`
}

// Plan is a reusable routine. At most one plan per user is active at a time.
type Plan struct {
	ID        string `db:"id"         json:"id"`
	UserID    string `db:"user_id"    json:"userId"`
	Title     string `db:"title"      json:"title"`
	Active    bool   `db:"active"     json:"active"`
	CreatedAt int64  `db:"created_at" json:"createdAt"`
}

// PlanBlock is one time slot of a plan. Times are "HH:mm", start < end,
// never crossing midnight.
type PlanBlock struct {
	ID        string `db:"id"         json:"id"`
	PlanID    string `db:"plan_id"    json:"planId"`
	StartTime string `db:"start_time" json:"startTime"`
	EndTime   string `db:"end_time"   json:"endTime"`
	Activity  string `db:"activity"   json:"activity"`
	Topic     string `db:"topic"      json:"topic"` // empty -> none
	Order     int    `db:"ord"        json:"order"`
}

// SnoozeEntry records one snooze press.
type SnoozeEntry struct {
	SnoozedAt time.Time `json:"snoozedAt"`
	Duration  int       `json:"duration"` // minutes
}

// TaskLog tracks how the user handled one block on one day.
// Unique per (UserID, PlanBlockID, Date); created lazily on first interaction.
type TaskLog struct {
	ID             string        `db:"id"               json:"id"`
	UserID         string        `db:"user_id"          json:"userId"`
	PlanBlockID    string        `db:"plan_block_id"    json:"planBlockId"`
	Date           string        `db:"date"             json:"date"` // YYYY-MM-DD in the user's tz
	Status         TaskStatus    `db:"status"           json:"status"`
	SnoozeCount    int           `db:"snooze_count"     json:"snoozeCount"`
	SnoozeHistory  []SnoozeEntry `json:"snoozeHistory"`
	CompletedAt    *time.Time    `db:"completed_at"     json:"completedAt"`
	PointsEarned   int           `db:"points_earned"    json:"pointsEarned"`
	LastNotifiedAt *time.Time    `db:"last_notified_at" json:"lastNotifiedAt"`
}

// DailyReflection stores the end-of-day mood check-in, unique per (user, date).
type DailyReflection struct {
	ID              string `db:"id"               json:"id"`
	UserID          string `db:"user_id"          json:"userId"`
	Date            string `db:"date"             json:"date"`
	Mood            Mood   `db:"mood"             json:"mood"`
	DisciplineScore int    `db:"discipline_score" json:"disciplineScore"`
	TasksCompleted  int    `db:"tasks_completed"  json:"tasksCompleted"`
	TasksMissed     int    `db:"tasks_missed"     json:"tasksMissed"`
	TotalSnoozes    int    `db:"total_snoozes"    json:"totalSnoozes"`
}

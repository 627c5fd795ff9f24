// Package storage is the sqlite persistence layer. It exposes plain record
// reads/writes; all scheduling and scoring decisions live with the callers.
package storage

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"dayplanner/internal/models"
)

//go:embed schema.sql
var ddl embed.FS

// ErrDuplicateLog means the (user, block, date) log already exists; an
// overlapping tick got there first, which callers treat as benign.
var ErrDuplicateLog = errors.New("task log already exists for this block and date")

// ErrLinkInvalid means a telegram link token is unknown or expired.
var ErrLinkInvalid = errors.New("link token invalid or expired")

type DB struct{ *sql.DB }

func New(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, err
	}
	if err = migrate(db); err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

func migrate(db *sql.DB) error {
	b, err := ddl.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = db.Exec(string(b))
	return err
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ---------- users -----------------------------------------------------------

const userCols = `id, email, email_verified, timezone, telegram_chat_id,
	remind_email, remind_telegram, score_today, score_weekly, score_best_day,
	score_updated_at, created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	var updatedAt sql.NullInt64
	err := row.Scan(&u.ID, &u.Email, &u.EmailVerified, &u.Timezone,
		&u.TelegramChatID, &u.RemindEmail, &u.RemindTelegram,
		&u.Score.Today, &u.Score.WeeklyAverage, &u.Score.BestDay,
		&updatedAt, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if updatedAt.Valid {
		t := time.Unix(updatedAt.Int64, 0)
		u.Score.LastUpdated = &t
	}
	return &u, nil
}

func (d *DB) CreateUser(u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.Timezone == "" {
		u.Timezone = "UTC"
	}
	if u.CreatedAt == 0 {
		u.CreatedAt = time.Now().Unix()
	}
	_, err := d.Exec(`
        INSERT INTO users (id, email, email_verified, timezone, telegram_chat_id,
            remind_email, remind_telegram, created_at)
        VALUES (?,?,?,?,?,?,?,?)
    `, u.ID, u.Email, u.EmailVerified, u.Timezone, u.TelegramChatID,
		u.RemindEmail, u.RemindTelegram, u.CreatedAt)
	return err
}

func (d *DB) User(id string) (*models.User, error) {
	return scanUser(d.QueryRow(`SELECT `+userCols+` FROM users WHERE id=?`, id))
}

func (d *DB) UserByChatID(chatID int64) (*models.User, error) {
	return scanUser(d.QueryRow(
		`SELECT `+userCols+` FROM users WHERE telegram_chat_id=?`, chatID))
}

// ListRemindableUsers returns verified users with at least one reminder
// channel enabled.
func (d *DB) ListRemindableUsers() ([]models.User, error) {
	return d.listUsers(`SELECT ` + userCols + ` FROM users
        WHERE email_verified=1 AND (remind_email=1 OR remind_telegram=1)`)
}

func (d *DB) ListVerifiedUsers() ([]models.User, error) {
	return d.listUsers(`SELECT ` + userCols + ` FROM users WHERE email_verified=1`)
}

func (d *DB) listUsers(query string) ([]models.User, error) {
	rows, err := d.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *u)
	}
	return res, rows.Err()
}

func (d *DB) UpdateReminderPrefs(userID string, email, telegram bool) error {
	_, err := d.Exec(`UPDATE users SET remind_email=?, remind_telegram=? WHERE id=?`,
		email, telegram, userID)
	return err
}

func (d *DB) SetTimezone(userID, zone string) error {
	_, err := d.Exec(`UPDATE users SET timezone=? WHERE id=?`, zone, userID)
	return err
}

func (d *DB) UpdateScoreSnapshot(userID string, snap models.DisciplineSnapshot) error {
	var updatedAt sql.NullInt64
	if snap.LastUpdated != nil {
		updatedAt = sql.NullInt64{Int64: snap.LastUpdated.Unix(), Valid: true}
	}
	_, err := d.Exec(`
        UPDATE users SET score_today=?, score_weekly=?, score_best_day=?, score_updated_at=?
        WHERE id=?
    `, snap.Today, snap.WeeklyAverage, snap.BestDay, updatedAt, userID)
	return err
}

// LastPromptedDate tracks the reflection-prompt dedup marker.
func (d *DB) LastPromptedDate(userID string) (string, error) {
	var date string
	err := d.QueryRow(`SELECT last_prompted FROM users WHERE id=?`, userID).Scan(&date)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return date, err
}

func (d *DB) SetLastPromptedDate(userID, date string) error {
	_, err := d.Exec(`UPDATE users SET last_prompted=? WHERE id=?`, date, userID)
	return err
}

// ---------- plans & blocks --------------------------------------------------

func (d *DB) CreatePlan(userID, title string, blocks []models.PlanBlock) (*models.Plan, error) {
	plan := &models.Plan{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     strings.TrimSpace(title),
		CreatedAt: time.Now().Unix(),
	}
	tx, err := d.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO plans (id, user_id, title, active, created_at)
        VALUES (?,?,?,0,?)`, plan.ID, plan.UserID, plan.Title, plan.CreatedAt); err != nil {
		return nil, err
	}
	if err := insertBlocks(tx, plan.ID, blocks); err != nil {
		return nil, err
	}
	return plan, tx.Commit()
}

func insertBlocks(tx *sql.Tx, planID string, blocks []models.PlanBlock) error {
	for i, b := range blocks {
		if _, err := tx.Exec(`
            INSERT INTO plan_blocks (id, plan_id, start_time, end_time, activity, topic, ord)
            VALUES (?,?,?,?,?,?,?)
        `, uuid.New().String(), planID, b.StartTime, b.EndTime, b.Activity, b.Topic, i); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceBlocks swaps a plan's block list, recomputing order from position.
func (d *DB) ReplaceBlocks(planID string, blocks []models.PlanBlock) error {
	tx, err := d.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM plan_blocks WHERE plan_id=?`, planID); err != nil {
		return err
	}
	if err := insertBlocks(tx, planID, blocks); err != nil {
		return err
	}
	return tx.Commit()
}

func (d *DB) ListPlans(userID string) ([]models.Plan, error) {
	rows, err := d.Query(`SELECT id, user_id, title, active, created_at
        FROM plans WHERE user_id=? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []models.Plan
	for rows.Next() {
		var p models.Plan
		if err := rows.Scan(&p.ID, &p.UserID, &p.Title, &p.Active, &p.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (d *DB) ActivePlan(userID string) (*models.Plan, error) {
	var p models.Plan
	err := d.QueryRow(`SELECT id, user_id, title, active, created_at
        FROM plans WHERE user_id=? AND active=1`, userID,
	).Scan(&p.ID, &p.UserID, &p.Title, &p.Active, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ActivatePlan makes planID the user's single active plan.
func (d *DB) ActivatePlan(userID, planID string) error {
	tx, err := d.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE plans SET active=0 WHERE user_id=?`, userID); err != nil {
		return err
	}
	res, err := tx.Exec(`UPDATE plans SET active=1 WHERE id=? AND user_id=?`, planID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("plan %s not found for user %s", planID, userID)
	}
	return tx.Commit()
}

func (d *DB) DeactivatePlan(userID, planID string) error {
	_, err := d.Exec(`UPDATE plans SET active=0 WHERE id=? AND user_id=?`, planID, userID)
	return err
}

func (d *DB) DeletePlan(userID, planID string) error {
	_, err := d.Exec(`DELETE FROM plans WHERE id=? AND user_id=?`, planID, userID)
	return err
}

// BlocksByOrder lists blocks in editing order.
func (d *DB) BlocksByOrder(planID string) ([]models.PlanBlock, error) {
	return d.listBlocks(planID, "ord")
}

// BlocksByStart lists blocks in chronological order for time resolution.
func (d *DB) BlocksByStart(planID string) ([]models.PlanBlock, error) {
	return d.listBlocks(planID, "start_time")
}

func (d *DB) listBlocks(planID, orderBy string) ([]models.PlanBlock, error) {
	rows, err := d.Query(`SELECT id, plan_id, start_time, end_time, activity, topic, ord
        FROM plan_blocks WHERE plan_id=? ORDER BY `+orderBy, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []models.PlanBlock
	for rows.Next() {
		var b models.PlanBlock
		if err := rows.Scan(&b.ID, &b.PlanID, &b.StartTime, &b.EndTime,
			&b.Activity, &b.Topic, &b.Order); err != nil {
			return nil, err
		}
		res = append(res, b)
	}
	return res, rows.Err()
}

func (d *DB) CountBlocks(planID string) (int, error) {
	var n int
	err := d.QueryRow(`SELECT COUNT(*) FROM plan_blocks WHERE plan_id=?`, planID).Scan(&n)
	return n, err
}

// ---------- task logs -------------------------------------------------------

const logCols = `id, user_id, plan_block_id, date, status, snooze_count,
	snooze_history, completed_at, points_earned, last_notified_at`

func scanTaskLog(row interface{ Scan(...any) error }) (*models.TaskLog, error) {
	var l models.TaskLog
	var history string
	var completedAt, notifiedAt sql.NullInt64
	err := row.Scan(&l.ID, &l.UserID, &l.PlanBlockID, &l.Date, &l.Status,
		&l.SnoozeCount, &history, &completedAt, &l.PointsEarned, &notifiedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if history != "" {
		if err := json.Unmarshal([]byte(history), &l.SnoozeHistory); err != nil {
			return nil, fmt.Errorf("decode snooze history of log %s: %w", l.ID, err)
		}
	}
	if completedAt.Valid {
		t := time.Unix(completedAt.Int64, 0)
		l.CompletedAt = &t
	}
	if notifiedAt.Valid {
		t := time.Unix(notifiedAt.Int64, 0)
		l.LastNotifiedAt = &t
	}
	return &l, nil
}

func (d *DB) TaskLog(userID, planBlockID, date string) (*models.TaskLog, error) {
	return scanTaskLog(d.QueryRow(`SELECT `+logCols+` FROM task_logs
        WHERE user_id=? AND plan_block_id=? AND date=?`, userID, planBlockID, date))
}

// CreateTaskLog inserts a new log. A unique-key collision comes back as
// ErrDuplicateLog so overlapping ticks stay quiet.
func (d *DB) CreateTaskLog(l *models.TaskLog) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.Status == "" {
		l.Status = models.StatusPending
	}
	history, err := json.Marshal(l.SnoozeHistory)
	if err != nil {
		return err
	}
	_, err = d.Exec(`
        INSERT INTO task_logs (`+logCols+`)
        VALUES (?,?,?,?,?,?,?,?,?,?)
    `, l.ID, l.UserID, l.PlanBlockID, l.Date, l.Status, l.SnoozeCount,
		string(history), unixOrNil(l.CompletedAt), l.PointsEarned, unixOrNil(l.LastNotifiedAt))
	if isUniqueViolation(err) {
		return ErrDuplicateLog
	}
	return err
}

func (d *DB) UpdateTaskLog(l *models.TaskLog) error {
	history, err := json.Marshal(l.SnoozeHistory)
	if err != nil {
		return err
	}
	_, err = d.Exec(`
        UPDATE task_logs SET status=?, snooze_count=?, snooze_history=?,
            completed_at=?, points_earned=?, last_notified_at=?
        WHERE id=?
    `, l.Status, l.SnoozeCount, string(history),
		unixOrNil(l.CompletedAt), l.PointsEarned, unixOrNil(l.LastNotifiedAt), l.ID)
	return err
}

func (d *DB) TouchLastNotified(logID string, at time.Time) error {
	_, err := d.Exec(`UPDATE task_logs SET last_notified_at=? WHERE id=?`, at.Unix(), logID)
	return err
}

func (d *DB) TaskLogsForDate(userID, date string) ([]models.TaskLog, error) {
	return d.listLogs(`SELECT `+logCols+` FROM task_logs
        WHERE user_id=? AND date=?`, userID, date)
}

func (d *DB) TaskLogsForDateRange(userID, from, to string) ([]models.TaskLog, error) {
	return d.listLogs(`SELECT `+logCols+` FROM task_logs
        WHERE user_id=? AND date>=? AND date<=? ORDER BY date`, userID, from, to)
}

func (d *DB) listLogs(query string, args ...any) ([]models.TaskLog, error) {
	rows, err := d.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []models.TaskLog
	for rows.Next() {
		l, err := scanTaskLog(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *l)
	}
	return res, rows.Err()
}

func (d *DB) CountLogsForDate(userID, date string) (int, error) {
	var n int
	err := d.QueryRow(`SELECT COUNT(*) FROM task_logs WHERE user_id=? AND date=?`,
		userID, date).Scan(&n)
	return n, err
}

func unixOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

// ---------- reflections -----------------------------------------------------

// UpsertReflection creates or overwrites the reflection for (user, date).
func (d *DB) UpsertReflection(r *models.DailyReflection) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	_, err := d.Exec(`
        INSERT INTO daily_reflections
            (id, user_id, date, mood, discipline_score, tasks_completed, tasks_missed, total_snoozes)
        VALUES (?,?,?,?,?,?,?,?)
        ON CONFLICT(user_id, date) DO UPDATE SET mood=excluded.mood,
            discipline_score=excluded.discipline_score,
            tasks_completed=excluded.tasks_completed,
            tasks_missed=excluded.tasks_missed,
            total_snoozes=excluded.total_snoozes
    `, r.ID, r.UserID, r.Date, r.Mood, r.DisciplineScore,
		r.TasksCompleted, r.TasksMissed, r.TotalSnoozes)
	return err
}

func (d *DB) RecentReflections(userID string, limit int) ([]models.DailyReflection, error) {
	rows, err := d.Query(`
        SELECT id, user_id, date, mood, discipline_score, tasks_completed, tasks_missed, total_snoozes
        FROM daily_reflections WHERE user_id=? ORDER BY date DESC LIMIT ?
    `, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []models.DailyReflection
	for rows.Next() {
		var r models.DailyReflection
		if err := rows.Scan(&r.ID, &r.UserID, &r.Date, &r.Mood, &r.DisciplineScore,
			&r.TasksCompleted, &r.TasksMissed, &r.TotalSnoozes); err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	return res, rows.Err()
}

// ---------- telegram link tokens --------------------------------------------

// CreateLinkToken stores a one-shot account-link token with an expiry.
func (d *DB) CreateLinkToken(userID string, expiresAt time.Time) (string, error) {
	token := strings.ReplaceAll(uuid.New().String()+uuid.New().String(), "-", "")
	_, err := d.Exec(`INSERT INTO telegram_links (token, user_id, expires_at) VALUES (?,?,?)`,
		token, userID, expiresAt.Unix())
	if err != nil {
		return "", err
	}
	return token, nil
}

// ConsumeLinkToken resolves and deletes a token. Unknown or expired tokens
// return ErrLinkInvalid; expired rows are removed on sight.
func (d *DB) ConsumeLinkToken(token string, now time.Time) (string, error) {
	var userID string
	var expiresAt int64
	err := d.QueryRow(`SELECT user_id, expires_at FROM telegram_links WHERE token=?`,
		token).Scan(&userID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrLinkInvalid
	}
	if err != nil {
		return "", err
	}
	if _, err := d.Exec(`DELETE FROM telegram_links WHERE token=?`, token); err != nil {
		return "", err
	}
	if now.Unix() > expiresAt {
		return "", ErrLinkInvalid
	}
	return userID, nil
}

// LinkTelegram attaches a chat to the account and turns the channel on.
func (d *DB) LinkTelegram(userID string, chatID int64) error {
	_, err := d.Exec(`UPDATE users SET telegram_chat_id=?, remind_telegram=1 WHERE id=?`,
		chatID, userID)
	return err
}

package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"dayplanner/internal/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "planner.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, db *DB) *models.User {
	t.Helper()
	u := &models.User{
		Email:          "u@example.com",
		EmailVerified:  true,
		Timezone:       "Europe/Berlin",
		RemindTelegram: true,
		TelegramChatID: 42,
	}
	if err := db.CreateUser(u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func seedPlan(t *testing.T, db *DB, userID string, blocks []models.PlanBlock) *models.Plan {
	t.Helper()
	plan, err := db.CreatePlan(userID, "Weekday routine", blocks)
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	return plan
}

func TestUserRoundTrip(t *testing.T) {
	db := openTestDB(t)
	u := seedUser(t, db)

	got, err := db.User(u.ID)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if got == nil || got.Email != u.Email || got.Timezone != "Europe/Berlin" {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	byChat, err := db.UserByChatID(42)
	if err != nil || byChat == nil || byChat.ID != u.ID {
		t.Fatalf("lookup by chat: %+v, %v", byChat, err)
	}

	missing, err := db.User("nope")
	if err != nil || missing != nil {
		t.Fatalf("missing user should be (nil, nil), got %+v, %v", missing, err)
	}
}

func TestListRemindableUsers(t *testing.T) {
	db := openTestDB(t)
	active := seedUser(t, db)

	muted := &models.User{Email: "muted@example.com", EmailVerified: true}
	if err := db.CreateUser(muted); err != nil {
		t.Fatalf("create user: %v", err)
	}
	unverified := &models.User{Email: "new@example.com", RemindEmail: true}
	if err := db.CreateUser(unverified); err != nil {
		t.Fatalf("create user: %v", err)
	}

	users, err := db.ListRemindableUsers()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 1 || users[0].ID != active.ID {
		t.Fatalf("remindable = %+v, want only %s", users, active.ID)
	}
}

func TestActivatePlanExclusivity(t *testing.T) {
	db := openTestDB(t)
	u := seedUser(t, db)
	first := seedPlan(t, db, u.ID, nil)
	second := seedPlan(t, db, u.ID, nil)

	if err := db.ActivatePlan(u.ID, first.ID); err != nil {
		t.Fatalf("activate first: %v", err)
	}
	if err := db.ActivatePlan(u.ID, second.ID); err != nil {
		t.Fatalf("activate second: %v", err)
	}

	active, err := db.ActivePlan(u.ID)
	if err != nil {
		t.Fatalf("active plan: %v", err)
	}
	if active == nil || active.ID != second.ID {
		t.Fatalf("active = %+v, want %s", active, second.ID)
	}

	plans, err := db.ListPlans(u.ID)
	if err != nil {
		t.Fatalf("list plans: %v", err)
	}
	activeCount := 0
	for _, p := range plans {
		if p.Active {
			activeCount++
		}
	}
	if activeCount != 1 {
		t.Fatalf("active plans = %d, want 1", activeCount)
	}

	if err := db.ActivatePlan(u.ID, "nope"); err == nil {
		t.Fatalf("activating unknown plan must fail")
	}
	// the failed activation must not have deactivated the current plan
	if active, _ = db.ActivePlan(u.ID); active == nil || active.ID != second.ID {
		t.Fatalf("failed activation clobbered the active plan")
	}
}

func TestBlockOrdering(t *testing.T) {
	db := openTestDB(t)
	u := seedUser(t, db)
	// insertion order deliberately disagrees with chronological order
	plan := seedPlan(t, db, u.ID, []models.PlanBlock{
		{StartTime: "14:00", EndTime: "15:00", Activity: "Review"},
		{StartTime: "09:00", EndTime: "10:00", Activity: "Deep work"},
	})

	byOrder, err := db.BlocksByOrder(plan.ID)
	if err != nil {
		t.Fatalf("by order: %v", err)
	}
	if len(byOrder) != 2 || byOrder[0].Activity != "Review" {
		t.Fatalf("editing order = %+v", byOrder)
	}

	byStart, err := db.BlocksByStart(plan.ID)
	if err != nil {
		t.Fatalf("by start: %v", err)
	}
	if byStart[0].Activity != "Deep work" || byStart[1].Activity != "Review" {
		t.Fatalf("chronological order = %+v", byStart)
	}

	n, err := db.CountBlocks(plan.ID)
	if err != nil || n != 2 {
		t.Fatalf("count = %d, %v", n, err)
	}
}

func TestReplaceBlocks(t *testing.T) {
	db := openTestDB(t)
	u := seedUser(t, db)
	plan := seedPlan(t, db, u.ID, []models.PlanBlock{
		{StartTime: "09:00", EndTime: "10:00", Activity: "Deep work"},
	})

	err := db.ReplaceBlocks(plan.ID, []models.PlanBlock{
		{StartTime: "08:00", EndTime: "08:30", Activity: "Workout"},
		{StartTime: "09:00", EndTime: "11:00", Activity: "Deep work", Topic: "Go"},
	})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}

	blocks, err := db.BlocksByOrder(plan.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(blocks) != 2 || blocks[0].Activity != "Workout" || blocks[1].Topic != "Go" {
		t.Fatalf("replaced blocks = %+v", blocks)
	}
}

func TestTaskLogDuplicateAndRoundTrip(t *testing.T) {
	db := openTestDB(t)
	u := seedUser(t, db)

	at := time.Unix(1748856600, 0)
	log := &models.TaskLog{
		UserID:      u.ID,
		PlanBlockID: "b1",
		Date:        "2025-06-02",
		Status:      models.StatusSnoozed,
		SnoozeCount: 2,
		SnoozeHistory: []models.SnoozeEntry{
			{SnoozedAt: at, Duration: 10},
			{SnoozedAt: at.Add(10 * time.Minute), Duration: 30},
		},
		LastNotifiedAt: &at,
	}
	if err := db.CreateTaskLog(log); err != nil {
		t.Fatalf("create: %v", err)
	}

	dup := &models.TaskLog{UserID: u.ID, PlanBlockID: "b1", Date: "2025-06-02"}
	if err := db.CreateTaskLog(dup); !errors.Is(err, ErrDuplicateLog) {
		t.Fatalf("err = %v, want ErrDuplicateLog", err)
	}

	got, err := db.TaskLog(u.ID, "b1", "2025-06-02")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got == nil || got.Status != models.StatusSnoozed || got.SnoozeCount != 2 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if len(got.SnoozeHistory) != 2 || got.SnoozeHistory[1].Duration != 30 {
		t.Fatalf("history = %+v", got.SnoozeHistory)
	}
	if got.LastNotifiedAt == nil || got.LastNotifiedAt.Unix() != at.Unix() {
		t.Fatalf("lastNotifiedAt = %v", got.LastNotifiedAt)
	}

	// same block next day is a fresh log, not a duplicate
	next := &models.TaskLog{UserID: u.ID, PlanBlockID: "b1", Date: "2025-06-03"}
	if err := db.CreateTaskLog(next); err != nil {
		t.Fatalf("create next day: %v", err)
	}

	n, err := db.CountLogsForDate(u.ID, "2025-06-02")
	if err != nil || n != 1 {
		t.Fatalf("count = %d, %v", n, err)
	}
}

func TestUpdateTaskLog(t *testing.T) {
	db := openTestDB(t)
	u := seedUser(t, db)

	log := &models.TaskLog{UserID: u.ID, PlanBlockID: "b1", Date: "2025-06-02"}
	if err := db.CreateTaskLog(log); err != nil {
		t.Fatalf("create: %v", err)
	}
	if log.Status != models.StatusPending {
		t.Fatalf("default status = %q, want pending", log.Status)
	}

	done := time.Unix(1748857200, 0)
	log.Status = models.StatusCompleted
	log.CompletedAt = &done
	log.PointsEarned = 10
	if err := db.UpdateTaskLog(log); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := db.TaskLog(u.ID, "b1", "2025-06-02")
	if err != nil || got == nil {
		t.Fatalf("load: %+v, %v", got, err)
	}
	if got.Status != models.StatusCompleted || got.PointsEarned != 10 || got.CompletedAt == nil {
		t.Fatalf("update not persisted: %+v", got)
	}
}

func TestUpsertReflectionOverwrites(t *testing.T) {
	db := openTestDB(t)
	u := seedUser(t, db)

	first := &models.DailyReflection{
		UserID: u.ID, Date: "2025-06-02", Mood: models.MoodBad, DisciplineScore: 40,
	}
	if err := db.UpsertReflection(first); err != nil {
		t.Fatalf("insert: %v", err)
	}

	second := &models.DailyReflection{
		UserID: u.ID, Date: "2025-06-02", Mood: models.MoodGreat,
		DisciplineScore: 85, TasksCompleted: 4, TotalSnoozes: 1,
	}
	if err := db.UpsertReflection(second); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	recent, err := db.RecentReflections(u.ID, 7)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("reflections = %d, want 1", len(recent))
	}
	if recent[0].Mood != models.MoodGreat || recent[0].DisciplineScore != 85 {
		t.Fatalf("overwrite lost: %+v", recent[0])
	}
}

func TestLinkTokenLifecycle(t *testing.T) {
	db := openTestDB(t)
	u := seedUser(t, db)
	now := time.Unix(1748856600, 0)

	token, err := db.CreateLinkToken(u.ID, now.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("create token: %v", err)
	}

	userID, err := db.ConsumeLinkToken(token, now)
	if err != nil || userID != u.ID {
		t.Fatalf("consume = %q, %v", userID, err)
	}

	// one-shot: the same token never resolves twice
	if _, err := db.ConsumeLinkToken(token, now); !errors.Is(err, ErrLinkInvalid) {
		t.Fatalf("second consume err = %v, want ErrLinkInvalid", err)
	}

	expired, err := db.CreateLinkToken(u.ID, now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	if _, err := db.ConsumeLinkToken(expired, now); !errors.Is(err, ErrLinkInvalid) {
		t.Fatalf("expired consume err = %v, want ErrLinkInvalid", err)
	}

	if err := db.LinkTelegram(u.ID, 777); err != nil {
		t.Fatalf("link telegram: %v", err)
	}
	got, err := db.UserByChatID(777)
	if err != nil || got == nil || got.ID != u.ID || !got.RemindTelegram {
		t.Fatalf("linked user = %+v, %v", got, err)
	}
}

func TestScoreSnapshotAndPromptMarker(t *testing.T) {
	db := openTestDB(t)
	u := seedUser(t, db)

	at := time.Unix(1748857200, 0)
	snap := models.DisciplineSnapshot{
		Today: 80, WeeklyAverage: 72, BestDay: "Monday", LastUpdated: &at,
	}
	if err := db.UpdateScoreSnapshot(u.ID, snap); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	got, err := db.User(u.ID)
	if err != nil || got == nil {
		t.Fatalf("load: %v", err)
	}
	if got.Score.Today != 80 || got.Score.WeeklyAverage != 72 || got.Score.BestDay != "Monday" {
		t.Fatalf("snapshot = %+v", got.Score)
	}
	if got.Score.LastUpdated == nil || got.Score.LastUpdated.Unix() != at.Unix() {
		t.Fatalf("lastUpdated = %v", got.Score.LastUpdated)
	}

	marker, err := db.LastPromptedDate(u.ID)
	if err != nil || marker != "" {
		t.Fatalf("fresh marker = %q, %v", marker, err)
	}
	if err := db.SetLastPromptedDate(u.ID, "2025-06-02"); err != nil {
		t.Fatalf("set marker: %v", err)
	}
	if marker, _ = db.LastPromptedDate(u.ID); marker != "2025-06-02" {
		t.Fatalf("marker = %q", marker)
	}
}

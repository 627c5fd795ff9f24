// Package dispatch runs the per-minute reminder pass: it decides which blocks
// start "now" for each eligible user, seeds pending task logs, fans out to
// the notification channels and sends the end-of-day reflection prompt.
package dispatch

import (
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"dayplanner/internal/discipline"
	"dayplanner/internal/models"
	"dayplanner/internal/notify"
	"dayplanner/internal/storage"
	"dayplanner/internal/timeutil"
)

// reminderWindow absorbs tick jitter: a block is announced within the first
// two minutes past its start.
const reminderWindow = 2

// Store is the persistence slice the coordinator consumes.
type Store interface {
	ListRemindableUsers() ([]models.User, error)
	ListVerifiedUsers() ([]models.User, error)
	ActivePlan(userID string) (*models.Plan, error)
	BlocksByStart(planID string) ([]models.PlanBlock, error)
	TaskLog(userID, planBlockID, date string) (*models.TaskLog, error)
	CreateTaskLog(l *models.TaskLog) error
	UpdateTaskLog(l *models.TaskLog) error
	TouchLastNotified(logID string, at time.Time) error
	CountLogsForDate(userID, date string) (int, error)
	LastPromptedDate(userID string) (string, error)
	SetLastPromptedDate(userID, date string) error
}

// Stats summarizes one tick for logging.
type Stats struct {
	UsersChecked    int
	Processed       int
	RemindersSent   int
	Missed          int
	ReflectionsSent int
}

type Coordinator struct {
	store        Store
	notifiers    []notify.Notifier
	clock        clockwork.Clock
	log          *zap.SugaredLogger
	cooldown     time.Duration // min gap between reminder re-sends per log
	reflectionAt string        // "HH:mm" local wall-clock time
}

func New(store Store, notifiers []notify.Notifier, clock clockwork.Clock,
	log *zap.SugaredLogger, cooldown time.Duration, reflectionAt string) *Coordinator {
	return &Coordinator{
		store:        store,
		notifiers:    notifiers,
		clock:        clock,
		log:          log,
		cooldown:     cooldown,
		reflectionAt: reflectionAt,
	}
}

// Tick runs one pass over all users. Per-user and per-channel failures are
// logged and never abort the rest of the pass; overlapping ticks are safe
// because duplicate log creation is treated as already-handled.
func (c *Coordinator) Tick() (Stats, error) {
	var stats Stats

	users, err := c.store.ListRemindableUsers()
	if err != nil {
		return stats, fmt.Errorf("list users: %w", err)
	}
	stats.UsersChecked = len(users)

	for i := range users {
		if err := c.remindUser(&users[i], &stats); err != nil {
			c.log.Errorw("reminder pass failed", "user", users[i].ID, "err", err)
		}
	}

	if err := c.reflectionPass(&stats); err != nil {
		c.log.Errorw("reflection pass failed", "err", err)
	}
	return stats, nil
}

func (c *Coordinator) remindUser(user *models.User, stats *Stats) error {
	now := c.clock.Now()
	date := timeutil.DateInZone(now, user.Timezone)
	nowMinutes, err := timeutil.ToMinutes(timeutil.TimeInZone(now, user.Timezone))
	if err != nil {
		return err
	}

	plan, err := c.store.ActivePlan(user.ID)
	if err != nil {
		return fmt.Errorf("active plan: %w", err)
	}
	if plan == nil {
		return nil
	}

	blocks, err := c.store.BlocksByStart(plan.ID)
	if err != nil {
		return fmt.Errorf("list blocks: %w", err)
	}

	for _, block := range blocks {
		startMinutes, err := timeutil.ToMinutes(block.StartTime)
		if err != nil {
			c.log.Warnw("bad block start time", "block", block.ID, "err", err)
			continue
		}
		endMinutes, err := timeutil.ToMinutes(block.EndTime)
		if err != nil {
			c.log.Warnw("bad block end time", "block", block.ID, "err", err)
			continue
		}

		if endMinutes <= nowMinutes {
			if err := c.sweepMissed(user.ID, block.ID, date, stats); err != nil {
				c.log.Warnw("missed sweep failed", "block", block.ID, "err", err)
			}
			continue
		}

		sinceStart := nowMinutes - startMinutes
		if sinceStart < 0 || sinceStart > reminderWindow {
			continue
		}
		stats.Processed++

		log, err := c.store.TaskLog(user.ID, block.ID, date)
		if err != nil {
			return fmt.Errorf("find task log: %w", err)
		}
		if log != nil && log.Status != models.StatusPending {
			continue // already handled by the user or another path
		}

		if log == nil {
			seeded := &models.TaskLog{
				UserID:         user.ID,
				PlanBlockID:    block.ID,
				Date:           date,
				Status:         models.StatusPending,
				LastNotifiedAt: &now,
			}
			if err := c.store.CreateTaskLog(seeded); err != nil {
				if errors.Is(err, storage.ErrDuplicateLog) {
					continue // another tick already handled this block
				}
				return fmt.Errorf("seed task log: %w", err)
			}
		} else {
			// Pending log from an earlier tick: only re-send after the
			// cooldown, so a second tick inside the window is a no-op.
			if log.LastNotifiedAt != nil && now.Sub(*log.LastNotifiedAt) < c.cooldown {
				continue
			}
			if err := c.store.TouchLastNotified(log.ID, now); err != nil {
				return fmt.Errorf("touch task log: %w", err)
			}
		}

		c.send(user, notify.Reminder{
			StartTime: block.StartTime,
			EndTime:   block.EndTime,
			Activity:  block.Activity,
			Topic:     block.Topic,
		}, stats)
	}
	return nil
}

// sweepMissed finalizes a seeded log whose block window fully elapsed without
// the user acting on it.
func (c *Coordinator) sweepMissed(userID, blockID, date string, stats *Stats) error {
	log, err := c.store.TaskLog(userID, blockID, date)
	if err != nil || log == nil {
		return err
	}
	if log.Status.Terminal() {
		return nil
	}
	log.Status = models.StatusMissed
	log.PointsEarned = discipline.TaskPoints(models.StatusMissed, log.SnoozeCount, false)
	if err := c.store.UpdateTaskLog(log); err != nil {
		return err
	}
	stats.Missed++
	return nil
}

func (c *Coordinator) send(user *models.User, r notify.Reminder, stats *Stats) {
	for _, n := range c.notifiers {
		if !n.Enabled(user) {
			continue
		}
		if err := n.SendReminder(user, r); err != nil {
			c.log.Warnw("reminder send failed",
				"channel", n.Name(), "user", user.ID, "activity", r.Activity, "err", err)
			continue
		}
		stats.RemindersSent++
		c.log.Infow("reminder sent",
			"channel", n.Name(), "user", user.ID, "activity", r.Activity)
	}
}

// reflectionPass prompts users at the fixed local evening time, but only
// those who produced at least one task log today.
func (c *Coordinator) reflectionPass(stats *Stats) error {
	users, err := c.store.ListVerifiedUsers()
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	now := c.clock.Now()
	for i := range users {
		user := &users[i]
		if timeutil.TimeInZone(now, user.Timezone) != c.reflectionAt {
			continue
		}
		date := timeutil.DateInZone(now, user.Timezone)

		prompted, err := c.store.LastPromptedDate(user.ID)
		if err != nil {
			c.log.Warnw("read prompt marker failed", "user", user.ID, "err", err)
			continue
		}
		if prompted == date {
			continue
		}

		n, err := c.store.CountLogsForDate(user.ID, date)
		if err != nil {
			c.log.Warnw("count logs failed", "user", user.ID, "err", err)
			continue
		}
		if n == 0 {
			continue // no activity today, skip the nag
		}

		if err := c.store.SetLastPromptedDate(user.ID, date); err != nil {
			c.log.Warnw("set prompt marker failed", "user", user.ID, "err", err)
			continue
		}
		for _, notifier := range c.notifiers {
			if !notifier.Enabled(user) {
				continue
			}
			if err := notifier.SendReflectionPrompt(user); err != nil {
				c.log.Warnw("reflection prompt failed",
					"channel", notifier.Name(), "user", user.ID, "err", err)
				continue
			}
			stats.ReflectionsSent++
		}
	}
	return nil
}

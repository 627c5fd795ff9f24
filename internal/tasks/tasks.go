// Package tasks implements the user-facing actions on the running schedule:
// current-task lookup, mark-done, snooze and the daily reflection submit.
package tasks

import (
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"

	"dayplanner/internal/discipline"
	"dayplanner/internal/models"
	"dayplanner/internal/resolver"
	"dayplanner/internal/storage"
	"dayplanner/internal/timeutil"
)

var (
	ErrNoActivePlan  = errors.New("no active plan")
	ErrNoCurrentTask = errors.New("no current task")
	// ErrAlreadyResolved guards the terminal states: completed and missed
	// accept no further transitions for the day.
	ErrAlreadyResolved = errors.New("task already completed or missed today")
)

// Store is the persistence slice the task service consumes.
type Store interface {
	User(userID string) (*models.User, error)
	ActivePlan(userID string) (*models.Plan, error)
	BlocksByStart(planID string) ([]models.PlanBlock, error)
	TaskLog(userID, planBlockID, date string) (*models.TaskLog, error)
	CreateTaskLog(l *models.TaskLog) error
	UpdateTaskLog(l *models.TaskLog) error
	TaskLogsForDate(userID, date string) ([]models.TaskLog, error)
	UpsertReflection(r *models.DailyReflection) error
}

// CurrentTaskView is the running block enriched with log state.
type CurrentTaskView struct {
	ID                 string            `json:"id"`
	Activity           string            `json:"activity"`
	Topic              string            `json:"topic"`
	StartTime          string            `json:"startTime"`
	EndTime            string            `json:"endTime"`
	RemainingMinutes   int               `json:"remainingMinutes"`
	RemainingFormatted string            `json:"remainingFormatted"`
	SnoozeCount        int               `json:"snoozeCount"`
	Status             models.TaskStatus `json:"status"`
}

// NextTaskView is the upcoming block; no log state yet.
type NextTaskView struct {
	ID        string `json:"id"`
	Activity  string `json:"activity"`
	Topic     string `json:"topic"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// Overview is what the UI shows for "now". Both tasks may be nil.
type Overview struct {
	Current     *CurrentTaskView `json:"currentTask"`
	Next        *NextTaskView    `json:"nextTask"`
	CurrentTime string           `json:"currentTime"`
	Timezone    string           `json:"timezone"`
}

type DoneResult struct {
	Points      int `json:"pointsEarned"`
	SnoozeCount int `json:"snoozeCount"`
}

type SnoozeResult struct {
	Duration int    `json:"snoozeDuration"` // minutes
	Count    int    `json:"snoozeCount"`
	Feedback string `json:"feedbackMessage"`
}

type Service struct {
	store Store
	clock clockwork.Clock
}

func NewService(store Store, clock clockwork.Clock) *Service {
	return &Service{store: store, clock: clock}
}

// Overview resolves the current and next block for the user's local time.
// A missing plan or empty schedule is a normal empty overview, not an error.
func (s *Service) Overview(userID string) (*Overview, error) {
	user, plan, err := s.userAndPlan(userID)
	if err != nil && !errors.Is(err, ErrNoActivePlan) {
		return nil, err
	}

	now := s.clock.Now()
	ov := &Overview{
		CurrentTime: timeutil.TimeInZone(now, user.Timezone),
		Timezone:    user.Timezone,
	}
	if plan == nil {
		return ov, nil
	}

	blocks, err := s.store.BlocksByStart(plan.ID)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	nowMinutes, err := timeutil.ToMinutes(ov.CurrentTime)
	if err != nil {
		return nil, err
	}
	res, err := resolver.Resolve(blocks, nowMinutes)
	if err != nil {
		return nil, err
	}

	if res.Current != nil {
		endMinutes, err := timeutil.ToMinutes(res.Current.EndTime)
		if err != nil {
			return nil, err
		}
		remaining := endMinutes - nowMinutes

		date := timeutil.DateInZone(now, user.Timezone)
		log, err := s.store.TaskLog(userID, res.Current.ID, date)
		if err != nil {
			return nil, fmt.Errorf("find task log: %w", err)
		}
		view := &CurrentTaskView{
			ID:                 res.Current.ID,
			Activity:           res.Current.Activity,
			Topic:              res.Current.Topic,
			StartTime:          res.Current.StartTime,
			EndTime:            res.Current.EndTime,
			RemainingMinutes:   remaining,
			RemainingFormatted: timeutil.FormatRemaining(remaining),
			Status:             models.StatusPending,
		}
		if log != nil {
			view.SnoozeCount = log.SnoozeCount
			view.Status = log.Status
		}
		ov.Current = view
	}
	if res.Next != nil {
		ov.Next = &NextTaskView{
			ID:        res.Next.ID,
			Activity:  res.Next.Activity,
			Topic:     res.Next.Topic,
			StartTime: res.Next.StartTime,
			EndTime:   res.Next.EndTime,
		}
	}
	return ov, nil
}

// MarkDone completes the current block. Completion at or before start+30min
// earns full credit, later completions half; accrued snoozes still deduct.
func (s *Service) MarkDone(userID string) (*DoneResult, error) {
	user, plan, err := s.userAndPlan(userID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	date := timeutil.DateInZone(now, user.Timezone)
	nowMinutes, err := timeutil.ToMinutes(timeutil.TimeInZone(now, user.Timezone))
	if err != nil {
		return nil, err
	}

	current, _, err := s.currentBlock(plan.ID, nowMinutes)
	if err != nil {
		return nil, err
	}

	log, err := s.store.TaskLog(userID, current.ID, date)
	if err != nil {
		return nil, fmt.Errorf("find task log: %w", err)
	}
	if log != nil && log.Status.Terminal() {
		return nil, ErrAlreadyResolved
	}

	startMinutes, err := timeutil.ToMinutes(current.StartTime)
	if err != nil {
		return nil, err
	}
	onTime := nowMinutes <= startMinutes+discipline.GraceMinutes

	snoozes := 0
	if log != nil {
		snoozes = log.SnoozeCount
	}
	points := discipline.TaskPoints(models.StatusCompleted, snoozes, onTime)
	completedAt := now

	if log == nil {
		log = &models.TaskLog{
			UserID:      userID,
			PlanBlockID: current.ID,
			Date:        date,
		}
		log.Status = models.StatusCompleted
		log.CompletedAt = &completedAt
		log.PointsEarned = points
		if err := s.store.CreateTaskLog(log); err != nil {
			if !errors.Is(err, storage.ErrDuplicateLog) {
				return nil, fmt.Errorf("create task log: %w", err)
			}
			// lost the race against a reminder tick; mutate the seeded row
			if log, err = s.store.TaskLog(userID, current.ID, date); err != nil || log == nil {
				return nil, fmt.Errorf("reload task log: %w", err)
			}
			log.Status = models.StatusCompleted
			log.CompletedAt = &completedAt
			log.PointsEarned = points
			if err := s.store.UpdateTaskLog(log); err != nil {
				return nil, fmt.Errorf("update task log: %w", err)
			}
		}
	} else {
		log.Status = models.StatusCompleted
		log.CompletedAt = &completedAt
		log.PointsEarned = points
		if err := s.store.UpdateTaskLog(log); err != nil {
			return nil, fmt.Errorf("update task log: %w", err)
		}
	}

	return &DoneResult{Points: points, SnoozeCount: log.SnoozeCount}, nil
}

// Snooze pushes the current block back. duration is "10", "30" or "next"
// (until the following block ends; 30 minutes when there is none).
func (s *Service) Snooze(userID, duration string) (*SnoozeResult, error) {
	user, plan, err := s.userAndPlan(userID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	date := timeutil.DateInZone(now, user.Timezone)
	nowMinutes, err := timeutil.ToMinutes(timeutil.TimeInZone(now, user.Timezone))
	if err != nil {
		return nil, err
	}

	current, next, err := s.currentBlock(plan.ID, nowMinutes)
	if err != nil {
		return nil, err
	}

	var snoozeMinutes int
	switch duration {
	case "10":
		snoozeMinutes = 10
	case "30":
		snoozeMinutes = 30
	case "next":
		snoozeMinutes = 30
		if next != nil {
			endMinutes, err := timeutil.ToMinutes(next.EndTime)
			if err != nil {
				return nil, err
			}
			snoozeMinutes = endMinutes - nowMinutes
		}
	default:
		return nil, fmt.Errorf("invalid snooze duration %q", duration)
	}

	log, err := s.store.TaskLog(userID, current.ID, date)
	if err != nil {
		return nil, fmt.Errorf("find task log: %w", err)
	}
	if log != nil && log.Status.Terminal() {
		return nil, ErrAlreadyResolved
	}

	entry := models.SnoozeEntry{SnoozedAt: now, Duration: snoozeMinutes}
	if log == nil {
		log = &models.TaskLog{
			UserID:        userID,
			PlanBlockID:   current.ID,
			Date:          date,
			Status:        models.StatusSnoozed,
			SnoozeCount:   1,
			SnoozeHistory: []models.SnoozeEntry{entry},
		}
		if err := s.store.CreateTaskLog(log); err != nil {
			if !errors.Is(err, storage.ErrDuplicateLog) {
				return nil, fmt.Errorf("create task log: %w", err)
			}
			if log, err = s.store.TaskLog(userID, current.ID, date); err != nil || log == nil {
				return nil, fmt.Errorf("reload task log: %w", err)
			}
			log.Status = models.StatusSnoozed
			log.SnoozeCount++
			log.SnoozeHistory = append(log.SnoozeHistory, entry)
			if err := s.store.UpdateTaskLog(log); err != nil {
				return nil, fmt.Errorf("update task log: %w", err)
			}
		}
	} else {
		log.Status = models.StatusSnoozed
		log.SnoozeCount++
		log.SnoozeHistory = append(log.SnoozeHistory, entry)
		if err := s.store.UpdateTaskLog(log); err != nil {
			return nil, fmt.Errorf("update task log: %w", err)
		}
	}

	return &SnoozeResult{
		Duration: snoozeMinutes,
		Count:    log.SnoozeCount,
		Feedback: discipline.SnoozeFeedback(log.SnoozeCount),
	}, nil
}

// SubmitReflection upserts the mood check-in for date ("" means today),
// snapshotting stats from the day's logs.
func (s *Service) SubmitReflection(userID string, mood models.Mood, date string) (*models.DailyReflection, error) {
	if !mood.Valid() {
		return nil, fmt.Errorf("invalid mood %q", mood)
	}
	user, err := s.store.User(userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %s not found", userID)
	}
	if date == "" {
		date = timeutil.DateInZone(s.clock.Now(), user.Timezone)
	}

	logs, err := s.store.TaskLogsForDate(userID, date)
	if err != nil {
		return nil, fmt.Errorf("load day logs: %w", err)
	}

	r := &models.DailyReflection{
		UserID:          userID,
		Date:            date,
		Mood:            mood,
		DisciplineScore: user.Score.Today,
	}
	for _, log := range logs {
		r.TotalSnoozes += log.SnoozeCount
		switch log.Status {
		case models.StatusCompleted:
			r.TasksCompleted++
		case models.StatusMissed:
			r.TasksMissed++
		}
	}
	if err := s.store.UpsertReflection(r); err != nil {
		return nil, fmt.Errorf("upsert reflection: %w", err)
	}
	return r, nil
}

func (s *Service) userAndPlan(userID string) (*models.User, *models.Plan, error) {
	user, err := s.store.User(userID)
	if err != nil {
		return nil, nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, nil, fmt.Errorf("user %s not found", userID)
	}
	plan, err := s.store.ActivePlan(userID)
	if err != nil {
		return user, nil, fmt.Errorf("load active plan: %w", err)
	}
	if plan == nil {
		return user, nil, ErrNoActivePlan
	}
	return user, plan, nil
}

func (s *Service) currentBlock(planID string, nowMinutes int) (current, next *models.PlanBlock, err error) {
	blocks, err := s.store.BlocksByStart(planID)
	if err != nil {
		return nil, nil, fmt.Errorf("list blocks: %w", err)
	}
	res, err := resolver.Resolve(blocks, nowMinutes)
	if err != nil {
		return nil, nil, err
	}
	if res.Current == nil {
		return nil, nil, ErrNoCurrentTask
	}
	return res.Current, res.Next, nil
}

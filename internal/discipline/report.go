package discipline

import (
	"fmt"
	"sort"

	"github.com/jonboulle/clockwork"

	"dayplanner/internal/models"
	"dayplanner/internal/timeutil"
)

// Store is the slice of persistence the report assembler needs.
type Store interface {
	User(userID string) (*models.User, error)
	ActivePlan(userID string) (*models.Plan, error)
	CountBlocks(planID string) (int, error)
	TaskLogsForDateRange(userID, from, to string) ([]models.TaskLog, error)
	UpdateScoreSnapshot(userID string, snap models.DisciplineSnapshot) error
	RecentReflections(userID string, limit int) ([]models.DailyReflection, error)
}

// Report is the full discipline view handed to the presentation layer.
type Report struct {
	Today            ScoreBreakdown           `json:"today"`
	Feedback         Feedback                 `json:"feedback"`
	WeeklyAverage    int                      `json:"weeklyAverage"`
	BestDay          string                   `json:"bestDay"`
	DailyScores      []DayScore               `json:"dailyScores"`
	RecentReflection []models.DailyReflection `json:"recentReflections"`
}

// Service recomputes scores from stored logs and refreshes the user's cached
// snapshot as a side effect.
type Service struct {
	store Store
	clock clockwork.Clock
}

func NewService(store Store, clock clockwork.Clock) *Service {
	return &Service{store: store, clock: clock}
}

// Report scores today and the trailing week for the user. The denominator for
// every day in the range is the current active plan's block count (see
// DailyScore).
func (s *Service) Report(userID string) (*Report, error) {
	user, err := s.store.User(userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %s not found", userID)
	}

	now := s.clock.Now()
	today := timeutil.DateInZone(now, user.Timezone)
	weekAgo := timeutil.DateInZone(now.AddDate(0, 0, -7), user.Timezone)

	totalScheduled := 0
	plan, err := s.store.ActivePlan(userID)
	if err != nil {
		return nil, fmt.Errorf("load active plan: %w", err)
	}
	if plan != nil {
		if totalScheduled, err = s.store.CountBlocks(plan.ID); err != nil {
			return nil, fmt.Errorf("count blocks: %w", err)
		}
	}

	weekLogs, err := s.store.TaskLogsForDateRange(userID, weekAgo, today)
	if err != nil {
		return nil, fmt.Errorf("load week logs: %w", err)
	}

	byDate := map[string][]models.TaskLog{}
	for _, log := range weekLogs {
		byDate[log.Date] = append(byDate[log.Date], log)
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	daily := make([]DayScore, 0, len(dates))
	for _, d := range dates {
		daily = append(daily, DayScore{Date: d, Score: DailyScore(byDate[d], totalScheduled).Percentage})
	}

	todayBreakdown := DailyScore(byDate[today], totalScheduled)
	scores := make([]int, len(daily))
	for i, d := range daily {
		scores[i] = d.Score
	}
	avg := WeeklyAverage(scores)
	best := BestDay(daily)

	lastUpdated := now
	snap := models.DisciplineSnapshot{
		Today:         todayBreakdown.Percentage,
		WeeklyAverage: avg,
		BestDay:       best,
		LastUpdated:   &lastUpdated,
	}
	if err := s.store.UpdateScoreSnapshot(userID, snap); err != nil {
		return nil, fmt.Errorf("update score snapshot: %w", err)
	}

	reflections, err := s.store.RecentReflections(userID, 7)
	if err != nil {
		return nil, fmt.Errorf("load reflections: %w", err)
	}

	return &Report{
		Today:            todayBreakdown,
		Feedback:         ScoreFeedback(todayBreakdown.Percentage),
		WeeklyAverage:    avg,
		BestDay:          best,
		DailyScores:      daily,
		RecentReflection: reflections,
	}, nil
}

// Package discipline computes per-task points and aggregates daily/weekly
// scores from task logs.
//
// Point table:
//   - complete on time (within 30 min of block start): +10
//   - complete late: +5
//   - snooze once / twice / three or more: -2 / -5 / -10
//   - missed: -15
//   - daily max: 10 per scheduled task
package discipline

import (
	"fmt"
	"math"
	"time"

	"dayplanner/internal/models"
)

const (
	PointsOnTime = 10
	PointsLate   = 5
	PointsMissed = -15

	// GraceMinutes past block start still counts as on time.
	GraceMinutes = 30

	// basePerTask is the denominator weight per scheduled block.
	basePerTask = 10
)

// ScoreBreakdown is one day's aggregated score.
type ScoreBreakdown struct {
	TotalPoints       int `json:"totalPoints"`
	MaxPossiblePoints int `json:"maxPossiblePoints"`
	Percentage        int `json:"percentage"`
	CompletedOnTime   int `json:"completedOnTime"`
	CompletedLate     int `json:"completedLate"`
	Snoozed           int `json:"snoozed"`
	Missed            int `json:"missed"`
	TotalSnoozes      int `json:"totalSnoozes"`
}

// SnoozePenalty returns the deduction for a task snoozed count times.
func SnoozePenalty(count int) int {
	switch {
	case count <= 0:
		return 0
	case count == 1:
		return 2
	case count == 2:
		return 5
	default:
		return 10
	}
}

// TaskPoints scores a single task at the moment it reaches status.
// Snooze penalties stack with completion credit; a task still pending or
// snoozed earns nothing until it resolves (the penalty is applied at
// aggregation time instead).
func TaskPoints(status models.TaskStatus, snoozeCount int, onTime bool) int {
	switch status {
	case models.StatusCompleted:
		if onTime {
			return PointsOnTime - SnoozePenalty(snoozeCount)
		}
		return PointsLate - SnoozePenalty(snoozeCount)
	case models.StatusMissed:
		return PointsMissed
	case models.StatusPending, models.StatusSnoozed:
		return 0
	}
	return 0
}

// DailyScore aggregates one day's logs against the number of scheduled
// blocks. totalScheduled is taken from the caller's current active plan, so
// editing the plan shifts the denominator for past days too; that matches the
// historical behavior and is deliberate.
func DailyScore(logs []models.TaskLog, totalScheduled int) ScoreBreakdown {
	var b ScoreBreakdown

	for _, log := range logs {
		b.TotalSnoozes += log.SnoozeCount

		switch log.Status {
		case models.StatusCompleted:
			// The completion-time context is gone here; the stored points
			// encode on-time vs late.
			if log.PointsEarned >= PointsOnTime {
				b.CompletedOnTime++
			} else {
				b.CompletedLate++
			}
			// Snoozes accrued before completion deduct again on top of the
			// stored points.
			b.TotalPoints += log.PointsEarned - SnoozePenalty(log.SnoozeCount)
		case models.StatusMissed:
			b.Missed++
			b.TotalPoints += PointsMissed
		case models.StatusSnoozed:
			b.Snoozed++
			b.TotalPoints -= SnoozePenalty(log.SnoozeCount)
		case models.StatusPending:
			// no contribution
		}
	}

	b.MaxPossiblePoints = totalScheduled * basePerTask

	raw := 0.0
	if b.MaxPossiblePoints > 0 {
		raw = float64(b.TotalPoints) / float64(b.MaxPossiblePoints) * 100
	}
	b.Percentage = clamp(int(math.Round(raw)), 0, 100)

	// Negative day totals display as zero; the percentage above already used
	// the unclamped value.
	if b.TotalPoints < 0 {
		b.TotalPoints = 0
	}
	return b
}

// WeeklyAverage is the rounded mean of daily percentages, 0 when empty.
func WeeklyAverage(scores []int) int {
	if len(scores) == 0 {
		return 0
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	return int(math.Round(float64(sum) / float64(len(scores))))
}

// DayScore pairs a calendar date with its daily percentage.
type DayScore struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Score int    `json:"score"`
}

var weekdayNames = [7]string{
	"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday",
}

// BestDay buckets scores by weekday and returns the name with the highest
// mean. Ties go to the earlier weekday in Sunday..Saturday order; empty input
// yields "".
func BestDay(daily []DayScore) string {
	var total, count [7]int
	for _, d := range daily {
		t, err := time.Parse("2006-01-02", d.Date)
		if err != nil {
			continue
		}
		wd := int(t.Weekday())
		total[wd] += d.Score
		count[wd]++
	}

	best := ""
	bestAvg := 0.0
	for wd := 0; wd < 7; wd++ {
		if count[wd] == 0 {
			continue
		}
		avg := float64(total[wd]) / float64(count[wd])
		if avg > bestAvg {
			bestAvg = avg
			best = weekdayNames[wd]
		}
	}
	return best
}

// Feedback is the presentational verdict for a score.
type Feedback struct {
	Emoji   string `json:"emoji"`
	Message string `json:"message"`
}

// ScoreFeedback maps a percentage onto the fixed six-band ladder.
func ScoreFeedback(score int) Feedback {
	switch {
	case score >= 90:
		return Feedback{"🔥", "On fire!"}
	case score >= 80:
		return Feedback{"💪", "Strong discipline!"}
	case score >= 70:
		return Feedback{"👍", "Good effort"}
	case score >= 50:
		return Feedback{"😐", "Room to improve"}
	case score >= 30:
		return Feedback{"⚠️", "Needs work"}
	default:
		return Feedback{"😬", "Let's do better"}
	}
}

// SnoozeFeedback nags proportionally to the snooze count; "" when unsnoozed.
func SnoozeFeedback(count int) string {
	switch {
	case count <= 0:
		return ""
	case count == 1:
		return "You snoozed this task once"
	case count == 2:
		return "You snoozed this task twice 👀"
	default:
		return fmt.Sprintf("You snoozed this task %d times 👀", count)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

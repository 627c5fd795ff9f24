// Package scheduler wires the dispatch coordinator onto a one-minute tick.
package scheduler

import (
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"dayplanner/internal/dispatch"
)

// Start registers the minute job and launches the scheduler. A tick that
// overruns is not cancelled; the duplicate-log guard makes overlap safe.
func Start(c *dispatch.Coordinator, clock clockwork.Clock, log *zap.SugaredLogger) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithClock(clock))
	if err != nil {
		return nil, err
	}

	_, err = s.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			stats, err := c.Tick()
			if err != nil {
				log.Errorw("dispatch tick failed", "err", err)
				return
			}
			if stats.Processed > 0 || stats.ReflectionsSent > 0 || stats.Missed > 0 {
				log.Infow("dispatch tick",
					"users", stats.UsersChecked,
					"processed", stats.Processed,
					"sent", stats.RemindersSent,
					"missed", stats.Missed,
					"reflections", stats.ReflectionsSent)
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	s.Start()
	return s, nil
}

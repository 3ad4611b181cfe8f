package services

import (
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// StartMaintenanceScheduler runs the recurring housekeeping jobs: an hourly
// snapshot flush as a safety net behind the per-mutation writes, and a daily
// activity summary shortly after midnight.
func StartMaintenanceScheduler(progress *ProgressService, log *zap.SugaredLogger) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(func() {
			progress.Flush()
		}),
	)

	_, _ = sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 5, 0))),
		gocron.NewTask(func() {
			log.Infow("daily activity summary",
				"streak", progress.CurrentStreak(),
				"total_xp", progress.TotalXP(),
				"level", progress.UserLevel().Name,
			)
		}),
	)

	sched.Start()
	return sched, nil
}

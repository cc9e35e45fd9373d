package botkit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/edgard/botkit/internal/logger"
)

type job struct {
	name string
	cron string
	fn   func(ctx context.Context, b *Bot) error
}

// startScheduler creates and starts a gocron scheduler for the bot's
// registered jobs. It returns nil when no jobs are registered.
func (b *Bot) startScheduler(ctx context.Context) (gocron.Scheduler, error) {
	if len(b.jobs) == 0 {
		return nil, nil
	}

	sched, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
		gocron.WithLogger(logger.Gocron(b.log)),
	)
	if err != nil {
		return nil, fmt.Errorf("creating scheduler: %w", err)
	}

	for _, j := range b.jobs {
		_, err := sched.NewJob(
			gocron.CronJob(j.cron, false),
			gocron.NewTask(func() {
				if err := j.fn(ctx, b); err != nil {
					b.log.Error("scheduled job failed", "job", j.name, "error", err)
				}
			}),
			gocron.WithName(j.name),
		)
		if err != nil {
			if serr := sched.Shutdown(); serr != nil {
				b.log.Error("scheduler shutdown failed", "error", serr)
			}
			return nil, fmt.Errorf("scheduling job %q: %w", j.name, err)
		}
		b.log.Info("job scheduled", "job", j.name, "cron", j.cron)
	}

	sched.Start()
	return sched, nil
}

package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
)

// Scheduler runs a RefreshJob on a fixed interval.
type Scheduler struct {
	cron *gocron.Scheduler
	job  *RefreshJob
}

// NewScheduler schedules job every interval. The first run happens as soon
// as the scheduler starts.
func NewScheduler(ctx context.Context, job *RefreshJob, interval time.Duration) (*Scheduler, error) {
	cron := gocron.NewScheduler(time.UTC)
	cron.SingletonModeAll()

	_, err := cron.Every(interval).Do(func() {
		_ = job.Run(ctx) //nolint:errcheck // logged and surfaced by the job
	})
	if err != nil {
		return nil, fmt.Errorf("schedule refresh: %w", err)
	}
	return &Scheduler{cron: cron, job: job}, nil
}

// Start runs the schedule in the background.
func (s *Scheduler) Start() {
	s.cron.StartAsync()
}

// Stop halts the schedule. A run in progress finishes.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// Running reports whether the schedule is active.
func (s *Scheduler) Running() bool {
	return s.cron.IsRunning()
}

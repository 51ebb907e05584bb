package watch

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Scheduler wraps gocron for periodic full rebuilds.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// NewScheduler creates a new scheduler instance.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Scheduler{scheduler: s}, nil
}

// ScheduleRebuild registers fn to run per spec, which is either a Go
// duration ("30m") or a cron expression ("0 3 * * *"). It returns the
// job ID for later management.
func (s *Scheduler) ScheduleRebuild(spec string, fn func()) (string, error) {
	def, err := jobDefinition(spec)
	if err != nil {
		return "", err
	}
	job, err := s.scheduler.NewJob(
		def,
		gocron.NewTask(fn),
		gocron.WithName("scheduled-rebuild"),
	)
	if err != nil {
		return "", fmt.Errorf("create rebuild job: %w", err)
	}
	return job.ID().String(), nil
}

func jobDefinition(spec string) (gocron.JobDefinition, error) {
	if d, err := time.ParseDuration(spec); err == nil {
		if d <= 0 {
			return nil, fmt.Errorf("schedule interval must be positive: %q", spec)
		}
		return gocron.DurationJob(d), nil
	}
	fields := len(strings.Fields(spec))
	if fields != 5 && fields != 6 {
		return nil, fmt.Errorf("schedule is neither a duration nor a cron expression: %q", spec)
	}
	return gocron.CronJob(spec, fields == 6), nil
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	slog.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	slog.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

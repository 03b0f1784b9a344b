// internal/service/scheduler.go
package service

import (
	"context"
	"fmt"
	"time"

	"leave-status-bot/internal/models"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler is the timer trigger: one pass at start, then one per cron tick.
// Pass failures are logged by the runner and never returned.
type Scheduler struct {
	cron    *cron.Cron
	trigger Trigger
	timeout time.Duration
	logger  *logrus.Entry
}

func NewScheduler(spec string, location *time.Location, trigger Trigger, passTimeout time.Duration) (*Scheduler, error) {
	if location == nil {
		location = time.Local
	}
	cronLogger := cron.PrintfLogger(logrus.WithField("component", "cron"))

	c := cron.New(
		cron.WithLocation(location),
		cron.WithChain(cron.Recover(cronLogger)),
	)

	s := &Scheduler{
		cron:    c,
		trigger: trigger,
		timeout: passTimeout,
		logger:  logrus.WithField("component", "scheduler"),
	}

	if _, err := c.AddFunc(spec, func() { s.runPass(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start runs an immediate pass in the background and starts the schedule.
func (s *Scheduler) Start(ctx context.Context) {
	go s.runPass(ctx)
	s.cron.Start()
	s.logger.WithField("next", s.Next().Format(time.RFC3339)).Info("Scheduled sync started")
}

// Stop stops scheduling and returns a context done when running passes finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) runPass(ctx context.Context) {
	defer RecoverAndLog(s.logger, "Scheduled sync")
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	// the runner already logs and journals failures
	_, _ = s.trigger.Run(ctx, models.TriggerTimer)
}

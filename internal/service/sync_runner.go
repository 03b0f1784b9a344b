// internal/service/sync_runner.go
package service

import (
	"context"
	"fmt"
	"time"

	"leave-status-bot/internal/models"
	"leave-status-bot/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Pass is one reconciliation pass; *Engine implements it.
type Pass interface {
	Run(ctx context.Context) (models.PassResult, error)
}

// Trigger is what every trigger adapter invokes.
type Trigger interface {
	Run(ctx context.Context, trigger string) (models.PassResult, error)
}

// Notifier receives alerts about passes nobody is waiting on.
type Notifier interface {
	NotifyAdmin(text string) error
}

// journalSize is how many sync runs the journal keeps.
const journalSize = 500

// SyncRunner wraps the engine for trigger adapters: it tags each pass with a
// run id, logs the outcome, journals it and alerts on unattended failures.
type SyncRunner struct {
	pass     Pass
	journal  repository.SyncRunRepository
	notifier Notifier
	logger   *logrus.Entry
	now      func() time.Time
}

func NewSyncRunner(pass Pass, journal repository.SyncRunRepository, notifier Notifier) *SyncRunner {
	return &SyncRunner{
		pass:     pass,
		journal:  journal,
		notifier: notifier,
		logger:   logrus.WithField("component", "sync"),
		now:      time.Now,
	}
}

func (s *SyncRunner) Run(ctx context.Context, trigger string) (models.PassResult, error) {
	runID := uuid.NewString()
	log := s.logger.WithFields(logrus.Fields{
		"run_id":  runID,
		"trigger": trigger,
	})
	started := s.now()

	log.Info("Starting reconciliation pass")
	result, err := s.pass.Run(WithLogger(ctx, log))
	finished := s.now()

	run := &models.SyncRun{
		RunID:      runID,
		Trigger:    trigger,
		StartedAt:  started,
		FinishedAt: finished,
		Updated:    result.Updated,
		Cleared:    result.Cleared,
		Errors:     result.Errors,
	}

	fields := logrus.Fields{
		"updated":  result.Updated,
		"cleared":  result.Cleared,
		"errors":   result.Errors,
		"duration": finished.Sub(started).Round(time.Millisecond).String(),
	}
	if err != nil {
		run.Failure = err.Error()
		log.WithFields(fields).WithError(err).Error("Reconciliation pass failed")
		if trigger == models.TriggerTimer || trigger == models.TriggerWebhook {
			s.alert(log, fmt.Sprintf("⚠️ Status sync (%s) failed: %s", trigger, err.Error()))
		}
	} else {
		log.WithFields(fields).Info("Reconciliation pass complete")
	}

	s.record(log, run)
	return result, err
}

// History returns the newest journal entries.
func (s *SyncRunner) History(limit int) ([]models.SyncRun, error) {
	if s.journal == nil {
		return nil, nil
	}
	return s.journal.GetRecent(limit)
}

// Lookup returns the journaled run with the given id, or nil if unknown.
func (s *SyncRunner) Lookup(runID string) (*models.SyncRun, error) {
	if s.journal == nil {
		return nil, nil
	}
	return s.journal.GetByRunID(runID)
}

// LastFailure returns the newest failed run, if any.
func (s *SyncRunner) LastFailure() (*models.SyncRun, error) {
	if s.journal == nil {
		return nil, nil
	}
	return s.journal.GetLastFailed()
}

func (s *SyncRunner) record(log *logrus.Entry, run *models.SyncRun) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Create(run); err != nil {
		log.WithError(err).Warn("Failed to journal sync run")
		return
	}
	if err := s.journal.DeleteOlderThan(journalSize); err != nil {
		log.WithError(err).Warn("Failed to prune sync journal")
	}
}

func (s *SyncRunner) alert(log *logrus.Entry, text string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyAdmin(text); err != nil {
		log.WithError(err).Warn("Failed to notify operator")
	}
}

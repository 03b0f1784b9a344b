package repository

import (
	"testing"
	"time"

	"leave-status-bot/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepo(t *testing.T) SyncRunRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	// each pooled connection would get its own empty in-memory database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	repo, err := NewGormSyncRunRepository(db)
	if err != nil {
		t.Fatalf("repo: %v", err)
	}
	return repo
}

func TestSyncRunRepository_CreateAndRecent(t *testing.T) {
	repo := newTestRepo(t)
	base := time.Date(2026, 11, 10, 9, 0, 0, 0, time.UTC)

	for i, runID := range []string{"r1", "r2", "r3"} {
		run := &models.SyncRun{
			RunID:     runID,
			Trigger:   models.TriggerTimer,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
			Updated:   i,
		}
		if err := repo.Create(run); err != nil {
			t.Fatalf("create %s: %v", runID, err)
		}
	}

	runs, err := repo.GetRecent(2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].RunID != "r3" || runs[1].RunID != "r2" {
		t.Fatalf("unexpected order: %s, %s", runs[0].RunID, runs[1].RunID)
	}

	got, err := repo.GetByRunID("r1")
	if err != nil || got == nil {
		t.Fatalf("get r1: %v %v", got, err)
	}
	missing, err := repo.GetByRunID("nope")
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing run, got %v %v", missing, err)
	}
}

func TestSyncRunRepository_LastFailedAndPrune(t *testing.T) {
	repo := newTestRepo(t)
	base := time.Date(2026, 11, 10, 9, 0, 0, 0, time.UTC)

	runs := []models.SyncRun{
		{RunID: "a", Trigger: models.TriggerTimer, StartedAt: base, Failure: "peopleforce down"},
		{RunID: "b", Trigger: models.TriggerWebhook, StartedAt: base.Add(time.Minute)},
		{RunID: "c", Trigger: models.TriggerManual, StartedAt: base.Add(2 * time.Minute)},
	}
	for i := range runs {
		if err := repo.Create(&runs[i]); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	failed, err := repo.GetLastFailed()
	if err != nil {
		t.Fatalf("last failed: %v", err)
	}
	if failed == nil || failed.RunID != "a" {
		t.Fatalf("expected run a, got %+v", failed)
	}

	if err := repo.DeleteOlderThan(2); err != nil {
		t.Fatalf("prune: %v", err)
	}
	remaining, err := repo.GetRecent(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("expected 2 rows after prune, got %d", len(remaining))
	}
	if failed, _ := repo.GetLastFailed(); failed != nil {
		t.Fatalf("expected failed run to be pruned, got %+v", failed)
	}
}

// internal/repository/sync_run_repo.go
package repository

import (
	"leave-status-bot/internal/models"

	"gorm.io/gorm"
)

type SyncRunRepository interface {
	Create(run *models.SyncRun) error
	GetByRunID(runID string) (*models.SyncRun, error)
	GetRecent(limit int) ([]models.SyncRun, error)
	GetLastFailed() (*models.SyncRun, error)
	DeleteOlderThan(keep int) error
}

type GormSyncRunRepository struct {
	db *gorm.DB
}

func NewGormSyncRunRepository(db *gorm.DB) (SyncRunRepository, error) {
	if err := db.AutoMigrate(&models.SyncRun{}); err != nil {
		return nil, err
	}
	return &GormSyncRunRepository{db: db}, nil
}

func (r *GormSyncRunRepository) Create(run *models.SyncRun) error {
	return r.db.Create(run).Error
}

func (r *GormSyncRunRepository) GetByRunID(runID string) (*models.SyncRun, error) {
	var run models.SyncRun
	err := r.db.Where("run_id = ?", runID).First(&run).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *GormSyncRunRepository) GetRecent(limit int) ([]models.SyncRun, error) {
	if limit <= 0 {
		limit = 10
	}
	var runs []models.SyncRun
	err := r.db.Order("started_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}

func (r *GormSyncRunRepository) GetLastFailed() (*models.SyncRun, error) {
	var run models.SyncRun
	err := r.db.Where("failure <> ''").
		Order("started_at DESC").
		First(&run).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// DeleteOlderThan keeps the newest keep rows and drops the rest.
func (r *GormSyncRunRepository) DeleteOlderThan(keep int) error {
	if keep <= 0 {
		return nil
	}
	keepIDs := r.db.Model(&models.SyncRun{}).
		Select("id").
		Order("started_at DESC").
		Order("id DESC").
		Limit(keep)
	return r.db.Where("id NOT IN (?)", keepIDs).Delete(&models.SyncRun{}).Error
}

// internal/models/sync_run.go
package models

import "time"

// SyncRun is a journal row for one reconciliation pass.
type SyncRun struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	RunID      string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"run_id"`
	Trigger    string    `gorm:"type:varchar(20);not null;index" json:"trigger"`
	StartedAt  time.Time `gorm:"not null;index" json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Updated    int       `json:"updated"`
	Cleared    int       `json:"cleared"`
	Errors     int       `json:"errors"`
	Failure    string    `gorm:"type:text" json:"failure"`
	CreatedAt  time.Time `json:"created_at"`
}

func (SyncRun) TableName() string {
	return "sync_runs"
}

const (
	TriggerTimer    = "timer"
	TriggerWebhook  = "webhook"
	TriggerManual   = "manual"
	TriggerOperator = "operator"
	TriggerCLI      = "cli"
)

// Succeeded reports whether the pass completed without a fatal error.
func (r SyncRun) Succeeded() bool {
	return r.Failure == ""
}

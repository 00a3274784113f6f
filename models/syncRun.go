package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/fieldsales_backend/config"
	"github.com/mmdatafocus/fieldsales_backend/utils"
)

// SyncCounts is what one kind's pass did to the store.
type SyncCounts struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Deleted  int `json:"deleted"`
	Skipped  int `json:"skipped"`
	Degraded int `json:"degraded"`
}

func (c *SyncCounts) Add(o SyncCounts) {
	c.Inserted += o.Inserted
	c.Updated += o.Updated
	c.Deleted += o.Deleted
	c.Skipped += o.Skipped
	c.Degraded += o.Degraded
}

// SyncRun records one import or export of one kind. Rows sharing a RunID belong to one pass.
type SyncRun struct {
	ID           int           `gorm:"primaryKey" json:"id"`
	RunID        string        `gorm:"index;not null" json:"run_id"`
	Kind         string        `gorm:"not null" json:"kind"`
	Status       SyncRunStatus `gorm:"not null" json:"status"`
	Inserted     int           `gorm:"not null" json:"inserted"`
	Updated      int           `gorm:"not null" json:"updated"`
	Deleted      int           `gorm:"not null" json:"deleted"`
	Skipped      int           `gorm:"not null" json:"skipped"`
	Degraded     int           `gorm:"not null" json:"degraded"`
	ErrorMessage string        `gorm:"column:error;not null" json:"error"`
	StartedAt    *time.Time    `json:"started_at"`
	FinishedAt   *time.Time    `json:"finished_at"`
}

func StartSyncRun(ctx context.Context, runID string, kind string) (*SyncRun, error) {
	now := time.Now()
	run := SyncRun{
		RunID:     runID,
		Kind:      kind,
		Status:    SyncRunStatusRunning,
		StartedAt: &now,
	}
	if err := config.GetDB().WithContext(ctx).Create(&run).Error; err != nil {
		return nil, utils.StorageError("start sync run", err)
	}
	return &run, nil
}

// FinishSyncRun stores the outcome of run. A nil cause means success.
func FinishSyncRun(ctx context.Context, run *SyncRun, counts SyncCounts, cause error) error {
	now := time.Now()
	run.FinishedAt = &now
	run.Inserted, run.Updated, run.Deleted = counts.Inserted, counts.Updated, counts.Deleted
	run.Skipped, run.Degraded = counts.Skipped, counts.Degraded
	run.Status = SyncRunStatusSuccess
	run.ErrorMessage = ""
	if cause != nil {
		run.Status = SyncRunStatusFailed
		run.ErrorMessage = cause.Error()
	}
	err := config.GetDB().WithContext(ctx).Model(&SyncRun{}).Where("id = ?", run.ID).Updates(map[string]interface{}{
		"Status":       run.Status,
		"Inserted":     run.Inserted,
		"Updated":      run.Updated,
		"Deleted":      run.Deleted,
		"Skipped":      run.Skipped,
		"Degraded":     run.Degraded,
		"ErrorMessage": run.ErrorMessage,
		"FinishedAt":   run.FinishedAt,
	}).Error
	if err != nil {
		return utils.StorageError("finish sync run", err)
	}
	return nil
}

// ListSyncRuns returns the newest runs first.
func ListSyncRuns(ctx context.Context, limit int) ([]*SyncRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var results []*SyncRun
	if err := config.GetDB().WithContext(ctx).Order("id DESC").Limit(limit).Find(&results).Error; err != nil {
		return nil, utils.StorageError("list sync runs", err)
	}
	return results, nil
}

func ListSyncRunsByRunID(ctx context.Context, runID string) ([]*SyncRun, error) {
	var results []*SyncRun
	if err := config.GetDB().WithContext(ctx).Where("run_id = ?", runID).Order("id").Find(&results).Error; err != nil {
		return nil, utils.StorageError("list sync runs", err)
	}
	return results, nil
}

package database

import (
	"context"

	"gorm.io/gorm"

	"sisbridge-backend/models"
)

// RunLog is the audit trail of engine invocations.
type RunLog struct {
	db *gorm.DB
}

func NewRunLog(db *gorm.DB) *RunLog {
	return &RunLog{db: db}
}

func (l *RunLog) Record(ctx context.Context, run *models.SyncRun) error {
	return l.db.WithContext(ctx).Create(run).Error
}

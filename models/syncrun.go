package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Sync run kinds.
const (
	RunKindCharge   = "charge"
	RunKindCustomer = "customer"
	RunKindRange    = "range"
)

// SyncRun is the audit record of one engine invocation: what was asked for,
// the created/skipped/failed counters and the per-charge error list.
type SyncRun struct {
	ID        string         `json:"id" gorm:"primaryKey;size:36"`
	Kind      string         `json:"kind" gorm:"size:20;not null;index"`
	Parameter string         `json:"parameter"`
	Created   int            `json:"created"`
	Skipped   int            `json:"skipped"`
	Failed    int            `json:"failed"`
	Errors    datatypes.JSON `json:"errors" gorm:"type:jsonb"`

	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
}

func (r *SyncRun) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return
}

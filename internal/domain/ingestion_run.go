package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Ingestion run lifecycle.
const (
	RunQueued    = "queued"
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// IngestionRun tracks one spreadsheet ingestion job. Detail carries the
// per-run counters (or the error text) as JSON.
type IngestionRun struct {
	RunID     uuid.UUID      `gorm:"column:run_id;type:uuid;primaryKey" json:"run_id"`
	Kind      string         `gorm:"column:kind;type:varchar(20);not null" json:"kind"`
	Status    string         `gorm:"column:status;type:varchar(20);not null" json:"status"`
	Detail    datatypes.JSON `gorm:"column:detail" json:"detail"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

func (IngestionRun) TableName() string {
	return "ingestion_runs"
}

// BeforeCreate ensures run_id is set for DBs without default uuid.
func (r *IngestionRun) BeforeCreate(tx *gorm.DB) error {
	if r.RunID == uuid.Nil {
		r.RunID = uuid.New()
	}
	return nil
}

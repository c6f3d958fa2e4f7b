package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// JobEvent is one row of a job's append-only audit trail. Rows are only ever
// inserted; the dashboard renders them as the job timeline.
type JobEvent struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	JobID     uuid.UUID      `json:"job_id" gorm:"type:uuid;not null;index"`
	Type      string         `json:"type" gorm:"not null;index"`
	Message   string         `json:"message" gorm:"type:text"`
	Metadata  datatypes.JSON `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt time.Time      `json:"created_at" gorm:"not null;index"`
}

func (JobEvent) TableName() string { return "job_events" }

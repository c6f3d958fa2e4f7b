package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	JobKindTraining  = "training"
	JobKindStorybook = "storybook"
)

// Job tracks one long-running run on the external model API: either a
// fine-tuning (training) run for a user's character model, or a storybook
// page-generation run for a book. Both kinds share the same lifecycle.
type Job struct {
	ID            uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Kind          string         `json:"kind" gorm:"not null;index"`
	Status        string         `json:"status" gorm:"not null;index"`
	Progress      int            `json:"progress" gorm:"not null;default:0"`
	Attempts      int            `json:"attempts" gorm:"not null;default:0"`
	ExternalJobID string         `json:"external_job_id" gorm:"not null;uniqueIndex"`
	Error         string         `json:"error,omitempty" gorm:"type:text"`
	UserID        uuid.UUID      `json:"user_id" gorm:"type:uuid;not null;index"`
	BookID        *uuid.UUID     `json:"book_id,omitempty" gorm:"type:uuid;index"`
	Payload       datatypes.JSON `json:"payload" gorm:"type:jsonb"`
	Output        datatypes.JSON `json:"output,omitempty" gorm:"type:jsonb"`
	StartedAt     *time.Time     `json:"started_at,omitempty"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at" gorm:"not null;index"`
	UpdatedAt     time.Time      `json:"updated_at" gorm:"not null"`
}

func (Job) TableName() string { return "jobs" }

package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is a storybook subject (the child the book is personalized for).
// TrainedModelID points at the provider-side fine-tuned model version once
// a training job for this user succeeds.
type User struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name           string    `json:"name" binding:"required" gorm:"not null"`
	Email          string    `json:"email" gorm:"index"`
	TrainedModelID string    `json:"trained_model_id,omitempty"`
	CreatedAt      time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"not null"`
}

func (User) TableName() string { return "users" }

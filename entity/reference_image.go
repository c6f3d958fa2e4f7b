package entity

import (
	"time"

	"github.com/google/uuid"
)

// ReferenceImage is the metadata row for one uploaded reference photo stored
// in MinIO. ObjectKey is the location inside the photo bucket.
type ReferenceImage struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	ObjectKey   string    `json:"object_key" gorm:"not null;uniqueIndex"`
	FileName    string    `json:"file_name" gorm:"not null"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at" gorm:"not null"`
}

func (ReferenceImage) TableName() string { return "reference_images" }

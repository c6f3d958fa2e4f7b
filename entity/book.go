package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Book struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	Title      string    `json:"title" binding:"required" gorm:"not null"`
	Dedication string    `json:"dedication" gorm:"type:text"`
	Status     string    `json:"status" gorm:"not null;index"`
	CreatedAt  time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"not null"`
}

func (Book) TableName() string { return "books" }

// Page holds the prompt and chosen artwork for one storybook page. Candidate
// asset keys accumulate as generation jobs complete; SelectedAsset is the
// operator's pick for the final PDF.
type Page struct {
	ID            uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	BookID        uuid.UUID      `json:"book_id" gorm:"type:uuid;not null;index"`
	PageNumber    int            `json:"page_number" gorm:"not null"`
	Text          string         `json:"text" gorm:"type:text"`
	Prompt        string         `json:"prompt" gorm:"type:text"`
	Candidates    datatypes.JSON `json:"candidates,omitempty" gorm:"type:jsonb"`
	SelectedAsset string         `json:"selected_asset,omitempty"`
	CreatedAt     time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt     time.Time      `json:"updated_at" gorm:"not null"`
}

func (Page) TableName() string { return "pages" }

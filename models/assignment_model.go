package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Assignment struct {
	ID                   uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	TeachingAssignmentID uuid.UUID `gorm:"type:uuid;not null" json:"teaching_assignment_id"`
	Title                string    `gorm:"size:255;not null" json:"title"`
	Description          string    `gorm:"type:text" json:"description"`
	DueDate              time.Time `gorm:"not null" json:"due_date"`
	MaxScore             int       `gorm:"not null;default:100" json:"max_score"`
	IsPublished          bool      `gorm:"default:false" json:"is_published"`

	TeachingAssignment TeachingAssignment `gorm:"foreignkey:TeachingAssignmentID" json:"teaching_assignment,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Assignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const DefaultMaxViolations = 3

type Exam struct {
	ID                   uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	TeachingAssignmentID uuid.UUID `gorm:"type:uuid;not null" json:"teaching_assignment_id"`
	Title                string    `gorm:"size:255;not null" json:"title"`
	Description          string    `gorm:"type:text" json:"description"`
	StartTime            time.Time `gorm:"not null" json:"start_time"`
	DurationMinutes      int       `gorm:"not null" json:"duration_minutes"`
	IsRandomized         bool      `gorm:"default:false" json:"is_randomized"`
	IsActive             bool      `gorm:"default:false" json:"is_active"`
	MaxViolations        int       `gorm:"not null;default:3" json:"max_violations"`

	TeachingAssignment TeachingAssignment `gorm:"foreignkey:TeachingAssignmentID" json:"teaching_assignment,omitempty"`
	Questions          []ExamQuestion     `gorm:"foreignkey:ExamID" json:"questions,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (e *Exam) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

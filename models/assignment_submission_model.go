package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AssignmentSubmission struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	AssignmentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_assignment_student" json:"assignment_id"`
	StudentID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_assignment_student" json:"student_id"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	SubmittedAt  time.Time `gorm:"not null" json:"submitted_at"`
	Score        *int      `json:"score"`
	Feedback     *string   `gorm:"type:text" json:"feedback"`

	Assignment Assignment `gorm:"foreignkey:AssignmentID" json:"-"`
	Student    User       `gorm:"foreignkey:StudentID" json:"student,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *AssignmentSubmission) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

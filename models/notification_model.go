package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	NotificationExamSubmitted       = "exam_submitted"
	NotificationExamForcedSubmit    = "exam_forced_submit"
	NotificationAssignmentSubmitted = "assignment_submitted"
	NotificationAssignmentGraded    = "assignment_graded"
)

type Notification struct {
	ID      uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID  uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Kind    string    `gorm:"size:50;not null" json:"kind"`
	Title   string    `gorm:"size:255;not null" json:"title"`
	Message string    `gorm:"type:text" json:"message"`
	Link    string    `gorm:"size:255" json:"link"`
	IsRead  bool      `gorm:"default:false" json:"is_read"`

	CreatedAt time.Time `json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

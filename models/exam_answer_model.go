package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ExamAnswer struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	AttemptID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_attempt_question" json:"attempt_id"`
	QuestionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_attempt_question" json:"question_id"`
	AnswerText string    `gorm:"type:text" json:"answer_text"`

	// Both stay nil for essay answers until the teacher grades them.
	IsCorrect    *bool `json:"is_correct"`
	PointsEarned *int  `json:"points_earned"`

	Attempt  ExamAttempt  `gorm:"foreignkey:AttemptID" json:"-"`
	Question ExamQuestion `gorm:"foreignkey:QuestionID" json:"question,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (e *ExamAnswer) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

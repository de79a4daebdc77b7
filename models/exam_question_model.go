package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	QuestionTypeMultipleChoice = "multiple_choice"
	QuestionTypeEssay          = "essay"
)

type ExamQuestion struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ExamID        uuid.UUID `gorm:"type:uuid;not null;index" json:"exam_id"`
	QuestionText  string    `gorm:"type:text;not null" json:"question_text"`
	QuestionType  string    `gorm:"size:50;not null;default:'multiple_choice'" json:"question_type"`
	Options       []string  `gorm:"serializer:json" json:"options"`
	CorrectAnswer string    `gorm:"type:text" json:"correct_answer"`
	Points        int       `gorm:"not null;default:1" json:"points"`
	OrderIndex    int       `gorm:"not null;default:0" json:"order_index"`
	ImageURL      *string   `gorm:"size:255" json:"image_url"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (e *ExamQuestion) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

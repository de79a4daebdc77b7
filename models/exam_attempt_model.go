package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ViolationEntry struct {
	Type string    `json:"type"`
	At   time.Time `json:"at"`
}

// ViolationLog is stored as a JSON text column. It implements Valuer and
// Scanner itself so single-column updates marshal the same way inserts do.
type ViolationLog []ViolationEntry

func (v ViolationLog) Value() (driver.Value, error) {
	if v == nil {
		v = ViolationLog{}
	}
	return json.Marshal(v)
}

func (v *ViolationLog) Scan(src interface{}) error {
	switch data := src.(type) {
	case nil:
		*v = nil
		return nil
	case []byte:
		return json.Unmarshal(data, v)
	case string:
		return json.Unmarshal([]byte(data), v)
	}
	return fmt.Errorf("unsupported violations column type %T", src)
}

type ExamAttempt struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ExamID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_exam_student" json:"exam_id"`
	StudentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_exam_student" json:"student_id"`

	// Frozen at start so later question edits never reshape a live attempt.
	QuestionOrder []uuid.UUID `gorm:"serializer:json" json:"question_order"`

	StartedAt   time.Time  `gorm:"not null" json:"started_at"`
	SubmittedAt *time.Time `json:"submitted_at"`
	IsSubmitted bool       `gorm:"not null;default:false" json:"is_submitted"`
	TotalScore  int        `gorm:"not null;default:0" json:"total_score"`
	MaxScore    int        `gorm:"not null;default:0" json:"max_score"`

	ViolationCount int          `gorm:"not null;default:0" json:"violation_count"`
	Violations     ViolationLog `gorm:"type:text" json:"violations"`

	Exam    Exam `gorm:"foreignkey:ExamID" json:"exam,omitempty"`
	Student User `gorm:"foreignkey:StudentID" json:"student,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (e *ExamAttempt) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

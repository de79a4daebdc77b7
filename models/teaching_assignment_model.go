package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TeachingAssignment struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	TeacherID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_teaching_assignment" json:"teacher_id"`
	ClassID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_teaching_assignment" json:"class_id"`
	SubjectID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_teaching_assignment" json:"subject_id"`
	AcademicYearID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_teaching_assignment" json:"academic_year_id"`

	Teacher      User         `gorm:"foreignkey:TeacherID" json:"teacher,omitempty"`
	Class        Class        `gorm:"foreignkey:ClassID" json:"class,omitempty"`
	Subject      Subject      `gorm:"foreignkey:SubjectID" json:"subject,omitempty"`
	AcademicYear AcademicYear `gorm:"foreignkey:AcademicYearID" json:"academic_year,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t *TeachingAssignment) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ClassEnrollment struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	StudentID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_class_enrollment" json:"student_id"`
	ClassID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_class_enrollment" json:"class_id"`
	AcademicYearID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_class_enrollment" json:"academic_year_id"`

	Student User  `gorm:"foreignkey:StudentID" json:"student,omitempty"`
	Class   Class `gorm:"foreignkey:ClassID" json:"class,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (c *ClassEnrollment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

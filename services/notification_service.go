package services

import (
	"log"

	"github.com/google/uuid"
	"github.com/somework06-coder/LMS-SEKOLAH-sub001/models"
	"gorm.io/gorm"
)

// Notify records an in-app notification. It is fire-and-forget: a failed
// insert is logged and must never fail the operation that triggered it.
func Notify(db *gorm.DB, userID uuid.UUID, kind, title, message, link string) {
	notification := models.Notification{
		ID:      uuid.New(),
		UserID:  userID,
		Kind:    kind,
		Title:   title,
		Message: message,
		Link:    link,
	}

	if err := db.Create(&notification).Error; err != nil {
		log.Printf("🔥 Failed to create %s notification for user %s: %v", kind, userID, err)
	}
}

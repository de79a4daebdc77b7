package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/somework06-coder/LMS-SEKOLAH-sub001/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotify_CreatesRow(t *testing.T) {
	db := setupTestDB(t)
	userID := uuid.New()

	Notify(db, userID, models.NotificationExamSubmitted, "Exam submission received", "A student submitted.", "/teacher/exams/x/submissions")

	var notifications []models.Notification
	require.NoError(t, db.Where("user_id = ?", userID).Find(&notifications).Error)
	require.Len(t, notifications, 1)
	assert.Equal(t, models.NotificationExamSubmitted, notifications[0].Kind)
	assert.False(t, notifications[0].IsRead)
}

func TestNotify_SwallowsStoreErrors(t *testing.T) {
	db := setupTestDB(t)
	// Dropping the table makes every insert fail; Notify must not panic
	// and must not surface the error.
	require.NoError(t, db.Migrator().DropTable(&models.Notification{}))

	assert.NotPanics(t, func() {
		Notify(db, uuid.New(), models.NotificationExamSubmitted, "t", "m", "l")
	})
}

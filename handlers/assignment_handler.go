package handlers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/somework06-coder/LMS-SEKOLAH-sub001/database"
	"github.com/somework06-coder/LMS-SEKOLAH-sub001/models"
	"github.com/somework06-coder/LMS-SEKOLAH-sub001/services"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AssignmentRequest struct {
	TeachingAssignmentID string    `json:"teaching_assignment_id" validate:"required,uuid4"`
	Title                string    `json:"title" validate:"required"`
	Description          string    `json:"description"`
	DueDate              time.Time `json:"due_date" validate:"required"`
	MaxScore             int       `json:"max_score" validate:"omitempty,gt=0"`
	IsPublished          bool      `json:"is_published"`
}

func CreateAssignment(c *fiber.Ctx) error {
	var req AssignmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	taID, _ := uuid.Parse(req.TeachingAssignmentID)
	var ta models.TeachingAssignment
	if err := database.DB.First(&ta, "id = ? AND teacher_id = ?", taID, authUserID(c)).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Teaching assignment not found"})
	}

	maxScore := req.MaxScore
	if maxScore == 0 {
		maxScore = 100
	}

	assignment := models.Assignment{
		TeachingAssignmentID: taID,
		Title:                req.Title,
		Description:          req.Description,
		DueDate:              req.DueDate,
		MaxScore:             maxScore,
		IsPublished:          req.IsPublished,
	}
	if err := database.DB.Create(&assignment).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create assignment"})
	}

	return c.Status(fiber.StatusCreated).JSON(assignment)
}

func ListMyAssignments(c *fiber.Ctx) error {
	var assignments []models.Assignment
	err := database.DB.
		Joins("JOIN teaching_assignments ON teaching_assignments.id = assignments.teaching_assignment_id").
		Where("teaching_assignments.teacher_id = ?", authUserID(c)).
		Preload("TeachingAssignment.Class").
		Order("assignments.due_date DESC").
		Find(&assignments).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}
	return c.JSON(assignments)
}

func UpdateAssignment(c *fiber.Ctx) error {
	assignment, ok := ownedAssignment(c)
	if !ok {
		return nil
	}

	var req AssignmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	assignment.Title = req.Title
	assignment.Description = req.Description
	assignment.DueDate = req.DueDate
	assignment.IsPublished = req.IsPublished
	if req.MaxScore > 0 {
		assignment.MaxScore = req.MaxScore
	}
	if err := database.DB.Save(assignment).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update assignment"})
	}
	return c.JSON(assignment)
}

func DeleteAssignment(c *fiber.Ctx) error {
	assignment, ok := ownedAssignment(c)
	if !ok {
		return nil
	}

	var count int64
	database.DB.Model(&models.AssignmentSubmission{}).Where("assignment_id = ?", assignment.ID).Count(&count)
	if count > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Assignment has submissions and cannot be deleted"})
	}

	if err := database.DB.Delete(assignment).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete assignment"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func ListAssignmentSubmissions(c *fiber.Ctx) error {
	assignment, ok := ownedAssignment(c)
	if !ok {
		return nil
	}

	var submissions []models.AssignmentSubmission
	err := database.DB.Preload("Student").
		Where("assignment_id = ?", assignment.ID).
		Order("submitted_at ASC").
		Find(&submissions).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}
	return c.JSON(submissions)
}

type GradeSubmissionRequest struct {
	Score    *int   `json:"score" validate:"required,gte=0"`
	Feedback string `json:"feedback"`
}

func GradeSubmission(c *fiber.Ctx) error {
	var submission models.AssignmentSubmission
	err := database.DB.Preload("Assignment.TeachingAssignment").
		First(&submission, "id = ?", c.Params("submissionId")).Error
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Submission not found"})
	}
	if submission.Assignment.TeachingAssignment.TeacherID != authUserID(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden: you do not own this assignment"})
	}

	var req GradeSubmissionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if *req.Score > submission.Assignment.MaxScore {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Score exceeds the assignment's max score"})
	}

	submission.Score = req.Score
	if req.Feedback != "" {
		submission.Feedback = &req.Feedback
	}
	if err := database.DB.Save(&submission).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to grade submission"})
	}

	services.Notify(database.DB, submission.StudentID, models.NotificationAssignmentGraded,
		"Assignment graded",
		fmt.Sprintf("Your submission for \"%s\" was graded: %d/%d.", submission.Assignment.Title, *req.Score, submission.Assignment.MaxScore),
		"/assignments/"+submission.AssignmentID.String())

	return c.JSON(submission)
}

func StudentListAssignments(c *fiber.Ctx) error {
	var assignments []models.Assignment
	err := database.DB.
		Joins("JOIN teaching_assignments ON teaching_assignments.id = assignments.teaching_assignment_id").
		Joins("JOIN class_enrollments ON class_enrollments.class_id = teaching_assignments.class_id").
		Where("class_enrollments.student_id = ? AND assignments.is_published = ?", authUserID(c), true).
		Preload("TeachingAssignment.Subject").
		Order("assignments.due_date ASC").
		Find(&assignments).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}
	return c.JSON(assignments)
}

type SubmitAssignmentRequest struct {
	Content string `json:"content" validate:"required"`
}

func SubmitAssignment(c *fiber.Ctx) error {
	assignmentID, err := uuid.Parse(c.Params("assignmentId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid assignment id"})
	}
	studentID := authUserID(c)

	var req SubmitAssignmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var assignment models.Assignment
	err = database.DB.Preload("TeachingAssignment").
		First(&assignment, "id = ? AND is_published = ?", assignmentID, true).Error
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Assignment not found"})
	}

	var enrollment models.ClassEnrollment
	err = database.DB.Where("student_id = ? AND class_id = ?", studentID, assignment.TeachingAssignment.ClassID).
		First(&enrollment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You are not enrolled in this assignment's class"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}

	if time.Now().After(assignment.DueDate) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Assignment deadline has passed"})
	}

	// Resubmitting before the deadline replaces the previous content,
	// but a graded submission is locked.
	var existing models.AssignmentSubmission
	err = database.DB.Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).First(&existing).Error
	if err == nil && existing.Score != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Submission has already been graded"})
	}

	submission := models.AssignmentSubmission{
		ID:           uuid.New(),
		AssignmentID: assignmentID,
		StudentID:    studentID,
		Content:      req.Content,
		SubmittedAt:  time.Now(),
	}
	err = database.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "assignment_id"}, {Name: "student_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "submitted_at", "updated_at"}),
	}).Create(&submission).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to submit assignment"})
	}

	services.Notify(database.DB, assignment.TeachingAssignment.TeacherID, models.NotificationAssignmentSubmitted,
		"Assignment submission received",
		fmt.Sprintf("A student submitted work for \"%s\".", assignment.Title),
		"/teacher/assignments/"+assignment.ID.String()+"/submissions")

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Assignment submitted"})
}

func ownedAssignment(c *fiber.Ctx) (*models.Assignment, bool) {
	var assignment models.Assignment
	err := database.DB.Preload("TeachingAssignment").
		First(&assignment, "id = ?", c.Params("assignmentId")).Error
	if err != nil {
		_ = c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Assignment not found"})
		return nil, false
	}
	if assignment.TeachingAssignment.TeacherID != authUserID(c) {
		_ = c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden: you do not own this assignment"})
		return nil, false
	}
	return &assignment, true
}

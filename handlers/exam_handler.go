package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/somework06-coder/LMS-SEKOLAH-sub001/database"
	"github.com/somework06-coder/LMS-SEKOLAH-sub001/models"
	"github.com/somework06-coder/LMS-SEKOLAH-sub001/services"
	"gorm.io/gorm"
)

type ExamHandler struct {
	Service *services.ExamService
}

func NewExamHandler(service *services.ExamService) *ExamHandler {
	return &ExamHandler{Service: service}
}

type ExamRequest struct {
	TeachingAssignmentID string    `json:"teaching_assignment_id" validate:"required,uuid4"`
	Title                string    `json:"title" validate:"required"`
	Description          string    `json:"description"`
	StartTime            time.Time `json:"start_time" validate:"required"`
	DurationMinutes      int       `json:"duration_minutes" validate:"required,gt=0"`
	IsRandomized         bool      `json:"is_randomized"`
	MaxViolations        int       `json:"max_violations" validate:"omitempty,gt=0"`
}

func (h *ExamHandler) CreateExam(c *fiber.Ctx) error {
	var req ExamRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	assignmentID, _ := uuid.Parse(req.TeachingAssignmentID)
	var assignment models.TeachingAssignment
	err := database.DB.First(&assignment, "id = ? AND teacher_id = ?", assignmentID, authUserID(c)).Error
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Teaching assignment not found"})
	}

	maxViolations := req.MaxViolations
	if maxViolations == 0 {
		maxViolations = models.DefaultMaxViolations
	}

	exam := models.Exam{
		TeachingAssignmentID: assignmentID,
		Title:                req.Title,
		Description:          req.Description,
		StartTime:            req.StartTime,
		DurationMinutes:      req.DurationMinutes,
		IsRandomized:         req.IsRandomized,
		MaxViolations:        maxViolations,
	}
	if err := database.DB.Create(&exam).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create exam"})
	}

	return c.Status(fiber.StatusCreated).JSON(exam)
}

func (h *ExamHandler) ListMyExams(c *fiber.Ctx) error {
	var exams []models.Exam
	err := database.DB.
		Joins("JOIN teaching_assignments ON teaching_assignments.id = exams.teaching_assignment_id").
		Where("teaching_assignments.teacher_id = ?", authUserID(c)).
		Preload("TeachingAssignment.Class").
		Preload("TeachingAssignment.Subject").
		Order("exams.start_time DESC").
		Find(&exams).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}
	return c.JSON(exams)
}

func (h *ExamHandler) GetExam(c *fiber.Ctx) error {
	exam, ok := h.ownedExam(c)
	if !ok {
		return nil
	}

	var questions []models.ExamQuestion
	database.DB.Where("exam_id = ?", exam.ID).Order("order_index ASC").Find(&questions)
	exam.Questions = questions

	return c.JSON(exam)
}

func (h *ExamHandler) UpdateExam(c *fiber.Ctx) error {
	exam, ok := h.ownedExam(c)
	if !ok {
		return nil
	}

	var req ExamRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	exam.Title = req.Title
	exam.Description = req.Description
	exam.StartTime = req.StartTime
	exam.DurationMinutes = req.DurationMinutes
	exam.IsRandomized = req.IsRandomized
	if req.MaxViolations > 0 {
		exam.MaxViolations = req.MaxViolations
	}
	if err := database.DB.Save(exam).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update exam"})
	}

	return c.JSON(exam)
}

type PublishExamRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

func (h *ExamHandler) PublishExam(c *fiber.Ctx) error {
	exam, ok := h.ownedExam(c)
	if !ok {
		return nil
	}

	var req PublishExamRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := database.DB.Model(exam).Update("is_active", *req.IsActive).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update exam"})
	}
	return c.JSON(exam)
}

func (h *ExamHandler) DeleteExam(c *fiber.Ctx) error {
	exam, ok := h.ownedExam(c)
	if !ok {
		return nil
	}

	// Attempts are student work; the exam can only be deactivated once
	// any exist.
	var attemptCount int64
	database.DB.Model(&models.ExamAttempt{}).Where("exam_id = ?", exam.ID).Count(&attemptCount)
	if attemptCount > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Exam has attempts and cannot be deleted"})
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.ExamQuestion{}, "exam_id = ?", exam.ID).Error; err != nil {
			return err
		}
		return tx.Delete(exam).Error
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete exam"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

type ExamQuestionRequest struct {
	QuestionText  string   `json:"question_text" validate:"required"`
	QuestionType  string   `json:"question_type" validate:"required,oneof=multiple_choice essay"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Points        int      `json:"points" validate:"omitempty,gt=0"`
	OrderIndex    int      `json:"order_index"`
	ImageURL      *string  `json:"image_url"`
}

func (h *ExamHandler) AddQuestion(c *fiber.Ctx) error {
	exam, ok := h.ownedExam(c)
	if !ok {
		return nil
	}

	var req ExamQuestionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if req.QuestionType == models.QuestionTypeMultipleChoice {
		if len(req.Options) < 2 || req.CorrectAnswer == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Multiple choice questions need options and a correct answer"})
		}
	}

	points := req.Points
	if points == 0 {
		points = 1
	}

	question := models.ExamQuestion{
		ExamID:        exam.ID,
		QuestionText:  req.QuestionText,
		QuestionType:  req.QuestionType,
		Options:       req.Options,
		CorrectAnswer: req.CorrectAnswer,
		Points:        points,
		OrderIndex:    req.OrderIndex,
		ImageURL:      req.ImageURL,
	}
	if err := database.DB.Create(&question).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create question"})
	}

	return c.Status(fiber.StatusCreated).JSON(question)
}

func (h *ExamHandler) ListQuestions(c *fiber.Ctx) error {
	exam, ok := h.ownedExam(c)
	if !ok {
		return nil
	}

	var questions []models.ExamQuestion
	err := database.DB.Where("exam_id = ?", exam.ID).Order("order_index ASC").Find(&questions).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}
	return c.JSON(questions)
}

func (h *ExamHandler) UpdateQuestion(c *fiber.Ctx) error {
	exam, ok := h.ownedExam(c)
	if !ok {
		return nil
	}

	var question models.ExamQuestion
	err := database.DB.First(&question, "id = ? AND exam_id = ?", c.Params("questionId"), exam.ID).Error
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Question not found"})
	}

	var req ExamQuestionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	question.QuestionText = req.QuestionText
	question.QuestionType = req.QuestionType
	question.Options = req.Options
	question.CorrectAnswer = req.CorrectAnswer
	if req.Points > 0 {
		question.Points = req.Points
	}
	question.OrderIndex = req.OrderIndex
	question.ImageURL = req.ImageURL
	if err := database.DB.Save(&question).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update question"})
	}

	return c.JSON(question)
}

func (h *ExamHandler) DeleteQuestion(c *fiber.Ctx) error {
	exam, ok := h.ownedExam(c)
	if !ok {
		return nil
	}

	var attemptCount int64
	database.DB.Model(&models.ExamAttempt{}).Where("exam_id = ?", exam.ID).Count(&attemptCount)
	if attemptCount > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Exam already has attempts; questions cannot be deleted"})
	}

	result := database.DB.Delete(&models.ExamQuestion{}, "id = ? AND exam_id = ?", c.Params("questionId"), exam.ID)
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete question"})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Question not found"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListSubmissions reconciles overdue attempts first, so a teacher never
// sees an attempt as in-progress after its window has long passed.
func (h *ExamHandler) ListSubmissions(c *fiber.Ctx) error {
	exam, ok := h.ownedExam(c)
	if !ok {
		return nil
	}

	closed, err := h.Service.SweepExpiredAttempts(exam.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to reconcile expired attempts"})
	}

	var attempts []models.ExamAttempt
	err = database.DB.Preload("Student").
		Where("exam_id = ?", exam.ID).
		Order("started_at ASC").
		Find(&attempts).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}

	return c.JSON(fiber.Map{
		"closed_by_sweep": closed,
		"submissions":     attempts,
	})
}

func (h *ExamHandler) GetSubmission(c *fiber.Ctx) error {
	exam, ok := h.ownedExam(c)
	if !ok {
		return nil
	}

	var attempt models.ExamAttempt
	err := database.DB.Preload("Student").
		First(&attempt, "id = ? AND exam_id = ?", c.Params("attemptId"), exam.ID).Error
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Submission not found"})
	}

	var answers []models.ExamAnswer
	database.DB.Preload("Question").Where("attempt_id = ?", attempt.ID).Find(&answers)

	return c.JSON(fiber.Map{
		"attempt": attempt,
		"answers": answers,
	})
}

type GradeAnswerRequest struct {
	PointsEarned *int `json:"points_earned" validate:"required,gte=0"`
}

func (h *ExamHandler) GradeEssayAnswer(c *fiber.Ctx) error {
	answerID, err := uuid.Parse(c.Params("answerId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid answer id"})
	}

	var req GradeAnswerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	answer, err := h.Service.GradeEssayAnswer(answerID, authUserID(c), *req.PointsEarned)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAnswerNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Answer not found"})
		case errors.Is(err, services.ErrNotEssayQuestion):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Only essay answers can be graded manually"})
		case errors.Is(err, services.ErrInvalidPoints):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Points exceed the question's point value"})
		case errors.Is(err, services.ErrAttemptInProgress):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Attempt has not been submitted yet"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to grade answer"})
	}

	return c.JSON(answer)
}

func (h *ExamHandler) ownedExam(c *fiber.Ctx) (*models.Exam, bool) {
	var exam models.Exam
	err := database.DB.Preload("TeachingAssignment").First(&exam, "id = ?", c.Params("examId")).Error
	if err != nil {
		_ = c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Exam not found"})
		return nil, false
	}
	if exam.TeachingAssignment.TeacherID != authUserID(c) {
		_ = c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden: you do not own this exam"})
		return nil, false
	}
	return &exam, true
}

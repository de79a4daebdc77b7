package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/somework06-coder/LMS-SEKOLAH-sub001/database"
	"github.com/somework06-coder/LMS-SEKOLAH-sub001/models"
	"github.com/somework06-coder/LMS-SEKOLAH-sub001/services"
)

type AttemptHandler struct {
	Service *services.ExamService
}

func NewAttemptHandler(service *services.ExamService) *AttemptHandler {
	return &AttemptHandler{Service: service}
}

// QuestionForStudent never carries the correct answer.
type QuestionForStudent struct {
	ID           uuid.UUID `json:"id"`
	QuestionText string    `json:"question_text"`
	QuestionType string    `json:"question_type"`
	Options      []string  `json:"options"`
	Points       int       `json:"points"`
	ImageURL     *string   `json:"image_url"`
}

func sanitizeQuestions(questions []models.ExamQuestion) []QuestionForStudent {
	out := make([]QuestionForStudent, len(questions))
	for i, q := range questions {
		out[i] = QuestionForStudent{
			ID:           q.ID,
			QuestionText: q.QuestionText,
			QuestionType: q.QuestionType,
			Options:      q.Options,
			Points:       q.Points,
			ImageURL:     q.ImageURL,
		}
	}
	return out
}

func (h *AttemptHandler) StudentListExams(c *fiber.Ctx) error {
	studentID := authUserID(c)

	var exams []models.Exam
	err := database.DB.
		Joins("JOIN teaching_assignments ON teaching_assignments.id = exams.teaching_assignment_id").
		Joins("JOIN class_enrollments ON class_enrollments.class_id = teaching_assignments.class_id").
		Where("class_enrollments.student_id = ? AND exams.is_active = ?", studentID, true).
		Preload("TeachingAssignment.Subject").
		Order("exams.start_time ASC").
		Find(&exams).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}

	type ExamForStudent struct {
		ID              uuid.UUID `json:"id"`
		Title           string    `json:"title"`
		Description     string    `json:"description"`
		Subject         string    `json:"subject"`
		StartTime       time.Time `json:"start_time"`
		DurationMinutes int       `json:"duration_minutes"`
	}

	out := make([]ExamForStudent, len(exams))
	for i, e := range exams {
		out[i] = ExamForStudent{
			ID:              e.ID,
			Title:           e.Title,
			Description:     e.Description,
			Subject:         e.TeachingAssignment.Subject.Name,
			StartTime:       e.StartTime,
			DurationMinutes: e.DurationMinutes,
		}
	}
	return c.JSON(out)
}

func (h *AttemptHandler) StartAttempt(c *fiber.Ctx) error {
	examID, err := uuid.Parse(c.Params("examId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid exam id"})
	}

	attempt, created, err := h.Service.StartAttempt(examID, authUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrExamNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Exam not found"})
		case errors.Is(err, services.ErrExamNotActive):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Exam is not published"})
		case errors.Is(err, services.ErrExamNotStarted):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Exam has not started yet"})
		case errors.Is(err, services.ErrNotEnrolled):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You are not enrolled in this exam's class"})
		case errors.Is(err, services.ErrAlreadySubmitted):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "You have already submitted this exam"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to start exam"})
	}

	questions, err := h.Service.AttemptQuestions(attempt)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load questions"})
	}

	// 201 only when this call created the attempt; resuming returns 200.
	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{
		"attempt_id": attempt.ID,
		"started_at": attempt.StartedAt,
		"max_score":  attempt.MaxScore,
		"questions":  sanitizeQuestions(questions),
	})
}

type RecordAnswerRequest struct {
	QuestionID string `json:"question_id" validate:"required,uuid4"`
	AnswerText string `json:"answer_text"`
}

func (h *AttemptHandler) RecordAnswer(c *fiber.Ctx) error {
	attemptID, err := uuid.Parse(c.Params("attemptId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid attempt id"})
	}

	var req RecordAnswerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	questionID, _ := uuid.Parse(req.QuestionID)
	err = h.Service.RecordAnswer(attemptID, authUserID(c), questionID, req.AnswerText)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAttemptNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Attempt not found"})
		case errors.Is(err, services.ErrAlreadySubmitted):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Attempt has already been submitted"})
		case errors.Is(err, services.ErrQuestionNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Question not found in this exam"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save answer"})
	}

	return c.JSON(fiber.Map{"message": "Answer saved"})
}

type RecordViolationRequest struct {
	Type string `json:"type" validate:"required"`
}

func (h *AttemptHandler) RecordViolation(c *fiber.Ctx) error {
	attemptID, err := uuid.Parse(c.Params("attemptId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid attempt id"})
	}

	var req RecordViolationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	result, err := h.Service.RecordViolation(attemptID, authUserID(c), req.Type)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAttemptNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Attempt not found"})
		case errors.Is(err, services.ErrAlreadySubmitted):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Attempt has already been submitted"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to record violation"})
	}

	return c.JSON(result)
}

func (h *AttemptHandler) SubmitAttempt(c *fiber.Ctx) error {
	attemptID, err := uuid.Parse(c.Params("attemptId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid attempt id"})
	}

	attempt, err := h.Service.SubmitAttempt(attemptID, authUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAttemptNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Attempt not found"})
		case errors.Is(err, services.ErrAlreadySubmitted):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Attempt has already been submitted"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to submit attempt"})
	}

	return c.JSON(fiber.Map{
		"message":      "Exam submitted successfully",
		"total_score":  attempt.TotalScore,
		"max_score":    attempt.MaxScore,
		"submitted_at": attempt.SubmittedAt,
	})
}

func (h *AttemptHandler) GetMyAttempt(c *fiber.Ctx) error {
	var attempt models.ExamAttempt
	err := database.DB.Preload("Exam").
		First(&attempt, "id = ? AND student_id = ?", c.Params("attemptId"), authUserID(c)).Error
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Attempt not found"})
	}

	var answers []models.ExamAnswer
	database.DB.Where("attempt_id = ?", attempt.ID).Find(&answers)

	type AnswerForStudent struct {
		QuestionID   uuid.UUID `json:"question_id"`
		AnswerText   string    `json:"answer_text"`
		IsCorrect    *bool     `json:"is_correct,omitempty"`
		PointsEarned *int      `json:"points_earned,omitempty"`
	}

	// Correctness is withheld until the attempt is terminal.
	out := make([]AnswerForStudent, len(answers))
	for i, a := range answers {
		out[i] = AnswerForStudent{QuestionID: a.QuestionID, AnswerText: a.AnswerText}
		if attempt.IsSubmitted {
			out[i].IsCorrect = a.IsCorrect
			out[i].PointsEarned = a.PointsEarned
		}
	}

	resp := fiber.Map{
		"id":              attempt.ID,
		"exam_id":         attempt.ExamID,
		"started_at":      attempt.StartedAt,
		"is_submitted":    attempt.IsSubmitted,
		"submitted_at":    attempt.SubmittedAt,
		"max_score":       attempt.MaxScore,
		"violation_count": attempt.ViolationCount,
		"answers":         out,
	}
	if attempt.IsSubmitted {
		resp["total_score"] = attempt.TotalScore
	}
	return c.JSON(resp)
}

package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/somework06-coder/LMS-SEKOLAH-sub001/database"
	"github.com/somework06-coder/LMS-SEKOLAH-sub001/handlers"
	"github.com/somework06-coder/LMS-SEKOLAH-sub001/models"
	"github.com/somework06-coder/LMS-SEKOLAH-sub001/routes"
	"github.com/somework06-coder/LMS-SEKOLAH-sub001/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testJWTSecret = "handler-test-secret"

type testEnv struct {
	app     *fiber.App
	db      *gorm.DB
	teacher models.User
	student models.User
	exam    models.Exam
	q1      models.ExamQuestion
	q2      models.ExamQuestion
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("JWT_SECRET", testJWTSecret)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.AcademicYear{},
		&models.Class{},
		&models.Subject{},
		&models.TeachingAssignment{},
		&models.ClassEnrollment{},
		&models.Exam{},
		&models.ExamQuestion{},
		&models.ExamAttempt{},
		&models.ExamAnswer{},
		&models.Notification{},
	))
	database.DB = db

	env := &testEnv{db: db}
	env.teacher = models.User{ID: uuid.New(), FullName: "Guru Handler", Email: "guru@school.test", Password: "x", Role: models.RoleTeacher}
	env.student = models.User{ID: uuid.New(), FullName: "Siswa Handler", Email: "siswa@school.test", Password: "x", Role: models.RoleStudent}
	require.NoError(t, db.Create(&env.teacher).Error)
	require.NoError(t, db.Create(&env.student).Error)

	year := models.AcademicYear{ID: uuid.New(), Name: "2025/2026", StartDate: time.Now().AddDate(0, -1, 0), EndDate: time.Now().AddDate(0, 11, 0)}
	require.NoError(t, db.Create(&year).Error)
	class := models.Class{ID: uuid.New(), Name: "XI-B", AcademicYearID: year.ID}
	require.NoError(t, db.Create(&class).Error)
	subject := models.Subject{ID: uuid.New(), Name: "Physics", Code: "PHY"}
	require.NoError(t, db.Create(&subject).Error)
	ta := models.TeachingAssignment{ID: uuid.New(), TeacherID: env.teacher.ID, ClassID: class.ID, SubjectID: subject.ID, AcademicYearID: year.ID}
	require.NoError(t, db.Create(&ta).Error)
	require.NoError(t, db.Create(&models.ClassEnrollment{ID: uuid.New(), StudentID: env.student.ID, ClassID: class.ID, AcademicYearID: year.ID}).Error)

	env.exam = models.Exam{
		ID:                   uuid.New(),
		TeachingAssignmentID: ta.ID,
		Title:                "Unit Test Exam",
		StartTime:            time.Now().Add(-5 * time.Minute),
		DurationMinutes:      45,
		IsActive:             true,
		MaxViolations:        3,
	}
	require.NoError(t, db.Create(&env.exam).Error)

	env.q1 = models.ExamQuestion{ID: uuid.New(), ExamID: env.exam.ID, QuestionText: "F = ?", QuestionType: models.QuestionTypeMultipleChoice, Options: []string{"ma", "mv", "mg", "mc"}, CorrectAnswer: "A", Points: 5, OrderIndex: 1}
	env.q2 = models.ExamQuestion{ID: uuid.New(), ExamID: env.exam.ID, QuestionText: "g = ?", QuestionType: models.QuestionTypeMultipleChoice, Options: []string{"8.9", "9.8", "9.9", "10.8"}, CorrectAnswer: "B", Points: 10, OrderIndex: 2}
	require.NoError(t, db.Create(&env.q1).Error)
	require.NoError(t, db.Create(&env.q2).Error)

	svc := services.NewExamService(db)
	app := fiber.New()
	routes.ExamRoutes(app, handlers.NewExamHandler(svc), handlers.NewAttemptHandler(svc))
	env.app = app

	return env
}

func (e *testEnv) token(t *testing.T, user models.User) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id": user.ID.String(),
		"role":    user.Role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestExamFlowOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	studentToken := env.token(t, env.student)

	resp := env.request(t, "POST", fmt.Sprintf("/api/v1/exams/%s/start", env.exam.ID), studentToken, nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	started := decodeBody(t, resp)
	attemptID := started["attempt_id"].(string)
	require.NotEmpty(t, attemptID)

	questions := started["questions"].([]interface{})
	require.Len(t, questions, 2)
	for _, q := range questions {
		_, leaked := q.(map[string]interface{})["correct_answer"]
		assert.False(t, leaked, "correct answer must never reach the student")
	}

	resp = env.request(t, "POST", fmt.Sprintf("/api/v1/attempts/%s/answers", attemptID), studentToken,
		fiber.Map{"question_id": env.q1.ID.String(), "answer_text": "A"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = env.request(t, "POST", fmt.Sprintf("/api/v1/attempts/%s/answers", attemptID), studentToken,
		fiber.Map{"question_id": env.q2.ID.String(), "answer_text": "C"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = env.request(t, "POST", fmt.Sprintf("/api/v1/attempts/%s/submit", attemptID), studentToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	result := decodeBody(t, resp)
	assert.EqualValues(t, 5, result["total_score"])
	assert.EqualValues(t, 15, result["max_score"])

	resp = env.request(t, "POST", fmt.Sprintf("/api/v1/attempts/%s/submit", attemptID), studentToken, nil)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestStartAttempt_ResumeReturnsOK(t *testing.T) {
	env := newTestEnv(t)
	studentToken := env.token(t, env.student)

	resp := env.request(t, "POST", fmt.Sprintf("/api/v1/exams/%s/start", env.exam.ID), studentToken, nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	firstID := decodeBody(t, resp)["attempt_id"].(string)

	resp = env.request(t, "POST", fmt.Sprintf("/api/v1/exams/%s/start", env.exam.ID), studentToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, firstID, decodeBody(t, resp)["attempt_id"])
}

func TestViolationEndpointReportsThreshold(t *testing.T) {
	env := newTestEnv(t)
	studentToken := env.token(t, env.student)

	resp := env.request(t, "POST", fmt.Sprintf("/api/v1/exams/%s/start", env.exam.ID), studentToken, nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	attemptID := decodeBody(t, resp)["attempt_id"].(string)

	for i := 1; i <= 2; i++ {
		resp = env.request(t, "POST", fmt.Sprintf("/api/v1/attempts/%s/violations", attemptID), studentToken,
			fiber.Map{"type": "tab_blur"})
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.EqualValues(t, i, body["violation_count"])
		assert.Equal(t, false, body["forced"])
	}

	resp = env.request(t, "POST", fmt.Sprintf("/api/v1/attempts/%s/violations", attemptID), studentToken,
		fiber.Map{"type": "tab_blur"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decodeBody(t, resp)["forced"])

	// Forced submission is terminal: further answers are rejected.
	resp = env.request(t, "POST", fmt.Sprintf("/api/v1/attempts/%s/answers", attemptID), studentToken,
		fiber.Map{"question_id": env.q1.ID.String(), "answer_text": "A"})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestTeacherSubmissionsTriggerSweep(t *testing.T) {
	env := newTestEnv(t)
	studentToken := env.token(t, env.student)
	teacherToken := env.token(t, env.teacher)

	resp := env.request(t, "POST", fmt.Sprintf("/api/v1/exams/%s/start", env.exam.ID), studentToken, nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	attemptID := decodeBody(t, resp)["attempt_id"].(string)

	// Push the attempt far past its window.
	require.NoError(t, env.db.Model(&models.ExamAttempt{}).Where("id = ?", attemptID).
		Update("started_at", time.Now().Add(-3*time.Hour)).Error)

	resp = env.request(t, "GET", fmt.Sprintf("/api/v1/teacher/exams/%s/submissions", env.exam.ID), teacherToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.EqualValues(t, 1, body["closed_by_sweep"])

	submissions := body["submissions"].([]interface{})
	require.Len(t, submissions, 1)
	assert.Equal(t, true, submissions[0].(map[string]interface{})["is_submitted"])
}

func TestStudentCannotUseTeacherRoutes(t *testing.T) {
	env := newTestEnv(t)
	studentToken := env.token(t, env.student)

	resp := env.request(t, "GET", fmt.Sprintf("/api/v1/teacher/exams/%s/submissions", env.exam.ID), studentToken, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

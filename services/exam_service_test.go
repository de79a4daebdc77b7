package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/somework06-coder/LMS-SEKOLAH-sub001/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// The in-memory database lives on a single connection.
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
	return db
}

type examFixture struct {
	db      *gorm.DB
	svc     *ExamService
	teacher models.User
	student models.User
	class   models.Class
	exam    models.Exam
	q1      models.ExamQuestion // 5 points, correct "B"
	q2      models.ExamQuestion // 10 points, correct "A"
}

func newExamFixture(t *testing.T) *examFixture {
	t.Helper()
	db := setupTestDB(t)

	f := &examFixture{db: db, svc: NewExamService(db)}

	f.teacher = models.User{ID: uuid.New(), FullName: "Guru Satu", Email: "teacher@school.test", Password: "x", Role: models.RoleTeacher}
	f.student = models.User{ID: uuid.New(), FullName: "Siswa Satu", Email: "student@school.test", Password: "x", Role: models.RoleStudent}
	require.NoError(t, db.Create(&f.teacher).Error)
	require.NoError(t, db.Create(&f.student).Error)

	year := models.AcademicYear{ID: uuid.New(), Name: "2025/2026", StartDate: time.Now().AddDate(0, -2, 0), EndDate: time.Now().AddDate(0, 10, 0), IsCurrent: true}
	require.NoError(t, db.Create(&year).Error)

	f.class = models.Class{ID: uuid.New(), Name: "X-A", AcademicYearID: year.ID}
	require.NoError(t, db.Create(&f.class).Error)

	subject := models.Subject{ID: uuid.New(), Name: "Mathematics", Code: "MATH"}
	require.NoError(t, db.Create(&subject).Error)

	ta := models.TeachingAssignment{ID: uuid.New(), TeacherID: f.teacher.ID, ClassID: f.class.ID, SubjectID: subject.ID, AcademicYearID: year.ID}
	require.NoError(t, db.Create(&ta).Error)

	enrollment := models.ClassEnrollment{ID: uuid.New(), StudentID: f.student.ID, ClassID: f.class.ID, AcademicYearID: year.ID}
	require.NoError(t, db.Create(&enrollment).Error)

	f.exam = models.Exam{
		ID:                   uuid.New(),
		TeachingAssignmentID: ta.ID,
		Title:                "Midterm Exam",
		StartTime:            time.Now().Add(-10 * time.Minute),
		DurationMinutes:      30,
		IsActive:             true,
		MaxViolations:        3,
	}
	require.NoError(t, db.Create(&f.exam).Error)

	f.q1 = models.ExamQuestion{
		ID: uuid.New(), ExamID: f.exam.ID,
		QuestionText: "2 + 2 = ?", QuestionType: models.QuestionTypeMultipleChoice,
		Options: []string{"3", "4", "5", "6"}, CorrectAnswer: "B", Points: 5, OrderIndex: 1,
	}
	f.q2 = models.ExamQuestion{
		ID: uuid.New(), ExamID: f.exam.ID,
		QuestionText: "5 * 5 = ?", QuestionType: models.QuestionTypeMultipleChoice,
		Options: []string{"25", "20", "30", "35"}, CorrectAnswer: "A", Points: 10, OrderIndex: 2,
	}
	require.NoError(t, db.Create(&f.q1).Error)
	require.NoError(t, db.Create(&f.q2).Error)

	return f
}

func (f *examFixture) reloadAttempt(t *testing.T, id uuid.UUID) models.ExamAttempt {
	t.Helper()
	var attempt models.ExamAttempt
	require.NoError(t, f.db.First(&attempt, "id = ?", id).Error)
	return attempt
}

func TestStartAttempt_CreatesFrozenAttempt(t *testing.T) {
	f := newExamFixture(t)

	attempt, _, err := f.svc.StartAttempt(f.exam.ID, f.student.ID)
	require.NoError(t, err)
	require.NotNil(t, attempt)

	assert.Equal(t, 15, attempt.MaxScore)
	assert.False(t, attempt.IsSubmitted)
	assert.Equal(t, []uuid.UUID{f.q1.ID, f.q2.ID}, attempt.QuestionOrder)
	assert.WithinDuration(t, time.Now(), attempt.StartedAt, 5*time.Second)
}

func TestStartAttempt_IsIdempotentWhileInProgress(t *testing.T) {
	f := newExamFixture(t)

	first, created, err := f.svc.StartAttempt(f.exam.ID, f.student.ID)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := f.svc.StartAttempt(f.exam.ID, f.student.ID)
	require.NoError(t, err)
	assert.False(t, created)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.QuestionOrder, second.QuestionOrder)

	var count int64
	f.db.Model(&models.ExamAttempt{}).Where("exam_id = ?", f.exam.ID).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestStartAttempt_RandomizedOrderIsPermutation(t *testing.T) {
	f := newExamFixture(t)
	require.NoError(t, f.db.Model(&f.exam).Update("is_randomized", true).Error)

	attempt, _, err := f.svc.StartAttempt(f.exam.ID, f.student.ID)
	require.NoError(t, err)

	assert.Len(t, attempt.QuestionOrder, 2)
	assert.ElementsMatch(t, []uuid.UUID{f.q1.ID, f.q2.ID}, attempt.QuestionOrder)
}

func TestStartAttempt_Preconditions(t *testing.T) {
	f := newExamFixture(t)

	_, _, err := f.svc.StartAttempt(uuid.New(), f.student.ID)
	assert.ErrorIs(t, err, ErrExamNotFound)

	require.NoError(t, f.db.Model(&f.exam).Update("is_active", false).Error)
	_, _, err = f.svc.StartAttempt(f.exam.ID, f.student.ID)
	assert.ErrorIs(t, err, ErrExamNotActive)

	require.NoError(t, f.db.Model(&f.exam).Updates(map[string]interface{}{
		"is_active":  true,
		"start_time": time.Now().Add(1 * time.Hour),
	}).Error)
	_, _, err = f.svc.StartAttempt(f.exam.ID, f.student.ID)
	assert.ErrorIs(t, err, ErrExamNotStarted)

	require.NoError(t, f.db.Model(&f.exam).Update("start_time", time.Now().Add(-time.Minute)).Error)
	outsider := models.User{ID: uuid.New(), FullName: "Siswa Lain", Email: "other@school.test", Password: "x", Role: models.RoleStudent}
	require.NoError(t, f.db.Create(&outsider).Error)
	_, _, err = f.svc.StartAttempt(f.exam.ID, outsider.ID)
	assert.ErrorIs(t, err, ErrNotEnrolled)
}

func TestStartAttempt_DuplicateRowRejectedByStore(t *testing.T) {
	f := newExamFixture(t)

	attempt, _, err := f.svc.StartAttempt(f.exam.ID, f.student.ID)
	require.NoError(t, err)

	dup := models.ExamAttempt{
		ID:        uuid.New(),
		ExamID:    attempt.ExamID,
		StudentID: attempt.StudentID,
		StartedAt: time.Now(),
	}
	assert.Error(t, f.db.Create(&dup).Error)
}

func TestFrozenOrderSurvivesQuestionEdits(t *testing.T) {
	f := newExamFixture(t)

	attempt, _, err := f.svc.StartAttempt(f.exam.ID, f.student.ID)
	require.NoError(t, err)
	originalOrder := attempt.QuestionOrder
	originalMax := attempt.MaxScore

	q3 := models.ExamQuestion{
		ID: uuid.New(), ExamID: f.exam.ID,
		QuestionText: "Explain fractions.", QuestionType: models.QuestionTypeEssay,
		Points: 20, OrderIndex: 0,
	}
	require.NoError(t, f.db.Create(&q3).Error)
	require.NoError(t, f.db.Model(&f.q1).Update("points", 50).Error)

	resumed, _, err := f.svc.StartAttempt(f.exam.ID, f.student.ID)
	require.NoError(t, err)

	assert.Equal(t, originalOrder, resumed.QuestionOrder)
	assert.Equal(t, originalMax, resumed.MaxScore)
}

func TestRecordAnswer_MultipleChoiceScoring(t *testing.T) {
	f := newExamFixture(t)
	attempt, _, err := f.svc.StartAttempt(f.exam.ID, f.student.ID)
	require.NoError(t, err)

	for _, tc := range []struct {
		answer string
		earned int
	}{
		{"A", 0},
		{"C", 0},
		{"", 0},
		{"B", 5},
	} {
		require.NoError(t, f.svc.RecordAnswer(attempt.ID, f.student.ID, f.q1.ID, tc.answer))

		var answer models.ExamAnswer
		require.NoError(t, f.db.First(&answer, "attempt_id = ? AND question_id = ?", attempt.ID, f.q1.ID).Error)
		require.NotNil(t, answer.PointsEarned)
		assert.Equal(t, tc.earned, *answer.PointsEarned, "answer %q", tc.answer)
		require.NotNil(t, answer.IsCorrect)
		assert.Equal(t, tc.earned > 0, *answer.IsCorrect, "answer %q", tc.answer)
	}

	// Last write wins: still a single row for the question.
	var count int64
	f.db.Model(&models.ExamAnswer{}).Where("attempt_id = ?", attempt.ID).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestRecordAnswer_EssayStaysUngraded(t *testing.T) {
	f := newExamFixture(t)
	essay := models.ExamQuestion{
		ID: uuid.New(), ExamID: f.exam.ID,
		QuestionText: "Explain long division.", QuestionType: models.QuestionTypeEssay,
		Points: 10, OrderIndex: 3,
	}
	require.NoError(t, f.db.Create(&essay).Error)

	attempt, _, err := f.svc.StartAttempt(f.exam.ID, f.student.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.RecordAnswer(attempt.ID, f.student.ID, essay.ID, "You divide step by step."))

	var answer models.ExamAnswer
	require.NoError(t, f.db.First(&answer, "attempt_id = ? AND question_id = ?", attempt.ID, essay.ID).Error)
	assert.Nil(t, answer.IsCorrect)
	assert.Nil(t, answer.PointsEarned)
}

func TestRecordAnswer_RejectsForeignQuestionAndAttempt(t *testing.T) {
	f := newExamFixture(t)
	attempt, _, err := f.svc.StartAttempt(f.exam.ID, f.student.ID)
	require.NoError(t, err)

	err = f.svc.RecordAnswer(attempt.ID, f.student.ID, uuid.New(), "B")
	assert.ErrorIs(t, err, ErrQuestionNotFound)

	err = f.svc.RecordAnswer(attempt.ID, uuid.New(), f.q1.ID, "B")
	assert.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestSubmitAttempt_EndToEnd(t *testing.T) {
	f := newExamFixture(t)
	attempt, _, err := f.svc.StartAttempt(f.exam.ID, f.student.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.RecordAnswer(attempt.ID, f.student.ID, f.q1.ID, "B")) // correct, 5
	require.NoError(t, f.svc.RecordAnswer(attempt.ID, f.student.ID, f.q2.ID, "C")) // wrong, 0

	submitted, err := f.svc.SubmitAttempt(attempt.ID, f.student.ID)
	require.NoError(t, err)
	assert.True(t, submitted.IsSubmitted)
	assert.NotNil(t, submitted.SubmittedAt)
	assert.Equal(t, 5, submitted.TotalScore)
	assert.Equal(t, 15, submitted.MaxScore)

	_, err = f.svc.SubmitAttempt(attempt.ID, f.student.ID)
	assert.ErrorIs(t, err, ErrAlreadySubmitted)

	// The teacher is notified once.
	var notifications []models.Notification
	f.db.Where("user_id = ? AND kind = ?", f.teacher.ID, models.NotificationExamSubmitted).Find(&notifications)
	assert.Len(t, notifications, 1)
}

func TestSubmit_UnansweredQuestionsContributeZero(t *testing.T) {
	f := newExamFixture(t)
	attempt, _, err := f.svc.StartAttempt(f.exam.ID, f.student.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.RecordAnswer(attempt.ID, f.student.ID, f.q1.ID, "B"))

	submitted, err := f.svc.SubmitAttempt(attempt.ID, f.student.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, submitted.TotalScore)
}

func TestTerminalAttemptRejectsAllMutations(t *testing.T) {
	f := newExamFixture(t)
	attempt, _, err := f.svc.StartAttempt(f.exam.ID, f.student.ID)
	require.NoError(t, err)
	_, err = f.svc.SubmitAttempt(attempt.ID, f.student.ID)
	require.NoError(t, err)

	err = f.svc.RecordAnswer(attempt.ID, f.student.ID, f.q1.ID, "B")
	assert.ErrorIs(t, err, ErrAlreadySubmitted)

	_, err = f.svc.RecordViolation(attempt.ID, f.student.ID, "tab_blur")
	assert.ErrorIs(t, err, ErrAlreadySubmitted)

	_, _, err = f.svc.StartAttempt(f.exam.ID, f.student.ID)
	assert.ErrorIs(t, err, ErrAlreadySubmitted)

	reloaded := f.reloadAttempt(t, attempt.ID)
	assert.Equal(t, 0, reloaded.ViolationCount)
}

func TestRecordViolation_ThresholdForcesSubmission(t *testing.T) {
	f := newExamFixture(t)
	attempt, _, err := f.svc.StartAttempt(f.exam.ID, f.student.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.RecordAnswer(attempt.ID, f.student.ID, f.q1.ID, "B"))

	for i := 1; i <= 2; i++ {
		result, err := f.svc.RecordViolation(attempt.ID, f.student.ID, "tab_blur")
		require.NoError(t, err)
		assert.Equal(t, i, result.ViolationCount)
		assert.Equal(t, 3, result.MaxViolations)
		assert.False(t, result.Forced)

		live := f.reloadAttempt(t, attempt.ID)
		assert.False(t, live.IsSubmitted)
		require.Len(t, live.Violations, i)
		assert.Equal(t, "tab_blur", live.Violations[i-1].Type)
	}

	result, err := f.svc.RecordViolation(attempt.ID, f.student.ID, "copy_paste")
	require.NoError(t, err)
	assert.Equal(t, 3, result.ViolationCount)
	assert.True(t, result.Forced)

	closed := f.reloadAttempt(t, attempt.ID)
	assert.True(t, closed.IsSubmitted)
	assert.Equal(t, 5, closed.TotalScore)
	require.Len(t, closed.Violations, 3)
	assert.Equal(t, "copy_paste", closed.Violations[2].Type)

	var notifications []models.Notification
	f.db.Where("user_id = ? AND kind = ?", f.teacher.ID, models.NotificationExamForcedSubmit).Find(&notifications)
	assert.Len(t, notifications, 1)
}

func TestSweep_RespectsGraceBuffer(t *testing.T) {
	f := newExamFixture(t)

	fresh, _, err := f.svc.StartAttempt(f.exam.ID, f.student.ID)
	require.NoError(t, err)
	// 31 minutes into a 30 minute exam: inside the 2 minute grace buffer.
	require.NoError(t, f.db.Model(&models.ExamAttempt{}).Where("id = ?", fresh.ID).
		Update("started_at", time.Now().Add(-31*time.Minute)).Error)

	closed, err := f.svc.SweepExpiredAttempts(f.exam.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, closed)
	assert.False(t, f.reloadAttempt(t, fresh.ID).IsSubmitted)

	require.NoError(t, f.db.Model(&models.ExamAttempt{}).Where("id = ?", fresh.ID).
		Update("started_at", time.Now().Add(-33*time.Minute)).Error)

	closed, err = f.svc.SweepExpiredAttempts(f.exam.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	expired := f.reloadAttempt(t, fresh.ID)
	assert.True(t, expired.IsSubmitted)
	assert.NotNil(t, expired.SubmittedAt)

	// Sweeping again is a no-op.
	closed, err = f.svc.SweepExpiredAttempts(f.exam.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, closed)
}

func TestSweep_IsolatesPerAttemptFailures(t *testing.T) {
	f := newExamFixture(t)

	other := models.User{ID: uuid.New(), FullName: "Siswa Dua", Email: "second@school.test", Password: "x", Role: models.RoleStudent}
	require.NoError(t, f.db.Create(&other).Error)
	require.NoError(t, f.db.Create(&models.ClassEnrollment{
		ID: uuid.New(), StudentID: other.ID, ClassID: f.class.ID, AcademicYearID: f.class.AcademicYearID,
	}).Error)

	blocked, _, err := f.svc.StartAttempt(f.exam.ID, f.student.ID)
	require.NoError(t, err)
	healthy, _, err := f.svc.StartAttempt(f.exam.ID, other.ID)
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&models.ExamAttempt{}).Where("exam_id = ?", f.exam.ID).
		Update("started_at", time.Now().Add(-2*time.Hour)).Error)

	// Make closing one attempt fail at the store level.
	require.NoError(t, f.db.Exec(fmt.Sprintf(
		`CREATE TRIGGER block_attempt_close BEFORE UPDATE OF is_submitted ON exam_attempts
		 WHEN NEW.id = '%s' AND NEW.is_submitted BEGIN
		   SELECT RAISE(ABORT, 'attempt close blocked');
		 END`, blocked.ID)).Error)

	closed, err := f.svc.SweepExpiredAttempts(f.exam.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)
	assert.True(t, f.reloadAttempt(t, healthy.ID).IsSubmitted)
	assert.False(t, f.reloadAttempt(t, blocked.ID).IsSubmitted)

	// Once the store accepts the update again, the next sweep picks it up.
	require.NoError(t, f.db.Exec("DROP TRIGGER block_attempt_close").Error)
	closed, err = f.svc.SweepExpiredAttempts(f.exam.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)
	assert.True(t, f.reloadAttempt(t, blocked.ID).IsSubmitted)
}

func TestSweep_ScoresAnswersRecordedSoFar(t *testing.T) {
	f := newExamFixture(t)
	attempt, _, err := f.svc.StartAttempt(f.exam.ID, f.student.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.RecordAnswer(attempt.ID, f.student.ID, f.q2.ID, "A")) // 10 points

	require.NoError(t, f.db.Model(&models.ExamAttempt{}).Where("id = ?", attempt.ID).
		Update("started_at", time.Now().Add(-2*time.Hour)).Error)

	closed, err := f.svc.SweepAllExpired()
	require.NoError(t, err)
	assert.Equal(t, 1, closed)
	assert.Equal(t, 10, f.reloadAttempt(t, attempt.ID).TotalScore)
}

func TestGradeEssayAnswer(t *testing.T) {
	f := newExamFixture(t)
	essay := models.ExamQuestion{
		ID: uuid.New(), ExamID: f.exam.ID,
		QuestionText: "Explain prime numbers.", QuestionType: models.QuestionTypeEssay,
		Points: 20, OrderIndex: 3,
	}
	require.NoError(t, f.db.Create(&essay).Error)

	attempt, _, err := f.svc.StartAttempt(f.exam.ID, f.student.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.RecordAnswer(attempt.ID, f.student.ID, f.q1.ID, "B"))
	require.NoError(t, f.svc.RecordAnswer(attempt.ID, f.student.ID, essay.ID, "Numbers divisible only by 1 and themselves."))

	var essayAnswer models.ExamAnswer
	require.NoError(t, f.db.First(&essayAnswer, "attempt_id = ? AND question_id = ?", attempt.ID, essay.ID).Error)

	// Grading is only allowed after submission.
	_, err = f.svc.GradeEssayAnswer(essayAnswer.ID, f.teacher.ID, 15)
	assert.ErrorIs(t, err, ErrAttemptInProgress)

	_, err = f.svc.SubmitAttempt(attempt.ID, f.student.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, f.reloadAttempt(t, attempt.ID).TotalScore)

	_, err = f.svc.GradeEssayAnswer(essayAnswer.ID, f.teacher.ID, 25)
	assert.ErrorIs(t, err, ErrInvalidPoints)

	_, err = f.svc.GradeEssayAnswer(essayAnswer.ID, uuid.New(), 15)
	assert.ErrorIs(t, err, ErrAnswerNotFound)

	graded, err := f.svc.GradeEssayAnswer(essayAnswer.ID, f.teacher.ID, 15)
	require.NoError(t, err)
	require.NotNil(t, graded.PointsEarned)
	assert.Equal(t, 15, *graded.PointsEarned)
	assert.Equal(t, 20, f.reloadAttempt(t, attempt.ID).TotalScore)

	// Multiple choice answers cannot be regraded.
	var mcAnswer models.ExamAnswer
	require.NoError(t, f.db.First(&mcAnswer, "attempt_id = ? AND question_id = ?", attempt.ID, f.q1.ID).Error)
	_, err = f.svc.GradeEssayAnswer(mcAnswer.ID, f.teacher.ID, 3)
	assert.ErrorIs(t, err, ErrNotEssayQuestion)
}

package services

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/somework06-coder/LMS-SEKOLAH-sub001/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SweepGraceBuffer is added to an exam's nominal duration before an
// attempt counts as expired, to absorb clock and network skew.
const SweepGraceBuffer = 2 * time.Minute

var (
	ErrExamNotFound      = errors.New("exam not found")
	ErrExamNotActive     = errors.New("exam is not active")
	ErrExamNotStarted    = errors.New("exam has not started yet")
	ErrNotEnrolled       = errors.New("student is not enrolled in the exam's class")
	ErrAttemptNotFound   = errors.New("attempt not found")
	ErrAlreadySubmitted  = errors.New("attempt has already been submitted")
	ErrQuestionNotFound  = errors.New("question not found in this exam")
	ErrAnswerNotFound    = errors.New("answer not found")
	ErrAttemptInProgress = errors.New("attempt has not been submitted yet")
	ErrNotEssayQuestion  = errors.New("only essay answers can be graded manually")
	ErrInvalidPoints     = errors.New("points must be between 0 and the question's point value")
)

type ViolationResult struct {
	ViolationCount int  `json:"violation_count"`
	MaxViolations  int  `json:"max_violations"`
	Forced         bool `json:"forced"`
}

type ExamService struct {
	DB *gorm.DB
}

func NewExamService(db *gorm.DB) *ExamService {
	return &ExamService{DB: db}
}

// StartAttempt returns the student's attempt and whether this call
// created it; resuming a live attempt reports created == false.
func (s *ExamService) StartAttempt(examID, studentID uuid.UUID) (*models.ExamAttempt, bool, error) {
	var exam models.Exam
	err := s.DB.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_index ASC")
	}).Preload("TeachingAssignment").First(&exam, "id = ?", examID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrExamNotFound
		}
		return nil, false, err
	}

	if !exam.IsActive {
		return nil, false, ErrExamNotActive
	}
	if time.Now().Before(exam.StartTime) {
		return nil, false, ErrExamNotStarted
	}

	var enrollment models.ClassEnrollment
	err = s.DB.Where("student_id = ? AND class_id = ?", studentID, exam.TeachingAssignment.ClassID).
		First(&enrollment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrNotEnrolled
		}
		return nil, false, err
	}

	var existing models.ExamAttempt
	err = s.DB.Where("exam_id = ? AND student_id = ?", examID, studentID).First(&existing).Error
	if err == nil {
		if existing.IsSubmitted {
			return nil, false, ErrAlreadySubmitted
		}
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	order := make([]uuid.UUID, len(exam.Questions))
	maxScore := 0
	for i, q := range exam.Questions {
		order[i] = q.ID
		maxScore += q.Points
	}
	if exam.IsRandomized {
		rand.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}

	attempt := models.ExamAttempt{
		ID:            uuid.New(),
		ExamID:        examID,
		StudentID:     studentID,
		QuestionOrder: order,
		StartedAt:     time.Now(),
		MaxScore:      maxScore,
		Violations:    models.ViolationLog{},
	}
	if err := s.DB.Create(&attempt).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost a concurrent start race; the winner's row is the attempt.
			if err := s.DB.Where("exam_id = ? AND student_id = ?", examID, studentID).
				First(&existing).Error; err != nil {
				return nil, false, err
			}
			if existing.IsSubmitted {
				return nil, false, ErrAlreadySubmitted
			}
			return &existing, false, nil
		}
		return nil, false, err
	}

	return &attempt, true, nil
}

// AttemptQuestions returns the attempt's questions in its frozen order.
func (s *ExamService) AttemptQuestions(attempt *models.ExamAttempt) ([]models.ExamQuestion, error) {
	var questions []models.ExamQuestion
	if err := s.DB.Where("exam_id = ?", attempt.ExamID).Find(&questions).Error; err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]models.ExamQuestion, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	ordered := make([]models.ExamQuestion, 0, len(attempt.QuestionOrder))
	for _, id := range attempt.QuestionOrder {
		if q, ok := byID[id]; ok {
			ordered = append(ordered, q)
		}
	}
	return ordered, nil
}

func (s *ExamService) RecordAnswer(attemptID, studentID, questionID uuid.UUID, answerText string) error {
	attempt, err := s.ownedAttempt(s.DB, attemptID, studentID)
	if err != nil {
		return err
	}
	if attempt.IsSubmitted {
		return ErrAlreadySubmitted
	}

	var question models.ExamQuestion
	err = s.DB.Where("id = ? AND exam_id = ?", questionID, attempt.ExamID).First(&question).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrQuestionNotFound
		}
		return err
	}

	answer := models.ExamAnswer{
		ID:         uuid.New(),
		AttemptID:  attemptID,
		QuestionID: questionID,
		AnswerText: answerText,
	}
	if question.QuestionType == models.QuestionTypeMultipleChoice {
		correct := answerText == question.CorrectAnswer
		earned := 0
		if correct {
			earned = question.Points
		}
		answer.IsCorrect = &correct
		answer.PointsEarned = &earned
	}

	// Last write wins per (attempt, question).
	return s.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns(
			[]string{"answer_text", "is_correct", "points_earned", "updated_at"},
		),
	}).Create(&answer).Error
}

func (s *ExamService) RecordViolation(attemptID, studentID uuid.UUID, violationType string) (*ViolationResult, error) {
	var result ViolationResult
	var notifyForced *models.ExamAttempt

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		attempt, err := s.ownedAttempt(tx, attemptID, studentID)
		if err != nil {
			return err
		}
		if attempt.IsSubmitted {
			return ErrAlreadySubmitted
		}

		// The counter increments in the store, not in memory, so
		// concurrent reports cannot under-count.
		res := tx.Model(&models.ExamAttempt{}).
			Where("id = ? AND is_submitted = ?", attemptID, false).
			UpdateColumn("violation_count", gorm.Expr("violation_count + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadySubmitted
		}

		if err := tx.First(attempt, "id = ?", attemptID).Error; err != nil {
			return err
		}

		attempt.Violations = append(attempt.Violations, models.ViolationEntry{
			Type: violationType,
			At:   time.Now(),
		})
		if err := tx.Model(attempt).Update("violations", attempt.Violations).Error; err != nil {
			return err
		}

		var exam models.Exam
		if err := tx.Preload("TeachingAssignment").First(&exam, "id = ?", attempt.ExamID).Error; err != nil {
			return err
		}
		maxViolations := exam.MaxViolations
		if maxViolations <= 0 {
			maxViolations = models.DefaultMaxViolations
		}

		result.ViolationCount = attempt.ViolationCount
		result.MaxViolations = maxViolations

		if attempt.ViolationCount >= maxViolations {
			closed, err := finalizeAttempt(tx, attemptID)
			if err != nil {
				return err
			}
			result.Forced = closed
			if closed {
				attempt.Exam = exam
				notifyForced = attempt
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if notifyForced != nil {
		exam := notifyForced.Exam
		Notify(s.DB, exam.TeachingAssignment.TeacherID, models.NotificationExamForcedSubmit,
			"Exam auto-submitted after repeated violations",
			fmt.Sprintf("An attempt on \"%s\" was submitted automatically after reaching the violation limit.", exam.Title),
			"/teacher/exams/"+exam.ID.String()+"/submissions")
	}

	return &result, nil
}

func (s *ExamService) SubmitAttempt(attemptID, studentID uuid.UUID) (*models.ExamAttempt, error) {
	var attempt *models.ExamAttempt

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		attempt, err = s.ownedAttempt(tx, attemptID, studentID)
		if err != nil {
			return err
		}
		if attempt.IsSubmitted {
			return ErrAlreadySubmitted
		}

		closed, err := finalizeAttempt(tx, attemptID)
		if err != nil {
			return err
		}
		if !closed {
			return ErrAlreadySubmitted
		}
		return tx.First(attempt, "id = ?", attemptID).Error
	})
	if err != nil {
		return nil, err
	}

	var exam models.Exam
	if err := s.DB.Preload("TeachingAssignment").First(&exam, "id = ?", attempt.ExamID).Error; err == nil {
		Notify(s.DB, exam.TeachingAssignment.TeacherID, models.NotificationExamSubmitted,
			"Exam submission received",
			fmt.Sprintf("A student submitted their attempt on \"%s\".", exam.Title),
			"/teacher/exams/"+exam.ID.String()+"/submissions")
	} else {
		log.Printf("Could not load exam %s for submission notification: %v", attempt.ExamID, err)
	}

	return attempt, nil
}

// SweepExpiredAttempts closes every live attempt of the exam whose time
// window (duration plus grace buffer) has elapsed. Failures are isolated
// per attempt.
func (s *ExamService) SweepExpiredAttempts(examID uuid.UUID) (int, error) {
	var exam models.Exam
	if err := s.DB.First(&exam, "id = ?", examID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrExamNotFound
		}
		return 0, err
	}

	var attempts []models.ExamAttempt
	err := s.DB.Where("exam_id = ? AND is_submitted = ?", examID, false).Find(&attempts).Error
	if err != nil {
		return 0, err
	}

	window := time.Duration(exam.DurationMinutes)*time.Minute + SweepGraceBuffer
	closed := s.closeExpired(attempts, func(models.ExamAttempt) time.Duration { return window })
	return closed, nil
}

// SweepAllExpired runs the same reconciliation across every exam. Used by
// the background job so expired attempts do not linger until a teacher
// happens to open the submissions page.
func (s *ExamService) SweepAllExpired() (int, error) {
	var attempts []models.ExamAttempt
	err := s.DB.Preload("Exam").Where("is_submitted = ?", false).Find(&attempts).Error
	if err != nil {
		return 0, err
	}

	closed := s.closeExpired(attempts, func(a models.ExamAttempt) time.Duration {
		return time.Duration(a.Exam.DurationMinutes)*time.Minute + SweepGraceBuffer
	})
	return closed, nil
}

func (s *ExamService) closeExpired(attempts []models.ExamAttempt, window func(models.ExamAttempt) time.Duration) int {
	now := time.Now()
	closed := 0
	for _, attempt := range attempts {
		if !now.After(attempt.StartedAt.Add(window(attempt))) {
			continue
		}
		ok, err := finalizeAttempt(s.DB, attempt.ID)
		if err != nil {
			log.Printf("🔥 Failed to close expired attempt %s: %v", attempt.ID, err)
			continue
		}
		if ok {
			closed++
		}
	}
	return closed
}

// GradeEssayAnswer records manual points for an essay answer of a
// submitted attempt and recomputes the attempt's total score.
func (s *ExamService) GradeEssayAnswer(answerID, teacherID uuid.UUID, points int) (*models.ExamAnswer, error) {
	var answer models.ExamAnswer

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Preload("Question").First(&answer, "id = ?", answerID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAnswerNotFound
			}
			return err
		}
		if answer.Question.QuestionType != models.QuestionTypeEssay {
			return ErrNotEssayQuestion
		}
		if points < 0 || points > answer.Question.Points {
			return ErrInvalidPoints
		}

		var attempt models.ExamAttempt
		err = tx.Preload("Exam.TeachingAssignment").First(&attempt, "id = ?", answer.AttemptID).Error
		if err != nil {
			return err
		}
		if attempt.Exam.TeachingAssignment.TeacherID != teacherID {
			return ErrAnswerNotFound
		}
		if !attempt.IsSubmitted {
			return ErrAttemptInProgress
		}

		answer.PointsEarned = &points
		if err := tx.Model(&answer).Update("points_earned", points).Error; err != nil {
			return err
		}

		total, err := sumEarnedPoints(tx, attempt.ID)
		if err != nil {
			return err
		}
		return tx.Model(&attempt).Update("total_score", total).Error
	})
	if err != nil {
		return nil, err
	}

	return &answer, nil
}

func (s *ExamService) ownedAttempt(tx *gorm.DB, attemptID, studentID uuid.UUID) (*models.ExamAttempt, error) {
	var attempt models.ExamAttempt
	err := tx.Where("id = ? AND student_id = ?", attemptID, studentID).First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

// finalizeAttempt moves an attempt to its terminal state. The guard on
// is_submitted makes closing idempotent under concurrent sweeps and
// submits: only one caller observes closed == true.
func finalizeAttempt(tx *gorm.DB, attemptID uuid.UUID) (bool, error) {
	total, err := sumEarnedPoints(tx, attemptID)
	if err != nil {
		return false, err
	}

	now := time.Now()
	res := tx.Model(&models.ExamAttempt{}).
		Where("id = ? AND is_submitted = ?", attemptID, false).
		Updates(map[string]interface{}{
			"is_submitted": true,
			"submitted_at": now,
			"total_score":  total,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func sumEarnedPoints(tx *gorm.DB, attemptID uuid.UUID) (int, error) {
	var total int
	err := tx.Model(&models.ExamAnswer{}).
		Where("attempt_id = ?", attemptID).
		Select("COALESCE(SUM(points_earned), 0)").
		Scan(&total).Error
	return total, err
}

package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/somework06-coder/LMS-SEKOLAH-sub001/handlers"
	"github.com/somework06-coder/LMS-SEKOLAH-sub001/middleware"
)

func ExamRoutes(app *fiber.App, exams *handlers.ExamHandler, attempts *handlers.AttemptHandler) {
	api := app.Group("/api/v1")

	teacher := api.Group("/teacher/exams", middleware.Protected(), middleware.TeacherRequired())
	teacher.Post("", exams.CreateExam)
	teacher.Get("", exams.ListMyExams)
	teacher.Get("/:examId", exams.GetExam)
	teacher.Put("/:examId", exams.UpdateExam)
	teacher.Patch("/:examId/publish", exams.PublishExam)
	teacher.Delete("/:examId", exams.DeleteExam)

	teacher.Post("/:examId/questions", exams.AddQuestion)
	teacher.Get("/:examId/questions", exams.ListQuestions)
	teacher.Put("/:examId/questions/:questionId", exams.UpdateQuestion)
	teacher.Delete("/:examId/questions/:questionId", exams.DeleteQuestion)

	teacher.Get("/:examId/submissions", exams.ListSubmissions)
	teacher.Get("/:examId/submissions/:attemptId", exams.GetSubmission)

	grading := api.Group("/teacher/answers", middleware.Protected(), middleware.TeacherRequired())
	grading.Patch("/:answerId/grade", exams.GradeEssayAnswer)

	student := api.Group("/exams", middleware.Protected(), middleware.StudentRequired())
	student.Get("", attempts.StudentListExams)
	student.Post("/:examId/start", attempts.StartAttempt)

	attempt := api.Group("/attempts", middleware.Protected(), middleware.StudentRequired())
	attempt.Post("/:attemptId/answers", attempts.RecordAnswer)
	attempt.Post("/:attemptId/violations", attempts.RecordViolation)
	attempt.Post("/:attemptId/submit", attempts.SubmitAttempt)
	attempt.Get("/:attemptId", attempts.GetMyAttempt)
}

package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/somework06-coder/LMS-SEKOLAH-sub001/handlers"
	"github.com/somework06-coder/LMS-SEKOLAH-sub001/middleware"
)

func AssignmentRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	teacher := api.Group("/teacher/assignments", middleware.Protected(), middleware.TeacherRequired())
	teacher.Post("", handlers.CreateAssignment)
	teacher.Get("", handlers.ListMyAssignments)
	teacher.Put("/:assignmentId", handlers.UpdateAssignment)
	teacher.Delete("/:assignmentId", handlers.DeleteAssignment)
	teacher.Get("/:assignmentId/submissions", handlers.ListAssignmentSubmissions)
	teacher.Patch("/submissions/:submissionId/grade", handlers.GradeSubmission)

	student := api.Group("/assignments", middleware.Protected(), middleware.StudentRequired())
	student.Get("", handlers.StudentListAssignments)
	student.Post("/:assignmentId/submissions", handlers.SubmitAssignment)
}

package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/somework06-coder/LMS-SEKOLAH-sub001/handlers"
	"github.com/somework06-coder/LMS-SEKOLAH-sub001/middleware"
)

func AdminRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	admin := api.Group("/admin", middleware.Protected(), middleware.AdminRequired())

	users := admin.Group("/users")
	users.Post("", handlers.CreateUser)
	users.Get("", handlers.ListUsers)
	users.Get("/:userId", handlers.GetUser)
	users.Put("/:userId", handlers.UpdateUser)

	years := admin.Group("/academic-years")
	years.Post("", handlers.CreateAcademicYear)
	years.Get("", handlers.ListAcademicYears)
	years.Put("/:yearId", handlers.UpdateAcademicYear)

	subjects := admin.Group("/subjects")
	subjects.Post("", handlers.CreateSubject)
	subjects.Get("", handlers.ListSubjects)
	subjects.Put("/:subjectId", handlers.UpdateSubject)
	subjects.Delete("/:subjectId", handlers.DeleteSubject)

	classes := admin.Group("/classes")
	classes.Post("", handlers.CreateClass)
	classes.Get("", handlers.ListClasses)
	classes.Put("/:classId", handlers.UpdateClass)
	classes.Post("/:classId/enrollments", handlers.EnrollStudent)
	classes.Get("/:classId/enrollments", handlers.ListEnrollments)
	classes.Delete("/:classId/enrollments/:enrollmentId", handlers.RemoveEnrollment)

	teaching := admin.Group("/teaching-assignments")
	teaching.Post("", handlers.CreateTeachingAssignment)
	teaching.Get("", handlers.ListTeachingAssignments)
	teaching.Delete("/:assignmentId", handlers.DeleteTeachingAssignment)
}

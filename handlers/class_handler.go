package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/somework06-coder/LMS-SEKOLAH-sub001/database"
	"github.com/somework06-coder/LMS-SEKOLAH-sub001/models"
	"gorm.io/gorm"
)

type ClassRequest struct {
	Name           string `json:"name" validate:"required"`
	AcademicYearID string `json:"academic_year_id" validate:"required,uuid4"`
}

func CreateClass(c *fiber.Ctx) error {
	var req ClassRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	yearID, _ := uuid.Parse(req.AcademicYearID)
	var year models.AcademicYear
	if err := database.DB.First(&year, "id = ?", yearID).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Academic year not found"})
	}

	class := models.Class{Name: req.Name, AcademicYearID: yearID}
	if err := database.DB.Create(&class).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create class"})
	}

	return c.Status(fiber.StatusCreated).JSON(class)
}

func ListClasses(c *fiber.Ctx) error {
	query := database.DB.Preload("AcademicYear").Order("name ASC")
	if yearID := c.Query("academic_year_id"); yearID != "" {
		query = query.Where("academic_year_id = ?", yearID)
	}

	var classes []models.Class
	if err := query.Find(&classes).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}
	return c.JSON(classes)
}

func UpdateClass(c *fiber.Ctx) error {
	var class models.Class
	if err := database.DB.First(&class, "id = ?", c.Params("classId")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Class not found"})
	}

	var req ClassRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	yearID, _ := uuid.Parse(req.AcademicYearID)
	class.Name = req.Name
	class.AcademicYearID = yearID
	if err := database.DB.Save(&class).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update class"})
	}
	return c.JSON(class)
}

type TeachingAssignmentRequest struct {
	TeacherID      string `json:"teacher_id" validate:"required,uuid4"`
	ClassID        string `json:"class_id" validate:"required,uuid4"`
	SubjectID      string `json:"subject_id" validate:"required,uuid4"`
	AcademicYearID string `json:"academic_year_id" validate:"required,uuid4"`
}

func CreateTeachingAssignment(c *fiber.Ctx) error {
	var req TeachingAssignmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	teacherID, _ := uuid.Parse(req.TeacherID)
	var teacher models.User
	if err := database.DB.First(&teacher, "id = ? AND role = ?", teacherID, models.RoleTeacher).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Teacher not found"})
	}

	classID, _ := uuid.Parse(req.ClassID)
	subjectID, _ := uuid.Parse(req.SubjectID)
	yearID, _ := uuid.Parse(req.AcademicYearID)

	assignment := models.TeachingAssignment{
		TeacherID:      teacherID,
		ClassID:        classID,
		SubjectID:      subjectID,
		AcademicYearID: yearID,
	}
	if err := database.DB.Create(&assignment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Teaching assignment already exists"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create teaching assignment"})
	}

	return c.Status(fiber.StatusCreated).JSON(assignment)
}

func ListTeachingAssignments(c *fiber.Ctx) error {
	query := database.DB.Preload("Teacher").Preload("Class").Preload("Subject")
	if teacherID := c.Query("teacher_id"); teacherID != "" {
		query = query.Where("teacher_id = ?", teacherID)
	}
	if classID := c.Query("class_id"); classID != "" {
		query = query.Where("class_id = ?", classID)
	}

	var assignments []models.TeachingAssignment
	if err := query.Find(&assignments).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}
	return c.JSON(assignments)
}

func DeleteTeachingAssignment(c *fiber.Ctx) error {
	var count int64
	database.DB.Model(&models.Exam{}).Where("teaching_assignment_id = ?", c.Params("assignmentId")).Count(&count)
	if count > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Teaching assignment still has exams"})
	}

	result := database.DB.Delete(&models.TeachingAssignment{}, "id = ?", c.Params("assignmentId"))
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete teaching assignment"})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Teaching assignment not found"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type EnrollStudentRequest struct {
	StudentID      string `json:"student_id" validate:"required,uuid4"`
	AcademicYearID string `json:"academic_year_id" validate:"required,uuid4"`
}

func EnrollStudent(c *fiber.Ctx) error {
	classID, err := uuid.Parse(c.Params("classId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid class id"})
	}

	var req EnrollStudentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	studentID, _ := uuid.Parse(req.StudentID)
	var student models.User
	if err := database.DB.First(&student, "id = ? AND role = ?", studentID, models.RoleStudent).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Student not found"})
	}

	var class models.Class
	if err := database.DB.First(&class, "id = ?", classID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Class not found"})
	}

	yearID, _ := uuid.Parse(req.AcademicYearID)
	enrollment := models.ClassEnrollment{
		StudentID:      studentID,
		ClassID:        classID,
		AcademicYearID: yearID,
	}
	if err := database.DB.Create(&enrollment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Student is already enrolled in this class"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to enroll student"})
	}

	return c.Status(fiber.StatusCreated).JSON(enrollment)
}

func ListEnrollments(c *fiber.Ctx) error {
	var enrollments []models.ClassEnrollment
	err := database.DB.Preload("Student").
		Where("class_id = ?", c.Params("classId")).
		Find(&enrollments).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}
	return c.JSON(enrollments)
}

func RemoveEnrollment(c *fiber.Ctx) error {
	result := database.DB.Delete(&models.ClassEnrollment{},
		"id = ? AND class_id = ?", c.Params("enrollmentId"), c.Params("classId"))
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to remove enrollment"})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Enrollment not found"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

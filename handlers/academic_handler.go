package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/somework06-coder/LMS-SEKOLAH-sub001/database"
	"github.com/somework06-coder/LMS-SEKOLAH-sub001/models"
	"gorm.io/gorm"
)

type AcademicYearRequest struct {
	Name      string    `json:"name" validate:"required"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
	IsCurrent bool      `json:"is_current"`
}

func CreateAcademicYear(c *fiber.Ctx) error {
	var req AcademicYearRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	year := models.AcademicYear{
		Name:      req.Name,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		IsCurrent: req.IsCurrent,
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if req.IsCurrent {
			if err := tx.Model(&models.AcademicYear{}).Where("is_current = ?", true).
				Update("is_current", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(&year).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Academic year already exists"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create academic year"})
	}

	return c.Status(fiber.StatusCreated).JSON(year)
}

func ListAcademicYears(c *fiber.Ctx) error {
	var years []models.AcademicYear
	if err := database.DB.Order("start_date DESC").Find(&years).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}
	return c.JSON(years)
}

func UpdateAcademicYear(c *fiber.Ctx) error {
	var year models.AcademicYear
	if err := database.DB.First(&year, "id = ?", c.Params("yearId")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Academic year not found"})
	}

	var req AcademicYearRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if req.IsCurrent && !year.IsCurrent {
			if err := tx.Model(&models.AcademicYear{}).Where("is_current = ?", true).
				Update("is_current", false).Error; err != nil {
				return err
			}
		}
		year.Name = req.Name
		year.StartDate = req.StartDate
		year.EndDate = req.EndDate
		year.IsCurrent = req.IsCurrent
		return tx.Save(&year).Error
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update academic year"})
	}

	return c.JSON(year)
}

type SubjectRequest struct {
	Name string `json:"name" validate:"required"`
	Code string `json:"code" validate:"required,min=2,max=20"`
}

func CreateSubject(c *fiber.Ctx) error {
	var req SubjectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	subject := models.Subject{Name: req.Name, Code: req.Code}
	if err := database.DB.Create(&subject).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Subject code already exists"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create subject"})
	}

	return c.Status(fiber.StatusCreated).JSON(subject)
}

func ListSubjects(c *fiber.Ctx) error {
	var subjects []models.Subject
	if err := database.DB.Order("name ASC").Find(&subjects).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}
	return c.JSON(subjects)
}

func UpdateSubject(c *fiber.Ctx) error {
	var subject models.Subject
	if err := database.DB.First(&subject, "id = ?", c.Params("subjectId")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Subject not found"})
	}

	var req SubjectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	subject.Name = req.Name
	subject.Code = req.Code
	if err := database.DB.Save(&subject).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update subject"})
	}
	return c.JSON(subject)
}

func DeleteSubject(c *fiber.Ctx) error {
	var count int64
	database.DB.Model(&models.TeachingAssignment{}).Where("subject_id = ?", c.Params("subjectId")).Count(&count)
	if count > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Subject is still assigned to classes"})
	}

	result := database.DB.Delete(&models.Subject{}, "id = ?", c.Params("subjectId"))
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete subject"})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Subject not found"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

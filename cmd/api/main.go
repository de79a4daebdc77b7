package main

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"
	"github.com/somework06-coder/LMS-SEKOLAH-sub001/database"
	"github.com/somework06-coder/LMS-SEKOLAH-sub001/handlers"
	"github.com/somework06-coder/LMS-SEKOLAH-sub001/jobs"
	"github.com/somework06-coder/LMS-SEKOLAH-sub001/routes"
	"github.com/somework06-coder/LMS-SEKOLAH-sub001/services"
)

func main() {
	database.ConnectDB()
	database.Migrate()
	database.SeedAdmin()

	examService := services.NewExamService(database.DB)
	examHandler := handlers.NewExamHandler(examService)
	attemptHandler := handlers.NewAttemptHandler(examService)

	c := cron.New()
	c.AddFunc("*/5 * * * *", jobs.NewExamSweepJob(examService).Run)
	go c.Start()
	log.Println("✅ Cron job for exam sweep scheduled successfully.")

	app := fiber.New(fiber.Config{
		AppName:       "School LMS",
		CaseSensitive: true,
		StrictRouting: true,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  15 * time.Second,
		IdleTimeout:   60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			log.Printf("[ERROR] %v | Path: %s | Method: %s", err, c.Path(), c.Method())
			return c.Status(code).JSON(fiber.Map{
				"status":  "error",
				"code":    code,
				"message": err.Error(),
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Authorization",
		MaxAge:        86400,
	}))

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	routes.AuthRoutes(app)
	routes.AdminRoutes(app)
	routes.ExamRoutes(app, examHandler, attemptHandler)
	routes.AssignmentRoutes(app)
	routes.NotificationRoutes(app)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})

	log.Println("✅ Server is running on port 8080")
	err := app.Listen(":8080")
	if err != nil {
		log.Fatalf("🔥 Server failed to start: %v", err)
	}
}

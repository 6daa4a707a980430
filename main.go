package main

import (
	"log"

	"clubreg/config"
	"clubreg/database"
	authRoutes "clubreg/routers/authRoutes"
	enrollmentRoutes "clubreg/routers/enrollmentRoutes"
	paymentRoutes "clubreg/routers/paymentRoutes"
	"clubreg/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	config.LoadConfig()
	database.ConnectDb()

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // receipt uploads
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE",
		AllowHeaders: "Content-Type,Authorization",
	}))

	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status} ${latency}\n",
	}))

	// Stored receipts are served straight from the upload directory
	app.Static("/uploads", config.AppConfig.UploadDir)

	authRoutes.SetupAuthRoutes(app)
	enrollmentRoutes.SetupEnrollmentRoutes(app)
	paymentRoutes.SetupPaymentRoutes(app)

	utils.StartStatusSweepScheduler()

	log.Printf("Server is running on port %s", config.AppConfig.Port)
	log.Fatal(app.Listen(":" + config.AppConfig.Port))
}

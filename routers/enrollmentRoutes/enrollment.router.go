package enrollmentRoutes

import (
	enrollmentControllers "clubreg/controllers/enrollment"
	enrollmentValidators "clubreg/validators/enrollment"

	"github.com/gofiber/fiber/v2"
)

func SetupEnrollmentRoutes(app *fiber.App) {
	enrollmentGroup := app.Group("/enrollment")

	enrollmentGroup.Post("/register", enrollmentValidators.Register(), enrollmentControllers.Register)
	enrollmentGroup.Post("/complete", enrollmentValidators.Complete(), enrollmentControllers.Complete)
	enrollmentGroup.Get("/status/:dni", enrollmentControllers.GetStatus)
}

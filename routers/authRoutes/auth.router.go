package authRoutes

import (
	authControllers "clubreg/controllers/auth"
	"clubreg/middleware"
	authValidators "clubreg/validators/auth"

	"github.com/gofiber/fiber/v2"
)

func SetupAuthRoutes(app *fiber.App) {
	authGroup := app.Group("/auth")

	authGroup.Post("/login", authValidators.Login(), authControllers.Login)
	authGroup.Post("/admin", middleware.JWTMiddleware, authControllers.CreateAdmin)
}

package paymentRoutes

import (
	enrollmentControllers "clubreg/controllers/enrollment"
	paymentControllers "clubreg/controllers/payment"
	"clubreg/middleware"
	enrollmentValidators "clubreg/validators/enrollment"
	paymentValidators "clubreg/validators/payment"

	"github.com/gofiber/fiber/v2"
)

func SetupPaymentRoutes(app *fiber.App) {
	paymentGroup := app.Group("/payment")

	paymentGroup.Post("/receipt", paymentValidators.SubmitReceipt(), paymentControllers.SubmitReceipt)

	adminGroup := paymentGroup.Group("/admin", middleware.JWTMiddleware)
	adminGroup.Get("/enrollees", paymentControllers.GetEnrollees)
	adminGroup.Get("/logs/:dni", paymentControllers.GetPaymentLogs)
	adminGroup.Post("/price-cells", enrollmentValidators.PriceCells(), enrollmentControllers.UpsertPriceCells)
}

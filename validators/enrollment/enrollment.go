package enrollmentValidator

import (
	"clubreg/middleware"
	"clubreg/models"
	"clubreg/services/identity"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// MemberInput is one person in a registration: the principal or a linked
// family member stub
type MemberInput struct {
	DNI       string `json:"dni" validate:"required"`
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone" validate:"omitempty,max=30"`
}

// RegisterRequest is the intake payload: principal choices plus family stubs
type RegisterRequest struct {
	Principal     MemberInput   `json:"principal" validate:"required"`
	Schedule      string        `json:"schedule" validate:"required,oneof=JORNADA_NORMAL JORNADA_EXTENDIDA"`
	PaymentMethod string        `json:"paymentMethod" validate:"required,oneof=CASH_AT_OFFICE BANK_TRANSFER INSTALLMENTS"`
	IsMember      bool          `json:"isMember"`
	Family        []MemberInput `json:"family" validate:"omitempty,max=5,dive"`
}

// CompleteRequest is a linked member completing their own profile and price
type CompleteRequest struct {
	DNI           string `json:"dni" validate:"required"`
	Schedule      string `json:"schedule" validate:"required,oneof=JORNADA_NORMAL JORNADA_EXTENDIDA"`
	PaymentMethod string `json:"paymentMethod" validate:"required,oneof=CASH_AT_OFFICE BANK_TRANSFER INSTALLMENTS"`
	IsMember      bool   `json:"isMember"`
	Email         string `json:"email" validate:"omitempty,email"`
	Phone         string `json:"phone" validate:"omitempty,max=30"`
}

// Register validates the intake payload and normalizes every DNI
func Register() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(RegisterRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)
		if err := validate.Struct(reqData); err != nil {
			for _, fe := range err.(validator.ValidationErrors) {
				errors[fe.Field()] = "Invalid value for " + fe.Field() + "!"
			}
		}

		if dni, ok := identity.Normalize(reqData.Principal.DNI); ok {
			reqData.Principal.DNI = dni
		} else {
			errors["dni"] = "Principal DNI must be 7 or 8 digits!"
		}
		for i := range reqData.Family {
			if dni, ok := identity.Normalize(reqData.Family[i].DNI); ok {
				reqData.Family[i].DNI = dni
			} else {
				errors["family"] = "Every family member DNI must be 7 or 8 digits!"
			}
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedRegister", reqData)
		return c.Next()
	}
}

// Complete validates a family member's profile completion payload
func Complete() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(CompleteRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)
		if err := validate.Struct(reqData); err != nil {
			for _, fe := range err.(validator.ValidationErrors) {
				errors[fe.Field()] = "Invalid value for " + fe.Field() + "!"
			}
		}

		if dni, ok := identity.Normalize(reqData.DNI); ok {
			reqData.DNI = dni
		} else {
			errors["dni"] = "DNI must be 7 or 8 digits!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedComplete", reqData)
		return c.Next()
	}
}

// PriceCells validates the admin price-grid upsert payload
func PriceCells() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Cells []struct {
				Column string `json:"column" validate:"required,oneof=E F G H"`
				Row    int    `json:"row" validate:"required,min=17,max=49"`
				Value  string `json:"value" validate:"required"`
			} `json:"cells" validate:"required,min=1,dive"`
		})
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		if err := validate.Struct(reqData); err != nil {
			errors := make(map[string]string)
			for _, fe := range err.(validator.ValidationErrors) {
				errors[fe.Field()] = "Invalid value for " + fe.Field() + "!"
			}
			return middleware.ValidationErrorResponse(c, errors)
		}

		cells := make([]models.PriceCell, 0, len(reqData.Cells))
		for _, cell := range reqData.Cells {
			cells = append(cells, models.PriceCell{Column: cell.Column, Row: cell.Row, Value: cell.Value})
		}
		c.Locals("validatedPriceCells", cells)
		return c.Next()
	}
}

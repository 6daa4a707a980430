package paymentValidator

import (
	"regexp"
	"strconv"
	"strings"

	"clubreg/middleware"
	"clubreg/services/identity"
	"clubreg/services/reconcile"

	"github.com/gofiber/fiber/v2"
)

var payerDNIPattern = regexp.MustCompile(`^[0-9]{8}$`)

// SubmitReceiptRequest is the validated payload of a receipt submission
type SubmitReceiptRequest struct {
	DNI            string
	Tags           reconcile.TagSet
	PayerName      string
	PayerDNI       string
	ReportedAmount string
	SubMethod      string
	IsFamily       bool
}

// SubmitReceipt validates the multipart receipt form before any mutation.
// Field problems come back as a 4xx with a field-error map; nothing is
// written to storage until every check passes.
func SubmitReceipt() fiber.Handler {
	return func(c *fiber.Ctx) error {
		errors := make(map[string]string)

		dni, ok := identity.Normalize(c.FormValue("dni"))
		if !ok {
			errors["dni"] = "Missing or invalid enrollee DNI!"
		}

		if _, err := c.FormFile("receipt"); err != nil {
			errors["receipt"] = "Receipt file is required!"
		}

		tags, unknown := reconcile.ParseTags(c.FormValue("tags"))
		if len(unknown) > 0 {
			errors["tags"] = "Unknown tags: " + strings.Join(unknown, ", ")
		} else if len(tags) == 0 {
			errors["tags"] = "At least one installment tag is required!"
		}

		payerName := strings.TrimSpace(c.FormValue("payerName"))
		payerDNI := strings.TrimSpace(c.FormValue("payerDni"))
		if payerName == "" || payerDNI == "" {
			errors["payer"] = "Payer name and DNI are required!"
		} else if !payerDNIPattern.MatchString(payerDNI) {
			errors["payerDni"] = "Payer DNI must be exactly 8 digits!"
		}

		amount := strings.TrimSpace(c.FormValue("amount"))
		if amount != "" {
			if v, err := strconv.ParseFloat(amount, 64); err != nil || v <= 0 {
				errors["amount"] = "Reported amount must be a positive number!"
			}
		} else {
			errors["amount"] = "Reported receipt amount is required!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedReceipt", &SubmitReceiptRequest{
			DNI:            dni,
			Tags:           tags,
			PayerName:      payerName,
			PayerDNI:       payerDNI,
			ReportedAmount: amount,
			SubMethod:      strings.TrimSpace(c.FormValue("subMethod")),
			IsFamily:       c.FormValue("family") == "true" || c.FormValue("family") == "1",
		})
		return c.Next()
	}
}

package enrollmentController

import (
	"fmt"
	"log"
	"strings"
	"time"

	"clubreg/config"
	"clubreg/database"
	"clubreg/middleware"
	"clubreg/models"
	"clubreg/services/identity"
	"clubreg/services/pricing"
	enrollmentValidator "clubreg/validators/enrollment"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jinzhu/now"
	"gorm.io/gorm"
)

// seasonOpen checks the configured enrollment window. An unset window keeps
// enrollment open all year.
func seasonOpen() bool {
	cfg := config.AppConfig
	if cfg.SeasonStart == "" || cfg.SeasonEnd == "" {
		return true
	}
	start, err := time.Parse("2006-01-02", cfg.SeasonStart)
	if err != nil {
		log.Printf("Bad SEASON_START %q: %v", cfg.SeasonStart, err)
		return true
	}
	end, err := time.Parse("2006-01-02", cfg.SeasonEnd)
	if err != nil {
		log.Printf("Bad SEASON_END %q: %v", cfg.SeasonEnd, err)
		return true
	}
	today := time.Now()
	return !today.Before(now.New(start).BeginningOfDay()) && !today.After(now.New(end).EndOfDay())
}

// Register creates the principal's record and a stub per linked family
// member. Group pricing for the principal: the tier equals the number of
// linked members, clamped to 2. Stubs carry no price; each member completes
// their own profile (and stepped price) later.
func Register(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedRegister").(*enrollmentValidator.RegisterRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	if !seasonOpen() {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Enrollment is closed for this season!", nil)
	}

	db := database.Database.Db

	// Reject duplicates before creating anything
	allDNIs := []string{reqData.Principal.DNI}
	for _, m := range reqData.Family {
		allDNIs = append(allDNIs, m.DNI)
	}
	var existing int64
	db.Model(&models.Enrollee{}).Where("dni IN ? AND is_deleted = ?", allDNIs, false).Count(&existing)
	if existing > 0 {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "One of the DNIs is already enrolled!", nil)
	}

	familyLink := ""
	if len(reqData.Family) > 0 {
		familyLink = uuid.NewString()
	}

	tier := len(reqData.Family)
	if tier > 2 {
		tier = 2
	}
	quote := pricing.Resolve(db, pricing.Input{
		Schedule:   models.Schedule(reqData.Schedule),
		Method:     models.PaymentMethod(reqData.PaymentMethod),
		IsMember:   reqData.IsMember,
		OrderIndex: tier,
	})
	if quote.Price == 0 {
		log.Printf("Intake for %s got a zero quote; price grid may be incomplete", reqData.Principal.DNI)
	}

	tx := db.Begin()

	nextTurn := nextTurnNumber(tx)

	principal := models.Enrollee{
		DNI:             reqData.Principal.DNI,
		FirstName:       reqData.Principal.FirstName,
		LastName:        reqData.Principal.LastName,
		Email:           reqData.Principal.Email,
		Phone:           reqData.Principal.Phone,
		Schedule:        models.Schedule(reqData.Schedule),
		PaymentMethod:   models.PaymentMethod(reqData.PaymentMethod),
		IsMember:        reqData.IsMember,
		Price:           quote.Price,
		AmountDue:       quote.AmountDue,
		InstallmentPlan: quote.Installments,
		PaymentStatus:   initialStatus(quote.Installments),
		FamilyLink:      familyLink,
		TurnNumber:      nextTurn,
	}
	if err := tx.Create(&principal).Error; err != nil {
		tx.Rollback()
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create enrollment!", nil)
	}

	stubs := make([]models.Enrollee, 0, len(reqData.Family))
	for i, m := range reqData.Family {
		stub := models.Enrollee{
			DNI:        m.DNI,
			FirstName:  m.FirstName,
			LastName:   m.LastName,
			Email:      m.Email,
			Phone:      m.Phone,
			FamilyLink: familyLink,
			TurnNumber: nextTurn + 1 + i,
		}
		if err := tx.Create(&stub).Error; err != nil {
			tx.Rollback()
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create family records!", nil)
		}
		stubs = append(stubs, stub)
	}

	tx.Commit()

	warning := ""
	if quote.Price == 0 {
		warning = " Price could not be resolved, the club will confirm the amount."
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollment registered successfully!"+warning, fiber.Map{
		"principal":  principal,
		"family":     stubs,
		"familyLink": familyLink,
		"price":      quote.Price,
		"amountDue":  quote.AmountDue,
	})
}

// Complete fills a linked member's own profile and price. Stepped pricing:
// the member's tier is their position in the family ordered by intake turn,
// clamped to 2, independent of the principal's tier.
func Complete(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedComplete").(*enrollmentValidator.CompleteRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	db := database.Database.Db

	var e models.Enrollee
	if err := db.Where("dni = ? AND is_deleted = ?", reqData.DNI, false).First(&e).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false,
			fmt.Sprintf("No enrollment found for DNI %s.", reqData.DNI), nil)
	}

	orderIndex := pricing.OrderIndex(db, &e)
	quote := pricing.Resolve(db, pricing.Input{
		Schedule:   models.Schedule(reqData.Schedule),
		Method:     models.PaymentMethod(reqData.PaymentMethod),
		IsMember:   reqData.IsMember,
		OrderIndex: orderIndex,
	})
	if quote.Price == 0 {
		log.Printf("Completion for %s got a zero quote; price grid may be incomplete", e.DNI)
	}

	e.Schedule = models.Schedule(reqData.Schedule)
	e.PaymentMethod = models.PaymentMethod(reqData.PaymentMethod)
	e.IsMember = reqData.IsMember
	if reqData.Email != "" {
		e.Email = reqData.Email
	}
	if reqData.Phone != "" {
		e.Phone = reqData.Phone
	}
	e.Price = quote.Price
	e.AmountDue = quote.AmountDue
	e.InstallmentPlan = quote.Installments
	if e.PaymentStatus == "" {
		e.PaymentStatus = initialStatus(quote.Installments)
	}

	if err := db.Save(&e).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update enrollment!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Profile completed successfully!", fiber.Map{
		"enrollee":   e,
		"orderIndex": orderIndex,
		"price":      quote.Price,
		"amountDue":  quote.AmountDue,
	})
}

// GetStatus validates a DNI and returns the record's payment summary
func GetStatus(c *fiber.Ctx) error {
	dni, ok := identity.Normalize(c.Params("dni"))
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "DNI must be 7 or 8 digits!", nil)
	}

	var e models.Enrollee
	if err := database.Database.Db.Where("dni = ? AND is_deleted = ?", dni, false).First(&e).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false,
			fmt.Sprintf("No enrollment found for DNI %s.", dni), nil)
	}

	plan := e.InstallmentPlan
	var paid []string
	for i := 1; i <= plan && i <= 3; i++ {
		if strings.TrimSpace(e.InstallmentReceipt(i)) != "" {
			paid = append(paid, fmt.Sprintf("inst_%d", i))
		}
	}
	remaining := plan - len(paid)
	if remaining < 0 {
		remaining = 0
	}
	complete := (plan > 0 && len(paid) >= plan) || strings.TrimSpace(e.LumpReceipt) != ""

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollment found!", fiber.Map{
		"firstName":             e.FirstName,
		"lastName":              e.LastName,
		"schedule":              e.Schedule,
		"paymentMethod":         e.PaymentMethod,
		"installmentPlan":       plan,
		"paymentStatus":         e.PaymentStatus,
		"isComplete":            complete,
		"installmentsPaid":      paid,
		"installmentsRemaining": remaining,
		"isFamilyLinked":        e.FamilyLink != "",
	})
}

// UpsertPriceCells updates the price grid (admin)
func UpsertPriceCells(c *fiber.Ctx) error {
	if _, ok := c.Locals("adminId").(uint); !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	cells, ok := c.Locals("validatedPriceCells").([]models.PriceCell)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	db := database.Database.Db
	for _, cell := range cells {
		var existing models.PriceCell
		err := db.Where("\"column\" = ? AND row = ?", cell.Column, cell.Row).First(&existing).Error
		if err == nil {
			existing.Value = cell.Value
			if err := db.Save(&existing).Error; err != nil {
				return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update price cell!", nil)
			}
			continue
		}
		if err := db.Create(&cell).Error; err != nil {
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create price cell!", nil)
		}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Price grid updated successfully!", fiber.Map{
		"updated": len(cells),
	})
}

// initialStatus is the display status a record starts with
func initialStatus(installments int) string {
	if installments > 0 {
		return fmt.Sprintf("Pendiente (%d Cuotas)", installments)
	}
	return ""
}

// nextTurnNumber allocates the next intake sequence number
func nextTurnNumber(tx *gorm.DB) int {
	var maxTurn int
	tx.Model(&models.Enrollee{}).Select("COALESCE(MAX(turn_number), 0)").Scan(&maxTurn)
	return maxTurn + 1
}

package paymentController

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"clubreg/config"
	"clubreg/database"
	"clubreg/middleware"
	"clubreg/models"
	"clubreg/services/locker"
	"clubreg/services/reconcile"
	"clubreg/utils"
	paymentValidator "clubreg/validators/payment"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// paymentLock serializes submissions against the shared store: no two
// payments may interleave their reads and writes, whatever the target DNI.
var paymentLock = locker.New()

// SubmitReceipt applies one uploaded receipt to the target record and, for
// family payments, to every linked record. The upload happens before any
// record mutation; record writes are sequential and are not rolled back if a
// later sibling write fails.
func SubmitReceipt(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedReceipt").(*paymentValidator.SubmitReceiptRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	timeout := time.Duration(config.AppConfig.LockTimeoutMs) * time.Millisecond
	if err := paymentLock.Acquire(timeout); err != nil {
		return middleware.JsonResponse(c, fiber.StatusServiceUnavailable, false, "Payment service is busy, try again shortly!", nil)
	}
	defer paymentLock.Release()

	db := database.Database.Db

	target, err := reconcile.FindByDNI(db, reqData.DNI)
	if err != nil {
		if errors.Is(err, reconcile.ErrNotFound) {
			return middleware.JsonResponse(c, fiber.StatusNotFound, false,
				fmt.Sprintf("No enrollment found for DNI %s. Check the enrollee's DNI.", reqData.DNI), nil)
		}
		log.Printf("Receipt submission lookup failed: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Server error while processing the receipt!", nil)
	}

	// Dry-run derivation: the file name encodes the status the submission
	// will produce, computed before anything is written.
	statusForName, err := reconcile.DryRun(db, reqData.DNI, reqData.Tags, reqData.IsFamily)
	if err != nil {
		log.Printf("Receipt dry-run failed for %s: %v", reqData.DNI, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Server error while processing the receipt!", nil)
	}

	file, err := c.FormFile("receipt")
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Receipt file is required!", nil)
	}

	filename := utils.BuildReceiptName(target, reqData.Tags, statusForName, file.Filename, reqData.IsFamily)
	receiptLink, err := utils.SaveReceipt(file, target.DNI, filename)
	if err != nil {
		log.Printf("Receipt upload failed for %s: %v", target.DNI, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to store the receipt file!", nil)
	}

	result, err := reconcile.Apply(db, reconcile.Request{
		DNI:            reqData.DNI,
		ReceiptLink:    receiptLink,
		Tags:           reqData.Tags,
		Payer:          reconcile.Payer{Name: reqData.PayerName, DNI: reqData.PayerDNI},
		IsFamily:       reqData.IsFamily,
		ReportedAmount: reqData.ReportedAmount,
		SubMethod:      reqData.SubMethod,
	})
	if err != nil {
		log.Printf("Receipt reconciliation failed for %s: %v", reqData.DNI, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Server error while processing the receipt!", nil)
	}

	// Audit row, append-only; never read by the reconciler
	logEntry := models.PaymentLog{
		EnrolleeDNI:    reqData.DNI,
		Tags:           reqData.Tags.Join(","),
		PayerName:      reqData.PayerName,
		PayerDNI:       reqData.PayerDNI,
		ReportedAmount: reqData.ReportedAmount,
		ReceiptLink:    receiptLink,
		IsFamily:       reqData.IsFamily,
		ResultStatus:   result.Principal.Aggregate,
		MembersTouched: result.MembersTouched,
		SubmittedAt:    time.Now(),
	}
	if err := db.Create(&logEntry).Error; err != nil {
		log.Printf("Payment audit row failed for %s: %v", reqData.DNI, err)
	}

	summary := composeSummary(db, reqData.DNI)
	message := composeMessage(result, reqData.IsFamily)

	if summary.Complete {
		go utils.NotifyPaymentCompleted(utils.PaymentCompletedEvent{
			DNI:             target.DNI,
			FirstName:       target.FirstName,
			LastName:        target.LastName,
			AggregateStatus: result.Principal.Aggregate,
			IsFamily:        reqData.IsFamily,
		})
		go func(email, first, last string) {
			if err := utils.SendEnrollmentCompleteEmail(email, first, last); err != nil {
				log.Printf("Completion email failed for %s: %v", last, err)
			}
		}(target.Email, target.FirstName, target.LastName)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, message, fiber.Map{
		"aggregateStatus":       result.Principal.Aggregate,
		"isComplete":            summary.Complete,
		"installmentsPaid":      summary.PaidTags,
		"installmentsRemaining": summary.Remaining,
	})
}

// paymentSummary is the outward-facing completion state, derived from the
// stored receipt links after all writes
type paymentSummary struct {
	Complete  bool
	PaidTags  []string
	Remaining int
}

// composeSummary re-reads the record and derives what the caller sees. The
// read happens after the reconciliation writes so the summary reflects the
// stored evidence, not in-memory state.
func composeSummary(db *gorm.DB, dni string) paymentSummary {
	e, err := reconcile.FindByDNI(db, dni)
	if err != nil {
		log.Printf("Summary re-read failed for %s: %v", dni, err)
		return paymentSummary{}
	}

	plan := e.InstallmentPlan
	if plan < 1 {
		if e.PaymentMethod == models.PaymentMethodInstallments {
			plan = 3
		} else {
			plan = 0
		}
	}

	var paidTags []string
	for i := 1; i <= 3; i++ {
		if strings.TrimSpace(e.InstallmentReceipt(i)) == "" {
			continue
		}
		// Slots past the registered plan are ignored
		if plan == 2 && i == 3 {
			continue
		}
		if plan == 1 && i != 1 {
			continue
		}
		paidTags = append(paidTags, string(reconcile.InstallmentTag(i)))
	}

	remaining := plan - len(paidTags)
	if remaining < 0 {
		remaining = 0
	}

	complete := (plan > 0 && len(paidTags) >= plan) || strings.TrimSpace(e.LumpReceipt) != ""

	return paymentSummary{Complete: complete, PaidTags: paidTags, Remaining: remaining}
}

// composeMessage builds the human-readable outcome line
func composeMessage(result reconcile.Result, isFamily bool) string {
	names := make([]string, 0, len(result.Principal.PaidNow))
	for _, slot := range result.Principal.PaidNow {
		names = append(names, fmt.Sprintf("Installment %d", slot))
	}

	if isFamily && result.MembersTouched > 1 {
		if result.Principal.Complete {
			return fmt.Sprintf("Family payment recorded for %d enrollees. Enrollment complete!", result.MembersTouched)
		}
		return fmt.Sprintf("Payment of %s recorded for %d enrollees.", strings.Join(names, " and "), result.MembersTouched)
	}

	if result.Principal.Complete {
		return "Enrollment complete! All payments have been received."
	}

	remaining := result.Principal.PlanSize - result.Principal.PaidCount
	if remaining > 0 {
		plural := ""
		if remaining > 1 {
			plural = "s"
		}
		return fmt.Sprintf("Payment of %s recorded. %d installment%s remaining.", strings.Join(names, " and "), remaining, plural)
	}
	return fmt.Sprintf("Payment of %s recorded.", strings.Join(names, " and "))
}

// GetEnrollees returns the paginated payment overview for the admin panel
func GetEnrollees(c *fiber.Ctx) error {
	if _, ok := c.Locals("adminId").(uint); !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	db := database.Database.Db.Model(&models.Enrollee{}).Where("is_deleted = ?", false)
	if dni := c.Query("dni"); dni != "" {
		db = db.Where("dni = ?", dni)
	}
	if familyLink := c.Query("familyLink"); familyLink != "" {
		db = db.Where("family_link = ?", familyLink)
	}

	var total int64
	db.Count(&total)

	var enrollees []models.Enrollee
	if err := db.Offset(offset).Limit(limit).Order("turn_number asc").Find(&enrollees).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch enrollees!", nil)
	}

	response := map[string]interface{}{
		"enrollees": enrollees,
		"pagination": map[string]interface{}{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollees fetched successfully!", response)
}

// GetPaymentLogs returns the audit trail for one DNI
func GetPaymentLogs(c *fiber.Ctx) error {
	if _, ok := c.Locals("adminId").(uint); !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	dni := c.Params("dni")
	var logs []models.PaymentLog
	if err := database.Database.Db.Where("enrollee_dni = ?", dni).
		Order("submitted_at desc").Find(&logs).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch payment logs!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Payment logs fetched successfully!", logs)
}

package utils

import (
	"clubreg/database"
	"clubreg/models"
	"clubreg/services/reconcile"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// logScheduler logs scheduler events with timestamp
func logScheduler(message string) {
	log.Printf("[STATUS-SWEEP %s] %s", time.Now().Format(time.RFC3339), message)
}

// StartStatusSweepScheduler rebuilds every installment payer's aggregate
// status from its receipt links once a day. Receipt presence is the ground
// truth, so the sweep heals any display drift left behind by a submission
// that failed halfway through a family fan-out.
func StartStatusSweepScheduler() {
	c := cron.New()

	// Every day at 04:30
	_, err := c.AddFunc("30 4 * * *", func() {
		logScheduler("Starting aggregate status sweep...")
		ResweepStatuses()
	})
	if err != nil {
		log.Fatalf("Failed to schedule status sweep: %v", err)
	}

	c.Start()
	logScheduler("Status sweep scheduler started.")
}

// ResweepStatuses re-derives PaymentStatus for every installment payer. No
// receipt links, flags or payer history are touched; only the display string.
func ResweepStatuses() {
	db := database.Database.Db

	var enrollees []models.Enrollee
	if err := db.Where("payment_method = ? AND is_deleted = ?", models.PaymentMethodInstallments, false).
		Find(&enrollees).Error; err != nil {
		logScheduler("Sweep query failed: " + err.Error())
		return
	}

	updated := 0
	for i := range enrollees {
		e := &enrollees[i]
		snap := reconcile.SnapshotOf(e)
		if snap.PlanSize < 1 {
			snap.PlanSize = 3
		}
		d := reconcile.Derive(snap, nil, false)
		if d.Aggregate == e.PaymentStatus || d.Aggregate == "" {
			continue
		}
		if err := db.Model(e).Update("payment_status", d.Aggregate).Error; err != nil {
			logScheduler("Sweep update failed for " + e.DNI + ": " + err.Error())
			continue
		}
		updated++
	}

	logScheduler(fmt.Sprintf("Sweep finished, %d records updated.", updated))
}

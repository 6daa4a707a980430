package utils

import (
	"clubreg/config"
	"log"
	"time"

	"github.com/go-resty/resty/v2"
)

// PaymentCompletedEvent is posted to the configured webhook when a record's
// payments complete
type PaymentCompletedEvent struct {
	DNI             string `json:"dni"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	AggregateStatus string `json:"aggregateStatus"`
	IsFamily        bool   `json:"isFamily"`
	CompletedAt     string `json:"completedAt"`
}

// NotifyPaymentCompleted posts the completion event to the configured webhook.
// Best effort: failures are logged, never surfaced to the submitting user.
func NotifyPaymentCompleted(event PaymentCompletedEvent) {
	url := config.AppConfig.PaymentWebhookURL
	if url == "" {
		return
	}
	event.CompletedAt = time.Now().Format(time.RFC3339)

	client := resty.New().SetTimeout(10 * time.Second)
	resp, err := client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(event).
		Post(url)
	if err != nil {
		log.Printf("Payment webhook failed for %s: %v", event.DNI, err)
		return
	}
	if resp.IsError() {
		log.Printf("Payment webhook for %s returned %d", event.DNI, resp.StatusCode())
	}
}

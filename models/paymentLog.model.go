package models

import (
	"time"

	"gorm.io/gorm"
)

// PaymentLog is an append-only audit row, one per accepted receipt submission.
// The reconciler never reads this table; record state is derived from receipt
// links on the enrollee rows themselves.
type PaymentLog struct {
	gorm.Model
	EnrolleeDNI    string    `gorm:"type:varchar(8);index;not null" json:"enrolleeDni"`
	Tags           string    `gorm:"type:varchar(100);not null" json:"tags"` // comma-joined installment tags
	PayerName      string    `gorm:"type:varchar(200);not null" json:"payerName"`
	PayerDNI       string    `gorm:"type:varchar(8);not null" json:"payerDni"`
	ReportedAmount string    `gorm:"type:varchar(30)" json:"reportedAmount"`
	ReceiptLink    string    `gorm:"type:text;not null" json:"receiptLink"`
	IsFamily       bool      `gorm:"default:false" json:"isFamily"`
	ResultStatus   string    `gorm:"type:text" json:"resultStatus"` // aggregate status after reconciliation
	MembersTouched int       `gorm:"default:1" json:"membersTouched"`
	SubmittedAt    time.Time `gorm:"not null" json:"submittedAt"`
}

func (PaymentLog) TableName() string {
	return "payment_logs"
}

package models

import (
	"gorm.io/gorm"
)

// PaymentMethod defines how an enrollee chose to pay the season fee
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH_AT_OFFICE"
	PaymentMethodTransfer     PaymentMethod = "BANK_TRANSFER"
	PaymentMethodInstallments PaymentMethod = "INSTALLMENTS"
	PaymentMethodUnset        PaymentMethod = ""
)

// Label returns the display form used in receipt file names and listings
func (m PaymentMethod) Label() string {
	switch m {
	case PaymentMethodCash:
		return "Pago Efectivo (Adm del Club)"
	case PaymentMethodTransfer:
		return "Transferencia"
	case PaymentMethodInstallments:
		return "Pago en Cuotas"
	default:
		return "Pago"
	}
}

// Schedule is the weekly attendance band chosen at intake
type Schedule string

const (
	ScheduleNormal   Schedule = "JORNADA_NORMAL"
	ScheduleExtended Schedule = "JORNADA_EXTENDIDA"
)

// InstallmentState is a display derivative only. Whether an installment is
// actually paid is decided by the presence of its receipt link, never by this flag.
type InstallmentState string

const (
	InstallmentUnpaid        InstallmentState = ""
	InstallmentPendingReview InstallmentState = "PENDING_REVIEW"
	InstallmentPaid          InstallmentState = "PAID"
)

// Enrollee is one enrolled person in the seasonal program
type Enrollee struct {
	gorm.Model
	DNI       string `gorm:"type:varchar(8);uniqueIndex;not null" json:"dni"`
	FirstName string `gorm:"type:varchar(100);not null" json:"firstName"`
	LastName  string `gorm:"type:varchar(100);not null" json:"lastName"`
	Email     string `gorm:"type:varchar(255)" json:"email"`
	Phone     string `gorm:"type:varchar(30)" json:"phone"`

	Schedule      Schedule      `gorm:"type:varchar(30)" json:"schedule"`
	PaymentMethod PaymentMethod `gorm:"type:varchar(30)" json:"paymentMethod"`
	IsMember      bool          `gorm:"default:false" json:"isMember"`

	// Pricing, resolved at intake (principal) or at profile completion (siblings)
	Price                float64 `gorm:"default:0" json:"price"`
	AmountDue            float64 `gorm:"default:0" json:"amountDue"`
	InstallmentPlan      int     `gorm:"default:0" json:"installmentPlan"` // 0 means lump-sum payer
	InstallmentSubMethod string  `gorm:"type:varchar(50)" json:"installmentSubMethod"`
	ReportedAmount       string  `gorm:"type:varchar(30)" json:"reportedAmount"` // declared on the last receipt

	// Installment display flags. Never authoritative, see InstallmentState.
	InstallmentState1 InstallmentState `gorm:"type:varchar(20)" json:"installmentState1"`
	InstallmentState2 InstallmentState `gorm:"type:varchar(20)" json:"installmentState2"`
	InstallmentState3 InstallmentState `gorm:"type:varchar(20)" json:"installmentState3"`

	// Receipt links. A non-empty link is the ground truth for "paid".
	InstallmentReceipt1 string `gorm:"type:text" json:"installmentReceipt1"`
	InstallmentReceipt2 string `gorm:"type:text" json:"installmentReceipt2"`
	InstallmentReceipt3 string `gorm:"type:text" json:"installmentReceipt3"`
	LumpReceipt         string `gorm:"type:text" json:"lumpReceipt"`

	// Derived display string, rebuilt on every reconciliation
	PaymentStatus string `gorm:"type:text" json:"paymentStatus"`

	// Append-only, comma-joined payer history
	PayerNames string `gorm:"type:text" json:"payerNames"`
	PayerDNIs  string `gorm:"type:text" json:"payerDNIs"`

	// Family linkage: shared id minted at intake, intake sequence for tiering
	FamilyLink string `gorm:"type:varchar(36);index" json:"familyLink"`
	TurnNumber int    `gorm:"not null;default:0" json:"turnNumber"`

	IsDeleted bool `gorm:"default:false" json:"isDeleted"`
}

func (Enrollee) TableName() string {
	return "enrollees"
}

// InstallmentReceipt returns the receipt link for slot 1..3
func (e *Enrollee) InstallmentReceipt(i int) string {
	switch i {
	case 1:
		return e.InstallmentReceipt1
	case 2:
		return e.InstallmentReceipt2
	case 3:
		return e.InstallmentReceipt3
	}
	return ""
}

// SetInstallmentReceipt sets the receipt link for slot 1..3
func (e *Enrollee) SetInstallmentReceipt(i int, link string) {
	switch i {
	case 1:
		e.InstallmentReceipt1 = link
	case 2:
		e.InstallmentReceipt2 = link
	case 3:
		e.InstallmentReceipt3 = link
	}
}

// SetInstallmentState sets the display flag for slot 1..3
func (e *Enrollee) SetInstallmentState(i int, s InstallmentState) {
	switch i {
	case 1:
		e.InstallmentState1 = s
	case 2:
		e.InstallmentState2 = s
	case 3:
		e.InstallmentState3 = s
	}
}

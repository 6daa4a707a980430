package reconcile

import (
	"path/filepath"
	"testing"

	"clubreg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Enrollee{}))
	return db
}

func seedEnrollee(t *testing.T, db *gorm.DB, e models.Enrollee) models.Enrollee {
	t.Helper()
	require.NoError(t, db.Create(&e).Error)
	return e
}

func mustTags(t *testing.T, raw string) TagSet {
	t.Helper()
	set, unknown := ParseTags(raw)
	require.Empty(t, unknown)
	return set
}

func TestApplySoloInstallment(t *testing.T) {
	db := openTestDB(t)
	seedEnrollee(t, db, models.Enrollee{
		DNI: "30111222", FirstName: "Ana", LastName: "Suarez",
		PaymentMethod: models.PaymentMethodInstallments, InstallmentPlan: 3,
		TurnNumber: 1,
	})

	res, err := Apply(db, Request{
		DNI:         "30111222",
		ReceiptLink: "https://club.example/receipts/30111222/c1.jpg",
		Tags:        mustTags(t, "inst_1"),
		Payer:       Payer{Name: "Jorge Suarez", DNI: "21000333"},
	})
	require.NoError(t, err)

	assert.False(t, res.Principal.Complete)
	assert.Equal(t, 1, res.MembersTouched)
	assert.Equal(t, "C1 Pagada, C2 Pendiente, C3 Pendiente", res.Principal.Aggregate)
	assert.Equal(t, []int{1}, res.Principal.PaidNow)

	stored, err := FindByDNI(db, "30111222")
	require.NoError(t, err)
	assert.Equal(t, "https://club.example/receipts/30111222/c1.jpg", stored.InstallmentReceipt1)
	assert.Empty(t, stored.InstallmentReceipt2)
	assert.Equal(t, models.InstallmentPendingReview, stored.InstallmentState1)
	assert.Equal(t, "Jorge Suarez", stored.PayerNames)
	assert.Equal(t, "21000333", stored.PayerDNIs)
}

func TestApplyCompletesPlan(t *testing.T) {
	db := openTestDB(t)
	seedEnrollee(t, db, models.Enrollee{
		DNI: "30111222", FirstName: "Ana", LastName: "Suarez",
		PaymentMethod: models.PaymentMethodInstallments, InstallmentPlan: 3,
		InstallmentReceipt1: "link-c1", PaymentStatus: "C1 Pagada, C2 Pendiente, C3 Pendiente",
		PayerNames: "Jorge Suarez", PayerDNIs: "21000333",
	})

	res, err := Apply(db, Request{
		DNI:         "30111222",
		ReceiptLink: "link-c2c3",
		Tags:        mustTags(t, "inst_2,inst_3"),
		Payer:       Payer{Name: "Marta Suarez", DNI: "22000444"},
	})
	require.NoError(t, err)

	assert.True(t, res.Principal.Complete)
	assert.Equal(t, "C1 Pagada, C2 Pagada, C3 Pagada", res.Principal.Aggregate)

	stored, err := FindByDNI(db, "30111222")
	require.NoError(t, err)
	// one receipt covering two installments lands in both slots
	assert.Equal(t, "link-c2c3", stored.InstallmentReceipt2)
	assert.Equal(t, "link-c2c3", stored.InstallmentReceipt3)
	assert.Equal(t, models.InstallmentPaid, stored.InstallmentState1)
	assert.Equal(t, models.InstallmentPaid, stored.InstallmentState2)
	assert.Equal(t, models.InstallmentPaid, stored.InstallmentState3)
	assert.Equal(t, "Jorge Suarez, Marta Suarez", stored.PayerNames)
	assert.Equal(t, "21000333, 22000444", stored.PayerDNIs)
}

func TestApplyLumpPayer(t *testing.T) {
	db := openTestDB(t)
	seedEnrollee(t, db, models.Enrollee{
		DNI: "28000111", FirstName: "Luis", LastName: "Gomez",
		PaymentMethod: models.PaymentMethodTransfer, InstallmentPlan: 0,
	})

	res, err := Apply(db, Request{
		DNI:         "28000111",
		ReceiptLink: "link-total",
		Tags:        mustTags(t, "total"),
		Payer:       Payer{Name: "Luis Gomez", DNI: "28000111"},
	})
	require.NoError(t, err)

	assert.True(t, res.Principal.Complete)
	assert.Equal(t, StatusPaid, res.Principal.Aggregate)

	stored, err := FindByDNI(db, "28000111")
	require.NoError(t, err)
	assert.Equal(t, "link-total", stored.LumpReceipt)
	assert.Empty(t, stored.InstallmentReceipt1)
	// lump payers never get installment display flags
	assert.Equal(t, models.InstallmentUnpaid, stored.InstallmentState1)
}

func TestApplyDefaultsMissingPlan(t *testing.T) {
	db := openTestDB(t)
	seedEnrollee(t, db, models.Enrollee{
		DNI: "27000999", FirstName: "Rita", LastName: "Paz",
		PaymentMethod: models.PaymentMethodInstallments, InstallmentPlan: 0,
	})

	res, err := Apply(db, Request{
		DNI:         "27000999",
		ReceiptLink: "link-c1",
		Tags:        mustTags(t, "inst_1"),
		Payer:       Payer{Name: "Rita Paz", DNI: "27000999"},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Principal.PlanSize)
	assert.False(t, res.Principal.Complete)

	stored, err := FindByDNI(db, "27000999")
	require.NoError(t, err)
	assert.Equal(t, 3, stored.InstallmentPlan, "defaulted plan must be persisted")
}

func TestApplyFamilyTotal(t *testing.T) {
	db := openTestDB(t)
	link := "fam-123"
	seedEnrollee(t, db, models.Enrollee{
		DNI: "30111222", FirstName: "Ana", LastName: "Suarez",
		PaymentMethod: models.PaymentMethodTransfer, InstallmentPlan: 0,
		FamilyLink: link, TurnNumber: 1,
	})
	seedEnrollee(t, db, models.Enrollee{
		DNI: "31222333", FirstName: "Bruno", LastName: "Suarez",
		PaymentMethod: models.PaymentMethodInstallments, InstallmentPlan: 3,
		FamilyLink: link, TurnNumber: 2,
	})

	res, err := Apply(db, Request{
		DNI:         "30111222",
		ReceiptLink: "link-fam",
		Tags:        mustTags(t, "total"),
		Payer:       Payer{Name: "Carla Suarez", DNI: "20111000"},
		IsFamily:    true,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.MembersTouched)
	assert.Equal(t, StatusFamilyPaid, res.Principal.Aggregate)

	principal, err := FindByDNI(db, "30111222")
	require.NoError(t, err)
	assert.Equal(t, "link-fam", principal.LumpReceipt)

	sibling, err := FindByDNI(db, "31222333")
	require.NoError(t, err)
	// the lump covers exactly the sibling's first open installment
	assert.Equal(t, "link-fam", sibling.InstallmentReceipt1)
	assert.Empty(t, sibling.InstallmentReceipt2)
	assert.Empty(t, sibling.InstallmentReceipt3)
	assert.Equal(t, "C1 Familiar Pagada, C2 Pendiente, C3 Pendiente", sibling.PaymentStatus)
	assert.Equal(t, "Carla Suarez", sibling.PayerNames)
}

func TestApplyFamilyTotalSkipsPaidSlots(t *testing.T) {
	db := openTestDB(t)
	link := "fam-456"
	seedEnrollee(t, db, models.Enrollee{
		DNI: "30111222", FirstName: "Ana", LastName: "Suarez",
		PaymentMethod: models.PaymentMethodTransfer, InstallmentPlan: 0,
		FamilyLink: link, TurnNumber: 1,
	})
	seedEnrollee(t, db, models.Enrollee{
		DNI: "31222333", FirstName: "Bruno", LastName: "Suarez",
		PaymentMethod: models.PaymentMethodInstallments, InstallmentPlan: 3,
		InstallmentReceipt1: "old-c1", InstallmentReceipt2: "old-c2",
		PaymentStatus: "C1 Pagada, C2 Pagada, C3 Pendiente",
		FamilyLink:    link, TurnNumber: 2,
	})

	_, err := Apply(db, Request{
		DNI:         "30111222",
		ReceiptLink: "link-fam",
		Tags:        mustTags(t, "total"),
		Payer:       Payer{Name: "Carla Suarez", DNI: "20111000"},
		IsFamily:    true,
	})
	require.NoError(t, err)

	sibling, err := FindByDNI(db, "31222333")
	require.NoError(t, err)
	assert.Equal(t, "old-c1", sibling.InstallmentReceipt1, "paid slot must keep its receipt")
	assert.Equal(t, "old-c2", sibling.InstallmentReceipt2)
	assert.Equal(t, "link-fam", sibling.InstallmentReceipt3)
	assert.Equal(t, "C1 Pagada, C2 Pagada, C3 Familiar Pagada", sibling.PaymentStatus)
}

func TestApplyFamilyTotalAllSlotsPaid(t *testing.T) {
	db := openTestDB(t)
	link := "fam-789"
	seedEnrollee(t, db, models.Enrollee{
		DNI: "30111222", FirstName: "Ana", LastName: "Suarez",
		PaymentMethod: models.PaymentMethodTransfer, InstallmentPlan: 0,
		FamilyLink: link, TurnNumber: 1,
	})
	seedEnrollee(t, db, models.Enrollee{
		DNI: "31222333", FirstName: "Bruno", LastName: "Suarez",
		PaymentMethod: models.PaymentMethodInstallments, InstallmentPlan: 3,
		InstallmentReceipt1: "old-c1", InstallmentReceipt2: "old-c2", InstallmentReceipt3: "old-c3",
		PaymentStatus: "C1 Pagada, C2 Pagada, C3 Pagada",
		FamilyLink:    link, TurnNumber: 2,
	})

	_, err := Apply(db, Request{
		DNI:         "30111222",
		ReceiptLink: "link-fam",
		Tags:        mustTags(t, "total"),
		Payer:       Payer{Name: "Carla Suarez", DNI: "20111000"},
		IsFamily:    true,
	})
	require.NoError(t, err)

	sibling, err := FindByDNI(db, "31222333")
	require.NoError(t, err)
	// no open slot: the receipt is attached to slot 1 rather than dropped
	assert.Equal(t, "link-fam", sibling.InstallmentReceipt1)
	assert.Equal(t, "old-c2", sibling.InstallmentReceipt2)
	assert.Equal(t, "old-c3", sibling.InstallmentReceipt3)
}

func TestApplyFamilyLumpSibling(t *testing.T) {
	db := openTestDB(t)
	link := "fam-lmp"
	seedEnrollee(t, db, models.Enrollee{
		DNI: "30111222", FirstName: "Ana", LastName: "Suarez",
		PaymentMethod: models.PaymentMethodTransfer, InstallmentPlan: 0,
		FamilyLink: link, TurnNumber: 1,
	})
	seedEnrollee(t, db, models.Enrollee{
		DNI: "31222333", FirstName: "Bruno", LastName: "Suarez",
		PaymentMethod: models.PaymentMethodTransfer, InstallmentPlan: 0,
		FamilyLink: link, TurnNumber: 2,
	})

	_, err := Apply(db, Request{
		DNI:         "30111222",
		ReceiptLink: "link-fam",
		Tags:        mustTags(t, "total"),
		Payer:       Payer{Name: "Carla Suarez", DNI: "20111000"},
		IsFamily:    true,
	})
	require.NoError(t, err)

	sibling, err := FindByDNI(db, "31222333")
	require.NoError(t, err)
	assert.Equal(t, "link-fam", sibling.LumpReceipt)
	assert.Equal(t, StatusFamilyPaid, sibling.PaymentStatus)
}

func TestApplyFamilyFlagWithoutLink(t *testing.T) {
	db := openTestDB(t)
	seedEnrollee(t, db, models.Enrollee{
		DNI: "30111222", FirstName: "Ana", LastName: "Suarez",
		PaymentMethod: models.PaymentMethodInstallments, InstallmentPlan: 3,
	})

	res, err := Apply(db, Request{
		DNI:         "30111222",
		ReceiptLink: "link-c1",
		Tags:        mustTags(t, "inst_1"),
		Payer:       Payer{Name: "Ana Suarez", DNI: "30111222"},
		IsFamily:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.MembersTouched, "no family link means a single-record apply")
	assert.Equal(t, "C1 Familiar Pagada, C2 Pendiente, C3 Pendiente", res.Principal.Aggregate)
}

func TestDryRunDoesNotWrite(t *testing.T) {
	db := openTestDB(t)
	seedEnrollee(t, db, models.Enrollee{
		DNI: "30111222", FirstName: "Ana", LastName: "Suarez",
		PaymentMethod: models.PaymentMethodInstallments, InstallmentPlan: 3,
	})

	status, err := DryRun(db, "30111222", mustTags(t, "inst_1"), false)
	require.NoError(t, err)
	assert.Equal(t, "C1 Pagada, C2 Pendiente, C3 Pendiente", status)

	stored, err := FindByDNI(db, "30111222")
	require.NoError(t, err)
	assert.Empty(t, stored.InstallmentReceipt1)
	assert.Empty(t, stored.PaymentStatus)
}

func TestApplyUnknownDNI(t *testing.T) {
	db := openTestDB(t)
	_, err := Apply(db, Request{DNI: "99999999", Tags: mustTags(t, "inst_1")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApplyIdempotentResubmission(t *testing.T) {
	db := openTestDB(t)
	seedEnrollee(t, db, models.Enrollee{
		DNI: "30111222", FirstName: "Ana", LastName: "Suarez",
		PaymentMethod: models.PaymentMethodInstallments, InstallmentPlan: 3,
	})

	req := Request{
		DNI:         "30111222",
		ReceiptLink: "link-c1",
		Tags:        mustTags(t, "inst_1"),
		Payer:       Payer{Name: "Ana Suarez", DNI: "30111222"},
	}
	_, err := Apply(db, req)
	require.NoError(t, err)
	res, err := Apply(db, req)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Principal.PaidCount, "resubmitting the same installment must not advance the count")
	assert.Equal(t, "C1 Pagada, C2 Pendiente, C3 Pendiente", res.Principal.Aggregate)
}

package pricing

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
	require.NoError(t, db.AutoMigrate(&models.PriceCell{}, &models.Enrollee{}))
	return db
}

func seedCell(t *testing.T, db *gorm.DB, column string, row int, value string) {
	t.Helper()
	require.NoError(t, db.Create(&models.PriceCell{Column: column, Row: row, Value: value}).Error)
}

func TestResolveLump(t *testing.T) {
	db := openTestDB(t)
	seedCell(t, db, models.PriceColStandardCash, 17, "90000")

	q := Resolve(db, Input{
		Schedule: models.ScheduleNormal,
		Method:   models.PaymentMethodCash,
	})

	assert.Equal(t, 90000.0, q.Price)
	assert.Equal(t, 90000.0, q.AmountDue)
	assert.Equal(t, 0, q.Installments)
}

func TestResolveInstallments(t *testing.T) {
	db := openTestDB(t)
	// installment cells hold the per-installment amount
	seedCell(t, db, models.PriceColMemberTransfer, 37, "25000")

	q := Resolve(db, Input{
		Schedule: models.ScheduleNormal,
		Method:   models.PaymentMethodInstallments,
		IsMember: true,
	})

	assert.Equal(t, 75000.0, q.Price)
	assert.Equal(t, 3, q.Installments)
}

func TestResolveExtendedSchedule(t *testing.T) {
	db := openTestDB(t)
	seedCell(t, db, models.PriceColStandardTransfer, 27, "120000")

	q := Resolve(db, Input{
		Schedule: models.ScheduleExtended,
		Method:   models.PaymentMethodTransfer,
	})
	assert.Equal(t, 120000.0, q.Price)
}

func TestResolveTierOffset(t *testing.T) {
	db := openTestDB(t)
	seedCell(t, db, models.PriceColStandardCash, 17, "90000")
	seedCell(t, db, models.PriceColStandardCash, 18, "80000")
	seedCell(t, db, models.PriceColStandardCash, 19, "70000")

	in := Input{Schedule: models.ScheduleNormal, Method: models.PaymentMethodCash}

	in.OrderIndex = 1
	assert.Equal(t, 80000.0, Resolve(db, in).Price)

	in.OrderIndex = 2
	assert.Equal(t, 70000.0, Resolve(db, in).Price)

	// 4th child and beyond stay on the 3rd-child row
	in.OrderIndex = 5
	assert.Equal(t, 70000.0, Resolve(db, in).Price)
}

func TestResolveCurrencyFormats(t *testing.T) {
	db := openTestDB(t)
	seedCell(t, db, models.PriceColStandardCash, 17, "$ 45.000,50")

	q := Resolve(db, Input{Schedule: models.ScheduleNormal, Method: models.PaymentMethodCash})
	assert.Equal(t, 45000.5, q.Price)
}

func TestResolveMissingCellFailsSoft(t *testing.T) {
	db := openTestDB(t)

	q := Resolve(db, Input{Schedule: models.ScheduleNormal, Method: models.PaymentMethodCash})
	assert.Zero(t, q.Price)
	assert.Zero(t, q.Installments)
}

func TestResolveUnusableValueFailsSoft(t *testing.T) {
	db := openTestDB(t)
	seedCell(t, db, models.PriceColStandardCash, 17, "consultar")

	q := Resolve(db, Input{Schedule: models.ScheduleNormal, Method: models.PaymentMethodCash})
	assert.Zero(t, q.Price)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"90000", 90000},
		{"90000.5", 90000.5},
		{"$ 45.000,50", 45000.5},
		{"$45.000", 45000},
		{"", 0},
		{"n/a", 0},
	}
	for _, tt := range tests {
		if got := parseAmount(tt.in); got != tt.want {
			t.Errorf("parseAmount(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestOrderIndex(t *testing.T) {
	db := openTestDB(t)

	link := "fam-abc"
	var family []models.Enrollee
	for i, dni := range []string{"30000001", "30000002", "30000003", "30000004"} {
		e := models.Enrollee{DNI: dni, FirstName: "Kid", LastName: "Test", FamilyLink: link, TurnNumber: i + 1}
		require.NoError(t, db.Create(&e).Error)
		family = append(family, e)
	}

	assert.Equal(t, 0, OrderIndex(db, &family[0]))
	assert.Equal(t, 1, OrderIndex(db, &family[1]))
	assert.Equal(t, 2, OrderIndex(db, &family[2]))
	// 4th member clamps to the 3rd-child tier
	assert.Equal(t, 2, OrderIndex(db, &family[3]))

	solo := models.Enrollee{DNI: "31000001", FirstName: "Solo", LastName: "Test"}
	require.NoError(t, db.Create(&solo).Error)
	assert.Equal(t, 0, OrderIndex(db, &solo))
}

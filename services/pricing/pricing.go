// Package pricing resolves the season price from the configuration grid.
//
// Stepped pricing: every child pays an individual price based on their own
// order within the family (1st, 2nd, 3rd+) and their own choices of schedule,
// membership and payment method.
package pricing

import (
	"clubreg/models"
	"log"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// Base rows of the grid. Each band holds three consecutive rows, one per
// family-order tier (0, 1, 2+).
const (
	rowNormalLump          = 17
	rowExtendedLump        = 27
	rowNormalInstallments  = 37
	rowExtendedInstallment = 47
)

// Input describes one person's pricing choices
type Input struct {
	Schedule   models.Schedule
	Method     models.PaymentMethod
	IsMember   bool
	OrderIndex int // 0 = principal / first child, clamped to 2 for 3rd+
}

// Quote is the resolved price configuration for one person
type Quote struct {
	Price        float64 // full season total
	AmountDue    float64
	Installments int // 3 for installment plans, 0 for lump payers
}

// Resolve looks up the price cell for the given choices. It fails softly: any
// lookup problem returns a zero Quote so intake is never blocked by a
// configuration glitch; the caller is responsible for surfacing a warning.
func Resolve(db *gorm.DB, in Input) Quote {
	column := rateColumn(in.IsMember, in.Method)

	installments := in.Method == models.PaymentMethodInstallments
	baseRow := rowNormalLump
	switch {
	case in.Schedule == models.ScheduleNormal && installments:
		baseRow = rowNormalInstallments
	case in.Schedule == models.ScheduleNormal:
		baseRow = rowNormalLump
	case installments:
		baseRow = rowExtendedInstallment
	default:
		baseRow = rowExtendedLump
	}

	tier := in.OrderIndex
	if tier > 2 {
		tier = 2
	}
	if tier < 0 {
		tier = 0
	}
	row := baseRow + tier

	var cell models.PriceCell
	if err := db.Where("\"column\" = ? AND row = ?", column, row).First(&cell).Error; err != nil {
		log.Printf("pricing: no cell %s%d: %v", column, row, err)
		return Quote{}
	}

	price := parseAmount(cell.Value)
	if price == 0 {
		log.Printf("pricing: cell %s%d has unusable value %q", column, row, cell.Value)
		return Quote{}
	}

	if installments {
		// Installment cells hold the per-installment amount
		return Quote{Price: price * 3, AmountDue: price * 3, Installments: 3}
	}
	return Quote{Price: price, AmountDue: price, Installments: 0}
}

// rateColumn maps membership and payment method to one of the four grid
// columns. Installments are billed at the transfer rate.
func rateColumn(isMember bool, method models.PaymentMethod) string {
	if isMember {
		if method == models.PaymentMethodCash {
			return models.PriceColMemberCash
		}
		return models.PriceColMemberTransfer
	}
	if method == models.PaymentMethodCash {
		return models.PriceColStandardCash
	}
	return models.PriceColStandardTransfer
}

// parseAmount reads a grid value that may be a plain number or a
// currency-formatted string like "$ 45.000,50".
func parseAmount(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	// Strip currency symbol and thousands dots, keep the first token,
	// decimal comma becomes a point.
	s = strings.NewReplacer("$", "", ".", "").Replace(s)
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ' '); i >= 0 {
		s = s[:i]
	}
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// OrderIndex computes a member's tier by sorting the whole family by intake
// turn number and taking the member's position, clamped to 2 for the 3rd
// child onward. Members without a family link are tier 0.
func OrderIndex(db *gorm.DB, e *models.Enrollee) int {
	if e.FamilyLink == "" {
		return 0
	}

	var family []models.Enrollee
	if err := db.Where("family_link = ? AND is_deleted = ?", e.FamilyLink, false).
		Order("turn_number asc").Find(&family).Error; err != nil {
		log.Printf("pricing: family lookup for %s failed: %v", e.DNI, err)
		return 0
	}

	for i := range family {
		if family[i].ID == e.ID {
			if i > 2 {
				return 2
			}
			return i
		}
	}
	return 0
}

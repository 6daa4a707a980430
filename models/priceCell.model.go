package models

import (
	"gorm.io/gorm"
)

// Rate columns of the price grid. Installment plans are billed at the
// transfer rate, so only four columns exist.
const (
	PriceColMemberCash       = "E" // member, cash at the club office
	PriceColMemberTransfer   = "F" // member, transfer or installments
	PriceColStandardCash     = "G" // non-member, cash at the club office
	PriceColStandardTransfer = "H" // non-member, transfer or installments
)

// PriceCell is one cell of the price configuration grid. Values may be plain
// numbers or currency-formatted text ("$ 45.000,50"); the resolver parses both.
type PriceCell struct {
	gorm.Model
	Column string `gorm:"type:varchar(2);not null;uniqueIndex:idx_price_cell" json:"column"`
	Row    int    `gorm:"not null;uniqueIndex:idx_price_cell" json:"row"`
	Value  string `gorm:"type:varchar(50);not null" json:"value"`
}

func (PriceCell) TableName() string {
	return "price_cells"
}

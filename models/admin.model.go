package models

import (
	"time"

	"gorm.io/gorm"
)

// Admin is a club staff account with access to listings and the price grid
type Admin struct {
	gorm.Model
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"type:varchar(255);not null" json:"-"`
	LastLogin time.Time `json:"lastLogin"`
	IsDeleted bool      `gorm:"default:false" json:"isDeleted"`
}

func (Admin) TableName() string {
	return "admins"
}

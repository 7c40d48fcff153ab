// Package models contains domain entities and business models for the storefront
package models

import (
	"time"
)

type Address struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null;index:idx_addresses_user_id" json:"user_id"`
	User   User `gorm:"foreignKey:UserID;references:ID" json:"-"`

	Name        string  `gorm:"size:255;not null" json:"name"`
	Phone       string  `gorm:"size:15;not null" json:"phone"`
	Pincode     string  `gorm:"size:10;not null" json:"pincode"`
	City        string  `gorm:"size:100;not null" json:"city"`
	State       string  `gorm:"size:100;not null" json:"state"`
	HouseNumber string  `gorm:"size:255;not null" json:"house_number"`
	Locality    string  `gorm:"size:255;not null" json:"locality"`
	Landmark    *string `gorm:"size:255" json:"landmark,omitempty"`

	// Exactly one address per user carries the default flag while the
	// user has any addresses at all.
	IsDefault *bool `gorm:"default:false;index:idx_addresses_is_default" json:"is_default"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Address) TableName() string {
	return "addresses"
}

// AddressFilter represents filter criteria for address queries
type AddressFilter struct {
	ID        *uint
	UserID    *uint
	City      *string
	State     *string
	Pincode   *string
	IsDefault *bool
}

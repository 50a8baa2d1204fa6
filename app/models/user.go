package models

import (
	"gorm.io/gorm"

	"github.com/shashiranjanraj/bidmarket/pkg/auth"
)

// User is an account. Buyer and supplier flags are independent; one user
// may hold both.
type User struct {
	gorm.Model
	Username   string  `gorm:"uniqueIndex;size:150;not null" json:"username"`
	Email      string  `gorm:"size:255;index" json:"email"`
	Password   string  `gorm:"size:255;not null" json:"-"` // bcrypt hash, never serialised
	IsBuyer    bool    `gorm:"not null;default:false" json:"is_buyer"`
	IsSupplier bool    `gorm:"not null;default:false" json:"is_supplier"`
	IsStaff    bool    `gorm:"not null;default:false" json:"is_staff"`
	Address    *string `gorm:"type:text" json:"address"`
}

// Role is the display role: buyer wins over supplier.
func (u User) Role() string {
	switch {
	case u.IsBuyer:
		return "buyer"
	case u.IsSupplier:
		return "supplier"
	default:
		return "unknown"
	}
}

// HasAddress reports whether a non-empty delivery address is set.
func (u User) HasAddress() bool {
	return u.Address != nil && *u.Address != ""
}

// Subject is the identity encoded into access tokens.
func (u User) Subject() auth.Subject {
	return auth.Subject{
		UserID:     u.ID,
		Username:   u.Username,
		IsBuyer:    u.IsBuyer,
		IsSupplier: u.IsSupplier,
		IsStaff:    u.IsStaff,
	}
}

func (u User) NotifiableID() uint      { return u.ID }
func (u User) NotifiableEmail() string { return u.Email }

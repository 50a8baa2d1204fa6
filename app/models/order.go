package models

import (
	"time"
)

// Order statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusRejected  = "rejected"
	StatusHold      = "hold"
	StatusPast      = "past"
)

// ValidStatus reports whether s is a known order status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusRejected, StatusHold, StatusPast:
		return true
	}
	return false
}

// Order is placed by a buyer and assigned a supplier on confirmation.
// TotalPrice is the buyer's own figure; bids never change it.
type Order struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	BuyerID      uint        `gorm:"not null;index" json:"buyer_id"`
	Buyer        User        `gorm:"foreignKey:BuyerID" json:"-"`
	SupplierID   *uint       `gorm:"index" json:"supplier_id"`
	Supplier     *User       `gorm:"foreignKey:SupplierID" json:"-"`
	TotalPrice   float64     `gorm:"not null;default:0" json:"total_price"`
	Status       string      `gorm:"size:20;not null;default:pending;index" json:"status"`
	Note         *string     `gorm:"type:text" json:"note"`
	DeliveryDate *time.Time  `gorm:"type:date" json:"delivery_date"`
	Items        []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// OrderItem is one line of an order.
type OrderItem struct {
	ID          uint     `gorm:"primaryKey" json:"id"`
	OrderID     uint     `gorm:"not null;index" json:"order_id"`
	ItemName    string   `gorm:"size:255;not null" json:"item_name"`
	Quantity    int      `gorm:"not null;default:1" json:"quantity"`
	BuyerPrice  *float64 `json:"buyer_price"`
	AllergyInfo *string  `gorm:"size:255" json:"allergy_info"`
}

// LineTotal is quantity times the buyer's price, treating a missing price as 0.
func (i OrderItem) LineTotal() float64 {
	if i.BuyerPrice == nil {
		return 0
	}
	return float64(i.Quantity) * *i.BuyerPrice
}

// SentOrderItem records that an item was broadcast to a supplier.
type SentOrderItem struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SupplierID  uint      `gorm:"not null;index" json:"supplier_id"`
	OrderItemID uint      `gorm:"not null;index" json:"order_item_id"`
	OrderItem   OrderItem `gorm:"foreignKey:OrderItemID" json:"-"`
	BuyerID     uint      `gorm:"not null;index" json:"buyer_id"`
	SentAt      time.Time `gorm:"autoCreateTime" json:"sent_at"`
}

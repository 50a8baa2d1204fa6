package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Offer statuses.
const (
	OfferAvailable   = "available"
	OfferUnavailable = "unavailable"
)

// ItemOffer statuses.
const (
	ItemOfferAvailable = "available"
	ItemOfferAccepted  = "accepted"
	ItemOfferRejected  = "rejected"
	ItemOfferUpdated   = "updated"
)

// Offer is an order-level bid. A resubmission flips the supplier's earlier
// offers to unavailable; rows are only removed with their order.
type Offer struct {
	ID                    uint            `gorm:"primaryKey" json:"id"`
	OrderID               uint            `gorm:"not null;index" json:"order_id"`
	SupplierID            uint            `gorm:"not null;index" json:"supplier_id"`
	Supplier              User            `gorm:"foreignKey:SupplierID" json:"-"`
	BuyerID               uint            `gorm:"not null;index" json:"buyer_id"`
	Price                 decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	EstimatedDeliveryTime *time.Time      `json:"estimated_delivery_time"`
	Status                string          `gorm:"size:50;not null;default:available;index" json:"status"`
	CreatedAt             time.Time       `json:"created_at"`
}

// ItemOffer is a per-item bid, one row per (item, supplier).
type ItemOffer struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	OrderItemID uint            `gorm:"not null;index" json:"order_item_id"`
	SupplierID  uint            `gorm:"not null;index" json:"supplier_id"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Notes       *string         `gorm:"type:text" json:"notes"`
	Status      string          `gorm:"size:50;not null;default:available" json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

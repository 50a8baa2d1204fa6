package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification types.
const (
	NotifyNewBid            = "new_bid"
	NotifyBidAccepted       = "bid_accepted"
	NotifyOrderStatusChange = "order_status_change"
	NotifyGeneric           = "generic"
	NotifyNewItemOffer      = "new_item_offer"
	NotifyItemOfferUpdated  = "item_offer_updated"
	NotifyItemOfferAccepted = "item_offer_accepted"
	NotifyNewOrder          = "new_order"
)

// Notification is addressed to one user. OrderID, SupplierID and BuyerID are
// plain references without foreign keys and may outlive their rows.
type Notification struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	UserID     uint              `gorm:"not null;index" json:"user_id"`
	Type       string            `gorm:"size:50;not null" json:"type"`
	Message    *string           `gorm:"type:text" json:"message"`
	OrderID    *uint             `json:"order_id"`
	SupplierID *uint             `json:"supplier_id"`
	BuyerID    *uint             `json:"buyer_id"`
	Data       datatypes.JSONMap `json:"data"`
	Read       bool              `gorm:"not null;default:false;index" json:"read"`
	CreatedAt  time.Time         `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

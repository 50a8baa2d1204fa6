// Package notices defines the user-facing notices of the order and bid
// lifecycle and the channels each one travels on.
package notices

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/shashiranjanraj/bidmarket/app/models"
	"github.com/shashiranjanraj/bidmarket/config"
	"github.com/shashiranjanraj/bidmarket/pkg/notification"
	"github.com/shashiranjanraj/bidmarket/pkg/validate"
)

var (
	both     = []string{notification.Database, notification.Mail}
	dbOnly   = []string{notification.Database}
	mailOnly = []string{notification.Mail}
)

// Money formats an amount with the configured currency symbol, e.g. £8.50.
func Money(d decimal.Decimal) string {
	return config.CurrencySymbol() + d.StringFixed(2)
}

func ref(id uint) *uint { return &id }

// BidPlaced tells the buyer about a new or revised order-level bid.
type BidPlaced struct {
	OrderID    uint
	Supplier   models.User
	Price      decimal.Decimal
	Previous   *decimal.Decimal
	ItemPrices map[uint]decimal.Decimal
}

func (BidPlaced) Via() []string { return both }

func (n BidPlaced) message() string {
	if n.Previous != nil {
		return fmt.Sprintf("Supplier %s updated bid from %s to %s for order #%d",
			n.Supplier.Username, Money(*n.Previous), Money(n.Price), n.OrderID)
	}
	return fmt.Sprintf("Supplier %s placed new bid of %s for order #%d",
		n.Supplier.Username, Money(n.Price), n.OrderID)
}

func (n BidPlaced) ToDatabase() notification.DatabaseData {
	var previous any
	if n.Previous != nil {
		previous = n.Previous.InexactFloat64()
	}
	items := make(map[string]any, len(n.ItemPrices))
	for id, price := range n.ItemPrices {
		items[strconv.FormatUint(uint64(id), 10)] = price.InexactFloat64()
	}
	return notification.DatabaseData{
		Type:       models.NotifyNewBid,
		Message:    n.message(),
		OrderID:    ref(n.OrderID),
		SupplierID: ref(n.Supplier.ID),
		Data: map[string]any{
			"amount":          n.Price.InexactFloat64(),
			"previous_amount": previous,
			"is_update":       n.Previous != nil,
			"items":           items,
		},
	}
}

func (n BidPlaced) ToMail() notification.MailData {
	return notification.MailData{
		Subject: fmt.Sprintf("New Offer for Order #%d", n.OrderID),
		Message: fmt.Sprintf("Supplier %s has placed a new offer of %s for your order #%d.",
			n.Supplier.Username, Money(n.Price), n.OrderID),
	}
}

// BidAccepted tells the winning supplier that the buyer confirmed the order.
type BidAccepted struct {
	Order         models.Order
	BuyerName     string
	Price         decimal.Decimal
	OriginalPrice float64
}

func (BidAccepted) Via() []string { return both }

func (n BidAccepted) ToDatabase() notification.DatabaseData {
	d := notification.DatabaseData{
		Type:    models.NotifyBidAccepted,
		Message: fmt.Sprintf("Your bid for order #%d was accepted by %s", n.Order.ID, n.BuyerName),
		OrderID: ref(n.Order.ID),
		BuyerID: ref(n.Order.BuyerID),
		Data: map[string]any{
			"amount":         n.Price.InexactFloat64(),
			"original_price": n.OriginalPrice,
		},
	}
	if n.Order.SupplierID != nil {
		d.SupplierID = ref(*n.Order.SupplierID)
	}
	return d
}

func (n BidAccepted) ToMail() notification.MailData {
	return notification.MailData{
		Subject: fmt.Sprintf("Order #%d Confirmation", n.Order.ID),
		Message: fmt.Sprintf("Order #%d from %s has been confirmed. Total price: %s. Status: %s",
			n.Order.ID, n.BuyerName, Money(n.Price), n.Order.Status),
	}
}

// Order fields whose change is reported by OrderChanged.
const (
	FieldStatus       = "status"
	FieldNote         = "note"
	FieldDeliveryDate = "delivery_date"
)

// OrderChanged reports one changed field to the assigned supplier.
type OrderChanged struct {
	Order models.Order
	Field string
}

func (OrderChanged) Via() []string { return both }

func (n OrderChanged) ToDatabase() notification.DatabaseData {
	o := n.Order
	d := notification.DatabaseData{
		Type:    models.NotifyOrderStatusChange,
		OrderID: ref(o.ID),
		BuyerID: ref(o.BuyerID),
		Data:    map[string]any{"update_type": n.Field},
	}
	switch n.Field {
	case FieldStatus:
		d.Message = fmt.Sprintf("Order #%d status changed to %s", o.ID, o.Status)
		d.Data["status"] = o.Status
	case FieldNote:
		d.Message = fmt.Sprintf("Note updated for order #%d", o.ID)
		if o.Note != nil {
			d.Data["note"] = *o.Note
		} else {
			d.Data["note"] = nil
		}
	case FieldDeliveryDate:
		shown := "not set"
		var raw any
		if o.DeliveryDate != nil {
			shown = o.DeliveryDate.Format("02/01/2006")
			raw = o.DeliveryDate.Format(validate.DateLayout)
		}
		d.Message = fmt.Sprintf("Delivery date for order #%d changed to %s", o.ID, shown)
		d.Data["delivery_date"] = raw
	}
	return d
}

func (n OrderChanged) ToMail() notification.MailData {
	o := n.Order
	switch n.Field {
	case FieldNote:
		note := ""
		if o.Note != nil {
			note = *o.Note
		}
		return notification.MailData{
			Subject: fmt.Sprintf("Order #%d Note Updated", o.ID),
			Message: fmt.Sprintf("The note for order #%d is now: %s", o.ID, note),
		}
	case FieldDeliveryDate:
		shown := "not set"
		if o.DeliveryDate != nil {
			shown = o.DeliveryDate.Format("02/01/2006")
		}
		return notification.MailData{
			Subject: fmt.Sprintf("Order #%d Delivery Date Updated", o.ID),
			Message: fmt.Sprintf("Delivery date for order #%d changed to %s", o.ID, shown),
		}
	default:
		return notification.MailData{
			Subject: fmt.Sprintf("Order #%d Status Update", o.ID),
			Message: fmt.Sprintf("Order #%d status has been updated to: %s", o.ID, o.Status),
		}
	}
}

// OrderRejected is emailed to both parties before a rejected order is
// deleted. It is never stored.
type OrderRejected struct {
	OrderID   uint
	BuyerName string
	ToBuyer   bool
}

func (OrderRejected) Via() []string { return mailOnly }

func (n OrderRejected) ToMail() notification.MailData {
	msg := fmt.Sprintf("Order #%d from %s has been rejected.", n.OrderID, n.BuyerName)
	if n.ToBuyer {
		msg = fmt.Sprintf("Your order #%d has been rejected.", n.OrderID)
	}
	return notification.MailData{
		Subject: fmt.Sprintf("Order #%d Rejected", n.OrderID),
		Message: msg,
	}
}

// NewOrder invites a supplier to bid on a broadcast order.
type NewOrder struct {
	OrderID   uint
	BuyerID   uint
	BuyerName string
}

func (NewOrder) Via() []string { return dbOnly }

func (n NewOrder) ToDatabase() notification.DatabaseData {
	return notification.DatabaseData{
		Type:    models.NotifyNewOrder,
		Message: fmt.Sprintf("New order #%d available from %s", n.OrderID, n.BuyerName),
		OrderID: ref(n.OrderID),
		BuyerID: ref(n.BuyerID),
		Data:    map[string]any{"status": models.StatusPending},
	}
}

// Package events names the domain events fired by services once their
// transaction has committed, and wires the listeners that turn them into
// Prometheus counters.
package events

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/shashiranjanraj/bidmarket/pkg/event"
	"github.com/shashiranjanraj/bidmarket/pkg/metrics"
)

const (
	BidSubmitted        = "bid.submitted"
	OrderCreated        = "order.created"
	OrderBroadcast      = "order.broadcast"
	OrderConfirmed      = "order.confirmed"
	OrderRejected       = "order.rejected"
	OrderUpdated        = "order.updated"
	OrderDeleted        = "order.deleted"
	NotificationCreated = "notification.created"
)

// Bid is the payload of BidSubmitted.
type Bid struct {
	OrderID    uint
	SupplierID uint
	Price      decimal.Decimal
	IsUpdate   bool
}

// Order is the payload of the order.* events.
type Order struct {
	OrderID uint
	ActorID uint
}

// Notification is the payload of NotificationCreated.
type Notification struct {
	UserID uint
	Type   string
}

// RegisterMetrics attaches counter listeners to bus.
func RegisterMetrics(bus *event.Bus) {
	bus.Listen(BidSubmitted, func(_ context.Context, p any) {
		kind := "new"
		if b, ok := p.(Bid); ok && b.IsUpdate {
			kind = "update"
		}
		metrics.BidsSubmitted.WithLabelValues(kind).Inc()
	})

	for name, label := range map[string]string{
		OrderCreated:   "created",
		OrderBroadcast: "broadcast",
		OrderConfirmed: "confirmed",
		OrderRejected:  "rejected",
		OrderUpdated:   "updated",
		OrderDeleted:   "deleted",
	} {
		bus.Listen(name, func(context.Context, any) {
			metrics.OrderTransitions.WithLabelValues(label).Inc()
		})
	}

	bus.Listen(NotificationCreated, func(_ context.Context, p any) {
		if n, ok := p.(Notification); ok {
			metrics.NotificationsCreated.WithLabelValues(n.Type).Inc()
		}
	})
}

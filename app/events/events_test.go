package events

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/bidmarket/pkg/event"
	"github.com/shashiranjanraj/bidmarket/pkg/metrics"
)

func TestRegisterMetrics(t *testing.T) {
	bus := event.New()
	RegisterMetrics(bus)
	ctx := context.Background()

	beforeUpdate := testutil.ToFloat64(metrics.BidsSubmitted.WithLabelValues("update"))
	beforeConfirmed := testutil.ToFloat64(metrics.OrderTransitions.WithLabelValues("confirmed"))
	beforeNew := testutil.ToFloat64(metrics.NotificationsCreated.WithLabelValues("new_bid"))

	bus.Fire(ctx, BidSubmitted, Bid{IsUpdate: true})
	bus.Fire(ctx, OrderConfirmed, Order{OrderID: 1})
	bus.Fire(ctx, NotificationCreated, Notification{Type: "new_bid"})
	bus.Fire(ctx, NotificationCreated, Notification{Type: "new_bid"})

	assert.Equal(t, beforeUpdate+1, testutil.ToFloat64(metrics.BidsSubmitted.WithLabelValues("update")))
	assert.Equal(t, beforeConfirmed+1, testutil.ToFloat64(metrics.OrderTransitions.WithLabelValues("confirmed")))
	assert.Equal(t, beforeNew+2, testutil.ToFloat64(metrics.NotificationsCreated.WithLabelValues("new_bid")))
}

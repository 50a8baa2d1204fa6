package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/bidmarket/app/events"
	"github.com/shashiranjanraj/bidmarket/app/models"
	"github.com/shashiranjanraj/bidmarket/pkg/apperr"
	"github.com/shashiranjanraj/bidmarket/pkg/testkit"
)

func TestLowestOfferAndConfirmNotifiesOnlyWinner(t *testing.T) {
	f := newFixture(t)
	order := f.apples(t)

	f.bid(t, f.supplier1, order.ID, "10.00")
	f.bid(t, f.supplier2, order.ID, "8.50")

	best, err := f.bids.LowestOffer(f.ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, f.supplier2.ID, best.SupplierID)
	assert.True(t, best.Price.Equal(dec("8.50")))

	conf, err := f.orders.Confirm(f.ctx, f.buyer, order.ID, ConfirmInput{DeliveryDate: "2026-11-02"})
	require.NoError(t, err)
	assert.Equal(t, f.supplier2.ID, conf.Supplier.ID)
	assert.True(t, conf.AcceptedBid.Equal(dec("8.50")))

	var stored models.Order
	require.NoError(t, f.db.First(&stored, order.ID).Error)
	assert.Equal(t, models.StatusConfirmed, stored.Status)
	require.NotNil(t, stored.SupplierID)
	assert.Equal(t, f.supplier2.ID, *stored.SupplierID)
	assert.Equal(t, 6.0, stored.TotalPrice, "bids never touch the buyer's total")

	accepted := f.notificationsFor(t, f.supplier2.ID, models.NotifyBidAccepted)
	require.Len(t, accepted, 1)
	assert.Equal(t, "Your bid for order #"+itoa(order.ID)+" was accepted by buyer", *accepted[0].Message)
	assert.Empty(t, f.notificationsFor(t, f.supplier1.ID, models.NotifyBidAccepted))
	assert.Empty(t, f.notificationsFor(t, f.buyer.ID, models.NotifyBidAccepted))

	assert.Len(t, f.mail.to(f.supplier2.Email), 1)
	assert.Len(t, f.mail.to(f.buyer.Email), 2, "one new-offer mail per bid")
}

func TestResubmittedBidSupersedesPrevious(t *testing.T) {
	f := newFixture(t)
	order := f.apples(t)

	first := f.bid(t, f.supplier1, order.ID, "8.50")
	assert.Nil(t, first.Previous)

	second := f.bid(t, f.supplier1, order.ID, "7.00")
	require.NotNil(t, second.Previous)
	assert.True(t, second.Previous.Equal(dec("8.50")))

	var available, retired int64
	f.db.Model(&models.Offer{}).Where("order_id = ? AND supplier_id = ? AND status = ?", order.ID, f.supplier1.ID, models.OfferAvailable).Count(&available)
	f.db.Model(&models.Offer{}).Where("order_id = ? AND supplier_id = ? AND status = ?", order.ID, f.supplier1.ID, models.OfferUnavailable).Count(&retired)
	assert.EqualValues(t, 1, available)
	assert.EqualValues(t, 1, retired)

	best, err := f.bids.LowestOffer(f.ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, second.Offer.ID, best.ID)

	bids := f.notificationsFor(t, f.buyer.ID, models.NotifyNewBid)
	require.Len(t, bids, 2)
	msg := "Supplier supplier1 updated bid from £8.50 to £7.00 for order #" + itoa(order.ID)
	assert.Equal(t, msg, *bids[1].Message)
	assert.Equal(t, true, bids[1].Data["is_update"])

	var stored models.Order
	require.NoError(t, f.db.First(&stored, order.ID).Error)
	assert.Equal(t, 6.0, stored.TotalPrice)
}

func TestLowestOfferTieGoesToFirstInserted(t *testing.T) {
	f := newFixture(t)
	order := f.apples(t)

	first := f.bid(t, f.supplier1, order.ID, "5.00")
	f.bid(t, f.supplier2, order.ID, "5.00")

	best, err := f.bids.LowestOffer(f.ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Offer.ID, best.ID)
}

func TestLowestOfferNoneAvailable(t *testing.T) {
	f := newFixture(t)
	order := f.apples(t)

	best, err := f.bids.LowestOffer(f.ctx, order.ID)
	require.NoError(t, err)
	assert.Nil(t, best)
}

func TestSubmitItemBidsUpsertsAndIgnoresForeignItems(t *testing.T) {
	f := newFixture(t)
	order := f.apples(t)
	itemID := order.Items[0].ID

	price := dec("9")
	_, err := f.bids.Submit(f.ctx, f.supplier1, order.ID, BidInput{
		SupplierPrice: &price,
		ItemPrices:    map[string]decimal.Decimal{itoa(itemID): dec("1.50"), "99999": dec("2")},
	})
	require.NoError(t, err)

	bids, err := f.bids.ItemBidsForSupplier(f.ctx, order, f.supplier1.ID)
	require.NoError(t, err)
	require.Contains(t, bids, itemID)
	assert.Equal(t, models.ItemOfferAvailable, bids[itemID].Status)

	_, err = f.bids.Submit(f.ctx, f.supplier1, order.ID, BidInput{
		SupplierPrice: &price,
		ItemPrices:    map[string]decimal.Decimal{itoa(itemID): dec("1.25")},
	})
	require.NoError(t, err)

	var rows []models.ItemOffer
	require.NoError(t, f.db.Where("supplier_id = ?", f.supplier1.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, models.ItemOfferUpdated, rows[0].Status)
	assert.True(t, rows[0].Price.Equal(dec("1.25")))
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t)
	order := f.apples(t)
	price := dec("3")

	_, err := f.bids.Submit(f.ctx, f.buyer, order.ID, BidInput{SupplierPrice: &price})
	assert.ErrorIs(t, err, apperr.ErrPermission)

	_, err = f.bids.Submit(f.ctx, f.supplier1, order.ID, BidInput{})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	neg := dec("-1")
	_, err = f.bids.Submit(f.ctx, f.supplier1, order.ID, BidInput{SupplierPrice: &neg})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.bids.Submit(f.ctx, f.supplier1, order.ID+100, BidInput{SupplierPrice: &price})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestBidOnOwnOrderIsNotNotified(t *testing.T) {
	f := newFixture(t)
	both := testkit.CreateUser(t, f.db, models.User{Username: "trader", IsBuyer: true, IsSupplier: true})
	order, err := f.orders.Create(f.ctx, both, CreateOrderInput{Items: []ItemInput{{Name: "Pears"}}})
	require.NoError(t, err)

	f.bid(t, both, order.ID, "4.00")
	assert.Empty(t, f.notificationsFor(t, both.ID, ""))
	assert.Empty(t, f.mail.to(both.Email))
}

func TestBidSubmittedEventFires(t *testing.T) {
	f := newFixture(t)
	order := f.apples(t)

	var got []events.Bid
	f.bus.Listen(events.BidSubmitted, func(_ context.Context, p any) { got = append(got, p.(events.Bid)) })

	f.bid(t, f.supplier1, order.ID, "8.00")
	f.bid(t, f.supplier1, order.ID, "7.50")

	require.Len(t, got, 2)
	assert.False(t, got[0].IsUpdate)
	assert.True(t, got[1].IsUpdate)
}

func TestOffersVisibility(t *testing.T) {
	f := newFixture(t)
	order := f.apples(t)
	f.bid(t, f.supplier1, order.ID, "10.00")
	f.bid(t, f.supplier2, order.ID, "8.50")

	list, err := f.bids.Offers(f.ctx, f.buyer, order.ID)
	require.NoError(t, err)
	require.Len(t, list.Offers, 2)
	assert.Equal(t, 8.5, list.Offers[0].Price)
	assert.True(t, list.Offers[0].IsLowest)
	assert.False(t, list.Offers[1].IsLowest)
	require.NotNil(t, list.Lowest)
	assert.Equal(t, f.supplier2.ID, list.Lowest.SupplierID)

	stranger := testkit.CreateUser(t, f.db, models.User{Username: "stranger", IsBuyer: true})
	_, err = f.bids.Offers(f.ctx, stranger, order.ID)
	assert.ErrorIs(t, err, apperr.ErrPermission)
}

func TestMyBidsGroupsByOrder(t *testing.T) {
	f := newFixture(t)
	first := f.apples(t)
	second := f.apples(t)

	f.bid(t, f.supplier1, first.ID, "9.00")
	f.bid(t, f.supplier1, second.ID, "8.00")
	f.bid(t, f.supplier1, first.ID, "7.00")

	groups, err := f.bids.MyBids(f.ctx, f.supplier1)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, first.ID, groups[0].OrderID, "most recent bid first")
	require.Len(t, groups[0].MyBids, 1)
	assert.Equal(t, 7.0, groups[0].MyBids[0].Price)
	assert.True(t, groups[0].MyBids[0].IsLatest)
	assert.Equal(t, "buyer", groups[1].BuyerUsername)

	_, err = f.bids.MyBids(f.ctx, f.buyer)
	assert.ErrorIs(t, err, apperr.ErrPermission)
}

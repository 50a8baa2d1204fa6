package controllers

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/shashiranjanraj/bidmarket/app/notices"
	"github.com/shashiranjanraj/bidmarket/app/services"
	"github.com/shashiranjanraj/bidmarket/pkg/container"
	"github.com/shashiranjanraj/bidmarket/pkg/ctx"
	"github.com/shashiranjanraj/bidmarket/pkg/response"
)

type BidController struct {
	actors
	bids *services.BidService
}

func NewBidController(c *container.Container) *BidController {
	return &BidController{
		actors: newActors(c),
		bids:   container.Make[*services.BidService](c),
	}
}

// Offers handles GET /api/orders/{order_id}/offers.
func (bc *BidController) Offers(c *ctx.Context) {
	u, ok := bc.actor(c)
	if !ok {
		return
	}
	id, ok := c.ParamUint("order_id")
	if !ok {
		return
	}

	list, err := bc.bids.Offers(c.Context(), u, id)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Message(http.StatusOK, "Offers fetched successfully.", response.H{
		"order_id":             list.Order.ID,
		"buyer_original_price": list.Order.TotalPrice,
		"lowest_bid":           list.Lowest,
		"offers":               list.Offers,
	})
}

type offerInput struct {
	Price *decimal.Decimal `json:"price"`
}

// Offer handles POST /api/orders/{order_id}/offers, an order-level bid
// without item prices.
func (bc *BidController) Offer(c *ctx.Context) {
	u, ok := bc.actor(c)
	if !ok {
		return
	}
	id, ok := c.ParamUint("order_id")
	if !ok {
		return
	}
	var in offerInput
	if !c.BindJSON(&in) {
		return
	}

	res, err := bc.bids.SubmitSimple(c.Context(), u, id, in.Price)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Message(http.StatusCreated, "Offer submitted successfully", response.H{
		"offer_id":   res.Offer.ID,
		"order_id":   res.Order.ID,
		"price":      res.Offer.Price.InexactFloat64(),
		"all_offers": res.Offers,
	})
}

// Submit handles PUT /api/supplier-orders/{order_id}/confirm.
func (bc *BidController) Submit(c *ctx.Context) {
	u, ok := bc.actor(c)
	if !ok {
		return
	}
	id, ok := c.ParamUint("order_id")
	if !ok {
		return
	}
	var in services.BidInput
	if !c.BindJSON(&in) {
		return
	}

	res, err := bc.bids.Submit(c.Context(), u, id, in)
	if err != nil {
		c.Fail(err)
		return
	}

	msg := "New bid placed successfully. The buyer's original price has been preserved."
	var previous any
	if res.Previous != nil {
		msg = fmt.Sprintf("Bid updated from %s to %s. The buyer's original price has been preserved.",
			notices.Money(*res.Previous), notices.Money(res.Offer.Price))
		previous = res.Previous.InexactFloat64()
	}
	c.Message(http.StatusOK, msg, response.H{
		"order_id":             res.Order.ID,
		"buyer_original_price": res.Order.TotalPrice,
		"your_bid_price":       res.Offer.Price.InexactFloat64(),
		"previous_bid_price":   previous,
		"all_offers":           res.Offers,
		"delivery_date":        date(res.Order),
		"note":                 res.Order.Note,
	})
}

// Mine handles GET /api/my-bids.
func (bc *BidController) Mine(c *ctx.Context) {
	u, ok := bc.actor(c)
	if !ok {
		return
	}

	groups, err := bc.bids.MyBids(c.Context(), u)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Message(http.StatusOK, "Your bids retrieved successfully", response.H{"orders_with_bids": groups})
}

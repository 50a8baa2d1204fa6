package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/shashiranjanraj/bidmarket/app/models"
	"github.com/shashiranjanraj/bidmarket/app/services"
	"github.com/shashiranjanraj/bidmarket/pkg/container"
	"github.com/shashiranjanraj/bidmarket/pkg/ctx"
	"github.com/shashiranjanraj/bidmarket/pkg/response"
	"github.com/shashiranjanraj/bidmarket/pkg/validate"
)

type OrderController struct {
	actors
	orders *services.OrderService
}

func NewOrderController(c *container.Container) *OrderController {
	return &OrderController{
		actors: newActors(c),
		orders: container.Make[*services.OrderService](c),
	}
}

// Store handles POST /api/orders.
func (oc *OrderController) Store(c *ctx.Context) {
	u, ok := oc.actor(c)
	if !ok {
		return
	}
	var in services.CreateOrderInput
	if !c.BindJSON(&in) {
		return
	}

	order, err := oc.orders.Create(c.Context(), u, in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Message(http.StatusCreated, "Order created successfully", response.H{"order_id": order.ID})
}

// Index handles GET /api/orders?status=.
func (oc *OrderController) Index(c *ctx.Context) {
	u, ok := oc.actor(c)
	if !ok {
		return
	}

	orders, err := oc.orders.ListForBuyer(c.Context(), u, c.Query("status"))
	if err != nil {
		c.Fail(err)
		return
	}
	c.Message(http.StatusOK, "Orders fetched successfully.", response.H{"orders": orders})
}

type broadcastInput struct {
	OrderID *uint `json:"order_id"`
}

// Broadcast handles POST /api/order-send-suppliers.
func (oc *OrderController) Broadcast(c *ctx.Context) {
	u, ok := oc.actor(c)
	if !ok {
		return
	}
	var in broadcastInput
	if !c.BindJSON(&in) {
		return
	}

	order, err := oc.orders.Broadcast(c.Context(), u, in.OrderID)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Message(http.StatusOK, "Order sent to all suppliers!", response.H{
		"buyer_id": u.ID,
		"order_id": order.ID,
	})
}

// Sent handles GET /api/notification-orders/{buyer_id}/{order_id}.
func (oc *OrderController) Sent(c *ctx.Context) {
	u, ok := oc.actor(c)
	if !ok {
		return
	}
	buyerID, ok := c.ParamUint("buyer_id")
	if !ok {
		return
	}
	orderID, ok := c.ParamUint("order_id")
	if !ok {
		return
	}

	sent, err := oc.orders.SentOrders(c.Context(), u, buyerID, orderID)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Message(http.StatusOK, "Order details fetched successfully!", response.H{
		"orders": []services.SentOrder{sent},
	})
}

// Feed handles GET /api/all-orders.
func (oc *OrderController) Feed(c *ctx.Context) {
	u, ok := oc.actor(c)
	if !ok {
		return
	}

	orders, err := oc.orders.SupplierFeed(c.Context(), u)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Message(http.StatusOK, "Orders fetched successfully.", response.H{"orders": orders})
}

// Confirm handles PUT /api/orders/{order_id}/confirm.
func (oc *OrderController) Confirm(c *ctx.Context) {
	u, ok := oc.actor(c)
	if !ok {
		return
	}
	id, ok := c.ParamUint("order_id")
	if !ok {
		return
	}
	var in services.ConfirmInput
	if !c.BindJSON(&in) {
		return
	}

	res, err := oc.orders.Confirm(c.Context(), u, id, in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Message(http.StatusOK, "Order confirmed successfully", response.H{
		"supplier":       res.Supplier.Username,
		"original_price": decimal.NewFromFloat(res.OriginalPrice).StringFixed(2),
		"accepted_bid":   res.AcceptedBid.StringFixed(2),
		"delivery_date":  date(res.Order),
		"note":           res.Order.Note,
	})
}

// Reject handles PUT /api/orders/{order_id}/reject.
func (oc *OrderController) Reject(c *ctx.Context) {
	u, ok := oc.actor(c)
	if !ok {
		return
	}
	id, ok := c.ParamUint("order_id")
	if !ok {
		return
	}

	if err := oc.orders.Reject(c.Context(), u, id); err != nil {
		c.Fail(err)
		return
	}
	c.Message(http.StatusOK, "Offer rejected", nil)
}

// Update handles PUT /api/orders/{order_id}/update.
func (oc *OrderController) Update(c *ctx.Context) {
	u, ok := oc.actor(c)
	if !ok {
		return
	}
	id, ok := c.ParamUint("order_id")
	if !ok {
		return
	}
	var patch services.OrderPatch
	if !c.BindJSON(&patch) {
		return
	}

	order, err := oc.orders.Update(c.Context(), u, id, patch)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Message(http.StatusOK, "Order updated successfully", response.H{
		"order_id":      order.ID,
		"status":        order.Status,
		"note":          order.Note,
		"delivery_date": date(order),
	})
}

// Destroy handles DELETE /api/orders/{order_id}/delete.
func (oc *OrderController) Destroy(c *ctx.Context) {
	u, ok := oc.actor(c)
	if !ok {
		return
	}
	id, ok := c.ParamUint("order_id")
	if !ok {
		return
	}

	if err := oc.orders.Delete(c.Context(), u, id); err != nil {
		c.Fail(err)
		return
	}
	c.Message(http.StatusOK, "Order deleted successfully", response.H{"order_id": id})
}

func date(o models.Order) *string {
	if o.DeliveryDate == nil {
		return nil
	}
	s := o.DeliveryDate.Format(validate.DateLayout)
	return &s
}

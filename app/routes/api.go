// Package routes declares the HTTP API.
package routes

import (
	"github.com/shashiranjanraj/bidmarket/app/controllers"
	"github.com/shashiranjanraj/bidmarket/pkg/container"
	"github.com/shashiranjanraj/bidmarket/pkg/ctx"
	"github.com/shashiranjanraj/bidmarket/pkg/middleware"
	"github.com/shashiranjanraj/bidmarket/pkg/rbac"
	"github.com/shashiranjanraj/bidmarket/pkg/router"
)

// RegisterAPI mounts every endpoint under /api. Services are resolved from c.
func RegisterAPI(r *router.Router, c *container.Container) error {
	authC := controllers.NewAuthController(c)
	orderC := controllers.NewOrderController(c)
	bidC := controllers.NewBidController(c)
	notifyC := controllers.NewNotificationController(c)
	graphC, err := controllers.NewGraphQLController(c)
	if err != nil {
		return err
	}

	api := r.Group("/api")
	api.Get("/", "api.index", ctx.Wrap(controllers.Index))
	api.Post("/register", "auth.register", ctx.Wrap(authC.Register))
	api.Post("/login", "auth.login", ctx.Wrap(authC.Login))

	protected := api.Group("", middleware.Authenticate)
	protected.Post("/logout", "auth.logout", ctx.Wrap(authC.Logout))
	protected.Put("/update-address", "auth.address", ctx.Wrap(authC.UpdateAddress))
	protected.Get("/user-profile", "auth.profile", ctx.Wrap(authC.Profile))

	// Role checks on orders live in the services: staff may manage any
	// order and a user may hold both roles.
	protected.Post("/orders", "orders.store", ctx.Wrap(orderC.Store))
	protected.Get("/orders", "orders.index", ctx.Wrap(orderC.Index))
	protected.Post("/order-send-suppliers", "orders.broadcast", ctx.Wrap(orderC.Broadcast))
	protected.Put("/orders/{order_id}/confirm", "orders.confirm", ctx.Wrap(orderC.Confirm))
	protected.Put("/orders/{order_id}/reject", "orders.reject", ctx.Wrap(orderC.Reject))
	protected.Put("/orders/{order_id}/update", "orders.update", ctx.Wrap(orderC.Update))
	protected.Delete("/orders/{order_id}/delete", "orders.destroy", ctx.Wrap(orderC.Destroy))
	protected.Get("/orders/{order_id}/offers", "offers.index", ctx.Wrap(bidC.Offers))

	supplierOnly := func(msg string) router.Middleware { return rbac.Require(msg, rbac.Supplier) }
	protected.Get("/notification-orders/{buyer_id}/{order_id}", "orders.sent", ctx.Wrap(orderC.Sent),
		supplierOnly("Only suppliers can view sent orders."))
	protected.Get("/all-orders", "orders.feed", ctx.Wrap(orderC.Feed),
		supplierOnly("Only suppliers can view available orders."))
	protected.Post("/orders/{order_id}/offers", "offers.store", ctx.Wrap(bidC.Offer),
		supplierOnly("Only suppliers can place bids."))
	protected.Put("/supplier-orders/{order_id}/confirm", "bids.submit", ctx.Wrap(bidC.Submit),
		supplierOnly("Only suppliers can place bids."))
	protected.Get("/my-bids", "bids.mine", ctx.Wrap(bidC.Mine),
		supplierOnly("Only suppliers can view their bids"))

	protected.Get("/notifications", "notifications.index", ctx.Wrap(notifyC.Index))
	protected.Get("/notifications/unread-count", "notifications.unread", ctx.Wrap(notifyC.UnreadCount))
	protected.Put("/notifications/read-all", "notifications.read_all", ctx.Wrap(notifyC.ReadAll))
	protected.Put("/notifications/{id}/read", "notifications.read", ctx.Wrap(notifyC.Read))

	protected.Post("/graphql", "graphql", graphC.Handle())
	return nil
}

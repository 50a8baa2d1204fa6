package controllers

import (
	"context"
	"net/http"

	"github.com/graphql-go/graphql"

	"github.com/shashiranjanraj/bidmarket/app/models"
	"github.com/shashiranjanraj/bidmarket/app/services"
	"github.com/shashiranjanraj/bidmarket/config"
	"github.com/shashiranjanraj/bidmarket/pkg/auth"
	"github.com/shashiranjanraj/bidmarket/pkg/container"
	gql "github.com/shashiranjanraj/bidmarket/pkg/graphql"
)

// GraphQLController exposes read-only queries over the same services as
// the REST endpoints. It must sit behind Authenticate.
type GraphQLController struct {
	auth          *services.AuthService
	orders        *services.OrderService
	bids          *services.BidService
	notifications *services.NotificationService
	schema        graphql.Schema
}

func NewGraphQLController(c *container.Container) (*GraphQLController, error) {
	gc := &GraphQLController{
		auth:          container.Make[*services.AuthService](c),
		orders:        container.Make[*services.OrderService](c),
		bids:          container.Make[*services.BidService](c),
		notifications: container.Make[*services.NotificationService](c),
	}
	schema, err := gql.NewSchema(gc.query())
	if err != nil {
		return nil, err
	}
	gc.schema = schema
	return gc, nil
}

// Handle serves POST /api/graphql.
func (gc *GraphQLController) Handle() http.HandlerFunc {
	return gql.Handler(gc.schema, config.MaxBodyBytes())
}

func (gc *GraphQLController) actor(ctx context.Context) (models.User, error) {
	return gc.auth.Actor(ctx, auth.UserIDFromCtx(ctx))
}

var (
	userType = graphql.NewObject(graphql.ObjectConfig{
		Name: "User",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.Int},
			"username":    &graphql.Field{Type: graphql.String},
			"email":       &graphql.Field{Type: graphql.String},
			"address":     &graphql.Field{Type: graphql.String},
			"is_buyer":    &graphql.Field{Type: graphql.Boolean},
			"is_supplier": &graphql.Field{Type: graphql.Boolean},
		},
	})

	bidType = graphql.NewObject(graphql.ObjectConfig{
		Name: "LowestBid",
		Fields: graphql.Fields{
			"amount":            &graphql.Field{Type: graphql.Float},
			"supplier_id":       &graphql.Field{Type: graphql.Int},
			"supplier_username": &graphql.Field{Type: graphql.String},
		},
	})

	itemType = graphql.NewObject(graphql.ObjectConfig{
		Name: "OrderItem",
		Fields: graphql.Fields{
			"order_item_id":    &graphql.Field{Type: graphql.Int},
			"item_name":        &graphql.Field{Type: graphql.String},
			"quantity":         &graphql.Field{Type: graphql.Int},
			"buyer_price":      &graphql.Field{Type: graphql.Float},
			"supplier_price":   &graphql.Field{Type: graphql.Float},
			"item_total_price": &graphql.Field{Type: graphql.Float},
			"allergy_info":     &graphql.Field{Type: graphql.String},
		},
	})

	// orderType resolves from both BuyerOrder and FeedOrder, which share
	// these json names.
	orderType = graphql.NewObject(graphql.ObjectConfig{
		Name: "Order",
		Fields: graphql.Fields{
			"order_id":             &graphql.Field{Type: graphql.Int},
			"status":               &graphql.Field{Type: graphql.String},
			"buyer_original_price": &graphql.Field{Type: graphql.Float},
			"delivery_date":        &graphql.Field{Type: graphql.String},
			"note":                 &graphql.Field{Type: graphql.String},
			"created_at":           &graphql.Field{Type: graphql.DateTime},
			"lowest_bid":           &graphql.Field{Type: bidType},
			"items":                &graphql.Field{Type: graphql.NewList(itemType)},
		},
	})

	notificationType = graphql.NewObject(graphql.ObjectConfig{
		Name: "Notification",
		Fields: graphql.Fields{
			"id":            &graphql.Field{Type: graphql.Int},
			"type":          &graphql.Field{Type: graphql.String},
			"message":       &graphql.Field{Type: graphql.String},
			"read":          &graphql.Field{Type: graphql.Boolean},
			"created_at":    &graphql.Field{Type: graphql.DateTime},
			"order_id":      &graphql.Field{Type: graphql.Int},
			"supplier_name": &graphql.Field{Type: graphql.String},
			"buyer_name":    &graphql.Field{Type: graphql.String},
		},
	})
)

func (gc *GraphQLController) query() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"me": &graphql.Field{
				Type: userType,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					u, err := gc.actor(p.Context)
					if err != nil {
						return nil, err
					}
					return map[string]any{
						"id":          u.ID,
						"username":    u.Username,
						"email":       u.Email,
						"address":     u.Address,
						"is_buyer":    u.IsBuyer,
						"is_supplier": u.IsSupplier,
					}, nil
				},
			},
			"orders": &graphql.Field{
				Type: graphql.NewList(orderType),
				Args: graphql.FieldConfigArgument{
					"status": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: gc.resolveOrders,
			},
			"notifications": &graphql.Field{
				Type: graphql.NewList(notificationType),
				Args: graphql.FieldConfigArgument{
					"limit": &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					u, err := gc.actor(p.Context)
					if err != nil {
						return nil, err
					}
					limit, _ := p.Args["limit"].(int)
					list, err := gc.notifications.List(p.Context, u, services.ListParams{Limit: limit})
					if err != nil {
						return nil, err
					}
					return list.Items, nil
				},
			},
			"unreadCount": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					u, err := gc.actor(p.Context)
					if err != nil {
						return nil, err
					}
					return gc.notifications.UnreadCount(p.Context, u)
				},
			},
			"lowestOffer": &graphql.Field{
				Type: bidType,
				Args: graphql.FieldConfigArgument{
					"orderId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					u, err := gc.actor(p.Context)
					if err != nil {
						return nil, err
					}
					id, _ := p.Args["orderId"].(int)
					if id < 1 {
						return nil, nil
					}
					list, err := gc.bids.Offers(p.Context, u, uint(id))
					if err != nil {
						return nil, err
					}
					if list.Lowest == nil {
						return nil, nil
					}
					return list.Lowest, nil
				},
			},
		},
	})
}

// resolveOrders lists a buyer's own orders, or a supplier's feed, filtered
// by the optional status argument.
func (gc *GraphQLController) resolveOrders(p graphql.ResolveParams) (any, error) {
	u, err := gc.actor(p.Context)
	if err != nil {
		return nil, err
	}
	status, _ := p.Args["status"].(string)

	if u.IsBuyer {
		return gc.orders.ListForBuyer(p.Context, u, status)
	}

	feed, err := gc.orders.SupplierFeed(p.Context, u)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return feed, nil
	}
	out := make([]services.FeedOrder, 0, len(feed))
	for _, o := range feed {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out, nil
}

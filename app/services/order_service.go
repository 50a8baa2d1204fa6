package services

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/bidmarket/app/events"
	"github.com/shashiranjanraj/bidmarket/app/models"
	"github.com/shashiranjanraj/bidmarket/app/notices"
	"github.com/shashiranjanraj/bidmarket/app/repositories"
	"github.com/shashiranjanraj/bidmarket/pkg/apperr"
	"github.com/shashiranjanraj/bidmarket/pkg/bind"
	"github.com/shashiranjanraj/bidmarket/pkg/collection"
	"github.com/shashiranjanraj/bidmarket/pkg/database"
	"github.com/shashiranjanraj/bidmarket/pkg/notification"
	"github.com/shashiranjanraj/bidmarket/pkg/validate"
)

// OrderService drives an order from creation through broadcast,
// confirmation, updates and removal.
type OrderService struct {
	db       *gorm.DB
	users    *repositories.UserRepository
	orders   *repositories.OrderRepository
	offers   *repositories.OfferRepository
	bids     *BidService
	notifier *Notifier
}

func NewOrderService(db *gorm.DB, bids *BidService, notifier *Notifier) *OrderService {
	return &OrderService{
		db:       db,
		users:    repositories.NewUserRepository(db),
		orders:   repositories.NewOrderRepository(db),
		offers:   repositories.NewOfferRepository(db),
		bids:     bids,
		notifier: notifier,
	}
}

func (s *OrderService) find(ctx context.Context, id uint) (models.Order, error) {
	o, err := s.orders.Find(ctx, id)
	if err != nil {
		return models.Order{}, notFound(err, "Order not found.")
	}
	return o, nil
}

func canManage(actor models.User, o models.Order) bool {
	return actor.ID == o.BuyerID || actor.IsStaff
}

func parseDate(field, raw string) (time.Time, error) {
	t, err := time.Parse(validate.DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, apperr.ValidationFields("Validation failed", map[string]string{
			field: "The " + field + " must be a date in YYYY-MM-DD format.",
		})
	}
	return t, nil
}

// ─── Create / list ────────────────────────────────────────────────────────────

// ItemInput is one line of a new order.
type ItemInput struct {
	Name        string   `json:"name" validate:"required,max=255"`
	Quantity    *int     `json:"quantity" validate:"nullable,min=1"`
	Price       *float64 `json:"price" validate:"nullable,gte=0"`
	AllergyInfo *string  `json:"allergy_info" validate:"nullable,max=255"`
}

// CreateOrderInput is the body of POST /orders.
type CreateOrderInput struct {
	Items      []ItemInput `json:"items" validate:"dive"`
	TotalPrice float64     `json:"total_price" validate:"gte=0"`
}

// Create stores a pending order for buyer.
func (s *OrderService) Create(ctx context.Context, buyer models.User, in CreateOrderInput) (models.Order, error) {
	if !buyer.IsBuyer {
		return models.Order{}, apperr.Permission("Only buyers can create orders.")
	}
	if len(in.Items) == 0 {
		return models.Order{}, apperr.Validation("Items are required.")
	}

	order := models.Order{
		BuyerID:    buyer.ID,
		TotalPrice: in.TotalPrice,
		Status:     models.StatusPending,
	}
	for _, it := range in.Items {
		qty := 1
		if it.Quantity != nil {
			qty = *it.Quantity
		}
		order.Items = append(order.Items, models.OrderItem{
			ItemName:    strings.TrimSpace(it.Name),
			Quantity:    qty,
			BuyerPrice:  it.Price,
			AllergyInfo: it.AllergyInfo,
		})
	}

	if err := database.Transaction(ctx, s.db, func(ctx context.Context) error {
		return s.orders.Create(ctx, &order)
	}); err != nil {
		return models.Order{}, internal(err)
	}

	s.notifier.Fire(ctx, events.OrderCreated, events.Order{OrderID: order.ID, ActorID: buyer.ID})
	return order, nil
}

// SupplierRef names the supplier assigned to an order.
type SupplierRef struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// BuyerOrder is an order as its buyer sees it.
type BuyerOrder struct {
	OrderID            uint           `json:"order_id"`
	TotalPrice         float64        `json:"total_price"`
	BuyerOriginalPrice float64        `json:"buyer_original_price"`
	Status             string         `json:"status"`
	DeliveryDate       *string        `json:"delivery_date"`
	Note               string         `json:"note"`
	CreatedAt          time.Time      `json:"created_at"`
	Supplier           *SupplierRef   `json:"supplier"`
	LowestBid          *LowestBidView `json:"lowest_bid"`
	AllOffers          []OfferView    `json:"all_offers"`
	Items              []ItemView     `json:"items"`
}

// ListForBuyer returns buyer's orders newest first, optionally filtered by
// status.
func (s *OrderService) ListForBuyer(ctx context.Context, buyer models.User, status string) ([]BuyerOrder, error) {
	orders, err := s.orders.ListForBuyer(ctx, buyer.ID, strings.TrimSpace(status))
	if err != nil {
		return nil, internal(err)
	}
	offersByOrder, ix, err := s.offerIndex(ctx, orders)
	if err != nil {
		return nil, err
	}

	out := make([]BuyerOrder, 0, len(orders))
	for _, o := range orders {
		offers := offersByOrder[o.ID]
		v := BuyerOrder{
			OrderID:            o.ID,
			TotalPrice:         o.TotalPrice,
			BuyerOriginalPrice: o.TotalPrice,
			Status:             o.Status,
			DeliveryDate:       dateString(o.DeliveryDate),
			Note:               noteString(o.Note),
			CreatedAt:          o.CreatedAt,
			LowestBid:          lowestBidView(offers, ix),
			AllOffers:          offerViews(offers, ix, 0),
		}
		if o.Supplier != nil {
			v.Supplier = &SupplierRef{ID: o.Supplier.ID, Username: o.Supplier.Username}
		}
		var quoted map[uint]models.ItemOffer
		if best := lowest(offers); best != nil {
			quoted = ix[best.SupplierID]
		}
		v.Items = itemViews(o.Items, quoted)
		out = append(out, v)
	}
	return out, nil
}

func (s *OrderService) offerIndex(ctx context.Context, orders []models.Order) (map[uint][]models.Offer, itemOfferIndex, error) {
	ids := collection.Map(orders, func(o models.Order) uint { return o.ID })
	offers, err := s.offers.AvailableForOrders(ctx, ids)
	if err != nil {
		return nil, nil, internal(err)
	}
	ix, err := s.offers.LatestItemOffers(ctx, itemIDs(orders...))
	if err != nil {
		return nil, nil, internal(err)
	}
	return offers, ix, nil
}

// ─── Broadcast ────────────────────────────────────────────────────────────────

// Broadcast sends an order to every supplier other than buyer. A nil
// orderID targets buyer's most recently created order.
func (s *OrderService) Broadcast(ctx context.Context, buyer models.User, orderID *uint) (models.Order, error) {
	var (
		order models.Order
		err   error
	)
	if orderID == nil {
		order, err = s.orders.LatestForBuyer(ctx, buyer.ID)
		if err != nil {
			return models.Order{}, notFound(err, "No orders found.")
		}
	} else {
		if order, err = s.find(ctx, *orderID); err != nil {
			return models.Order{}, err
		}
		if order.BuyerID != buyer.ID {
			return models.Order{}, apperr.Permission("You don't have permission to send this order.")
		}
	}

	suppliers, err := s.users.Suppliers(ctx, buyer.ID)
	if err != nil {
		return models.Order{}, internal(err)
	}
	if len(suppliers) == 0 {
		return models.Order{}, apperr.NotFound("No suppliers found.")
	}

	envs := make([]notification.Envelope, 0, len(suppliers))
	err = database.Transaction(ctx, s.db, func(ctx context.Context) error {
		var rows []models.SentOrderItem
		for _, sup := range suppliers {
			for _, it := range order.Items {
				rows = append(rows, models.SentOrderItem{SupplierID: sup.ID, OrderItemID: it.ID, BuyerID: buyer.ID})
			}
			envs = append(envs, notification.To(sup, notices.NewOrder{
				OrderID:   order.ID,
				BuyerID:   buyer.ID,
				BuyerName: buyer.Username,
			}))
		}
		if err := s.orders.CreateSent(ctx, rows); err != nil {
			return err
		}
		return s.notifier.Store(ctx, envs...)
	})
	if err != nil {
		return models.Order{}, internal(err)
	}

	s.notifier.Deliver(ctx, envs...)
	s.notifier.Fire(ctx, events.OrderBroadcast, events.Order{OrderID: order.ID, ActorID: buyer.ID})
	return order, nil
}

// SentItemView is an item broadcast to the requesting supplier.
type SentItemView struct {
	ItemView
	SupplierUsername string `json:"supplier_username"`
}

// SentOrder is what a supplier received for one order.
type SentOrder struct {
	OrderID         uint           `json:"order_id"`
	BuyerID         uint           `json:"buyer_id"`
	BuyerUsername   string         `json:"buyer_username"`
	OrderStatus     string         `json:"order_status"`
	OrderTotalPrice float64        `json:"order_total_price"`
	SentAt          time.Time      `json:"sent_at"`
	Items           []SentItemView `json:"items"`
}

// SentOrders returns the items of orderID that buyerID broadcast to supplier.
func (s *OrderService) SentOrders(ctx context.Context, supplier models.User, buyerID, orderID uint) (SentOrder, error) {
	rows, err := s.orders.SentItems(ctx, supplier.ID, buyerID, orderID)
	if err != nil {
		return SentOrder{}, internal(err)
	}
	if len(rows) == 0 {
		return SentOrder{}, apperr.NotFound("No Orders Yet!")
	}
	order, err := s.find(ctx, orderID)
	if err != nil {
		return SentOrder{}, err
	}

	out := SentOrder{
		OrderID:         order.ID,
		BuyerID:         order.BuyerID,
		BuyerUsername:   order.Buyer.Username,
		OrderStatus:     order.Status,
		OrderTotalPrice: order.TotalPrice,
	}
	for _, g := range collection.GroupBy(rows, func(r models.SentOrderItem) uint { return r.OrderItemID }) {
		for _, r := range g.Items {
			if r.SentAt.After(out.SentAt) {
				out.SentAt = r.SentAt
			}
		}
		item := itemViews([]models.OrderItem{g.Items[0].OrderItem}, nil)[0]
		out.Items = append(out.Items, SentItemView{ItemView: item, SupplierUsername: supplier.Username})
	}
	return out, nil
}

// ─── Supplier feed ────────────────────────────────────────────────────────────

// FeedOrder is an order as a supplier sees it.
type FeedOrder struct {
	OrderID            uint             `json:"order_id"`
	BuyerID            uint             `json:"buyer_id"`
	BuyerUsername      string           `json:"buyer_username"`
	BuyerAddress       *string          `json:"buyer_address"`
	CreatedAt          time.Time        `json:"created_at"`
	DeliveryDate       *string          `json:"delivery_date"`
	Note               string           `json:"note"`
	Status             string           `json:"status"`
	BuyerOriginalPrice float64          `json:"buyer_original_price"`
	MyItemBids         map[uint]float64 `json:"my_item_bids"`
	LowestBid          *LowestBidView   `json:"lowest_bid"`
	IsLowestBidder     bool             `json:"is_lowest_bidder"`
	AllOffers          []OfferView      `json:"all_offers"`
	Items              []ItemView       `json:"items"`
}

// SupplierFeed lists every pending order and the orders already confirmed
// to supplier.
func (s *OrderService) SupplierFeed(ctx context.Context, supplier models.User) ([]FeedOrder, error) {
	if !supplier.IsSupplier {
		return nil, apperr.Permission("Only suppliers can view available orders.")
	}
	orders, err := s.orders.SupplierFeed(ctx, supplier.ID)
	if err != nil {
		return nil, internal(err)
	}
	offersByOrder, ix, err := s.offerIndex(ctx, orders)
	if err != nil {
		return nil, err
	}

	out := make([]FeedOrder, 0, len(orders))
	for _, o := range orders {
		offers := offersByOrder[o.ID]
		mine := map[uint]float64{}
		for _, it := range o.Items {
			if io, ok := ix[supplier.ID][it.ID]; ok {
				mine[it.ID] = io.Price.InexactFloat64()
			}
		}
		best := lowest(offers)
		out = append(out, FeedOrder{
			OrderID:            o.ID,
			BuyerID:            o.BuyerID,
			BuyerUsername:      o.Buyer.Username,
			BuyerAddress:       o.Buyer.Address,
			CreatedAt:          o.CreatedAt,
			DeliveryDate:       dateString(o.DeliveryDate),
			Note:               noteString(o.Note),
			Status:             o.Status,
			BuyerOriginalPrice: o.TotalPrice,
			MyItemBids:         mine,
			LowestBid:          lowestBidView(offers, ix),
			IsLowestBidder:     best != nil && best.SupplierID == supplier.ID,
			AllOffers:          offerViews(offers, ix, supplier.ID),
			Items:              itemViews(o.Items, ix[supplier.ID]),
		})
	}
	return out, nil
}

// ─── Confirm / reject ─────────────────────────────────────────────────────────

// ConfirmInput is the body of PUT /orders/{id}/confirm.
type ConfirmInput struct {
	DeliveryDate string  `json:"delivery_date"`
	Note         *string `json:"note"`
}

// Confirmation reports the bid an order was confirmed at.
type Confirmation struct {
	Order         models.Order
	Supplier      models.User
	OriginalPrice float64
	AcceptedBid   decimal.Decimal
}

// Confirm awards a pending order to its lowest available offer.
func (s *OrderService) Confirm(ctx context.Context, actor models.User, orderID uint, in ConfirmInput) (Confirmation, error) {
	var (
		res  Confirmation
		envs []notification.Envelope
	)
	err := database.Transaction(ctx, s.db, func(ctx context.Context) error {
		order, err := s.find(ctx, orderID)
		if err != nil {
			return err
		}
		if !canManage(actor, order) {
			return apperr.Permission("You don't have permission to confirm this order.")
		}
		if order.Status != models.StatusPending {
			return apperr.Validation("Only pending orders can be confirmed")
		}
		if strings.TrimSpace(in.DeliveryDate) == "" {
			return apperr.Validation("Delivery date is required to confirm an order")
		}
		date, err := parseDate("delivery_date", in.DeliveryDate)
		if err != nil {
			return err
		}
		if !order.Buyer.HasAddress() {
			if order.BuyerID != actor.ID {
				return apperr.Validation("The buyer must set an address before this order can be confirmed")
			}
			return apperr.Validation("You must set your address before confirming an order")
		}

		best, err := s.bids.LowestOffer(ctx, order.ID)
		if err != nil {
			return err
		}
		if best == nil {
			return apperr.Validation("No offers available")
		}

		order.SupplierID = &best.SupplierID
		order.Supplier = &best.Supplier
		order.Status = models.StatusConfirmed
		order.DeliveryDate = &date
		if in.Note != nil {
			order.Note = in.Note
		}
		if err := s.orders.Save(ctx, &order); err != nil {
			return err
		}
		if err := s.offers.SettleItemOffers(ctx, itemIDs(order), best.SupplierID); err != nil {
			return err
		}

		res = Confirmation{
			Order:         order,
			Supplier:      best.Supplier,
			OriginalPrice: order.TotalPrice,
			AcceptedBid:   best.Price,
		}
		if best.SupplierID != actor.ID {
			envs = append(envs, notification.To(best.Supplier, notices.BidAccepted{
				Order:         order,
				BuyerName:     order.Buyer.Username,
				Price:         best.Price,
				OriginalPrice: order.TotalPrice,
			}))
		}
		return s.notifier.Store(ctx, envs...)
	})
	if err != nil {
		return Confirmation{}, internal(err)
	}

	s.notifier.Deliver(ctx, envs...)
	s.notifier.Fire(ctx, events.OrderConfirmed, events.Order{OrderID: orderID, ActorID: actor.ID})
	return res, nil
}

// Reject deletes an order. When a supplier was assigned both parties are
// emailed; no notification rows are written.
func (s *OrderService) Reject(ctx context.Context, actor models.User, orderID uint) error {
	var envs []notification.Envelope
	err := database.Transaction(ctx, s.db, func(ctx context.Context) error {
		order, err := s.find(ctx, orderID)
		if err != nil {
			return err
		}
		if !canManage(actor, order) {
			return apperr.Permission("You don't have permission to reject this order.")
		}
		if order.Supplier != nil {
			envs = append(envs,
				notification.To(*order.Supplier, notices.OrderRejected{OrderID: order.ID, BuyerName: order.Buyer.Username}),
				notification.To(order.Buyer, notices.OrderRejected{OrderID: order.ID, BuyerName: order.Buyer.Username, ToBuyer: true}),
			)
		}
		return s.orders.Delete(ctx, order.ID)
	})
	if err != nil {
		return internal(err)
	}

	s.notifier.Deliver(ctx, envs...)
	s.notifier.Fire(ctx, events.OrderRejected, events.Order{OrderID: orderID, ActorID: actor.ID})
	return nil
}

// ─── Update / delete ──────────────────────────────────────────────────────────

// OrderPatch is the body of PUT /orders/{id}/update. Absent fields are left
// alone; an explicit null clears note or delivery_date.
type OrderPatch struct {
	Status       bind.Optional[string] `json:"status"`
	Note         bind.Optional[string] `json:"note"`
	DeliveryDate bind.Optional[string] `json:"delivery_date"`
}

// Update applies patch and tells the assigned supplier about every field
// that changed.
func (s *OrderService) Update(ctx context.Context, actor models.User, orderID uint, patch OrderPatch) (models.Order, error) {
	var (
		order models.Order
		envs  []notification.Envelope
	)
	err := database.Transaction(ctx, s.db, func(ctx context.Context) error {
		var err error
		if order, err = s.find(ctx, orderID); err != nil {
			return err
		}
		if !canManage(actor, order) {
			return apperr.Permission("You don't have permission to update this order")
		}

		var changed []string

		if patch.Status.Set {
			if patch.Status.Null || !models.ValidStatus(patch.Status.Value) {
				return apperr.ValidationFields("Validation failed", map[string]string{
					"status": "The selected status is invalid.",
				})
			}
			if patch.Status.Value != order.Status {
				if order.Status == models.StatusConfirmed {
					order.SupplierID = nil
					order.Supplier = nil
				}
				order.Status = patch.Status.Value
				changed = append(changed, notices.FieldStatus)
			}
		}

		if patch.Note.Set {
			next := patch.Note.Ptr()
			if noteString(next) != noteString(order.Note) || (next == nil) != (order.Note == nil) {
				order.Note = next
				changed = append(changed, notices.FieldNote)
			}
		}

		if patch.DeliveryDate.Set {
			var next *time.Time
			if !patch.DeliveryDate.Null {
				d, err := parseDate("delivery_date", patch.DeliveryDate.Value)
				if err != nil {
					return err
				}
				next = &d
			}
			if !sameDate(order.DeliveryDate, next) {
				order.DeliveryDate = next
				changed = append(changed, notices.FieldDeliveryDate)
			}
		}

		if len(changed) == 0 {
			return nil
		}
		if err := s.orders.Save(ctx, &order); err != nil {
			return err
		}

		if order.Supplier != nil && order.Supplier.ID != actor.ID {
			for _, field := range changed {
				envs = append(envs, notification.To(*order.Supplier, notices.OrderChanged{Order: order, Field: field}))
			}
		}
		return s.notifier.Store(ctx, envs...)
	})
	if err != nil {
		return models.Order{}, internal(err)
	}

	s.notifier.Deliver(ctx, envs...)
	s.notifier.Fire(ctx, events.OrderUpdated, events.Order{OrderID: orderID, ActorID: actor.ID})
	return order, nil
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Format(validate.DateLayout) == b.Format(validate.DateLayout)
}

// Delete removes a pending order owned by actor.
func (s *OrderService) Delete(ctx context.Context, actor models.User, orderID uint) error {
	err := database.Transaction(ctx, s.db, func(ctx context.Context) error {
		order, err := s.find(ctx, orderID)
		if err != nil {
			return err
		}
		if order.BuyerID != actor.ID {
			return apperr.Permission("You don't have permission to delete this order")
		}
		if order.Status != models.StatusPending {
			return apperr.Validation("Only pending orders can be deleted")
		}
		return s.orders.Delete(ctx, order.ID)
	})
	if err != nil {
		return internal(err)
	}

	s.notifier.Fire(ctx, events.OrderDeleted, events.Order{OrderID: orderID, ActorID: actor.ID})
	return nil
}

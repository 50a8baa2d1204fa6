package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/bidmarket/app/events"
	"github.com/shashiranjanraj/bidmarket/app/models"
	"github.com/shashiranjanraj/bidmarket/app/notices"
	"github.com/shashiranjanraj/bidmarket/app/repositories"
	"github.com/shashiranjanraj/bidmarket/pkg/apperr"
	"github.com/shashiranjanraj/bidmarket/pkg/collection"
	"github.com/shashiranjanraj/bidmarket/pkg/database"
	"github.com/shashiranjanraj/bidmarket/pkg/notification"
)

// BidService places order-level and item-level bids and answers which bid
// is currently lowest.
type BidService struct {
	db       *gorm.DB
	orders   *repositories.OrderRepository
	offers   *repositories.OfferRepository
	notifier *Notifier
}

func NewBidService(db *gorm.DB, notifier *Notifier) *BidService {
	return &BidService{
		db:       db,
		orders:   repositories.NewOrderRepository(db),
		offers:   repositories.NewOfferRepository(db),
		notifier: notifier,
	}
}

// SubmitOrderBid retires the supplier's available offers on order and
// inserts a new available one. previous is the price of the pair's most
// recent earlier offer, if any. Call it with a transaction ctx.
func (s *BidService) SubmitOrderBid(ctx context.Context, order models.Order, supplier models.User, price decimal.Decimal) (offer models.Offer, previous *decimal.Decimal, err error) {
	prior, err := s.offers.LatestForPair(ctx, order.ID, supplier.ID)
	if err != nil {
		return offer, nil, err
	}
	if prior != nil {
		p := prior.Price
		previous = &p
	}

	if err := s.offers.Retire(ctx, order.ID, supplier.ID); err != nil {
		return offer, nil, err
	}

	offer = models.Offer{
		OrderID:    order.ID,
		SupplierID: supplier.ID,
		BuyerID:    order.BuyerID,
		Price:      price,
		Status:     models.OfferAvailable,
	}
	if err := s.offers.Create(ctx, &offer); err != nil {
		return models.Offer{}, nil, err
	}
	offer.Supplier = supplier
	return offer, previous, nil
}

// SubmitItemBid upserts the (item, supplier) item offer. A revision moves
// it to updated.
func (s *BidService) SubmitItemBid(ctx context.Context, item models.OrderItem, supplier models.User, price decimal.Decimal) (models.ItemOffer, error) {
	existing, err := s.offers.FindItemOffer(ctx, item.ID, supplier.ID)
	if err != nil {
		return models.ItemOffer{}, err
	}

	io := models.ItemOffer{
		OrderItemID: item.ID,
		SupplierID:  supplier.ID,
		Status:      models.ItemOfferAvailable,
	}
	if existing != nil {
		io = *existing
		io.Status = models.ItemOfferUpdated
	}
	io.Price = price

	if err := s.offers.SaveItemOffer(ctx, &io); err != nil {
		return models.ItemOffer{}, err
	}
	return io, nil
}

// LowestOffer returns the cheapest available offer on orderID, or nil. It
// always reads the current rows.
func (s *BidService) LowestOffer(ctx context.Context, orderID uint) (*models.Offer, error) {
	offers, err := s.offers.Available(ctx, orderID)
	if err != nil {
		return nil, internal(err)
	}
	return lowest(offers), nil
}

// ItemBidsForSupplier returns supplierID's newest item offer per item of
// order, keyed by item id.
func (s *BidService) ItemBidsForSupplier(ctx context.Context, order models.Order, supplierID uint) (map[uint]models.ItemOffer, error) {
	ix, err := s.offers.LatestItemOffers(ctx, itemIDs(order))
	if err != nil {
		return nil, internal(err)
	}
	if bids, ok := ix[supplierID]; ok {
		return bids, nil
	}
	return map[uint]models.ItemOffer{}, nil
}

// BidInput is the body of a supplier's bid. ItemPrices is keyed by order
// item id; ids not on the order are ignored.
type BidInput struct {
	SupplierPrice *decimal.Decimal           `json:"supplier_price"`
	ItemPrices    map[string]decimal.Decimal `json:"item_prices"`
}

// BidResult describes a submitted bid and the order's offers afterwards.
type BidResult struct {
	Order      models.Order
	Offer      models.Offer
	Previous   *decimal.Decimal
	ItemPrices map[uint]decimal.Decimal
	Offers     []OfferView
}

func checkPrice(field string, p *decimal.Decimal) error {
	if p == nil {
		return apperr.ValidationFields("Validation failed", map[string]string{
			field: fmt.Sprintf("The %s field is required.", field),
		})
	}
	if p.IsNegative() {
		return apperr.ValidationFields("Validation failed", map[string]string{
			field: fmt.Sprintf("The %s must be greater than or equal to 0.", field),
		})
	}
	return nil
}

// parseItemPrices validates the keyed item prices and returns them in id
// order.
func parseItemPrices(in map[string]decimal.Decimal) ([]uint, map[uint]decimal.Decimal, error) {
	out := make(map[uint]decimal.Decimal, len(in))
	ids := make([]uint, 0, len(in))
	for key, price := range in {
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			continue
		}
		p := price
		if err := checkPrice("item_prices."+key, &p); err != nil {
			return nil, nil, err
		}
		out[uint(id)] = p
		ids = append(ids, uint(id))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, out, nil
}

// Submit places an order-level bid plus item-level bids for the order's
// own items, then tells the buyer.
func (s *BidService) Submit(ctx context.Context, actor models.User, orderID uint, in BidInput) (BidResult, error) {
	if !actor.IsSupplier {
		return BidResult{}, apperr.Permission("Only suppliers can place bids.")
	}
	if err := checkPrice("supplier_price", in.SupplierPrice); err != nil {
		return BidResult{}, err
	}
	ids, prices, err := parseItemPrices(in.ItemPrices)
	if err != nil {
		return BidResult{}, err
	}
	return s.place(ctx, actor, orderID, *in.SupplierPrice, ids, prices)
}

// SubmitSimple places an order-level bid only.
func (s *BidService) SubmitSimple(ctx context.Context, actor models.User, orderID uint, price *decimal.Decimal) (BidResult, error) {
	if !actor.IsSupplier {
		return BidResult{}, apperr.Permission("Only suppliers can place bids.")
	}
	if err := checkPrice("price", price); err != nil {
		return BidResult{}, err
	}
	return s.place(ctx, actor, orderID, *price, nil, nil)
}

func (s *BidService) place(ctx context.Context, actor models.User, orderID uint, price decimal.Decimal, ids []uint, prices map[uint]decimal.Decimal) (BidResult, error) {
	var (
		res  BidResult
		envs []notification.Envelope
	)
	err := database.Transaction(ctx, s.db, func(ctx context.Context) error {
		order, err := s.orders.Find(ctx, orderID)
		if err != nil {
			return notFound(err, "Order not found.")
		}

		offer, previous, err := s.SubmitOrderBid(ctx, order, actor, price)
		if err != nil {
			return err
		}

		items := collection.KeyBy(order.Items, func(it models.OrderItem) uint { return it.ID })
		placed := map[uint]decimal.Decimal{}
		for _, id := range ids {
			item, ok := items[id]
			if !ok {
				continue
			}
			if _, err := s.SubmitItemBid(ctx, item, actor, prices[id]); err != nil {
				return err
			}
			placed[id] = prices[id]
		}

		res = BidResult{Order: order, Offer: offer, Previous: previous, ItemPrices: placed}

		if order.BuyerID != actor.ID {
			envs = append(envs, notification.To(order.Buyer, notices.BidPlaced{
				OrderID:    order.ID,
				Supplier:   actor,
				Price:      price,
				Previous:   previous,
				ItemPrices: placed,
			}))
		}
		return s.notifier.Store(ctx, envs...)
	})
	if err != nil {
		return BidResult{}, internal(err)
	}

	s.notifier.Deliver(ctx, envs...)
	s.notifier.Fire(ctx, events.BidSubmitted, events.Bid{
		OrderID:    orderID,
		SupplierID: actor.ID,
		Price:      price,
		IsUpdate:   res.Previous != nil,
	})

	res.Offers, err = s.views(ctx, res.Order, actor.ID)
	return res, err
}

func (s *BidService) views(ctx context.Context, order models.Order, viewerID uint) ([]OfferView, error) {
	offers, err := s.offers.Available(ctx, order.ID)
	if err != nil {
		return nil, internal(err)
	}
	ix, err := s.offers.LatestItemOffers(ctx, itemIDs(order))
	if err != nil {
		return nil, internal(err)
	}
	return offerViews(offers, ix, viewerID), nil
}

// OfferList is the set of live offers on an order.
type OfferList struct {
	Order  models.Order
	Offers []OfferView
	Lowest *LowestBidView
}

// Offers lists the available offers on orderID. The buyer, staff and
// suppliers may read it.
func (s *BidService) Offers(ctx context.Context, actor models.User, orderID uint) (OfferList, error) {
	order, err := s.orders.Find(ctx, orderID)
	if err != nil {
		return OfferList{}, notFound(err, "Order not found.")
	}
	if order.BuyerID != actor.ID && !actor.IsStaff && !actor.IsSupplier {
		return OfferList{}, apperr.Permission("You don't have permission to view offers for this order.")
	}

	offers, err := s.offers.Available(ctx, order.ID)
	if err != nil {
		return OfferList{}, internal(err)
	}
	ix, err := s.offers.LatestItemOffers(ctx, itemIDs(order))
	if err != nil {
		return OfferList{}, internal(err)
	}

	var viewer uint
	if actor.IsSupplier {
		viewer = actor.ID
	}
	return OfferList{
		Order:  order,
		Offers: offerViews(offers, ix, viewer),
		Lowest: lowestBidView(offers, ix),
	}, nil
}

// MyBid is one of the caller's live offers.
type MyBid struct {
	BidID     uint      `json:"bid_id"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"created_at"`
	IsLatest  bool      `json:"is_latest"`
}

// BidGroup is the caller's live offers on one order.
type BidGroup struct {
	OrderID            uint      `json:"order_id"`
	BuyerID            uint      `json:"buyer_id"`
	BuyerUsername      string    `json:"buyer_username"`
	OrderStatus        string    `json:"order_status"`
	BuyerOriginalPrice float64   `json:"buyer_original_price"`
	DeliveryDate       *string   `json:"delivery_date"`
	Note               string    `json:"note"`
	CreatedAt          time.Time `json:"created_at"`
	MyBids             []MyBid   `json:"my_bids"`
}

// MyBids groups the supplier's available offers by order, newest first.
func (s *BidService) MyBids(ctx context.Context, actor models.User) ([]BidGroup, error) {
	if !actor.IsSupplier {
		return nil, apperr.Permission("Only suppliers can view their bids")
	}

	offers, err := s.offers.AvailableBySupplier(ctx, actor.ID)
	if err != nil {
		return nil, internal(err)
	}
	groups := collection.GroupBy(offers, func(o models.Offer) uint { return o.OrderID })

	orders, err := s.orders.ByIDs(ctx, collection.Map(groups, func(g collection.Group[uint, models.Offer]) uint { return g.Key }))
	if err != nil {
		return nil, internal(err)
	}

	out := make([]BidGroup, 0, len(groups))
	for _, g := range groups {
		order, ok := orders[g.Key]
		if !ok {
			continue
		}
		bg := BidGroup{
			OrderID:            order.ID,
			BuyerID:            order.BuyerID,
			BuyerUsername:      order.Buyer.Username,
			OrderStatus:        order.Status,
			BuyerOriginalPrice: order.TotalPrice,
			DeliveryDate:       dateString(order.DeliveryDate),
			Note:               noteString(order.Note),
			CreatedAt:          order.CreatedAt,
		}
		for i, o := range g.Items {
			bg.MyBids = append(bg.MyBids, MyBid{
				BidID:     o.ID,
				Price:     o.Price.InexactFloat64(),
				CreatedAt: o.CreatedAt,
				IsLatest:  i == 0,
			})
		}
		out = append(out, bg)
	}
	return out, nil
}

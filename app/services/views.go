package services

import (
	"sort"
	"time"

	"github.com/shashiranjanraj/bidmarket/app/models"
	"github.com/shashiranjanraj/bidmarket/pkg/validate"
)

// OfferView is an available order-level bid. IsMyOffer is only set for
// supplier-facing listings.
type OfferView struct {
	OfferID          uint             `json:"offer_id"`
	SupplierID       uint             `json:"supplier_id"`
	SupplierUsername string           `json:"supplier_username"`
	Price            float64          `json:"price"`
	IsLowest         bool             `json:"is_lowest"`
	IsMyOffer        *bool            `json:"is_my_offer,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	ItemPrices       map[uint]float64 `json:"item_prices"`
}

// LowestBidView summarises the winning bid of an order.
type LowestBidView struct {
	Amount           float64          `json:"amount"`
	SupplierID       uint             `json:"supplier_id"`
	SupplierUsername string           `json:"supplier_username"`
	ItemPrices       map[uint]float64 `json:"item_prices"`
}

// ItemView is one order line.
type ItemView struct {
	OrderItemID    uint     `json:"order_item_id"`
	ItemName       string   `json:"item_name"`
	Quantity       int      `json:"quantity"`
	BuyerPrice     *float64 `json:"buyer_price"`
	SupplierPrice  *float64 `json:"supplier_price,omitempty"`
	ItemTotalPrice float64  `json:"item_total_price"`
	AllergyInfo    string   `json:"allergy_info"`
}

// itemOfferIndex is result[supplierID][itemID] of the newest item offers.
type itemOfferIndex map[uint]map[uint]models.ItemOffer

func (ix itemOfferIndex) prices(supplierID uint) map[uint]float64 {
	out := map[uint]float64{}
	for itemID, io := range ix[supplierID] {
		out[itemID] = io.Price.InexactFloat64()
	}
	return out
}

// lowest picks the minimum price. offers must be in insertion order so that
// the first inserted wins a tie.
func lowest(offers []models.Offer) *models.Offer {
	var best *models.Offer
	for i := range offers {
		if best == nil || offers[i].Price.LessThan(best.Price) {
			best = &offers[i]
		}
	}
	return best
}

// offerViews renders offers cheapest first. viewerID > 0 fills IsMyOffer.
func offerViews(offers []models.Offer, ix itemOfferIndex, viewerID uint) []OfferView {
	best := lowest(offers)
	views := make([]OfferView, 0, len(offers))
	for _, o := range offers {
		v := OfferView{
			OfferID:          o.ID,
			SupplierID:       o.SupplierID,
			SupplierUsername: o.Supplier.Username,
			Price:            o.Price.InexactFloat64(),
			IsLowest:         best != nil && best.ID == o.ID,
			CreatedAt:        o.CreatedAt,
			ItemPrices:       ix.prices(o.SupplierID),
		}
		if viewerID > 0 {
			mine := o.SupplierID == viewerID
			v.IsMyOffer = &mine
		}
		views = append(views, v)
	}
	sort.SliceStable(views, func(i, j int) bool { return views[i].Price < views[j].Price })
	return views
}

func lowestBidView(offers []models.Offer, ix itemOfferIndex) *LowestBidView {
	best := lowest(offers)
	if best == nil {
		return nil
	}
	return &LowestBidView{
		Amount:           best.Price.InexactFloat64(),
		SupplierID:       best.SupplierID,
		SupplierUsername: best.Supplier.Username,
		ItemPrices:       ix.prices(best.SupplierID),
	}
}

// itemViews renders order lines. When quoted is non-nil, SupplierPrice
// carries that supplier's bid for the line.
func itemViews(items []models.OrderItem, quoted map[uint]models.ItemOffer) []ItemView {
	views := make([]ItemView, 0, len(items))
	for _, it := range items {
		v := ItemView{
			OrderItemID:    it.ID,
			ItemName:       it.ItemName,
			Quantity:       it.Quantity,
			BuyerPrice:     it.BuyerPrice,
			ItemTotalPrice: it.LineTotal(),
			AllergyInfo:    "None",
		}
		if it.AllergyInfo != nil && *it.AllergyInfo != "" {
			v.AllergyInfo = *it.AllergyInfo
		}
		if quoted != nil {
			if io, ok := quoted[it.ID]; ok {
				p := io.Price.InexactFloat64()
				v.SupplierPrice = &p
			}
		}
		views = append(views, v)
	}
	return views
}

func itemIDs(orders ...models.Order) []uint {
	var ids []uint
	for _, o := range orders {
		for _, it := range o.Items {
			ids = append(ids, it.ID)
		}
	}
	return ids
}

func dateString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(validate.DateLayout)
	return &s
}

func noteString(n *string) string {
	if n == nil {
		return ""
	}
	return *n
}

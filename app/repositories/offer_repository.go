package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/bidmarket/app/models"
	"github.com/shashiranjanraj/bidmarket/pkg/database"
	"github.com/shashiranjanraj/bidmarket/pkg/metrics"
)

// OfferRepository handles order-level and item-level bids.
type OfferRepository struct {
	db *gorm.DB
}

func NewOfferRepository(db *gorm.DB) *OfferRepository {
	return &OfferRepository{db: db}
}

func (r *OfferRepository) conn(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, r.db)
}

// Available returns the order's available offers in insertion order, with
// suppliers loaded.
func (r *OfferRepository) Available(ctx context.Context, orderID uint) ([]models.Offer, error) {
	defer metrics.ObserveDBQuery("offers.available", time.Now())

	var offers []models.Offer
	err := r.conn(ctx).
		Preload("Supplier").
		Where("order_id = ? AND status = ?", orderID, models.OfferAvailable).
		Order("id").
		Find(&offers).Error
	return offers, err
}

// AvailableForOrders groups available offers by order id.
func (r *OfferRepository) AvailableForOrders(ctx context.Context, orderIDs []uint) (map[uint][]models.Offer, error) {
	out := make(map[uint][]models.Offer, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}
	defer metrics.ObserveDBQuery("offers.available", time.Now())

	var offers []models.Offer
	err := r.conn(ctx).
		Preload("Supplier").
		Where("order_id IN ? AND status = ?", orderIDs, models.OfferAvailable).
		Order("id").
		Find(&offers).Error
	if err != nil {
		return nil, err
	}
	for _, o := range offers {
		out[o.OrderID] = append(out[o.OrderID], o)
	}
	return out, nil
}

// LatestForPair returns the newest offer of any status by supplierID on
// orderID, or nil.
func (r *OfferRepository) LatestForPair(ctx context.Context, orderID, supplierID uint) (*models.Offer, error) {
	var o models.Offer
	err := r.conn(ctx).
		Where("order_id = ? AND supplier_id = ?", orderID, supplierID).
		Order("id DESC").
		First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Retire flips every available offer of the pair to unavailable.
func (r *OfferRepository) Retire(ctx context.Context, orderID, supplierID uint) error {
	return r.conn(ctx).Model(&models.Offer{}).
		Where("order_id = ? AND supplier_id = ? AND status = ?", orderID, supplierID, models.OfferAvailable).
		Update("status", models.OfferUnavailable).Error
}

func (r *OfferRepository) Create(ctx context.Context, o *models.Offer) error {
	return r.conn(ctx).Create(o).Error
}

// AvailableBySupplier lists a supplier's available offers, newest first.
func (r *OfferRepository) AvailableBySupplier(ctx context.Context, supplierID uint) ([]models.Offer, error) {
	var offers []models.Offer
	err := r.conn(ctx).
		Where("supplier_id = ? AND status = ?", supplierID, models.OfferAvailable).
		Order("id DESC").
		Find(&offers).Error
	return offers, err
}

// FindItemOffer returns the first item offer for (item, supplier), or nil.
func (r *OfferRepository) FindItemOffer(ctx context.Context, itemID, supplierID uint) (*models.ItemOffer, error) {
	var io models.ItemOffer
	err := r.conn(ctx).
		Where("order_item_id = ? AND supplier_id = ?", itemID, supplierID).
		Order("id").
		First(&io).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &io, nil
}

// SaveItemOffer inserts io, or updates it when it already has an id.
func (r *OfferRepository) SaveItemOffer(ctx context.Context, io *models.ItemOffer) error {
	return r.conn(ctx).Save(io).Error
}

// LatestItemOffers returns, for each supplier, the newest item offer per
// item among itemIDs: result[supplierID][itemID].
func (r *OfferRepository) LatestItemOffers(ctx context.Context, itemIDs []uint) (map[uint]map[uint]models.ItemOffer, error) {
	out := map[uint]map[uint]models.ItemOffer{}
	if len(itemIDs) == 0 {
		return out, nil
	}

	var rows []models.ItemOffer
	err := r.conn(ctx).
		Where("order_item_id IN ?", itemIDs).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, io := range rows {
		bySupplier, ok := out[io.SupplierID]
		if !ok {
			bySupplier = map[uint]models.ItemOffer{}
			out[io.SupplierID] = bySupplier
		}
		if _, seen := bySupplier[io.OrderItemID]; !seen {
			bySupplier[io.OrderItemID] = io
		}
	}
	return out, nil
}

// SettleItemOffers marks the winner's item offers on itemIDs accepted and
// everybody else's rejected.
func (r *OfferRepository) SettleItemOffers(ctx context.Context, itemIDs []uint, winnerID uint) error {
	if len(itemIDs) == 0 {
		return nil
	}
	db := r.conn(ctx)
	if err := db.Model(&models.ItemOffer{}).
		Where("order_item_id IN ? AND supplier_id = ?", itemIDs, winnerID).
		Update("status", models.ItemOfferAccepted).Error; err != nil {
		return err
	}
	return db.Model(&models.ItemOffer{}).
		Where("order_item_id IN ? AND supplier_id <> ?", itemIDs, winnerID).
		Update("status", models.ItemOfferRejected).Error
}

package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/bidmarket/app/models"
	"github.com/shashiranjanraj/bidmarket/pkg/database"
)

// OrderRepository handles orders, their items and broadcast records.
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) conn(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, r.db)
}

func withItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id") })
}

// Create inserts the order together with its items.
func (r *OrderRepository) Create(ctx context.Context, o *models.Order) error {
	return r.conn(ctx).Create(o).Error
}

// Find loads an order with its items, buyer and supplier.
func (r *OrderRepository) Find(ctx context.Context, id uint) (models.Order, error) {
	var o models.Order
	err := withItems(r.conn(ctx)).
		Preload("Buyer").
		Preload("Supplier").
		First(&o, id).Error
	return o, err
}

// ListForBuyer returns a buyer's orders newest first, optionally filtered.
func (r *OrderRepository) ListForBuyer(ctx context.Context, buyerID uint, status string) ([]models.Order, error) {
	q := withItems(r.conn(ctx)).Preload("Supplier").Where("buyer_id = ?", buyerID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var orders []models.Order
	err := q.Order("id DESC").Find(&orders).Error
	return orders, err
}

// LatestForBuyer returns the buyer's most recently created order.
func (r *OrderRepository) LatestForBuyer(ctx context.Context, buyerID uint) (models.Order, error) {
	var o models.Order
	err := withItems(r.conn(ctx)).
		Preload("Buyer").
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC, id DESC").
		First(&o).Error
	return o, err
}

// SupplierFeed returns every pending order followed by the orders confirmed
// to supplierID, each group newest first.
func (r *OrderRepository) SupplierFeed(ctx context.Context, supplierID uint) ([]models.Order, error) {
	var pending, confirmed []models.Order
	if err := withItems(r.conn(ctx)).Preload("Buyer").
		Where("status = ?", models.StatusPending).
		Order("id DESC").Find(&pending).Error; err != nil {
		return nil, err
	}
	if err := withItems(r.conn(ctx)).Preload("Buyer").
		Where("status = ? AND supplier_id = ?", models.StatusConfirmed, supplierID).
		Order("id DESC").Find(&confirmed).Error; err != nil {
		return nil, err
	}
	return append(pending, confirmed...), nil
}

// Save writes the mutable columns of o, including NULLs.
func (r *OrderRepository) Save(ctx context.Context, o *models.Order) error {
	o.UpdatedAt = time.Now()
	return r.conn(ctx).Model(&models.Order{}).Where("id = ?", o.ID).Updates(map[string]any{
		"supplier_id":   o.SupplierID,
		"status":        o.Status,
		"note":          o.Note,
		"delivery_date": o.DeliveryDate,
		"updated_at":    o.UpdatedAt,
	}).Error
}

// Delete removes an order and everything hanging off it, children first.
func (r *OrderRepository) Delete(ctx context.Context, id uint) error {
	db := r.conn(ctx)
	items := db.Model(&models.OrderItem{}).Select("id").Where("order_id = ?", id)

	steps := []func() error{
		func() error { return db.Where("order_item_id IN (?)", items).Delete(&models.ItemOffer{}).Error },
		func() error { return db.Where("order_item_id IN (?)", items).Delete(&models.SentOrderItem{}).Error },
		func() error { return db.Where("order_id = ?", id).Delete(&models.Offer{}).Error },
		func() error { return db.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error },
		func() error { return db.Delete(&models.Order{}, id).Error },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// CreateSent records broadcast rows.
func (r *OrderRepository) CreateSent(ctx context.Context, rows []models.SentOrderItem) error {
	if len(rows) == 0 {
		return nil
	}
	return r.conn(ctx).Create(&rows).Error
}

// SentItems returns the rows broadcast to supplierID by buyerID for orderID,
// with their order items loaded.
func (r *OrderRepository) SentItems(ctx context.Context, supplierID, buyerID, orderID uint) ([]models.SentOrderItem, error) {
	var rows []models.SentOrderItem
	err := r.conn(ctx).
		Preload("OrderItem").
		Joins("JOIN order_items ON order_items.id = sent_order_items.order_item_id").
		Where("sent_order_items.supplier_id = ? AND sent_order_items.buyer_id = ? AND order_items.order_id = ?",
			supplierID, buyerID, orderID).
		Order("sent_order_items.id").
		Find(&rows).Error
	return rows, err
}

// ByIDs loads orders with their buyers, keyed by id.
func (r *OrderRepository) ByIDs(ctx context.Context, ids []uint) (map[uint]models.Order, error) {
	out := make(map[uint]models.Order, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var orders []models.Order
	if err := r.conn(ctx).Preload("Buyer").Where("id IN ?", ids).Find(&orders).Error; err != nil {
		return nil, err
	}
	for _, o := range orders {
		out[o.ID] = o
	}
	return out, nil
}

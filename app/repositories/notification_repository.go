package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/bidmarket/app/models"
	"github.com/shashiranjanraj/bidmarket/pkg/database"
	"github.com/shashiranjanraj/bidmarket/pkg/orm"
)

const notificationOrder = "created_at DESC, id DESC"

// NotificationRepository handles per-user notification rows.
type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) conn(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, r.db)
}

func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	return r.conn(ctx).Create(n).Error
}

func (r *NotificationRepository) forUser(ctx context.Context, userID uint) *gorm.DB {
	return r.conn(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
}

// Latest returns the newest limit notifications of userID.
func (r *NotificationRepository) Latest(ctx context.Context, userID uint, limit int) ([]models.Notification, error) {
	var out []models.Notification
	err := orm.Latest(r.forUser(ctx, userID), notificationOrder, limit, &out)
	return out, err
}

// Page returns one page of userID's notifications.
func (r *NotificationRepository) Page(ctx context.Context, userID uint, page, perPage int) ([]models.Notification, orm.Pagination, error) {
	var out []models.Notification
	p, err := orm.Paginate(r.forUser(ctx, userID), notificationOrder, page, perPage, &out)
	return out, p, err
}

// MarkRead flags one notification owned by userID. It reports whether the
// notification exists.
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id uint) (bool, error) {
	var n int64
	if err := r.forUser(ctx, userID).Where("id = ?", id).Count(&n).Error; err != nil || n == 0 {
		return false, err
	}
	return true, r.forUser(ctx, userID).Where("id = ?", id).Update("read", true).Error
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	res := r.forUser(ctx, userID).Where(map[string]any{"read": false}).Update("read", true)
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := r.forUser(ctx, userID).Where(map[string]any{"read": false}).Count(&n).Error
	return n, err
}

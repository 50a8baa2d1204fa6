package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/bidmarket/app/models"
	"github.com/shashiranjanraj/bidmarket/app/repositories"
	"github.com/shashiranjanraj/bidmarket/pkg/apperr"
	"github.com/shashiranjanraj/bidmarket/pkg/notification"
	"github.com/shashiranjanraj/bidmarket/pkg/orm"
)

const (
	defaultLatestLimit = 10
	defaultPageSize    = 20
	maxListLimit       = 100

	unknownSupplier = "Unknown Supplier"
	unknownBuyer    = "Unknown Buyer"
)

// NotificationService owns the per-user notification rows.
type NotificationService struct {
	notifications *repositories.NotificationRepository
	users         *repositories.UserRepository
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{
		notifications: repositories.NewNotificationRepository(db),
		users:         repositories.NewUserRepository(db),
	}
}

// Create inserts one notification for userID. It joins the transaction in
// ctx when there is one.
func (s *NotificationService) Create(ctx context.Context, userID uint, d notification.DatabaseData) (models.Notification, error) {
	n := models.Notification{
		UserID:     userID,
		Type:       d.Type,
		OrderID:    d.OrderID,
		SupplierID: d.SupplierID,
		BuyerID:    d.BuyerID,
		Data:       datatypes.JSONMap(d.Data),
	}
	if n.Type == "" {
		n.Type = models.NotifyGeneric
	}
	if d.Message != "" {
		msg := d.Message
		n.Message = &msg
	}
	if n.Data == nil {
		n.Data = datatypes.JSONMap{}
	}

	if err := s.notifications.Create(ctx, &n); err != nil {
		return models.Notification{}, internal(err)
	}
	return n, nil
}

// Save implements notification.Store.
func (s *NotificationService) Save(ctx context.Context, userID uint, d notification.DatabaseData) error {
	_, err := s.Create(ctx, userID, d)
	return err
}

// ListParams selects between the latest-N and paginated listings. Limit 0
// means the mode's default.
type ListParams struct {
	Limit int
	Page  int
}

// NotificationList is one listing. Pagination is nil in latest-N mode.
type NotificationList struct {
	Items      []NotificationView
	Pagination *orm.Pagination
}

// NotificationView is a notification as shown to its owner.
type NotificationView struct {
	ID           uint      `json:"id"`
	Type         string    `json:"type"`
	Message      *string   `json:"message"`
	Read         bool      `json:"read"`
	CreatedAt    time.Time `json:"created_at"`
	OrderID      *uint     `json:"order_id"`
	SupplierName string    `json:"supplier_name,omitempty"`
	BuyerName    string    `json:"buyer_name,omitempty"`
	BidAmount    any       `json:"bid_amount,omitempty"`
}

// List returns user's notifications newest first.
func (s *NotificationService) List(ctx context.Context, user models.User, p ListParams) (NotificationList, error) {
	limit := p.Limit
	if limit > maxListLimit {
		return NotificationList{}, apperr.ValidationFields("Validation failed", map[string]string{
			"limit": fmt.Sprintf("The limit may not be greater than %d.", maxListLimit),
		})
	}

	var (
		rows []models.Notification
		out  NotificationList
		err  error
	)
	if p.Page > 0 {
		if limit <= 0 {
			limit = defaultPageSize
		}
		var page orm.Pagination
		rows, page, err = s.notifications.Page(ctx, user.ID, p.Page, limit)
		out.Pagination = &page
	} else {
		if limit <= 0 {
			limit = defaultLatestLimit
		}
		rows, err = s.notifications.Latest(ctx, user.ID, limit)
	}
	if err != nil {
		return NotificationList{}, internal(err)
	}

	out.Items, err = s.Render(ctx, user, rows)
	return out, err
}

// Render resolves the names referenced by rows. Ids that no longer resolve
// fall back to placeholder labels.
func (s *NotificationService) Render(ctx context.Context, requester models.User, rows []models.Notification) ([]NotificationView, error) {
	var ids []uint
	for _, n := range rows {
		if n.SupplierID != nil {
			ids = append(ids, *n.SupplierID)
		}
		if n.BuyerID != nil {
			ids = append(ids, *n.BuyerID)
		}
	}
	users, err := s.users.ByIDs(ctx, ids)
	if err != nil {
		return nil, internal(err)
	}
	name := func(id *uint, fallback string) string {
		if id == nil {
			return fallback
		}
		if u, ok := users[*id]; ok {
			return u.Username
		}
		return fallback
	}

	views := make([]NotificationView, 0, len(rows))
	for _, n := range rows {
		v := NotificationView{
			ID:        n.ID,
			Type:      n.Type,
			Message:   n.Message,
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
			OrderID:   n.OrderID,
		}
		switch n.Type {
		case models.NotifyNewBid:
			v.SupplierName = name(n.SupplierID, unknownSupplier)
			v.BidAmount = 0
			if amount, ok := n.Data["amount"]; ok && amount != nil {
				v.BidAmount = amount
			}
		case models.NotifyBidAccepted:
			if requester.IsBuyer {
				v.SupplierName = name(n.SupplierID, unknownSupplier)
			} else {
				v.BuyerName = name(n.BuyerID, unknownBuyer)
			}
		}
		views = append(views, v)
	}
	return views, nil
}

// MarkRead flags one of user's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, user models.User, id uint) error {
	ok, err := s.notifications.MarkRead(ctx, user.ID, id)
	if err != nil {
		return internal(err)
	}
	if !ok {
		return apperr.NotFound("Notification not found.")
	}
	return nil
}

// MarkAllRead flags every unread notification of user and returns how many
// changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, user models.User) (int64, error) {
	n, err := s.notifications.MarkAllRead(ctx, user.ID)
	return n, internal(err)
}

func (s *NotificationService) UnreadCount(ctx context.Context, user models.User) (int64, error) {
	n, err := s.notifications.UnreadCount(ctx, user.ID)
	return n, internal(err)
}

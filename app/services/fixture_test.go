package services

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/bidmarket/app/models"
	"github.com/shashiranjanraj/bidmarket/pkg/event"
	"github.com/shashiranjanraj/bidmarket/pkg/testkit"
)

type queuedMail struct {
	To, Subject, Message string
}

type fakeMail struct {
	mu   sync.Mutex
	sent []queuedMail
}

func (f *fakeMail) Queue(_ context.Context, to, subject, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, queuedMail{To: to, Subject: subject, Message: message})
	return nil
}

func (f *fakeMail) to(addr string) []queuedMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []queuedMail
	for _, m := range f.sent {
		if m.To == addr {
			out = append(out, m)
		}
	}
	return out
}

type fixture struct {
	ctx           context.Context
	db            *gorm.DB
	mail          *fakeMail
	bus           *event.Bus
	notifications *NotificationService
	bids          *BidService
	orders        *OrderService

	buyer, supplier1, supplier2 models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testkit.NewDB(t)
	f := &fixture{ctx: context.Background(), db: db, mail: &fakeMail{}, bus: event.New()}

	f.notifications = NewNotificationService(db)
	notifier := NewNotifier(f.notifications, f.mail, f.bus)
	f.bids = NewBidService(db, notifier)
	f.orders = NewOrderService(db, f.bids, notifier)

	f.buyer = testkit.CreateUser(t, db, models.User{Username: "buyer", IsBuyer: true, Address: testkit.Ptr("1 Market Street")})
	f.supplier1 = testkit.CreateUser(t, db, models.User{Username: "supplier1", IsSupplier: true})
	f.supplier2 = testkit.CreateUser(t, db, models.User{Username: "supplier2", IsSupplier: true})
	return f
}

// apples creates the order used by most scenarios: three apples at 2.00.
func (f *fixture) apples(t *testing.T) models.Order {
	t.Helper()
	o, err := f.orders.Create(f.ctx, f.buyer, CreateOrderInput{
		TotalPrice: 6,
		Items:      []ItemInput{{Name: "Apples", Quantity: testkit.Ptr(3), Price: testkit.Ptr(2.0)}},
	})
	require.NoError(t, err)
	return o
}

func (f *fixture) bid(t *testing.T, supplier models.User, orderID uint, price string) BidResult {
	t.Helper()
	p := decimal.RequireFromString(price)
	res, err := f.bids.Submit(f.ctx, supplier, orderID, BidInput{SupplierPrice: &p})
	require.NoError(t, err)
	return res
}

func (f *fixture) notificationsFor(t *testing.T, userID uint, kind string) []models.Notification {
	t.Helper()
	var out []models.Notification
	q := f.db.Where("user_id = ?", userID)
	if kind != "" {
		q = q.Where("type = ?", kind)
	}
	require.NoError(t, q.Order("id").Find(&out).Error)
	return out
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func itoa(id uint) string { return strconv.FormatUint(uint64(id), 10) }

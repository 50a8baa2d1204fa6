package services

import (
	"gorm.io/gorm"

	"github.com/shashiranjanraj/bidmarket/pkg/container"
	"github.com/shashiranjanraj/bidmarket/pkg/event"
)

// Register binds every service into c. jobs receives outgoing mail and bus
// receives domain events.
func Register(c *container.Container, db *gorm.DB, jobs JobDispatcher, bus *event.Bus) {
	container.Instance(c, db)
	container.Instance(c, bus)

	container.Singleton(c, func(*container.Container) *MailService { return NewMailService(jobs) })
	container.Singleton(c, func(*container.Container) *AuthService { return NewAuthService(db) })
	container.Singleton(c, func(*container.Container) *NotificationService { return NewNotificationService(db) })
	container.Singleton(c, func(c *container.Container) *Notifier {
		return NewNotifier(
			container.Make[*NotificationService](c),
			container.Make[*MailService](c),
			bus,
		)
	})
	container.Singleton(c, func(c *container.Container) *BidService {
		return NewBidService(db, container.Make[*Notifier](c))
	})
	container.Singleton(c, func(c *container.Container) *OrderService {
		return NewOrderService(db, container.Make[*BidService](c), container.Make[*Notifier](c))
	})
}

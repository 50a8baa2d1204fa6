// Package services holds the marketplace's business operations. Each one
// takes the acting user, runs its writes in a single transaction and hands
// notices to a Notifier.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/bidmarket/app/events"
	"github.com/shashiranjanraj/bidmarket/pkg/apperr"
	"github.com/shashiranjanraj/bidmarket/pkg/event"
	"github.com/shashiranjanraj/bidmarket/pkg/notification"
)

// Notifier writes notices while a transaction is open and delivers their
// mail once it has committed.
type Notifier struct {
	dispatcher *notification.Dispatcher
	bus        *event.Bus
}

// NewNotifier builds a Notifier. mail may be nil to disable email.
func NewNotifier(store notification.Store, mail notification.MailQueue, bus *event.Bus) *Notifier {
	if bus == nil {
		bus = event.Default()
	}
	return &Notifier{dispatcher: notification.NewDispatcher(store, mail), bus: bus}
}

// Store persists the database channel. Call it with the transaction ctx.
func (n *Notifier) Store(ctx context.Context, envs ...notification.Envelope) error {
	return n.dispatcher.Store(ctx, envs...)
}

// Deliver queues mail and announces stored notices. Mail failures are only
// logged by the dispatcher.
func (n *Notifier) Deliver(ctx context.Context, envs ...notification.Envelope) {
	_ = n.dispatcher.Deliver(ctx, envs...)

	for _, env := range envs {
		dn, ok := env.Notice.(notification.Databaseable)
		if !ok {
			continue
		}
		for _, ch := range env.Notice.Via() {
			if ch == notification.Database {
				n.bus.Fire(ctx, events.NotificationCreated, events.Notification{
					UserID: env.To.NotifiableID(),
					Type:   dn.ToDatabase().Type,
				})
			}
		}
	}
}

// Fire publishes a domain event on the notifier's bus.
func (n *Notifier) Fire(ctx context.Context, name string, payload any) {
	n.bus.Fire(ctx, name, payload)
}

// notFound maps gorm's missing-row error to a NotFound with msg and wraps
// anything else as Internal.
func notFound(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(msg)
	}
	return internal(err)
}

// internal wraps err unless it is already classified.
func internal(err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Internal(err)
}

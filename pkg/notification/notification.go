// Package notification fans a domain notice out to its channels.
//
// A notice lists its channels through Via and implements the matching
// ToDatabase / ToMail methods:
//
//	type BidAccepted struct{ OrderID uint }
//	func (BidAccepted) Via() []string { return []string{notification.Database, notification.Mail} }
//	func (n BidAccepted) ToDatabase() notification.DatabaseData { ... }
//	func (n BidAccepted) ToMail() notification.MailData { ... }
//
// Database rows are written with Store while the caller's transaction is
// open; mail is queued with Deliver once it has committed.
package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/shashiranjanraj/bidmarket/pkg/logger"
)

// Channel names returned by Via.
const (
	Database = "database"
	Mail     = "mail"
)

// Notifiable is a recipient.
type Notifiable interface {
	NotifiableID() uint
	NotifiableEmail() string
}

// Notice is anything that can be sent.
type Notice interface {
	Via() []string
}

// Databaseable notices are persisted as notification rows.
type Databaseable interface {
	ToDatabase() DatabaseData
}

// Mailable notices are emailed.
type Mailable interface {
	ToMail() MailData
}

// DatabaseData is the row written for the database channel.
type DatabaseData struct {
	Type       string
	Message    string
	OrderID    *uint
	SupplierID *uint
	BuyerID    *uint
	Data       map[string]any
}

// MailData is the email produced for the mail channel.
type MailData struct {
	Subject string
	Message string
}

// Envelope pairs a notice with its recipient.
type Envelope struct {
	To     Notifiable
	Notice Notice
}

// To is shorthand for building an Envelope.
func To(n Notifiable, notice Notice) Envelope {
	return Envelope{To: n, Notice: notice}
}

// Store persists database-channel notices.
type Store interface {
	Save(ctx context.Context, userID uint, d DatabaseData) error
}

// MailQueue hands mail-channel notices to the outbound queue.
type MailQueue interface {
	Queue(ctx context.Context, to, subject, message string) error
}

// Dispatcher routes envelopes to the configured channels. Either dependency
// may be nil, in which case that channel is skipped.
type Dispatcher struct {
	store Store
	mail  MailQueue
}

func NewDispatcher(store Store, mail MailQueue) *Dispatcher {
	return &Dispatcher{store: store, mail: mail}
}

func has(n Notice, channel string) bool {
	for _, c := range n.Via() {
		if c == channel {
			return true
		}
	}
	return false
}

// Store writes the database channel of every envelope. The first error aborts
// so that the caller's transaction can roll back.
func (d *Dispatcher) Store(ctx context.Context, envs ...Envelope) error {
	if d.store == nil {
		return nil
	}
	for _, env := range envs {
		if !has(env.Notice, Database) {
			continue
		}
		dn, ok := env.Notice.(Databaseable)
		if !ok {
			return fmt.Errorf("notification: %T does not implement Databaseable", env.Notice)
		}
		if err := d.store.Save(ctx, env.To.NotifiableID(), dn.ToDatabase()); err != nil {
			return fmt.Errorf("notification: store %T: %w", env.Notice, err)
		}
	}
	return nil
}

// Deliver queues the mail channel of every envelope. Failures are logged and
// returned joined; they never undo work already committed.
func (d *Dispatcher) Deliver(ctx context.Context, envs ...Envelope) error {
	if d.mail == nil {
		return nil
	}
	var errs []error
	for _, env := range envs {
		if !has(env.Notice, Mail) {
			continue
		}
		mn, ok := env.Notice.(Mailable)
		if !ok {
			errs = append(errs, fmt.Errorf("notification: %T does not implement Mailable", env.Notice))
			continue
		}
		addr := env.To.NotifiableEmail()
		if addr == "" {
			logger.WithCtx(ctx).Warn("notification: recipient has no email",
				"user_id", env.To.NotifiableID(),
				"notice", fmt.Sprintf("%T", env.Notice),
			)
			continue
		}
		m := mn.ToMail()
		if err := d.mail.Queue(ctx, addr, m.Subject, m.Message); err != nil {
			logger.WithCtx(ctx).Error("notification: queue mail failed",
				"to", addr,
				"subject", m.Subject,
				"error", err,
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Send stores then delivers. Use it outside transactions.
func (d *Dispatcher) Send(ctx context.Context, envs ...Envelope) error {
	if err := d.Store(ctx, envs...); err != nil {
		return err
	}
	return d.Deliver(ctx, envs...)
}

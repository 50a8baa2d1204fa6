// Package jobs defines the background jobs run by queue workers.
package jobs

import (
	"context"
	"fmt"

	"github.com/shashiranjanraj/bidmarket/config"
	"github.com/shashiranjanraj/bidmarket/pkg/logger"
	"github.com/shashiranjanraj/bidmarket/pkg/mail"
	"github.com/shashiranjanraj/bidmarket/pkg/metrics"
	"github.com/shashiranjanraj/bidmarket/pkg/queue"
)

// SendMailName is the registry name of SendMail.
const SendMailName = "mail.send"

// Mailer resolves the mailer used by SendMail. Tests replace it.
var Mailer = mail.Default

// SendMail renders the notification layout around Message and sends it.
type SendMail struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func (SendMail) JobName() string { return SendMailName }

func (j *SendMail) Handle(ctx context.Context) error {
	body, err := mail.Render(config.AppName(), j.Subject, j.Message)
	if err != nil {
		metrics.MailsProcessed.WithLabelValues("failed").Inc()
		return fmt.Errorf("render %q: %w", j.Subject, err)
	}

	if err := Mailer().Send(ctx, mail.To(j.To).Subject(j.Subject).Body(body)); err != nil {
		metrics.MailsProcessed.WithLabelValues("failed").Inc()
		return fmt.Errorf("send %q to %s: %w", j.Subject, j.To, err)
	}

	metrics.MailsProcessed.WithLabelValues("sent").Inc()
	logger.WithCtx(ctx).Info("mail sent", "to", j.To, "subject", j.Subject)
	return nil
}

// Register adds every job type to m so workers can decode them.
func Register(m *queue.Manager) {
	m.Register(SendMailName, func() queue.Job { return &SendMail{} })
}

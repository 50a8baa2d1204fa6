// Package mail builds and delivers outbound email.
//
//	msg := mail.To("buyer@example.com").
//	    Subject("Order #12 Confirmation").
//	    Body(html)
//	err := mail.Default().Send(ctx, msg)
//
// Delivery goes through a Mailer: SMTPMailer in production, LogMailer when
// MAIL_DRIVER=log so development never talks to a real server.
package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"sync"
	"time"

	"github.com/shashiranjanraj/bidmarket/config"
	"github.com/shashiranjanraj/bidmarket/pkg/logger"
)

// SMTP holds connection settings.
type SMTP struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// SMTPFromConfig reads MAIL_* settings.
func SMTPFromConfig() SMTP {
	return SMTP{
		Host:     config.MailHost(),
		Port:     config.MailPort(),
		Username: config.MailUsername(),
		Password: config.MailPassword(),
		From:     config.MailFrom(),
		FromName: config.MailFromName(),
	}
}

// Message is a fluent builder for an email.
type Message struct {
	to      []string
	subject string
	body    string
	isHTML  bool
}

// To starts a message for the given recipients.
func To(addresses ...string) *Message {
	return &Message{to: addresses, isHTML: true}
}

func (m *Message) Subject(s string) *Message {
	m.subject = s
	return m
}

// Body sets an HTML body.
func (m *Message) Body(html string) *Message {
	m.body = html
	m.isHTML = true
	return m
}

// Text sets a plain-text body.
func (m *Message) Text(text string) *Message {
	m.body = text
	m.isHTML = false
	return m
}

func (m *Message) Recipients() []string { return append([]string(nil), m.to...) }
func (m *Message) SubjectLine() string  { return m.subject }
func (m *Message) Content() string      { return m.body }

// Mailer delivers a Message.
type Mailer interface {
	Send(ctx context.Context, m *Message) error
}

var (
	defaultMu     sync.RWMutex
	defaultMailer Mailer
)

// Default returns the mailer chosen by MAIL_DRIVER, unless SetDefault
// installed another.
func Default() Mailer {
	defaultMu.RLock()
	m := defaultMailer
	defaultMu.RUnlock()
	if m != nil {
		return m
	}

	if config.MailDriver() == "smtp" {
		return NewSMTPMailer(SMTPFromConfig())
	}
	return LogMailer{}
}

// SetDefault overrides the mailer returned by Default. nil restores the
// config-driven choice.
func SetDefault(m Mailer) {
	defaultMu.Lock()
	defaultMailer = m
	defaultMu.Unlock()
}

// ErrNoRecipients is returned for messages without a To address.
var ErrNoRecipients = errors.New("mail: no recipients")

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, m *Message) error {
	if len(m.to) == 0 {
		return ErrNoRecipients
	}
	logger.WithCtx(ctx).Info("mail: logged message",
		"to", strings.Join(m.to, ", "),
		"subject", m.subject,
	)
	return nil
}

// SMTPMailer delivers over SMTP. Port 465 uses implicit TLS; other ports
// rely on STARTTLS negotiated by net/smtp.
type SMTPMailer struct {
	cfg     SMTP
	timeout time.Duration
}

func NewSMTPMailer(cfg SMTP) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, timeout: 15 * time.Second}
}

func (s *SMTPMailer) Send(ctx context.Context, m *Message) error {
	if len(m.to) == 0 {
		return ErrNoRecipients
	}
	if s.cfg.Host == "" {
		return errors.New("mail: MAIL_HOST not configured")
	}

	raw := buildRaw(fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.From), m)
	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	errCh := make(chan error, 1)
	go func() {
		if s.cfg.Port == "465" {
			errCh <- s.sendTLS(addr, auth, m.to, raw)
			return
		}
		errCh <- smtp.SendMail(addr, auth, s.cfg.From, m.to, raw)
	}()

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("mail: send to %s timed out", addr)
	}
}

func (s *SMTPMailer) sendTLS(addr string, auth smtp.Auth, to []string, raw []byte) error {
	conn, err := tls.DialWithDialer(&net.Dialer{Timeout: s.timeout}, "tcp", addr, &tls.Config{ServerName: s.cfg.Host})
	if err != nil {
		return fmt.Errorf("mail: TLS dial: %w", err)
	}
	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return err
	}
	defer client.Quit() //nolint:errcheck

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(s.cfg.From); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		return err
	}
	return w.Close()
}

func buildRaw(from string, m *Message) []byte {
	contentType := "text/plain"
	if m.isHTML {
		contentType = "text/html"
	}

	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(m.to, ", ") + "\r\n")
	b.WriteString("Subject: " + m.subject + "\r\n")
	b.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString(fmt.Sprintf("Content-Type: %s; charset=\"UTF-8\"\r\n", contentType))
	b.WriteString("\r\n")
	b.WriteString(m.body)
	return []byte(b.String())
}

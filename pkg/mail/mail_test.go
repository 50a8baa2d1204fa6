package mail

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEscapesMessage(t *testing.T) {
	html, err := Render("bidmarket", "Order #3 Rejected", "Order <b>#3</b> was rejected")
	require.NoError(t, err)

	assert.Contains(t, html, "<title>Order #3 Rejected</title>")
	assert.Contains(t, html, "Order &lt;b&gt;#3&lt;/b&gt; was rejected")
}

func TestBuildRawHeaders(t *testing.T) {
	msg := To("a@example.com", "b@example.com").Subject("Hello").Text("plain body")
	raw := string(buildRaw("bidmarket <no-reply@example.com>", msg))

	assert.Contains(t, raw, "To: a@example.com, b@example.com\r\n")
	assert.Contains(t, raw, "Subject: Hello\r\n")
	assert.Contains(t, raw, `Content-Type: text/plain; charset="UTF-8"`)
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\nplain body"))
}

func TestLogMailer(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, LogMailer{}.Send(ctx, To("a@example.com").Subject("x")))
	assert.ErrorIs(t, LogMailer{}.Send(ctx, To()), ErrNoRecipients)
}

func TestSMTPMailerRequiresHost(t *testing.T) {
	err := NewSMTPMailer(SMTP{}).Send(context.Background(), To("a@example.com"))
	assert.Error(t, err)
}

type captureMailer struct{ got []*Message }

func (c *captureMailer) Send(_ context.Context, m *Message) error {
	c.got = append(c.got, m)
	return nil
}

func TestSetDefault(t *testing.T) {
	c := &captureMailer{}
	SetDefault(c)
	t.Cleanup(func() { SetDefault(nil) })

	require.NoError(t, Default().Send(context.Background(), To("x@example.com")))
	assert.Len(t, c.got, 1)
}

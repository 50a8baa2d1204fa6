package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/bidmarket/pkg/mail"
	"github.com/shashiranjanraj/bidmarket/pkg/queue"
)

type captureMailer struct {
	sent []*mail.Message
	err  error
}

func (c *captureMailer) Send(_ context.Context, m *mail.Message) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, m)
	return nil
}

func useMailer(t *testing.T, m mail.Mailer) {
	t.Helper()
	prev := Mailer
	Mailer = func() mail.Mailer { return m }
	t.Cleanup(func() { Mailer = prev })
}

func TestSendMailRendersLayout(t *testing.T) {
	c := &captureMailer{}
	useMailer(t, c)

	job := &SendMail{To: "buyer@example.com", Subject: "Order #4 Rejected", Message: "Your order #4 has been rejected."}
	require.NoError(t, job.Handle(context.Background()))

	require.Len(t, c.sent, 1)
	assert.Equal(t, []string{"buyer@example.com"}, c.sent[0].Recipients())
	assert.Equal(t, "Order #4 Rejected", c.sent[0].SubjectLine())
	assert.Contains(t, c.sent[0].Content(), "Your order #4 has been rejected.")
}

func TestSendMailThroughQueueRecordsFailure(t *testing.T) {
	useMailer(t, &captureMailer{err: errors.New("smtp down")})

	m := queue.NewManager(queue.NewMemoryDriver(4))
	Register(m)

	payload, err := json.Marshal(SendMail{To: "x@example.com", Subject: "S", Message: "M"})
	require.NoError(t, err)
	raw, err := json.Marshal(map[string]any{"type": SendMailName, "payload": json.RawMessage(payload)})
	require.NoError(t, err)

	m.Process(context.Background(), raw)

	failed := m.FailedJobs()
	require.Len(t, failed, 1)
	assert.Equal(t, SendMailName, failed[0].Type)
	assert.ErrorContains(t, failed[0].Err, "smtp down")
}

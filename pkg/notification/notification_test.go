package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type user struct {
	id    uint
	email string
}

func (u user) NotifiableID() uint      { return u.id }
func (u user) NotifiableEmail() string { return u.email }

type both struct{ msg string }

func (both) Via() []string { return []string{Database, Mail} }
func (b both) ToDatabase() DatabaseData {
	return DatabaseData{Type: "generic", Message: b.msg}
}
func (b both) ToMail() MailData { return MailData{Subject: "S", Message: b.msg} }

type mailOnly struct{}

func (mailOnly) Via() []string    { return []string{Mail} }
func (mailOnly) ToMail() MailData { return MailData{Subject: "M", Message: "m"} }

type broken struct{}

func (broken) Via() []string { return []string{Database} }

type memStore struct {
	rows []DatabaseData
	ids  []uint
	err  error
}

func (s *memStore) Save(_ context.Context, id uint, d DatabaseData) error {
	if s.err != nil {
		return s.err
	}
	s.ids = append(s.ids, id)
	s.rows = append(s.rows, d)
	return nil
}

type sent struct{ to, subject, message string }

type memQueue struct {
	sent []sent
	err  error
}

func (q *memQueue) Queue(_ context.Context, to, subject, message string) error {
	if q.err != nil {
		return q.err
	}
	q.sent = append(q.sent, sent{to, subject, message})
	return nil
}

func TestStoreOnlyWritesDatabaseChannel(t *testing.T) {
	store, q := &memStore{}, &memQueue{}
	d := NewDispatcher(store, q)

	err := d.Store(context.Background(),
		To(user{1, "a@example.com"}, both{"hello"}),
		To(user{2, "b@example.com"}, mailOnly{}),
	)
	require.NoError(t, err)

	assert.Equal(t, []uint{1}, store.ids)
	assert.Equal(t, "hello", store.rows[0].Message)
	assert.Empty(t, q.sent)
}

func TestDeliverOnlyQueuesMailChannel(t *testing.T) {
	store, q := &memStore{}, &memQueue{}
	d := NewDispatcher(store, q)

	err := d.Deliver(context.Background(),
		To(user{1, "a@example.com"}, both{"hello"}),
		To(user{2, ""}, mailOnly{}),
		To(user{3, "c@example.com"}, mailOnly{}),
	)
	require.NoError(t, err)

	assert.Empty(t, store.rows)
	assert.Equal(t, []sent{
		{"a@example.com", "S", "hello"},
		{"c@example.com", "M", "m"},
	}, q.sent)
}

func TestStoreErrors(t *testing.T) {
	d := NewDispatcher(&memStore{err: errors.New("db down")}, nil)
	assert.Error(t, d.Store(context.Background(), To(user{1, ""}, both{})))

	d = NewDispatcher(&memStore{}, nil)
	assert.Error(t, d.Store(context.Background(), To(user{1, ""}, broken{})))
}

func TestDeliverJoinsQueueErrors(t *testing.T) {
	boom := errors.New("queue full")
	d := NewDispatcher(nil, &memQueue{err: boom})

	err := d.Deliver(context.Background(), To(user{1, "a@example.com"}, mailOnly{}))
	assert.ErrorIs(t, err, boom)
}

func TestSend(t *testing.T) {
	store, q := &memStore{}, &memQueue{}
	require.NoError(t, NewDispatcher(store, q).Send(context.Background(), To(user{9, "z@example.com"}, both{"x"})))
	assert.Len(t, store.rows, 1)
	assert.Len(t, q.sent, 1)
}

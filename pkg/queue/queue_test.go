package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var handled sync.Map // id → *atomic.Int32

type countJob struct {
	ID string `json:"id"`
}

func (countJob) JobName() string { return "test.count" }

func (j *countJob) Handle(context.Context) error {
	v, _ := handled.LoadOrStore(j.ID, &atomic.Int32{})
	v.(*atomic.Int32).Add(1)
	return nil
}

type failJob struct {
	ID string `json:"id"`
}

func (j *failJob) Handle(context.Context) error {
	v, _ := handled.LoadOrStore(j.ID, &atomic.Int32{})
	v.(*atomic.Int32).Add(1)
	return errors.New("smtp: connection refused")
}

func calls(id string) int32 {
	v, ok := handled.Load(id)
	if !ok {
		return 0
	}
	return v.(*atomic.Int32).Load()
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(NewMemoryDriver(10))
	m.Register("test.count", func() Job { return &countJob{} })
	m.Register("*queue.failJob", func() Job { return &failJob{} })
	return m
}

func TestDispatchAndProcess(t *testing.T) {
	m := newTestManager(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := m.Start(ctx, 2)

	id := t.Name()
	require.NoError(t, m.Dispatch(ctx, &countJob{ID: id}))

	assert.Eventually(t, func() bool { return calls(id) == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("workers did not stop")
	}
}

func TestFailedJobIsNotRetriedAndIsPersisted(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&FailedJobRecord{}))

	m := newTestManager(t)
	m.UseDB(db)

	id := t.Name()
	require.NoError(t, m.Dispatch(context.Background(), &failJob{ID: id}))

	raw, err := m.driver.Pop(context.Background())
	require.NoError(t, err)
	m.Process(context.Background(), raw)

	assert.Equal(t, int32(1), calls(id), "jobs run once by default")

	failed := m.FailedJobs()
	require.Len(t, failed, 1)
	assert.Equal(t, "*queue.failJob", failed[0].Type)
	assert.EqualError(t, failed[0].Err, "smtp: connection refused")

	var rows []FailedJobRecord
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "*queue.failJob", rows[0].JobType)
	assert.Contains(t, rows[0].Payload, id)
}

func TestUnregisteredJobIsDropped(t *testing.T) {
	m := NewManager(NewMemoryDriver(1))
	m.Process(context.Background(), []byte(`{"type":"nope","payload":{}}`))
	m.Process(context.Background(), []byte(`not json`))
	assert.Empty(t, m.FailedJobs())
}

func TestMemoryDriverFull(t *testing.T) {
	d := NewMemoryDriver(1)
	ctx := context.Background()

	require.NoError(t, d.Push(ctx, []byte("a")))
	assert.ErrorIs(t, d.Push(ctx, []byte("b")), ErrQueueFull)
	assert.Equal(t, 1, d.Len())
}

func TestDispatchConcurrent(t *testing.T) {
	m := NewManager(NewMemoryDriver(100))
	var wg sync.WaitGroup
	wg.Add(20)
	for i := 0; i < 20; i++ {
		go func() {
			defer wg.Done()
			assert.NoError(t, m.Dispatch(context.Background(), &countJob{ID: "c"}))
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, m.driver.(*MemoryDriver).Len())
}

type fakeSQS struct {
	mu       sync.Mutex
	messages []string
	deleted  []string
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, aws.ToString(in.MessageBody))
	return &sqs.SendMessageOutput{}, nil
}

func (f *fakeSQS) ReceiveMessage(_ context.Context, _ *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		return &sqs.ReceiveMessageOutput{}, nil
	}
	body := f.messages[0]
	f.messages = f.messages[1:]
	return &sqs.ReceiveMessageOutput{Messages: []types.Message{{
		Body:          aws.String(body),
		ReceiptHandle: aws.String("rh-" + body),
	}}}, nil
}

func (f *fakeSQS) DeleteMessage(_ context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, aws.ToString(in.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func TestSQSDriverDeletesOnReceive(t *testing.T) {
	fake := &fakeSQS{}
	d := &SQSDriver{client: fake, queueURL: "https://sqs.local/q"}
	ctx := context.Background()

	require.NoError(t, d.Push(ctx, []byte("job-1")))

	got, err := d.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "job-1", string(got))
	assert.Equal(t, []string{"rh-job-1"}, fake.deleted)

	got, err = d.Pop(ctx)
	require.NoError(t, err)
	assert.Nil(t, got, "empty poll")
}

func TestNewSQSDriverRequiresURL(t *testing.T) {
	_, err := NewSQSDriver(context.Background(), SQSOptions{Region: "eu-west-2"})
	assert.Error(t, err)
}

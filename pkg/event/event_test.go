package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFireCallsListenersInOrder(t *testing.T) {
	b := New()
	var got []string
	b.Listen("order.confirmed", func(_ context.Context, p any) { got = append(got, "a:"+p.(string)) })
	b.Listen("order.confirmed", func(_ context.Context, p any) { got = append(got, "b:"+p.(string)) })
	b.Listen("order.rejected", func(_ context.Context, _ any) { got = append(got, "wrong") })

	b.Fire(context.Background(), "order.confirmed", "7")

	assert.Equal(t, []string{"a:7", "b:7"}, got)
}

func TestFireSurvivesPanickingListener(t *testing.T) {
	b := New()
	called := false
	b.Listen("x", func(context.Context, any) { panic("boom") })
	b.Listen("x", func(context.Context, any) { called = true })

	assert.NotPanics(t, func() { b.Fire(context.Background(), "x", nil) })
	assert.True(t, called)
}

func TestFireAsyncIgnoresCancellation(t *testing.T) {
	b := New()
	var wg sync.WaitGroup
	wg.Add(1)
	var ctxErr error
	b.Listen("x", func(ctx context.Context, _ any) {
		ctxErr = ctx.Err()
		wg.Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b.FireAsync(ctx, "x", nil)

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener not called")
	}
	assert.NoError(t, ctxErr)
}

func TestFlush(t *testing.T) {
	b := New()
	called := false
	b.Listen("x", func(context.Context, any) { called = true })
	b.Flush()
	b.Fire(context.Background(), "x", nil)
	assert.False(t, called)
}

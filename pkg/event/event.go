// Package event is a small in-process publish/subscribe hub.
//
// Services fire domain events after a transaction commits; listeners such as
// the metrics counters registered at boot react to them.
//
//	event.Listen("order.confirmed", func(ctx context.Context, p any) { ... })
//	event.Fire(ctx, "order.confirmed", payload)
package event

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/shashiranjanraj/bidmarket/pkg/logger"
)

// Handler receives an event payload.
type Handler func(ctx context.Context, payload any)

// Bus holds listeners by event name. The zero value is not usable; use New.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func New() *Bus {
	return &Bus{handlers: map[string][]Handler{}}
}

// Listen registers a handler for name.
func (b *Bus) Listen(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

func (b *Bus) snapshot(name string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	hs := make([]Handler, len(b.handlers[name]))
	copy(hs, b.handlers[name])
	return hs
}

// Fire calls every listener of name in registration order. A panicking
// listener is logged and does not stop the others.
func (b *Bus) Fire(ctx context.Context, name string, payload any) {
	for _, h := range b.snapshot(name) {
		call(ctx, name, h, payload)
	}
}

// FireAsync runs each listener in its own goroutine and returns immediately.
func (b *Bus) FireAsync(ctx context.Context, name string, payload any) {
	ctx = context.WithoutCancel(ctx)
	for _, h := range b.snapshot(name) {
		go call(ctx, name, h, payload)
	}
}

// Flush removes all listeners.
func (b *Bus) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = map[string][]Handler{}
}

func call(ctx context.Context, name string, h Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithCtx(ctx).Error("event: listener panicked",
				"event", name,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()
	h(ctx, payload)
}

var defaultBus = New()

// Default returns the process-wide bus.
func Default() *Bus { return defaultBus }

func Listen(name string, h Handler)                           { defaultBus.Listen(name, h) }
func Fire(ctx context.Context, name string, payload any)      { defaultBus.Fire(ctx, name, payload) }
func FireAsync(ctx context.Context, name string, payload any) { defaultBus.FireAsync(ctx, name, payload) }
func Flush()                                                  { defaultBus.Flush() }

// Package container holds the process's long-lived services. Factories are
// registered at boot and resolved lazily by type.
//
//	c := container.New()
//	container.Singleton(c, func(c *container.Container) *services.BidService { ... })
//	bids := container.Make[*services.BidService](c)
package container

import (
	"fmt"
	"reflect"
	"sync"
)

type binding struct {
	factory   func(*Container) any
	singleton bool
}

// Container maps a service type to the factory that builds it.
type Container struct {
	mu        sync.Mutex
	bindings  map[reflect.Type]binding
	instances map[reflect.Type]any
}

func New() *Container {
	return &Container{
		bindings:  make(map[reflect.Type]binding),
		instances: make(map[reflect.Type]any),
	}
}

func typeOf[T any]() reflect.Type { return reflect.TypeOf((*T)(nil)).Elem() }

// Bind registers a factory that runs on every Make.
func Bind[T any](c *Container, factory func(*Container) T) {
	c.bind(typeOf[T](), func(c *Container) any { return factory(c) }, false)
}

// Singleton registers a factory that runs once; later Make calls return the
// same instance.
func Singleton[T any](c *Container, factory func(*Container) T) {
	c.bind(typeOf[T](), func(c *Container) any { return factory(c) }, true)
}

// Instance registers an already built value.
func Instance[T any](c *Container, v T) {
	t := typeOf[T]()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindings[t] = binding{factory: func(*Container) any { return v }, singleton: true}
	c.instances[t] = v
}

func (c *Container) bind(t reflect.Type, f func(*Container) any, singleton bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindings[t] = binding{factory: f, singleton: singleton}
	delete(c.instances, t)
}

// Make resolves T. It panics when T was never bound, which is a wiring bug.
func Make[T any](c *Container) T {
	t := typeOf[T]()

	c.mu.Lock()
	if inst, ok := c.instances[t]; ok {
		c.mu.Unlock()
		return inst.(T)
	}
	b, ok := c.bindings[t]
	c.mu.Unlock()
	if !ok {
		panic(fmt.Sprintf("container: no binding for %s", t))
	}

	// Factories may resolve their own dependencies, so the lock is not held
	// while one runs.
	inst := b.factory(c)
	if !b.singleton {
		return inst.(T)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.instances[t]; ok {
		return existing.(T)
	}
	c.instances[t] = inst
	return inst.(T)
}

// Has reports whether T has been bound.
func Has[T any](c *Container) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.bindings[typeOf[T]()]
	return ok
}

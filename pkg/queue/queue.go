// Package queue runs background jobs outside the request lifecycle.
//
//	type SendMail struct{ To, Subject string }
//	func (SendMail) JobName() string { return "mail.send" }
//	func (j *SendMail) Handle(ctx context.Context) error { ... }
//
//	queue.Register("mail.send", func() queue.Job { return &SendMail{} })
//	queue.Dispatch(ctx, &SendMail{To: "a@b.c"})
//
// Jobs are JSON-encoded inside an envelope so any Driver can carry them.
// A job is attempted maxAttempts times (default 1); the final failure is
// logged, counted and written to the failed_jobs table when a DB is set.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shashiranjanraj/bidmarket/pkg/logger"
	"github.com/shashiranjanraj/bidmarket/pkg/metrics"
	"github.com/shashiranjanraj/bidmarket/pkg/workerpool"
	"gorm.io/gorm"
)

// Job is the interface every queued job must satisfy.
type Job interface {
	Handle(ctx context.Context) error
}

// Named lets a job choose its registry name. Jobs without it are keyed by
// their Go type, e.g. "*jobs.SendMail".
type Named interface {
	JobName() string
}

// Driver is the queue storage backend. Pop returns (nil, nil) when a poll
// times out with nothing to do.
type Driver interface {
	Push(ctx context.Context, payload []byte) error
	Pop(ctx context.Context) ([]byte, error)
}

// ErrQueueFull is returned by bounded drivers when they cannot accept more.
var ErrQueueFull = errors.New("queue: full")

// FailedJob holds information about a job that exhausted its attempts.
type FailedJob struct {
	Type     string
	Payload  json.RawMessage
	Err      error
	FailedAt time.Time
	Attempts int
}

// jobTimeout bounds a single Handle call.
const jobTimeout = 30 * time.Second

// Manager owns a driver, the job registry and the failure log.
type Manager struct {
	mu          sync.RWMutex
	driver      Driver
	registry    map[string]func() Job
	failed      []FailedJob
	maxAttempts int
	db          *gorm.DB
}

// NewManager returns a Manager using d.
func NewManager(d Driver) *Manager {
	return &Manager{
		driver:      d,
		registry:    map[string]func() Job{},
		maxAttempts: 1,
	}
}

var defaultManager = NewManager(NewMemoryDriver(1000))

// Default returns the process-wide Manager.
func Default() *Manager { return defaultManager }

// SetDriver swaps the driver on the default manager.
func SetDriver(d Driver) { defaultManager.SetDriver(d) }

// Register adds a job factory to the default manager.
func Register(name string, factory func() Job) { defaultManager.Register(name, factory) }

// Dispatch enqueues job on the default manager.
func Dispatch(ctx context.Context, job Job) error { return defaultManager.Dispatch(ctx, job) }

// StartWorkers runs n workers on the default manager. See Manager.Start.
func StartWorkers(ctx context.Context, n int) <-chan struct{} { return defaultManager.Start(ctx, n) }

// UseDB persists failures of the default manager to db.
func UseDB(db *gorm.DB) { defaultManager.UseDB(db) }

// FailedJobs returns the default manager's in-memory failure log.
func FailedJobs() []FailedJob { return defaultManager.FailedJobs() }

func (m *Manager) SetDriver(d Driver) {
	m.mu.Lock()
	m.driver = d
	m.mu.Unlock()
}

// SetMaxAttempts sets how many times a failing job is tried. Values < 1 mean 1.
func (m *Manager) SetMaxAttempts(n int) {
	if n < 1 {
		n = 1
	}
	m.mu.Lock()
	m.maxAttempts = n
	m.mu.Unlock()
}

// Register makes a job type available for decoding by name.
func (m *Manager) Register(name string, factory func() Job) {
	m.mu.Lock()
	m.registry[name] = factory
	m.mu.Unlock()
}

// UseDB persists failed jobs to db. The failed_jobs table is created by the
// migrations.
func (m *Manager) UseDB(db *gorm.DB) {
	m.mu.Lock()
	m.db = db
	m.mu.Unlock()
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func jobName(job Job) string {
	if n, ok := job.(Named); ok {
		return n.JobName()
	}
	return fmt.Sprintf("%T", job)
}

// Dispatch serialises job and pushes it to the driver.
func (m *Manager) Dispatch(ctx context.Context, job Job) error {
	name := jobName(job)

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue: marshal job %s: %w", name, err)
	}

	env, err := json.Marshal(envelope{Type: name, Payload: payload})
	if err != nil {
		return fmt.Errorf("queue: marshal envelope: %w", err)
	}

	m.mu.RLock()
	d := m.driver
	m.mu.RUnlock()

	if err := d.Push(ctx, env); err != nil {
		return fmt.Errorf("queue: push %s: %w", name, err)
	}
	return nil
}

// Start launches n pollers feeding a pool of n workers. The returned channel
// closes once ctx is cancelled and every in-flight job has finished.
func (m *Manager) Start(ctx context.Context, n int) <-chan struct{} {
	if n < 1 {
		n = 1
	}

	pool := workerpool.New(n, workerpool.WithPanicHandler(func(r any) {
		logger.Error("queue: job panicked", "panic", fmt.Sprint(r))
	}))

	var pollers sync.WaitGroup
	for i := 0; i < n; i++ {
		pollers.Add(1)
		go func() {
			defer pollers.Done()
			m.poll(ctx, pool)
		}()
	}

	done := make(chan struct{})
	go func() {
		pollers.Wait()
		pool.Shutdown()
		close(done)
	}()

	logger.Info("queue: workers started", "count", n)
	return done
}

func (m *Manager) poll(ctx context.Context, pool *workerpool.Pool) {
	for ctx.Err() == nil {
		m.mu.RLock()
		d := m.driver
		m.mu.RUnlock()

		raw, err := d.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("queue: pop failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(500 * time.Millisecond):
			}
			continue
		}
		if raw == nil {
			continue
		}

		// Jobs already popped run to completion even during shutdown.
		jobCtx := context.WithoutCancel(ctx)
		if err := pool.SubmitWait(func() { m.Process(jobCtx, raw) }); err != nil {
			m.Process(jobCtx, raw)
		}
	}
}

// Process decodes and runs a single envelope. Exposed for drivers that
// deliver pushes synchronously and for tests.
func (m *Manager) Process(ctx context.Context, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logger.Error("queue: bad envelope", "error", err)
		return
	}

	m.mu.RLock()
	factory, ok := m.registry[env.Type]
	attempts := m.maxAttempts
	m.mu.RUnlock()

	if !ok {
		logger.Warn("queue: unregistered job type", "type", env.Type)
		return
	}

	job := factory()
	if err := json.Unmarshal(env.Payload, job); err != nil {
		logger.Error("queue: unmarshal payload", "type", env.Type, "error", err)
		return
	}

	m.run(ctx, job, env, attempts)
}

func (m *Manager) run(ctx context.Context, job Job, env envelope, attempts int) {
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		start := time.Now()
		jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
		err := job.Handle(jobCtx)
		cancel()

		if err == nil {
			metrics.RecordQueueJob(env.Type, "success", start)
			logger.Debug("queue: job processed", "type", env.Type)
			return
		}

		lastErr = err
		metrics.RecordQueueJob(env.Type, "failed", start)
		if attempt < attempts {
			logger.Warn("queue: job failed, retrying", "type", env.Type, "attempt", attempt, "error", err)
			time.Sleep(time.Duration(attempt) * time.Second)
		}
	}

	logger.Error("queue: job failed", "type", env.Type, "attempts", attempts, "error", lastErr)
	m.persistFailed(ctx, FailedJob{
		Type:     env.Type,
		Payload:  env.Payload,
		Err:      lastErr,
		FailedAt: time.Now(),
		Attempts: attempts,
	})
}

// FailedJobs returns a snapshot of the in-memory failure log.
func (m *Manager) FailedJobs() []FailedJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]FailedJob, len(m.failed))
	copy(out, m.failed)
	return out
}

// Package server boots the process: configuration, storage, the job queue
// and the listeners. Every CLI command goes through Bootstrap.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/bidmarket/app/events"
	"github.com/shashiranjanraj/bidmarket/app/jobs"
	"github.com/shashiranjanraj/bidmarket/app/services"
	"github.com/shashiranjanraj/bidmarket/config"
	"github.com/shashiranjanraj/bidmarket/internal/kernel"
	"github.com/shashiranjanraj/bidmarket/pkg/cache"
	"github.com/shashiranjanraj/bidmarket/pkg/container"
	"github.com/shashiranjanraj/bidmarket/pkg/database"
	"github.com/shashiranjanraj/bidmarket/pkg/event"
	"github.com/shashiranjanraj/bidmarket/pkg/grpc"
	"github.com/shashiranjanraj/bidmarket/pkg/logger"
	"github.com/shashiranjanraj/bidmarket/pkg/queue"
)

const (
	shutdownTimeout = 15 * time.Second
	queueKey        = "bidmarket:queue"
)

// App holds the process-wide dependencies.
type App struct {
	DB        *gorm.DB
	Queue     *queue.Manager
	Bus       *event.Bus
	Container *container.Container

	closers []func()
}

// Bootstrap loads configuration and opens every shared connection. Redis
// and MongoDB are optional: without them the token denylist lives in
// memory and logs go to stdout only.
func Bootstrap(ctx context.Context) (*App, error) {
	if err := config.Load(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	a := &App{}
	if uri := config.LogMongoURI(); uri != "" {
		closeLogs, err := logger.EnableMongo(uri, config.LogMongoDB(), config.LogMongoCollection())
		if err != nil {
			logger.Warn("mongo log sink disabled", "error", err)
		} else {
			a.closers = append(a.closers, closeLogs)
		}
	}

	if err := database.Connect(); err != nil {
		a.Close()
		return nil, err
	}
	a.DB = database.DB

	if err := cache.Connect(ctx); err != nil {
		logger.Warn("redis unavailable, using in-memory cache", "error", err)
	} else {
		a.closers = append(a.closers, func() { _ = cache.RDB.Close() })
	}

	driver, err := queueDriver(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Queue = queue.Default()
	a.Queue.SetDriver(driver)
	a.Queue.SetMaxAttempts(1)
	a.Queue.UseDB(a.DB)
	jobs.Register(a.Queue)

	a.Bus = event.Default()
	events.RegisterMetrics(a.Bus)

	a.Container = container.New()
	services.Register(a.Container, a.DB, a.Queue, a.Bus)
	return a, nil
}

// BootDB loads configuration and connects the database only, for commands
// that need nothing else.
func BootDB() (*gorm.DB, error) {
	if err := config.Load(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := database.Connect(); err != nil {
		return nil, err
	}
	return database.DB, nil
}

func queueDriver(ctx context.Context) (queue.Driver, error) {
	switch config.QueueDriver() {
	case "redis":
		if cache.RDB == nil {
			return nil, errors.New("queue: QUEUE_DRIVER=redis but redis is not reachable")
		}
		return queue.NewRedisDriver(cache.RDB, queueKey), nil
	case "sqs":
		return queue.NewSQSDriver(ctx, queue.SQSOptions{
			QueueURL: config.SQSQueueURL(),
			Region:   config.SQSRegion(),
			Endpoint: config.SQSEndpoint(),
			Key:      config.SQSKey(),
			Secret:   config.SQSSecret(),
		})
	default:
		return queue.NewMemoryDriver(1000), nil
	}
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

// Serve runs the HTTP API, the gRPC health server and, with the memory
// driver, the queue workers until ctx is cancelled, then drains them.
func Serve(ctx context.Context, a *App) error {
	k, err := kernel.NewHTTPKernel(a.Container)
	if err != nil {
		return err
	}
	httpSrv := &http.Server{
		Addr:              ":" + config.AppPort(),
		Handler:           k.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcSrv, err := grpc.Listen(":" + config.GRPCPort())
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", httpSrv.Addr, "env", config.AppEnv())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})
	g.Go(grpcSrv.Serve)
	g.Go(func() error {
		k.Limiter().Janitor(ctx)
		return nil
	})

	// Redis and SQS queues are drained by queue:work processes.
	var workersDone <-chan struct{}
	if config.QueueDriver() == "memory" {
		workersDone = a.Queue.Start(ctx, config.QueueWorkers())
	}

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		grpcSrv.SetServing(false)
		err := httpSrv.Shutdown(shutdownCtx)
		grpcSrv.Stop()
		if workersDone != nil {
			select {
			case <-workersDone:
			case <-shutdownCtx.Done():
				logger.Warn("queue workers did not drain in time")
			}
		}
		return err
	})

	return g.Wait()
}

// Work runs n queue workers until ctx is cancelled.
func Work(ctx context.Context, a *App, n int) {
	<-a.Queue.Start(ctx, n)
}

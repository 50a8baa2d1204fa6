package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/bidmarket/config"
	"github.com/shashiranjanraj/bidmarket/internal/server"
	"github.com/shashiranjanraj/bidmarket/pkg/logger"
)

var queueWorkersFlag int

// bidmarket queue:work
var queueWorkCmd = &cobra.Command{
	Use:   "queue:work",
	Short: "Process queued mail jobs until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := server.Bootstrap(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		workers := queueWorkersFlag
		if workers < 1 {
			workers = config.QueueWorkers()
		}
		if config.QueueDriver() == "memory" {
			logger.Warn("queue:work with the memory driver only sees jobs from this process")
		}

		server.Work(ctx, app, workers)
		logger.Info("queue workers stopped")
		return nil
	},
}

func init() {
	queueWorkCmd.Flags().IntVarP(&queueWorkersFlag, "workers", "w", 0, "Number of concurrent workers (default QUEUE_WORKERS)")
}

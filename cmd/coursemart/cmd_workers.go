package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/coursemart/pkg/app"
)

var queueWorkersFlag int

// coursemart queue:work
//
// Only useful with QUEUE_DRIVER=redis: the memory driver is private to the
// serving process.
var queueWorkCmd = &cobra.Command{
	Use:   "queue:work",
	Short: "Start the background job workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return withApp(ctx, func(a *app.App) error {
			workers := queueWorkersFlag
			if workers < 1 {
				workers = a.Settings.QueueWorkers
			}

			fmt.Printf("Queue worker started (%d workers). Press Ctrl+C to stop.\n", workers)
			a.StartWorkers(ctx, workers)

			<-ctx.Done()
			a.Queue.Wait()
			fmt.Println("Queue worker stopped.")
			return nil
		})
	},
}

func init() {
	queueWorkCmd.Flags().IntVarP(&queueWorkersFlag, "workers", "w", 0, "number of concurrent workers (default QUEUE_WORKERS)")
}

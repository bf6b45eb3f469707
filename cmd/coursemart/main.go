package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/coursemart/config"
	"github.com/shashiranjanraj/coursemart/pkg/app"
	"github.com/shashiranjanraj/coursemart/pkg/logger"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "coursemart",
	Short:        "Coursemart course marketplace API",
	SilenceUsage: true,
}

func init() {
	// Server
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(routeListCmd)

	// Database
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(migrateRollbackCmd)
	rootCmd.AddCommand(migrateStatusCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(adminCreateCmd)

	// Workers
	rootCmd.AddCommand(queueWorkCmd)
}

// boot resolves the configuration and connects every backing service.
// The caller closes the returned App.
func boot(ctx context.Context) (*app.App, error) {
	settings, err := config.Resolve()
	if err != nil {
		return nil, err
	}
	logger.Setup(settings.Env, os.Stdout)
	return app.New(ctx, settings)
}

// withApp runs fn against a booted App and closes it afterwards.
func withApp(ctx context.Context, fn func(a *app.App) error) error {
	a, err := boot(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("shutdown: close", "error", err)
		}
	}()
	return fn(a)
}

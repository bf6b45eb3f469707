package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/coursemart/app/services"
	"github.com/shashiranjanraj/coursemart/pkg/app"
)

// coursemart migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run all pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			fmt.Println("Running migrations…")
			return a.Migrate(os.Stdout)
		})
	},
}

// coursemart migrate:rollback
var migrateRollbackCmd = &cobra.Command{
	Use:   "migrate:rollback",
	Short: "Rollback the last batch of migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			fmt.Println("Rolling back last batch…")
			return a.Rollback(os.Stdout)
		})
	},
}

// coursemart migrate:status
var migrateStatusCmd = &cobra.Command{
	Use:   "migrate:status",
	Short: "Show the status of each migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			return a.MigrationStatus(os.Stdout)
		})
	},
}

// coursemart seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Run all database seeders",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			fmt.Println("Running seeders…")
			return a.Seed(cmd.Context(), os.Stdout)
		})
	},
}

var adminInput services.SignupInput

// coursemart admin:create --email ... --password ...
var adminCreateCmd = &cobra.Command{
	Use:   "admin:create",
	Short: "Create an admin account (works with ADMIN_SIGNUP_ENABLED=false)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			return a.CreateAdmin(cmd.Context(), adminInput, os.Stdout)
		})
	},
}

func init() {
	f := adminCreateCmd.Flags()
	f.StringVar(&adminInput.FirstName, "first-name", "", "first name (min 3 characters)")
	f.StringVar(&adminInput.LastName, "last-name", "", "last name (min 3 characters)")
	f.StringVar(&adminInput.Email, "email", "", "login email")
	f.StringVar(&adminInput.Password, "password", "", "password (min 6 characters)")
	_ = adminCreateCmd.MarkFlagRequired("email")
	_ = adminCreateCmd.MarkFlagRequired("password")
}

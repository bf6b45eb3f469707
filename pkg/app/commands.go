package app

// Operations behind the maintenance commands of cmd/coursemart.

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/shashiranjanraj/coursemart/app/services"
	"github.com/shashiranjanraj/coursemart/database/seeders"
	"github.com/shashiranjanraj/coursemart/pkg/auth"
	"github.com/shashiranjanraj/coursemart/pkg/migration"
)

// ErrNotSQL is returned by the migration commands on a non-SQL store.
var ErrNotSQL = errors.New("app: migrations need an SQL DB_DRIVER (mongo creates indexes on boot)")

func (a *App) migrator(out io.Writer) (*migration.Runner, error) {
	db, ok := a.SQL()
	if !ok {
		return nil, ErrNotSQL
	}
	return migration.New(db, out), nil
}

// Migrate runs pending migrations.
func (a *App) Migrate(out io.Writer) error {
	m, err := a.migrator(out)
	if err != nil {
		return err
	}
	return m.Run()
}

// Rollback reverses the last migration batch.
func (a *App) Rollback(out io.Writer) error {
	m, err := a.migrator(out)
	if err != nil {
		return err
	}
	return m.Rollback()
}

func (a *App) MigrationStatus(out io.Writer) error {
	m, err := a.migrator(out)
	if err != nil {
		return err
	}
	return m.Status()
}

// Seed runs every registered seeder against the store.
func (a *App) Seed(ctx context.Context, out io.Writer) error {
	return seeders.RunAll(ctx, a.Store, out)
}

// CreateAdmin registers an admin account regardless of
// ADMIN_SIGNUP_ENABLED.
func (a *App) CreateAdmin(ctx context.Context, in services.SignupInput, out io.Writer) error {
	acct, err := a.Auth.Signup(ctx, auth.RoleAdmin, in)
	if err != nil {
		var se *services.Error
		if errors.As(err, &se) && len(se.Fields) > 0 {
			for field, msg := range se.Fields {
				fmt.Fprintf(out, "  %s: %s\n", field, msg)
			}
		}
		return err
	}
	fmt.Fprintf(out, "admin %s created (%s)\n", acct.Email, acct.ID)
	return nil
}

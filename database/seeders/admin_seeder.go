package seeders

import (
	"context"
	"errors"

	"github.com/shashiranjanraj/coursemart/app/models"
	"github.com/shashiranjanraj/coursemart/app/repositories"
	"github.com/shashiranjanraj/coursemart/config"
	"github.com/shashiranjanraj/coursemart/pkg/auth"
	"github.com/shashiranjanraj/coursemart/pkg/logger"
)

func init() {
	Register("admins", SeedAdmin)
}

// SeedAdmin creates the demo admin named by SEED_ADMIN_EMAIL and
// SEED_ADMIN_PASSWORD unless it already exists.
func SeedAdmin(ctx context.Context, store repositories.Store) error {
	email := config.Get("SEED_ADMIN_EMAIL", "admin@coursemart.local")
	password := config.Get("SEED_ADMIN_PASSWORD", "admin123")

	if _, err := store.Admins().FindByEmail(ctx, email); err == nil {
		logger.Info("seeders: admin exists", "email", email)
		return nil
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	admin := &models.Admin{
		FirstName: config.Get("SEED_ADMIN_FIRST_NAME", "Demo"),
		LastName:  config.Get("SEED_ADMIN_LAST_NAME", "Admin"),
		Email:     email,
		Password:  hash,
	}
	if err := store.Admins().Create(ctx, admin); err != nil && !errors.Is(err, repositories.ErrDuplicate) {
		return err
	}
	logger.Info("seeders: admin created", "email", email)
	return nil
}

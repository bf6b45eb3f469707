// Package repositories persists users, admins, courses, purchases and orders.
//
// Three backends implement Store: Mongo (the default document store), SQL
// through gorm (sqlite, postgres, mysql, sqlserver) and an in-process memory
// store for tests and local runs. Every backend enforces the same unique
// keys: user email, admin email, purchase (userId, courseId) and order
// paymentId.
package repositories

import (
	"context"
	"errors"

	"github.com/shashiranjanraj/coursemart/app/models"
)

var (
	// ErrNotFound is returned when no record matches.
	ErrNotFound = errors.New("repositories: record not found")
	// ErrDuplicate is returned when a write violates a unique key.
	ErrDuplicate = errors.New("repositories: duplicate key")
)

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type AdminRepository interface {
	Create(ctx context.Context, a *models.Admin) error
	FindByEmail(ctx context.Context, email string) (*models.Admin, error)
	FindByID(ctx context.Context, id string) (*models.Admin, error)
}

type CourseRepository interface {
	Create(ctx context.Context, c *models.Course) error
	FindByID(ctx context.Context, id string) (*models.Course, error)
	// FindByIDs returns the courses that still exist, newest first.
	FindByIDs(ctx context.Context, ids []string) ([]models.Course, error)
	// List returns every course, newest first.
	List(ctx context.Context) ([]models.Course, error)
	// FindOwned matches on (id, creatorId).
	FindOwned(ctx context.Context, id, creatorID string) (*models.Course, error)
	// UpdateOwned overwrites title, description, price and images of the
	// course matching (c.ID, c.CreatorID).
	UpdateOwned(ctx context.Context, c *models.Course) error
	// DeleteOwned removes the course matching (id, creatorId).
	DeleteOwned(ctx context.Context, id, creatorID string) error
}

type PurchaseRepository interface {
	Exists(ctx context.Context, userID, courseID string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]models.Purchase, error)
}

type OrderRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
}

// Store groups the repositories of one backend.
type Store interface {
	Backend() string
	Users() UserRepository
	Admins() AdminRepository
	Courses() CourseRepository
	Purchases() PurchaseRepository
	Orders() OrderRepository

	// RecordPurchase writes o and p as one unit: either both exist afterwards
	// or neither does. A purchase that already exists yields ErrDuplicate.
	RecordPurchase(ctx context.Context, o *models.Order, p *models.Purchase) error

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

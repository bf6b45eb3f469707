package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shashiranjanraj/coursemart/app/models"
	"github.com/shashiranjanraj/coursemart/pkg/database"
	"github.com/shashiranjanraj/coursemart/pkg/metrics"
)

// SQLStore is the gorm backend. Tables are created by database/migrations.
type SQLStore struct {
	db     *gorm.DB
	driver string
}

func NewSQLStore(db *gorm.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) Backend() string               { return s.driver }
func (s *SQLStore) DB() *gorm.DB                  { return s.db }
func (s *SQLStore) Users() UserRepository         { return sqlUsers{s} }
func (s *SQLStore) Admins() AdminRepository       { return sqlAdmins{s} }
func (s *SQLStore) Courses() CourseRepository     { return sqlCourses{s} }
func (s *SQLStore) Purchases() PurchaseRepository { return sqlPurchases{s} }
func (s *SQLStore) Orders() OrderRepository       { return sqlOrders{s} }

func (s *SQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLStore) Close(context.Context) error { return database.Close(s.db) }

func (s *SQLStore) observe(op string, start time.Time) {
	metrics.ObserveStore(s.driver, op, start)
}

// isDuplicate recognises unique violations whether or not the dialect
// translates them to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}

func sqlErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case isDuplicate(err):
		return ErrDuplicate
	default:
		return fmt.Errorf("repositories/sql: %s: %w", op, err)
	}
}

// RecordPurchase writes both rows in one transaction.
func (s *SQLStore) RecordPurchase(ctx context.Context, o *models.Order, p *models.Purchase) error {
	defer s.observe("purchases.record", time.Now())
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		return tx.Create(o).Error
	})
	return sqlErr("record purchase", err)
}

// ─── Users / Admins ───────────────────────────────────────────────────────────

type sqlUsers struct{ s *SQLStore }

func (r sqlUsers) Create(ctx context.Context, u *models.User) error {
	defer r.s.observe("users.insert", time.Now())
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return sqlErr("insert user", r.s.db.WithContext(ctx).Create(u).Error)
}

func (r sqlUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	defer r.s.observe("users.by_email", time.Now())
	var u models.User
	if err := r.s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, sqlErr("find user", err)
	}
	return &u, nil
}

func (r sqlUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	defer r.s.observe("users.by_id", time.Now())
	var u models.User
	if err := r.s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, sqlErr("find user", err)
	}
	return &u, nil
}

type sqlAdmins struct{ s *SQLStore }

func (r sqlAdmins) Create(ctx context.Context, a *models.Admin) error {
	defer r.s.observe("admins.insert", time.Now())
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return sqlErr("insert admin", r.s.db.WithContext(ctx).Create(a).Error)
}

func (r sqlAdmins) FindByEmail(ctx context.Context, email string) (*models.Admin, error) {
	defer r.s.observe("admins.by_email", time.Now())
	var a models.Admin
	if err := r.s.db.WithContext(ctx).Where("email = ?", email).First(&a).Error; err != nil {
		return nil, sqlErr("find admin", err)
	}
	return &a, nil
}

func (r sqlAdmins) FindByID(ctx context.Context, id string) (*models.Admin, error) {
	defer r.s.observe("admins.by_id", time.Now())
	var a models.Admin
	if err := r.s.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, sqlErr("find admin", err)
	}
	return &a, nil
}

// ─── Courses ──────────────────────────────────────────────────────────────────

type sqlCourses struct{ s *SQLStore }

var courseOrder = clause.OrderBy{Columns: []clause.OrderByColumn{
	{Column: clause.Column{Name: "created_at"}, Desc: true},
	{Column: clause.Column{Name: "id"}, Desc: true},
}}

func (r sqlCourses) Create(ctx context.Context, c *models.Course) error {
	defer r.s.observe("courses.insert", time.Now())
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Images == nil {
		c.Images = []models.Image{}
	}
	return sqlErr("insert course", r.s.db.WithContext(ctx).Create(c).Error)
}

func (r sqlCourses) FindByID(ctx context.Context, id string) (*models.Course, error) {
	defer r.s.observe("courses.by_id", time.Now())
	var c models.Course
	if err := r.s.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, sqlErr("find course", err)
	}
	return &c, nil
}

func (r sqlCourses) FindOwned(ctx context.Context, id, creatorID string) (*models.Course, error) {
	defer r.s.observe("courses.owned", time.Now())
	var c models.Course
	err := r.s.db.WithContext(ctx).Where("id = ? AND creator_id = ?", id, creatorID).First(&c).Error
	if err != nil {
		return nil, sqlErr("find course", err)
	}
	return &c, nil
}

func (r sqlCourses) FindByIDs(ctx context.Context, ids []string) ([]models.Course, error) {
	defer r.s.observe("courses.by_ids", time.Now())
	out := []models.Course{}
	if len(ids) == 0 {
		return out, nil
	}
	err := r.s.db.WithContext(ctx).Where("id IN ?", ids).Clauses(courseOrder).Find(&out).Error
	return out, sqlErr("find courses", err)
}

func (r sqlCourses) List(ctx context.Context) ([]models.Course, error) {
	defer r.s.observe("courses.list", time.Now())
	out := []models.Course{}
	err := r.s.db.WithContext(ctx).Clauses(courseOrder).Find(&out).Error
	return out, sqlErr("list courses", err)
}

func (r sqlCourses) UpdateOwned(ctx context.Context, c *models.Course) error {
	defer r.s.observe("courses.update", time.Now())

	return sqlErr("update course", r.s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Course{}).
			Where("id = ? AND creator_id = ?", c.ID, c.CreatorID).
			Select("title", "description", "price", "images", "updated_at").
			Updates(&models.Course{
				Title:       c.Title,
				Description: c.Description,
				Price:       c.Price,
				Images:      c.Images,
				UpdatedAt:   time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("id = ?", c.ID).First(c).Error
	}))
}

func (r sqlCourses) DeleteOwned(ctx context.Context, id, creatorID string) error {
	defer r.s.observe("courses.delete", time.Now())
	res := r.s.db.WithContext(ctx).Where("id = ? AND creator_id = ?", id, creatorID).Delete(&models.Course{})
	if res.Error != nil {
		return sqlErr("delete course", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ─── Purchases / Orders ───────────────────────────────────────────────────────

type sqlPurchases struct{ s *SQLStore }

func (r sqlPurchases) Exists(ctx context.Context, userID, courseID string) (bool, error) {
	defer r.s.observe("purchases.exists", time.Now())
	var n int64
	err := r.s.db.WithContext(ctx).Model(&models.Purchase{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&n).Error
	if err != nil {
		return false, sqlErr("count purchases", err)
	}
	return n > 0, nil
}

func (r sqlPurchases) ListByUser(ctx context.Context, userID string) ([]models.Purchase, error) {
	defer r.s.observe("purchases.by_user", time.Now())
	out := []models.Purchase{}
	err := r.s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc").Find(&out).Error
	return out, sqlErr("list purchases", err)
}

type sqlOrders struct{ s *SQLStore }

func (r sqlOrders) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	defer r.s.observe("orders.by_user", time.Now())
	out := []models.Order{}
	err := r.s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc").Find(&out).Error
	return out, sqlErr("list orders", err)
}

package migrations

import (
	"gorm.io/gorm"

	"github.com/shashiranjanraj/coursemart/app/models"
	"github.com/shashiranjanraj/coursemart/pkg/migration"
	"github.com/shashiranjanraj/coursemart/pkg/queue"
)

func init() {
	migration.Register("20260101000000_create_users_table", table(&models.User{}, "users"))
	migration.Register("20260101000001_create_admins_table", table(&models.Admin{}, "admins"))
	migration.Register("20260101000002_create_courses_table", table(&models.Course{}, "courses"))
	migration.Register("20260101000003_create_purchases_table", table(&models.Purchase{}, "purchases"))
	migration.Register("20260101000004_create_orders_table", table(&models.Order{}, "orders"))
	migration.Register("20260101000005_create_failed_jobs_table", table(&queue.FailedJobRecord{}, "failed_jobs"))
}

// createTable is a migration that auto-migrates one model.
type createTable struct {
	model interface{}
	name  string
}

func table(model interface{}, name string) *createTable {
	return &createTable{model: model, name: name}
}

func (m *createTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(m.model)
}

func (m *createTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(m.name)
}

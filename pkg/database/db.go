// Package database opens the gorm connection used by the SQL store, the
// migration runner and the failed-jobs table.
package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/shashiranjanraj/coursemart/pkg/logger"
)

// Drivers lists the SQL drivers Open accepts.
var Drivers = []string{"sqlite", "postgres", "mysql", "sqlserver"}

// IsSQL reports whether driver is served by this package.
func IsSQL(driver string) bool {
	for _, d := range Drivers {
		if d == driver {
			return true
		}
	}
	return false
}

// Open connects, configures the pool and pings.
func Open(ctx context.Context, driver, dsn string) (*gorm.DB, error) {
	dialector, err := buildDialector(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("database: build dialector: %w", err)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         slowQueryLogger{threshold: 200 * time.Millisecond},
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("database: open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database: get sql.DB: %w", err)
	}
	if driver == "sqlite" {
		// One writer at a time; concurrent writers would get SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(10)
	}
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(2 * time.Minute)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("database: ping: %w", err)
	}

	return db, nil
}

// Close releases the pool behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func buildDialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "sqlite":
		return sqlite.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	case "sqlserver":
		return sqlserver.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (supported: %s)", driver, strings.Join(Drivers, ", "))
	}
}

// slowQueryLogger routes gorm's logging to pkg/logger: errors other than
// record-not-found and queries slower than threshold.
type slowQueryLogger struct {
	threshold time.Duration
}

func (l slowQueryLogger) LogMode(gormlogger.LogLevel) gormlogger.Interface { return l }

func (l slowQueryLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	logger.WithCtx(ctx).Debug(fmt.Sprintf(msg, args...))
}

func (l slowQueryLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	logger.WithCtx(ctx).Warn(fmt.Sprintf(msg, args...))
}

func (l slowQueryLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	logger.WithCtx(ctx).Error(fmt.Sprintf(msg, args...))
}

func (l slowQueryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && !errors.Is(err, gorm.ErrDuplicatedKey):
		sql, rows := fc()
		logger.WithCtx(ctx).Error("database: query failed", "sql", sql, "rows", rows, "elapsed", elapsed, "error", err)
	case elapsed > l.threshold:
		sql, rows := fc()
		logger.WithCtx(ctx).LogAttrs(ctx, slog.LevelWarn, "database: slow query",
			slog.String("sql", sql), slog.Int64("rows", rows), slog.Duration("elapsed", elapsed))
	}
}

// Package app is the composition root. New turns resolved Settings into a
// running set of services; the CLI in cmd/coursemart drives it.
//
//	settings, _ := config.Resolve()
//	a, err := app.New(ctx, settings)
//	if err != nil { ... }
//	defer a.Close(context.Background())
//	err = a.Serve(ctx)
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/coursemart/app/jobs"
	"github.com/shashiranjanraj/coursemart/app/repositories"
	"github.com/shashiranjanraj/coursemart/app/services"
	"github.com/shashiranjanraj/coursemart/config"
	_ "github.com/shashiranjanraj/coursemart/database/migrations"
	"github.com/shashiranjanraj/coursemart/pkg/auth"
	"github.com/shashiranjanraj/coursemart/pkg/cache"
	"github.com/shashiranjanraj/coursemart/pkg/database"
	"github.com/shashiranjanraj/coursemart/pkg/event"
	"github.com/shashiranjanraj/coursemart/pkg/imagehost"
	"github.com/shashiranjanraj/coursemart/pkg/logger"
	"github.com/shashiranjanraj/coursemart/pkg/migration"
	"github.com/shashiranjanraj/coursemart/pkg/mongodb"
	"github.com/shashiranjanraj/coursemart/pkg/payment"
	"github.com/shashiranjanraj/coursemart/pkg/queue"
	"github.com/shashiranjanraj/coursemart/pkg/storage"
	"github.com/shashiranjanraj/coursemart/pkg/workerpool"
)

const cachePrefix = "coursemart:cache:"

// App holds every long-lived dependency of the process.
type App struct {
	Settings config.Settings

	Store    repositories.Store
	Issuer   *auth.Issuer
	Cache    cache.Cache
	Queue    *queue.Manager
	Pool     *workerpool.Pool
	Events   *event.Bus
	Images   imagehost.Host
	Payments payment.Processor

	Auth     *services.AuthService
	Catalog  *services.CatalogService
	Checkout *services.CheckoutService

	sqlDB   *gorm.DB
	mongoDB *mongo.Database
	mounts  map[string]http.Handler
	closers []func(context.Context) error
	kernel  kernelCloser
}

type kernelCloser interface{ Close() }

// New connects the backing services named by s. On error everything opened
// so far is closed again.
func New(ctx context.Context, s config.Settings) (a *App, err error) {
	a = &App{
		Settings: s,
		Issuer:   auth.NewIssuer(s.UserTokenSecret, s.AdminTokenSecret, s.TokenTTL),
		Events:   event.New(),
		mounts:   map[string]http.Handler{},
	}
	defer func() {
		if err != nil {
			_ = a.Close(context.WithoutCancel(ctx))
			a = nil
		}
	}()

	if err = a.openStore(ctx); err != nil {
		return a, err
	}

	driver := a.openCache(ctx)

	a.Pool = workerpool.New(s.UploadConcurrency)

	if err = a.openImageHost(ctx); err != nil {
		return a, err
	}

	a.Payments = payment.NewStripe(s.StripeSecretKey, payment.WithAPIBase(s.StripeAPIBase))

	opts := []queue.Option{queue.WithMaxRetry(3), queue.WithBackoff(time.Second)}
	if a.sqlDB != nil {
		opts = append(opts, queue.WithFailedStore(a.sqlDB))
	}
	a.Queue = queue.New(driver, opts...)
	jobs.Register(a.Queue, a.Images)

	a.Auth = services.NewAuthService(a.Store, a.Issuer)
	a.Catalog = services.NewCatalogService(services.CatalogDeps{
		Courses:  a.Store.Courses(),
		Host:     a.Images,
		Pool:     a.Pool,
		Cache:    a.Cache,
		CacheTTL: s.CacheTTL,
		Events:   a.Events,
		Jobs:     a.Queue,
		Folder:   s.ImageFolder,
	})
	a.Checkout = services.NewCheckoutService(a.Store, a.Payments, s.Currency, s.VerifyPayments)

	logger.Info("app: ready",
		"env", s.Env,
		"store", a.Store.Backend(),
		"images", a.Images.Name(),
		"queue", s.QueueDriver,
	)
	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	s := a.Settings
	switch {
	case s.DBDriver == "mongo" || s.DBDriver == "mongodb":
		client, db, err := mongodb.Connect(ctx, s.MongoURI, s.MongoDatabase)
		if err != nil {
			return err
		}
		store := repositories.NewMongoStore(client, db)
		a.Store = store
		a.mongoDB = db
		a.onClose(store.Close)
		if err := store.EnsureIndexes(ctx); err != nil {
			return err
		}
		a.attachMongoLogs(ctx)

	case s.DBDriver == "memory":
		a.Store = repositories.NewMemoryStore()

	case database.IsSQL(s.DBDriver):
		db, err := database.Open(ctx, s.DBDriver, s.DatabaseDSN)
		if err != nil {
			return err
		}
		store := repositories.NewSQLStore(db, s.DBDriver)
		a.Store = store
		a.sqlDB = db
		a.onClose(store.Close)
		if s.AutoMigrate {
			if err := migration.New(db, io.Discard).Run(); err != nil {
				return fmt.Errorf("app: migrate: %w", err)
			}
		}

	default:
		return fmt.Errorf("app: unknown DB_DRIVER %q", s.DBDriver)
	}
	return nil
}

// attachMongoLogs tees log records into a capped-size Mongo collection when
// LOG_MONGO_COLLECTION is set.
func (a *App) attachMongoLogs(ctx context.Context) {
	if a.Settings.LogMongoCollection == "" {
		return
	}
	h := logger.NewMongoHandler(ctx, a.mongoDB, a.Settings.LogMongoCollection, slog.LevelInfo)
	logger.Setup(a.Settings.Env, os.Stdout, h)
	a.onClose(func(context.Context) error {
		h.Close()
		return nil
	})
}

// openCache connects Redis when configured and returns the queue driver. A
// Redis outage degrades to the in-process cache and queue.
func (a *App) openCache(ctx context.Context) queue.Driver {
	s := a.Settings
	if s.RedisAddr == "" {
		a.Cache = memoryCache(s.CacheTTL)
		return queue.NewMemoryDriver()
	}

	rdb, err := cache.Connect(ctx, s.RedisAddr, s.RedisPassword)
	if err != nil {
		logger.Warn("app: redis unavailable, using memory cache", "addr", s.RedisAddr, "error", err)
		a.Cache = memoryCache(s.CacheTTL)
		return queue.NewMemoryDriver()
	}
	a.onClose(func(context.Context) error { return rdb.Close() })
	a.Cache = cache.NewRedis(rdb, cachePrefix)
	if s.CacheTTL <= 0 {
		a.Cache = cache.Nop{}
	}

	if s.QueueDriver != "redis" {
		return queue.NewMemoryDriver()
	}
	d := queue.NewRedisDriver(rdb)
	a.onClose(func(context.Context) error { return d.Close() })
	return d
}

// memoryCache is the in-process cache, or Nop when CACHE_TTL is zero.
func memoryCache(ttl time.Duration) cache.Cache {
	if ttl <= 0 {
		return cache.Nop{}
	}
	return cache.NewMemory()
}

func (a *App) openImageHost(ctx context.Context) error {
	s := a.Settings
	switch s.ImageHost {
	case "cloudinary":
		host, err := imagehost.NewCloudinary(s.CloudinaryCloud, s.CloudinaryKey, s.CloudinarySecret)
		if err != nil {
			return err
		}
		a.Images = host
		return nil

	case "s3", "local", "":
		driver := s.ImageHost
		if driver == "" {
			driver = "local"
		}
		disk, err := storage.Open(ctx, driver, storage.Config{
			LocalRoot:  s.StorageLocalRoot,
			LocalURL:   s.StorageURL,
			S3Bucket:   s.S3Bucket,
			S3Region:   s.S3Region,
			S3Key:      s.S3Key,
			S3Secret:   s.S3Secret,
			S3Endpoint: s.S3Endpoint,
			S3URL:      s.S3URL,
		})
		if err != nil {
			return err
		}
		if local, ok := disk.(*storage.Local); ok {
			a.mounts["/storage"] = http.StripPrefix("/storage", local.Handler())
		}
		a.Images = imagehost.NewDiskHost(driver, disk)
		return nil
	}
	return fmt.Errorf("app: unknown IMAGE_HOST %q", s.ImageHost)
}

// SQL returns the gorm handle when the store is SQL-backed.
func (a *App) SQL() (*gorm.DB, bool) { return a.sqlDB, a.sqlDB != nil }

// Ping checks the primary store.
func (a *App) Ping(ctx context.Context) error { return a.Store.Ping(ctx) }

func (a *App) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// Close drains the worker pool and releases connections in reverse order of
// opening.
func (a *App) Close(ctx context.Context) error {
	if a.Pool != nil {
		a.Pool.Shutdown()
	}
	if a.Events != nil {
		a.Events.Flush()
	}
	if a.kernel != nil {
		a.kernel.Close()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

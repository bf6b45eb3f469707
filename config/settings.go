package config

import (
	"fmt"
	"strings"
	"time"
)

// Settings is the resolved configuration handed to pkg/app.New. Everything
// the process needs at startup is read once here instead of through ambient
// getters deep inside services.
type Settings struct {
	Env      string
	Port     string
	GRPCPort string

	DBDriver      string
	DatabaseDSN   string
	MongoURI      string
	MongoDatabase string
	AutoMigrate   bool

	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration

	UserTokenSecret  string
	AdminTokenSecret string
	TokenTTL         time.Duration

	StripeSecretKey string
	StripeAPIBase   string
	Currency        string
	VerifyPayments  bool

	ImageHost         string
	ImageFolder       string
	UploadConcurrency int
	CloudinaryCloud   string
	CloudinaryKey     string
	CloudinarySecret  string
	StorageLocalRoot  string
	StorageURL        string
	S3Bucket          string
	S3Region          string
	S3Key             string
	S3Secret          string
	S3Endpoint        string
	S3URL             string

	FrontendURL        string
	AdminSignupEnabled bool
	RateLimit          int

	QueueDriver  string
	QueueWorkers int

	LogMongoCollection string
}

// Production reports whether cookies should be marked Secure and logs
// written as JSON.
func (s Settings) Production() bool {
	switch strings.ToLower(s.Env) {
	case "production", "prod":
		return true
	}
	return false
}

// Resolve loads the layered configuration and snapshots it into Settings.
func Resolve() (Settings, error) {
	if err := Load(); err != nil {
		return Settings{}, fmt.Errorf("config: %w", err)
	}

	s := Settings{
		Env:      AppEnv(),
		Port:     AppPort(),
		GRPCPort: GRPCPort(),

		DBDriver:      DatabaseDriver(),
		DatabaseDSN:   DatabaseDSN(),
		MongoURI:      MongoURI(),
		MongoDatabase: MongoDatabase(),
		AutoMigrate:   Bool("DB_AUTO_MIGRATE", true),

		RedisAddr:     RedisAddr(),
		RedisPassword: RedisPassword(),
		CacheTTL:      Duration("CACHE_TTL", 5*time.Minute),

		UserTokenSecret:  UserTokenSecret(),
		AdminTokenSecret: AdminTokenSecret(),
		TokenTTL:         TokenTTL(),

		StripeSecretKey: Get("STRIPE_SECRET_KEY", ""),
		StripeAPIBase:   strings.TrimRight(Get("STRIPE_API_BASE", defaultStripeAPIBase), "/"),
		Currency:        strings.ToLower(Get("PAYMENT_CURRENCY", defaultCurrency)),
		VerifyPayments:  Bool("PAYMENT_VERIFY", true),

		ImageHost:         ImageHost(),
		ImageFolder:       Get("IMAGE_FOLDER", defaultImageFolder),
		UploadConcurrency: Int("IMAGE_UPLOAD_CONCURRENCY", 4),
		CloudinaryCloud:   Get("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryKey:     Get("CLOUDINARY_API_KEY", ""),
		CloudinarySecret:  Get("CLOUDINARY_API_SECRET", ""),
		StorageLocalRoot:  StorageLocalRoot(),
		StorageURL:        StorageURL(),
		S3Bucket:          StorageS3Bucket(),
		S3Region:          StorageS3Region(),
		S3Key:             StorageS3Key(),
		S3Secret:          StorageS3Secret(),
		S3Endpoint:        StorageS3Endpoint(),
		S3URL:             StorageS3URL(),

		FrontendURL:        Get("FRONTEND_URL", defaultFrontendURL),
		AdminSignupEnabled: Bool("ADMIN_SIGNUP_ENABLED", true),
		RateLimit:          Int("RATE_LIMIT", 200),

		QueueDriver:  strings.ToLower(Get("QUEUE_DRIVER", "memory")),
		QueueWorkers: Int("QUEUE_WORKERS", 2),

		LogMongoCollection: Get("LOG_MONGO_COLLECTION", ""),
	}

	if s.Production() {
		if s.UserTokenSecret == defaultUserSecret || s.AdminTokenSecret == defaultAdminSecret {
			return Settings{}, fmt.Errorf("config: JWT_USER_SECRET and JWT_ADMIN_SECRET must be set in production")
		}
	}

	return s, nil
}

package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/TheOksigen/autopart-backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis
	RedisURL string

	// Server
	Port        string
	Environment string
	CORSOrigins []string

	// JWT
	JWTSecret   string
	JWTTTLHours int

	// Image hosting (document-service)
	ImageServiceURL string
	ImageBucket     string

	// Messaging
	NATSURL string

	// Bulk ingestion
	BulkMaxRecords     int
	CoercionConfigPath string

	// Pagination
	DefaultPageSize int
	MaxPageSize     int
}

func Load() *Config {
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	jwtTTL, _ := strconv.Atoi(getEnv("JWT_TTL_HOURS", "24"))
	bulkMax, _ := strconv.Atoi(getEnv("BULK_MAX_RECORDS", "5000"))
	defaultPageSize, _ := strconv.Atoi(getEnv("DEFAULT_PAGE_SIZE", "10"))
	maxPageSize, _ := strconv.Atoi(getEnv("MAX_PAGE_SIZE", "100"))

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "autopart_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		Port:        getEnv("PORT", "3000"),
		Environment: getEnv("ENVIRONMENT", "development"),
		CORSOrigins: splitList(os.Getenv("CORS_ORIGINS")),

		JWTSecret:   getEnv("JWT_SECRET", "your-secret-key"),
		JWTTTLHours: jwtTTL,

		ImageServiceURL: getEnv("IMAGE_SERVICE_URL", "http://localhost:8082"),
		ImageBucket:     getEnv("IMAGE_BUCKET", "product-images"),

		NATSURL: os.Getenv("NATS_URL"),

		BulkMaxRecords:     bulkMax,
		CoercionConfigPath: os.Getenv("COERCION_CONFIG"),

		DefaultPageSize: defaultPageSize,
		MaxPageSize:     maxPageSize,
	}
}

// DSN returns the postgres connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Running auto-migrations...")
	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Println("Auto-migrations completed successfully")

	return db, nil
}

// Migrate brings the schema up to date. The lower(name) index backs the
// case-insensitive manufacturer uniqueness that bulk ingestion relies on.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Manufacturer{},
		&models.Product{},
		&models.User{},
	); err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "does not exist") && strings.Contains(errStr, "constraint") {
			log.Printf("Note: Migration constraint warning (safe to ignore): %v", err)
		} else {
			return fmt.Errorf("failed to run auto-migrations: %w", err)
		}
	}

	if err := db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_manufacturers_name_lower ON manufacturers (LOWER(name))").Error; err != nil {
		return fmt.Errorf("failed to create manufacturer name index: %w", err)
	}
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

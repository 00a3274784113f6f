package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var (
	db *gorm.DB
)

func GetDB() *gorm.DB {
	return db
}

func init() {
	// Load env from .env
	godotenv.Load()
}

// ConnectDatabase opens the file-backed store at path and sets the global DB.
func ConnectDatabase(path string) error {
	conn, err := OpenDatabase(path)
	if err != nil {
		return err
	}
	db = conn
	GetLogger().WithField("path", path).Info("connected to database")
	return nil
}

// OpenDatabase opens the store at path without touching the global DB.
// The driver applies WAL, busy timeout and foreign keys on every pooled connection.
func OpenDatabase(path string) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_foreign_keys=on&_txlock=immediate",
		path, intFromEnv("DB_BUSY_TIMEOUT_MS", 5000))

	conn, err := gorm.Open(sqlite.Open(dsn), initConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if sqlDB, derr := conn.DB(); derr == nil && sqlDB != nil {
		// one file, one writer: a small pool keeps readers concurrent under WAL
		sqlDB.SetMaxOpenConns(intFromEnv("DB_MAX_OPEN_CONNS", 4))
		sqlDB.SetMaxIdleConns(intFromEnv("DB_MAX_IDLE_CONNS", 2))
		sqlDB.SetConnMaxIdleTime(time.Duration(intFromEnv("DB_CONN_MAX_IDLE_TIME_SECONDS", 60)) * time.Second)
		if err := sqlDB.Ping(); err != nil {
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
	}

	if TracingEnabled() {
		if pluginErr := conn.Use(otelgorm.NewPlugin()); pluginErr != nil {
			GetLogger().WithError(pluginErr).Warn("db connected but failed to install otelgorm plugin")
		}
	}
	if pluginErr := conn.Use(NewOwnerGuardPlugin()); pluginErr != nil {
		return nil, fmt.Errorf("failed to install owner guard plugin: %w", pluginErr)
	}
	return conn, nil
}

// CloseDatabase closes the global DB, if any.
func CloseDatabase() error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	db = nil
	return sqlDB.Close()
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// InitConfig Initialize Config
func initConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         initLog(),
		NamingStrategy: initNamingStrategy(),
		// dates such as created_date are compared against the device's local day
		NowFunc: func() time.Time { return time.Now().Local() },
	}
}

// InitLog Connection Log Configuration
func initLog() logger.Interface {
	level := logger.Error
	if strings.EqualFold(os.Getenv("GORM_LOG_LEVEL"), "info") {
		level = logger.Info
	}
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			Colorful:                  false,
			LogLevel:                  level,
			SlowThreshold:             time.Second,
			IgnoreRecordNotFoundError: true,
		},
	)
}

// InitNamingStrategy Init NamingStrategy
func initNamingStrategy() *schema.NamingStrategy {
	return &schema.NamingStrategy{
		SingularTable: false,
		TablePrefix:   "",
	}
}

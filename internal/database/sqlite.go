// Package database opens the sqlite file backing the session store.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/threatflux/violetearClient/internal/config"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// sessionPragmas tune sqlite for a single writer that stores one small row
var sessionPragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
}

// DB is an open session database
type DB struct {
	gorm *gorm.DB
	sql  *sql.DB
	path string
}

// Open opens the sqlite database named by cfg.Storage, creating its
// directory when needed
func Open(cfg *config.Config, log logrus.FieldLogger) (*DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Storage.Type != config.StorageSQLite {
		return nil, fmt.Errorf("unsupported storage type for a database: %s", cfg.Storage.Type)
	}

	path := cfg.Storage.ResolvedPath()
	if err := ensureDir(path); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: newGormLogger(cfg.Logging.Level, log),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open session database %s: %w", path, err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}
	// one connection keeps ":memory:" alive and serializes writers
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)

	if err := applyPragmas(gdb, sessionPragmas); err != nil && log != nil {
		log.WithError(err).Warn("Failed to tune session database")
	}
	if log != nil {
		log.WithField("path", path).Debug("Session database opened")
	}
	return &DB{gorm: gdb, sql: sqlDB, path: path}, nil
}

// Gorm returns the gorm handle
func (d *DB) Gorm() *gorm.DB {
	return d.gorm
}

// Path returns the database file
func (d *DB) Path() string {
	return d.path
}

// Close releases the connection
func (d *DB) Close() error {
	return d.sql.Close()
}

func newGormLogger(level string, log logrus.FieldLogger) logger.Interface {
	var w logger.Writer = discardWriter{}
	if log != nil {
		w = NewLogrusAdapter(log)
	}
	return logger.New(w, logger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  getLogLevel(level),
		IgnoreRecordNotFoundError: true,
	})
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func applyPragmas(db *gorm.DB, pragmas []string) error {
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return nil
}

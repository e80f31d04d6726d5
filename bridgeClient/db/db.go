// Package db persists the bridge client's transfer history in SQLite.
package db

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tipjar/crossbridge/bridgeClient/store"
)

const (
	inMemoryDSN = ":memory:"
	fileDSNOpts = "?_journal_mode=WAL&_busy_timeout=5000&mode=rwc"
)

// DB is the transfer history store.
type DB struct {
	client *gorm.DB
}

// OpenFileDB opens dir/filename, creating the directory if needed.
func OpenFileDB(dir, filename string, migrateSchema bool) (*DB, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Wrapf(err, "failed to create database directory %s", dir)
	}
	return openSQLite(filepath.Join(dir, filename)+fileDSNOpts, migrateSchema)
}

// OpenInMemoryDB opens an ephemeral database, used by tests and dry runs.
func OpenInMemoryDB(migrateSchema bool) (*DB, error) {
	return openSQLite(inMemoryDSN, migrateSchema)
}

func openSQLite(dsn string, migrateSchema bool) (*DB, error) {
	// TranslateError surfaces the salt unique index as gorm.ErrDuplicatedKey.
	client, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open transfer database")
	}

	if migrateSchema {
		if err := client.AutoMigrate(&store.Transfer{}); err != nil {
			return nil, errors.Wrap(err, "failed to migrate transfer schema")
		}
	}

	sqlDB, err := client.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get underlying sql.DB")
	}
	// one connection: an in-memory database lives only as long as it does
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	return &DB{client: client}, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	sqlDB, err := d.client.DB()
	if err != nil {
		return errors.Wrap(err, "failed to retrieve native sql.DB")
	}
	return errors.Wrap(sqlDB.Close(), "failed to close transfer database")
}

// Package database owns the local SQLite file: a small key/value settings
// table (the persisted auth token lives there) plus the raw handle the web
// session store shares.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookclub/internal/entities"
)

// ErrSettingNotFound is returned when a settings key has no row.
var ErrSettingNotFound = errors.New("setting not found")

type Database struct {
	DB  *gorm.DB
	sql *sql.DB
}

// NewDatabase opens (creating if needed) the SQLite file and migrates the
// settings table.
func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath+"?_journal=WAL&_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", dbPath, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", dbPath, err)
	}

	if err := db.AutoMigrate(&entities.Setting{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	log.Printf("Database: opened %s", dbPath)
	return &Database{DB: db, sql: sqlDB}, nil
}

func (d *Database) Close() error {
	return d.sql.Close()
}

// SQL exposes the underlying *sql.DB for the browser session store.
func (d *Database) SQL() (*sql.DB, error) {
	return d.sql, nil
}

// Ping backs the health check.
func (d *Database) Ping(ctx context.Context) error {
	return d.sql.PingContext(ctx)
}

func (d *Database) GetSetting(key string) (*entities.Setting, error) {
	var setting entities.Setting
	err := d.DB.Where("key = ?", key).First(&setting).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrSettingNotFound
	case err != nil:
		return nil, fmt.Errorf("get setting %s: %w", key, err)
	}
	return &setting, nil
}

// SetSetting inserts or overwrites one key.
func (d *Database) SetSetting(key, value string) error {
	setting := entities.Setting{Key: key, Value: value}
	err := d.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"value":      value,
			"updated_at": time.Now(),
		}),
	}).Create(&setting).Error
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// DeleteSetting removes a key. Deleting a missing key is not an error.
func (d *Database) DeleteSetting(key string) error {
	if err := d.DB.Where("key = ?", key).Delete(&entities.Setting{}).Error; err != nil {
		return fmt.Errorf("delete setting %s: %w", key, err)
	}
	return nil
}

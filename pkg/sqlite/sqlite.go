// Package sqlite is a single-file record store for one device or offline use.
package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const openShiftIndex = "shift_record_one_open_per_worker"

// shiftRecord is the gorm model behind db.ShiftRecordRow
type shiftRecord struct {
	ID              string     `gorm:"primaryKey"`
	WorkerID        string     `gorm:"not null;index:idx_shift_record_worker_date,priority:1"`
	ScheduleID      string
	LocationName    string     `gorm:"not null"`
	Address         string
	Date            string     `gorm:"not null;index:idx_shift_record_worker_date,priority:2"`
	StartTime       time.Time  `gorm:"not null"`
	EndTime         *time.Time
	SafetyChecklist string // JSON object, "" when absent
	StartLat        *float64
	StartLng        *float64
	EndLat          *float64
	EndLng          *float64
	StartPhotoRef   string
	EndPhotoRef     string
	TotalPausedMs   int64
	IsPaused        bool
	PausedAt        *time.Time
	Notes           string
}

func (shiftRecord) TableName() string {
	return "shift_record"
}

type worker struct {
	ID    string `gorm:"primaryKey"`
	Name  string `gorm:"not null"`
	Role  string `gorm:"not null"`
	Email string
	Phone string
}

func (worker) TableName() string {
	return "worker"
}

// DB stores shift records and worker profiles in a SQLite file
type DB struct {
	gdb *gorm.DB
}

// Open opens or creates the database at path and migrates its schema
func Open(ctx context.Context, path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	d := &DB{gdb: gdb}
	if err := d.migrate(ctx); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return d, nil
}

func (d *DB) migrate(ctx context.Context) error {
	gdb := d.gdb.WithContext(ctx)
	if err := gdb.AutoMigrate(&shiftRecord{}, &worker{}); err != nil {
		return err
	}
	// AutoMigrate cannot express a partial index
	return gdb.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ` + openShiftIndex +
		` ON shift_record (worker_id) WHERE end_time IS NULL`).Error
}

// Close closes the database connection
func (d *DB) Close() error {
	sqlDB, err := d.gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

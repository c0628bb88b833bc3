package sqlite

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fieldcrew/shiftlog/pkg/db"
)

// GetWorker retrieves a worker profile by id
func (d *DB) GetWorker(ctx context.Context, id string) (*db.WorkerRow, error) {
	var w worker
	err := d.gdb.WithContext(ctx).Where("id = ?", id).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to get worker %s: %w", id, db.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get worker %s: %w", id, err)
	}
	return &db.WorkerRow{ID: w.ID, Name: w.Name, Role: w.Role, Email: w.Email, Phone: w.Phone}, nil
}

// GetWorkers retrieves all worker profiles
func (d *DB) GetWorkers(ctx context.Context) ([]db.WorkerRow, error) {
	var ws []worker
	if err := d.gdb.WithContext(ctx).Find(&ws).Error; err != nil {
		return nil, fmt.Errorf("failed to query workers: %w", err)
	}

	rows := make([]db.WorkerRow, len(ws))
	for i, w := range ws {
		rows[i] = db.WorkerRow{ID: w.ID, Name: w.Name, Role: w.Role, Email: w.Email, Phone: w.Phone}
	}
	return rows, nil
}

// UpsertWorkers inserts or updates worker profiles
func (d *DB) UpsertWorkers(ctx context.Context, rows []db.WorkerRow) error {
	if len(rows) == 0 {
		return nil
	}

	ws := make([]worker, len(rows))
	for i, r := range rows {
		ws[i] = worker{ID: r.ID, Name: r.Name, Role: r.Role, Email: r.Email, Phone: r.Phone}
	}

	err := d.gdb.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "role", "email", "phone"}),
	}).Create(&ws).Error
	if err != nil {
		return fmt.Errorf("failed to upsert workers: %w", err)
	}
	return nil
}

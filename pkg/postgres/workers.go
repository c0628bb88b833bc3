package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fieldcrew/shiftlog/pkg/db"
)

// GetWorker retrieves a worker profile by id
func (d *DB) GetWorker(ctx context.Context, id string) (*db.WorkerRow, error) {
	var w db.WorkerRow
	err := d.pool.QueryRow(ctx, `
		SELECT id, name, role, email, phone
		FROM worker
		WHERE id = $1
	`, id).Scan(&w.ID, &w.Name, &w.Role, &w.Email, &w.Phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to get worker %s: %w", id, db.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get worker %s: %w", id, err)
	}
	return &w, nil
}

// GetWorkers retrieves all worker profiles
func (d *DB) GetWorkers(ctx context.Context) ([]db.WorkerRow, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, name, role, email, phone
		FROM worker
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query workers: %w", err)
	}
	defer rows.Close()

	var workers []db.WorkerRow
	for rows.Next() {
		var w db.WorkerRow
		if err := rows.Scan(&w.ID, &w.Name, &w.Role, &w.Email, &w.Phone); err != nil {
			return nil, fmt.Errorf("failed to scan worker: %w", err)
		}
		workers = append(workers, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workers: %w", err)
	}

	return workers, nil
}

// UpsertWorkers inserts or updates worker profiles in one transaction
func (d *DB) UpsertWorkers(ctx context.Context, workers []db.WorkerRow) error {
	if len(workers) == 0 {
		return nil
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, w := range workers {
		_, err := tx.Exec(ctx, `
			INSERT INTO worker (id, name, role, email, phone)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, role = EXCLUDED.role, email = EXCLUDED.email, phone = EXCLUDED.phone
		`, w.ID, w.Name, w.Role, w.Email, w.Phone)
		if err != nil {
			return fmt.Errorf("failed to upsert worker %s: %w", w.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

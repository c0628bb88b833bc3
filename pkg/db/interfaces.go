package db

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a record id does not exist
	ErrNotFound = errors.New("record not found")

	// ErrRecordClosed is returned when an update targets a shift that already has an end time
	ErrRecordClosed = errors.New("record is closed")

	// ErrOpenSessionExists is returned by CreateShiftRecord when the worker already has an open shift
	ErrOpenSessionExists = errors.New("worker already has an open shift")

	// ErrStaleRecord is returned when a conditional update finds the record changed since it was read
	ErrStaleRecord = errors.New("record changed since it was read")
)

// RecordStore defines the persistence operations for shift records.
// Query results carry no ordering guarantee; callers sort in process.
type RecordStore interface {
	GetShiftRecord(ctx context.Context, id string) (*ShiftRecordRow, error)
	QueryShiftRecords(ctx context.Context, filter ShiftFilter) ([]ShiftRecordRow, error)
	// CreateShiftRecord assigns an id, persists the row and returns the id.
	// It must refuse a second open record for the same worker with ErrOpenSessionExists.
	CreateShiftRecord(ctx context.Context, row *ShiftRecordRow) (string, error)
	// UpdateShiftRecord applies patch to an open record. Closed records return ErrRecordClosed.
	UpdateShiftRecord(ctx context.Context, id string, patch ShiftPatch) error
	DeleteShiftRecord(ctx context.Context, id string) error
}

// WorkerStore defines read access to worker profiles
type WorkerStore interface {
	GetWorker(ctx context.Context, id string) (*WorkerRow, error)
	GetWorkers(ctx context.Context) ([]WorkerRow, error)
}

// WorkerWriter inserts or updates worker profiles by id
type WorkerWriter interface {
	UpsertWorkers(ctx context.Context, workers []WorkerRow) error
}

// Database defines the interface for all database operations.
// MemStore, postgres.DB and sqlite.DB implement this interface.
type Database interface {
	RecordStore
	WorkerStore
	WorkerWriter
	Close() error
}

package db

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemStore is an in-process Database used for the memory store backend and in tests.
// The open-shift check and the insert happen under one lock, which gives it the same
// single-open-shift guarantee as the SQL stores' partial unique index.
type MemStore struct {
	mu      sync.Mutex
	records map[string]ShiftRecordRow
	order   []string
	workers map[string]WorkerRow
}

// NewMemStore creates an empty in-memory store seeded with the given workers
func NewMemStore(workers ...WorkerRow) *MemStore {
	m := &MemStore{
		records: make(map[string]ShiftRecordRow),
		workers: make(map[string]WorkerRow),
	}
	for _, w := range workers {
		m.workers[w.ID] = w
	}
	return m
}

// GetShiftRecord retrieves a shift record by id
func (m *MemStore) GetShiftRecord(ctx context.Context, id string) (*ShiftRecordRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("failed to get shift record %s: %w", id, ErrNotFound)
	}
	out := cloneRow(row)
	return &out, nil
}

// QueryShiftRecords returns the records matching filter in insertion order
func (m *MemStore) QueryShiftRecords(ctx context.Context, filter ShiftFilter) ([]ShiftRecordRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var rows []ShiftRecordRow
	for _, id := range m.order {
		row := m.records[id]
		if filter.Matches(&row) {
			rows = append(rows, cloneRow(row))
		}
	}
	return rows, nil
}

// CreateShiftRecord inserts a new shift record and returns its id
func (m *MemStore) CreateShiftRecord(ctx context.Context, row *ShiftRecordRow) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if row.IsOpen() {
		for _, existing := range m.records {
			if existing.WorkerID == row.WorkerID && existing.IsOpen() {
				return "", ErrOpenSessionExists
			}
		}
	}

	stored := cloneRow(*row)
	stored.ID = uuid.New().String()
	m.records[stored.ID] = stored
	m.order = append(m.order, stored.ID)
	return stored.ID, nil
}

// UpdateShiftRecord applies patch to an open shift record
func (m *MemStore) UpdateShiftRecord(ctx context.Context, id string, patch ShiftPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.records[id]
	if !ok {
		return fmt.Errorf("failed to update shift record %s: %w", id, ErrNotFound)
	}
	if !row.IsOpen() {
		return fmt.Errorf("failed to update shift record %s: %w", id, ErrRecordClosed)
	}
	if !patch.Matches(&row) {
		return fmt.Errorf("failed to update shift record %s: %w", id, ErrStaleRecord)
	}
	patch.Apply(&row)
	m.records[id] = row
	return nil
}

// DeleteShiftRecord removes a shift record
func (m *MemStore) DeleteShiftRecord(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return fmt.Errorf("failed to delete shift record %s: %w", id, ErrNotFound)
	}
	delete(m.records, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// GetWorker retrieves a worker profile by id
func (m *MemStore) GetWorker(ctx context.Context, id string) (*WorkerRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.workers[id]
	if !ok {
		return nil, fmt.Errorf("failed to get worker %s: %w", id, ErrNotFound)
	}
	return &w, nil
}

// GetWorkers retrieves all worker profiles
func (m *MemStore) GetWorkers(ctx context.Context) ([]WorkerRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	workers := make([]WorkerRow, 0, len(m.workers))
	for _, w := range m.workers {
		workers = append(workers, w)
	}
	return workers, nil
}

// UpsertWorkers inserts or replaces worker profiles
func (m *MemStore) UpsertWorkers(ctx context.Context, workers []WorkerRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range workers {
		m.workers[w.ID] = w
	}
	return nil
}

// InsertRaw stores row as-is, bypassing the open-shift check. Used to seed
// corrupted or imported data.
func (m *MemStore) InsertRaw(row ShiftRecordRow) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if row.ID == "" {
		row.ID = uuid.New().String()
	}
	if _, exists := m.records[row.ID]; !exists {
		m.order = append(m.order, row.ID)
	}
	m.records[row.ID] = cloneRow(row)
}

// Close is a no-op for the in-memory store
func (m *MemStore) Close() error {
	return nil
}

func cloneRow(row ShiftRecordRow) ShiftRecordRow {
	if row.SafetyChecklist != nil {
		checklist := make(map[string]bool, len(row.SafetyChecklist))
		for k, v := range row.SafetyChecklist {
			checklist[k] = v
		}
		row.SafetyChecklist = checklist
	}
	if row.StartLocation != nil {
		loc := *row.StartLocation
		row.StartLocation = &loc
	}
	if row.EndLocation != nil {
		loc := *row.EndLocation
		row.EndLocation = &loc
	}
	return row
}

package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fieldcrew/shiftlog/pkg/db"
)

// GetShiftRecord retrieves a shift record by id
func (d *DB) GetShiftRecord(ctx context.Context, id string) (*db.ShiftRecordRow, error) {
	var rec shiftRecord
	err := d.gdb.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to get shift record %s: %w", id, db.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shift record %s: %w", id, err)
	}
	return toRow(&rec)
}

// QueryShiftRecords retrieves the shift records matching filter, in no particular order
func (d *DB) QueryShiftRecords(ctx context.Context, filter db.ShiftFilter) ([]db.ShiftRecordRow, error) {
	q := d.gdb.WithContext(ctx).Model(&shiftRecord{})
	if filter.WorkerID != "" {
		q = q.Where("worker_id = ?", filter.WorkerID)
	}
	if filter.OpenOnly {
		q = q.Where("end_time IS NULL")
	}
	if filter.DateFrom != "" {
		q = q.Where("date >= ?", filter.DateFrom)
	}
	if filter.DateTo != "" {
		q = q.Where("date <= ?", filter.DateTo)
	}

	var recs []shiftRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to query shift records: %w", err)
	}

	rows := make([]db.ShiftRecordRow, 0, len(recs))
	for i := range recs {
		row, err := toRow(&recs[i])
		if err != nil {
			return nil, err
		}
		rows = append(rows, *row)
	}
	return rows, nil
}

// CreateShiftRecord inserts a new shift record and returns its generated id
func (d *DB) CreateShiftRecord(ctx context.Context, row *db.ShiftRecordRow) (string, error) {
	rec, err := fromRow(row)
	if err != nil {
		return "", fmt.Errorf("failed to insert shift record: %w", err)
	}
	rec.ID = uuid.New().String()

	if err := d.gdb.WithContext(ctx).Create(rec).Error; err != nil {
		return "", fmt.Errorf("failed to insert shift record: %w", mapWriteError(err))
	}
	return rec.ID, nil
}

// UpdateShiftRecord applies patch to an open shift record
func (d *DB) UpdateShiftRecord(ctx context.Context, id string, patch db.ShiftPatch) error {
	updates, err := patchUpdates(patch)
	if err != nil {
		return fmt.Errorf("failed to update shift record %s: %w", id, err)
	}
	if len(updates) == 0 {
		return d.checkOpen(ctx, id)
	}

	q := d.gdb.WithContext(ctx).Model(&shiftRecord{}).Where("id = ? AND end_time IS NULL", id)
	if patch.IfPausedAt != nil {
		pausedAt, err := parseTimestamp(*patch.IfPausedAt)
		if err != nil {
			return fmt.Errorf("failed to update shift record %s: %w", id, err)
		}
		if pausedAt == nil {
			q = q.Where("paused_at IS NULL")
		} else {
			q = q.Where("paused_at = ?", *pausedAt)
		}
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update shift record %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		if err := d.checkOpen(ctx, id); err != nil {
			return err
		}
		if patch.IfPausedAt != nil {
			return fmt.Errorf("failed to update shift record %s: %w", id, db.ErrStaleRecord)
		}
	}
	return nil
}

// DeleteShiftRecord removes a shift record
func (d *DB) DeleteShiftRecord(ctx context.Context, id string) error {
	res := d.gdb.WithContext(ctx).Where("id = ?", id).Delete(&shiftRecord{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete shift record %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("failed to delete shift record %s: %w", id, db.ErrNotFound)
	}
	return nil
}

func (d *DB) checkOpen(ctx context.Context, id string) error {
	var rec shiftRecord
	err := d.gdb.WithContext(ctx).Select("id", "end_time").Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to update shift record %s: %w", id, db.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check shift record %s: %w", id, err)
	}
	if rec.EndTime != nil {
		return fmt.Errorf("failed to update shift record %s: %w", id, db.ErrRecordClosed)
	}
	return nil
}

// mapWriteError turns a violation of the open-shift index into db.ErrOpenSessionExists.
// Ids are random, so the only unique constraint an insert can realistically hit is that index.
func mapWriteError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed: shift_record.worker_id") {
		return db.ErrOpenSessionExists
	}
	return err
}

func patchUpdates(patch db.ShiftPatch) (map[string]any, error) {
	updates := make(map[string]any)

	if patch.EndTime != nil {
		end, err := parseTimestamp(*patch.EndTime)
		if err != nil {
			return nil, err
		}
		updates["end_time"] = end
	}
	if patch.SafetyChecklist != nil {
		checklist, err := encodeChecklist(patch.SafetyChecklist)
		if err != nil {
			return nil, err
		}
		updates["safety_checklist"] = checklist
	}
	if patch.EndLocation != nil {
		updates["end_lat"] = patch.EndLocation.Lat
		updates["end_lng"] = patch.EndLocation.Lng
	}
	if patch.EndPhotoRef != nil {
		updates["end_photo_ref"] = *patch.EndPhotoRef
	}
	if patch.TotalPausedMs != nil {
		updates["total_paused_ms"] = *patch.TotalPausedMs
	}
	if patch.IsPaused != nil {
		updates["is_paused"] = *patch.IsPaused
	}
	if patch.PausedAt != nil {
		pausedAt, err := parseTimestamp(*patch.PausedAt)
		if err != nil {
			return nil, err
		}
		updates["paused_at"] = pausedAt
	}
	if patch.Notes != nil {
		updates["notes"] = *patch.Notes
	}

	return updates, nil
}

func fromRow(row *db.ShiftRecordRow) (*shiftRecord, error) {
	start, err := parseTimestamp(row.StartTime)
	if err != nil {
		return nil, err
	}
	if start == nil {
		return nil, fmt.Errorf("start time is required")
	}
	end, err := parseTimestamp(row.EndTime)
	if err != nil {
		return nil, err
	}
	pausedAt, err := parseTimestamp(row.PausedAt)
	if err != nil {
		return nil, err
	}
	checklist, err := encodeChecklist(row.SafetyChecklist)
	if err != nil {
		return nil, err
	}

	rec := &shiftRecord{
		ID:              row.ID,
		WorkerID:        row.WorkerID,
		ScheduleID:      row.ScheduleID,
		LocationName:    row.LocationName,
		Address:         row.Address,
		Date:            row.Date,
		StartTime:       *start,
		EndTime:         end,
		SafetyChecklist: checklist,
		StartPhotoRef:   row.StartPhotoRef,
		EndPhotoRef:     row.EndPhotoRef,
		TotalPausedMs:   row.TotalPausedMs,
		IsPaused:        row.IsPaused,
		PausedAt:        pausedAt,
		Notes:           row.Notes,
	}
	if row.StartLocation != nil {
		rec.StartLat, rec.StartLng = &row.StartLocation.Lat, &row.StartLocation.Lng
	}
	if row.EndLocation != nil {
		rec.EndLat, rec.EndLng = &row.EndLocation.Lat, &row.EndLocation.Lng
	}
	return rec, nil
}

func toRow(rec *shiftRecord) (*db.ShiftRecordRow, error) {
	row := &db.ShiftRecordRow{
		ID:            rec.ID,
		WorkerID:      rec.WorkerID,
		ScheduleID:    rec.ScheduleID,
		LocationName:  rec.LocationName,
		Address:       rec.Address,
		Date:          rec.Date,
		StartTime:     formatTimestamp(&rec.StartTime),
		EndTime:       formatTimestamp(rec.EndTime),
		StartPhotoRef: rec.StartPhotoRef,
		EndPhotoRef:   rec.EndPhotoRef,
		TotalPausedMs: rec.TotalPausedMs,
		IsPaused:      rec.IsPaused,
		PausedAt:      formatTimestamp(rec.PausedAt),
		Notes:         rec.Notes,
	}
	if rec.StartLat != nil && rec.StartLng != nil {
		row.StartLocation = &db.GeoPoint{Lat: *rec.StartLat, Lng: *rec.StartLng}
	}
	if rec.EndLat != nil && rec.EndLng != nil {
		row.EndLocation = &db.GeoPoint{Lat: *rec.EndLat, Lng: *rec.EndLng}
	}
	if rec.SafetyChecklist != "" {
		if err := json.Unmarshal([]byte(rec.SafetyChecklist), &row.SafetyChecklist); err != nil {
			return nil, fmt.Errorf("failed to decode safety checklist of %s: %w", rec.ID, err)
		}
	}
	return row, nil
}

func parseTimestamp(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	t = t.UTC()
	return &t, nil
}

func formatTimestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func encodeChecklist(checklist map[string]bool) (string, error) {
	if checklist == nil {
		return "", nil
	}
	data, err := json.Marshal(checklist)
	if err != nil {
		return "", fmt.Errorf("failed to encode safety checklist: %w", err)
	}
	return string(data), nil
}

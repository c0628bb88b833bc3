package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fieldcrew/shiftlog/pkg/db"
)

const (
	openShiftIndex  = "shift_record_one_open_per_worker"
	uniqueViolation = "23505"
	shiftColumns    = `id, worker_id, schedule_id, location_name, address, date, start_time, end_time,
		safety_checklist, start_lat, start_lng, end_lat, end_lng, start_photo_ref, end_photo_ref,
		total_paused_ms, is_paused, paused_at, notes`
)

type rowScanner interface {
	Scan(dest ...any) error
}

// GetShiftRecord retrieves a shift record by id
func (d *DB) GetShiftRecord(ctx context.Context, id string) (*db.ShiftRecordRow, error) {
	row := d.pool.QueryRow(ctx, `SELECT `+shiftColumns+` FROM shift_record WHERE id = $1`, id)

	r, err := scanShiftRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to get shift record %s: %w", id, db.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shift record %s: %w", id, err)
	}
	return r, nil
}

// QueryShiftRecords retrieves the shift records matching filter, in no particular order
func (d *DB) QueryShiftRecords(ctx context.Context, filter db.ShiftFilter) ([]db.ShiftRecordRow, error) {
	where, args := buildShiftWhere(filter)

	rows, err := d.pool.Query(ctx, `SELECT `+shiftColumns+` FROM shift_record`+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query shift records: %w", err)
	}
	defer rows.Close()

	var records []db.ShiftRecordRow
	for rows.Next() {
		r, err := scanShiftRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shift record: %w", err)
		}
		records = append(records, *r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shift records: %w", err)
	}

	return records, nil
}

// CreateShiftRecord inserts a new shift record and returns its generated id
func (d *DB) CreateShiftRecord(ctx context.Context, r *db.ShiftRecordRow) (string, error) {
	start, err := parseTimestamp(r.StartTime)
	if err != nil || start == nil {
		return "", fmt.Errorf("failed to insert shift record: invalid start time %q", r.StartTime)
	}
	end, err := parseTimestamp(r.EndTime)
	if err != nil {
		return "", fmt.Errorf("failed to insert shift record: %w", err)
	}
	pausedAt, err := parseTimestamp(r.PausedAt)
	if err != nil {
		return "", fmt.Errorf("failed to insert shift record: %w", err)
	}
	checklist, err := encodeChecklist(r.SafetyChecklist)
	if err != nil {
		return "", fmt.Errorf("failed to insert shift record: %w", err)
	}

	startLat, startLng := splitPoint(r.StartLocation)
	endLat, endLng := splitPoint(r.EndLocation)

	id := uuid.New().String()
	_, err = d.pool.Exec(ctx, `
		INSERT INTO shift_record (`+shiftColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`, id, r.WorkerID, r.ScheduleID, r.LocationName, r.Address, r.Date, *start, end,
		checklist, startLat, startLng, endLat, endLng, r.StartPhotoRef, r.EndPhotoRef,
		r.TotalPausedMs, r.IsPaused, pausedAt, r.Notes)
	if err != nil {
		return "", fmt.Errorf("failed to insert shift record: %w", mapWriteError(err))
	}

	return id, nil
}

// UpdateShiftRecord applies patch to an open shift record
func (d *DB) UpdateShiftRecord(ctx context.Context, id string, patch db.ShiftPatch) error {
	sql, args, err := buildShiftUpdate(id, patch)
	if err != nil {
		return fmt.Errorf("failed to update shift record %s: %w", id, err)
	}

	if sql == "" {
		return d.checkOpen(ctx, id)
	}

	tag, err := d.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to update shift record %s: %w", id, mapWriteError(err))
	}
	if tag.RowsAffected() == 0 {
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
	tag, err := d.pool.Exec(ctx, `DELETE FROM shift_record WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete shift record %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete shift record %s: %w", id, db.ErrNotFound)
	}
	return nil
}

// checkOpen explains why an update touched no rows
func (d *DB) checkOpen(ctx context.Context, id string) error {
	var open bool
	err := d.pool.QueryRow(ctx, `SELECT end_time IS NULL FROM shift_record WHERE id = $1`, id).Scan(&open)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to update shift record %s: %w", id, db.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check shift record %s: %w", id, err)
	}
	if !open {
		return fmt.Errorf("failed to update shift record %s: %w", id, db.ErrRecordClosed)
	}
	return nil
}

func scanShiftRecord(s rowScanner) (*db.ShiftRecordRow, error) {
	var r db.ShiftRecordRow
	var start time.Time
	var end, pausedAt *time.Time
	var checklist []byte
	var startLat, startLng, endLat, endLng *float64

	err := s.Scan(&r.ID, &r.WorkerID, &r.ScheduleID, &r.LocationName, &r.Address, &r.Date,
		&start, &end, &checklist, &startLat, &startLng, &endLat, &endLng,
		&r.StartPhotoRef, &r.EndPhotoRef, &r.TotalPausedMs, &r.IsPaused, &pausedAt, &r.Notes)
	if err != nil {
		return nil, err
	}

	r.StartTime = formatTimestamp(&start)
	r.EndTime = formatTimestamp(end)
	r.PausedAt = formatTimestamp(pausedAt)
	r.StartLocation = joinPoint(startLat, startLng)
	r.EndLocation = joinPoint(endLat, endLng)

	if len(checklist) > 0 {
		if err := json.Unmarshal(checklist, &r.SafetyChecklist); err != nil {
			return nil, fmt.Errorf("failed to decode safety checklist of %s: %w", r.ID, err)
		}
	}

	return &r, nil
}

// buildShiftWhere renders filter as a WHERE clause with positional arguments
func buildShiftWhere(filter db.ShiftFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.WorkerID != "" {
		add("worker_id = $%d", filter.WorkerID)
	}
	if filter.OpenOnly {
		conds = append(conds, "end_time IS NULL")
	}
	if filter.DateFrom != "" {
		add("date >= $%d", filter.DateFrom)
	}
	if filter.DateTo != "" {
		add("date <= $%d", filter.DateTo)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// buildShiftUpdate renders patch as an UPDATE restricted to open records.
// An empty patch returns an empty statement.
func buildShiftUpdate(id string, patch db.ShiftPatch) (string, []any, error) {
	var sets []string
	var args []any
	set := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.EndTime != nil {
		end, err := parseTimestamp(*patch.EndTime)
		if err != nil {
			return "", nil, err
		}
		set("end_time", end)
	}
	if patch.SafetyChecklist != nil {
		checklist, err := encodeChecklist(patch.SafetyChecklist)
		if err != nil {
			return "", nil, err
		}
		set("safety_checklist", checklist)
	}
	if patch.EndLocation != nil {
		set("end_lat", patch.EndLocation.Lat)
		set("end_lng", patch.EndLocation.Lng)
	}
	if patch.EndPhotoRef != nil {
		set("end_photo_ref", *patch.EndPhotoRef)
	}
	if patch.TotalPausedMs != nil {
		set("total_paused_ms", *patch.TotalPausedMs)
	}
	if patch.IsPaused != nil {
		set("is_paused", *patch.IsPaused)
	}
	if patch.PausedAt != nil {
		pausedAt, err := parseTimestamp(*patch.PausedAt)
		if err != nil {
			return "", nil, err
		}
		set("paused_at", pausedAt)
	}
	if patch.Notes != nil {
		set("notes", *patch.Notes)
	}

	if len(sets) == 0 {
		return "", nil, nil
	}

	args = append(args, id)
	where := fmt.Sprintf("id = $%d AND end_time IS NULL", len(args))
	if patch.IfPausedAt != nil {
		pausedAt, err := parseTimestamp(*patch.IfPausedAt)
		if err != nil {
			return "", nil, err
		}
		if pausedAt == nil {
			where += " AND paused_at IS NULL"
		} else {
			args = append(args, *pausedAt)
			where += fmt.Sprintf(" AND paused_at = $%d", len(args))
		}
	}

	sql := fmt.Sprintf("UPDATE shift_record SET %s WHERE %s", strings.Join(sets, ", "), where)
	return sql, args, nil
}

// mapWriteError turns a violation of the open-shift index into db.ErrOpenSessionExists
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == openShiftIndex {
		return db.ErrOpenSessionExists
	}
	return err
}

// parseTimestamp parses a boundary timestamp; "" is NULL
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

func encodeChecklist(checklist map[string]bool) ([]byte, error) {
	if checklist == nil {
		return nil, nil
	}
	data, err := json.Marshal(checklist)
	if err != nil {
		return nil, fmt.Errorf("failed to encode safety checklist: %w", err)
	}
	return data, nil
}

func splitPoint(p *db.GeoPoint) (*float64, *float64) {
	if p == nil {
		return nil, nil
	}
	lat, lng := p.Lat, p.Lng
	return &lat, &lng
}

func joinPoint(lat, lng *float64) *db.GeoPoint {
	if lat == nil || lng == nil {
		return nil
	}
	return &db.GeoPoint{Lat: *lat, Lng: *lng}
}

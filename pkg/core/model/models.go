package model

import (
	"fmt"
	"time"

	"github.com/fieldcrew/shiftlog/pkg/db"
)

type Role string

const (
	RoleAdmin       Role = "admin"
	RoleFieldWorker Role = "field-worker"
)

func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleFieldWorker
}

// DateLayout is the layout of the local calendar date stored on each shift
const DateLayout = "2006-01-02"

// Worker represents a member of staff as seen by the core
type Worker struct {
	ID    string
	Name  string
	Role  Role
	Email string
	Phone string
}

func (w Worker) IsAdmin() bool {
	return w.Role == RoleAdmin
}

// GeoLocation is a best-effort position captured at check-in or check-out
type GeoLocation struct {
	Lat float64 `validate:"gte=-90,lte=90"`
	Lng float64 `validate:"gte=-180,lte=180"`
}

func (g GeoLocation) String() string {
	return fmt.Sprintf("%.5f, %.5f", g.Lat, g.Lng)
}

// ShiftRecord is one continuous, possibly paused, work period for one worker at one site
type ShiftRecord struct {
	ID              string
	WorkerID        string
	ScheduleID      string
	LocationName    string
	Address         string
	Date            string // YYYY-MM-DD
	StartTime       time.Time
	EndTime         *time.Time // nil while the shift is open
	SafetyChecklist SafetyChecklist
	StartLocation   *GeoLocation
	EndLocation     *GeoLocation
	StartPhotoRef   string
	EndPhotoRef     string
	TotalPausedMs   int64
	IsPaused        bool
	PausedAt        *time.Time
	Notes           string
}

// IsOpen reports whether the shift has not been closed
func (r *ShiftRecord) IsOpen() bool {
	return r.EndTime == nil
}

// TotalPaused returns the accumulated pause time as a duration
func (r *ShiftRecord) TotalPaused() time.Duration {
	return time.Duration(r.TotalPausedMs) * time.Millisecond
}

// FormatTimestamp renders a timestamp the way it crosses the store boundary
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTimestamp parses a boundary timestamp
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// FromRow converts a stored row into a ShiftRecord.
// Stored checklists from older versions are migrated; an absent checklist is empty.
func FromRow(row *db.ShiftRecordRow) (*ShiftRecord, error) {
	start, err := ParseTimestamp(row.StartTime)
	if err != nil {
		return nil, fmt.Errorf("record %s start_time: %w", row.ID, err)
	}

	rec := &ShiftRecord{
		ID:              row.ID,
		WorkerID:        row.WorkerID,
		ScheduleID:      row.ScheduleID,
		LocationName:    row.LocationName,
		Address:         row.Address,
		Date:            row.Date,
		StartTime:       start,
		SafetyChecklist: MigrateChecklist(row.SafetyChecklist),
		StartLocation:   geoFromPoint(row.StartLocation),
		EndLocation:     geoFromPoint(row.EndLocation),
		StartPhotoRef:   row.StartPhotoRef,
		EndPhotoRef:     row.EndPhotoRef,
		TotalPausedMs:   row.TotalPausedMs,
		IsPaused:        row.IsPaused,
		Notes:           row.Notes,
	}

	if row.EndTime != "" {
		end, err := ParseTimestamp(row.EndTime)
		if err != nil {
			return nil, fmt.Errorf("record %s end_time: %w", row.ID, err)
		}
		rec.EndTime = &end
	}

	if row.PausedAt != "" {
		pausedAt, err := ParseTimestamp(row.PausedAt)
		if err != nil {
			return nil, fmt.Errorf("record %s paused_at: %w", row.ID, err)
		}
		rec.PausedAt = &pausedAt
	}

	return rec, nil
}

// FromRows converts rows, skipping any that cannot be parsed. The skipped row ids are
// returned so callers can log them.
func FromRows(rows []db.ShiftRecordRow) ([]ShiftRecord, []string) {
	records := make([]ShiftRecord, 0, len(rows))
	var skipped []string
	for i := range rows {
		rec, err := FromRow(&rows[i])
		if err != nil {
			skipped = append(skipped, rows[i].ID)
			continue
		}
		records = append(records, *rec)
	}
	return records, skipped
}

// ToRow converts a ShiftRecord into its stored form
func ToRow(rec *ShiftRecord) *db.ShiftRecordRow {
	row := &db.ShiftRecordRow{
		ID:              rec.ID,
		WorkerID:        rec.WorkerID,
		ScheduleID:      rec.ScheduleID,
		LocationName:    rec.LocationName,
		Address:         rec.Address,
		Date:            rec.Date,
		StartTime:       FormatTimestamp(rec.StartTime),
		SafetyChecklist: rec.SafetyChecklist.Map(),
		StartLocation:   PointFromGeo(rec.StartLocation),
		EndLocation:     PointFromGeo(rec.EndLocation),
		StartPhotoRef:   rec.StartPhotoRef,
		EndPhotoRef:     rec.EndPhotoRef,
		TotalPausedMs:   rec.TotalPausedMs,
		IsPaused:        rec.IsPaused,
		Notes:           rec.Notes,
	}
	if rec.EndTime != nil {
		row.EndTime = FormatTimestamp(*rec.EndTime)
	}
	if rec.PausedAt != nil {
		row.PausedAt = FormatTimestamp(*rec.PausedAt)
	}
	return row
}

// WorkerFromRow converts a stored worker profile
func WorkerFromRow(row *db.WorkerRow) Worker {
	return Worker{
		ID:    row.ID,
		Name:  row.Name,
		Role:  Role(row.Role),
		Email: row.Email,
		Phone: row.Phone,
	}
}

func geoFromPoint(p *db.GeoPoint) *GeoLocation {
	if p == nil {
		return nil
	}
	return &GeoLocation{Lat: p.Lat, Lng: p.Lng}
}

// PointFromGeo converts a location to its stored form
func PointFromGeo(g *GeoLocation) *db.GeoPoint {
	if g == nil {
		return nil
	}
	return &db.GeoPoint{Lat: g.Lat, Lng: g.Lng}
}

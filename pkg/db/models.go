package db

import "time"

// GeoPoint is a latitude/longitude pair as persisted by the stores
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ShiftRecordRow represents a shift record as it crosses the store boundary.
// Timestamps are ISO-8601 strings (RFC 3339, UTC); an empty EndTime marks an open shift.
type ShiftRecordRow struct {
	ID              string
	WorkerID        string
	ScheduleID      string
	LocationName    string
	Address         string
	Date            string // YYYY-MM-DD, local date the shift began
	StartTime       string
	EndTime         string
	SafetyChecklist map[string]bool
	StartLocation   *GeoPoint
	EndLocation     *GeoPoint
	StartPhotoRef   string
	EndPhotoRef     string
	TotalPausedMs   int64
	IsPaused        bool
	PausedAt        string
	Notes           string
}

// IsOpen reports whether the shift has not been closed yet
func (r *ShiftRecordRow) IsOpen() bool {
	return r.EndTime == ""
}

// ShiftPatch lists the fields an update may change. Nil fields are left untouched.
// PausedAt set to "" clears the pause timestamp. A non-nil IfPausedAt makes the update
// conditional on the stored pause timestamp ("" meaning not paused); a mismatch is ErrStaleRecord.
type ShiftPatch struct {
	EndTime         *string
	SafetyChecklist map[string]bool
	EndLocation     *GeoPoint
	EndPhotoRef     *string
	TotalPausedMs   *int64
	IsPaused        *bool
	PausedAt        *string
	Notes           *string

	IfPausedAt *string
}

// Matches reports whether row satisfies the patch's precondition. Timestamps are compared
// as instants so differently formatted offsets still match.
func (p ShiftPatch) Matches(row *ShiftRecordRow) bool {
	if p.IfPausedAt == nil || *p.IfPausedAt == row.PausedAt {
		return true
	}
	want, err := time.Parse(time.RFC3339Nano, *p.IfPausedAt)
	if err != nil {
		return false
	}
	got, err := time.Parse(time.RFC3339Nano, row.PausedAt)
	return err == nil && want.Equal(got)
}

// Apply copies the patched fields onto row
func (p ShiftPatch) Apply(row *ShiftRecordRow) {
	if p.EndTime != nil {
		row.EndTime = *p.EndTime
	}
	if p.SafetyChecklist != nil {
		checklist := make(map[string]bool, len(p.SafetyChecklist))
		for k, v := range p.SafetyChecklist {
			checklist[k] = v
		}
		row.SafetyChecklist = checklist
	}
	if p.EndLocation != nil {
		loc := *p.EndLocation
		row.EndLocation = &loc
	}
	if p.EndPhotoRef != nil {
		row.EndPhotoRef = *p.EndPhotoRef
	}
	if p.TotalPausedMs != nil {
		row.TotalPausedMs = *p.TotalPausedMs
	}
	if p.IsPaused != nil {
		row.IsPaused = *p.IsPaused
	}
	if p.PausedAt != nil {
		row.PausedAt = *p.PausedAt
	}
	if p.Notes != nil {
		row.Notes = *p.Notes
	}
}

// ShiftFilter restricts a shift record query. Zero-valued fields do not filter.
// DateFrom and DateTo are inclusive YYYY-MM-DD bounds on the stored date.
type ShiftFilter struct {
	WorkerID string
	OpenOnly bool
	DateFrom string
	DateTo   string
}

// Matches reports whether row satisfies the filter
func (f ShiftFilter) Matches(row *ShiftRecordRow) bool {
	if f.WorkerID != "" && row.WorkerID != f.WorkerID {
		return false
	}
	if f.OpenOnly && !row.IsOpen() {
		return false
	}
	if f.DateFrom != "" && row.Date < f.DateFrom {
		return false
	}
	if f.DateTo != "" && row.Date > f.DateTo {
		return false
	}
	return true
}

// WorkerRow represents a worker profile record
type WorkerRow struct {
	ID    string
	Name  string
	Role  string
	Email string
	Phone string
}

package postgres

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldcrew/shiftlog/pkg/db"
)

// fakeRow implements rowScanner by copying fixed values into the destinations
type fakeRow struct {
	values []any
}

func (f fakeRow) Scan(dest ...any) error {
	if len(dest) != len(f.values) {
		return fmt.Errorf("scan: got %d destinations, want %d", len(dest), len(f.values))
	}
	for i, v := range f.values {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *time.Time:
			*d = v.(time.Time)
		case **time.Time:
			*d, _ = v.(*time.Time)
		case *[]byte:
			*d, _ = v.([]byte)
		case **float64:
			*d, _ = v.(*float64)
		case *int64:
			*d = v.(int64)
		case *bool:
			*d = v.(bool)
		default:
			return fmt.Errorf("scan: unsupported destination %T", dest[i])
		}
	}
	return nil
}

func float(f float64) *float64 {
	return &f
}

func TestBuildShiftWhere(t *testing.T) {
	tests := []struct {
		name     string
		filter   db.ShiftFilter
		expected string
		args     []any
	}{
		{name: "no filter", filter: db.ShiftFilter{}, expected: "", args: nil},
		{
			name:     "open shifts for worker",
			filter:   db.ShiftFilter{WorkerID: "w1", OpenOnly: true},
			expected: " WHERE worker_id = $1 AND end_time IS NULL",
			args:     []any{"w1"},
		},
		{
			name:     "date range",
			filter:   db.ShiftFilter{DateFrom: "2025-03-01", DateTo: "2025-03-31"},
			expected: " WHERE date >= $1 AND date <= $2",
			args:     []any{"2025-03-01", "2025-03-31"},
		},
		{
			name:     "everything",
			filter:   db.ShiftFilter{WorkerID: "w1", OpenOnly: true, DateFrom: "2025-03-01", DateTo: "2025-03-31"},
			expected: " WHERE worker_id = $1 AND end_time IS NULL AND date >= $2 AND date <= $3",
			args:     []any{"w1", "2025-03-01", "2025-03-31"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := buildShiftWhere(tt.filter)
			assert.Equal(t, tt.expected, where)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestBuildShiftUpdate(t *testing.T) {
	end := "2025-03-10T10:00:00Z"
	cleared := ""
	paused := false
	total := int64(900000)

	sql, args, err := buildShiftUpdate("shift-1", db.ShiftPatch{
		EndTime:       &end,
		IsPaused:      &paused,
		PausedAt:      &cleared,
		TotalPausedMs: &total,
		EndLocation:   &db.GeoPoint{Lat: 1.5, Lng: 2.5},
	})
	require.NoError(t, err)

	assert.Equal(t,
		"UPDATE shift_record SET end_time = $1, end_lat = $2, end_lng = $3, total_paused_ms = $4, is_paused = $5, paused_at = $6 WHERE id = $7 AND end_time IS NULL",
		sql)
	require.Len(t, args, 7)

	endTime, ok := args[0].(*time.Time)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC), *endTime)
	assert.Equal(t, 1.5, args[1])
	assert.Equal(t, int64(900000), args[3])
	assert.Nil(t, args[5].(*time.Time), "empty paused_at clears the column")
	assert.Equal(t, "shift-1", args[6])
}

func TestBuildShiftUpdate_PausePrecondition(t *testing.T) {
	total := int64(600000)
	pausedAt := "2025-03-10T09:00:00Z"

	sql, args, err := buildShiftUpdate("shift-1", db.ShiftPatch{TotalPausedMs: &total, IfPausedAt: &pausedAt})
	require.NoError(t, err)
	assert.Equal(t,
		"UPDATE shift_record SET total_paused_ms = $1 WHERE id = $2 AND end_time IS NULL AND paused_at = $3",
		sql)
	require.Len(t, args, 3)
	assert.Equal(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), args[2])

	notPaused := ""
	sql, args, err = buildShiftUpdate("shift-1", db.ShiftPatch{TotalPausedMs: &total, IfPausedAt: &notPaused})
	require.NoError(t, err)
	assert.Equal(t,
		"UPDATE shift_record SET total_paused_ms = $1 WHERE id = $2 AND end_time IS NULL AND paused_at IS NULL",
		sql)
	assert.Len(t, args, 2)
}

func TestBuildShiftUpdate_Checklist(t *testing.T) {
	sql, args, err := buildShiftUpdate("shift-1", db.ShiftPatch{SafetyChecklist: map[string]bool{"helmet": true}})
	require.NoError(t, err)

	assert.Equal(t, "UPDATE shift_record SET safety_checklist = $1 WHERE id = $2 AND end_time IS NULL", sql)
	assert.JSONEq(t, `{"helmet": true}`, string(args[0].([]byte)))
}

func TestBuildShiftUpdate_EmptyPatch(t *testing.T) {
	sql, args, err := buildShiftUpdate("shift-1", db.ShiftPatch{})
	require.NoError(t, err)
	assert.Empty(t, sql)
	assert.Nil(t, args)
}

func TestBuildShiftUpdate_BadTimestamp(t *testing.T) {
	bad := "yesterday"
	_, _, err := buildShiftUpdate("shift-1", db.ShiftPatch{EndTime: &bad})
	assert.Error(t, err)
}

func TestMapWriteError(t *testing.T) {
	openViolation := &pgconn.PgError{Code: "23505", ConstraintName: openShiftIndex}
	assert.ErrorIs(t, mapWriteError(openViolation), db.ErrOpenSessionExists)
	assert.ErrorIs(t, mapWriteError(fmt.Errorf("exec: %w", openViolation)), db.ErrOpenSessionExists)

	pkeyViolation := &pgconn.PgError{Code: "23505", ConstraintName: "shift_record_pkey"}
	assert.Equal(t, pkeyViolation, mapWriteError(pkeyViolation))

	other := errors.New("connection reset")
	assert.Equal(t, other, mapWriteError(other))
}

func TestScanShiftRecord(t *testing.T) {
	start := time.Date(2025, 3, 10, 8, 0, 0, 0, time.FixedZone("IST", 3600))
	end := start.Add(2 * time.Hour)

	row, err := scanShiftRecord(fakeRow{values: []any{
		"shift-1", "w1", "", "Warehouse", "1 Dock Road", "2025-03-10",
		start, &end, []byte(`{"helmet":true,"gloves":false}`),
		float(53.3), float(-6.2), nil, nil,
		"file:///start.jpg", "", int64(60000), false, nil, "notes",
	}})
	require.NoError(t, err)

	assert.Equal(t, "2025-03-10T07:00:00Z", row.StartTime)
	assert.Equal(t, "2025-03-10T09:00:00Z", row.EndTime)
	assert.Empty(t, row.PausedAt)
	assert.Equal(t, map[string]bool{"helmet": true, "gloves": false}, row.SafetyChecklist)
	assert.Equal(t, &db.GeoPoint{Lat: 53.3, Lng: -6.2}, row.StartLocation)
	assert.Nil(t, row.EndLocation)
	assert.Equal(t, int64(60000), row.TotalPausedMs)
	assert.False(t, row.IsOpen())
}

func TestScanShiftRecord_NullChecklist(t *testing.T) {
	row, err := scanShiftRecord(fakeRow{values: []any{
		"shift-1", "w1", "", "Warehouse", "", "",
		time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC), nil, nil,
		nil, nil, nil, nil,
		"", "", int64(0), false, nil, "",
	}})
	require.NoError(t, err)

	assert.Nil(t, row.SafetyChecklist)
	assert.True(t, row.IsOpen())
}

func TestPendingMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/002_b.sql":   {Data: []byte("SELECT 2")},
		"migrations/001_a.sql":   {Data: []byte("SELECT 1")},
		"migrations/003_c.sql":   {Data: []byte("SELECT 3")},
		"migrations/README.md":   {Data: []byte("docs")},
		"migrations/old/004.sql": {Data: []byte("SELECT 4")},
	}

	pending, err := pendingMigrations(fsys, map[string]bool{"002_b.sql": true})
	require.NoError(t, err)
	assert.Equal(t, []string{"001_a.sql", "003_c.sql"}, pending)
}

func TestEmbeddedMigrationsCreateOpenShiftIndex(t *testing.T) {
	pending, err := pendingMigrations(migrationsFS, nil)
	require.NoError(t, err)
	require.NotEmpty(t, pending)

	var found bool
	for _, name := range pending {
		content, err := migrationsFS.ReadFile("migrations/" + name)
		require.NoError(t, err)
		if strings.Contains(string(content), "UNIQUE INDEX IF NOT EXISTS "+openShiftIndex) {
			found = true
		}
	}
	assert.True(t, found, "expected a migration creating %s", openShiftIndex)
}

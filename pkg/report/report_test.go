package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/fieldcrew/shiftlog/pkg/core/attendance"
)

func sampleRows() []attendance.ReportRow {
	return []attendance.ReportRow{
		{
			ShiftID: "s2", WorkerID: "w1", Employee: "Ada Lovelace", Date: "2025-03-11",
			Location: "Warehouse", CheckIn: "08:00", CheckOut: "In progress",
			ShiftWindow: "08:00 - ...", SafetySummary: "No checks",
			StartCoords: "53.30000, -6.20000", EndCoords: "N/A", Status: attendance.StatusOnDuty,
		},
		{
			ShiftID: "s1", WorkerID: "w1", Employee: "Ada Lovelace", Date: "2025-03-10",
			Location: "Dock 4", CheckIn: "08:00", CheckOut: "10:00",
			ShiftWindow: "08:00 - 10:00", SafetySummary: "1 checked: Helmet",
			StartCoords: "N/A", EndCoords: "N/A", Status: attendance.StatusFinalized, WorkedHours: 2,
		},
	}
}

func sampleSummary() attendance.Summary {
	return attendance.Summary{
		TotalHours:      2,
		Shifts:          2,
		OpenShifts:      1,
		UniqueLocations: 2,
		ByDay:           []attendance.DayHours{{Day: "2025-03-10", Hours: 2}},
		ByWorker:        []attendance.WorkerHours{{WorkerID: "w1", Shifts: 1, Hours: 2}},
	}
}

func TestExportValues(t *testing.T) {
	values := ExportValues(sampleRows())

	require.Len(t, values, 3)
	assert.Equal(t, []string{"Employee", "Date", "Location", "Check-In", "Check-Out"}, values[0])
	assert.Equal(t, []string{"Ada Lovelace", "2025-03-11", "Warehouse", "08:00", "In progress"}, values[1])
}

func TestDetailValues(t *testing.T) {
	values := DetailValues(sampleRows())

	require.Len(t, values, 3)
	assert.Len(t, values[0], len(DetailHeader))
	assert.Equal(t, "2.00", values[2][len(values[2])-1])
	assert.Equal(t, "Finalized", values[2][len(values[2])-2])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleRows(), sampleSummary()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{ShiftsSheet, SummarySheet}, f.GetSheetList())

	rows, err := f.GetRows(ShiftsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ExportHeader, rows[0])
	assert.Equal(t, "In progress", rows[1][4])
	assert.Equal(t, "10:00", rows[2][4])

	total, err := f.GetCellValue(SummarySheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "2.00", total)
}

func TestWriteXLSX_NoRows(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, nil, attendance.Summary{}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(ShiftsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer
	PrintTable(&buf, sampleRows())

	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "Employee")
	assert.Contains(t, lines[2], "08:00 - ...")
	assert.Contains(t, lines[2], "-")
	assert.Contains(t, lines[3], "2.00")
}

func TestPrintTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	PrintTable(&buf, nil)
	assert.Equal(t, "No shifts recorded for this period.\n", buf.String())
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, sampleSummary())

	out := buf.String()
	assert.Contains(t, out, "Total Hours: 2.00")
	assert.Contains(t, out, "Shifts:      2 (1 open)")
	assert.Contains(t, out, "2025-03-10")
	assert.Contains(t, out, strings.Repeat("█", 4))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 20))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}

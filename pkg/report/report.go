// Package report renders attendance report rows as a spreadsheet or a console table.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/fieldcrew/shiftlog/pkg/core/attendance"
)

const (
	ShiftsSheet  = "Shifts"
	SummarySheet = "Summary"
)

// ExportHeader is the column set of an exported shift table
var ExportHeader = []string{"Employee", "Date", "Location", "Check-In", "Check-Out"}

// DetailHeader extends ExportHeader with the columns shown in the full report
var DetailHeader = append(append([]string{}, ExportHeader...), "Window", "Safety", "Start", "End", "Status", "Hours")

// ExportValues returns the header followed by one line per row, using the export columns
func ExportValues(rows []attendance.ReportRow) [][]string {
	values := make([][]string, 0, len(rows)+1)
	values = append(values, ExportHeader)
	for _, r := range rows {
		values = append(values, []string{r.Employee, r.Date, r.Location, r.CheckIn, r.CheckOut})
	}
	return values
}

// DetailValues returns the header followed by one line per row, using every column
func DetailValues(rows []attendance.ReportRow) [][]string {
	values := make([][]string, 0, len(rows)+1)
	values = append(values, DetailHeader)
	for _, r := range rows {
		values = append(values, []string{
			r.Employee, r.Date, r.Location, r.CheckIn, r.CheckOut,
			r.ShiftWindow, r.SafetySummary, r.StartCoords, r.EndCoords, r.Status,
			formatHours(r.WorkedHours),
		})
	}
	return values
}

// WriteXLSX writes a workbook with a Shifts sheet (export columns) and a Summary sheet
func WriteXLSX(w io.Writer, rows []attendance.ReportRow, summary attendance.Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ShiftsSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeSheet(f, ShiftsSheet, ExportValues(rows), headerStyle); err != nil {
		return err
	}
	if err := f.SetColWidth(ShiftsSheet, "A", "E", 18); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if err := writeSheet(f, SummarySheet, summaryValues(summary), headerStyle); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, values [][]string, headerStyle int) error {
	for i, line := range values {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := make([]interface{}, len(line))
		for j, v := range line {
			row[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}

	if len(values) > 0 && len(values[0]) > 0 {
		last, err := excelize.CoordinatesToCellName(len(values[0]), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return fmt.Errorf("failed to style %s header: %w", sheet, err)
		}
	}
	return nil
}

func summaryValues(s attendance.Summary) [][]string {
	values := [][]string{
		{"Metric", "Value"},
		{"Total hours", formatHours(s.TotalHours)},
		{"Shifts", strconv.Itoa(s.Shifts)},
		{"Open shifts", strconv.Itoa(s.OpenShifts)},
		{"Locations", strconv.Itoa(s.UniqueLocations)},
		{},
		{"Day", "Hours"},
	}
	for _, d := range s.ByDay {
		values = append(values, []string{d.Day, formatHours(d.Hours)})
	}
	values = append(values, []string{}, []string{"Worker", "Shifts", "Hours"})
	for _, wh := range s.ByWorker {
		values = append(values, []string{wh.WorkerID, strconv.Itoa(wh.Shifts), formatHours(wh.Hours)})
	}
	return values
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', 2, 64)
}

// Package attendance turns shift records into reporting views: hour totals, hours per
// day and per worker, distinct sites, checklist compliance and flat report rows.
//
// Functions here never modify their inputs. Records with a missing date or checklist are
// tolerated; they are left out of the views that need those fields.
package attendance

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fieldcrew/shiftlog/pkg/core/clock"
	"github.com/fieldcrew/shiftlog/pkg/core/model"
)

// AllWorkers is the FilterByWorker sentinel for "no filtering". Callers must have checked
// the admin role before passing it.
const AllWorkers = "all"

const (
	StatusFinalized = "Finalized"
	StatusOnDuty    = "On Duty"
	StatusPaused    = "Paused"
)

type DayHours struct {
	Day   string // YYYY-MM-DD
	Hours float64
}

type WorkerHours struct {
	WorkerID string
	Shifts   int
	Hours    float64
}

type WeekdayTotal struct {
	Weekday time.Weekday
	Hours   float64
}

type ComplianceSummary struct {
	CheckedCount  int
	CheckedLabels []string
}

// ReportRow is one shift flattened for a tabular renderer
type ReportRow struct {
	ShiftID       string
	WorkerID      string
	Employee      string
	Date          string
	Location      string
	CheckIn       string
	CheckOut      string
	ShiftWindow   string
	SafetySummary string
	StartCoords   string
	EndCoords     string
	Status        string
	WorkedHours   float64
}

// Summary bundles the views used by the report command
type Summary struct {
	TotalHours      float64
	Shifts          int
	OpenShifts      int
	UniqueLocations int
	ByDay           []DayHours
	ByWorker        []WorkerHours
}

// WorkedDuration is the final worked time of a closed record. Open records return zero.
func WorkedDuration(rec *model.ShiftRecord) time.Duration {
	if rec.IsOpen() {
		return 0
	}
	return clock.Elapsed(clock.Input{
		Start:       rec.StartTime,
		End:         rec.EndTime,
		TotalPaused: rec.TotalPaused(),
	}).Worked
}

// TotalWorkedHours sums worked time over closed records. Open records are excluded, not estimated.
func TotalWorkedHours(records []model.ShiftRecord) float64 {
	var total time.Duration
	for i := range records {
		total += WorkedDuration(&records[i])
	}
	return total.Hours()
}

// HoursByDay groups closed records by their stored date and returns one entry per day in
// ascending order. Only the most recent window days are kept; window <= 0 keeps all.
func HoursByDay(records []model.ShiftRecord, window int) []DayHours {
	totals := make(map[string]time.Duration)
	for i := range records {
		rec := &records[i]
		if rec.IsOpen() || !validDate(rec.Date) {
			continue
		}
		totals[rec.Date] += WorkedDuration(rec)
	}

	days := make([]string, 0, len(totals))
	for day := range totals {
		days = append(days, day)
	}
	// YYYY-MM-DD sorts chronologically as a string
	sort.Strings(days)

	if window > 0 && len(days) > window {
		days = days[len(days)-window:]
	}

	result := make([]DayHours, len(days))
	for i, day := range days {
		result[i] = DayHours{Day: day, Hours: totals[day].Hours()}
	}
	return result
}

// HoursByWorker totals closed shifts per worker, ordered by worker id
func HoursByWorker(records []model.ShiftRecord) []WorkerHours {
	type acc struct {
		shifts int
		worked time.Duration
	}
	totals := make(map[string]*acc)
	for i := range records {
		rec := &records[i]
		if rec.IsOpen() {
			continue
		}
		a, ok := totals[rec.WorkerID]
		if !ok {
			a = &acc{}
			totals[rec.WorkerID] = a
		}
		a.shifts++
		a.worked += WorkedDuration(rec)
	}

	result := make([]WorkerHours, 0, len(totals))
	for id, a := range totals {
		result = append(result, WorkerHours{WorkerID: id, Shifts: a.shifts, Hours: a.worked.Hours()})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].WorkerID < result[j].WorkerID
	})
	return result
}

// WeekdayHours totals closed shifts whose date falls in the seven days starting at
// weekStart, by weekday, for the days that have any
func WeekdayHours(records []model.ShiftRecord, weekStart time.Time) []WeekdayTotal {
	start := time.Date(weekStart.Year(), weekStart.Month(), weekStart.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)

	totals := make(map[time.Weekday]time.Duration)
	var order []time.Weekday
	for i := range records {
		rec := &records[i]
		if rec.IsOpen() {
			continue
		}
		day, err := time.Parse(model.DateLayout, rec.Date)
		if err != nil || day.Before(start) || !day.Before(end) {
			continue
		}
		if _, seen := totals[day.Weekday()]; !seen {
			order = append(order, day.Weekday())
		}
		totals[day.Weekday()] += WorkedDuration(rec)
	}

	// week order relative to weekStart, so a Monday start lists Sunday last
	sort.Slice(order, func(i, j int) bool {
		return weekOffset(order[i], start.Weekday()) < weekOffset(order[j], start.Weekday())
	})

	result := make([]WeekdayTotal, len(order))
	for i, wd := range order {
		result[i] = WeekdayTotal{Weekday: wd, Hours: totals[wd].Hours()}
	}
	return result
}

// UniqueLocationCount counts distinct location names by exact match
func UniqueLocationCount(records []model.ShiftRecord) int {
	seen := make(map[string]struct{})
	for i := range records {
		seen[records[i].LocationName] = struct{}{}
	}
	return len(seen)
}

// SafetyComplianceSummary lists the checked flags of a record with their labels
func SafetyComplianceSummary(rec *model.ShiftRecord) ComplianceSummary {
	if rec == nil {
		return ComplianceSummary{}
	}
	keys := rec.SafetyChecklist.CheckedKeys()
	summary := ComplianceSummary{CheckedCount: len(keys)}
	for _, key := range keys {
		summary.CheckedLabels = append(summary.CheckedLabels, model.ChecklistLabel(key))
	}
	return summary
}

// FilterByWorker returns the records owned by workerID, or a copy of all records for AllWorkers
func FilterByWorker(records []model.ShiftRecord, workerID string) []model.ShiftRecord {
	if workerID == AllWorkers {
		return append([]model.ShiftRecord(nil), records...)
	}
	var out []model.ShiftRecord
	for i := range records {
		if records[i].WorkerID == workerID {
			out = append(out, records[i])
		}
	}
	return out
}

// SortForDisplay returns a copy of records newest first. Equal start times are ordered
// by id and otherwise keep their input order.
func SortForDisplay(records []model.ShiftRecord) []model.ShiftRecord {
	out := append([]model.ShiftRecord(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.After(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ReportRows flattens records for export, newest first. Times are rendered in loc.
func ReportRows(records []model.ShiftRecord, loc *time.Location) []ReportRow {
	if loc == nil {
		loc = time.Local
	}

	sorted := SortForDisplay(records)
	rows := make([]ReportRow, len(sorted))
	for i := range sorted {
		rec := &sorted[i]

		checkIn := rec.StartTime.In(loc).Format("15:04")
		checkOut := "In progress"
		windowEnd := "..."
		if rec.EndTime != nil {
			checkOut = rec.EndTime.In(loc).Format("15:04")
			windowEnd = checkOut
		}

		status := StatusFinalized
		if rec.IsOpen() {
			status = StatusOnDuty
			if rec.IsPaused {
				status = StatusPaused
			}
		}

		rows[i] = ReportRow{
			ShiftID:       rec.ID,
			WorkerID:      rec.WorkerID,
			Employee:      shortID(rec.WorkerID),
			Date:          rec.Date,
			Location:      rec.LocationName,
			CheckIn:       checkIn,
			CheckOut:      checkOut,
			ShiftWindow:   checkIn + " - " + windowEnd,
			SafetySummary: formatCompliance(SafetyComplianceSummary(rec)),
			StartCoords:   formatCoords(rec.StartLocation),
			EndCoords:     formatCoords(rec.EndLocation),
			Status:        status,
			WorkedHours:   WorkedDuration(rec).Hours(),
		}
	}
	return rows
}

// ResolveNames fills the Employee column from a worker id to name lookup.
// Workers missing from names keep the shortened id.
func ResolveNames(rows []ReportRow, names map[string]string) {
	for i := range rows {
		if name, ok := names[rows[i].WorkerID]; ok && name != "" {
			rows[i].Employee = name
		}
	}
}

// Summarize computes the headline figures shown above a report
func Summarize(records []model.ShiftRecord, window int) Summary {
	open := 0
	for i := range records {
		if records[i].IsOpen() {
			open++
		}
	}
	return Summary{
		TotalHours:      TotalWorkedHours(records),
		Shifts:          len(records),
		OpenShifts:      open,
		UniqueLocations: UniqueLocationCount(records),
		ByDay:           HoursByDay(records, window),
		ByWorker:        HoursByWorker(records),
	}
}

func validDate(s string) bool {
	if s == "" {
		return false
	}
	_, err := time.Parse(model.DateLayout, s)
	return err == nil
}

func weekOffset(day, start time.Weekday) int {
	return (int(day) - int(start) + 7) % 7
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatCompliance(s ComplianceSummary) string {
	if s.CheckedCount == 0 {
		return "No checks"
	}
	return fmt.Sprintf("%d checked: %s", s.CheckedCount, strings.Join(s.CheckedLabels, ", "))
}

func formatCoords(g *model.GeoLocation) string {
	if g == nil {
		return "N/A"
	}
	return g.String()
}

package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fieldcrew/shiftlog/pkg/core/attendance"
)

// PrintSummary writes the headline figures and the hours-by-day chart data
func PrintSummary(w io.Writer, s attendance.Summary) {
	fmt.Fprintf(w, "Total Hours: %.2f\n", s.TotalHours)
	fmt.Fprintf(w, "Shifts:      %d (%d open)\n", s.Shifts, s.OpenShifts)
	fmt.Fprintf(w, "Locations:   %d\n\n", s.UniqueLocations)

	if len(s.ByDay) > 0 {
		fmt.Fprintf(w, "Hours by day:\n")
		for _, d := range s.ByDay {
			fmt.Fprintf(w, "  %-10s  %6.2f  %s\n", d.Day, d.Hours, bar(d.Hours))
		}
		fmt.Fprintln(w)
	}
}

// PrintTable writes rows as a fixed-width table
func PrintTable(w io.Writer, rows []attendance.ReportRow) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No shifts recorded for this period.")
		return
	}

	fmt.Fprintf(w, "%-20s  %-10s  %-20s  %-15s  %-8s  %6s  %s\n",
		"Employee", "Date", "Location", "Window", "Status", "Hours", "Safety")
	fmt.Fprintln(w, "--------------------  ----------  --------------------  ---------------  --------  ------  ------------------------------")

	for _, r := range rows {
		hours := fmt.Sprintf("%.2f", r.WorkedHours)
		if r.Status != attendance.StatusFinalized {
			hours = "-"
		}
		fmt.Fprintf(w, "%-20s  %-10s  %-20s  %-15s  %-8s  %6s  %s\n",
			truncate(r.Employee, 20), r.Date, truncate(r.Location, 20),
			r.ShiftWindow, r.Status, hours, r.SafetySummary)
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

// one block per half hour
func bar(hours float64) string {
	n := int(hours * 2)
	if n < 0 {
		n = 0
	}
	return strings.Repeat("█", n)
}

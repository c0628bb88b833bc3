package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fieldcrew/shiftlog/pkg/clients/sheetsclient"
	"github.com/fieldcrew/shiftlog/pkg/core/attendance"
	"github.com/fieldcrew/shiftlog/pkg/core/model"
	"github.com/fieldcrew/shiftlog/pkg/db"
	"github.com/fieldcrew/shiftlog/pkg/identity"
	"github.com/fieldcrew/shiftlog/pkg/report"
)

const defaultReportDays = 7

// reportScope is the worker and date range a report covers
type reportScope struct {
	WorkerID string
	From     time.Time
	To       time.Time
}

// reportData is everything the report views are built from
type reportData struct {
	Scope   reportScope
	Records []model.ShiftRecord
	Rows    []attendance.ReportRow
	Summary attendance.Summary
}

func addScopeFlags(cmd *cobra.Command) {
	cmd.Flags().String("worker", "", "Worker id to report on, or 'all' (admins only for other workers)")
	cmd.Flags().String("from", "", "First day of the report (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "Last day of the report (YYYY-MM-DD, defaults to today)")
	cmd.Flags().Int("days", defaultReportDays, "Number of days to cover when --from is not given")
}

// resolveScope reads the scope flags. Reporting on anyone but yourself needs the admin role.
func resolveScope(app *AppContext, cmd *cobra.Command) (reportScope, error) {
	w, err := app.Identity.Current()
	if err != nil {
		return reportScope{}, err
	}

	scope := reportScope{WorkerID: w.ID}
	if target, _ := cmd.Flags().GetString("worker"); target != "" && target != w.ID {
		if err := identity.RequireAdmin(w); err != nil {
			return reportScope{}, err
		}
		scope.WorkerID = target
	}

	toStr, _ := cmd.Flags().GetString("to")
	fromStr, _ := cmd.Flags().GetString("from")
	days, _ := cmd.Flags().GetInt("days")

	now := app.Now().In(app.Location)
	scope.To = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, app.Location)
	if toStr != "" {
		if scope.To, err = parseDay(toStr, app.Location); err != nil {
			return reportScope{}, err
		}
	}

	if fromStr != "" {
		if scope.From, err = parseDay(fromStr, app.Location); err != nil {
			return reportScope{}, err
		}
	} else {
		if days < 1 {
			return reportScope{}, fmt.Errorf("--days must be at least 1")
		}
		scope.From = scope.To.AddDate(0, 0, -(days - 1))
	}

	if scope.From.After(scope.To) {
		return reportScope{}, fmt.Errorf("--from %s is after --to %s",
			scope.From.Format(model.DateLayout), scope.To.Format(model.DateLayout))
	}
	return scope, nil
}

// loadReport fetches the records in scope and builds the rows and summary
func loadReport(app *AppContext, scope reportScope) (*reportData, error) {
	filter := db.ShiftFilter{
		DateFrom: scope.From.Format(model.DateLayout),
		DateTo:   scope.To.Format(model.DateLayout),
	}
	if scope.WorkerID != attendance.AllWorkers {
		filter.WorkerID = scope.WorkerID
	}

	records, err := loadRecords(app, filter)
	if err != nil {
		return nil, err
	}
	records = attendance.FilterByWorker(records, scope.WorkerID)

	rows := attendance.ReportRows(records, app.Location)
	names, err := identity.WorkerNames(app.Ctx, app.Database)
	if err != nil {
		app.Logger.Warn("Failed to load worker names, showing ids", zap.Error(err))
	} else {
		attendance.ResolveNames(rows, names)
	}

	app.Logger.Debug("Report loaded",
		zap.String("worker_id", scope.WorkerID),
		zap.String("from", filter.DateFrom),
		zap.String("to", filter.DateTo),
		zap.Int("records", len(records)))

	return &reportData{
		Scope:   scope,
		Records: records,
		Rows:    rows,
		Summary: attendance.Summarize(records, app.Cfg.Report.HoursByDayWindow),
	}, nil
}

// ReportCmd creates the report command
func ReportCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show worked hours and shifts for a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := resolveScope(app, cmd)
			if err != nil {
				return err
			}

			data, err := loadReport(app, scope)
			if err != nil {
				return err
			}

			fmt.Fprintf(app.Out, "\nAttendance %s to %s\n\n",
				scope.From.Format(model.DateLayout), scope.To.Format(model.DateLayout))
			report.PrintSummary(app.Out, data.Summary)

			if weekdays := attendance.WeekdayHours(data.Records, weekStart(app)); len(weekdays) > 0 {
				fmt.Fprintln(app.Out, "This week:")
				for _, d := range weekdays {
					fmt.Fprintf(app.Out, "  %-9s  %6.2f\n", d.Weekday, d.Hours)
				}
				fmt.Fprintln(app.Out)
			}

			report.PrintTable(app.Out, data.Rows)
			fmt.Fprintln(app.Out)
			return nil
		},
	}

	addScopeFlags(cmd)
	return cmd
}

// weekStart returns the Monday of the current week in the configured timezone
func weekStart(app *AppContext) time.Time {
	now := app.Now().In(app.Location)
	offset := (int(now.Weekday()) + 6) % 7
	return time.Date(now.Year(), now.Month(), now.Day()-offset, 0, 0, 0, 0, app.Location)
}

// RecordsCmd creates the records command
func RecordsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "List every worker's shifts with per-worker totals (admins only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := app.Identity.Current()
			if err != nil {
				return err
			}
			if err := identity.RequireAdmin(w); err != nil {
				return err
			}

			// records always covers the whole team; --worker narrows it
			if !cmd.Flags().Changed("worker") {
				if err := cmd.Flags().Set("worker", attendance.AllWorkers); err != nil {
					return err
				}
			}
			scope, err := resolveScope(app, cmd)
			if err != nil {
				return err
			}

			data, err := loadReport(app, scope)
			if err != nil {
				return err
			}

			names, err := identity.WorkerNames(app.Ctx, app.Database)
			if err != nil {
				app.Logger.Warn("Failed to load worker names, showing ids", zap.Error(err))
			}

			fmt.Fprintf(app.Out, "\nTeam shifts %s to %s\n\n",
				scope.From.Format(model.DateLayout), scope.To.Format(model.DateLayout))
			if len(data.Summary.ByWorker) > 0 {
				fmt.Fprintf(app.Out, "%-24s  %6s  %8s\n", "Worker", "Shifts", "Hours")
				for _, wh := range data.Summary.ByWorker {
					name := wh.WorkerID
					if n, ok := names[wh.WorkerID]; ok && n != "" {
						name = n
					}
					fmt.Fprintf(app.Out, "%-24s  %6d  %8.2f\n", name, wh.Shifts, wh.Hours)
				}
				fmt.Fprintln(app.Out)
			}

			report.PrintTable(app.Out, data.Rows)
			fmt.Fprintln(app.Out)
			return nil
		},
	}

	addScopeFlags(cmd)
	return cmd
}

// ExportCmd creates the export command
func ExportCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <file.xlsx>",
		Short: "Export shifts for a date range to an Excel workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := resolveScope(app, cmd)
			if err != nil {
				return err
			}

			data, err := loadReport(app, scope)
			if err != nil {
				return err
			}

			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", args[0], err)
			}
			defer f.Close()

			if err := report.WriteXLSX(f, data.Rows, data.Summary); err != nil {
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write %s: %w", args[0], err)
			}

			app.Logger.Info("Report exported", zap.String("path", args[0]), zap.Int("rows", len(data.Rows)))
			fmt.Fprintf(app.Out, "✓ Exported %d shifts to %s\n", len(data.Rows), args[0])
			return nil
		},
	}

	addScopeFlags(cmd)
	return cmd
}

// PublishCmd creates the publish command
func PublishCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish shifts for a date range to the configured Google Sheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.SheetsClient == nil || app.Cfg.Report.SheetID == "" {
				return fmt.Errorf("no report sheet configured (set report.sheetID)")
			}

			scope, err := resolveScope(app, cmd)
			if err != nil {
				return err
			}

			data, err := loadReport(app, scope)
			if err != nil {
				return err
			}

			tab, _ := cmd.Flags().GetString("tab")
			if tab == "" {
				tab = app.Cfg.Report.SheetTab
			}

			written, err := app.SheetsClient.PublishReport(app.Ctx, app.Cfg.Report.SheetID, tab, &sheetsclient.PublishedReport{
				From:   scope.From,
				To:     scope.To,
				Values: report.ExportValues(data.Rows),
			})
			if err != nil {
				return fmt.Errorf("failed to publish report: %w", err)
			}

			app.Logger.Info("Report published", zap.String("tab", written), zap.Int("rows", len(data.Rows)))
			fmt.Fprintf(app.Out, "✓ Published %d shifts to tab %q\n", len(data.Rows), written)
			return nil
		},
	}

	addScopeFlags(cmd)
	cmd.Flags().String("tab", "", "Sheet tab to write (defaults to report.sheetTab, then a tab named after the dates)")
	return cmd
}

package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fieldcrew/shiftlog/pkg/core/attendance"
	"github.com/fieldcrew/shiftlog/pkg/core/clock"
	"github.com/fieldcrew/shiftlog/pkg/core/model"
	"github.com/fieldcrew/shiftlog/pkg/core/sessions"
	"github.com/fieldcrew/shiftlog/pkg/tui"
)

// CheckInCmd creates the checkIn command
func CheckInCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkIn <site>",
		Short: "Start a shift at a site (a configured site id or name, or any free-text location)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := app.Identity.Current()
			if err != nil {
				return err
			}

			address, _ := cmd.Flags().GetString("address")
			checks, _ := cmd.Flags().GetStringSlice("check")
			photo, _ := cmd.Flags().GetString("photo")
			notes, _ := cmd.Flags().GetString("notes")

			in := sessions.StartShiftInput{
				WorkerID:     w.ID,
				LocationName: args[0],
				Address:      address,
				Notes:        notes,
			}

			// A configured site supplies the canonical name and address
			if site, ok := app.Cfg.FindSite(args[0]); ok {
				in.LocationName = site.Name
				in.ScheduleID = site.ID
				if in.Address == "" {
					in.Address = site.Address
				}
			}

			if in.Checklist, err = parseChecks(checks); err != nil {
				return err
			}
			if in.Location, err = geoFromFlags(cmd); err != nil {
				return err
			}
			if in.Evidence, err = readPhoto(photo); err != nil {
				return err
			}

			rec, err := app.Manager.StartShift(app.Ctx, in)
			if err != nil {
				return logUnexpected(app, err)
			}

			fmt.Fprintf(app.Out, "\n✓ Checked in at %s\n\n", rec.LocationName)
			fmt.Fprintf(app.Out, "Shift ID:  %s\n", rec.ID)
			if rec.Address != "" {
				fmt.Fprintf(app.Out, "Address:   %s\n", rec.Address)
			}
			fmt.Fprintf(app.Out, "Started:   %s\n", rec.StartTime.In(app.Location).Format("Mon 02 Jan 15:04"))
			fmt.Fprintf(app.Out, "Checklist: %d of %d checked\n\n",
				len(rec.SafetyChecklist.CheckedKeys()), len(model.ChecklistKeys(model.CurrentChecklistVersion)))
			return nil
		},
	}

	cmd.Flags().String("address", "", "Site address (defaults to the configured site address)")
	cmd.Flags().StringSlice("check", nil, "Checklist items confirmed at check-in, e.g. --check helmet,gloves or --check boots=false")
	cmd.Flags().String("photo", "", "Path to a check-in photo")
	cmd.Flags().String("notes", "", "Notes for the shift")
	addGeoFlags(cmd)

	return cmd
}

// CheckOutCmd creates the checkOut command
func CheckOutCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkOut",
		Short: "End the current shift",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, session, err := activeShift(app, "checkOut")
			if err != nil {
				return logUnexpected(app, err)
			}

			photo, _ := cmd.Flags().GetString("photo")
			notes, _ := cmd.Flags().GetString("notes")

			in := sessions.EndShiftInput{Notes: notes}
			if in.Location, err = geoFromFlags(cmd); err != nil {
				return err
			}
			if in.Evidence, err = readPhoto(photo); err != nil {
				return err
			}

			return endShift(app, session.ID, in)
		},
	}

	cmd.Flags().String("photo", "", "Path to a check-out photo")
	cmd.Flags().String("notes", "", "Closing notes, replacing any notes already on the shift")
	addGeoFlags(cmd)

	return cmd
}

func endShift(app *AppContext, id string, in sessions.EndShiftInput) error {
	if err := app.Manager.EndShift(app.Ctx, id, in); err != nil {
		return logUnexpected(app, err)
	}

	rec, err := app.Manager.Shift(app.Ctx, id)
	if err != nil {
		return logUnexpected(app, err)
	}

	fmt.Fprintf(app.Out, "\n✓ Checked out of %s\n\n", rec.LocationName)
	fmt.Fprintf(app.Out, "Shift:  %s - %s\n",
		rec.StartTime.In(app.Location).Format("15:04"), rec.EndTime.In(app.Location).Format("15:04"))
	if rec.TotalPausedMs > 0 {
		fmt.Fprintf(app.Out, "Paused: %s\n", clock.FormatHMS(rec.TotalPaused()))
	}
	fmt.Fprintf(app.Out, "Worked: %s\n\n", clock.FormatHMS(attendance.WorkedDuration(rec)))
	return nil
}

// PauseCmd creates the pause command
func PauseCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause the current shift, or resume it if already paused",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, session, err := activeShift(app, "togglePause")
			if err != nil {
				return logUnexpected(app, err)
			}

			rec, err := app.Manager.TogglePause(app.Ctx, session)
			if err != nil {
				return logUnexpected(app, err)
			}

			if rec.IsPaused {
				fmt.Fprintf(app.Out, "⏸  Shift paused at %s\n", rec.PausedAt.In(app.Location).Format("15:04"))
			} else {
				fmt.Fprintf(app.Out, "▶  Shift resumed (paused %s in total)\n", clock.FormatHMS(rec.TotalPaused()))
			}
			return nil
		},
	}
}

// ChecklistCmd creates the checklist command
func ChecklistCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "checklist [key] [true|false]",
		Short: "Show the safety checklist of the current shift, or set one item",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, session, err := activeShift(app, "updateChecklist")
			if err != nil {
				return logUnexpected(app, err)
			}

			if len(args) > 0 {
				item := args[0]
				if len(args) == 2 {
					item += "=" + args[1]
				}
				values, err := parseChecks([]string{item})
				if err != nil {
					return err
				}
				key := strings.TrimSpace(args[0])
				if session, err = app.Manager.UpdateChecklist(app.Ctx, session, key, values[key]); err != nil {
					return logUnexpected(app, err)
				}
			}

			printChecklist(app, session.SafetyChecklist)
			return nil
		},
	}
}

func printChecklist(app *AppContext, checklist model.SafetyChecklist) {
	section := ""
	for _, key := range model.ChecklistKeys(model.CurrentChecklistVersion) {
		if s := model.ChecklistSection(key); s != section {
			section = s
			fmt.Fprintf(app.Out, "\n%s\n", section)
		}
		mark := " "
		if checklist.Get(key) {
			mark = "x"
		}
		fmt.Fprintf(app.Out, "  [%s] %-24s %s\n", mark, key, model.ChecklistLabel(key))
	}
	fmt.Fprintln(app.Out)
}

// NotesCmd creates the notes command
func NotesCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "notes <text>",
		Short: "Replace the notes on the current shift",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, session, err := activeShift(app, "updateNotes")
			if err != nil {
				return logUnexpected(app, err)
			}

			if _, err := app.Manager.UpdateNotes(app.Ctx, session, strings.Join(args, " ")); err != nil {
				return logUnexpected(app, err)
			}

			fmt.Fprintln(app.Out, "✓ Notes saved")
			return nil
		},
	}
}

// StatusCmd creates the status command
func StatusCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current shift and its elapsed time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := app.Identity.Current()
			if err != nil {
				return err
			}

			session, err := app.Manager.GetActiveSession(app.Ctx, w.ID)
			if err != nil {
				return logUnexpected(app, err)
			}
			if session == nil {
				fmt.Fprintf(app.Out, "%s is not on duty.\n", w.Name)
				return nil
			}

			watch, _ := cmd.Flags().GetBool("watch")
			if !watch {
				printStatus(app, session)
				return nil
			}

			final, err := tui.RunStatus(app.Ctx, session, app.Now, app.Manager.TogglePause, app.Location)
			if err != nil {
				return err
			}
			if !final.EndRequested() {
				return nil
			}

			photo, _ := cmd.Flags().GetString("photo")
			in := sessions.EndShiftInput{}
			if in.Evidence, err = readPhoto(photo); err != nil {
				return err
			}
			return endShift(app, final.Session().ID, in)
		},
	}

	cmd.Flags().BoolP("watch", "w", false, "Show a live timer with pause and end keys")
	cmd.Flags().String("photo", "", "Check-out photo used if the shift is ended from the live view")

	return cmd
}

func printStatus(app *AppContext, session *model.ShiftRecord) {
	elapsed := clock.Elapsed(clock.Input{
		Start:       session.StartTime,
		End:         session.EndTime,
		Now:         app.Now(),
		TotalPaused: session.TotalPaused(),
		IsPaused:    session.IsPaused,
		PausedAt:    session.PausedAt,
	})

	state := attendance.StatusOnDuty
	if session.IsPaused {
		state = attendance.StatusPaused
	}

	fmt.Fprintf(app.Out, "\n%s at %s\n\n", state, session.LocationName)
	fmt.Fprintf(app.Out, "Started: %s\n", session.StartTime.In(app.Location).Format("Mon 02 Jan 15:04"))
	fmt.Fprintf(app.Out, "Worked:  %s\n", clock.FormatHMS(elapsed.Worked))
	if session.Notes != "" {
		fmt.Fprintf(app.Out, "Notes:   %s\n", session.Notes)
	}
	if elapsed.Anomaly {
		fmt.Fprintln(app.Out, "⚠️  Device clock looks wrong, elapsed time was clamped")
	}
	fmt.Fprintln(app.Out)
}

package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/fieldcrew/shiftlog/pkg/core/services"
	"github.com/fieldcrew/shiftlog/pkg/identity"
)

// ListWorkersCmd creates the listWorkers command
func ListWorkersCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "listWorkers",
		Short: "List all known workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := app.Identity.Current()
			if err != nil {
				return err
			}
			// Contact details are only shown to admins
			showContact := w.IsAdmin()

			workers, err := app.Database.GetWorkers(app.Ctx)
			if err != nil {
				return logUnexpected(app, fmt.Errorf("failed to list workers: %w", err))
			}
			sort.Slice(workers, func(i, j int) bool { return workers[i].ID < workers[j].ID })

			fmt.Fprintf(app.Out, "\nFound %d workers:\n\n", len(workers))
			for _, wr := range workers {
				fmt.Fprintf(app.Out, "- %s (%s) - %s", wr.Name, wr.ID, wr.Role)
				if showContact {
					if wr.Email != "" {
						fmt.Fprintf(app.Out, " - %s", wr.Email)
					}
					if wr.Phone != "" {
						fmt.Fprintf(app.Out, " - %s", wr.Phone)
					}
				}
				fmt.Fprintln(app.Out)
			}
			fmt.Fprintln(app.Out)
			return nil
		},
	}
}

// ImportWorkersCmd creates the importWorkers command
func ImportWorkersCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "importWorkers",
		Short: "Import worker profiles from the roster sheet (admins only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := app.Identity.Current()
			if err != nil {
				return err
			}
			if err := identity.RequireAdmin(w); err != nil {
				return err
			}
			if app.Cfg.Roster == nil || app.RosterSheet == nil {
				return fmt.Errorf("no roster sheet configured (set roster.sheetID)")
			}

			result, err := services.ImportRoster(app.Ctx, app.RosterSheet, app.Database, app.Logger,
				app.Cfg.Roster.SheetID, app.Cfg.Roster.Tab)
			if err != nil {
				return logUnexpected(app, err)
			}

			fmt.Fprintf(app.Out, "\n✓ Imported %d workers\n", len(result.Imported))
			if len(result.Inactive) > 0 {
				fmt.Fprintf(app.Out, "  %d inactive, not imported\n", len(result.Inactive))
			}
			if len(result.Skipped) > 0 {
				fmt.Fprintf(app.Out, "  %d rows skipped:\n", len(result.Skipped))
				for _, s := range result.Skipped {
					id := s.ID
					if id == "" {
						id = "(no id)"
					}
					fmt.Fprintf(app.Out, "    %s: %s\n", id, s.Reason)
				}
			}
			fmt.Fprintln(app.Out)
			return nil
		},
	}
}

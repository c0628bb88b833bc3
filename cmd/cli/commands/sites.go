package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// SitesCmd creates the sites command
func SitesCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sites [date]",
		Short: "List the sites scheduled for a day (defaults to today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day := app.Now().In(app.Location)
			if len(args) > 0 {
				var err error
				if day, err = parseDay(args[0], app.Location); err != nil {
					return err
				}
			}

			sites, err := app.Cfg.ScheduledSites(day)
			if err != nil {
				return err
			}

			fmt.Fprintf(app.Out, "\nSites scheduled for %s:\n\n", day.Format("Monday 02 Jan 2006"))
			if len(sites) == 0 {
				fmt.Fprintln(app.Out, "  None")
			}
			for _, s := range sites {
				key := s.Name
				if s.ID != "" {
					key = s.ID
				}
				fmt.Fprintf(app.Out, "  %-12s %s", key, s.Name)
				if s.Address != "" {
					fmt.Fprintf(app.Out, " (%s)", s.Address)
				}
				fmt.Fprintln(app.Out)
			}
			fmt.Fprintln(app.Out)
			return nil
		},
	}
}

package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fieldcrew/shiftlog/pkg/core/model"
	"github.com/fieldcrew/shiftlog/pkg/core/shifterr"
	"github.com/fieldcrew/shiftlog/pkg/db"
	"github.com/fieldcrew/shiftlog/pkg/evidence"
)

// activeShift returns the current worker and their open shift. A worker with no open shift
// gets an InvalidState error.
func activeShift(app *AppContext, op string) (model.Worker, *model.ShiftRecord, error) {
	w, err := app.Identity.Current()
	if err != nil {
		return model.Worker{}, nil, err
	}

	session, err := app.Manager.GetActiveSession(app.Ctx, w.ID)
	if err != nil {
		return w, nil, err
	}
	if session == nil {
		return w, nil, shifterr.New(shifterr.InvalidState, op, "you are not on duty")
	}
	return w, session, nil
}

// readPhoto loads the evidence file named by the --photo flag, if any
func readPhoto(path string) (*evidence.Upload, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read photo %s: %w", path, err)
	}
	return &evidence.Upload{Data: data, NameHint: filepath.Base(path)}, nil
}

func addGeoFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("lat", 0, "Latitude of the current position")
	cmd.Flags().Float64("lng", 0, "Longitude of the current position")
}

// geoFromFlags returns nil when neither --lat nor --lng was given
func geoFromFlags(cmd *cobra.Command) (*model.GeoLocation, error) {
	latSet := cmd.Flags().Changed("lat")
	lngSet := cmd.Flags().Changed("lng")
	if !latSet && !lngSet {
		return nil, nil
	}
	if latSet != lngSet {
		return nil, fmt.Errorf("--lat and --lng must be given together")
	}
	lat, _ := cmd.Flags().GetFloat64("lat")
	lng, _ := cmd.Flags().GetFloat64("lng")
	return &model.GeoLocation{Lat: lat, Lng: lng}, nil
}

// parseChecks turns "helmet" or "helmet=false" items into checklist values
func parseChecks(items []string) (map[string]bool, error) {
	if len(items) == 0 {
		return nil, nil
	}
	values := make(map[string]bool, len(items))
	for _, item := range items {
		key, raw, hasValue := strings.Cut(item, "=")
		key = strings.TrimSpace(key)
		value := true
		if hasValue {
			v, err := strconv.ParseBool(strings.TrimSpace(raw))
			if err != nil {
				return nil, fmt.Errorf("invalid value for %s: %q", key, raw)
			}
			value = v
		}
		values[key] = value
	}
	return values, nil
}

// parseDay parses a YYYY-MM-DD argument in loc
func parseDay(s string, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation(model.DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", s, err)
	}
	return day, nil
}

// loadRecords queries the store and converts the rows, logging any that cannot be read
func loadRecords(app *AppContext, filter db.ShiftFilter) ([]model.ShiftRecord, error) {
	rows, err := app.Database.QueryShiftRecords(app.Ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query shift records: %w", err)
	}

	records, skipped := model.FromRows(rows)
	if len(skipped) > 0 {
		app.Logger.Warn("Skipping unreadable shift records", zap.Strings("record_ids", skipped))
	}
	return records, nil
}

// logUnexpected logs errors the user cannot act on and passes every error through
func logUnexpected(app *AppContext, err error) error {
	if err == nil {
		return nil
	}
	if shifterr.UserFacing(err) {
		return err
	}
	app.Logger.Error("Command failed", zap.Error(err), zap.String("kind", string(shifterr.KindOf(err))))
	return err
}

// Package services holds the multi-step use cases that sit above the session manager.
package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fieldcrew/shiftlog/pkg/core/model"
	"github.com/fieldcrew/shiftlog/pkg/db"
	"github.com/fieldcrew/shiftlog/pkg/sheetssql"
)

// RosterRow is one line of the worker roster tab
type RosterRow struct {
	ID     string `ssql_header:"id"`
	Name   string `ssql_header:"name"`
	Role   string `ssql_header:"role"`
	Email  string `ssql_header:"email"`
	Phone  string `ssql_header:"phone"`
	Status string `ssql_header:"status"`
}

// SkippedRow is a roster line that was not imported, with the reason
type SkippedRow struct {
	ID     string
	Reason string
}

// RosterResult reports what an import did
type RosterResult struct {
	Imported []db.WorkerRow
	Inactive []string
	Skipped  []SkippedRow
}

// ImportRoster reads worker profiles from a roster tab and upserts the valid, active ones.
// A blank role means field-worker. Rows with no id or name, an unknown role or a repeated
// id are skipped and reported rather than failing the import.
func ImportRoster(
	ctx context.Context,
	sheet sheetssql.ValueGetter,
	store db.WorkerWriter,
	logger *zap.Logger,
	spreadsheetID, tab string,
) (*RosterResult, error) {
	logger.Debug("Fetching roster", zap.String("spreadsheet_id", spreadsheetID), zap.String("tab", tab))

	rows, err := sheetssql.GetTableAs[RosterRow](ctx, sheet, spreadsheetID, tab)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster: %w", err)
	}

	logger.Debug("Roster fetched", zap.Int("rows", len(rows)))

	result := &RosterResult{}
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		w, reason := rosterWorker(row)
		switch {
		case reason != "":
			result.Skipped = append(result.Skipped, SkippedRow{ID: w.ID, Reason: reason})
		case seen[w.ID]:
			result.Skipped = append(result.Skipped, SkippedRow{ID: w.ID, Reason: "duplicate id"})
		case !isActive(row.Status):
			result.Inactive = append(result.Inactive, w.ID)
		default:
			result.Imported = append(result.Imported, w)
		}
		if w.ID != "" {
			seen[w.ID] = true
		}
	}

	for _, s := range result.Skipped {
		logger.Warn("Skipping roster row", zap.String("worker_id", s.ID), zap.String("reason", s.Reason))
	}

	if err := store.UpsertWorkers(ctx, result.Imported); err != nil {
		return nil, fmt.Errorf("failed to save workers: %w", err)
	}

	logger.Info("Roster imported",
		zap.Int("imported", len(result.Imported)),
		zap.Int("inactive", len(result.Inactive)),
		zap.Int("skipped", len(result.Skipped)))

	return result, nil
}

// rosterWorker normalizes a roster line; a non-empty reason means it cannot be imported
func rosterWorker(row RosterRow) (db.WorkerRow, string) {
	w := db.WorkerRow{
		ID:    strings.TrimSpace(row.ID),
		Name:  strings.TrimSpace(row.Name),
		Role:  strings.ToLower(strings.TrimSpace(row.Role)),
		Email: strings.TrimSpace(row.Email),
		Phone: strings.TrimSpace(row.Phone),
	}
	if w.Role == "" {
		w.Role = string(model.RoleFieldWorker)
	}

	switch {
	case w.ID == "":
		return w, "missing id"
	case w.Name == "":
		return w, "missing name"
	case !model.Role(w.Role).IsValid():
		return w, fmt.Sprintf("unknown role %q", row.Role)
	}
	return w, ""
}

// isActive treats a blank status as active, anything else must say "active"
func isActive(status string) bool {
	status = strings.TrimSpace(status)
	return status == "" || strings.EqualFold(status, "active")
}

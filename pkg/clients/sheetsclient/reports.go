package sheetsclient

import (
	"context"
	"fmt"
	"time"
)

// PublishedReport is a rendered report ready to be written to a tab
type PublishedReport struct {
	From   time.Time
	To     time.Time
	Values [][]string // header first
}

// ReportTabTitle names a report tab after its date range, e.g. "Shifts Mon Mar 10 2025 - Sun Mar 16 2025"
func ReportTabTitle(from, to time.Time) string {
	return fmt.Sprintf("Shifts %s - %s", from.Format("Mon Jan 02 2006"), to.Format("Mon Jan 02 2006"))
}

// PublishReport writes the report to a tab, creating it on first publish and overwriting it
// afterwards. An empty tab name uses ReportTabTitle. It returns the tab written.
func (c *Client) PublishReport(ctx context.Context, spreadsheetID, tab string, report *PublishedReport) (string, error) {
	if tab == "" {
		tab = ReportTabTitle(report.From, report.To)
	}

	exists, err := c.HasSheet(ctx, spreadsheetID, tab)
	if err != nil {
		return "", err
	}

	if !exists {
		if _, err := c.CreateSheet(ctx, spreadsheetID, tab); err != nil {
			return "", fmt.Errorf("failed to create tab: %w", err)
		}
	}

	if err := c.ReplaceValues(ctx, spreadsheetID, tab, toSheetValues(report.Values)); err != nil {
		return "", err
	}

	return tab, nil
}

func toSheetValues(values [][]string) [][]interface{} {
	out := make([][]interface{}, len(values))
	for i, row := range values {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		out[i] = cells
	}
	return out
}

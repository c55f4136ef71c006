package sources

import (
	"context"
	"fmt"

	"github.com/jonathan/weekly-report-agent/internal/types"
)

// maxSheetRange bounds how much of each tab is pulled. Weekly tracking tabs
// are small; anything past this is not report material.
const maxSheetRange = "A1:Z1000"

// fetchSheet pulls every tab of a spreadsheet. The descriptor location is
// the spreadsheet ID.
func (c *Client) fetchSheet(ctx context.Context, desc types.SourceDescriptor) (*types.RawSource, error) {
	if c.sheets == nil {
		return nil, &UnavailableError{
			SourceID: desc.ID,
			Message:  "google sheets is not configured (missing API key)",
		}
	}

	meta, err := c.sheets.Spreadsheets.Get(desc.Location).
		Fields("properties.title", "sheets.properties.title").
		Context(ctx).Do()
	if err != nil {
		return nil, &UnavailableError{
			SourceID: desc.ID,
			Message:  "reading spreadsheet metadata",
			Cause:    err,
		}
	}

	raw := &types.RawSource{Title: meta.Properties.Title}

	for _, sheet := range meta.Sheets {
		tabName := sheet.Properties.Title

		values, err := c.sheets.Spreadsheets.Values.
			Get(desc.Location, fmt.Sprintf("'%s'!%s", tabName, maxSheetRange)).
			Context(ctx).Do()
		if err != nil {
			return nil, &UnavailableError{
				SourceID: desc.ID,
				Message:  fmt.Sprintf("reading tab %q", tabName),
				Cause:    err,
			}
		}

		cells := make([][]any, len(values.Values))
		copy(cells, values.Values)
		raw.Tabs = append(raw.Tabs, types.RawTab{Name: tabName, Cells: cells})
	}

	c.log.Debug("fetched spreadsheet",
		"source_id", desc.ID,
		"title", raw.Title,
		"tabs", len(raw.Tabs))

	return raw, nil
}

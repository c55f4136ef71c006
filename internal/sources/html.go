package sources

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/weekly-report-agent/internal/fetch"
	"github.com/jonathan/weekly-report-agent/internal/types"
)

// fetchHTML scrapes the <table> elements of a web page, one tab per table.
// The descriptor location is the page URL.
func (c *Client) fetchHTML(ctx context.Context, desc types.SourceDescriptor) (*types.RawSource, error) {
	opts := fetch.DefaultOptions()
	opts.Timeout = c.cfg.Timeout

	result, err := fetch.URL(ctx, desc.Location, opts)
	if err != nil {
		return nil, &UnavailableError{SourceID: desc.ID, Message: "fetching page", Cause: err}
	}

	raw, err := ExtractTables(result.HTML)
	if err != nil {
		return nil, &UnavailableError{SourceID: desc.ID, Message: "parsing page", Cause: err}
	}
	if raw.Title == "" {
		raw.Title = desc.Location
	}

	c.log.Debug("fetched html page",
		"source_id", desc.ID,
		"url", desc.Location,
		"tables", len(raw.Tabs))

	return raw, nil
}

// ExtractTables parses HTML and returns one raw tab per <table> element, in
// document order. A table is named by its <caption> when present, otherwise
// "Table N".
func ExtractTables(html string) (*types.RawSource, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	raw := &types.RawSource{
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}

	doc.Find("table").Each(func(i int, table *goquery.Selection) {
		name := strings.TrimSpace(table.Find("caption").First().Text())
		if name == "" {
			name = fmt.Sprintf("Table %d", i+1)
		}

		var cells [][]any
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			var row []any
			tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
				row = append(row, strings.TrimSpace(cell.Text()))
			})
			if len(row) > 0 {
				cells = append(cells, row)
			}
		})

		raw.Tabs = append(raw.Tabs, types.RawTab{Name: name, Cells: cells})
	})

	return raw, nil
}

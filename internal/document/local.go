package document

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/jonathan/weekly-report-agent/internal/types"
)

//go:embed report.html.tmpl
var reportTemplate string

// renderTimeout bounds the headless-browser PDF print.
const renderTimeout = 60 * time.Second

// LocalBuilder writes the draft as an HTML file on disk and prints the
// final PDF with a headless browser. It serves setups without Drive
// credentials; the "editable draft" is the HTML file itself.
type LocalBuilder struct {
	dir  string
	tmpl *template.Template
	log  *slog.Logger
}

// NewLocalBuilder creates the builder, making the output directory if needed.
func NewLocalBuilder(dir string, log *slog.Logger) (*LocalBuilder, error) {
	if log == nil {
		log = slog.Default()
	}

	tmpl, err := template.New("report").Parse(reportTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse report template: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &LocalBuilder{dir: dir, tmpl: tmpl, log: log}, nil
}

type reportPage struct {
	Title             string
	SummaryParagraphs []string
	Insights          []string
	Highlights        []string
	Week              string
}

// CreateDraft renders the report to an HTML file named for the week.
// Re-running a draft overwrites the same file.
func (b *LocalBuilder) CreateDraft(_ context.Context, report *types.Report, week types.RunKey) (types.Handoff, error) {
	var buf bytes.Buffer
	err := b.tmpl.Execute(&buf, reportPage{
		Title:             report.Title,
		SummaryParagraphs: splitParagraphs(report.Summary),
		Insights:          report.Insights,
		Highlights:        report.Highlights,
		Week:              week.String(),
	})
	if err != nil {
		return types.Handoff{}, &BuildError{Message: "rendering report template", Cause: err}
	}

	path, err := filepath.Abs(filepath.Join(b.dir, fmt.Sprintf("weekly-report-%s.html", week)))
	if err != nil {
		return types.Handoff{}, &BuildError{Message: "resolving output path", Cause: err}
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return types.Handoff{}, &BuildError{Message: "writing draft file", Cause: err}
	}

	b.log.Info("wrote draft document", "path", path)

	return types.Handoff{
		DocumentID:  path,
		DocumentURL: "file://" + path,
	}, nil
}

// RenderFinal prints the draft file to PDF in a headless browser, picking
// up any edits made to the file since the draft run.
func (b *LocalBuilder) RenderFinal(ctx context.Context, handoff types.Handoff) ([]byte, error) {
	if _, err := os.Stat(handoff.DocumentID); err != nil {
		return nil, &BuildError{DocumentID: handoff.DocumentID, Message: "draft file missing", Cause: err}
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, renderTimeout)
	defer cancel()

	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(handoff.DocumentURL),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, &BuildError{DocumentID: handoff.DocumentID, Message: "printing PDF", Cause: err}
	}

	b.log.Info("rendered final PDF", "path", handoff.DocumentID, "bytes", len(pdf))
	return pdf, nil
}

func splitParagraphs(text string) []string {
	var paragraphs []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para != "" {
			paragraphs = append(paragraphs, para)
		}
	}
	return paragraphs
}

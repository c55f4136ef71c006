package document

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"google.golang.org/api/docs/v1"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/jonathan/weekly-report-agent/internal/types"
)

const googleDocMimeType = "application/vnd.google-apps.document"

// DriveBuilder creates the draft as a Google Doc in a shared folder and
// renders the final artifact through the Drive PDF export.
type DriveBuilder struct {
	docs     *docs.Service
	drive    *drive.Service
	folderID string
	log      *slog.Logger
}

// NewDriveBuilder constructs the builder from a service account credentials
// file. The folder ID names the shared drive folder that holds the reports.
func NewDriveBuilder(ctx context.Context, credentialsFile, folderID string, log *slog.Logger) (*DriveBuilder, error) {
	if log == nil {
		log = slog.Default()
	}

	docsSvc, err := docs.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(docs.DocumentsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to create docs service: %w", err)
	}

	driveSvc, err := drive.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(drive.DriveScope))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &DriveBuilder{
		docs:     docsSvc,
		drive:    driveSvc,
		folderID: folderID,
		log:      log,
	}, nil
}

// CreateDraft writes the report into a Google Doc named for the week. An
// existing doc with the same title is reused and overwritten, so re-running
// a failed draft never litters the folder with duplicates.
func (b *DriveBuilder) CreateDraft(ctx context.Context, report *types.Report, week types.RunKey) (types.Handoff, error) {
	title := Title(week)

	docID, err := b.findExisting(ctx, title)
	if err != nil {
		return types.Handoff{}, err
	}

	if docID == "" {
		file, err := b.drive.Files.Create(&drive.File{
			Name:     title,
			MimeType: googleDocMimeType,
			Parents:  []string{b.folderID},
		}).SupportsAllDrives(true).Context(ctx).Do()
		if err != nil {
			return types.Handoff{}, &BuildError{Message: "creating google doc", Cause: err}
		}
		docID = file.Id
		b.log.Info("created draft document", "doc_id", docID, "title", title)
	} else {
		b.log.Info("reusing existing draft document", "doc_id", docID, "title", title)
	}

	if err := b.writeContent(ctx, docID, report); err != nil {
		return types.Handoff{}, err
	}

	return types.Handoff{
		DocumentID:  docID,
		DocumentURL: fmt.Sprintf("https://docs.google.com/document/d/%s/edit", docID),
	}, nil
}

// RenderFinal exports the document as it stands now, edits included.
func (b *DriveBuilder) RenderFinal(ctx context.Context, handoff types.Handoff) ([]byte, error) {
	resp, err := b.drive.Files.Export(handoff.DocumentID, "application/pdf").
		Context(ctx).Download()
	if err != nil {
		return nil, &BuildError{DocumentID: handoff.DocumentID, Message: "exporting PDF", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &BuildError{DocumentID: handoff.DocumentID, Message: "reading PDF export", Cause: err}
	}

	b.log.Info("rendered final PDF", "doc_id", handoff.DocumentID, "bytes", len(pdf))
	return pdf, nil
}

func (b *DriveBuilder) findExisting(ctx context.Context, title string) (string, error) {
	query := fmt.Sprintf("name = '%s' and '%s' in parents and mimeType = '%s' and trashed = false",
		strings.ReplaceAll(title, "'", `\'`), b.folderID, googleDocMimeType)

	list, err := b.drive.Files.List().
		Q(query).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Fields("files(id, name)").
		Context(ctx).Do()
	if err != nil {
		return "", &BuildError{Message: "searching for existing doc", Cause: err}
	}

	if len(list.Files) == 0 {
		return "", nil
	}
	return list.Files[0].Id, nil
}

// writeContent replaces the document body with the report text.
func (b *DriveBuilder) writeContent(ctx context.Context, docID string, report *types.Report) error {
	doc, err := b.docs.Documents.Get(docID).Context(ctx).Do()
	if err != nil {
		return &BuildError{DocumentID: docID, Message: "reading document", Cause: err}
	}

	var requests []*docs.Request

	// Clear everything except the trailing newline that Docs requires.
	if end := bodyEndIndex(doc); end > 2 {
		requests = append(requests, &docs.Request{
			DeleteContentRange: &docs.DeleteContentRangeRequest{
				Range: &docs.Range{StartIndex: 1, EndIndex: end - 1},
			},
		})
	}

	text := DraftText(report)
	requests = append(requests, &docs.Request{
		InsertText: &docs.InsertTextRequest{
			Location: &docs.Location{Index: 1},
			Text:     text,
		},
	})

	// Style the first line as a heading.
	titleEnd := int64(len([]rune(report.Title)) + 1)
	requests = append(requests, &docs.Request{
		UpdateParagraphStyle: &docs.UpdateParagraphStyleRequest{
			Range:          &docs.Range{StartIndex: 1, EndIndex: titleEnd},
			ParagraphStyle: &docs.ParagraphStyle{NamedStyleType: "HEADING_1"},
			Fields:         "namedStyleType",
		},
	})

	_, err = b.docs.Documents.BatchUpdate(docID, &docs.BatchUpdateDocumentRequest{
		Requests: requests,
	}).Context(ctx).Do()
	if err != nil {
		return &BuildError{DocumentID: docID, Message: "writing document content", Cause: err}
	}

	return nil
}

func bodyEndIndex(doc *docs.Document) int64 {
	if doc.Body == nil || len(doc.Body.Content) == 0 {
		return 0
	}
	return doc.Body.Content[len(doc.Body.Content)-1].EndIndex
}

// DraftText lays the report out as the plain text inserted into the doc.
func DraftText(report *types.Report) string {
	var sb strings.Builder

	sb.WriteString(report.Title)
	sb.WriteString("\n\n")
	sb.WriteString(report.Summary)
	sb.WriteString("\n\nKey Insights\n")
	for _, insight := range report.Insights {
		sb.WriteString("• ")
		sb.WriteString(insight)
		sb.WriteString("\n")
	}
	if len(report.Highlights) > 0 {
		sb.WriteString("\nHighlights\n")
		for _, highlight := range report.Highlights {
			sb.WriteString("• ")
			sb.WriteString(highlight)
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

package gcp

import (
	"context"
	"fmt"
	"strings"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"

	"github.com/yungbote/persona-backend/internal/config"
	"github.com/yungbote/persona-backend/internal/platform/logger"
)

// Document extracts plain text (tables rendered as markdown) from a document using Document AI.
type Document interface {
	ProcessBytes(ctx context.Context, data []byte, mimeType string) (string, error)
	Close() error
}

type documentService struct {
	log       *logger.Logger
	client    *documentai.DocumentProcessorClient
	processor string
}

// NewDocument dials the regional Document AI endpoint. cfg.DocumentAIProcessor is the full
// processor resource name (projects/.../locations/.../processors/...).
func NewDocument(ctx context.Context, log *logger.Logger, cfg config.GCPConfig) (Document, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	processor := strings.TrimSpace(cfg.DocumentAIProcessor)
	if processor == "" {
		return nil, fmt.Errorf("documentai processor required")
	}
	location := strings.TrimSpace(cfg.DocumentAILocation)
	if location == "" {
		location = locationFromProcessor(processor)
	}
	if location == "" {
		location = "us"
	}
	opts := append(ClientOptions(cfg), option.WithEndpoint(fmt.Sprintf("%s-documentai.googleapis.com:443", location)))
	c, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("documentai client: %w", err)
	}
	return &documentService{
		log:       log.With("service", "gcp.Document"),
		client:    c,
		processor: processor,
	}, nil
}

func (s *documentService) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *documentService) ProcessBytes(ctx context.Context, data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("documentai: empty document")
	}
	if strings.TrimSpace(mimeType) == "" {
		return "", fmt.Errorf("documentai: mime type required")
	}
	resp, err := s.client.ProcessDocument(ctx, &documentaipb.ProcessRequest{
		Name: s.processor,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{Content: data, MimeType: mimeType},
		},
	})
	if err != nil {
		return "", fmt.Errorf("documentai ProcessDocument: %w", err)
	}
	text := DocumentText(resp.GetDocument())
	s.log.Debug("documentai processed", "mime", mimeType, "chars", len(text))
	return text, nil
}

// DocumentText returns the document's primary text followed by any tables as markdown.
func DocumentText(doc *documentaipb.Document) string {
	if doc == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(strings.TrimSpace(doc.Text))
	for _, p := range doc.Pages {
		if p == nil {
			continue
		}
		for _, table := range p.Tables {
			md := strings.TrimSpace(tableToMarkdown(doc.Text, table))
			if md == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString(md)
		}
	}
	return b.String()
}

func locationFromProcessor(name string) string {
	parts := strings.Split(name, "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "locations" {
			return parts[i+1]
		}
	}
	return ""
}

func textFromAnchor(full string, anchor *documentaipb.Document_TextAnchor) string {
	if anchor == nil || full == "" {
		return ""
	}
	var b strings.Builder
	for _, seg := range anchor.TextSegments {
		if seg == nil {
			continue
		}
		start, end := int(seg.StartIndex), int(seg.EndIndex)
		if start < 0 {
			start = 0
		}
		if end > len(full) {
			end = len(full)
		}
		if start < end {
			b.WriteString(full[start:end])
		}
	}
	return b.String()
}

func tableToMarkdown(full string, t *documentaipb.Document_Page_Table) string {
	if t == nil {
		return ""
	}
	var rows [][]string
	for _, r := range t.HeaderRows {
		if r != nil {
			rows = append(rows, rowCells(full, r))
			break
		}
	}
	for _, r := range t.BodyRows {
		if r != nil {
			rows = append(rows, rowCells(full, r))
		}
	}
	cols := 0
	for _, r := range rows {
		if len(r) > cols {
			cols = len(r)
		}
	}
	if cols == 0 {
		return ""
	}

	var out strings.Builder
	for i, r := range rows {
		for len(r) < cols {
			r = append(r, "")
		}
		out.WriteString("| " + strings.Join(r, " | ") + " |\n")
		if i == 0 {
			out.WriteString("|" + strings.Repeat(" --- |", cols) + "\n")
		}
	}
	return out.String()
}

func rowCells(full string, r *documentaipb.Document_Page_Table_TableRow) []string {
	out := make([]string, 0, len(r.Cells))
	for _, c := range r.Cells {
		if c == nil || c.Layout == nil {
			out = append(out, "")
			continue
		}
		cell := strings.TrimSpace(textFromAnchor(full, c.Layout.TextAnchor))
		out = append(out, strings.ReplaceAll(cell, "|", "\\|"))
	}
	return out
}

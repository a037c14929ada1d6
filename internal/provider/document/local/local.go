// Package local extracts text from plain-text formats and DOCX without any external service.
package local

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/yungbote/persona-backend/internal/provider"
)

const docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// maxDocumentXML bounds the decompressed word/document.xml.
const maxDocumentXML = 32 << 20

type Client struct {
	policy *provider.Policy
}

func New(policy *provider.Policy) *Client {
	return &Client{policy: provider.Ensure(policy, provider.LocalText, provider.CapabilityDocument)}
}

func (c *Client) ID() provider.ID  { return provider.LocalText }
func (c *Client) Configured() bool { return true }

// Supports reports whether mimeType is a format this reader can extract.
func Supports(mimeType string) bool {
	mt := baseType(mimeType)
	return strings.HasPrefix(mt, "text/") || mt == "application/json" || mt == docxMIME
}

func (c *Client) ReadDocument(ctx context.Context, data []byte, mimeType string) provider.Result[string] {
	return provider.Call(ctx, c.policy, true, func(ctx context.Context) (string, error) {
		mt := baseType(mimeType)
		var (
			text string
			err  error
		)
		switch {
		case mt == docxMIME:
			text, err = docxText(data)
		case Supports(mt):
			if !utf8.Valid(data) {
				return "", provider.Malformedf("document is not valid UTF-8")
			}
			text = string(data)
		default:
			return "", provider.Malformedf("unsupported document type %q", mimeType)
		}
		if err != nil {
			return "", provider.Malformed(err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return "", provider.Malformedf("document contains no text")
		}
		return text, nil
	})
}

func baseType(mimeType string) string {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mimeType))
	}
	return mt
}

// docxText walks word/document.xml, joining w:t runs and breaking lines at w:p, w:br and w:tab.
func docxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	var body *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			body = f
			break
		}
	}
	if body == nil {
		return "", errors.New("docx: word/document.xml not found")
	}
	rc, err := body.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	dec := xml.NewDecoder(io.LimitReader(rc, maxDocumentXML))
	var (
		out    strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				out.WriteByte('\t')
			case "br":
				out.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				out.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				out.Write(t)
			}
		}
	}
	return out.String(), nil
}

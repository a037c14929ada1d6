package gcp

import (
	"strings"
	"testing"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
)

func anchor(start, end int64) *documentaipb.Document_TextAnchor {
	return &documentaipb.Document_TextAnchor{TextSegments: []*documentaipb.Document_TextAnchor_TextSegment{{StartIndex: start, EndIndex: end}}}
}

func cell(start, end int64) *documentaipb.Document_Page_Table_TableCell {
	return &documentaipb.Document_Page_Table_TableCell{Layout: &documentaipb.Document_Page_Layout{TextAnchor: anchor(start, end)}}
}

func TestDocumentText(t *testing.T) {
	full := "Name Role\nAda Lead\n"
	doc := &documentaipb.Document{
		Text: full,
		Pages: []*documentaipb.Document_Page{{
			Tables: []*documentaipb.Document_Page_Table{{
				HeaderRows: []*documentaipb.Document_Page_Table_TableRow{{Cells: []*documentaipb.Document_Page_Table_TableCell{cell(0, 4), cell(5, 9)}}},
				BodyRows:   []*documentaipb.Document_Page_Table_TableRow{{Cells: []*documentaipb.Document_Page_Table_TableCell{cell(10, 13), cell(14, 18)}}},
			}},
		}},
	}
	got := DocumentText(doc)
	if !strings.HasPrefix(got, "Name Role\nAda Lead") {
		t.Fatalf("missing primary text: %q", got)
	}
	if !strings.Contains(got, "| Name | Role |\n| --- | --- |\n| Ada | Lead |") {
		t.Fatalf("missing table: %q", got)
	}
	if DocumentText(nil) != "" {
		t.Fatalf("nil document should be empty")
	}
}

func TestLocationFromProcessor(t *testing.T) {
	if got := locationFromProcessor("projects/p/locations/eu/processors/abc"); got != "eu" {
		t.Fatalf("got %q", got)
	}
	if got := locationFromProcessor("abc"); got != "" {
		t.Fatalf("got %q", got)
	}
}

package assessment

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/yungbote/persona-backend/internal/domain"
)

var ErrNoJSON = errors.New("no json object in model output")

const (
	keySummary     = "summary"
	keyQuotes      = "quotes"
	keyGrowthAreas = "growth_areas"
)

// ExtractJSON returns the first balanced JSON object in raw, ignoring code fences and prose.
func ExtractJSON(raw string) (string, error) {
	s := stripFences(raw)
	for start := strings.IndexByte(s, '{'); start >= 0; {
		if end := matchObject(s, start); end > start {
			candidate := s[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, nil
			}
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", ErrNoJSON
}

// Parse extracts and decodes an assessment from model output. Required-question fields
// land in Fields, nulls are dropped, and non-string values are kept as compact JSON.
func Parse(raw string, required []string) (domain.Assessment, error) {
	obj, err := ExtractJSON(raw)
	if err != nil {
		return domain.Assessment{}, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &m); err != nil {
		return domain.Assessment{}, fmt.Errorf("decode assessment: %w", err)
	}

	// Some models nest the answers one level down.
	if inner, ok := m["fields"]; ok && len(m) <= 4 {
		var nested map[string]json.RawMessage
		if json.Unmarshal(inner, &nested) == nil {
			for k, v := range nested {
				if _, dup := m[k]; !dup {
					m[k] = v
				}
			}
			delete(m, "fields")
		}
	}

	req := make(map[string]bool, len(required))
	for _, r := range required {
		req[r] = true
	}

	out := domain.Assessment{Fields: map[string]string{}}
	for k, v := range m {
		if isNull(v) {
			continue
		}
		switch k {
		case keySummary:
			out.Summary = asText(v)
		case keyQuotes:
			out.Quotes = asList(v)
		case keyGrowthAreas:
			out.GrowthAreas = asList(v)
		default:
			if req[k] || len(required) == 0 {
				out.Fields[k] = asText(v)
				continue
			}
			if out.Extra == nil {
				out.Extra = map[string]string{}
			}
			out.Extra[k] = asText(v)
		}
	}
	return out, nil
}

const fence = "```"

// stripFences removes code fence markers and their language tag, keeping any content
// that shares a line with them.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, fence) {
		return s
	}
	var b strings.Builder
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, fence) {
			line = strings.TrimLeftFunc(strings.TrimPrefix(line, fence), isLangTag)
		}
		line = strings.TrimSuffix(line, fence)
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

func isLangTag(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '+'
}

// matchObject returns the index of the brace closing the object opened at start, or -1.
func matchObject(s string, start int) int {
	depth := 0
	inStr := false
	esc := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func isNull(v json.RawMessage) bool {
	return len(bytes.TrimSpace(v)) == 0 || bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func asText(v json.RawMessage) string {
	var s string
	if json.Unmarshal(v, &s) == nil {
		return s
	}
	var buf bytes.Buffer
	if json.Compact(&buf, v) == nil {
		return buf.String()
	}
	return string(v)
}

func asList(v json.RawMessage) []string {
	var items []json.RawMessage
	if json.Unmarshal(v, &items) != nil {
		if s := strings.TrimSpace(asText(v)); s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if isNull(it) {
			continue
		}
		if s := strings.TrimSpace(asText(it)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

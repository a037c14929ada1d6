// Package assessment checks synthesized personality profiles for completeness.
// It is a completeness gate, not a quality gate: fields are only measured by length.
package assessment

import (
	"strings"
	"unicode/utf8"

	"github.com/yungbote/persona-backend/internal/domain"
)

// MinFieldLength is the minimum trimmed length, in characters, of a required field.
const MinFieldLength = 10

type Report struct {
	Valid         bool     `json:"valid"`
	MissingFields []string `json:"missing_fields,omitempty"`
}

// Validate reports every required field that is absent or shorter than MinFieldLength,
// in the order given by required.
func Validate(a domain.Assessment, required []string) Report {
	var missing []string
	seen := make(map[string]bool, len(required))
	for _, name := range required {
		if seen[name] {
			continue
		}
		seen[name] = true
		v, ok := a.Fields[name]
		if !ok || utf8.RuneCountInString(strings.TrimSpace(v)) < MinFieldLength {
			missing = append(missing, name)
		}
	}
	return Report{Valid: len(missing) == 0, MissingFields: missing}
}

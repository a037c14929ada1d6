package promptstyle

import "strings"

const (
	marker   = "PERSONA_PROMPT_STYLE_V1"
	jsonLine = "Return a single JSON object and nothing else. No code fences, no commentary."
)

// ApplySystem prepends a short guidance block to a system prompt. Applying it twice is a no-op.
func ApplySystem(system string, mode string) string {
	base := strings.TrimSpace(system)
	if base == "" {
		return base
	}
	if strings.Contains(base, marker) {
		return base
	}
	mode = strings.ToLower(strings.TrimSpace(mode))

	var b strings.Builder
	b.WriteString(marker)
	b.WriteString("\nYou write behavioral profiles from observed evidence only.")
	b.WriteString("\nGround every statement in the evidence payload; do not invent quotes, names or events.")
	b.WriteString("\nWhen evidence is thin, say so inside the relevant field instead of leaving it empty.")
	if mode == "json" {
		b.WriteString("\n" + jsonLine)
	} else {
		b.WriteString("\nAnswer in plain prose.")
	}
	b.WriteString("\n---\n")
	b.WriteString(base)
	return strings.TrimSpace(b.String())
}

// WantsJSON reports whether system was styled for a JSON-only answer. Adapters use it to turn on
// their native JSON response mode.
func WantsJSON(system string) bool {
	return strings.Contains(system, marker) && strings.Contains(system, jsonLine)
}

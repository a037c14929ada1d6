// Package prompts holds the system prompts and the required-field checklist used for synthesis.
package prompts

import (
	"fmt"
	"strings"

	"github.com/yungbote/persona-backend/internal/platform/promptstyle"
)

// RequiredFields are the keys every synthesized assessment must answer.
var RequiredFields = []string{
	"first_impression",
	"emotional_baseline",
	"emotional_range",
	"stress_response",
	"communication_style",
	"verbal_patterns",
	"nonverbal_cues",
	"social_orientation",
	"confidence_level",
	"decision_making",
	"core_motivations",
	"values_signals",
	"conflict_style",
	"openness",
	"conscientiousness",
	"extraversion",
	"agreeableness",
	"emotional_stability",
	"interpersonal_strengths",
	"potential_blind_spots",
}

func fieldList(fields []string) string {
	return strings.Join(fields, ", ")
}

// Synthesis is the system prompt for a single-subject or per-person assessment.
func Synthesis(required []string) string {
	return promptstyle.ApplySystem(fmt.Sprintf(`Produce a personality assessment of the subject described in the evidence payload.
Return a JSON object with one string value per key: %s.
Each value must be at least two full sentences citing the evidence.
Also include "summary" (string), "quotes" (array of strings taken verbatim from the transcript, may be empty) and "growth_areas" (array of strings).`,
		fieldList(required)), "json")
}

// Reprompt escalates after a response left fields missing or too short.
func Reprompt(required, missing []string) string {
	return promptstyle.ApplySystem(fmt.Sprintf(`Your previous answer was incomplete. These keys were missing or too short: %s.
Return the complete JSON object again with every key present: %s.
Every value must be a non-empty string of at least two sentences. Do not omit any key.`,
		fieldList(missing), fieldList(required)), "json")
}

// Group asks for dynamics across several already-assessed people.
func Group() string {
	return promptstyle.ApplySystem(`The evidence payload contains assessments of several people seen together.
Describe the group dynamics: roles, alliances, tension, who leads and who defers, and how their styles interact.`, "text")
}

// Text is the system prompt for analyses of written text or extracted documents.
func Text(required []string) string {
	return promptstyle.ApplySystem(fmt.Sprintf(`Produce a personality assessment of the author of the text in the evidence payload.
Base every answer on word choice, tone, structure and content of the text.
Return a JSON object with one string value per key: %s.
Each value must be at least two full sentences citing the text.
Also include "summary" (string), "quotes" (array of verbatim excerpts) and "growth_areas" (array of strings).`,
		fieldList(required)), "json")
}

// Chat answers follow-up questions about a stored analysis.
func Chat() string {
	return promptstyle.ApplySystem(`You answer follow-up questions about a personality analysis.
The evidence payload holds the analysis, the prior conversation and the new question.
Answer only the new question, grounded in the analysis.`, "text")
}

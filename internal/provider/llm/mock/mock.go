// Package mock is an offline language model for local runs and demos. It answers JSON prompts with a
// complete assessment built from the evidence and text prompts with a short grounded reply.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/yungbote/persona-backend/internal/platform/promptstyle"
	"github.com/yungbote/persona-backend/internal/prompts"
	"github.com/yungbote/persona-backend/internal/provider"
)

type Client struct {
	enabled bool
	policy  *provider.Policy
}

func New(enabled bool, policy *provider.Policy) *Client {
	return &Client{enabled: enabled, policy: provider.Ensure(policy, provider.Mock, provider.CapabilityLLM)}
}

func (c *Client) ID() provider.ID  { return provider.Mock }
func (c *Client) Configured() bool { return c.enabled }

func (c *Client) Complete(ctx context.Context, systemPrompt, evidenceJSON string) provider.Result[string] {
	return provider.Call(ctx, c.policy, c.Configured(), func(ctx context.Context) (string, error) {
		ev := gjson.Parse(evidenceJSON)
		subject := firstNonEmpty(ev.Get("person.person_label").String(), "The subject")
		if !promptstyle.WantsJSON(systemPrompt) {
			if q := ev.Get("question").String(); q != "" {
				return fmt.Sprintf("Based on the stored analysis, %s. You asked: %q.", strings.ToLower(summary(ev, subject)), q), nil
			}
			return fmt.Sprintf("%d people were observed together; %s", ev.Get("people.#").Int(), summary(ev, subject)), nil
		}

		out := map[string]any{}
		for _, f := range prompts.RequiredFields {
			out[f] = fmt.Sprintf("%s shows observable signals relevant to %s. %s",
				subject, strings.ReplaceAll(f, "_", " "), evidenceNote(ev))
		}
		out["summary"] = summary(ev, subject)
		out["quotes"] = quotes(ev)
		out["growth_areas"] = []string{"Seek more varied evidence before drawing firm conclusions."}
		b, err := json.Marshal(out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	})
}

func summary(ev gjson.Result, subject string) string {
	emotion := ev.Get("person.dominant_emotion").String()
	if emotion == "" {
		return subject + " was assessed from limited evidence."
	}
	return fmt.Sprintf("%s appears mostly %s.", subject, emotion)
}

func evidenceNote(ev gjson.Result) string {
	var parts []string
	if n := ev.Get("transcription.utterances.#").Int(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d spoken utterances", n))
	}
	if t := ev.Get("text").String(); t != "" {
		parts = append(parts, fmt.Sprintf("%d words of text", len(strings.Fields(t))))
	}
	if ev.Get("person").Exists() {
		parts = append(parts, "facial attributes")
	}
	if len(parts) == 0 {
		return "Evidence for this point is limited."
	}
	return "This reading draws on " + strings.Join(parts, " and ") + "."
}

func quotes(ev gjson.Result) []string {
	out := []string{}
	ev.Get("transcription.utterances").ForEach(func(_, u gjson.Result) bool {
		if t := strings.TrimSpace(u.Get("text").String()); t != "" {
			out = append(out, t)
		}
		return len(out) < 3
	})
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

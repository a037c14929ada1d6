// Package oaihttp completes prompts against an OpenAI-compatible chat completions endpoint.
package oaihttp

import (
	"context"
	"net/http"
	"strings"

	"github.com/yungbote/persona-backend/internal/config"
	"github.com/yungbote/persona-backend/internal/platform/httpx"
	"github.com/yungbote/persona-backend/internal/platform/promptstyle"
	"github.com/yungbote/persona-backend/internal/provider"
)

const chatCompletionsPath = "/v1/chat/completions"

type Client struct {
	cfg    config.LLMProviderConfig
	http   *http.Client
	policy *provider.Policy
}

func New(cfg config.LLMProviderConfig, httpClient *http.Client, policy *provider.Policy) *Client {
	if httpClient == nil {
		httpClient = httpx.NewClient()
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "gpt-4o"
	}
	return &Client{cfg: cfg, http: httpClient, policy: provider.Ensure(policy, provider.OpenAI, provider.CapabilityLLM)}
}

func (c *Client) ID() provider.ID  { return provider.OpenAI }
func (c *Client) Configured() bool { return strings.TrimSpace(c.cfg.APIKey) != "" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens,omitempty"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content,omitempty"`
		} `json:"message,omitempty"`
		Text         string `json:"text,omitempty"`
		FinishReason string `json:"finish_reason,omitempty"`
	} `json:"choices"`
}

func (c *Client) Complete(ctx context.Context, systemPrompt, evidenceJSON string) provider.Result[string] {
	return provider.Call(ctx, c.policy, c.Configured(), func(ctx context.Context) (string, error) {
		req := chatCompletionRequest{
			Model: c.cfg.Model,
			Messages: []chatMessage{
				{Role: "system", Content: systemPrompt},
				{Role: "user", Content: evidenceJSON},
			},
			Temperature: 0.2,
			MaxTokens:   c.cfg.MaxTokens,
		}
		if promptstyle.WantsJSON(systemPrompt) {
			req.ResponseFormat = map[string]any{"type": "json_object"}
		}

		var resp chatCompletionResponse
		err := httpx.Do(ctx, c.http, httpx.Request{
			Method:   http.MethodPost,
			URL:      c.cfg.BaseURL + chatCompletionsPath,
			Header:   http.Header{"Authorization": []string{"Bearer " + c.cfg.APIKey}},
			JSONBody: req,
		}, &resp)
		if err != nil {
			return "", err
		}
		text := extractChatText(resp)
		if strings.TrimSpace(text) == "" {
			return "", provider.Malformedf("empty upstream completion")
		}
		return text, nil
	})
}

func extractChatText(resp chatCompletionResponse) string {
	for _, ch := range resp.Choices {
		if strings.TrimSpace(ch.Message.Content) != "" {
			return ch.Message.Content
		}
		if strings.TrimSpace(ch.Text) != "" {
			return ch.Text
		}
	}
	return ""
}

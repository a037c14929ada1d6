// Package gemini completes prompts with the Gemini API through google.golang.org/genai.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/yungbote/persona-backend/internal/config"
	"github.com/yungbote/persona-backend/internal/platform/httpx"
	"github.com/yungbote/persona-backend/internal/platform/promptstyle"
	"github.com/yungbote/persona-backend/internal/provider"
)

type Client struct {
	models    *genai.Models
	model     string
	maxTokens int32
	policy    *provider.Policy
}

// New creates the genai client only when an API key is set; genai refuses to start without one.
func New(ctx context.Context, cfg config.LLMProviderConfig, httpClient *http.Client, policy *provider.Policy) (*Client, error) {
	c := &Client{
		model:     strings.TrimSpace(cfg.Model),
		maxTokens: int32(cfg.MaxTokens),
		policy:    provider.Ensure(policy, provider.Gemini, provider.CapabilityLLM),
	}
	if c.model == "" {
		c.model = "gemini-2.5-flash"
	}
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return c, nil
	}
	cc := &genai.ClientConfig{APIKey: key, Backend: genai.BackendGeminiAPI, HTTPClient: httpClient}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}
	gc, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	c.models = gc.Models
	return c, nil
}

func (c *Client) ID() provider.ID  { return provider.Gemini }
func (c *Client) Configured() bool { return c.models != nil }

func (c *Client) Complete(ctx context.Context, systemPrompt, evidenceJSON string) provider.Result[string] {
	return provider.Call(ctx, c.policy, c.Configured(), func(ctx context.Context) (string, error) {
		gc := &genai.GenerateContentConfig{
			Temperature:     genai.Ptr[float32](0.2),
			MaxOutputTokens: c.maxTokens,
		}
		if strings.TrimSpace(systemPrompt) != "" {
			gc.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
		}
		if promptstyle.WantsJSON(systemPrompt) {
			gc.ResponseMIMEType = "application/json"
		}

		resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(evidenceJSON), gc)
		if err != nil {
			return "", statusError(err)
		}
		text := resp.Text()
		if strings.TrimSpace(text) == "" {
			return "", provider.Malformedf("gemini: empty candidate text")
		}
		return text, nil
	})
}

// statusError exposes the API status code to provider.Classify.
func statusError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code > 0 {
		return &httpx.StatusError{StatusCode: apiErr.Code, Body: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr.Code > 0 {
		return &httpx.StatusError{StatusCode: apiErrPtr.Code, Body: apiErrPtr.Message}
	}
	return err
}

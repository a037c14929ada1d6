// Package anthropic completes prompts with the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/yungbote/persona-backend/internal/config"
	"github.com/yungbote/persona-backend/internal/platform/httpx"
	"github.com/yungbote/persona-backend/internal/provider"
)

const defaultMaxTokens = 8192

type Client struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	hasKey    bool
	policy    *provider.Policy
}

// New builds the SDK client. SDK retries are off; the provider policy owns retry and breaking.
func New(cfg config.LLMProviderConfig, httpClient *http.Client, policy *provider.Policy) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "claude-sonnet-4-5"
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Client{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
		hasKey:    strings.TrimSpace(cfg.APIKey) != "",
		policy:    provider.Ensure(policy, provider.Anthropic, provider.CapabilityLLM),
	}
}

func (c *Client) ID() provider.ID  { return provider.Anthropic }
func (c *Client) Configured() bool { return c.hasKey }

func (c *Client) Complete(ctx context.Context, systemPrompt, evidenceJSON string) provider.Result[string] {
	return provider.Call(ctx, c.policy, c.Configured(), func(ctx context.Context) (string, error) {
		params := anthropic.MessageNewParams{
			Model:       anthropic.Model(c.model),
			MaxTokens:   c.maxTokens,
			Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(evidenceJSON))},
			Temperature: anthropic.Float(0.2),
		}
		if strings.TrimSpace(systemPrompt) != "" {
			params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
		}

		resp, err := c.client.Messages.New(ctx, params)
		if err != nil {
			return "", statusError(err)
		}

		var out strings.Builder
		for _, block := range resp.Content {
			if b, ok := block.AsAny().(anthropic.TextBlock); ok {
				out.WriteString(b.Text)
			}
		}
		if strings.TrimSpace(out.String()) == "" {
			return "", provider.Malformedf("anthropic: no text content (stop_reason=%s)", resp.StopReason)
		}
		return out.String(), nil
	})
}

// statusError exposes the SDK's HTTP status to provider.Classify.
func statusError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &httpx.StatusError{StatusCode: apiErr.StatusCode, Body: strings.TrimSpace(apiErr.RawJSON())}
	}
	return err
}

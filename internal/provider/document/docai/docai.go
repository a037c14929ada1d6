// Package docai reads uploaded documents through Google Document AI.
package docai

import (
	"context"
	"strings"

	"github.com/yungbote/persona-backend/internal/config"
	"github.com/yungbote/persona-backend/internal/platform/gcp"
	"github.com/yungbote/persona-backend/internal/platform/logger"
	"github.com/yungbote/persona-backend/internal/provider"
)

type Client struct {
	doc    gcp.Document
	policy *provider.Policy
}

// New dials Document AI when credentials and a processor are configured.
func New(ctx context.Context, log *logger.Logger, cfg *config.Config, policy *provider.Policy) (*Client, error) {
	c := &Client{policy: provider.Ensure(policy, provider.DocumentAI, provider.CapabilityDocument)}
	if !cfg.GCPConfigured() || strings.TrimSpace(cfg.GCP.DocumentAIProcessor) == "" {
		return c, nil
	}
	if log == nil {
		log = logger.Nop()
	}
	d, err := gcp.NewDocument(ctx, log, cfg.GCP)
	if err != nil {
		return nil, err
	}
	c.doc = d
	return c, nil
}

func (c *Client) ID() provider.ID  { return provider.DocumentAI }
func (c *Client) Configured() bool { return c.doc != nil }

func (c *Client) Close() error {
	if c == nil || c.doc == nil {
		return nil
	}
	return c.doc.Close()
}

func (c *Client) ReadDocument(ctx context.Context, data []byte, mimeType string) provider.Result[string] {
	return provider.Call(ctx, c.policy, c.Configured(), func(ctx context.Context) (string, error) {
		text, err := c.doc.ProcessBytes(ctx, data, mimeType)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(text) == "" {
			return "", provider.Malformedf("documentai: no text extracted")
		}
		return text, nil
	})
}

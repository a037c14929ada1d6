// Package assemblyai transcribes audio with the AssemblyAI v2 transcript API.
package assemblyai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/persona-backend/internal/config"
	"github.com/yungbote/persona-backend/internal/domain"
	"github.com/yungbote/persona-backend/internal/platform/httpx"
	"github.com/yungbote/persona-backend/internal/provider"
	"github.com/yungbote/persona-backend/internal/provider/transcribe"
)

type Client struct {
	cfg          config.APIKeyConfig
	http         *http.Client
	policy       *provider.Policy
	pollInterval time.Duration
}

func New(cfg config.APIKeyConfig, httpClient *http.Client, policy *provider.Policy) *Client {
	if httpClient == nil {
		httpClient = httpx.NewClient()
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.assemblyai.com"
	}
	return &Client{
		cfg:          cfg,
		http:         httpClient,
		policy:       provider.Ensure(policy, provider.AssemblyAI, provider.CapabilityTranscription),
		pollInterval: transcribe.DefaultPollInterval,
	}
}

func (c *Client) ID() provider.ID  { return provider.AssemblyAI }
func (c *Client) Configured() bool { return strings.TrimSpace(c.cfg.APIKey) != "" }

func (c *Client) header() http.Header {
	h := http.Header{}
	h.Set("Authorization", c.cfg.APIKey)
	return h
}

// Times in transcript responses are milliseconds.
type timed struct {
	Text       string  `json:"text"`
	Start      int64   `json:"start"`
	End        int64   `json:"end"`
	Confidence float64 `json:"confidence"`
	Sentiment  string  `json:"sentiment,omitempty"`
	Speaker    string  `json:"speaker,omitempty"`
}

type transcript struct {
	ID                       string  `json:"id"`
	Status                   string  `json:"status"`
	Error                    string  `json:"error"`
	Text                     string  `json:"text"`
	Confidence               float64 `json:"confidence"`
	Words                    []timed `json:"words"`
	Utterances               []timed `json:"utterances"`
	SentimentAnalysisResults []timed `json:"sentiment_analysis_results"`
}

func (c *Client) Transcribe(ctx context.Context, audio []byte) provider.Result[domain.TranscriptionResult] {
	return provider.Call(ctx, c.policy, c.Configured(), func(ctx context.Context) (domain.TranscriptionResult, error) {
		var up struct {
			UploadURL string `json:"upload_url"`
		}
		err := httpx.Do(ctx, c.http, httpx.Request{
			Method:      http.MethodPost,
			URL:         c.cfg.BaseURL + "/v2/upload",
			Header:      c.header(),
			RawBody:     audio,
			ContentType: "application/octet-stream",
		}, &up)
		if err != nil {
			return domain.TranscriptionResult{}, fmt.Errorf("assemblyai upload: %w", err)
		}
		if up.UploadURL == "" {
			return domain.TranscriptionResult{}, provider.Malformedf("assemblyai upload: upload_url missing")
		}

		var job transcript
		err = httpx.Do(ctx, c.http, httpx.Request{
			Method: http.MethodPost,
			URL:    c.cfg.BaseURL + "/v2/transcript",
			Header: c.header(),
			JSONBody: map[string]any{
				"audio_url":          up.UploadURL,
				"speaker_labels":     true,
				"sentiment_analysis": true,
			},
		}, &job)
		if err != nil {
			return domain.TranscriptionResult{}, fmt.Errorf("assemblyai create transcript: %w", err)
		}
		if job.ID == "" {
			return domain.TranscriptionResult{}, provider.Malformedf("assemblyai: transcript id missing")
		}

		var final transcript
		err = transcribe.Poll(ctx, c.pollInterval, func(ctx context.Context) (bool, error) {
			final = transcript{}
			if err := httpx.Do(ctx, c.http, httpx.Request{URL: c.cfg.BaseURL + "/v2/transcript/" + job.ID, Header: c.header()}, &final); err != nil {
				return false, fmt.Errorf("assemblyai poll: %w", err)
			}
			switch final.Status {
			case "completed":
				return true, nil
			case "error":
				return false, fmt.Errorf("assemblyai transcript failed: %s", final.Error)
			default:
				return false, nil
			}
		})
		if err != nil {
			return domain.TranscriptionResult{}, err
		}
		return normalize(final), nil
	})
}

func ms(v int64) float64 { return float64(v) / 1000 }

// normalize prefers sentence-level sentiment results as utterances since they carry a
// sentiment; speaker utterances are the fallback.
func normalize(t transcript) domain.TranscriptionResult {
	out := domain.TranscriptionResult{
		FullText:   t.Text,
		Provider:   string(provider.AssemblyAI),
		Confidence: t.Confidence,
	}
	src := t.SentimentAnalysisResults
	if len(src) == 0 {
		src = t.Utterances
	}
	for _, u := range src {
		out.Utterances = append(out.Utterances, domain.Utterance{
			Text:      strings.TrimSpace(u.Text),
			StartSec:  ms(u.Start),
			EndSec:    ms(u.End),
			Sentiment: transcribe.NormalizeSentiment(u.Sentiment),
		})
	}
	for _, w := range t.Words {
		out.Words = append(out.Words, domain.Word{
			Text:       w.Text,
			StartSec:   ms(w.Start),
			EndSec:     ms(w.End),
			Confidence: w.Confidence,
		})
	}
	return domain.EnsureUtterances(out)
}

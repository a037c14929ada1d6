// Package gladia transcribes audio with the Gladia v2 pre-recorded API.
package gladia

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/tidwall/gjson"

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
		cfg.BaseURL = "https://api.gladia.io"
	}
	return &Client{
		cfg:          cfg,
		http:         httpClient,
		policy:       provider.Ensure(policy, provider.Gladia, provider.CapabilityTranscription),
		pollInterval: transcribe.DefaultPollInterval,
	}
}

func (c *Client) ID() provider.ID  { return provider.Gladia }
func (c *Client) Configured() bool { return strings.TrimSpace(c.cfg.APIKey) != "" }

func (c *Client) header() http.Header {
	h := http.Header{}
	h.Set("x-gladia-key", c.cfg.APIKey)
	return h
}

func (c *Client) Transcribe(ctx context.Context, audio []byte) provider.Result[domain.TranscriptionResult] {
	return provider.Call(ctx, c.policy, c.Configured(), func(ctx context.Context) (domain.TranscriptionResult, error) {
		audioURL, err := c.upload(ctx, audio)
		if err != nil {
			return domain.TranscriptionResult{}, err
		}

		var job struct {
			ID        string `json:"id"`
			ResultURL string `json:"result_url"`
		}
		err = httpx.Do(ctx, c.http, httpx.Request{
			Method: http.MethodPost,
			URL:    c.cfg.BaseURL + "/v2/pre-recorded",
			Header: c.header(),
			JSONBody: map[string]any{
				"audio_url":          audioURL,
				"diarization":        true,
				"sentiment_analysis": true,
			},
		}, &job)
		if err != nil {
			return domain.TranscriptionResult{}, fmt.Errorf("gladia create job: %w", err)
		}
		resultURL := job.ResultURL
		if resultURL == "" {
			if job.ID == "" {
				return domain.TranscriptionResult{}, provider.Malformedf("gladia: job id missing")
			}
			resultURL = c.cfg.BaseURL + "/v2/pre-recorded/" + job.ID
		}

		var raw []byte
		err = transcribe.Poll(ctx, c.pollInterval, func(ctx context.Context) (bool, error) {
			raw = nil
			if err := httpx.Do(ctx, c.http, httpx.Request{URL: resultURL, Header: c.header()}, &raw); err != nil {
				return false, fmt.Errorf("gladia poll: %w", err)
			}
			switch st := gjson.GetBytes(raw, "status").String(); st {
			case "done":
				return true, nil
			case "error":
				return false, fmt.Errorf("gladia job failed: %s", gjson.GetBytes(raw, "error_code").String())
			default:
				return false, nil
			}
		})
		if err != nil {
			return domain.TranscriptionResult{}, err
		}
		return parseResult(raw)
	})
}

func (c *Client) upload(ctx context.Context, audio []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="audio"; filename="audio.wav"`)
	h.Set("Content-Type", "audio/wav")
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(audio); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	var out struct {
		AudioURL string `json:"audio_url"`
	}
	err = httpx.Do(ctx, c.http, httpx.Request{
		Method:      http.MethodPost,
		URL:         c.cfg.BaseURL + "/v2/upload",
		Header:      c.header(),
		RawBody:     body.Bytes(),
		ContentType: mw.FormDataContentType(),
	}, &out)
	if err != nil {
		return "", fmt.Errorf("gladia upload: %w", err)
	}
	if out.AudioURL == "" {
		return "", provider.Malformedf("gladia upload: audio_url missing")
	}
	return out.AudioURL, nil
}

func parseResult(raw []byte) (domain.TranscriptionResult, error) {
	tr := gjson.GetBytes(raw, "result.transcription")
	if !tr.Exists() {
		return domain.TranscriptionResult{}, provider.Malformedf("gladia: result.transcription missing")
	}

	sentiments := gjson.GetBytes(raw, "result.sentiment_analysis.results").Array()
	sentimentAt := func(start, end float64) string {
		for _, s := range sentiments {
			ss, se := s.Get("start").Float(), s.Get("end").Float()
			if ss < end && se > start {
				return transcribe.NormalizeSentiment(s.Get("sentiment").String())
			}
		}
		return domain.SentimentUnknown
	}

	out := domain.TranscriptionResult{
		FullText: tr.Get("full_transcript").String(),
		Provider: string(provider.Gladia),
	}
	var confSum float64
	for _, u := range tr.Get("utterances").Array() {
		start, end := u.Get("start").Float(), u.Get("end").Float()
		out.Utterances = append(out.Utterances, domain.Utterance{
			Text:      strings.TrimSpace(u.Get("text").String()),
			StartSec:  start,
			EndSec:    end,
			Sentiment: sentimentAt(start, end),
		})
		confSum += u.Get("confidence").Float()
		for _, w := range u.Get("words").Array() {
			out.Words = append(out.Words, domain.Word{
				Text:       strings.TrimSpace(w.Get("word").String()),
				StartSec:   w.Get("start").Float(),
				EndSec:     w.Get("end").Float(),
				Confidence: w.Get("confidence").Float(),
			})
		}
	}
	if n := len(out.Utterances); n > 0 {
		out.Confidence = confSum / float64(n)
	} else {
		out.Confidence = domain.MeanWordConfidence(out.Words)
	}
	return domain.EnsureUtterances(out), nil
}

// Package gspeech transcribes audio with Google Cloud Speech-to-Text.
package gspeech

import (
	"context"
	"fmt"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/yungbote/persona-backend/internal/platform/gcp"
	"github.com/yungbote/persona-backend/internal/config"
	"github.com/yungbote/persona-backend/internal/domain"
	"github.com/yungbote/persona-backend/internal/provider"
)

// utteranceWindowSec groups word offsets into pseudo-utterances; Speech has no sentence segmentation.
const utteranceWindowSec = 10.0

type recognizeFunc func(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error)

type Client struct {
	recognize  recognizeFunc
	closer     func() error
	language   string
	policy     *provider.Policy
	maxRetries int
	backoff    time.Duration
}

func New(ctx context.Context, cfg *config.Config, policy *provider.Policy) (*Client, error) {
	c := &Client{
		language:   cfg.GCP.SpeechLanguage,
		policy:     provider.Ensure(policy, provider.GoogleSpeech, provider.CapabilityTranscription),
		maxRetries: 2,
		backoff:    750 * time.Millisecond,
	}
	if !cfg.GCPConfigured() {
		return c, nil
	}
	sc, err := speech.NewClient(ctx, gcp.ClientOptions(cfg.GCP)...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	c.recognize = func(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error) {
		op, err := sc.LongRunningRecognize(ctx, req)
		if err != nil {
			return nil, err
		}
		return op.Wait(ctx)
	}
	c.closer = sc.Close
	return c, nil
}

func (c *Client) ID() provider.ID  { return provider.GoogleSpeech }
func (c *Client) Configured() bool { return c.recognize != nil }

func (c *Client) Close() error {
	if c == nil || c.closer == nil {
		return nil
	}
	return c.closer()
}

func (c *Client) Transcribe(ctx context.Context, audio []byte) provider.Result[domain.TranscriptionResult] {
	return provider.Call(ctx, c.policy, c.Configured(), func(ctx context.Context) (domain.TranscriptionResult, error) {
		lang := c.language
		if lang == "" {
			lang = "en-US"
		}
		req := &speechpb.LongRunningRecognizeRequest{
			Config: &speechpb.RecognitionConfig{
				LanguageCode:               lang,
				Encoding:                   speechpb.RecognitionConfig_LINEAR16,
				SampleRateHertz:            16000,
				AudioChannelCount:          1,
				EnableAutomaticPunctuation: true,
				EnableWordTimeOffsets:      true,
				EnableWordConfidence:       true,
			},
			Audio: &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Content{Content: audio}},
		}
		resp, err := c.retry(ctx, func() (*speechpb.LongRunningRecognizeResponse, error) {
			return c.recognize(ctx, req)
		})
		if err != nil {
			return domain.TranscriptionResult{}, fmt.Errorf("speech longrunningrecognize: %w", err)
		}
		return parseResponse(resp), nil
	})
}

func parseResponse(resp *speechpb.LongRunningRecognizeResponse) domain.TranscriptionResult {
	out := domain.TranscriptionResult{Provider: string(provider.GoogleSpeech)}
	var full strings.Builder
	var altConf float64
	var altN int
	for _, r := range resp.GetResults() {
		if len(r.GetAlternatives()) == 0 || r.GetAlternatives()[0] == nil {
			continue
		}
		alt := r.GetAlternatives()[0]
		text := strings.TrimSpace(alt.GetTranscript())
		if text == "" {
			continue
		}
		if full.Len() > 0 {
			full.WriteString(" ")
		}
		full.WriteString(text)
		if alt.GetConfidence() > 0 {
			altConf += float64(alt.GetConfidence())
			altN++
		}
		for _, w := range alt.GetWords() {
			if w == nil {
				continue
			}
			out.Words = append(out.Words, domain.Word{
				Text:       w.GetWord(),
				StartSec:   durToSec(w.GetStartTime()),
				EndSec:     durToSec(w.GetEndTime()),
				Confidence: float64(w.GetConfidence()),
			})
		}
	}
	out.FullText = full.String()
	if altN > 0 {
		out.Confidence = altConf / float64(altN)
	} else {
		out.Confidence = domain.MeanWordConfidence(out.Words)
	}
	out.Utterances = groupByTime(out.Words, utteranceWindowSec)
	return domain.EnsureUtterances(out)
}

func groupByTime(words []domain.Word, windowSec float64) []domain.Utterance {
	if len(words) == 0 {
		return nil
	}
	var out []domain.Utterance
	curStart := words[0].StartSec
	curEnd := words[0].EndSec
	var buf strings.Builder

	flush := func() {
		txt := strings.TrimSpace(buf.String())
		if txt == "" {
			return
		}
		out = append(out, domain.Utterance{Text: txt, StartSec: curStart, EndSec: curEnd, Sentiment: domain.SentimentUnknown})
		buf.Reset()
	}

	for _, w := range words {
		if (w.StartSec-curStart) >= windowSec && buf.Len() > 0 {
			flush()
			curStart = w.StartSec
			curEnd = w.EndSec
		}
		if buf.Len() > 0 {
			buf.WriteString(" ")
		}
		buf.WriteString(w.Text)
		if w.EndSec > curEnd {
			curEnd = w.EndSec
		}
	}
	flush()
	return out
}

func durToSec(d *durationpb.Duration) float64 {
	if d == nil {
		return 0
	}
	return d.AsDuration().Seconds()
}

// retry re-runs fn on transient gRPC codes with doubling backoff.
func (c *Client) retry(ctx context.Context, fn func() (*speechpb.LongRunningRecognizeResponse, error)) (*speechpb.LongRunningRecognizeResponse, error) {
	backoff := c.backoff
	var last error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		resp, err := fn()
		if err == nil {
			return resp, nil
		}
		last = err

		code := status.Code(err)
		if code != codes.Unavailable && code != codes.ResourceExhausted {
			return nil, err
		}
		if attempt == c.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > 10*time.Second {
			backoff = 10 * time.Second
		}
	}
	return nil, last
}

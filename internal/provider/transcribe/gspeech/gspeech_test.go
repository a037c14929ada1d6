package gspeech

import (
	"context"
	"testing"
	"time"

	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/yungbote/persona-backend/internal/provider"
)

func word(w string, start, end float64) *speechpb.WordInfo {
	return &speechpb.WordInfo{
		Word:       w,
		StartTime:  durationpb.New(time.Duration(start * float64(time.Second))),
		EndTime:    durationpb.New(time.Duration(end * float64(time.Second))),
		Confidence: 0.8,
	}
}

func TestTranscribe_RetriesAndParses(t *testing.T) {
	attempts := 0
	c := &Client{
		policy:     provider.Ensure(nil, provider.GoogleSpeech, provider.CapabilityTranscription),
		maxRetries: 2,
		backoff:    time.Millisecond,
		recognize: func(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error) {
			attempts++
			if attempts == 1 {
				return nil, status.Error(codes.Unavailable, "try again")
			}
			return &speechpb.LongRunningRecognizeResponse{Results: []*speechpb.SpeechRecognitionResult{{
				Alternatives: []*speechpb.SpeechRecognitionAlternative{{
					Transcript: "hello world again",
					Confidence: 0.9,
					Words:      []*speechpb.WordInfo{word("hello", 0, 0.5), word("world", 0.6, 1), word("again", 11, 11.5)},
				}},
			}}}, nil
		},
	}
	res := c.Transcribe(context.Background(), []byte("pcm"))
	if !res.OK {
		t.Fatalf("res = %+v", res)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d", attempts)
	}
	got := res.Value
	if got.FullText != "hello world again" || len(got.Words) != 3 {
		t.Fatalf("got = %+v", got)
	}
	if len(got.Utterances) != 2 || got.Utterances[0].Text != "hello world" || got.Utterances[1].StartSec != 11 {
		t.Fatalf("utterances = %+v", got.Utterances)
	}
	if got.Utterances[0].Sentiment != "unknown" {
		t.Fatalf("speech has no sentiment")
	}
}

func TestTranscribe_NonRetryable(t *testing.T) {
	attempts := 0
	c := &Client{
		policy:     provider.Ensure(nil, provider.GoogleSpeech, provider.CapabilityTranscription),
		maxRetries: 2,
		backoff:    time.Millisecond,
		recognize: func(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error) {
			attempts++
			return nil, status.Error(codes.Unauthenticated, "bad creds")
		},
	}
	res := c.Transcribe(context.Background(), []byte("pcm"))
	if res.OK || res.Kind != provider.KindAuthFailed || attempts != 1 {
		t.Fatalf("res = %+v attempts = %d", res, attempts)
	}
}

func TestParseResponse_NoWords(t *testing.T) {
	out := parseResponse(&speechpb.LongRunningRecognizeResponse{Results: []*speechpb.SpeechRecognitionResult{{
		Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: " just text "}},
	}}})
	if len(out.Utterances) != 1 || out.Utterances[0].Text != "just text" {
		t.Fatalf("out = %+v", out)
	}
}

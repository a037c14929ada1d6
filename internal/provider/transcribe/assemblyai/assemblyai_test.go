package assemblyai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/persona-backend/internal/config"
	"github.com/yungbote/persona-backend/internal/provider"
)

func TestTranscribe(t *testing.T) {
	var polls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "ak" {
			t.Errorf("auth header = %q", r.Header.Get("Authorization"))
		}
		switch r.URL.Path {
		case "/v2/upload":
			w.Write([]byte(`{"upload_url":"https://cdn/u1"}`))
		case "/v2/transcript":
			w.Write([]byte(`{"id":"t1","status":"queued"}`))
		case "/v2/transcript/t1":
			if atomic.AddInt32(&polls, 1) == 1 {
				w.Write([]byte(`{"id":"t1","status":"processing"}`))
				return
			}
			w.Write([]byte(`{"id":"t1","status":"completed","text":"One. Two. Three. Four. Five.","confidence":0.92,
				"words":[{"text":"One.","start":0,"end":400,"confidence":0.9}],
				"sentiment_analysis_results":[
					{"text":"One.","start":0,"end":400,"sentiment":"POSITIVE"},
					{"text":"Two.","start":500,"end":900,"sentiment":"NEUTRAL"},
					{"text":"Three.","start":1000,"end":1400,"sentiment":"NEGATIVE"},
					{"text":"Four.","start":1500,"end":1900,"sentiment":"NEUTRAL"},
					{"text":"Five.","start":2000,"end":2400,"sentiment":"POSITIVE"}]}`))
		default:
			w.WriteHeader(404)
		}
	}))
	defer srv.Close()

	c := New(config.APIKeyConfig{APIKey: "ak", BaseURL: srv.URL}, srv.Client(), nil)
	c.pollInterval = time.Millisecond
	res := c.Transcribe(context.Background(), []byte("audio"))
	if !res.OK || res.Provider != provider.AssemblyAI {
		t.Fatalf("res = %+v", res)
	}
	got := res.Value
	if len(got.Utterances) != 5 {
		t.Fatalf("utterances = %d", len(got.Utterances))
	}
	if got.Utterances[2].Sentiment != "negative" || got.Utterances[1].StartSec != 0.5 {
		t.Fatalf("utterance = %+v", got.Utterances[2])
	}
	if got.Words[0].EndSec != 0.4 || got.Confidence != 0.92 {
		t.Fatalf("got = %+v", got)
	}
}

func TestNormalize_FallsBackToSpeakerUtterances(t *testing.T) {
	out := normalize(transcript{
		Text:       "hi",
		Utterances: []timed{{Text: "hi", Start: 0, End: 1000, Speaker: "A"}},
	})
	if len(out.Utterances) != 1 || out.Utterances[0].Sentiment != "unknown" || out.Utterances[0].EndSec != 1 {
		t.Fatalf("out = %+v", out)
	}
	single := normalize(transcript{Text: "no segmentation"})
	if len(single.Utterances) != 1 || single.Utterances[0].Text != "no segmentation" {
		t.Fatalf("single = %+v", single)
	}
}

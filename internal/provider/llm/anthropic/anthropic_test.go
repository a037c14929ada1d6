package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/yungbote/persona-backend/internal/config"
	"github.com/yungbote/persona-backend/internal/provider"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newClient(key string, rt roundTripperFunc) *Client {
	return New(config.LLMProviderConfig{APIKey: key, BaseURL: "http://upstream/", Model: "claude-test", MaxTokens: 512},
		&http.Client{Transport: rt},
		provider.NewPolicy(nil, nil, provider.Anthropic, provider.CapabilityLLM, provider.DefaultPolicyConfig()))
}

func TestComplete(t *testing.T) {
	c := newClient("sk-ant", func(req *http.Request) (*http.Response, error) {
		if !strings.HasSuffix(req.URL.Path, "/v1/messages") {
			t.Fatalf("path = %s", req.URL.Path)
		}
		var in map[string]any
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			t.Fatal(err)
		}
		if in["model"] != "claude-test" || in["max_tokens"].(float64) != 512 {
			t.Fatalf("req = %v", in)
		}
		if _, ok := in["system"]; !ok {
			t.Fatalf("system prompt missing")
		}
		return response(200, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
			"content":[{"type":"text","text":"{\"summary\":"},{"type":"text","text":"\"ok\"}"}],
			"stop_reason":"end_turn","usage":{"input_tokens":3,"output_tokens":4}}`), nil
	})
	res := c.Complete(context.Background(), "Assess.", `{"faces":[]}`)
	if !res.OK || res.Value != `{"summary":"ok"}` {
		t.Fatalf("res = %+v", res)
	}
}

func TestComplete_StatusClassified(t *testing.T) {
	cases := map[int]provider.ErrorKind{
		401: provider.KindAuthFailed,
		429: provider.KindRateLimited,
		529: provider.KindUnknown,
	}
	for status, want := range cases {
		c := newClient("sk-ant", func(*http.Request) (*http.Response, error) {
			return response(status, `{"type":"error","error":{"type":"x","message":"nope"}}`), nil
		})
		res := c.Complete(context.Background(), "Assess.", "{}")
		if res.OK || res.Kind != want {
			t.Fatalf("status %d: res = %+v, want %s", status, res, want)
		}
	}
}

func TestComplete_NoText(t *testing.T) {
	c := newClient("sk-ant", func(*http.Request) (*http.Response, error) {
		return response(200, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
			"content":[],"stop_reason":"max_tokens","usage":{"input_tokens":3,"output_tokens":0}}`), nil
	})
	res := c.Complete(context.Background(), "Assess.", "{}")
	if res.OK || res.Kind != provider.KindMalformed {
		t.Fatalf("res = %+v", res)
	}
}

func TestComplete_NotConfigured(t *testing.T) {
	c := newClient("", func(*http.Request) (*http.Response, error) {
		t.Fatal("no request expected")
		return nil, nil
	})
	if res := c.Complete(context.Background(), "Assess.", "{}"); res.Kind != provider.KindUnavailable {
		t.Fatalf("res = %+v", res)
	}
}

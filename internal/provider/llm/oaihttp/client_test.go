package oaihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/yungbote/persona-backend/internal/config"
	"github.com/yungbote/persona-backend/internal/platform/promptstyle"
	"github.com/yungbote/persona-backend/internal/provider"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
	}
}

func newClient(apiKey string, rt roundTripperFunc) *Client {
	return New(config.LLMProviderConfig{APIKey: apiKey, BaseURL: "http://upstream/", Model: "upstream-model"},
		&http.Client{Transport: rt},
		provider.NewPolicy(nil, nil, provider.OpenAI, provider.CapabilityLLM, provider.DefaultPolicyConfig()))
}

func TestComplete_JSONMode(t *testing.T) {
	c := newClient("sk-test", func(req *http.Request) (*http.Response, error) {
		if req.URL.String() != "http://upstream/v1/chat/completions" {
			t.Fatalf("url = %s", req.URL)
		}
		if got := req.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Fatalf("auth = %q", got)
		}
		var in chatCompletionRequest
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			t.Fatalf("decode req: %v", err)
		}
		if in.Model != "upstream-model" || len(in.Messages) != 2 || in.Messages[1].Content != `{"faces":[]}` {
			t.Fatalf("req = %+v", in)
		}
		if in.ResponseFormat["type"] != "json_object" {
			t.Fatalf("response_format = %v", in.ResponseFormat)
		}
		return jsonResponse(200, `{"choices":[{"message":{"content":"{\"summary\":\"ok\"}"}}]}`), nil
	})
	res := c.Complete(context.Background(), promptstyle.ApplySystem("Assess.", "json"), `{"faces":[]}`)
	if !res.OK || res.Value != `{"summary":"ok"}` {
		t.Fatalf("res = %+v", res)
	}
}

func TestComplete_TextModeOmitsResponseFormat(t *testing.T) {
	c := newClient("sk-test", func(req *http.Request) (*http.Response, error) {
		raw, _ := io.ReadAll(req.Body)
		if strings.Contains(string(raw), "response_format") {
			t.Fatalf("unexpected response_format in %s", raw)
		}
		return jsonResponse(200, `{"choices":[{"text":"They lead."}]}`), nil
	})
	res := c.Complete(context.Background(), promptstyle.ApplySystem("Chat.", "text"), "who leads?")
	if !res.OK || res.Value != "They lead." {
		t.Fatalf("res = %+v", res)
	}
}

func TestComplete_Failures(t *testing.T) {
	cases := []struct {
		name string
		resp *http.Response
		want provider.ErrorKind
	}{
		{"unauthorized", jsonResponse(401, `{"error":"bad key"}`), provider.KindAuthFailed},
		{"rate limited", jsonResponse(429, `{}`), provider.KindRateLimited},
		{"empty choices", jsonResponse(200, `{"choices":[]}`), provider.KindMalformed},
		{"not json", jsonResponse(200, `<html>`), provider.KindMalformed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newClient("sk-test", func(*http.Request) (*http.Response, error) { return tc.resp, nil })
			res := c.Complete(context.Background(), "sys", "{}")
			if res.OK || res.Kind != tc.want {
				t.Fatalf("res = %+v, want %s", res, tc.want)
			}
		})
	}
}

func TestComplete_NotConfigured(t *testing.T) {
	var calls int32
	c := newClient("", func(*http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return jsonResponse(200, `{}`), nil
	})
	res := c.Complete(context.Background(), "sys", "{}")
	if res.OK || res.Kind != provider.KindUnavailable || atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("res = %+v calls = %d", res, calls)
	}
}

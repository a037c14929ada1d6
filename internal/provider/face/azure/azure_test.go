package azure

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/yungbote/persona-backend/internal/config"
	"github.com/yungbote/persona-backend/internal/domain"
	"github.com/yungbote/persona-backend/internal/provider"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jpegImage(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 100, 100)), nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDetectFaces(t *testing.T) {
	hc := &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		if got := r.Header.Get("Ocp-Apim-Subscription-Key"); got != "secret" {
			t.Errorf("key header = %q", got)
		}
		if !strings.HasPrefix(r.URL.String(), "https://face.example.com/face/v1.0/detect?") {
			t.Errorf("url = %s", r.URL)
		}
		body := `[{"faceRectangle":{"top":10,"left":50,"width":20,"height":20},
			"faceAttributes":{"age":28.6,"gender":"female","smile":0.2,"emotion":{"happiness":0.7,"neutral":0.3}}}]`
		return &http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader(body)), Header: http.Header{}}, nil
	})}

	c := New(config.AzureFaceConfig{Endpoint: "https://face.example.com/", Key: "secret"}, hc,
		provider.NewPolicy(nil, nil, provider.AzureFace, provider.CapabilityFace, provider.DefaultPolicyConfig()))
	res := c.DetectFaces(context.Background(), jpegImage(t), 5)
	if !res.OK || len(res.Value) != 1 {
		t.Fatalf("res = %+v", res)
	}
	f := res.Value[0]
	if f.EstimatedGender != domain.GenderFemale || f.EstimatedAge.Low != 29 {
		t.Fatalf("face = %+v", f)
	}
	if f.BoundingBox.Left != 0.5 || f.EmotionScores["happy"] != 0.7 {
		t.Fatalf("face = %+v", f)
	}
}

func TestDetectFaces_RateLimited(t *testing.T) {
	hc := &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: 429, Body: io.NopCloser(strings.NewReader(`{"error":{"code":"429"}}`)), Header: http.Header{}}, nil
	})}
	c := New(config.AzureFaceConfig{Endpoint: "https://face.example.com", Key: "k"}, hc,
		provider.NewPolicy(nil, nil, provider.AzureFace, provider.CapabilityFace, provider.DefaultPolicyConfig()))
	res := c.DetectFaces(context.Background(), jpegImage(t), 5)
	if res.OK || res.Kind != provider.KindRateLimited {
		t.Fatalf("res = %+v", res)
	}
}

func TestConfigured(t *testing.T) {
	c := New(config.AzureFaceConfig{Endpoint: "https://x"}, nil, nil)
	if c.Configured() {
		t.Fatalf("missing key should not be configured")
	}
}

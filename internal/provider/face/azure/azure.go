// Package azure detects faces with the Azure AI Face detect endpoint.
package azure

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/yungbote/persona-backend/internal/config"
	"github.com/yungbote/persona-backend/internal/domain"
	"github.com/yungbote/persona-backend/internal/platform/httpx"
	"github.com/yungbote/persona-backend/internal/provider"
	"github.com/yungbote/persona-backend/internal/provider/face"
)

type Client struct {
	cfg    config.AzureFaceConfig
	http   *http.Client
	policy *provider.Policy
}

func New(cfg config.AzureFaceConfig, httpClient *http.Client, policy *provider.Policy) *Client {
	if httpClient == nil {
		httpClient = httpx.NewClient()
	}
	cfg.Endpoint = strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	return &Client{cfg: cfg, http: httpClient, policy: provider.Ensure(policy, provider.AzureFace, provider.CapabilityFace)}
}

func (c *Client) ID() provider.ID { return provider.AzureFace }

func (c *Client) Configured() bool {
	return c.cfg.Endpoint != "" && strings.TrimSpace(c.cfg.Key) != ""
}

type detectedFace struct {
	FaceRectangle struct {
		Top    float64 `json:"top"`
		Left   float64 `json:"left"`
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	} `json:"faceRectangle"`
	FaceAttributes *struct {
		Age     *float64           `json:"age"`
		Gender  string             `json:"gender"`
		Emotion map[string]float64 `json:"emotion"`
		Smile   *float64           `json:"smile"`
	} `json:"faceAttributes"`
}

func (c *Client) DetectFaces(ctx context.Context, img []byte, maxCount int) provider.Result[[]domain.FaceObservation] {
	return provider.Call(ctx, c.policy, c.Configured(), func(ctx context.Context) ([]domain.FaceObservation, error) {
		w, h, err := face.ImageSize(img)
		if err != nil {
			return nil, provider.Malformed(err)
		}

		q := url.Values{}
		q.Set("returnFaceId", "false")
		q.Set("returnFaceAttributes", "age,gender,emotion,smile")
		q.Set("detectionModel", "detection_01")
		q.Set("recognitionModel", "recognition_04")

		hdr := http.Header{}
		hdr.Set("Ocp-Apim-Subscription-Key", c.cfg.Key)

		var out []detectedFace
		err = httpx.Do(ctx, c.http, httpx.Request{
			Method:      http.MethodPost,
			URL:         c.cfg.Endpoint + "/face/v1.0/detect?" + q.Encode(),
			Header:      hdr,
			RawBody:     img,
			ContentType: "application/octet-stream",
		}, &out)
		if err != nil {
			return nil, err
		}
		return face.Finalize(normalize(out, w, h), maxCount), nil
	})
}

func normalize(in []detectedFace, imgW, imgH int) []domain.FaceObservation {
	out := make([]domain.FaceObservation, 0, len(in))
	for _, f := range in {
		r := f.FaceRectangle
		obs := domain.FaceObservation{
			BoundingBox:     domain.NormalizeBox(r.Left, r.Top, r.Width, r.Height, imgW, imgH),
			EstimatedGender: domain.GenderUnknown,
		}
		if a := f.FaceAttributes; a != nil {
			obs.EstimatedGender = domain.ParseGender(a.Gender)
			if a.Age != nil {
				age := int(*a.Age + 0.5)
				obs.EstimatedAge = &domain.AgeRange{Low: age, High: age}
			}
			obs.EmotionScores = face.NormalizeEmotions(a.Emotion, 1)
			if a.Smile != nil {
				obs.ProviderAttributes = map[string]map[string]interface{}{
					string(provider.AzureFace): {"smile": *a.Smile},
				}
			}
		}
		out = append(out, obs)
	}
	return out
}

// Package facepp detects faces with the Face++ detect API.
package facepp

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/yungbote/persona-backend/internal/config"
	"github.com/yungbote/persona-backend/internal/domain"
	"github.com/yungbote/persona-backend/internal/platform/httpx"
	"github.com/yungbote/persona-backend/internal/provider"
	"github.com/yungbote/persona-backend/internal/provider/face"
)

const detectPath = "/facepp/v3/detect"

type Client struct {
	cfg    config.FacePPConfig
	http   *http.Client
	policy *provider.Policy
}

func New(cfg config.FacePPConfig, httpClient *http.Client, policy *provider.Policy) *Client {
	if httpClient == nil {
		httpClient = httpx.NewClient()
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api-us.faceplusplus.com"
	}
	return &Client{cfg: cfg, http: httpClient, policy: provider.Ensure(policy, provider.FacePlusPlus, provider.CapabilityFace)}
}

func (c *Client) ID() provider.ID { return provider.FacePlusPlus }

func (c *Client) Configured() bool {
	return strings.TrimSpace(c.cfg.APIKey) != "" && strings.TrimSpace(c.cfg.APISecret) != ""
}

func (c *Client) DetectFaces(ctx context.Context, img []byte, maxCount int) provider.Result[[]domain.FaceObservation] {
	return provider.Call(ctx, c.policy, c.Configured(), func(ctx context.Context) ([]domain.FaceObservation, error) {
		w, h, err := face.ImageSize(img)
		if err != nil {
			return nil, provider.Malformed(err)
		}

		form := url.Values{}
		form.Set("api_key", c.cfg.APIKey)
		form.Set("api_secret", c.cfg.APISecret)
		form.Set("image_base64", base64.StdEncoding.EncodeToString(img))
		form.Set("return_attributes", "gender,age,emotion")

		var raw []byte
		err = httpx.Do(ctx, c.http, httpx.Request{
			Method:      http.MethodPost,
			URL:         c.cfg.BaseURL + detectPath,
			RawBody:     []byte(form.Encode()),
			ContentType: "application/x-www-form-urlencoded",
		}, &raw)
		if err != nil {
			return nil, err
		}
		faces, err := parseDetect(raw, w, h)
		if err != nil {
			return nil, err
		}
		return face.Finalize(faces, maxCount), nil
	})
}

func parseDetect(raw []byte, imgW, imgH int) ([]domain.FaceObservation, error) {
	if !gjson.ValidBytes(raw) {
		return nil, provider.Malformedf("facepp: response is not json")
	}
	doc := gjson.ParseBytes(raw)
	if msg := doc.Get("error_message"); msg.Exists() && msg.String() != "" {
		return nil, provider.Malformedf("facepp: %s", msg.String())
	}
	list := doc.Get("faces")
	if !list.IsArray() {
		return nil, provider.Malformedf("facepp: faces missing")
	}

	out := make([]domain.FaceObservation, 0, len(list.Array()))
	for _, f := range list.Array() {
		rect := f.Get("face_rectangle")
		obs := domain.FaceObservation{
			BoundingBox: domain.NormalizeBox(
				rect.Get("left").Float(), rect.Get("top").Float(),
				rect.Get("width").Float(), rect.Get("height").Float(),
				imgW, imgH,
			),
			EstimatedGender: domain.ParseGender(f.Get("attributes.gender.value").String()),
		}
		if age := f.Get("attributes.age.value"); age.Exists() {
			a := int(age.Int())
			obs.EstimatedAge = &domain.AgeRange{Low: a, High: a}
		}
		emotions := map[string]float64{}
		f.Get("attributes.emotion").ForEach(func(k, v gjson.Result) bool {
			emotions[k.String()] = v.Float()
			return true
		})
		obs.EmotionScores = face.NormalizeEmotions(emotions, 100)
		obs.ProviderAttributes = map[string]map[string]interface{}{
			string(provider.FacePlusPlus): {"face_token": f.Get("face_token").String()},
		}
		out = append(out, obs)
	}
	return out, nil
}

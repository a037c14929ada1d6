// Package gvision detects faces with Google Cloud Vision FACE_DETECTION.
// Vision reports emotions as likelihood buckets and has no age or gender.
package gvision

import (
	"context"
	"fmt"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/yungbote/persona-backend/internal/config"
	"github.com/yungbote/persona-backend/internal/domain"
	"github.com/yungbote/persona-backend/internal/platform/gcp"
	"github.com/yungbote/persona-backend/internal/provider"
	"github.com/yungbote/persona-backend/internal/provider/face"
)

type annotateFunc func(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error)

type Client struct {
	annotate annotateFunc
	closer   func() error
	policy   *provider.Policy
}

// New dials Vision only when Google credentials are configured.
func New(ctx context.Context, cfg *config.Config, policy *provider.Policy) (*Client, error) {
	c := &Client{policy: provider.Ensure(policy, provider.GoogleVision, provider.CapabilityFace)}
	if !cfg.GCPConfigured() {
		return c, nil
	}
	vc, err := vision.NewImageAnnotatorClient(ctx, gcp.ClientOptions(cfg.GCP)...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	c.annotate = func(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
		return vc.BatchAnnotateImages(ctx, req)
	}
	c.closer = vc.Close
	return c, nil
}

func (c *Client) ID() provider.ID  { return provider.GoogleVision }
func (c *Client) Configured() bool { return c.annotate != nil }

func (c *Client) Close() error {
	if c == nil || c.closer == nil {
		return nil
	}
	return c.closer()
}

func (c *Client) DetectFaces(ctx context.Context, img []byte, maxCount int) provider.Result[[]domain.FaceObservation] {
	return provider.Call(ctx, c.policy, c.Configured(), func(ctx context.Context) ([]domain.FaceObservation, error) {
		w, h, err := face.ImageSize(img)
		if err != nil {
			return nil, provider.Malformed(err)
		}
		max := int32(maxCount)
		if max <= 0 {
			max = 10
		}
		req := &visionpb.BatchAnnotateImagesRequest{Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Content: img},
			Features: []*visionpb.Feature{{Type: visionpb.Feature_FACE_DETECTION, MaxResults: max}},
		}}}
		resp, err := c.annotate(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("vision BatchAnnotateImages: %w", err)
		}
		if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
			return nil, provider.Malformedf("vision: empty response")
		}
		r0 := resp.Responses[0]
		if r0.Error != nil && r0.Error.Message != "" {
			return nil, fmt.Errorf("vision annotate error: %s", r0.Error.Message)
		}
		return face.Finalize(normalize(r0.FaceAnnotations, w, h), maxCount), nil
	})
}

var likelihoodScore = map[visionpb.Likelihood]float64{
	visionpb.Likelihood_UNKNOWN:       0,
	visionpb.Likelihood_VERY_UNLIKELY: 0.05,
	visionpb.Likelihood_UNLIKELY:      0.25,
	visionpb.Likelihood_POSSIBLE:      0.5,
	visionpb.Likelihood_LIKELY:        0.75,
	visionpb.Likelihood_VERY_LIKELY:   0.95,
}

func normalize(in []*visionpb.FaceAnnotation, imgW, imgH int) []domain.FaceObservation {
	out := make([]domain.FaceObservation, 0, len(in))
	for _, fa := range in {
		if fa == nil {
			continue
		}
		poly := fa.GetFdBoundingPoly()
		if len(poly.GetVertices()) == 0 {
			poly = fa.GetBoundingPoly()
		}
		minX, minY, maxX, maxY := bounds(poly.GetVertices())
		out = append(out, domain.FaceObservation{
			BoundingBox:     domain.NormalizeBox(minX, minY, maxX-minX, maxY-minY, imgW, imgH),
			EstimatedGender: domain.GenderUnknown,
			EmotionScores: face.NormalizeEmotions(map[string]float64{
				"joy":      likelihoodScore[fa.GetJoyLikelihood()],
				"sorrow":   likelihoodScore[fa.GetSorrowLikelihood()],
				"anger":    likelihoodScore[fa.GetAngerLikelihood()],
				"surprise": likelihoodScore[fa.GetSurpriseLikelihood()],
			}, 1),
			ProviderAttributes: map[string]map[string]interface{}{
				string(provider.GoogleVision): {
					"detection_confidence": fa.GetDetectionConfidence(),
					"headwear":             fa.GetHeadwearLikelihood().String(),
					"blurred":              fa.GetBlurredLikelihood().String(),
				},
			},
		})
	}
	return out
}

func bounds(vs []*visionpb.Vertex) (minX, minY, maxX, maxY float64) {
	for i, v := range vs {
		x, y := float64(v.GetX()), float64(v.GetY())
		if i == 0 || x < minX {
			minX = x
		}
		if i == 0 || y < minY {
			minY = y
		}
		if i == 0 || x > maxX {
			maxX = x
		}
		if i == 0 || y > maxY {
			maxY = y
		}
	}
	return
}

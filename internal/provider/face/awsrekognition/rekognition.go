// Package awsrekognition detects faces with AWS Rekognition DetectFaces.
package awsrekognition

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/yungbote/persona-backend/internal/config"
	"github.com/yungbote/persona-backend/internal/domain"
	"github.com/yungbote/persona-backend/internal/provider"
	"github.com/yungbote/persona-backend/internal/provider/face"
)

type detectAPI interface {
	DetectFaces(ctx context.Context, in *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error)
}

type Client struct {
	api    detectAPI
	policy *provider.Policy
}

// New builds a Rekognition client from static credentials. Without a region and a key
// pair the adapter stays unconfigured.
func New(ctx context.Context, cfg config.AWSConfig, policy *provider.Policy) (*Client, error) {
	c := &Client{policy: provider.Ensure(policy, provider.AWSRekognition, provider.CapabilityFace)}
	if strings.TrimSpace(cfg.Region) == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return c, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}
	c.api = rekognition.NewFromConfig(awsCfg)
	return c, nil
}

func (c *Client) ID() provider.ID  { return provider.AWSRekognition }
func (c *Client) Configured() bool { return c.api != nil }

func (c *Client) DetectFaces(ctx context.Context, img []byte, maxCount int) provider.Result[[]domain.FaceObservation] {
	return provider.Call(ctx, c.policy, c.Configured(), func(ctx context.Context) ([]domain.FaceObservation, error) {
		out, err := c.api.DetectFaces(ctx, &rekognition.DetectFacesInput{
			Image:      &types.Image{Bytes: img},
			Attributes: []types.Attribute{types.AttributeAll},
		})
		if err != nil {
			return nil, fmt.Errorf("rekognition DetectFaces: %w", err)
		}
		if out == nil {
			return nil, provider.Malformedf("rekognition: empty response")
		}
		return face.Finalize(normalize(out.FaceDetails), maxCount), nil
	})
}

func normalize(details []types.FaceDetail) []domain.FaceObservation {
	out := make([]domain.FaceObservation, 0, len(details))
	for _, d := range details {
		obs := domain.FaceObservation{EstimatedGender: domain.GenderUnknown}
		if b := d.BoundingBox; b != nil {
			obs.BoundingBox = domain.BoundingBox{
				Left:   float64(aws.ToFloat32(b.Left)),
				Top:    float64(aws.ToFloat32(b.Top)),
				Width:  float64(aws.ToFloat32(b.Width)),
				Height: float64(aws.ToFloat32(b.Height)),
			}.Clamp()
		}
		if a := d.AgeRange; a != nil {
			obs.EstimatedAge = &domain.AgeRange{Low: int(aws.ToInt32(a.Low)), High: int(aws.ToInt32(a.High))}
		}
		if g := d.Gender; g != nil {
			obs.EstimatedGender = domain.ParseGender(string(g.Value))
		}
		emotions := make(map[string]float64, len(d.Emotions))
		for _, e := range d.Emotions {
			emotions[string(e.Type)] = float64(aws.ToFloat32(e.Confidence))
		}
		obs.EmotionScores = face.NormalizeEmotions(emotions, 100)
		attrs := map[string]interface{}{"confidence": aws.ToFloat32(d.Confidence)}
		if d.Smile != nil {
			attrs["smile"] = d.Smile.Value
		}
		obs.ProviderAttributes = map[string]map[string]interface{}{string(provider.AWSRekognition): attrs}
		out = append(out, obs)
	}
	return out
}

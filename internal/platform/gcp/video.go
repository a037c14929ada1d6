package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	videointelligence "cloud.google.com/go/videointelligence/apiv1"
	vipb "cloud.google.com/go/videointelligence/apiv1/videointelligencepb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/yungbote/persona-backend/internal/config"
	"github.com/yungbote/persona-backend/internal/platform/logger"
)

// Video runs Video Intelligence annotation for shots, labels and face tracks.
type Video interface {
	// Annotate uses gcsURI when non-empty, otherwise sends content inline.
	Annotate(ctx context.Context, content []byte, gcsURI string) (*vipb.VideoAnnotationResults, error)
	Close() error
}

type videoService struct {
	log        *logger.Logger
	client     *videointelligence.Client
	maxRetries int
}

func NewVideo(ctx context.Context, log *logger.Logger, cfg config.GCPConfig) (Video, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	c, err := videointelligence.NewClient(ctx, ClientOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("videointelligence client: %w", err)
	}
	return &videoService{
		log:        log.With("service", "gcp.Video"),
		client:     c,
		maxRetries: 2,
	}, nil
}

func (s *videoService) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *videoService) Annotate(ctx context.Context, content []byte, gcsURI string) (*vipb.VideoAnnotationResults, error) {
	req := &vipb.AnnotateVideoRequest{
		Features: []vipb.Feature{
			vipb.Feature_SHOT_CHANGE_DETECTION,
			vipb.Feature_LABEL_DETECTION,
			vipb.Feature_FACE_DETECTION,
		},
		VideoContext: &vipb.VideoContext{
			LabelDetectionConfig: &vipb.LabelDetectionConfig{LabelDetectionMode: vipb.LabelDetectionMode_SHOT_MODE},
			FaceDetectionConfig:  &vipb.FaceDetectionConfig{IncludeAttributes: true},
		},
	}
	if uri := strings.TrimSpace(gcsURI); uri != "" {
		if !strings.HasPrefix(uri, "gs://") {
			return nil, fmt.Errorf("gcsURI must be gs://... got %q", uri)
		}
		req.InputUri = uri
	} else {
		req.InputContent = content
	}

	resp, err := s.retryAnnotate(ctx, func() (*vipb.AnnotateVideoResponse, error) {
		op, err := s.client.AnnotateVideo(ctx, req)
		if err != nil {
			return nil, err
		}
		return op.Wait(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("videointelligence AnnotateVideo: %w", err)
	}
	if resp == nil || len(resp.AnnotationResults) == 0 || resp.AnnotationResults[0] == nil {
		return nil, fmt.Errorf("videointelligence: no annotation results")
	}
	ar := resp.AnnotationResults[0]
	if ar.Error != nil && ar.Error.Message != "" {
		return nil, status.Error(codes.Code(ar.Error.Code), ar.Error.Message)
	}
	return ar, nil
}

// DurToSec converts a proto duration into seconds.
func DurToSec(d *durationpb.Duration) float64 {
	if d == nil {
		return 0
	}
	return float64(d.Seconds) + float64(d.Nanos)/1e9
}

func (s *videoService) retryAnnotate(ctx context.Context, fn func() (*vipb.AnnotateVideoResponse, error)) (*vipb.AnnotateVideoResponse, error) {
	backoff := 750 * time.Millisecond
	var last error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
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
		if attempt == s.maxRetries {
			break
		}
		s.log.Warn("videointelligence retry", "attempt", attempt+1, "code", code.String())
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

// Package gvideo indexes video with Google Video Intelligence: shots become scenes,
// labels become topics and face-track attributes become an emotion timeline.
package gvideo

import (
	"context"
	"fmt"
	"sort"

	vipb "cloud.google.com/go/videointelligence/apiv1/videointelligencepb"
	"github.com/google/uuid"

	"github.com/yungbote/persona-backend/internal/config"
	"github.com/yungbote/persona-backend/internal/domain"
	"github.com/yungbote/persona-backend/internal/platform/gcp"
	"github.com/yungbote/persona-backend/internal/platform/logger"
	"github.com/yungbote/persona-backend/internal/provider"
)

// attributeThreshold is the minimum confidence for a face-track attribute to enter the timeline.
const attributeThreshold = 0.5

// expressive face attributes reported by FACE_DETECTION with include_attributes.
var emotionAttributes = map[string]string{
	"smiling":           "smiling",
	"mouth_open":        "mouth_open",
	"looking_at_camera": "engaged",
}

type Client struct {
	log    *logger.Logger
	video  gcp.Video
	bucket gcp.Bucket
	policy *provider.Policy
}

// New dials Video Intelligence when Google credentials are configured, plus a staging bucket
// when one is named. Without a bucket the video is sent inline.
func New(ctx context.Context, log *logger.Logger, cfg *config.Config, policy *provider.Policy) (*Client, error) {
	if log == nil {
		log = logger.Nop()
	}
	c := &Client{
		log:    log.With("adapter", string(provider.GoogleVideo)),
		policy: provider.Ensure(policy, provider.GoogleVideo, provider.CapabilityVideoIndex),
	}
	if !cfg.GCPConfigured() {
		return c, nil
	}
	v, err := gcp.NewVideo(ctx, log, cfg.GCP)
	if err != nil {
		return nil, err
	}
	c.video = v
	if cfg.GCP.VideoBucket != "" {
		b, err := gcp.NewBucket(ctx, log, cfg.GCP)
		if err != nil {
			_ = v.Close()
			return nil, err
		}
		c.bucket = b
	}
	return c, nil
}

func (c *Client) ID() provider.ID  { return provider.GoogleVideo }
func (c *Client) Configured() bool { return c.video != nil }

func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	if c.bucket != nil {
		_ = c.bucket.Close()
	}
	if c.video != nil {
		return c.video.Close()
	}
	return nil
}

func (c *Client) Analyze(ctx context.Context, video []byte) provider.Result[domain.VideoInsights] {
	return provider.Call(ctx, c.policy, c.Configured(), func(ctx context.Context) (domain.VideoInsights, error) {
		if len(video) == 0 {
			return domain.VideoInsights{}, provider.Malformedf("empty video")
		}
		var uri string
		if c.bucket != nil {
			key := fmt.Sprintf("persona/video/%s.mp4", uuid.NewString())
			u, err := c.bucket.Upload(ctx, key, video)
			if err != nil {
				return domain.VideoInsights{}, err
			}
			uri = u
			defer func() {
				if err := c.bucket.Delete(context.WithoutCancel(ctx), key); err != nil {
					c.log.Warn("staged video cleanup failed", "key", key, "error", err)
				}
			}()
		}
		ar, err := c.video.Annotate(ctx, video, uri)
		if err != nil {
			return domain.VideoInsights{}, err
		}
		return insights(ar), nil
	})
}

func insights(ar *vipb.VideoAnnotationResults) domain.VideoInsights {
	out := domain.VideoInsights{Provider: string(provider.GoogleVideo)}
	if ar == nil {
		return out
	}

	for i, shot := range ar.GetShotAnnotations() {
		start, end := span(shot)
		out.Scenes = append(out.Scenes, domain.TimelineEntry{
			Label:    fmt.Sprintf("shot %d", i+1),
			StartSec: start,
			EndSec:   end,
		})
		out.DurationSec = max(out.DurationSec, end)
	}

	labels := append(append([]*vipb.LabelAnnotation{}, ar.GetSegmentLabelAnnotations()...), ar.GetShotLabelAnnotations()...)
	for _, la := range labels {
		name := la.GetEntity().GetDescription()
		if name == "" {
			continue
		}
		for _, seg := range la.GetSegments() {
			start, end := span(seg.GetSegment())
			out.Topics = append(out.Topics, domain.TimelineEntry{
				Label:      name,
				StartSec:   start,
				EndSec:     end,
				Confidence: float64(seg.GetConfidence()),
			})
			out.DurationSec = max(out.DurationSec, end)
		}
	}

	for _, fa := range ar.GetFaceDetectionAnnotations() {
		for _, track := range fa.GetTracks() {
			out.FaceTrackCount++
			start, end := span(track.GetSegment())
			scores := trackAttributes(track)
			names := make([]string, 0, len(scores))
			for name := range scores {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				out.Emotions = append(out.Emotions, domain.TimelineEntry{
					Label:      name,
					StartSec:   start,
					EndSec:     end,
					Confidence: scores[name],
				})
			}
			out.DurationSec = max(out.DurationSec, end)
		}
	}

	if seg := ar.GetSegment(); seg != nil {
		if _, end := span(seg); end > 0 {
			out.DurationSec = end
		}
	}

	byStart := func(s []domain.TimelineEntry) {
		sort.SliceStable(s, func(i, j int) bool { return s[i].StartSec < s[j].StartSec })
	}
	byStart(out.Topics)
	byStart(out.Emotions)
	return out
}

// trackAttributes keeps the highest confidence seen per expressive attribute across the track.
func trackAttributes(track *vipb.Track) map[string]float64 {
	out := map[string]float64{}
	note := func(attrs []*vipb.DetectedAttribute) {
		for _, a := range attrs {
			label, ok := emotionAttributes[a.GetName()]
			if !ok {
				continue
			}
			conf := float64(a.GetConfidence())
			if conf >= attributeThreshold && conf > out[label] {
				out[label] = conf
			}
		}
	}
	note(track.GetAttributes())
	for _, obj := range track.GetTimestampedObjects() {
		note(obj.GetAttributes())
	}
	return out
}

func span(seg *vipb.VideoSegment) (float64, float64) {
	if seg == nil {
		return 0, 0
	}
	return gcp.DurToSec(seg.GetStartTimeOffset()), gcp.DurToSec(seg.GetEndTimeOffset())
}

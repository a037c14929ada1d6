package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/yungbote/persona-backend/internal/domain"
	"github.com/yungbote/persona-backend/internal/provider"
)

// preparedMedia is what the evidence phase consumes. For images only Frame is set.
type preparedMedia struct {
	Frame       []byte
	Segment     []byte
	Audio       []byte
	DurationSec float64
	StartSec    float64
	SegmentSec  float64
}

// sniffMediaType resolves an empty media type from the payload's leading bytes.
func sniffMediaType(declared domain.MediaType, data []byte) (domain.MediaType, error) {
	switch declared {
	case domain.MediaImage, domain.MediaVideo:
		return declared, nil
	case "":
	default:
		return "", badRequest("media type %q is not image or video", declared)
	}
	ct := http.DetectContentType(data)
	switch {
	case strings.HasPrefix(ct, "image/"):
		return domain.MediaImage, nil
	case strings.HasPrefix(ct, "video/"), ct == "application/ogg":
		return domain.MediaVideo, nil
	}
	return "", mediaFailed(fmt.Sprintf("unsupported media content type %q", ct), nil)
}

// segmentWindow clamps the requested segment to the probed duration.
func segmentWindow(startSec, requestedSec, totalSec, defaultSec float64) (float64, float64, error) {
	if startSec < 0 {
		startSec = 0
	}
	if requestedSec <= 0 {
		requestedSec = defaultSec
	}
	actual := min(requestedSec, totalSec-startSec)
	if actual <= 0 {
		return 0, 0, mediaFailed(fmt.Sprintf("segment start %.1fs is past the end of the %.1fs video", startSec, totalSec), nil)
	}
	return startSec, actual, nil
}

// prepareVideo runs inside a request-scoped scratch directory that is removed on every exit path.
func (s *Service) prepareVideo(ctx context.Context, req MediaRequest) (*preparedMedia, error) {
	if s.media == nil {
		return nil, newError(provider.KindUnavailable, "video processing is not available", nil)
	}
	dir, err := os.MkdirTemp(s.opts.ScratchDir, "persona-video-*")
	if err != nil {
		return nil, mediaFailed("create scratch dir", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			s.log.Warn("scratch cleanup failed", "dir", dir, "error", err)
		}
	}()

	input := filepath.Join(dir, "input")
	if err := os.WriteFile(input, req.Data, 0o600); err != nil {
		return nil, mediaFailed("write video", err)
	}

	total, err := s.media.ProbeDuration(ctx, input)
	if err != nil {
		s.log.Warn("duration probe failed, using default", "default_sec", s.opts.DefaultDurationSec, "error", err)
		total = s.opts.DefaultDurationSec
	}
	start, actual, werr := segmentWindow(req.SegmentStartSec, req.SegmentDurationSec, total, s.opts.DefaultSegmentSec)
	if werr != nil {
		return nil, werr
	}

	segPath := filepath.Join(dir, "segment.mp4")
	if err := s.media.ExtractSegment(ctx, input, segPath, start, actual); err != nil {
		return nil, mediaFailed("extract video segment", err)
	}
	framePath := filepath.Join(dir, "frame.jpg")
	if err := s.media.ExtractFrame(ctx, segPath, framePath, actual*0.5); err != nil {
		return nil, mediaFailed("extract video frame", err)
	}

	out := &preparedMedia{DurationSec: total, StartSec: start, SegmentSec: actual}
	if out.Segment, err = os.ReadFile(segPath); err != nil {
		return nil, mediaFailed("read video segment", err)
	}
	if out.Frame, err = os.ReadFile(framePath); err != nil {
		return nil, mediaFailed("read video frame", err)
	}

	audioPath := filepath.Join(dir, "audio.wav")
	if err := s.media.ExtractAudio(ctx, segPath, audioPath); err != nil {
		s.log.Info("no audio extracted, skipping transcription", "error", err)
		return out, nil
	}
	if audio, err := os.ReadFile(audioPath); err == nil && len(audio) > 0 {
		out.Audio = audio
	}
	return out, nil
}

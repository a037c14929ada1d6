package localmedia

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/persona-backend/internal/config"
	"github.com/yungbote/persona-backend/internal/platform/ctxutil"
	"github.com/yungbote/persona-backend/internal/platform/logger"
)

// Tools wraps ffmpeg and ffprobe for the video path of an analysis.
//
// REQUIRED BINARIES in the runtime image:
// - ffmpeg for segment, frame and audio extraction
// - ffprobe for duration probing
//
// Every call is bounded by the configured media timeout.
type Tools struct {
	log         *logger.Logger
	ffmpegPath  string
	ffprobePath string
	timeout     time.Duration
	run         runFunc
}

type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

func New(log *logger.Logger, cfg config.MediaConfig) *Tools {
	if log == nil {
		log = logger.Nop()
	}
	t := &Tools{
		log:         log.With("service", "MediaTools"),
		ffmpegPath:  cfg.FFmpegPath,
		ffprobePath: cfg.FFprobePath,
		timeout:     cfg.Timeout.Duration,
		run:         execRun,
	}
	if t.ffmpegPath == "" {
		t.ffmpegPath = "ffmpeg"
	}
	if t.ffprobePath == "" {
		t.ffprobePath = "ffprobe"
	}
	if t.timeout <= 0 {
		t.timeout = 5 * time.Minute
	}
	return t
}

// AssertReady checks that both binaries resolve on PATH.
func (t *Tools) AssertReady() error {
	for _, bin := range []string{t.ffmpegPath, t.ffprobePath} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("missing required binary %q in PATH: %w", bin, err)
		}
	}
	return nil
}

// ProbeDuration returns the container duration in seconds.
func (t *Tools) ProbeDuration(ctx context.Context, videoPath string) (float64, error) {
	if videoPath == "" {
		return 0, fmt.Errorf("videoPath required")
	}
	out, err := t.exec(ctx, t.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration failed: %w; out=%s", err, string(out))
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration %q: %w", strings.TrimSpace(string(out)), err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("ffprobe reported non-positive duration %v", d)
	}
	return d, nil
}

// ExtractSegment copies [startSec, startSec+durationSec) of videoPath into outPath, re-encoded as mp4.
func (t *Tools) ExtractSegment(ctx context.Context, videoPath, outPath string, startSec, durationSec float64) error {
	if durationSec <= 0 {
		return fmt.Errorf("segment duration must be positive, got %v", durationSec)
	}
	if err := prepareOut(videoPath, outPath); err != nil {
		return err
	}
	out, err := t.exec(ctx, t.ffmpegPath,
		"-y",
		"-ss", formatSec(startSec),
		"-i", videoPath,
		"-t", formatSec(durationSec),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-c:a", "aac",
		"-movflags", "+faststart",
		outPath,
	)
	if err != nil {
		return fmt.Errorf("ffmpeg extract segment failed: %w; out=%s", err, string(out))
	}
	return requireOutput(outPath)
}

// ExtractFrame writes a single JPEG taken atSec seconds into videoPath.
func (t *Tools) ExtractFrame(ctx context.Context, videoPath, outPath string, atSec float64) error {
	if err := prepareOut(videoPath, outPath); err != nil {
		return err
	}
	if atSec < 0 {
		atSec = 0
	}
	out, err := t.exec(ctx, t.ffmpegPath,
		"-y",
		"-ss", formatSec(atSec),
		"-i", videoPath,
		"-frames:v", "1",
		"-q:v", "2",
		outPath,
	)
	if err != nil {
		return fmt.Errorf("ffmpeg extract frame failed: %w; out=%s", err, string(out))
	}
	return requireOutput(outPath)
}

// ExtractAudio writes 16 kHz mono PCM wav. Fails when the video has no audio stream.
func (t *Tools) ExtractAudio(ctx context.Context, videoPath, outPath string) error {
	if err := prepareOut(videoPath, outPath); err != nil {
		return err
	}
	out, err := t.exec(ctx, t.ffmpegPath,
		"-y",
		"-i", videoPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-acodec", "pcm_s16le",
		"-f", "wav",
		outPath,
	)
	if err != nil {
		return fmt.Errorf("ffmpeg extract audio failed: %w; out=%s", err, string(out))
	}
	return requireOutput(outPath)
}

func (t *Tools) exec(ctx context.Context, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctxutil.Default(ctx), t.timeout)
	defer cancel()
	start := time.Now()
	out, err := t.run(ctx, name, args...)
	t.log.Debug("media tool finished", "bin", filepath.Base(name), "duration_ms", time.Since(start).Milliseconds(), "ok", err == nil)
	return out, err
}

func prepareOut(in, out string) error {
	if in == "" {
		return fmt.Errorf("videoPath required")
	}
	if out == "" {
		return fmt.Errorf("outPath required")
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("mkdir outPath dir: %w", err)
	}
	return nil
}

func requireOutput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("output missing at %s", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("output empty at %s", path)
	}
	return nil
}

func formatSec(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}

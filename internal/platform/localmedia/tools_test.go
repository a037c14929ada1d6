package localmedia

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yungbote/persona-backend/internal/config"
)

type call struct {
	name string
	args []string
}

func fakeTools(t *testing.T, fn func(c call) ([]byte, error)) (*Tools, *[]call) {
	t.Helper()
	calls := &[]call{}
	tl := New(nil, config.MediaConfig{FFmpegPath: "/opt/ffmpeg", FFprobePath: "/opt/ffprobe"})
	tl.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		c := call{name: name, args: args}
		*calls = append(*calls, c)
		return fn(c)
	}
	return tl, calls
}

func TestProbeDuration(t *testing.T) {
	tl, calls := fakeTools(t, func(c call) ([]byte, error) { return []byte("12.480000\n"), nil })
	d, err := tl.ProbeDuration(context.Background(), "/tmp/in.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if d != 12.48 {
		t.Fatalf("duration = %v", d)
	}
	if (*calls)[0].name != "/opt/ffprobe" {
		t.Fatalf("called %q", (*calls)[0].name)
	}
}

func TestProbeDuration_Errors(t *testing.T) {
	cases := map[string]func(c call) ([]byte, error){
		"exec failure": func(c call) ([]byte, error) { return []byte("moov atom not found"), errors.New("exit status 1") },
		"garbage":      func(c call) ([]byte, error) { return []byte("N/A"), nil },
		"zero":         func(c call) ([]byte, error) { return []byte("0"), nil },
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			tl, _ := fakeTools(t, fn)
			if _, err := tl.ProbeDuration(context.Background(), "/tmp/in.mp4"); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestExtractSegment(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "segment.mp4")
	tl, calls := fakeTools(t, func(c call) ([]byte, error) {
		return nil, os.WriteFile(c.args[len(c.args)-1], []byte("mp4"), 0o644)
	})
	if err := tl.ExtractSegment(context.Background(), "/tmp/in.mp4", out, 8, 1); err != nil {
		t.Fatal(err)
	}
	args := strings.Join((*calls)[0].args, " ")
	if !strings.Contains(args, "-ss 8.000 -i /tmp/in.mp4 -t 1.000") {
		t.Fatalf("args = %s", args)
	}
}

func TestExtractSegment_RejectsNonPositive(t *testing.T) {
	tl, calls := fakeTools(t, func(c call) ([]byte, error) { return nil, nil })
	if err := tl.ExtractSegment(context.Background(), "/tmp/in.mp4", filepath.Join(t.TempDir(), "s.mp4"), 9, 0); err == nil {
		t.Fatal("expected error")
	}
	if len(*calls) != 0 {
		t.Fatalf("ffmpeg should not run")
	}
}

func TestExtractAudio_MissingOutput(t *testing.T) {
	tl, _ := fakeTools(t, func(c call) ([]byte, error) { return nil, nil })
	if err := tl.ExtractAudio(context.Background(), "/tmp/in.mp4", filepath.Join(t.TempDir(), "a.wav")); err == nil {
		t.Fatal("expected error when ffmpeg produced nothing")
	}
}

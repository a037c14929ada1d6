// Package face holds helpers shared by the face-detection adapters.
package face

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"sort"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/yungbote/persona-backend/internal/domain"
)

// ImageSize decodes only the image header.
func ImageSize(img []byte) (w, h int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return 0, 0, fmt.Errorf("decode image header: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// NormalizeEmotions lowercases labels onto a shared vocabulary and divides scores by
// scale (100 for percentages), clamping to 0..1.
func NormalizeEmotions(in map[string]float64, scale float64) map[string]float64 {
	if len(in) == 0 {
		return nil
	}
	if scale <= 0 {
		scale = 1
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		v /= scale
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		out[canonicalEmotion(k)] = v
	}
	return out
}

var emotionAliases = map[string]string{
	"happiness": "happy",
	"joy":       "happy",
	"sadness":   "sad",
	"sorrow":    "sad",
	"anger":     "angry",
	"surprise":  "surprised",
	"disgust":   "disgusted",
	"fear":      "fear",
	"contempt":  "contempt",
	"neutral":   "calm",
	"calm":      "calm",
	"confused":  "confused",
}

func canonicalEmotion(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	if v, ok := emotionAliases[k]; ok {
		return v
	}
	return k
}

// Finalize keeps the maxCount largest faces, orders them left to right and assigns
// 1-based indexes.
func Finalize(faces []domain.FaceObservation, maxCount int) []domain.FaceObservation {
	if maxCount > 0 && len(faces) > maxCount {
		sort.SliceStable(faces, func(i, j int) bool {
			return faces[i].BoundingBox.Area() > faces[j].BoundingBox.Area()
		})
		faces = faces[:maxCount]
	}
	sort.SliceStable(faces, func(i, j int) bool {
		return faces[i].BoundingBox.Left < faces[j].BoundingBox.Left
	})
	for i := range faces {
		faces[i].PersonIndex = i + 1
		faces[i].BoundingBox = faces[i].BoundingBox.Clamp()
		if faces[i].EstimatedGender == "" {
			faces[i].EstimatedGender = domain.GenderUnknown
		}
	}
	if faces == nil {
		faces = []domain.FaceObservation{}
	}
	return faces
}

package domain

import (
	"fmt"
	"strings"
)

type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderUnknown Gender = "unknown"
)

// ParseGender maps provider spellings ("Male", "FEMALE", "f") onto Gender.
func ParseGender(s string) Gender {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m", "man":
		return GenderMale
	case "female", "f", "woman":
		return GenderFemale
	default:
		return GenderUnknown
	}
}

// BoundingBox is normalized to the 0..1 range of the analyzed image.
type BoundingBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NormalizeBox converts a pixel rectangle into a clamped 0..1 box.
func NormalizeBox(left, top, width, height float64, imgW, imgH int) BoundingBox {
	if imgW <= 0 || imgH <= 0 {
		return BoundingBox{}
	}
	w := float64(imgW)
	h := float64(imgH)
	return BoundingBox{
		Left:   clamp01(left / w),
		Top:    clamp01(top / h),
		Width:  clamp01(width / w),
		Height: clamp01(height / h),
	}.Clamp()
}

// Clamp keeps the box inside the unit square.
func (b BoundingBox) Clamp() BoundingBox {
	b.Left = clamp01(b.Left)
	b.Top = clamp01(b.Top)
	b.Width = clamp01(b.Width)
	b.Height = clamp01(b.Height)
	if b.Left+b.Width > 1 {
		b.Width = 1 - b.Left
	}
	if b.Top+b.Height > 1 {
		b.Height = 1 - b.Top
	}
	return b
}

func (b BoundingBox) Area() float64 { return b.Width * b.Height }

// IoU is the intersection-over-union of two normalized boxes.
func (b BoundingBox) IoU(o BoundingBox) float64 {
	ix := maxf(0, minf(b.Left+b.Width, o.Left+o.Width)-maxf(b.Left, o.Left))
	iy := maxf(0, minf(b.Top+b.Height, o.Top+o.Height)-maxf(b.Top, o.Top))
	inter := ix * iy
	union := b.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

type AgeRange struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

func (a *AgeRange) String() string {
	if a == nil {
		return "unknown"
	}
	if a.Low == a.High {
		return fmt.Sprintf("%d", a.Low)
	}
	return fmt.Sprintf("%d-%d", a.Low, a.High)
}

// FaceObservation is one face as reported by one provider.
type FaceObservation struct {
	PersonIndex        int                               `json:"person_index"`
	BoundingBox        BoundingBox                       `json:"bounding_box"`
	EstimatedAge       *AgeRange                         `json:"estimated_age"`
	EstimatedGender    Gender                            `json:"estimated_gender"`
	EmotionScores      map[string]float64                `json:"emotion_scores,omitempty"`
	ProviderAttributes map[string]map[string]interface{} `json:"provider_attributes,omitempty"`
}

// DominantEmotion returns the highest scoring emotion label, or "" when there are none.
func (f FaceObservation) DominantEmotion() string {
	best := ""
	bestScore := -1.0
	for k, v := range f.EmotionScores {
		if v > bestScore || (v == bestScore && k < best) {
			best, bestScore = k, v
		}
	}
	return best
}

// IntegratedPerson is the merged multi-provider view of one detected subject.
type IntegratedPerson struct {
	PersonLabel           string                     `json:"person_label"`
	PrimaryProvider       string                     `json:"primary_provider"`
	PrimaryObservation    FaceObservation            `json:"primary_observation"`
	SecondaryObservations map[string]FaceObservation `json:"secondary_observations,omitempty"`
	ServiceStatus         map[string]bool            `json:"service_status"`
}

// PersonLabel builds labels like "Person 2 (Female)".
func PersonLabel(index int, g Gender) string {
	switch g {
	case GenderMale:
		return fmt.Sprintf("Person %d (Male)", index)
	case GenderFemale:
		return fmt.Sprintf("Person %d (Female)", index)
	default:
		return fmt.Sprintf("Person %d", index)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

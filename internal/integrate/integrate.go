// Package integrate merges face lists from several providers into one list of people.
//
// The first provider (in preference order) with a non-empty list is the primary; its
// faces decide how many people exist. Other providers' faces are attached to those
// people either by array position or by bounding-box overlap.
package integrate

import (
	"github.com/yungbote/persona-backend/internal/domain"
	"github.com/yungbote/persona-backend/internal/provider"
)

type AlignMode string

const (
	// AlignPositional pairs faces by index. Providers that order faces differently
	// will be mismatched.
	AlignPositional AlignMode = "positional"
	// AlignOverlap pairs faces greedily by IoU of their normalized boxes.
	AlignOverlap AlignMode = "overlap"
)

const DefaultOverlapThreshold = 0.3

// Integrate merges results, which must be in preference order, into at most maxPeople persons.
func Integrate(results []provider.Result[[]domain.FaceObservation], maxPeople int, mode AlignMode) []domain.IntegratedPerson {
	if maxPeople <= 0 {
		return []domain.IntegratedPerson{}
	}

	status := make(map[string]bool, len(results))
	primary := -1
	for i, r := range results {
		status[string(r.Provider)] = r.OK
		if primary < 0 && r.OK && len(r.Value) > 0 {
			primary = i
		}
	}
	if primary < 0 {
		return []domain.IntegratedPerson{}
	}

	base := results[primary]
	n := len(base.Value)
	if n > maxPeople {
		n = maxPeople
	}

	people := make([]domain.IntegratedPerson, n)
	for i := 0; i < n; i++ {
		obs := base.Value[i]
		obs.PersonIndex = i + 1
		people[i] = domain.IntegratedPerson{
			PersonLabel:        domain.PersonLabel(i+1, obs.EstimatedGender),
			PrimaryProvider:    string(base.Provider),
			PrimaryObservation: obs,
			ServiceStatus:      copyStatus(status),
		}
	}

	for j, r := range results {
		if j == primary || !r.OK || len(r.Value) == 0 {
			continue
		}
		pairs := align(base.Value[:n], r.Value, mode)
		for i, k := range pairs {
			if k < 0 {
				continue
			}
			if people[i].SecondaryObservations == nil {
				people[i].SecondaryObservations = map[string]domain.FaceObservation{}
			}
			obs := r.Value[k]
			obs.PersonIndex = i + 1
			people[i].SecondaryObservations[string(r.Provider)] = obs
		}
	}
	return people
}

// align returns, for each primary face, the index of the matched secondary face or -1.
func align(primary, secondary []domain.FaceObservation, mode AlignMode) []int {
	out := make([]int, len(primary))
	for i := range out {
		out[i] = -1
	}
	if mode != AlignOverlap {
		for i := range primary {
			if i < len(secondary) {
				out[i] = i
			}
		}
		return out
	}

	used := make([]bool, len(secondary))
	for {
		bestI, bestK, bestScore := -1, -1, DefaultOverlapThreshold
		for i := range primary {
			if out[i] >= 0 {
				continue
			}
			for k := range secondary {
				if used[k] {
					continue
				}
				score := primary[i].BoundingBox.IoU(secondary[k].BoundingBox)
				if score >= bestScore && (bestI < 0 || score > bestScore) {
					bestI, bestK, bestScore = i, k, score
				}
			}
		}
		if bestI < 0 {
			return out
		}
		out[bestI] = bestK
		used[bestK] = true
	}
}

func copyStatus(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

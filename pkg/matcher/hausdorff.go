package matcher

import (
	"fmt"
	"math"
	"strings"

	"github.com/racerstats/laptimer/pkg/geo"
	"github.com/racerstats/laptimer/pkg/util"
)

const (
	// MinPoints is the smallest trace that carries enough shape to compare.
	MinPoints = 10
)

// Preset is a distance threshold in meters modelling how much GPS/course drift a track type tolerates.
type Preset float64

const (
	PresetPrecision Preset = 25
	PresetStreet    Preset = 40
	PresetRoad      Preset = 50
	PresetHighway   Preset = 80

	DefaultPreset = PresetStreet
)

var presetNames = map[string]Preset{
	"precision": PresetPrecision,
	"street":    PresetStreet,
	"road":      PresetRoad,
	"highway":   PresetHighway,
}

// ParsePreset maps a preset name (precision, street, road, highway) to its threshold. an empty name yields the default.
func ParsePreset(name string) (Preset, error) {
	if name == "" {
		return DefaultPreset, nil
	}
	p, ok := presetNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, util.WrapErrorf(nil, util.ErrBadParamInput, "unknown similarity preset %q", name)
	}
	return p, nil
}

func (p Preset) Meters() float64 {
	return float64(p)
}

func (p Preset) String() string {
	for name, v := range presetNames {
		if v == p {
			return name
		}
	}
	return fmt.Sprintf("%.0fm", float64(p))
}

/*
Similarity. bounded score in [0,1] from the discrete Hausdorff distance H between two traces:

	similarity = 1 / (1 + H/thresholdM)

1 only when the traces coincide pointwise, monotonically decreasing in H. returns 0 when either
trace has fewer than MinPoints points. a non-positive or non-finite threshold falls back to DefaultPreset.
O(|a|·|b|), callers should pass simplified traces.
*/
func Similarity(a, b []geo.Coordinate, thresholdM float64) float64 {
	if len(a) < MinPoints || len(b) < MinPoints {
		return 0
	}
	if thresholdM <= 0 || !util.IsFinite(thresholdM) {
		thresholdM = DefaultPreset.Meters()
	}

	h := HausdorffDistance(a, b)
	if !util.IsFinite(h) {
		return 0
	}
	return util.Clamp(1/(1+h/thresholdM), 0, 1)
}

// HausdorffDistance is max(forward, backward) of the directed nearest-neighbour distances, in meters.
// returns +Inf when either trace is empty.
func HausdorffDistance(a, b []geo.Coordinate) float64 {
	if len(a) == 0 || len(b) == 0 {
		return math.Inf(1)
	}
	return math.Max(directedHausdorff(a, b), directedHausdorff(b, a))
}

// directedHausdorff: max over p in from of min over q in to of distance(p,q).
func directedHausdorff(from, to []geo.Coordinate) float64 {
	maxMin := 0.0
	for _, p := range from {
		nearest := math.Inf(1)
		for _, q := range to {
			d := geo.Distance(p, q)
			if d < nearest {
				nearest = d
				if nearest == 0 {
					break
				}
			}
			// cannot raise maxMin anymore
			if nearest <= maxMin {
				break
			}
		}
		if nearest > maxMin {
			maxMin = nearest
		}
	}
	return maxMin
}

// Matches reports whether similarity(a, b, thresholdM) reaches acceptance.
func Matches(a, b []geo.Coordinate, thresholdM, acceptance float64) (float64, bool) {
	s := Similarity(a, b, thresholdM)
	return s, s > 0 && s >= acceptance
}

package location

import (
	"github.com/racerstats/laptimer/pkg/geo"
	"github.com/racerstats/laptimer/pkg/util"
)

const (
	minDisplacementM = 0.1
)

// SpeedEnhancer fills in speed for sources that report none, from the displacement since the previous fix.
type SpeedEnhancer struct {
	previous    Fix
	hasPrevious bool
}

func NewSpeedEnhancer() *SpeedEnhancer {
	return &SpeedEnhancer{}
}

/*
Apply. when the fix reports speed <= 0 and an earlier fix exists, speed becomes haversine distance / Δt,
or 0 when the displacement is at most 0.1 m. NaN, ±Inf and negative results keep the raw speed.
the returned fix becomes the previous fix for the next call. a fix not newer than the previous one is
returned unchanged and forgotten.
*/
func (e *SpeedEnhancer) Apply(fix Fix) Fix {
	if e.hasPrevious && fix.Timestamp <= e.previous.Timestamp {
		return fix
	}

	adjusted := fix.Speed
	if fix.Speed <= 0 && e.hasPrevious {
		dtSeconds := float64(fix.Timestamp-e.previous.Timestamp) / 1000.0
		d := geo.Distance(e.previous.Coordinate(), fix.Coordinate())
		if d > minDisplacementM {
			adjusted = d / dtSeconds
		} else {
			adjusted = 0
		}
	}

	if !util.IsFinite(adjusted) || adjusted < 0 {
		adjusted = fix.Speed
	}

	fix.Speed = adjusted
	e.previous = fix
	e.hasPrevious = true
	return fix
}

func (e *SpeedEnhancer) Reset() {
	e.hasPrevious = false
	e.previous = Fix{}
}
